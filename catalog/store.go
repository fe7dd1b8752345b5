package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/game-store-project/game-store/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Query narrows the ranking primitives. Zero Limit means no limit and an
// empty Title means no title filter.
type Query struct {
	Limit int
	Title string
}

// Store is the persistence boundary for games and purchase records.
// Errors are *apperr.Error values: NotFound, Conflict or Internal.
type Store interface {
	FindByID(ctx context.Context, id uuid.UUID) (models.Game, error)
	FindBySlug(ctx context.Context, slug string) (models.Game, error)

	ListAll(ctx context.Context) ([]models.Game, error)
	ListAvailable(ctx context.Context, title string) ([]models.Game, error)
	ListRecentlyAdded(ctx context.Context, q Query) ([]models.Game, error)
	ListPurchaseHistory(ctx context.Context, q Query) ([]models.UserGame, error)
	ListByPopularity(ctx context.Context, q Query) ([]models.Game, error)
	ListOwnedGames(ctx context.Context, userID uuid.UUID) ([]models.Game, error)

	Create(ctx context.Context, g models.Game) (models.Game, error)
	Update(ctx context.Context, id uuid.UUID, g models.Game) (models.Game, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// CreatePurchase records that userID bought gameID. It reports false,
	// without error, when the user already owns the game.
	CreatePurchase(ctx context.Context, userID, gameID uuid.UUID, at time.Time) (bool, error)
}

// Slugify derives the URL slug of a title.
func Slugify(title string) string {
	return strings.ToLower(slug.Make(title))
}

// UniqueSlug returns the slug of title for the game id. Titles that fold to
// a slug another game already uses get the first 8 characters of the id
// appended, titles without any slug-able character use the whole id.
func UniqueSlug(title string, id uuid.UUID, taken func(slug string) (bool, error)) (string, error) {
	base := Slugify(title)
	if base == "" {
		return id.String(), nil
	}
	used, err := taken(base)
	if err != nil {
		return "", err
	}
	if !used {
		return base, nil
	}
	return base + "-" + id.String()[:8], nil
}
