// Package genres manages the game genres. Listings are served from Redis
// when it is available.
package genres

import (
	"context"
	"net/http"

	"github.com/game-store-project/game-store/apperr"
	"github.com/game-store-project/game-store/models"
	"github.com/game-store-project/game-store/utils"

	"github.com/google/uuid"
)

type Cache interface {
	GetGenres(ctx context.Context) ([]models.Genre, bool)
	SetGenres(ctx context.Context, genres []models.Genre)
	InvalidateGenres(ctx context.Context)
}

type Service struct {
	store Store
	cache Cache
}

// NewService wires a store and an optional cache.
func NewService(store Store, cache Cache) *Service {
	return &Service{store: store, cache: cache}
}

func (s *Service) List(ctx context.Context) ([]models.Genre, error) {
	if s.cache != nil {
		if genres, ok := s.cache.GetGenres(ctx); ok {
			utils.Log.Debug("Cache HIT: genres")
			return genres, nil
		}
		utils.Log.Debug("Cache MISS: genres")
	}

	genres, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetGenres(ctx, genres)
	}
	return genres, nil
}

func (s *Service) Create(ctx context.Context, name string) (models.Genre, error) {
	genre, err := s.store.Create(ctx, name)
	if err != nil {
		return models.Genre{}, err
	}
	s.invalidate(ctx)
	return genre, nil
}

func (s *Service) Rename(ctx context.Context, id uuid.UUID, name string) (models.Genre, error) {
	genre, err := s.store.Rename(ctx, id, name)
	if err != nil {
		return models.Genre{}, err
	}
	s.invalidate(ctx)
	return genre, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if apperr.Status(err) >= http.StatusInternalServerError {
			utils.LogError("Genre delete failed", map[string]interface{}{"genre_id": id, "error": err.Error()})
		}
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateGenres(ctx)
	}
}
