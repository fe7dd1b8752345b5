// Package cart implements the client-held shopping cart. The cart lives only
// in a signed token; every operation decodes it, checks the ids against the
// catalog and, for mutations, returns a freshly encoded token.
package cart

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/game-store-project/game-store/apperr"
	"github.com/game-store-project/game-store/catalog"
	"github.com/game-store-project/game-store/models"
	"github.com/game-store-project/game-store/monitoring"
	"github.com/game-store-project/game-store/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// MaxItems keeps the token below the 4 KB cookie limit of browsers.
const MaxItems = 100

var (
	errCartFull      = apperr.New(apperr.ErrInvalid, "Cart is full")
	errAlreadyInCart = apperr.Conflict("Item is already on the cart")
	errNotInCart     = apperr.NotFound("Item is not on the cart")
	errGameNotFound  = apperr.NotFound("Content not found")
	errNoUser        = apperr.New(apperr.ErrUnauthorized, "Unauthorized")
)

type CartItem struct {
	ID       uuid.UUID       `json:"id"`
	Title    string          `json:"title"`
	Year     int             `json:"year"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"imageUrl"`
	Slug     string          `json:"slug"`
}

type BuyResult struct {
	// NotAdded lists the titles the user already owned.
	NotAdded []string `json:"notAdded"`
}

type PurchaseNotifier interface {
	PublishPurchaseCompleted(ctx context.Context, event models.PurchaseCompleted) error
}

type FeedInvalidator interface {
	InvalidateFeeds(ctx context.Context)
}

type Service struct {
	store    catalog.Store
	codec    *Codec
	notifier PurchaseNotifier
	feeds    FeedInvalidator
	now      func() time.Time
}

type Option func(*Service)

func WithNotifier(n PurchaseNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithFeedInvalidator(f FeedInvalidator) Option {
	return func(s *Service) { s.feeds = f }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store catalog.Store, codec *Codec, opts ...Option) *Service {
	s := &Service{store: store, codec: codec, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// View lists the purchasable games of the cart. Stale ids are skipped and
// the token is left as it is.
func (s *Service) View(ctx context.Context, token string) ([]CartItem, error) {
	games, err := s.live(ctx, s.codec.Decode(token))
	if err != nil {
		return nil, err
	}

	items := make([]CartItem, 0, len(games))
	for _, g := range games {
		items = append(items, CartItem{
			ID:       g.ID,
			Title:    g.Title,
			Year:     g.Year,
			Price:    g.Price,
			ImageURL: g.ImageURL,
			Slug:     g.Slug,
		})
	}
	return items, nil
}

// Add appends gameID to the cart.
func (s *Service) Add(ctx context.Context, token string, gameID uuid.UUID) (string, error) {
	ids := s.codec.Decode(token)
	if slices.Contains(ids, gameID) {
		return "", errAlreadyInCart
	}

	game, err := s.store.FindByID(ctx, gameID)
	if err != nil {
		return "", err
	}
	if !game.Disponibility {
		return "", errGameNotFound
	}

	games, err := s.live(ctx, ids)
	if err != nil {
		return "", err
	}
	if len(games) >= MaxItems {
		return "", errCartFull
	}
	return s.codec.Encode(append(idsOf(games), gameID))
}

// Remove drops gameID from the cart.
func (s *Service) Remove(ctx context.Context, token string, gameID uuid.UUID) (string, error) {
	ids := s.codec.Decode(token)
	idx := slices.Index(ids, gameID)
	if idx < 0 {
		return "", errNotInCart
	}
	ids = slices.Delete(ids, idx, idx+1)

	games, err := s.live(ctx, ids)
	if err != nil {
		return "", err
	}
	return s.codec.Encode(idsOf(games))
}

// Sync re-issues the cart of a user who just signed in, without stale ids.
func (s *Service) Sync(ctx context.Context, token string, userID uuid.UUID) (string, error) {
	if userID == uuid.Nil {
		return "", errNoUser
	}
	games, err := s.live(ctx, s.codec.Decode(token))
	if err != nil {
		return "", err
	}
	return s.codec.Encode(idsOf(games))
}

// Buy records a purchase for every purchasable game of the cart. Games the
// user already owns are reported back by title. Each purchase is written on
// its own; a failure midway keeps the purchases made so far.
func (s *Service) Buy(ctx context.Context, token string, userID uuid.UUID) (BuyResult, error) {
	if userID == uuid.Nil {
		return BuyResult{}, errNoUser
	}

	games, err := s.live(ctx, s.codec.Decode(token))
	if err != nil {
		return BuyResult{}, err
	}

	result := BuyResult{NotAdded: []string{}}
	event := models.PurchaseCompleted{UserID: userID, PurchasedAt: s.now()}
	for _, g := range games {
		created, err := s.store.CreatePurchase(ctx, userID, g.ID, event.PurchasedAt)
		if err != nil {
			return BuyResult{}, err
		}
		if !created {
			result.NotAdded = append(result.NotAdded, g.Title)
			continue
		}
		event.GameIDs = append(event.GameIDs, g.ID)
		event.Total = event.Total.Add(g.Price)
	}

	if len(event.GameIDs) > 0 {
		s.afterPurchase(ctx, event)
	}
	return result, nil
}

func (s *Service) afterPurchase(ctx context.Context, event models.PurchaseCompleted) {
	utils.Log.WithFields(logrus.Fields{
		"user_id": event.UserID,
		"games":   len(event.GameIDs),
		"total":   event.Total.StringFixed(2),
	}).Info("Checkout completed")
	monitoring.PurchasesTotal.Add(float64(len(event.GameIDs)))

	if s.feeds != nil {
		s.feeds.InvalidateFeeds(ctx)
	}
	if s.notifier != nil {
		if err := s.notifier.PublishPurchaseCompleted(ctx, event); err != nil {
			utils.Log.WithError(err).WithField("user_id", event.UserID).Warn("Failed to publish purchase event")
		}
	}
}

// live resolves ids to the games that can still be bought, keeping order.
func (s *Service) live(ctx context.Context, ids []uuid.UUID) ([]models.Game, error) {
	games := make([]models.Game, 0, len(ids))
	for _, id := range ids {
		g, err := s.store.FindByID(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if g.Disponibility {
			games = append(games, g)
		}
	}
	return games, nil
}

func idsOf(games []models.Game) []uuid.UUID {
	ids := make([]uuid.UUID, len(games))
	for i, g := range games {
		ids[i] = g.ID
	}
	return ids
}
