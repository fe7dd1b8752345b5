// Package catalogtest provides an in-memory catalog.Store for tests.
package catalogtest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/game-store-project/game-store/apperr"
	"github.com/game-store-project/game-store/catalog"
	"github.com/game-store-project/game-store/models"

	"github.com/google/uuid"
)

// Store mimics the ordering rules of catalog.GormStore. Err, when set, is
// returned by every call.
type Store struct {
	mu        sync.Mutex
	games     map[uuid.UUID]models.Game
	purchases []models.UserGame

	Err error
	// Queries records the Query of every list call, keyed by method name.
	Queries map[string][]catalog.Query
}

var _ catalog.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		games:   map[uuid.UUID]models.Game{},
		Queries: map[string][]catalog.Query{},
	}
}

// AddGame inserts g as is, filling the id and slug when empty.
func (s *Store) AddGame(g models.Game) models.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.Slug == "" {
		g.Slug = catalog.Slugify(g.Title)
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	s.games[g.ID] = g
	return g
}

// AddPurchase appends a purchase record without any uniqueness check.
func (s *Store) AddPurchase(userID, gameID uuid.UUID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purchases = append(s.purchases, models.UserGame{UserID: userID, GameID: gameID, PurchaseDate: at})
}

// Purchases returns a copy of the recorded purchases.
func (s *Store) Purchases() []models.UserGame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.UserGame(nil), s.purchases...)
}

func (s *Store) record(method string, q catalog.Query) {
	s.Queries[method] = append(s.Queries[method], q)
}

func (s *Store) FindByID(_ context.Context, id uuid.UUID) (models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return models.Game{}, s.Err
	}
	g, ok := s.games[id]
	if !ok {
		return models.Game{}, apperr.NotFound("Content not found")
	}
	return g, nil
}

func (s *Store) FindBySlug(_ context.Context, slug string) (models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return models.Game{}, s.Err
	}
	for _, g := range s.games {
		if g.Slug == slug && g.Disponibility {
			return g, nil
		}
	}
	return models.Game{}, apperr.NotFound("Content not found")
}

func (s *Store) ListAll(context.Context) ([]models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := s.filter(func(models.Game) bool { return true })
	sortByTitle(out)
	return out, nil
}

func (s *Store) ListAvailable(_ context.Context, title string) ([]models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListAvailable", catalog.Query{Title: title})
	if s.Err != nil {
		return nil, s.Err
	}
	out := s.filter(func(g models.Game) bool { return g.Disponibility && matches(g.Title, title) })
	sortByTitle(out)
	return out, nil
}

func (s *Store) ListRecentlyAdded(_ context.Context, q catalog.Query) ([]models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListRecentlyAdded", q)
	if s.Err != nil {
		return nil, s.Err
	}
	out := s.filter(func(g models.Game) bool { return g.Disponibility && matches(g.Title, q.Title) })
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return limit(out, q.Limit), nil
}

func (s *Store) ListPurchaseHistory(_ context.Context, q catalog.Query) ([]models.UserGame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListPurchaseHistory", q)
	if s.Err != nil {
		return nil, s.Err
	}
	var out []models.UserGame
	for _, p := range s.purchases {
		g, ok := s.games[p.GameID]
		if !ok || !g.Disponibility || !matches(g.Title, q.Title) {
			continue
		}
		game := g
		p.Game = &game
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PurchaseDate.After(out[j].PurchaseDate)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) ListByPopularity(_ context.Context, q catalog.Query) ([]models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListByPopularity", q)
	if s.Err != nil {
		return nil, s.Err
	}
	counts := map[uuid.UUID]int64{}
	for _, p := range s.purchases {
		counts[p.GameID]++
	}
	out := s.filter(func(g models.Game) bool { return g.Disponibility && matches(g.Title, q.Title) })
	for i := range out {
		out[i].PurchaseCount = counts[out[i].ID]
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PurchaseCount != out[j].PurchaseCount {
			return out[i].PurchaseCount > out[j].PurchaseCount
		}
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return limit(out, q.Limit), nil
}

func (s *Store) ListOwnedGames(_ context.Context, userID uuid.UUID) ([]models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []models.Game
	for i := len(s.purchases) - 1; i >= 0; i-- {
		if p := s.purchases[i]; p.UserID == userID {
			out = append(out, s.games[p.GameID])
		}
	}
	return out, nil
}

func (s *Store) Create(_ context.Context, g models.Game) (models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return models.Game{}, s.Err
	}
	if s.titleTakenLocked(g.Title, uuid.Nil) {
		return models.Game{}, apperr.Conflict("Title already registered")
	}
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	g.Slug = s.slugLocked(g.Title, g.ID)
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	s.games[g.ID] = g
	return g, nil
}

func (s *Store) Update(_ context.Context, id uuid.UUID, g models.Game) (models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return models.Game{}, s.Err
	}
	existing, ok := s.games[id]
	if !ok {
		return models.Game{}, apperr.NotFound("Content not found")
	}
	if s.titleTakenLocked(g.Title, id) {
		return models.Game{}, apperr.Conflict("Title already registered")
	}
	g.ID = id
	g.Slug = s.slugLocked(g.Title, id)
	g.CreatedAt = existing.CreatedAt
	s.games[id] = g
	return g, nil
}

func (s *Store) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.games[id]; !ok {
		return apperr.NotFound("Content not found")
	}
	for _, p := range s.purchases {
		if p.GameID == id {
			return apperr.Conflict("Game bought by an user")
		}
	}
	delete(s.games, id)
	return nil
}

func (s *Store) CreatePurchase(_ context.Context, userID, gameID uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	for _, p := range s.purchases {
		if p.UserID == userID && p.GameID == gameID {
			return false, nil
		}
	}
	s.purchases = append(s.purchases, models.UserGame{UserID: userID, GameID: gameID, PurchaseDate: at})
	return true, nil
}

func (s *Store) slugLocked(title string, id uuid.UUID) string {
	slug, _ := catalog.UniqueSlug(title, id, func(slug string) (bool, error) {
		for other, g := range s.games {
			if other != id && g.Slug == slug {
				return true, nil
			}
		}
		return false, nil
	})
	return slug
}

func (s *Store) titleTakenLocked(title string, except uuid.UUID) bool {
	for id, g := range s.games {
		if id != except && strings.EqualFold(g.Title, title) {
			return true
		}
	}
	return false
}

func (s *Store) filter(keep func(models.Game) bool) []models.Game {
	out := []models.Game{}
	for _, g := range s.games {
		if keep(g) {
			out = append(out, g)
		}
	}
	return out
}

func matches(title, search string) bool {
	search = strings.TrimSpace(search)
	return search == "" || strings.Contains(strings.ToLower(title), strings.ToLower(search))
}

func sortByTitle(games []models.Game) {
	sort.Slice(games, func(i, j int) bool { return games[i].Title < games[j].Title })
}

func limit(games []models.Game, n int) []models.Game {
	if n > 0 && len(games) > n {
		return games[:n]
	}
	return games
}
