// Package ranking builds the storefront feeds out of the catalog primitives.
package ranking

import (
	"context"
	"math/rand/v2"

	"github.com/game-store-project/game-store/catalog"
	"github.com/game-store-project/game-store/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// HighlightsSize is both the per-feed cap and the size of the highlights list.
const HighlightsSize = 4

// Search filters understood by Engine.Search.
const (
	FilterNewReleases = "new-releases"
	FilterRecommended = "recommended"
	FilterBestSellers = "best-sellers"
)

// Options bound a feed. Zero Max means unlimited, empty Search means unfiltered.
type Options struct {
	Max    int
	Search string
}

// Shuffler permutes n elements through swap. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type globalShuffler struct{}

// math/rand/v2 top-level functions are safe for concurrent use.
func (globalShuffler) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// FeedCache stores computed feeds. Implementations must treat every failure
// as a miss.
type FeedCache interface {
	GetFeed(ctx context.Context, feed string, opts Options) ([]models.Game, bool)
	SetFeed(ctx context.Context, feed string, opts Options, games []models.Game)
	InvalidateFeeds(ctx context.Context)
}

type Engine struct {
	store    catalog.Store
	shuffler Shuffler
	cache    FeedCache
}

type Option func(*Engine)

func WithShuffler(s Shuffler) Option {
	return func(e *Engine) { e.shuffler = s }
}

// WithCache enables feed caching. A nil cache leaves it disabled.
func WithCache(c FeedCache) Option {
	return func(e *Engine) { e.cache = c }
}

func NewEngine(store catalog.Store, opts ...Option) *Engine {
	e := &Engine{store: store, shuffler: globalShuffler{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewReleases returns available games, most recently added first.
func (e *Engine) NewReleases(ctx context.Context, opts Options) ([]models.Game, error) {
	return e.cached(ctx, FilterNewReleases, opts, func() ([]models.Game, error) {
		return e.store.ListRecentlyAdded(ctx, catalog.Query{Limit: opts.Max, Title: opts.Search})
	})
}

// Recommended returns the most recently purchased games, one entry per game.
// Twice the requested amount of purchases is read so that repeated buys of
// the same game still leave enough distinct entries.
func (e *Engine) Recommended(ctx context.Context, opts Options) ([]models.Game, error) {
	return e.cached(ctx, FilterRecommended, opts, func() ([]models.Game, error) {
		limit := 0
		if opts.Max > 0 {
			limit = opts.Max * 2
		}
		history, err := e.store.ListPurchaseHistory(ctx, catalog.Query{Limit: limit, Title: opts.Search})
		if err != nil {
			return nil, err
		}

		set := newOrderedSet(len(history))
		for _, purchase := range history {
			if purchase.Game == nil {
				continue
			}
			set.add(*purchase.Game)
		}
		return set.first(opts.Max), nil
	})
}

// BestSellers returns available games ordered by number of purchases.
func (e *Engine) BestSellers(ctx context.Context, opts Options) ([]models.Game, error) {
	return e.cached(ctx, FilterBestSellers, opts, func() ([]models.Game, error) {
		return e.store.ListByPopularity(ctx, catalog.Query{Limit: opts.Max, Title: opts.Search})
	})
}

// Highlights picks up to four distinct games out of the three feeds.
func (e *Engine) Highlights(ctx context.Context) ([]models.Game, error) {
	var newReleases, recommended, bestSellers []models.Game
	opts := Options{Max: HighlightsSize}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		newReleases, err = e.NewReleases(gctx, opts)
		return err
	})
	g.Go(func() (err error) {
		recommended, err = e.Recommended(gctx, opts)
		return err
	})
	g.Go(func() (err error) {
		bestSellers, err = e.BestSellers(gctx, opts)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := newOrderedSet(3 * HighlightsSize)
	for _, feed := range [][]models.Game{newReleases, recommended, bestSellers} {
		for _, game := range feed {
			set.add(game)
		}
	}

	merged := set.items
	e.shuffler.Shuffle(len(merged), func(i, j int) {
		merged[i], merged[j] = merged[j], merged[i]
	})
	return set.first(HighlightsSize), nil
}

// Search serves /games/search. Known filters return the whole matching feed,
// anything else falls back to the title search over available games.
func (e *Engine) Search(ctx context.Context, filter, search string) ([]models.Game, error) {
	opts := Options{Search: search}
	switch filter {
	case FilterNewReleases:
		return e.NewReleases(ctx, opts)
	case FilterRecommended:
		return e.Recommended(ctx, opts)
	case FilterBestSellers:
		return e.BestSellers(ctx, opts)
	default:
		return e.store.ListAvailable(ctx, search)
	}
}

// InvalidateFeeds drops every cached feed.
func (e *Engine) InvalidateFeeds(ctx context.Context) {
	if e.cache != nil {
		e.cache.InvalidateFeeds(ctx)
	}
}

func (e *Engine) cached(ctx context.Context, feed string, opts Options, load func() ([]models.Game, error)) ([]models.Game, error) {
	if e.cache != nil {
		if games, ok := e.cache.GetFeed(ctx, feed, opts); ok {
			return games, nil
		}
	}
	games, err := load()
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.SetFeed(ctx, feed, opts, games)
	}
	return games, nil
}

// orderedSet keeps the first occurrence of every game id, in insertion order.
type orderedSet struct {
	items []models.Game
	seen  map[uuid.UUID]struct{}
}

func newOrderedSet(capacity int) *orderedSet {
	return &orderedSet{
		items: make([]models.Game, 0, capacity),
		seen:  make(map[uuid.UUID]struct{}, capacity),
	}
}

func (s *orderedSet) add(g models.Game) {
	if _, ok := s.seen[g.ID]; ok {
		return
	}
	s.seen[g.ID] = struct{}{}
	s.items = append(s.items, g)
}

// first returns at most n items; n <= 0 returns all of them.
func (s *orderedSet) first(n int) []models.Game {
	if n > 0 && len(s.items) > n {
		return s.items[:n]
	}
	return s.items
}
