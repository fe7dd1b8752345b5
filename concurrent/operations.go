package concurrent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/game-store-project/game-store/apperr"
	"github.com/game-store-project/game-store/models"
	"github.com/game-store-project/game-store/ranking"

	"github.com/google/uuid"
)

/*
1. FetchHomeFeeds - the four homepage feeds are independent reads and run
   side by side.

2. FetchAccount - the profile and the game library of a user are loaded
   together.

Both give up as a whole on the first error or when the timeout expires.
*/

// HomeFeedSize is the length of each homepage feed except highlights.
const HomeFeedSize = 6

// ==================== 1. HOME FEEDS ====================

type FeedSource interface {
	Highlights(ctx context.Context) ([]models.Game, error)
	NewReleases(ctx context.Context, opts ranking.Options) ([]models.Game, error)
	Recommended(ctx context.Context, opts ranking.Options) ([]models.Game, error)
	BestSellers(ctx context.Context, opts ranking.Options) ([]models.Game, error)
}

type HomeFeeds struct {
	Highlights  []models.Game `json:"highlights"`
	NewReleases []models.Game `json:"newReleases"`
	Recommended []models.Game `json:"recommended"`
	BestSellers []models.Game `json:"bestSellers"`
}

// FetchHomeFeeds loads the homepage in parallel.
func FetchHomeFeeds(ctx context.Context, src FeedSource, timeout time.Duration) (*HomeFeeds, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	feeds := &HomeFeeds{}
	opts := ranking.Options{Max: HomeFeedSize}
	var wg sync.WaitGroup
	errChan := make(chan error, 4)

	load := func(dst *[]models.Game, fetch func() ([]models.Game, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			games, err := fetch()
			if err != nil {
				errChan <- err
				return
			}
			*dst = games
		}()
	}

	load(&feeds.Highlights, func() ([]models.Game, error) { return src.Highlights(ctx) })
	load(&feeds.NewReleases, func() ([]models.Game, error) { return src.NewReleases(ctx, opts) })
	load(&feeds.Recommended, func() ([]models.Game, error) { return src.Recommended(ctx, opts) })
	load(&feeds.BestSellers, func() ([]models.Game, error) { return src.BestSellers(ctx, opts) })

	if err := wait(ctx, &wg, errChan); err != nil {
		return nil, err
	}
	return feeds, nil
}

// ==================== 2. ACCOUNT OVERVIEW ====================

type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

type LibraryLister interface {
	ListOwnedGames(ctx context.Context, userID uuid.UUID) ([]models.Game, error)
}

type Account struct {
	User  models.User   `json:"user"`
	Games []models.Game `json:"games"`
}

// FetchAccount loads a user together with the games they own.
func FetchAccount(ctx context.Context, users UserFinder, library LibraryLister, userID uuid.UUID, timeout time.Duration) (*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	account := &Account{}
	var wg sync.WaitGroup
	errChan := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		user, err := users.FindByID(ctx, userID)
		if err != nil {
			errChan <- err
			return
		}
		account.User = user
	}()
	go func() {
		defer wg.Done()
		games, err := library.ListOwnedGames(ctx, userID)
		if err != nil {
			errChan <- err
			return
		}
		account.Games = games
	}()

	if err := wait(ctx, &wg, errChan); err != nil {
		return nil, err
	}
	return account, nil
}

// wait blocks until every goroutine of wg is done or ctx expires, and
// returns the first error sent on errChan.
func wait(ctx context.Context, wg *sync.WaitGroup, errChan chan error) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
		close(errChan)
	}()

	select {
	case <-done:
		if ctx.Err() != nil {
			return timeoutError(ctx)
		}
		for err := range errChan {
			if err != nil {
				return err
			}
		}
		return nil
	case <-ctx.Done():
		return timeoutError(ctx)
	}
}

func timeoutError(ctx context.Context) error {
	return apperr.Internal(fmt.Errorf("timeout loading data: %w", ctx.Err()))
}
