package catalog

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/game-store-project/game-store/apperr"
	"github.com/game-store-project/game-store/db"
	"github.com/game-store-project/game-store/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// openTestDB connects to TEST_DATABASE_URL and empties the catalog tables.
// The database is wiped, never point it at real data.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Integration test - requires TEST_DATABASE_URL")
	}

	conn, err := db.InitDB(dsn)
	require.NoError(t, err)
	require.NoError(t, conn.Exec("TRUNCATE user_games, games, genres, users CASCADE").Error)
	return conn
}

type fixture struct {
	store *GormStore
	conn  *gorm.DB
	genre models.Genre
}

func newFixture(t *testing.T) *fixture {
	conn := openTestDB(t)
	genre := models.Genre{Name: "Action"}
	require.NoError(t, conn.Create(&genre).Error)
	return &fixture{store: NewGormStore(conn), conn: conn, genre: genre}
}

func (f *fixture) game(t *testing.T, title string, available bool) models.Game {
	t.Helper()
	g, err := f.store.Create(context.Background(), models.Game{
		Title:         title,
		Year:          2020,
		Price:         decimal.RequireFromString("59.90"),
		ImageURL:      "https://img.example/" + title,
		Description:   "about " + title,
		Disponibility: available,
		GenreID:       f.genre.ID,
	})
	require.NoError(t, err)
	return g
}

func (f *fixture) user(t *testing.T, name string) models.User {
	t.Helper()
	u := models.User{Username: name, Email: name + "@example.com", Password: "x"}
	require.NoError(t, f.conn.Create(&u).Error)
	return u
}

func TestCreateDerivesSlugAndRejectsTitleCase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g := f.game(t, "Hollow Knight: Silksong", true)
	assert.Equal(t, "hollow-knight-silksong", g.Slug)

	_, err := f.store.Create(ctx, models.Game{Title: "HOLLOW knight: silksong", Year: 2020, GenreID: f.genre.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "Title already registered", apperr.Message(err))
}

func TestClashingSlugGetsIDSuffix(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.game(t, "Halo: Reach", true)
	second := f.game(t, "Halo Reach", true)
	assert.Equal(t, "halo-reach", first.Slug)
	assert.Equal(t, "halo-reach-"+second.ID.String()[:8], second.Slug)

	found, err := f.store.FindBySlug(ctx, "halo-reach")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	other := f.game(t, "Deja Vu", true)
	other.Title = "Déjà Vu"
	updated, err := f.store.Update(ctx, other.ID, other)
	require.NoError(t, err)
	assert.Equal(t, "deja-vu", updated.Slug, "a game keeps its own slug")

	renamed := first
	renamed.Title = "Halo  Reach!"
	updated, err = f.store.Update(ctx, second.ID, renamed)
	require.NoError(t, err)
	assert.Equal(t, "halo-reach-"+second.ID.String()[:8], updated.Slug)
}

func TestUpdateRecomputesSlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.game(t, "Celeste", true)

	g.Title = "Celeste Farewell"
	g.Disponibility = false
	updated, err := f.store.Update(ctx, g.ID, g)
	require.NoError(t, err)
	assert.Equal(t, "celeste-farewell", updated.Slug)
	assert.False(t, updated.Disponibility)

	_, err = f.store.FindBySlug(ctx, "celeste-farewell")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.store.Update(ctx, uuid.New(), g)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteBlockedByPurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g := f.game(t, "Hades", true)
	u := f.user(t, "buyer1")

	created, err := f.store.CreatePurchase(ctx, u.ID, g.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.store.CreatePurchase(ctx, u.ID, g.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, created, "second purchase of an owned game")

	err = f.store.Delete(ctx, g.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "Game bought by an user", apperr.Message(err))

	assert.ErrorIs(t, f.store.Delete(ctx, uuid.New()), apperr.ErrNotFound)

	free := f.game(t, "Inside", true)
	require.NoError(t, f.store.Delete(ctx, free.ID))
	_, err = f.store.FindByID(ctx, free.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListByPopularityTieOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	zelda := f.game(t, "Zelda", true)
	alpha := f.game(t, "Alpha", true)
	mid := f.game(t, "Mid", true)
	f.game(t, "Hidden", false)

	u1, u2 := f.user(t, "player1"), f.user(t, "player2")
	now := time.Now()
	for _, p := range []struct{ u, g uuid.UUID }{
		{u1.ID, zelda.ID}, {u2.ID, zelda.ID},
		{u1.ID, alpha.ID}, {u1.ID, mid.ID},
	} {
		_, err := f.store.CreatePurchase(ctx, p.u, p.g, now)
		require.NoError(t, err)
	}

	games, err := f.store.ListByPopularity(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, games, 3)
	assert.Equal(t, []string{"Zelda", "Alpha", "Mid"}, titles(games))
	assert.Equal(t, int64(2), games[0].PurchaseCount)

	games, err = f.store.ListByPopularity(ctx, Query{Limit: 1, Title: "MI"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mid"}, titles(games))
}

func TestListPurchaseHistoryNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.game(t, "A Short Hike", true)
	b := f.game(t, "Baba Is You", true)
	hidden := f.game(t, "Unlisted", false)
	u := f.user(t, "historian")

	base := time.Now().Add(-time.Hour)
	for i, g := range []models.Game{a, hidden, b} {
		_, err := f.store.CreatePurchase(ctx, u.ID, g.ID, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	history, err := f.store.ListPurchaseHistory(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, b.ID, history[0].GameID)
	require.NotNil(t, history[0].Game)
	assert.Equal(t, "Baba Is You", history[0].Game.Title)
	assert.Equal(t, a.ID, history[1].GameID)

	owned, err := f.store.ListOwnedGames(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, owned, 3)
}

func TestListAvailableEscapesWildcards(t *testing.T) {
	f := newFixture(t)
	f.game(t, "100% Orange Juice", true)
	f.game(t, "Outer Wilds", true)

	games, err := f.store.ListAvailable(context.Background(), "%")
	require.NoError(t, err)
	assert.Equal(t, []string{"100% Orange Juice"}, titles(games))
}

func titles(games []models.Game) []string {
	out := make([]string, len(games))
	for i, g := range games {
		out[i] = g.Title
	}
	return out
}
