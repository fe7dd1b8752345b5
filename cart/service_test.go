package cart

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/game-store-project/game-store/apperr"
	"github.com/game-store-project/game-store/catalog/catalogtest"
	"github.com/game-store-project/game-store/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) PublishPurchaseCompleted(ctx context.Context, event models.PurchaseCompleted) error {
	return m.Called(ctx, event).Error(0)
}

type countingFeeds struct{ calls int }

func (c *countingFeeds) InvalidateFeeds(context.Context) { c.calls++ }

type harness struct {
	store   *catalogtest.Store
	codec   *Codec
	service *Service
}

func newHarness(opts ...Option) *harness {
	store := catalogtest.New()
	codec := NewCodec(testSecret, time.Hour)
	return &harness{store: store, codec: codec, service: NewService(store, codec, opts...)}
}

func (h *harness) game(title string, available bool) models.Game {
	return h.store.AddGame(models.Game{
		Title:         title,
		Year:          2021,
		Price:         decimal.RequireFromString("19.99"),
		Disponibility: available,
	})
}

func (h *harness) token(t *testing.T, ids ...uuid.UUID) string {
	t.Helper()
	token, err := h.codec.Encode(ids)
	require.NoError(t, err)
	return token
}

func TestAddAppendsInOrder(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	a, b := h.game("Ori", true), h.game("Cuphead", true)

	token, err := h.service.Add(ctx, "", a.ID)
	require.NoError(t, err)
	token, err = h.service.Add(ctx, token, b.ID)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, h.codec.Decode(token))
}

func TestAddTwiceConflictsAndKeepsCart(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	a := h.game("Ori", true)
	token := h.token(t, a.ID)

	newToken, err := h.service.Add(ctx, token, a.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "Item is already on the cart", apperr.Message(err))
	assert.Empty(t, newToken)
	assert.Equal(t, []uuid.UUID{a.ID}, h.codec.Decode(token))
}

func TestAddUnknownOrUnavailable(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	hidden := h.game("Unreleased", false)

	_, err := h.service.Add(ctx, "", uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = h.service.Add(ctx, "", hidden.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAddPurgesStaleIds(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	a, gone := h.game("Ori", true), h.game("Delisted", false)
	b := h.game("Cuphead", true)

	token, err := h.service.Add(ctx, h.token(t, a.ID, gone.ID, uuid.New()), b.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, h.codec.Decode(token))
}

func TestAddStopsAtMaxItems(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	ids := make([]uuid.UUID, 0, MaxItems)
	for i := 0; i < MaxItems; i++ {
		ids = append(ids, h.game("Game "+strconv.Itoa(i), true).ID)
	}
	full := h.token(t, ids...)
	assert.Less(t, len(full), 4096)

	extra := h.game("One Too Many", true)
	token, err := h.service.Add(ctx, full, extra.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	assert.Equal(t, "Cart is full", apperr.Message(err))
	assert.Empty(t, token)

	token, err = h.service.Remove(ctx, full, ids[0])
	require.NoError(t, err)
	token, err = h.service.Add(ctx, token, extra.ID)
	require.NoError(t, err)
	assert.Len(t, h.codec.Decode(token), MaxItems)
}

func TestRemove(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	a, b := h.game("Ori", true), h.game("Cuphead", true)
	token := h.token(t, a.ID, b.ID)

	newToken, err := h.service.Remove(ctx, token, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID}, h.codec.Decode(newToken))

	emptied, err := h.service.Remove(ctx, newToken, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "", emptied)
}

func TestRemoveAbsentIsNotFound(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	a := h.game("Ori", true)
	token := h.token(t, a.ID)

	_, err := h.service.Remove(ctx, token, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, []uuid.UUID{a.ID}, h.codec.Decode(token))

	_, err = h.service.Remove(ctx, "", a.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestViewDropsStaleIds(t *testing.T) {
	h := newHarness()
	a, hidden := h.game("Ori", true), h.game("Hidden", false)

	items, err := h.service.View(context.Background(), h.token(t, uuid.New(), hidden.ID, a.ID))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, a.ID, items[0].ID)
	assert.Equal(t, "ori", items[0].Slug)
	assert.True(t, decimal.RequireFromString("19.99").Equal(items[0].Price))
}

func TestViewOfGarbageTokenIsEmpty(t *testing.T) {
	h := newHarness()
	items, err := h.service.View(context.Background(), "not-a-token")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSyncRequiresUserAndPurges(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	a := h.game("Ori", true)
	token := h.token(t, uuid.New(), a.ID)

	_, err := h.service.Sync(ctx, token, uuid.Nil)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	synced, err := h.service.Sync(ctx, token, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID}, h.codec.Decode(synced))
}

func TestBuyReportsOwnedTitles(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	feeds := &countingFeeds{}
	notifier := &mockNotifier{}
	h := newHarness(WithClock(func() time.Time { return at }), WithFeedInvalidator(feeds), WithNotifier(notifier))
	ctx := context.Background()

	user := uuid.New()
	gameA, gameB := h.game("Game A", true), h.game("Game B", true)
	h.store.AddPurchase(user, gameA.ID, at.Add(-24*time.Hour))

	notifier.On("PublishPurchaseCompleted", ctx, mock.MatchedBy(func(e models.PurchaseCompleted) bool {
		return e.UserID == user &&
			len(e.GameIDs) == 1 && e.GameIDs[0] == gameB.ID &&
			e.Total.Equal(gameB.Price) &&
			e.PurchasedAt.Equal(at)
	})).Return(nil).Once()

	result, err := h.service.Buy(ctx, h.token(t, gameA.ID, gameB.ID), user)
	require.NoError(t, err)
	assert.Equal(t, []string{"Game A"}, result.NotAdded)

	purchases := h.store.Purchases()
	require.Len(t, purchases, 2)
	assert.Equal(t, gameB.ID, purchases[1].GameID)
	assert.Equal(t, at, purchases[1].PurchaseDate)
	assert.Equal(t, 1, feeds.calls)
	notifier.AssertExpectations(t)
}

func TestBuySkipsUnavailableSilently(t *testing.T) {
	feeds := &countingFeeds{}
	h := newHarness(WithFeedInvalidator(feeds))
	hidden := h.game("Hidden", false)

	result, err := h.service.Buy(context.Background(), h.token(t, hidden.ID, uuid.New()), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, result.NotAdded)
	assert.NotNil(t, result.NotAdded)
	assert.Empty(t, h.store.Purchases())
	assert.Zero(t, feeds.calls, "no purchase, nothing to invalidate")
}

func TestBuyWithoutUser(t *testing.T) {
	h := newHarness()
	_, err := h.service.Buy(context.Background(), "", uuid.Nil)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestBuyNotifierFailureIsNotFatal(t *testing.T) {
	notifier := &mockNotifier{}
	h := newHarness(WithNotifier(notifier))
	ctx := context.Background()
	game := h.game("Ori", true)

	notifier.On("PublishPurchaseCompleted", ctx, mock.Anything).Return(errors.New("broker down"))

	result, err := h.service.Buy(ctx, h.token(t, game.ID), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, result.NotAdded)
	assert.Len(t, h.store.Purchases(), 1)
}

func TestStoreFailureSurfaces(t *testing.T) {
	h := newHarness()
	game := h.game("Ori", true)
	token := h.token(t, game.ID)
	h.store.Err = apperr.Internal(errors.New("db down"))

	_, err := h.service.View(context.Background(), token)
	assert.ErrorIs(t, err, apperr.ErrInternal)

	_, err = h.service.Buy(context.Background(), token, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrInternal)
}
