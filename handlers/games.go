package handlers

import (
	"context"
	"net/http"

	"github.com/game-store-project/game-store/catalog"
	"github.com/game-store-project/game-store/models"
	"github.com/game-store-project/game-store/ranking"
	"github.com/game-store-project/game-store/utils"

	"github.com/gin-gonic/gin"
)

type GameHandler struct {
	store  catalog.Store
	engine *ranking.Engine
}

func NewGameHandler(store catalog.Store, engine *ranking.Engine) *GameHandler {
	return &GameHandler{store: store, engine: engine}
}

// Search - GET /games/search?search=&filter=
func (h *GameHandler) Search(c *gin.Context) {
	games, err := h.engine.Search(c.Request.Context(), c.Query("filter"), c.Query("search"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

// GetBySlug - GET /games/:slug, listed games only
func (h *GameHandler) GetBySlug(c *gin.Context) {
	game, err := h.store.FindBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": game})
}

// List - GET /games (admin)
func (h *GameHandler) List(c *gin.Context) {
	games, err := h.store.ListAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

// GetFull - GET /games/:slug/full (admin). The segment holds the game id;
// it shares the wildcard name of the public route.
func (h *GameHandler) GetFull(c *gin.Context) {
	id, ok := pathID(c, "slug")
	if !ok {
		return
	}
	game, err := h.store.FindByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"game": game})
}

// Create - POST /games (admin)
func (h *GameHandler) Create(c *gin.Context) {
	var input models.GameInput
	if !bindJSON(c, &input) {
		return
	}

	game, err := h.store.Create(c.Request.Context(), input.ToGame())
	if err != nil {
		writeError(c, err)
		return
	}
	h.catalogChanged(c.Request.Context(), "created", game)
	c.JSON(http.StatusCreated, gin.H{"gameId": game.ID})
}

// Update - PUT /games/:id (admin)
func (h *GameHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input models.GameInput
	if !bindJSON(c, &input) {
		return
	}

	game, err := h.store.Update(c.Request.Context(), id, input.ToGame())
	if err != nil {
		writeError(c, err)
		return
	}
	h.catalogChanged(c.Request.Context(), "updated", game)
	c.JSON(http.StatusOK, gin.H{"game": game})
}

// Delete - DELETE /games/:id (admin)
func (h *GameHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	h.catalogChanged(c.Request.Context(), "deleted", models.Game{ID: id})
	c.JSON(http.StatusOK, gin.H{"info": "Game deleted"})
}

func (h *GameHandler) catalogChanged(ctx context.Context, action string, game models.Game) {
	h.engine.InvalidateFeeds(ctx)
	utils.Log.WithField("game_id", game.ID).Info("Game " + action + ", feed cache invalidated")
}
