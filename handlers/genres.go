package handlers

import (
	"net/http"

	"github.com/game-store-project/game-store/genres"
	"github.com/game-store-project/game-store/models"

	"github.com/gin-gonic/gin"
)

type GenreHandler struct {
	genres *genres.Service
}

func NewGenreHandler(svc *genres.Service) *GenreHandler {
	return &GenreHandler{genres: svc}
}

// List - GET /genres
func (h *GenreHandler) List(c *gin.Context) {
	list, err := h.genres.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"genres": list})
}

// Create - POST /genres (admin)
func (h *GenreHandler) Create(c *gin.Context) {
	var input models.GenreInput
	if !bindJSON(c, &input) {
		return
	}
	genre, err := h.genres.Create(c.Request.Context(), input.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"genre": genre})
}

// Update - PUT /genres/:id (admin)
func (h *GenreHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input models.GenreInput
	if !bindJSON(c, &input) {
		return
	}
	genre, err := h.genres.Rename(c.Request.Context(), id, input.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"genre": genre})
}

// Delete - DELETE /genres/:id (admin)
func (h *GenreHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.genres.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"info": "Genre deleted"})
}
