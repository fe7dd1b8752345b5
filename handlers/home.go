package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/game-store-project/game-store/concurrent"

	"github.com/gin-gonic/gin"
)

type HomeHandler struct {
	feeds   concurrent.FeedSource
	timeout time.Duration
}

func NewHomeHandler(feeds concurrent.FeedSource, timeout time.Duration) *HomeHandler {
	return &HomeHandler{feeds: feeds, timeout: timeout}
}

// Index - GET /index
func (h *HomeHandler) Index(c *gin.Context) {
	start := time.Now()
	feeds, err := concurrent.FetchHomeFeeds(c.Request.Context(), h.feeds, h.timeout)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("X-Fetch-Time-Ms", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
	c.JSON(http.StatusOK, feeds)
}
