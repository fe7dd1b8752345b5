package handlers

import (
	"net/http"
	"time"

	"github.com/game-store-project/game-store/cart"
	"github.com/game-store-project/game-store/middleware"
	"github.com/game-store-project/game-store/monitoring"

	"github.com/gin-gonic/gin"
)

// CartCookie describes the cookie mirroring the cart token.
type CartCookie struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

type CartHandler struct {
	carts  *cart.Service
	cookie CartCookie
}

func NewCartHandler(carts *cart.Service, cookie CartCookie) *CartHandler {
	return &CartHandler{carts: carts, cookie: cookie}
}

// View - GET /cart
func (h *CartHandler) View(c *gin.Context) {
	items, err := h.carts.View(c.Request.Context(), h.token(c))
	if err != nil {
		h.fail(c, "view", err)
		return
	}
	monitoring.CartOperations.WithLabelValues("view", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"cartItems": items})
}

// Sync - POST /cart/sync
func (h *CartHandler) Sync(c *gin.Context) {
	token, err := h.carts.Sync(c.Request.Context(), h.token(c), middleware.CurrentUserID(c))
	if err != nil {
		h.fail(c, "sync", err)
		return
	}
	h.respondToken(c, "sync", token)
}

// Add - PUT /cart/:id
func (h *CartHandler) Add(c *gin.Context) {
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}
	token, err := h.carts.Add(c.Request.Context(), h.token(c), gameID)
	if err != nil {
		h.fail(c, "add", err)
		return
	}
	h.respondToken(c, "add", token)
}

// Remove - DELETE /cart/:id
func (h *CartHandler) Remove(c *gin.Context) {
	gameID, ok := pathID(c, "id")
	if !ok {
		return
	}
	token, err := h.carts.Remove(c.Request.Context(), h.token(c), gameID)
	if err != nil {
		h.fail(c, "remove", err)
		return
	}
	h.respondToken(c, "remove", token)
}

// Buy - POST /cart/buy. The cart cookie is cleared once the checkout went through.
func (h *CartHandler) Buy(c *gin.Context) {
	result, err := h.carts.Buy(c.Request.Context(), h.token(c), middleware.CurrentUserID(c))
	if err != nil {
		h.fail(c, "buy", err)
		return
	}
	monitoring.CartOperations.WithLabelValues("buy", "ok").Inc()
	h.setCookie(c, "")
	c.JSON(http.StatusOK, result)
}

// token reads the cart from the header, falling back to the cookie.
func (h *CartHandler) token(c *gin.Context) string {
	if token := c.GetHeader(h.cookie.Name); token != "" {
		return token
	}
	if token, err := c.Cookie(h.cookie.Name); err == nil {
		return token
	}
	return ""
}

func (h *CartHandler) respondToken(c *gin.Context, op, token string) {
	monitoring.CartOperations.WithLabelValues(op, "ok").Inc()
	h.setCookie(c, token)
	c.JSON(http.StatusOK, gin.H{"cartItems": token})
}

// setCookie stores token, or expires the cookie when the cart is empty.
func (h *CartHandler) setCookie(c *gin.Context, token string) {
	maxAge := int(h.cookie.MaxAge.Seconds())
	if token == "" {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, maxAge, "/", "", h.cookie.Secure, true)
}

func (h *CartHandler) fail(c *gin.Context, op string, err error) {
	monitoring.CartOperations.WithLabelValues(op, "error").Inc()
	writeError(c, err)
}
