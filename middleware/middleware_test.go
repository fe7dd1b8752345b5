package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/game-store-project/game-store/apperr"
	"github.com/game-store-project/game-store/cache"
	"github.com/game-store-project/game-store/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeTokens map[string]uuid.UUID

func (f fakeTokens) Verify(token string) (uuid.UUID, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return uuid.Nil, errors.New("bad token")
}

type fakeUsers map[uuid.UUID]models.User

func (f fakeUsers) FindByID(_ context.Context, id uuid.UUID) (models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return models.User{}, apperr.NotFound("Resource not found")
}

func serve(r *gin.Engine, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireUser(t *testing.T) {
	id := uuid.New()
	r := gin.New()
	r.GET("/me", RequireUser(fakeTokens{"good": id}), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUserID(c).String())
	})

	w := serve(r, http.MethodGet, "/me", "good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id.String(), w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "forged").Code)
}

func TestRequireAdmin(t *testing.T) {
	admin, regular, ghost := uuid.New(), uuid.New(), uuid.New()
	tokens := fakeTokens{"admin": admin, "regular": regular, "ghost": ghost}
	users := fakeUsers{
		admin:   {ID: admin, IsAdmin: true},
		regular: {ID: regular},
	}

	r := gin.New()
	r.GET("/admin", RequireAdmin(tokens, users), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/admin", "admin").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin", "regular").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/admin", "ghost").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/admin", "").Code)
}

type countingLimiter struct {
	counts map[string]int
	err    error
}

func (l *countingLimiter) Allow(_ context.Context, key string, max int, window time.Duration) (cache.RateLimitResult, error) {
	if l.err != nil {
		return cache.RateLimitResult{}, l.err
	}
	l.counts[key]++
	if l.counts[key] > max {
		return cache.RateLimitResult{Allowed: false, RetryAfter: window}, nil
	}
	return cache.RateLimitResult{Allowed: true, Remaining: max - l.counts[key]}, nil
}

func TestRateLimit(t *testing.T) {
	limiter := &countingLimiter{counts: map[string]int{}}
	r := gin.New()
	r.POST("/users/signin", RateLimit(limiter, "signin", 2, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/users/signin", "").Code)
	w := serve(r, http.MethodPost, "/users/signin", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = serve(r, http.MethodPost, "/users/signin", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRateLimitFailsOpen(t *testing.T) {
	limiter := &countingLimiter{err: errors.New("redis down")}
	r := gin.New()
	r.POST("/cart/buy", RateLimit(limiter, "buy", 1, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/cart/buy", "").Code)
	}
}

func TestRequestTimeoutSetsDeadline(t *testing.T) {
	r := gin.New()
	r.Use(RequestTimeout(time.Second))
	r.GET("/", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		assert.True(t, ok)
		c.Status(http.StatusOK)
	})
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", "").Code)
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/", "")
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}
