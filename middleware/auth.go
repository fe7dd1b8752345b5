package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/game-store-project/game-store/apperr"
	"github.com/game-store-project/game-store/auth"
	"github.com/game-store-project/game-store/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CtxUserIDKey = "user_id" // uuid.UUID
	CtxUserKey   = "user"    // models.User, admin routes only
)

type TokenVerifier interface {
	Verify(token string) (uuid.UUID, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

// RequireUser rejects requests without a valid bearer token and stores the
// user id in the context.
func RequireUser(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := authenticate(c, tokens)
		if !ok {
			abortUnauthorized(c)
			return
		}
		c.Set(CtxUserIDKey, userID)
		c.Next()
	}
}

// RequireAdmin also loads the user and checks the admin flag, so revoked
// rights take effect before the token expires.
func RequireAdmin(tokens TokenVerifier, users UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := authenticate(c, tokens)
		if !ok {
			abortUnauthorized(c)
			return
		}

		user, err := users.FindByID(c.Request.Context(), userID)
		if errors.Is(err, apperr.ErrNotFound) {
			abortUnauthorized(c)
			return
		}
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if !user.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(CtxUserIDKey, userID)
		c.Set(CtxUserKey, user)
		c.Next()
	}
}

// CurrentUserID returns the authenticated user id, or uuid.Nil.
func CurrentUserID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(CtxUserIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

func authenticate(c *gin.Context, tokens TokenVerifier) (uuid.UUID, bool) {
	raw, ok := auth.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		return uuid.Nil, false
	}
	userID, err := tokens.Verify(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
}
