package handlers

import (
	"time"

	"github.com/game-store-project/game-store/middleware"
	"github.com/game-store-project/game-store/monitoring"

	"github.com/gin-gonic/gin"
)

// Routes groups everything RegisterRoutes needs.
type Routes struct {
	Home   *HomeHandler
	Games  *GameHandler
	Cart   *CartHandler
	Users  *UserHandler
	Genres *GenreHandler
	Health *HealthHandler

	Tokens  middleware.TokenVerifier
	Admins  middleware.UserFinder
	Limiter middleware.RateLimiter

	RateLimitMax    int
	RateLimitWindow time.Duration
}

func RegisterRoutes(r *gin.Engine, rt Routes) {
	user := middleware.RequireUser(rt.Tokens)
	admin := middleware.RequireAdmin(rt.Tokens, rt.Admins)
	limit := func(scope string) gin.HandlerFunc {
		return middleware.RateLimit(rt.Limiter, scope, rt.RateLimitMax, rt.RateLimitWindow)
	}

	r.GET("/health", rt.Health.Health)
	r.GET("/metrics", monitoring.PrometheusHandler())

	r.GET("/index", rt.Home.Index)

	games := r.Group("/games")
	{
		games.GET("/search", rt.Games.Search)
		games.GET("/:slug", rt.Games.GetBySlug)
		games.GET("", admin, rt.Games.List)
		games.GET("/:slug/full", admin, rt.Games.GetFull)
		games.POST("", admin, rt.Games.Create)
		games.PUT("/:id", admin, rt.Games.Update)
		games.DELETE("/:id", admin, rt.Games.Delete)
	}

	cart := r.Group("/cart")
	{
		cart.GET("", rt.Cart.View)
		cart.POST("/sync", user, rt.Cart.Sync)
		cart.POST("/buy", limit("buy"), user, rt.Cart.Buy)
		cart.PUT("/:id", rt.Cart.Add)
		cart.DELETE("/:id", rt.Cart.Remove)
	}

	users := r.Group("/users")
	{
		users.POST("/signup", rt.Users.SignUp)
		users.POST("/signin", limit("signin"), rt.Users.SignIn)
		users.GET("/account", user, rt.Users.Account)
		users.PATCH("/account", user, rt.Users.UpdateAccount)
		users.DELETE("/account", user, rt.Users.DeleteAccount)
		users.GET("", admin, rt.Users.List)
		users.PATCH("/:id", admin, rt.Users.SetAdmin)
	}

	genres := r.Group("/genres")
	{
		genres.GET("", rt.Genres.List)
		genres.POST("", admin, rt.Genres.Create)
		genres.PUT("/:id", admin, rt.Genres.Update)
		genres.DELETE("/:id", admin, rt.Genres.Delete)
	}
}
