package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/game-store-project/game-store/accounts"
	"github.com/game-store-project/game-store/auth"
	"github.com/game-store-project/game-store/broker"
	"github.com/game-store-project/game-store/cache"
	"github.com/game-store-project/game-store/cart"
	"github.com/game-store-project/game-store/catalog"
	"github.com/game-store-project/game-store/config"
	"github.com/game-store-project/game-store/db"
	"github.com/game-store-project/game-store/genres"
	"github.com/game-store-project/game-store/handlers"
	"github.com/game-store-project/game-store/middleware"
	"github.com/game-store-project/game-store/monitoring"
	"github.com/game-store-project/game-store/ranking"
	"github.com/game-store-project/game-store/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	utils.InitLogger(cfg.Log.Level, cfg.Log.File, cfg.IsRelease())
	if cfg.Auth.DevSecret {
		utils.Log.Warn("JWT_SECRET is not set, using the development secret")
	}

	decimal.MarshalJSONWithoutQuotes = true
	if cfg.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	}

	database, err := db.InitDB(cfg.Database.URL)
	if err != nil {
		utils.Log.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close(database)

	var redisCache *cache.Cache
	if cfg.Redis.Addr != "" {
		redisCache, err = cache.New(cfg.Redis, cfg.Feeds.CacheTTL)
		if err != nil {
			utils.Log.WithError(err).Warn("Redis unavailable, running without cache")
			redisCache = nil
		} else {
			defer redisCache.Close()
		}
	}

	monitoring.InitMetrics()

	games := catalog.NewGormStore(database)

	var engineOpts []ranking.Option
	if redisCache != nil {
		engineOpts = append(engineOpts, ranking.WithCache(redisCache))
	}
	engine := ranking.NewEngine(games, engineOpts...)

	cartOpts := []cart.Option{cart.WithFeedInvalidator(engine)}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicPurchases)
		defer producer.Close()
		cartOpts = append(cartOpts, cart.WithNotifier(broker.NewEventPublisher(producer)))
		utils.Log.WithFields(logrus.Fields{
			"brokers": cfg.Kafka.Brokers,
			"topic":   cfg.Kafka.TopicPurchases,
		}).Info("Purchase events enabled")
	}
	carts := cart.NewService(games, cart.NewCodec(cfg.Cart.Secret, cfg.Cart.TokenTTL), cartOpts...)

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	accountSvc := accounts.NewService(accounts.NewGormStore(database), issuer, accounts.WithFeedInvalidator(engine))

	var genreCache genres.Cache
	if redisCache != nil {
		genreCache = redisCache
	}
	genreSvc := genres.NewService(genres.NewGormStore(database), genreCache)

	healthChecks := map[string]handlers.Pinger{
		"database": handlers.PingFunc(func(ctx context.Context) error { return db.Ping(ctx, database) }),
	}
	if redisCache != nil {
		healthChecks["redis"] = redisCache
	}

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", cfg.Cart.TokenName},
		ExposeHeaders:    []string{"Content-Length", cfg.Cart.TokenName, "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorLogger())
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RemovePoweredBy())
	r.Use(monitoring.PrometheusMiddleware())
	r.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	handlers.RegisterRoutes(r, handlers.Routes{
		Home:  handlers.NewHomeHandler(engine, cfg.Server.RequestTimeout),
		Games: handlers.NewGameHandler(games, engine),
		Cart: handlers.NewCartHandler(carts, handlers.CartCookie{
			Name:   cfg.Cart.TokenName,
			MaxAge: cfg.Cart.TokenTTL,
			Secure: cfg.Server.UseHTTPS,
		}),
		Users:  handlers.NewUserHandler(accountSvc, games, cfg.Server.RequestTimeout),
		Genres: handlers.NewGenreHandler(genreSvc),
		Health: handlers.NewHealthHandler(healthChecks),

		Tokens:          issuer,
		Admins:          accountSvc,
		Limiter:         redisCache,
		RateLimitMax:    cfg.Server.RateLimitMax,
		RateLimitWindow: cfg.Server.RateLimitWindow,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	useTLS := cfg.Server.UseHTTPS && cfg.Server.TLSCertFile != "" && cfg.Server.TLSKeyFile != ""
	if useTLS {
		server.TLSConfig = &tls.Config{
			MinVersion:       tls.VersionTLS12,
			CurvePreferences: []tls.CurveID{tls.CurveP521, tls.CurveP384, tls.CurveP256},
			CipherSuites: []uint16{
				tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			},
		}
	}

	go func() {
		var err error
		if useTLS {
			utils.Log.WithFields(logrus.Fields{
				"port": cfg.Server.Port,
				"cert": cfg.Server.TLSCertFile,
			}).Info("Starting server with HTTPS")
			err = server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			utils.Log.WithField("port", cfg.Server.Port).Info("Starting server with HTTP")
			if cfg.IsRelease() {
				utils.Log.Warn("Running without HTTPS. Set USE_HTTPS=true for production")
			}
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.Log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		utils.Log.WithError(err).Error("Server forced to shutdown")
	}
}
