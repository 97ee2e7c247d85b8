package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"venue_pos_backend/internal/config"
	"venue_pos_backend/internal/database"
	"venue_pos_backend/internal/repositories"
	"venue_pos_backend/internal/repositories/memory"
	"venue_pos_backend/internal/router"
	"venue_pos_backend/internal/services"
	"venue_pos_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	utils.InitLogger(cfg.Log.Level, cfg.Log.Pretty)
	utils.ConfigureTokens(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.JWTExpirationHours)*time.Hour)
	if cfg.Auth.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is not set, using the built-in development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repos repositories.Set
	switch cfg.Database.Driver {
	case config.StorageMemory:
		repos = memory.New().Set()
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
	case config.StoragePostgres:
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Database initialization failed")
		}
		defer db.Close()
		repos = repositories.NewPostgresSet(db)
	default:
		log.Fatal().Str("driver", cfg.Database.Driver).Msg("Unknown STORAGE_DRIVER")
	}

	if err := services.NewAuthService(repos.Users).EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("Failed to bootstrap admin account")
	}

	notifier := services.NewNotifier(repos.Notifications, services.NotifierConfig{
		Workers:        cfg.Engine.NotifyWorkers,
		QueueSize:      cfg.Engine.NotifyQueueSize,
		MaxAttempts:    cfg.Engine.NotifyMaxAttempts,
		RetryBackoff:   cfg.Engine.NotifyRetryBackoff,
		EnqueueTimeout: cfg.Engine.NotifyEnqueueWait,
	})

	gin.SetMode(cfg.Server.GinMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(utils.GinLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSAllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.AllowCredentials = true
	engine.Use(cors.New(corsConfig))

	router.Setup(engine, repos, notifier, router.Options{StockFanoutLimit: cfg.Engine.StockFanoutLimit})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("storage", cfg.Database.Driver).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	// Requests are drained, so nothing publishes after this point.
	if err := notifier.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Pending notifications were not all delivered")
	}
	log.Info().Msg("Server stopped")
}
