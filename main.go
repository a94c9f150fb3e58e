package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/feed-api/internal/api"
	"github.com/isdelr/feed-api/internal/auth"
	"github.com/isdelr/feed-api/internal/cache"
	"github.com/isdelr/feed-api/internal/config"
	"github.com/isdelr/feed-api/internal/database"
	"github.com/isdelr/feed-api/internal/logger"
	"github.com/isdelr/feed-api/internal/monitoring"
	"github.com/isdelr/feed-api/internal/repository"
	"github.com/isdelr/feed-api/internal/services"
	"github.com/isdelr/feed-api/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel, cfg.IsProduction())

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}
	store := repository.NewStore(db)

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	eventService := services.NewEventService(db)
	imageService, err := services.NewImageService(cfg.UploadDir, eventService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize image storage")
	}

	var postCache services.PostCache
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(context.Background(), cfg.RedisAddr)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, running without post cache")
		} else {
			defer client.Close()
			postCache = cache.NewPostCache(client, cfg.CacheTTL)
		}
	}

	feedService := services.NewFeedService(store, imageService, eventService, postCache, hub, cfg.OperationTimeout)
	userService := services.NewUserService(store.Users)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret)

	// Set up and run the orphaned image reconciler
	scheduler, err := monitoring.NewScheduler(cfg.ReconcileSchedule, store.Posts, imageService)
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.ReconcileSchedule).Msg("Invalid reconcile schedule")
	}
	scheduler.Run()

	// Set up router
	router := api.NewRouter(api.Dependencies{
		Hub:          hub,
		Users:        userService,
		Feed:         feedService,
		Events:       eventService,
		Images:       imageService,
		Tokens:       tokens,
		UploadDir:    imageService.Dir(),
		MaxImageSize: int64(cfg.MaxUploadMB) << 20,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}
