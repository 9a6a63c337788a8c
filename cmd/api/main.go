package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/safar/bookswap/internal/catalog"
	"github.com/safar/bookswap/internal/config"
	"github.com/safar/bookswap/internal/database"
	"github.com/safar/bookswap/internal/geocode"
	"github.com/safar/bookswap/internal/httpapi"
	"github.com/safar/bookswap/internal/identity"
	"github.com/safar/bookswap/internal/notify"
	"github.com/safar/bookswap/internal/purchase"
	"github.com/safar/bookswap/internal/storage"
	"github.com/safar/bookswap/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	logger.Info("connected to database")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, err := storage.Connect(ctx, cfg.Storage.MongoURI)
	if err != nil {
		log.Fatalf("Connect to object storage: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())

	logger.Info("connected to object storage", "database", cfg.Storage.MongoDatabase, "bucket", cfg.Storage.Bucket)

	repos := store.NewRepositories(db, cfg.Database.QueryTimeout)

	dispatcher, err := notify.NewDispatcher(repos.Notifications,
		notify.WithQueueSize(cfg.Notify.QueueSize),
		notify.WithMaxAttempts(cfg.Notify.MaxAttempts),
		notify.WithBaseDelay(cfg.Notify.BaseDelay),
		notify.WithLogger(logger.With("component", "notify")),
	)
	if err != nil {
		log.Fatalf("Create notification dispatcher: %v", err)
	}

	cities := geocode.NewCache(
		geocode.NewNominatim(cfg.Geocode.URL, cfg.Geocode.UserAgent),
		geocode.WithTimeout(cfg.Geocode.Timeout),
		geocode.WithLogger(logger.With("component", "geocode")),
	)

	images := storage.NewGridFS(mongoClient, cfg.Storage.MongoDatabase, cfg.Storage.Bucket, cfg.Storage.PublicBaseURL, cfg.Storage.Timeout)
	profiles := identity.NewProfiles(repos.Users, cities)

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.Deps{
		Catalog:       catalog.NewService(repos.Listings, images, cities, logger.With("component", "catalog")),
		Purchases:     purchase.NewService(repos.Purchases, dispatcher, profiles, logger.With("component", "purchase")),
		Notifications: repos.Notifications,
		Profiles:      profiles,
		Images:        images,
		Verifier:      identity.NewJWTVerifier(cfg.Auth.JWTSecret),
		Logger:        logger,
		MaxFileSize:   cfg.Storage.MaxFileSize,
	})
	router.MaxMultipartMemory = cfg.Storage.MaxFileSize

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("notifications not drained", "error", err)
	}
}
