package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/newtube/newtube/internal/ai"
	"github.com/newtube/newtube/internal/cache"
	"github.com/newtube/newtube/internal/config"
	"github.com/newtube/newtube/internal/database"
	"github.com/newtube/newtube/internal/geoip"
	"github.com/newtube/newtube/internal/logging"
	"github.com/newtube/newtube/internal/mux"
	"github.com/newtube/newtube/internal/server"
	"github.com/newtube/newtube/internal/storage"
	"github.com/newtube/newtube/internal/video"
)

const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config: invalid configuration", "error", err)
		os.Exit(1)
	}

	flush := logging.Setup(cfg.Log)
	defer flush()

	if err := run(cfg); err != nil {
		slog.Error("newtube: fatal", "error", err)
		flush()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		return err
	}
	slog.Info("database migrations applied")

	store, err := storage.New(ctx, storage.Config{
		Endpoint:       cfg.S3Endpoint,
		PublicEndpoint: cfg.S3PublicEndpoint,
		Bucket:         cfg.S3Bucket,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		Region:         cfg.S3Region,
	})
	if err != nil {
		return err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return err
	}
	slog.Info("storage bucket ready", "bucket", cfg.S3Bucket)

	counter, redisClient := commentCounter(ctx, cfg.RedisURL)
	if redisClient != nil {
		defer redisClient.Close()
	}

	countries := geoip.Open(cfg.GeoIPDBPath)
	defer countries.Close()

	muxClient := mux.New(cfg.MuxAPIURL, cfg.MuxTokenID, cfg.MuxTokenSecret)
	if err := muxClient.SetSubtitleLanguage(cfg.SubtitleLanguage); err != nil {
		return err
	}

	if cfg.MuxWebhookSecret == "" {
		slog.Warn("MUX_WEBHOOK_SECRET is not set, mux webhooks will be rejected")
	}

	srv := server.New(server.Config{
		DB:                db.Pool,
		Pinger:            db,
		BaseURL:           cfg.BaseURL,
		JWTSecret:         cfg.AuthJWTSecret,
		AuthWebhookSecret: cfg.AuthWebhookSecret,
		MuxWebhookSecret:  cfg.MuxWebhookSecret,
		Storage:           store,
		Mux:               muxClient,
		Generator:         metadataGenerator(cfg),
		CommentCounter:    counter,
		Countries:         countries,
		EnableDocs:        cfg.APIDocsEnabled,
	})

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	srv.StartCleanup(cleanupCtx)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("newtube listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return err
	case sig := <-shutdownCh:
		slog.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := srv.Drain(shutdownCtx); err != nil {
		slog.Warn("background jobs still running at exit", "error", err)
	}
	slog.Info("shutdown complete")
	return nil
}

// commentCounter connects the Redis comment-count cache. Without a URL, or
// when Redis is unreachable, counts are always read from Postgres.
func commentCounter(ctx context.Context, url string) (video.CommentCounter, *redis.Client) {
	if url == "" {
		return nil, nil
	}
	client, err := cache.Connect(ctx, url)
	if err != nil {
		slog.Warn("redis unavailable, comment counts will not be cached", "error", err)
		return nil, nil
	}
	slog.Info("redis comment count cache enabled")
	return cache.NewCounter(client, cache.DefaultTTL), client
}

func metadataGenerator(cfg *config.Config) video.MetadataGenerator {
	if !cfg.AIEnabled() {
		return nil
	}
	slog.Info("AI metadata generation enabled", "model", cfg.OpenAIModel)
	return ai.NewGenerator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
}
