package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"newsletter/api/internal/app"
	"newsletter/api/internal/assets"
	"newsletter/api/internal/cache"
	"newsletter/api/internal/config"
	"newsletter/api/internal/editor"
	"newsletter/api/internal/generation"
	"newsletter/api/internal/persistence"
	"newsletter/api/internal/search"
	"newsletter/api/internal/store"
)

func main() {
	cfg := config.Load()
	configureLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if path, ok := strings.CutPrefix(cfg.DatabaseURL, "sqlite://"); ok {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			logrus.WithError(err).Fatal("failed to create data dir")
		}
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		logrus.WithError(err).Fatal("migrations failed")
	}

	dataStore := store.NewSQLStore(db)

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewSQLSearcher(dataStore))
	if docs, err := dataStore.ListNewsletters(ctx); err != nil {
		logrus.WithError(err).Warn("search reindex skipped")
	} else {
		searchService.ReindexAll(docs)
	}

	var backend persistence.Backend = dataStore
	if strings.TrimSpace(cfg.PersistenceURL) != "" {
		logrus.WithField("url", cfg.PersistenceURL).Info("using remote persistence API")
		backend = persistence.NewClient(cfg.PersistenceURL)
	}

	var fallback persistence.Cache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL, cfg.FallbackTTL)
		if err != nil {
			logrus.WithError(err).Fatal("redis connection failed")
		}
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			logrus.WithError(err).Warn("redis not reachable, fallback saves may fail")
		}
		fallback = redisCache
	}

	gateway := persistence.New(backend, fallback, searchService)

	sessions := editor.NewManager(gateway, editor.Options{
		AutosaveDelay: cfg.AutosaveDelay,
		HistoryLimit:  cfg.HistoryLimit,
		IdleTTL:       cfg.SessionIdleTTL,
	})
	go sessions.Run(ctx)

	var assetStore editor.AssetStore = assets.DataURIStore{}
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		minioStore, err := assets.NewMinioStore(ctx, assets.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
		if err != nil {
			logrus.WithError(err).Fatal("object storage init failed")
		}
		assetStore = minioStore
	}

	var assistant editor.Assistant
	generator, err := generation.Init(generation.Config{
		Provider: cfg.AIProvider,
		BaseURL:  cfg.AIBaseURL,
		APIKey:   cfg.GeminiAPIKey,
		Model:    cfg.OllamaModel,
	})
	switch {
	case errors.Is(err, generation.ErrNoAPIKey):
		logrus.Warn("no AI API key configured, generation disabled until setup")
	case err != nil:
		logrus.WithError(err).Fatal("AI assistant init failed")
	default:
		logrus.WithField("provider", generator.Provider()).Info("AI assistant ready")
		assistant = generator
	}

	service := app.New(cfg, dataStore, searchService, sessions, assetStore, assistant)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := newServer(cfg.Addr, httpServer.Handler())

	go func() {
		logrus.WithField("addr", cfg.Addr).Info("newsletter API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("shutdown error")
	}
	if err := sessions.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("flushing sessions failed")
	}
}

// newServer builds the HTTP server. Writes may wait on a full generation call.
func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      generation.RequestTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func configureLogging(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)
}
