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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"songmeta/internal/cache"
	"songmeta/internal/config"
	"songmeta/internal/enrich"
	"songmeta/internal/handlers"
	"songmeta/internal/logging"
	"songmeta/internal/models"
	"songmeta/internal/repositories"
	"songmeta/internal/scoring"
	"songmeta/internal/search"
	"songmeta/internal/services"
)

func main() {
	// Load .env file for local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	matching, matchingPath, err := config.LoadMatchingConfig(cfg.MatchingConfigPath)
	if err != nil {
		return err
	}
	if matchingPath != "" {
		logger.Info("Loaded matching config", "path", matchingPath)
	}

	health := handlers.NewHealthHandler()

	// Cache: Valkey behind an in-process L1 when configured, memory otherwise
	var appCache cache.Cache
	if cfg.HasCache() {
		appCache, err = cache.NewMultiLevelCache(cfg.ValkeyURL, 1000)
		if err != nil {
			logger.Warn("Failed to connect to Valkey, using memory cache", "error", err)
			appCache = cache.NewMemoryCache(10000)
		}
	} else {
		appCache = cache.NewMemoryCache(10000)
	}
	defer appCache.Close()
	health.Register("cache", appCache)

	musicBrainz := services.NewMusicBrainzService(cfg.MusicBrainzURL, cfg.UserAgent, cfg.RequestTimeout, cfg.RequestDelay)
	health.Register("musicbrainz", musicBrainz)
	searcher := services.NewCachedSearcher(musicBrainz, appCache, cfg.SearchCacheTTL, logger)

	orchestrator := search.NewOrchestrator(searcher, cfg.RequestDelay, logger)
	enricher := enrich.NewEnricher(orchestrator, scoring.NewScorer(matching), logger)
	enricher.SetSearchLimit(cfg.SearchLimit)
	enricher.SetDetailer(musicBrainz)
	enricher.SetCoverArt(services.NewCoverArtService(cfg.CoverArtURL, cfg.UserAgent, cfg.RequestTimeout, cfg.RequestDelay))

	routerCfg := handlers.RouterConfig{
		Pipeline:    enricher,
		Health:      health,
		AdminSecret: cfg.AdminJWTSecret,
		Logger:      logger,
	}

	if cfg.HasStorage() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		db, err := models.NewDatabase(ctx, cfg.MongodbURL, cfg.MongodbDatabase)
		if err != nil {
			cancel()
			return err
		}
		if err := db.CreateIndexes(ctx); err != nil {
			logger.Warn("Failed to create indexes", "error", err)
		}
		cancel()
		defer db.Close(context.Background())

		repo := repositories.NewCachedMatchRepository(repositories.NewMongoMatchRepository(db, logger), appCache, logger)
		enricher.SetRepository(repo)
		health.Register("database", db)

		routerCfg.Repository = repo
		routerCfg.Stats = db
	} else {
		logger.Info("MONGODB_URL not set, matches will not be stored")
	}

	if !cfg.AdminEnabled() {
		logger.Info("ADMIN_JWT_SECRET not set, admin routes disabled")
	}

	gin.SetMode(cfg.GinMode)
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handlers.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("Shutting down server", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	logger.Info("Server stopped")
	return nil
}
