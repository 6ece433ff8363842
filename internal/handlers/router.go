package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"songmeta/internal/repositories"
)

// RouterConfig collects what the HTTP API is wired to
type RouterConfig struct {
	Pipeline Pipeline
	// Repository and Stats are nil without storage
	Repository repositories.MatchRepository
	Stats      StatsSource
	Health     *HealthHandler
	// AdminSecret mounts the admin routes when set
	AdminSecret string
	Logger      *slog.Logger
}

// NewRouter builds the gin engine with every route mounted
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(cfg.Logger))

	health := cfg.Health
	if health == nil {
		health = NewHealthHandler()
	}
	router.GET("/health", health.Health)

	matches := NewMatchHandler(cfg.Pipeline, cfg.Repository)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/match", matches.Match)
		v1.POST("/enrich", matches.Enrich)
		v1.GET("/matches/:id", matches.GetMatch)
	}

	if cfg.AdminSecret != "" && cfg.Repository != nil {
		admin := NewAdminHandler(cfg.Repository, cfg.Stats)
		adminGroup := v1.Group("/admin", RequireAdminToken(cfg.AdminSecret))
		{
			adminGroup.GET("/stats", admin.GetStats)
			adminGroup.GET("/missing-cover-art", admin.MissingCoverArt)
		}
	}

	return router
}
