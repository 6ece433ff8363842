package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"songmeta/internal/logging"
	"songmeta/internal/models"
	"songmeta/internal/repositories"
)

// StatsSource reports storage statistics
type StatsSource interface {
	Stats(ctx context.Context, logger *slog.Logger) (*models.DatabaseStats, error)
}

// AdminHandler handles administrative requests
type AdminHandler struct {
	repository repositories.MatchRepository
	stats      StatsSource
}

// NewAdminHandler creates a new admin handler. stats may be nil.
func NewAdminHandler(repository repositories.MatchRepository, stats StatsSource) *AdminHandler {
	return &AdminHandler{
		repository: repository,
		stats:      stats,
	}
}

// AdminStats is returned by GET /api/v1/admin/stats
type AdminStats struct {
	TotalMatches int64                 `json:"total_matches"`
	Database     *models.DatabaseStats `json:"database,omitempty"`
	LastUpdated  time.Time             `json:"last_updated"`
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()
	logger := logging.FromContext(ctx, nil)

	count, err := h.repository.Count(ctx)
	if err != nil {
		logger.Error("Failed to count matches", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to collect statistics",
		})
		return
	}

	stats := AdminStats{TotalMatches: count, LastUpdated: time.Now()}
	if h.stats != nil {
		dbStats, err := h.stats.Stats(ctx, logger)
		if err != nil {
			logger.Warn("Failed to collect database stats", "error", err)
		} else {
			stats.Database = dbStats
		}
	}

	c.JSON(http.StatusOK, stats)
}

// MissingCoverArt handles GET /api/v1/admin/missing-cover-art
func (h *AdminHandler) MissingCoverArt(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit must be between 1 and 500",
			})
			return
		}
		limit = n
	}

	matches, err := h.repository.FindMissingCoverArt(c.Request.Context(), limit)
	if err != nil {
		logging.FromContext(c.Request.Context(), nil).Error("Failed to list matches missing cover art", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list matches",
		})
		return
	}
	if matches == nil {
		matches = []*models.Match{}
	}

	c.JSON(http.StatusOK, gin.H{
		"matches": matches,
		"count":   len(matches),
	})
}
