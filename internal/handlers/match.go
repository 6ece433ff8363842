package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"songmeta/internal/enrich"
	"songmeta/internal/logging"
	"songmeta/internal/repositories"
)

// Pipeline is the matching pipeline as the HTTP layer uses it
type Pipeline interface {
	Match(ctx context.Context, req enrich.Request) (*enrich.MatchResult, error)
	Enrich(ctx context.Context, req enrich.Request) (*enrich.Metadata, error)
}

// MatchResponse is returned by POST /api/v1/match
type MatchResponse struct {
	Matched bool                `json:"matched"`
	Match   *enrich.MatchResult `json:"match,omitempty"`
}

// EnrichResponse is returned by POST /api/v1/enrich
type EnrichResponse struct {
	Matched  bool             `json:"matched"`
	Metadata *enrich.Metadata `json:"metadata,omitempty"`
}

// MatchHandler handles matching requests
type MatchHandler struct {
	pipeline   Pipeline
	repository repositories.MatchRepository
}

// NewMatchHandler creates a new match handler. repository may be nil when
// storage is not configured.
func NewMatchHandler(pipeline Pipeline, repository repositories.MatchRepository) *MatchHandler {
	return &MatchHandler{
		pipeline:   pipeline,
		repository: repository,
	}
}

// Match handles POST /api/v1/match
func (h *MatchHandler) Match(c *gin.Context) {
	req, ok := bindRequest(c)
	if !ok {
		return
	}

	result, err := h.pipeline.Match(c.Request.Context(), req)
	if err != nil {
		h.pipelineError(c, "Failed to match title", req, err)
		return
	}

	c.JSON(http.StatusOK, MatchResponse{Matched: result != nil, Match: result})
}

// Enrich handles POST /api/v1/enrich
func (h *MatchHandler) Enrich(c *gin.Context) {
	req, ok := bindRequest(c)
	if !ok {
		return
	}

	meta, err := h.pipeline.Enrich(c.Request.Context(), req)
	if err != nil {
		h.pipelineError(c, "Failed to enrich title", req, err)
		return
	}

	c.JSON(http.StatusOK, EnrichResponse{Matched: meta != nil, Metadata: meta})
}

// GetMatch handles GET /api/v1/matches/:id
func (h *MatchHandler) GetMatch(c *gin.Context) {
	if h.repository == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Match storage is not configured",
		})
		return
	}

	id := c.Param("id")
	match, err := h.repository.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidID) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid match ID",
			})
			return
		}
		logging.FromContext(c.Request.Context(), nil).Error("Failed to load match", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load match",
		})
		return
	}

	if match == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Match not found",
		})
		return
	}

	c.JSON(http.StatusOK, match)
}

func bindRequest(c *gin.Context) (enrich.Request, bool) {
	var req enrich.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return req, false
	}
	if req.DurationSeconds != nil && *req.DurationSeconds < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "duration_seconds cannot be negative",
		})
		return req, false
	}
	return req, true
}

func (h *MatchHandler) pipelineError(c *gin.Context, message string, req enrich.Request, err error) {
	ctx := c.Request.Context()
	switch {
	case errors.Is(err, enrich.ErrEmptyTitle):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "raw_title cannot be blank",
		})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error": "Matching timed out",
		})
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the body
		c.Status(499)
	default:
		logging.FromContext(ctx, nil).Error(message, "raw_title", req.RawTitle, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": message,
		})
	}
}
