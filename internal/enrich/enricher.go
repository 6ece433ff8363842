// Package enrich resolves a noisy upload title to a MusicBrainz recording and
// collects the release metadata for it.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"songmeta/internal/logging"
	"songmeta/internal/repositories"
	"songmeta/internal/scoring"
	"songmeta/internal/search"
	"songmeta/internal/services"
	"songmeta/internal/titles"
)

// ErrEmptyTitle is returned for a request without a raw title
var ErrEmptyTitle = errors.New("raw title is required")

// Request describes one upload to match
type Request struct {
	RawTitle string `json:"raw_title" binding:"required"`
	// Artist is the explicit artist hint, if any
	Artist   string `json:"artist,omitempty"`
	Uploader string `json:"uploader,omitempty"`
	// DurationSeconds is nil when the upload length is unknown
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	// Refresh ignores a stored match for the same input
	Refresh bool `json:"refresh,omitempty"`
}

// MatchResult is an accepted match
type MatchResult struct {
	Recording      services.Recording `json:"recording"`
	Score          int                `json:"score"`
	Breakdown      scoring.Breakdown  `json:"breakdown"`
	Stage          search.Stage       `json:"stage"`
	CleanedTitle   string             `json:"cleaned_title"`
	DetectedArtist string             `json:"detected_artist,omitempty"`
	// Candidates is how many recordings the winning stage returned
	Candidates int `json:"candidates"`
}

// Enricher runs the matching pipeline and, for Enrich, the downstream
// lookups. Detail, cover art and storage collaborators are optional.
type Enricher struct {
	orchestrator *search.Orchestrator
	scorer       *scoring.Scorer
	details      services.RecordingDetailer
	coverArt     services.CoverArtFetcher
	repository   repositories.MatchRepository
	searchLimit  int
	logger       *slog.Logger
}

// NewEnricher creates an enricher over the search cascade and scorer
func NewEnricher(orchestrator *search.Orchestrator, scorer *scoring.Scorer, logger *slog.Logger) *Enricher {
	if scorer == nil {
		scorer = scoring.NewScorer(nil)
	}
	return &Enricher{
		orchestrator: orchestrator,
		scorer:       scorer,
		searchLimit:  search.DefaultLimit,
		logger:       logging.OrDiscard(logger),
	}
}

// SetDetailer registers the recording detail lookup used by Enrich
func (e *Enricher) SetDetailer(details services.RecordingDetailer) {
	e.details = details
}

// SetCoverArt registers the cover art fetcher used by Enrich
func (e *Enricher) SetCoverArt(coverArt services.CoverArtFetcher) {
	e.coverArt = coverArt
}

// SetRepository registers where Enrich stores its results
func (e *Enricher) SetRepository(repository repositories.MatchRepository) {
	e.repository = repository
}

// SetSearchLimit sets how many recordings each search asks for
func (e *Enricher) SetSearchLimit(limit int) {
	if limit > 0 {
		e.searchLimit = limit
	}
}

// Match resolves the request to the best recording. A nil result with a nil
// error means the pipeline ran and found nothing acceptable.
func (e *Enricher) Match(ctx context.Context, req Request) (*MatchResult, error) {
	if strings.TrimSpace(req.RawTitle) == "" {
		return nil, ErrEmptyTitle
	}
	logger := logging.FromContext(ctx, e.logger)

	cleaned, detected := titles.Normalize(req.RawTitle)
	artists := titles.CandidateArtists(detected, req.Uploader, req.Artist)

	bestGuess := detected
	if bestGuess == "" {
		bestGuess = strings.TrimSpace(req.Artist)
	}

	logger.Debug("Normalized title",
		"raw_title", req.RawTitle,
		"cleaned_title", cleaned,
		"detected_artist", detected,
		"candidate_artists", artists)

	outcome, err := e.orchestrator.Search(ctx, search.Request{
		CleanedTitle: cleaned,
		RawTitle:     req.RawTitle,
		Artists:      artists,
		BestGuess:    bestGuess,
		Limit:        e.searchLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("search recordings: %w", err)
	}
	if !outcome.Found() {
		return nil, nil
	}

	target := scoring.Target{
		DurationSeconds: req.DurationSeconds,
		KnownArtists:    knownArtists(req.Artist, req.Uploader),
	}

	best, ok := e.scorer.Select(outcome.Recordings, target, e.scorer.AcceptanceThreshold())
	if !ok {
		logger.Info("No candidate reached the acceptance threshold",
			"raw_title", req.RawTitle,
			"stage", outcome.Stage,
			"candidates", len(outcome.Recordings),
			"threshold", e.scorer.AcceptanceThreshold())
		return nil, nil
	}

	logger.Info("Matched recording",
		"raw_title", req.RawTitle,
		"recording_id", best.Recording.ID,
		"score", best.Score,
		"stage", outcome.Stage)

	return &MatchResult{
		Recording:      best.Recording,
		Score:          best.Score,
		Breakdown:      best.Breakdown,
		Stage:          outcome.Stage,
		CleanedTitle:   cleaned,
		DetectedArtist: detected,
		Candidates:     len(outcome.Recordings),
	}, nil
}

// knownArtists are the caller-supplied artist hints used for scoring
func knownArtists(explicit, uploader string) []string {
	var known []string
	for _, name := range []string{explicit, uploader} {
		if name = strings.TrimSpace(name); name != "" {
			known = append(known, name)
		}
	}
	return known
}
