// Package search runs the staged recording-search cascade for one title.
package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"songmeta/internal/logging"
	"songmeta/internal/services"
)

// Stage names the cascade step that produced the candidates
type Stage string

const (
	StageArtist    Stage = "artist"     // cleaned title + candidate artist
	StageTitle     Stage = "title"      // cleaned title alone
	StageRawArtist Stage = "raw_artist" // raw title + candidate artist
	StageFreeText  Stage = "freetext"   // unqualified title + best artist guess
	StageNone      Stage = "none"
)

// DefaultLimit is used when a request carries no positive limit
const DefaultLimit = 10

// Request is one cascade input
type Request struct {
	CleanedTitle string
	RawTitle     string
	// Artists are the resolved candidates, most specific first
	Artists []string
	// BestGuess is the detected artist, else the explicit one; may be empty
	BestGuess string
	Limit     int
}

// Outcome is what the cascade found and where
type Outcome struct {
	Recordings []services.Recording
	Stage      Stage
	Query      services.SearchQuery
}

// Found reports whether any stage produced candidates
func (o Outcome) Found() bool {
	return len(o.Recordings) > 0
}

// Orchestrator queries the recording searcher in a fixed order of decreasing
// specificity, stopping at the first query that returns anything.
type Orchestrator struct {
	searcher services.RecordingSearcher
	delay    time.Duration
	logger   *slog.Logger
	wait     func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an orchestrator that waits delay before every
// search call.
func NewOrchestrator(searcher services.RecordingSearcher, delay time.Duration, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		searcher: searcher,
		delay:    delay,
		logger:   logging.OrDiscard(logger),
		wait:     sleepContext,
	}
}

// Search runs the cascade. Failed calls count as empty results; the only
// error returned is the context's, when it ends before the cascade does.
func (o *Orchestrator) Search(ctx context.Context, req Request) (Outcome, error) {
	logger := logging.FromContext(ctx, o.logger)
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var queries []stagedQuery
	for _, artist := range req.Artists {
		queries = append(queries, stagedQuery{StageArtist, services.SearchQuery{Title: req.CleanedTitle, Artist: artist}})
	}
	queries = append(queries, stagedQuery{StageTitle, services.SearchQuery{Title: req.CleanedTitle}})
	if req.RawTitle != "" && req.RawTitle != req.CleanedTitle {
		for _, artist := range req.Artists {
			queries = append(queries, stagedQuery{StageRawArtist, services.SearchQuery{Title: req.RawTitle, Artist: artist}})
		}
	}
	if freeText := strings.TrimSpace(req.CleanedTitle + " " + req.BestGuess); freeText != "" {
		queries = append(queries, stagedQuery{StageFreeText, services.SearchQuery{FreeText: freeText}})
	}

	for _, q := range queries {
		if q.query.Title == "" && !q.query.IsFreeText() {
			continue
		}

		recordings, err := o.attempt(ctx, logger, q, limit)
		if err != nil {
			return Outcome{Stage: StageNone}, err
		}
		if len(recordings) > 0 {
			logger.Debug("Search stage matched",
				"stage", q.stage,
				"query", q.query.String(),
				"results", len(recordings))
			return Outcome{Recordings: recordings, Stage: q.stage, Query: q.query}, nil
		}
	}

	logger.Info("No recordings found", "title", req.CleanedTitle, "attempts", len(queries))
	return Outcome{Recordings: []services.Recording{}, Stage: StageNone}, nil
}

type stagedQuery struct {
	stage Stage
	query services.SearchQuery
}

func (o *Orchestrator) attempt(ctx context.Context, logger *slog.Logger, q stagedQuery, limit int) ([]services.Recording, error) {
	if err := o.wait(ctx, o.delay); err != nil {
		return nil, err
	}

	recordings, err := o.searcher.SearchRecordings(ctx, q.query, limit)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("Search attempt failed",
			"stage", q.stage,
			"query", q.query.String(),
			"error", err)
		return nil, nil
	}
	return recordings, nil
}

// sleepContext waits d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
