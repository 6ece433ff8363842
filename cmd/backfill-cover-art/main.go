package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"songmeta/internal/config"
	"songmeta/internal/logging"
	"songmeta/internal/models"
	"songmeta/internal/repositories"
	"songmeta/internal/services"
)

func main() {
	limit := flag.Int("limit", 500, "maximum number of matches to process")
	dryRun := flag.Bool("dry-run", false, "look up covers without storing them")
	flag.Parse()

	// Load .env file for local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	if !cfg.HasStorage() {
		logger.Error("MONGODB_URL is required for the backfill")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := models.NewDatabase(ctx, cfg.MongodbURL, cfg.MongodbDatabase)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close(context.Background())

	repo := repositories.NewMongoMatchRepository(db, logger)
	coverArt := services.NewCoverArtService(cfg.CoverArtURL, cfg.UserAgent, cfg.RequestTimeout, cfg.RequestDelay)

	result, err := backfill(ctx, repo, coverArt, *limit, *dryRun, logger)
	if err != nil {
		logger.Error("Cover art backfill aborted", "error", err)
	}

	logger.Info("Cover art backfill completed",
		"processed", result.Processed,
		"updated", result.Updated,
		"missing", result.Missing,
		"failed", result.Failed)

	fmt.Println("Backfill process completed!")
	fmt.Printf("Processed: %d matches\n", result.Processed)
	fmt.Printf("Updated: %d matches\n", result.Updated)

	if err != nil {
		os.Exit(1)
	}
}

type backfillResult struct {
	Processed int
	Updated   int
	Missing   int
	Failed    int
}

// backfill fetches covers for stored matches that have a release but no
// cover art. Matches the archive has nothing for are stamped as checked so the
// next run reaches different ones. Per-match failures are counted; only
// context and listing errors stop the run.
func backfill(ctx context.Context, repo repositories.MatchRepository, coverArt services.CoverArtFetcher, limit int, dryRun bool, logger *slog.Logger) (backfillResult, error) {
	var result backfillResult
	logger = logging.OrDiscard(logger)

	matches, err := repo.FindMissingCoverArt(ctx, limit)
	if err != nil {
		return result, fmt.Errorf("list matches missing cover art: %w", err)
	}
	logger.Info("Found matches missing cover art", "count", len(matches), "dry_run", dryRun)

	for _, match := range matches {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Processed++

		switch err := backfillMatch(ctx, repo, coverArt, match, dryRun, logger); {
		case err == nil:
			result.Updated++
		case errors.Is(err, services.ErrCoverArtNotFound):
			result.Missing++
			if dryRun {
				continue
			}
			match.MarkCoverArtChecked()
			if err := repo.Update(ctx, match); err != nil {
				logger.Warn("Failed to record cover art check", "match_id", match.ID.Hex(), "error", err)
			}
		case ctx.Err() != nil:
			return result, ctx.Err()
		default:
			result.Failed++
			logger.Warn("Failed to backfill cover art", "match_id", match.ID.Hex(), "error", err)
		}
	}

	return result, nil
}

func backfillMatch(ctx context.Context, repo repositories.MatchRepository, coverArt services.CoverArtFetcher, match *models.Match, dryRun bool, logger *slog.Logger) error {
	if !match.CanFetchCoverArt() {
		return services.ErrCoverArtNotFound
	}
	ids := services.CoverArtCandidates(&services.RecordingDetails{
		ReleaseID:      match.ReleaseID,
		ReleaseGroupID: match.ReleaseGroupID,
	})

	art, err := coverArt.FrontCover(ctx, ids)
	if err != nil {
		return err
	}

	if dryRun {
		logger.Info("Found cover art", "match_id", match.ID.Hex(), "url", art.SourceURL)
		return nil
	}

	match.SetCoverArt(art.SourceURL, art.MimeType, string(art.Source.Kind))
	if err := repo.Update(ctx, match); err != nil {
		return fmt.Errorf("update match: %w", err)
	}

	logger.Info("Backfilled cover art",
		"match_id", match.ID.Hex(),
		"title", match.Title,
		"artist", match.Artist,
		"source", art.Source.Kind,
		"url", art.SourceURL)
	return nil
}
