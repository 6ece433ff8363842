package repositories

import (
	"context"
	"errors"

	"songmeta/internal/models"
)

// ErrInvalidID is returned for identifiers that are not valid ObjectIDs
var ErrInvalidID = errors.New("invalid match ID")

// MatchRepository defines the interface for stored pipeline results.
// Finders return (nil, nil) when nothing matches.
type MatchRepository interface {
	// Create and Update
	Save(ctx context.Context, match *models.Match) error
	Update(ctx context.Context, match *models.Match) error

	// Find operations
	FindByID(ctx context.Context, id string) (*models.Match, error)
	// FindByRawTitle returns the most recent match for a raw upload title
	FindByRawTitle(ctx context.Context, rawTitle string) (*models.Match, error)
	// FindMissingCoverArt returns matches with a release but no cover art
	FindMissingCoverArt(ctx context.Context, limit int) ([]*models.Match, error)

	// Maintenance operations
	Count(ctx context.Context) (int64, error)
}
