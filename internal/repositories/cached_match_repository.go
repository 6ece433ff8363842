package repositories

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"songmeta/internal/cache"
	"songmeta/internal/logging"
	"songmeta/internal/models"
)

// cachedMatchRepository wraps a MatchRepository with caching
type cachedMatchRepository struct {
	repository MatchRepository
	cache      cache.Cache
	logger     *slog.Logger
}

// NewCachedMatchRepository creates a new cached match repository
func NewCachedMatchRepository(repository MatchRepository, c cache.Cache, logger *slog.Logger) MatchRepository {
	return &cachedMatchRepository{
		repository: repository,
		cache:      c,
		logger:     logging.OrDiscard(logger),
	}
}

// Cache key generators
func matchIDKey(id string) string             { return "match:id:" + id }
func matchRawTitleKey(rawTitle string) string { return "match:raw:" + rawTitle }

// Cache TTL constants
const (
	matchCacheTTL    = 1 * time.Hour
	negativeCacheTTL = 5 * time.Minute // For null results
)

// Save stores the match and invalidates its cache entries
func (r *cachedMatchRepository) Save(ctx context.Context, match *models.Match) error {
	if err := r.repository.Save(ctx, match); err != nil {
		return err
	}
	r.invalidateMatchCache(ctx, match)
	return nil
}

// Update updates the match and invalidates its cache entries
func (r *cachedMatchRepository) Update(ctx context.Context, match *models.Match) error {
	if err := r.repository.Update(ctx, match); err != nil {
		return err
	}
	r.invalidateMatchCache(ctx, match)
	return nil
}

// FindByID checks cache first, then repository
func (r *cachedMatchRepository) FindByID(ctx context.Context, id string) (*models.Match, error) {
	return r.cachedFind(ctx, matchIDKey(id), func() (*models.Match, error) {
		return r.repository.FindByID(ctx, id)
	})
}

// FindByRawTitle checks cache first, then repository
func (r *cachedMatchRepository) FindByRawTitle(ctx context.Context, rawTitle string) (*models.Match, error) {
	return r.cachedFind(ctx, matchRawTitleKey(rawTitle), func() (*models.Match, error) {
		return r.repository.FindByRawTitle(ctx, rawTitle)
	})
}

// FindMissingCoverArt - not cached, the result shrinks as the backfill runs
func (r *cachedMatchRepository) FindMissingCoverArt(ctx context.Context, limit int) ([]*models.Match, error) {
	return r.repository.FindMissingCoverArt(ctx, limit)
}

// Count - not cached as it changes frequently
func (r *cachedMatchRepository) Count(ctx context.Context) (int64, error) {
	return r.repository.Count(ctx)
}

func (r *cachedMatchRepository) cachedFind(ctx context.Context, key string, load func() (*models.Match, error)) (*models.Match, error) {
	if cached, hit := r.getFromCache(ctx, key); hit {
		return cached, nil
	}

	match, err := load()
	if err != nil {
		return nil, err
	}

	// Cache the result (even if nil)
	r.cacheResult(ctx, key, match)
	return match, nil
}

// getFromCache reports a hit for both stored matches and cached misses
func (r *cachedMatchRepository) getFromCache(ctx context.Context, key string) (*models.Match, bool) {
	data, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("Match cache read failed", "key", key, "error", err)
		return nil, false
	}
	if data == nil {
		return nil, false
	}

	// Handle negative cache (null result marker)
	if string(data) == "null" {
		return nil, true
	}

	var match models.Match
	if err := json.Unmarshal(data, &match); err != nil {
		r.logger.Error("Failed to unmarshal match from cache", "key", key, "error", err)
		_ = r.cache.Delete(ctx, key)
		return nil, false
	}
	return &match, true
}

func (r *cachedMatchRepository) cacheResult(ctx context.Context, key string, match *models.Match) {
	data := []byte("null")
	ttl := negativeCacheTTL

	if match != nil {
		var err error
		data, err = json.Marshal(match)
		if err != nil {
			r.logger.Error("Failed to marshal match for cache", "key", key, "error", err)
			return
		}
		ttl = matchCacheTTL
	}

	if err := r.cache.Set(ctx, key, data, ttl); err != nil {
		r.logger.Warn("Failed to cache match", "key", key, "error", err)
	}
}

// invalidateMatchCache removes all cache entries for a match
func (r *cachedMatchRepository) invalidateMatchCache(ctx context.Context, match *models.Match) {
	if !match.ID.IsZero() {
		_ = r.cache.Delete(ctx, matchIDKey(match.ID.Hex()))
	}
	if match.RawTitle != "" {
		_ = r.cache.Delete(ctx, matchRawTitleKey(match.RawTitle))
	}
}
