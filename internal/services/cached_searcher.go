package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"songmeta/internal/cache"
	"songmeta/internal/logging"
)

// Cache TTL for searches that found nothing
const negativeSearchTTL = 5 * time.Minute

// cachedSearcher wraps a RecordingSearcher with caching
type cachedSearcher struct {
	searcher RecordingSearcher
	cache    cache.Cache
	ttl      time.Duration
	logger   *slog.Logger
}

// NewCachedSearcher caches search results for ttl. Cache failures are logged
// and bypassed; searcher errors are never cached.
func NewCachedSearcher(searcher RecordingSearcher, c cache.Cache, ttl time.Duration, logger *slog.Logger) RecordingSearcher {
	return &cachedSearcher{
		searcher: searcher,
		cache:    c,
		ttl:      ttl,
		logger:   logging.OrDiscard(logger),
	}
}

func searchKey(query SearchQuery, limit int) string {
	return fmt.Sprintf("recording:search:%d:%s", limit, query.String())
}

// SearchRecordings checks cache first, then the wrapped searcher
func (s *cachedSearcher) SearchRecordings(ctx context.Context, query SearchQuery, limit int) ([]Recording, error) {
	key := searchKey(query, limit)

	if cached, ok := s.getFromCache(ctx, key); ok {
		return cached, nil
	}

	recordings, err := s.searcher.SearchRecordings(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	s.cacheResult(ctx, key, recordings)
	return recordings, nil
}

func (s *cachedSearcher) getFromCache(ctx context.Context, key string) ([]Recording, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Search cache read failed", "key", key, "error", err)
		return nil, false
	}
	if data == nil {
		return nil, false
	}

	var recordings []Recording
	if err := json.Unmarshal(data, &recordings); err != nil {
		s.logger.Error("Failed to unmarshal search results from cache", "key", key, "error", err)
		_ = s.cache.Delete(ctx, key)
		return nil, false
	}
	if recordings == nil {
		recordings = []Recording{}
	}
	return recordings, true
}

func (s *cachedSearcher) cacheResult(ctx context.Context, key string, recordings []Recording) {
	if s.ttl <= 0 {
		return
	}
	if recordings == nil {
		recordings = []Recording{}
	}

	data, err := json.Marshal(recordings)
	if err != nil {
		s.logger.Error("Failed to marshal search results for cache", "key", key, "error", err)
		return
	}

	ttl := s.ttl
	if len(recordings) == 0 && ttl > negativeSearchTTL {
		ttl = negativeSearchTTL
	}

	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		s.logger.Warn("Failed to cache search results", "key", key, "error", err)
	}
}
