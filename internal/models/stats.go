package models

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"songmeta/internal/logging"
)

const bytesPerMB = 1024 * 1024

// DatabaseStats is a storage summary for the admin API
type DatabaseStats struct {
	DatabaseName   string            `json:"database_name"`
	TotalSize      float64           `json:"total_size_mb"`
	StorageSize    float64           `json:"storage_size_mb"`
	IndexSize      float64           `json:"index_size_mb"`
	TotalDocuments int64             `json:"total_documents"`
	Collections    []CollectionStats `json:"collections"`
	LastUpdated    time.Time         `json:"last_updated"`
}

// CollectionStats represents statistics for a single collection
type CollectionStats struct {
	Name        string  `json:"name"`
	Documents   int64   `json:"documents"`
	DataSize    float64 `json:"data_size_mb"`
	StorageSize float64 `json:"storage_size_mb"`
	IndexSize   float64 `json:"index_size_mb"`
	AvgDocSize  float64 `json:"avg_doc_size_bytes"`
}

// Stats runs dbStats and collStats. Collections whose stats cannot be read
// are skipped.
func (d *Database) Stats(ctx context.Context, logger *slog.Logger) (*DatabaseStats, error) {
	logger = logging.OrDiscard(logger)

	var dbStats bson.M
	if err := d.DB.RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}}).Decode(&dbStats); err != nil {
		return nil, fmt.Errorf("failed to get database stats: %w", err)
	}

	stats := &DatabaseStats{
		DatabaseName:   d.DB.Name(),
		TotalSize:      megabytes(dbStats["dataSize"]),
		StorageSize:    megabytes(dbStats["storageSize"]),
		IndexSize:      megabytes(dbStats["indexSize"]),
		TotalDocuments: int64Value(dbStats["objects"]),
		LastUpdated:    time.Now(),
	}

	names, err := d.DB.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	for _, name := range names {
		var collStats bson.M
		if err := d.DB.RunCommand(ctx, bson.D{{Key: "collStats", Value: name}}).Decode(&collStats); err != nil {
			logger.Warn("Failed to get collection stats", "collection", name, "error", err)
			continue
		}

		coll := CollectionStats{
			Name:        name,
			Documents:   int64Value(collStats["count"]),
			DataSize:    megabytes(collStats["size"]),
			StorageSize: megabytes(collStats["storageSize"]),
			IndexSize:   megabytes(collStats["totalIndexSize"]),
		}
		if coll.Documents > 0 {
			coll.AvgDocSize = coll.DataSize * bytesPerMB / float64(coll.Documents)
		}
		stats.Collections = append(stats.Collections, coll)
	}

	return stats, nil
}

// int64Value reads a numeric server field; the server picks int32, int64 or
// double depending on magnitude.
func int64Value(v interface{}) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func megabytes(v interface{}) float64 {
	if f, ok := v.(float64); ok {
		return f / bytesPerMB
	}
	return float64(int64Value(v)) / bytesPerMB
}
