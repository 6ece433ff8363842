package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Database represents the database connection
type Database struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// NewDatabase connects to MongoDB and verifies the connection
func NewDatabase(ctx context.Context, mongoURL, dbName string) (*Database, error) {
	clientOptions := options.Client().
		ApplyURI(mongoURL).
		SetMaxPoolSize(10).
		SetMinPoolSize(1).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Database{
		Client: client,
		DB:     client.Database(dbName),
	}, nil
}

// Health pings the server
func (d *Database) Health(ctx context.Context) error {
	return d.Client.Ping(ctx, nil)
}

// Close closes the database connection
func (d *Database) Close(ctx context.Context) error {
	return d.Client.Disconnect(ctx)
}

// MatchesCollection is the collection pipeline results are stored in
const MatchesCollection = "matches"

// CreateIndexes creates necessary indexes for optimal performance
func (d *Database) CreateIndexes(ctx context.Context) error {
	matches := d.DB.Collection(MatchesCollection)

	// Handle potential index conflicts by dropping conflicting indexes first
	err := d.handleIndexConflicts(ctx, matches)
	if err != nil {
		return err
	}

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "raw_title", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "recording_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "release_id", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "cover_art", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "updated_at", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "cover_art_checked_at", Value: 1}, {Key: "updated_at", Value: 1}},
		},
	}

	_, err = matches.Indexes().CreateMany(ctx, indexes)
	return err
}

// handleIndexConflicts drops a unique recording_id index. Different uploads
// can resolve to the same recording, so that index must not be unique.
func (d *Database) handleIndexConflicts(ctx context.Context, collection *mongo.Collection) error {
	cursor, err := collection.Indexes().List(ctx)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var existingIndexes []bson.M
	if err = cursor.All(ctx, &existingIndexes); err != nil {
		return err
	}

	for _, index := range existingIndexes {
		if indexName, ok := index["name"].(string); ok && indexName == "recording_id_1" {
			if unique, exists := index["unique"]; exists && unique == true {
				if _, err := collection.Indexes().DropOne(ctx, indexName); err != nil {
					return err
				}
				break
			}
		}
	}

	return nil
}
