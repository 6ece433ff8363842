package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"songmeta/internal/logging"
	"songmeta/internal/models"
)

// mongoMatchRepository implements MatchRepository using MongoDB
type mongoMatchRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoMatchRepository creates a new MongoDB-backed match repository
func NewMongoMatchRepository(db *models.Database, logger *slog.Logger) MatchRepository {
	return &mongoMatchRepository{
		collection: db.DB.Collection(models.MatchesCollection),
		logger:     logging.OrDiscard(logger),
	}
}

// Save creates a new match or replaces an existing one
func (r *mongoMatchRepository) Save(ctx context.Context, match *models.Match) error {
	now := time.Now()
	match.SchemaVersion = models.CurrentSchemaVersion
	match.UpdatedAt = now

	if match.ID.IsZero() {
		if match.CreatedAt.IsZero() {
			match.CreatedAt = now
		}
		result, err := r.collection.InsertOne(ctx, match)
		if err != nil {
			return fmt.Errorf("failed to insert match: %w", err)
		}
		match.ID = result.InsertedID.(primitive.ObjectID)
		return nil
	}

	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": match.ID}, match)
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	return nil
}

// Update replaces an existing match
func (r *mongoMatchRepository) Update(ctx context.Context, match *models.Match) error {
	if match.ID.IsZero() {
		return fmt.Errorf("match ID is required for update")
	}

	match.UpdatedAt = time.Now()
	match.SchemaVersion = models.CurrentSchemaVersion

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": match.ID}, match)
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("match %s not found", match.ID.Hex())
	}
	return nil
}

// FindByID finds a match by its ObjectID
func (r *mongoMatchRepository) FindByID(ctx context.Context, id string) (*models.Match, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidID, id)
	}

	var match models.Match
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&match)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find match by ID: %w", err)
	}

	r.handleSchemaEvolution(&match)
	return &match, nil
}

// FindByRawTitle finds the newest match stored for a raw title
func (r *mongoMatchRepository) FindByRawTitle(ctx context.Context, rawTitle string) (*models.Match, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var match models.Match
	err := r.collection.FindOne(ctx, bson.M{"raw_title": rawTitle}, opts).Decode(&match)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find match by raw title: %w", err)
	}

	r.handleSchemaEvolution(&match)
	return &match, nil
}

// FindMissingCoverArt finds matches that have a release but no cover art.
// Never-checked matches come first, then the ones checked longest ago.
func (r *mongoMatchRepository) FindMissingCoverArt(ctx context.Context, limit int) ([]*models.Match, error) {
	filter := bson.M{
		"cover_art": bson.M{"$exists": false},
		"$or": []bson.M{
			{"release_id": bson.M{"$nin": []interface{}{nil, ""}}},
			{"release_group_id": bson.M{"$nin": []interface{}{nil, ""}}},
		},
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "cover_art_checked_at", Value: 1},
		{Key: "updated_at", Value: 1},
	})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find matches without cover art: %w", err)
	}
	defer cursor.Close(ctx)

	var matches []*models.Match
	for cursor.Next(ctx) {
		var match models.Match
		if err := cursor.Decode(&match); err != nil {
			r.logger.Error("Failed to decode match", "error", err)
			continue
		}
		r.handleSchemaEvolution(&match)
		matches = append(matches, &match)
	}

	return matches, cursor.Err()
}

// Count returns the total number of stored matches
func (r *mongoMatchRepository) Count(ctx context.Context) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return count, nil
}

// handleSchemaEvolution upgrades documents written by older versions in memory.
// Stored documents are rewritten the next time they are saved.
func (r *mongoMatchRepository) handleSchemaEvolution(match *models.Match) {
	if match.SchemaVersion >= models.CurrentSchemaVersion {
		return
	}

	switch match.SchemaVersion {
	case 0:
		// Version 0 documents predate the stage field
		if match.Stage == "" {
			match.Stage = "unknown"
		}
		fallthrough
	default:
		match.SchemaVersion = models.CurrentSchemaVersion
	}
}
