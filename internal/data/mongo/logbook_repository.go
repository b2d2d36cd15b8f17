package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/corepay-ledger/internal/domain/reconciliation"
)

const (
	// LogbookCollectionName is the name of the logbook entries collection
	LogbookCollectionName = "logbook_entries"
)

// LogbookRepository implements the reconciliation.LogbookSource interface for MongoDB
type LogbookRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewLogbookRepository creates a new MongoDB logbook entry repository
func NewLogbookRepository(logger *slog.Logger, db *mongo.Database) reconciliation.LogbookSource {
	return &LogbookRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a logbook entry by its identifier.
// Returns ErrEntryNotFound if no entry exists.
func (r *LogbookRepository) GetByID(ctx context.Context, id string) (*reconciliation.LogbookEntry, error) {
	collection := r.db.Collection(LogbookCollectionName)

	filter := bson.M{"_id": id}
	var entry reconciliation.LogbookEntry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reconciliation.ErrEntryNotFound{ID: id}
		}
		r.logger.Error("Failed to get logbook entry",
			"entry_id", id,
			"error", err)
		return nil, fmt.Errorf("failed to get logbook entry: %w", err)
	}

	return &entry, nil
}

// ListUnmatched retrieves up to limit unmatched entries for a user within
// the window, oldest first
func (r *LogbookRepository) ListUnmatched(ctx context.Context, userID string, start, end time.Time, limit int) ([]*reconciliation.LogbookEntry, error) {
	collection := r.db.Collection(LogbookCollectionName)

	filter := bson.M{
		"user_id": userID,
		"matched": false,
		"occurred_at": bson.M{
			"$gte": start,
			"$lte": end,
		},
	}
	opts := options.Find().
		SetSort(bson.M{"occurred_at": 1}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list unmatched logbook entries",
			"user_id", userID,
			"error", err)
		return nil, fmt.Errorf("failed to list unmatched logbook entries: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*reconciliation.LogbookEntry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode logbook entries",
			"user_id", userID,
			"error", err)
		return nil, fmt.Errorf("failed to decode logbook entries: %w", err)
	}

	return entries, nil
}

// MarkMatched flips the entry's matched flag, rejecting entries that were
// consumed concurrently
func (r *LogbookRepository) MarkMatched(ctx context.Context, id string, matchID string) error {
	collection := r.db.Collection(LogbookCollectionName)

	filter := bson.M{"_id": id, "matched": false}
	update := bson.M{
		"$set": bson.M{
			"matched":  true,
			"match_id": matchID,
		},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to mark logbook entry matched",
			"entry_id", id,
			"match_id", matchID,
			"error", err)
		return fmt.Errorf("failed to mark logbook entry matched: %w", err)
	}

	if result.MatchedCount == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return reconciliation.ErrAlreadyMatched{LogbookEntryID: id}
	}

	return nil
}
