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
	// MatchCollectionName is the name of the reconciliation matches collection
	MatchCollectionName = "reconciliation_matches"
)

// MatchRepository implements the reconciliation.MatchRepository interface for MongoDB
type MatchRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewMatchRepository creates a new MongoDB match repository
func NewMatchRepository(logger *slog.Logger, db *mongo.Database) reconciliation.MatchRepository {
	return &MatchRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a confirmed match. Unique indexes on transaction_id and
// logbook_entry_id guarantee each side belongs to at most one match, so a
// duplicate key error means the pairing lost a race and surfaces as
// ErrAlreadyMatched.
func (r *MatchRepository) Create(ctx context.Context, match *reconciliation.Match) error {
	collection := r.db.Collection(MatchCollectionName)

	_, err := collection.InsertOne(ctx, match)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return reconciliation.ErrAlreadyMatched{
				TransactionID:  match.TransactionID,
				LogbookEntryID: match.LogbookEntryID,
			}
		}
		r.logger.Error("Failed to create match",
			"transaction_id", match.TransactionID,
			"logbook_entry_id", match.LogbookEntryID,
			"error", err)
		return fmt.Errorf("failed to create match: %w", err)
	}

	return nil
}

// GetByTransactionID retrieves the match that consumed a transaction.
// Returns nil if the transaction is not part of any match.
func (r *MatchRepository) GetByTransactionID(ctx context.Context, transactionID string) (*reconciliation.Match, error) {
	collection := r.db.Collection(MatchCollectionName)

	filter := bson.M{"transaction_id": transactionID}
	var match reconciliation.Match
	err := collection.FindOne(ctx, filter).Decode(&match)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil // Transaction has no match
		}
		r.logger.Error("Failed to get match by transaction",
			"transaction_id", transactionID,
			"error", err)
		return nil, fmt.Errorf("failed to get match by transaction: %w", err)
	}

	return &match, nil
}

// ListByUser retrieves a user's matches within the window, newest first
func (r *MatchRepository) ListByUser(ctx context.Context, userID string, start, end time.Time) ([]*reconciliation.Match, error) {
	collection := r.db.Collection(MatchCollectionName)

	filter := bson.M{
		"user_id": userID,
		"matched_at": bson.M{
			"$gte": start,
			"$lte": end,
		},
	}
	opts := options.Find().SetSort(bson.M{"matched_at": -1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list matches",
			"user_id", userID,
			"error", err)
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer cursor.Close(ctx)

	var matches []*reconciliation.Match
	if err := cursor.All(ctx, &matches); err != nil {
		r.logger.Error("Failed to decode matches",
			"user_id", userID,
			"error", err)
		return nil, fmt.Errorf("failed to decode matches: %w", err)
	}

	return matches, nil
}
