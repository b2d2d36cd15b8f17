// Package mongo provides MongoDB implementations of the reconciliation
// repositories. Payment transactions, logbook entries, and confirmed matches
// are document shaped and queried by user and time window, which suits a
// document store better than the relational ledger tables.
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
	// PaymentCollectionName is the name of the payment transactions collection
	PaymentCollectionName = "payment_transactions"
)

// PaymentRepository implements the reconciliation.TransactionSource interface for MongoDB
type PaymentRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewPaymentRepository creates a new MongoDB payment transaction repository
func NewPaymentRepository(logger *slog.Logger, db *mongo.Database) reconciliation.TransactionSource {
	return &PaymentRepository{
		db:     db,
		logger: logger,
	}
}

// Create records a gateway transaction for later reconciliation.
// Duplicate IDs are ignored so gateway event redelivery stays harmless.
func (r *PaymentRepository) Create(ctx context.Context, transaction *reconciliation.PaymentTransaction) error {
	collection := r.db.Collection(PaymentCollectionName)

	_, err := collection.InsertOne(ctx, transaction)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil // Already recorded, redelivery
		}
		r.logger.Error("Failed to create payment transaction",
			"transaction_id", transaction.ID,
			"error", err)
		return fmt.Errorf("failed to create payment transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a payment transaction by its identifier.
// Returns ErrTransactionNotFound if no transaction exists.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*reconciliation.PaymentTransaction, error) {
	collection := r.db.Collection(PaymentCollectionName)

	filter := bson.M{"_id": id}
	var transaction reconciliation.PaymentTransaction
	err := collection.FindOne(ctx, filter).Decode(&transaction)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reconciliation.ErrTransactionNotFound{ID: id}
		}
		r.logger.Error("Failed to get payment transaction",
			"transaction_id", id,
			"error", err)
		return nil, fmt.Errorf("failed to get payment transaction: %w", err)
	}

	return &transaction, nil
}

// ListUnmatched retrieves up to limit unmatched transactions for a user within
// the window, oldest first so earlier transactions get matching priority.
func (r *PaymentRepository) ListUnmatched(ctx context.Context, userID string, start, end time.Time, limit int) ([]*reconciliation.PaymentTransaction, error) {
	collection := r.db.Collection(PaymentCollectionName)

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
		r.logger.Error("Failed to list unmatched transactions",
			"user_id", userID,
			"error", err)
		return nil, fmt.Errorf("failed to list unmatched transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var transactions []*reconciliation.PaymentTransaction
	if err := cursor.All(ctx, &transactions); err != nil {
		r.logger.Error("Failed to decode payment transactions",
			"user_id", userID,
			"error", err)
		return nil, fmt.Errorf("failed to decode payment transactions: %w", err)
	}

	return transactions, nil
}

// MarkMatched flips the transaction's matched flag. The filter requires
// matched=false, so a transaction consumed concurrently surfaces as
// ErrAlreadyMatched instead of being silently re-matched.
func (r *PaymentRepository) MarkMatched(ctx context.Context, id string, matchID string) error {
	collection := r.db.Collection(PaymentCollectionName)

	filter := bson.M{"_id": id, "matched": false}
	update := bson.M{
		"$set": bson.M{
			"matched":  true,
			"match_id": matchID,
		},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to mark transaction matched",
			"transaction_id", id,
			"match_id", matchID,
			"error", err)
		return fmt.Errorf("failed to mark transaction matched: %w", err)
	}

	if result.MatchedCount == 0 {
		// Either the transaction is missing or it was matched concurrently.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return reconciliation.ErrAlreadyMatched{TransactionID: id}
	}

	return nil
}

// CountByUser returns total and matched transaction counts for a user within the window
func (r *PaymentRepository) CountByUser(ctx context.Context, userID string, start, end time.Time) (int64, int64, error) {
	collection := r.db.Collection(PaymentCollectionName)

	windowFilter := bson.M{
		"user_id": userID,
		"occurred_at": bson.M{
			"$gte": start,
			"$lte": end,
		},
	}

	total, err := collection.CountDocuments(ctx, windowFilter)
	if err != nil {
		r.logger.Error("Failed to count transactions",
			"user_id", userID,
			"error", err)
		return 0, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	matchedFilter := bson.M{
		"user_id": userID,
		"matched": true,
		"occurred_at": bson.M{
			"$gte": start,
			"$lte": end,
		},
	}

	matched, err := collection.CountDocuments(ctx, matchedFilter)
	if err != nil {
		r.logger.Error("Failed to count matched transactions",
			"user_id", userID,
			"error", err)
		return 0, 0, fmt.Errorf("failed to count matched transactions: %w", err)
	}

	return total, matched, nil
}
