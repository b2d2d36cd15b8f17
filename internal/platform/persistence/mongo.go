package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/corepay-ledger/internal/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoDB struct {
	logger   *slog.Logger
	client   *mongo.Client
	database *mongo.Database
}

func NewMongoDB(ctx context.Context, logger *slog.Logger, cfg *config.MongoDBConfig) (*MongoDB, error) {
	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(cfg.Database)

	return &MongoDB{
		logger:   logger,
		client:   client,
		database: database,
	}, nil
}

func (m *MongoDB) Database() *mongo.Database {
	return m.database
}

func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// EnsureReconciliationIndexes creates the unique indexes that back the
// one-active-match invariant, plus the lookup indexes the matcher queries use.
// Safe to call on every startup.
func (m *MongoDB) EnsureReconciliationIndexes(ctx context.Context) error {
	matchIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "transaction_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "logbook_entry_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "matched_at", Value: -1}},
		},
	}
	if _, err := m.database.Collection("reconciliation_matches").Indexes().CreateMany(ctx, matchIndexes); err != nil {
		return fmt.Errorf("failed to create match indexes: %w", err)
	}

	unmatchedIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "matched", Value: 1}, {Key: "occurred_at", Value: 1}},
	}
	for _, collection := range []string{"payment_transactions", "logbook_entries"} {
		if _, err := m.database.Collection(collection).Indexes().CreateOne(ctx, unmatchedIndex); err != nil {
			return fmt.Errorf("failed to create %s index: %w", collection, err)
		}
	}

	m.logger.Info("Reconciliation indexes ensured")
	return nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	m.logger.Info("Closed MongoDB connection")
	return nil
}
