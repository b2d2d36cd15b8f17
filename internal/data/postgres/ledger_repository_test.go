package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corepay-ledger/internal/domain/ledger"
	"github.com/corepay-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ledgerColumns = "id, reference, entity_id, entity_type, type, amount, currency, purpose, previous_balance, new_balance, created_at"

func sampleTransaction(entityID string) *ledger.Transaction {
	now := time.Now()
	return &ledger.Transaction{
		ID:              uuid.New(),
		Reference:       "gw-evt-001",
		EntityID:        entityID,
		EntityType:      shared.EntityTypeEmployee,
		Type:            shared.TransactionTypeCredit,
		Amount:          2500,
		Currency:        "EUR",
		Purpose:         "lunch benefit",
		PreviousBalance: 0,
		NewBalance:      2500,
		CreatedAt:       now,
	}
}

func transactionRows(txs ...*ledger.Transaction) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id", "reference", "entity_id", "entity_type", "type", "amount", "currency", "purpose", "previous_balance", "new_balance", "created_at"})
	for _, tx := range txs {
		rows.AddRow(tx.ID, tx.Reference, tx.EntityID, tx.EntityType, tx.Type, tx.Amount, tx.Currency, tx.Purpose, tx.PreviousBalance, tx.NewBalance, tx.CreatedAt)
	}
	return rows
}

func TestLedgerRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: logger}
	tx := sampleTransaction("employee-7")

	query := `
		INSERT INTO ledger_transactions \(id, reference, entity_id, entity_type, type, amount, currency, purpose, previous_balance, new_balance, created_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10, \$11\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(tx.ID, tx.Reference, tx.EntityID, tx.EntityType, tx.Type, tx.Amount, tx.Currency, tx.Purpose, tx.PreviousBalance, tx.NewBalance, tx.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, tx)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate reference", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(tx.ID, tx.Reference, tx.EntityID, tx.EntityType, tx.Type, tx.Amount, tx.Currency, tx.Purpose, tx.PreviousBalance, tx.NewBalance, tx.CreatedAt).
			WillReturnError(&pgconn.PgError{Code: uniqueViolationCode})

		err := repo.Create(ctx, tx)
		assert.Error(t, err)
		var dupErr ledger.ErrDuplicateTransaction
		assert.ErrorAs(t, err, &dupErr)
		assert.Equal(t, tx.EntityID, dupErr.EntityID)
		assert.Equal(t, tx.Reference, dupErr.Reference)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("insert db error")
		mock.ExpectExec(query).
			WithArgs(tx.ID, tx.Reference, tx.EntityID, tx.EntityType, tx.Type, tx.Amount, tx.Currency, tx.Purpose, tx.PreviousBalance, tx.NewBalance, tx.CreatedAt).
			WillReturnError(dbErr)

		err := repo.Create(ctx, tx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create ledger transaction")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: logger}
	expected := sampleTransaction("employee-7")

	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_transactions
		WHERE id = \$1
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnRows(transactionRows(expected))

		tx, err := repo.GetByID(ctx, expected.ID)
		assert.NoError(t, err)
		assert.Equal(t, expected, tx)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnError(pgx.ErrNoRows)

		tx, err := repo.GetByID(ctx, expected.ID)
		assert.Error(t, err)
		assert.Nil(t, tx)
		var notFoundErr ledger.ErrTransactionNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, expected.ID, notFoundErr.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_GetByReference(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: logger}
	expected := sampleTransaction("employee-7")

	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_transactions
		WHERE entity_id = \$1 AND reference = \$2
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(expected.EntityID, expected.Reference).WillReturnRows(transactionRows(expected))

		tx, err := repo.GetByReference(ctx, expected.EntityID, expected.Reference)
		assert.NoError(t, err)
		assert.Equal(t, expected, tx)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(expected.EntityID, expected.Reference).WillReturnError(pgx.ErrNoRows)

		tx, err := repo.GetByReference(ctx, expected.EntityID, expected.Reference)
		assert.NoError(t, err) // No error, just nil transaction
		assert.Nil(t, tx)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs(expected.EntityID, expected.Reference).WillReturnError(dbErr)

		tx, err := repo.GetByReference(ctx, expected.EntityID, expected.Reference)
		assert.Error(t, err)
		assert.Nil(t, tx)
		assert.Contains(t, err.Error(), "failed to get transaction by reference")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_ListByEntity(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: logger}
	entityID := "employee-7"
	first := sampleTransaction(entityID)
	second := sampleTransaction(entityID)
	second.Reference = "gw-evt-002"

	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_transactions
		WHERE entity_id = \$1
		ORDER BY created_at DESC
		LIMIT \$2 OFFSET \$3
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(entityID, 10, 0).WillReturnRows(transactionRows(second, first))

		txs, err := repo.ListByEntity(ctx, entityID, 10, 0)
		assert.NoError(t, err)
		require.Len(t, txs, 2)
		assert.Equal(t, second.Reference, txs[0].Reference)
		assert.Equal(t, first.Reference, txs[1].Reference)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(entityID, 10, 0).WillReturnRows(transactionRows())

		txs, err := repo.ListByEntity(ctx, entityID, 10, 0)
		assert.NoError(t, err)
		assert.Empty(t, txs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("list db error")
		mock.ExpectQuery(query).WithArgs(entityID, 10, 0).WillReturnError(dbErr)

		txs, err := repo.ListByEntity(ctx, entityID, 10, 0)
		assert.Error(t, err)
		assert.Nil(t, txs)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
