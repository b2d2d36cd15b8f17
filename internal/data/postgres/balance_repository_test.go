package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/corepay-ledger/internal/domain/balance"
	"github.com/corepay-ledger/internal/domain/shared"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestBalanceRepository_GetByEntityID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &BalanceRepository{querier: mock, logger: logger}
	entityID := "company-42"
	now := time.Now()

	expectedRecord := &balance.Record{
		EntityID:      entityID,
		EntityType:    shared.EntityTypeCompany,
		Balance:       1500,
		TotalCredited: 2000,
		TotalDebited:  500,
		Currency:      "EUR",
		Version:       3,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	query := `
		SELECT entity_id, entity_type, balance, total_credited, total_debited, currency, version, created_at, updated_at
		FROM balances
		WHERE entity_id = \$1
	`
	rows := pgxmock.NewRows([]string{"entity_id", "entity_type", "balance", "total_credited", "total_debited", "currency", "version", "created_at", "updated_at"}).
		AddRow(expectedRecord.EntityID, expectedRecord.EntityType, expectedRecord.Balance, expectedRecord.TotalCredited, expectedRecord.TotalDebited, expectedRecord.Currency, expectedRecord.Version, expectedRecord.CreatedAt, expectedRecord.UpdatedAt)

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(entityID).WillReturnRows(rows)

		rec, err := repo.GetByEntityID(ctx, entityID)
		assert.NoError(t, err)
		assert.Equal(t, expectedRecord, rec)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(entityID).WillReturnError(pgx.ErrNoRows)

		rec, err := repo.GetByEntityID(ctx, entityID)
		assert.Error(t, err)
		assert.Nil(t, rec)
		var notFoundErr balance.ErrRecordNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, entityID, notFoundErr.EntityID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs(entityID).WillReturnError(dbErr)

		rec, err := repo.GetByEntityID(ctx, entityID)
		assert.Error(t, err)
		assert.Nil(t, rec)
		assert.Contains(t, err.Error(), "failed to get balance record")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBalanceRepository_Update(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &BalanceRepository{querier: mock, logger: logger}
	now := time.Now()
	recToUpdate := &balance.Record{
		EntityID:      "employee-7",
		EntityType:    shared.EntityTypeEmployee,
		Balance:       800,
		TotalCredited: 1000,
		TotalDebited:  200,
		Currency:      "EUR",
		Version:       2, // New version after update
		UpdatedAt:     now,
	}
	previousVersion := recToUpdate.Version - 1

	query := `
		UPDATE balances
		SET balance = \$1, total_credited = \$2, total_debited = \$3, version = \$4, updated_at = \$5
		WHERE entity_id = \$6 AND version = \$7
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(recToUpdate.Balance, recToUpdate.TotalCredited, recToUpdate.TotalDebited, recToUpdate.Version, recToUpdate.UpdatedAt, recToUpdate.EntityID, previousVersion).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Update(ctx, recToUpdate)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent modification", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(recToUpdate.Balance, recToUpdate.TotalCredited, recToUpdate.TotalDebited, recToUpdate.Version, recToUpdate.UpdatedAt, recToUpdate.EntityID, previousVersion).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0)) // 0 rows affected

		err := repo.Update(ctx, recToUpdate)
		assert.Error(t, err)
		var concurrentModErr balance.ErrConcurrentModification
		assert.ErrorAs(t, err, &concurrentModErr)
		assert.Equal(t, recToUpdate.EntityID, concurrentModErr.EntityID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("update db error")
		mock.ExpectExec(query).
			WithArgs(recToUpdate.Balance, recToUpdate.TotalCredited, recToUpdate.TotalDebited, recToUpdate.Version, recToUpdate.UpdatedAt, recToUpdate.EntityID, previousVersion).
			WillReturnError(dbErr)

		err := repo.Update(ctx, recToUpdate)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update balance record")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBalanceRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &BalanceRepository{querier: mock, logger: logger}
	entityID := "company-42"
	now := time.Now()

	expectedRecord := &balance.Record{
		EntityID:      entityID,
		EntityType:    shared.EntityTypeCompany,
		Balance:       2000,
		TotalCredited: 2000,
		TotalDebited:  0,
		Currency:      "EUR",
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	insertQuery := `
		INSERT INTO balances \(entity_id, entity_type, balance, total_credited, total_debited, currency, version, created_at, updated_at\)
		VALUES \(\$1, \$2, 0, 0, 0, \$3, 1, NOW\(\), NOW\(\)\)
		ON CONFLICT \(entity_id\) DO NOTHING
	`
	lockQuery := `
		SELECT entity_id, entity_type, balance, total_credited, total_debited, currency, version, created_at, updated_at
		FROM balances
		WHERE entity_id = \$1
		FOR UPDATE
	`
	rows := pgxmock.NewRows([]string{"entity_id", "entity_type", "balance", "total_credited", "total_debited", "currency", "version", "created_at", "updated_at"}).
		AddRow(expectedRecord.EntityID, expectedRecord.EntityType, expectedRecord.Balance, expectedRecord.TotalCredited, expectedRecord.TotalDebited, expectedRecord.Currency, expectedRecord.Version, expectedRecord.CreatedAt, expectedRecord.UpdatedAt)

	t.Run("success for existing record", func(t *testing.T) {
		mock.ExpectExec(insertQuery).
			WithArgs(entityID, shared.EntityTypeCompany, "EUR").
			WillReturnResult(pgxmock.NewResult("INSERT", 0)) // row already exists
		mock.ExpectQuery(lockQuery).WithArgs(entityID).WillReturnRows(rows)

		rec, err := repo.LockForUpdate(ctx, entityID, shared.EntityTypeCompany, "EUR")
		assert.NoError(t, err)
		assert.Equal(t, expectedRecord, rec)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero record created for new entity", func(t *testing.T) {
		zeroRows := pgxmock.NewRows([]string{"entity_id", "entity_type", "balance", "total_credited", "total_debited", "currency", "version", "created_at", "updated_at"}).
			AddRow("employee-new", shared.EntityTypeEmployee, int64(0), int64(0), int64(0), "EUR", 1, now, now)

		mock.ExpectExec(insertQuery).
			WithArgs("employee-new", shared.EntityTypeEmployee, "EUR").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectQuery(lockQuery).WithArgs("employee-new").WillReturnRows(zeroRows)

		rec, err := repo.LockForUpdate(ctx, "employee-new", shared.EntityTypeEmployee, "EUR")
		assert.NoError(t, err)
		assert.Equal(t, int64(0), rec.Balance)
		assert.Equal(t, 1, rec.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert db error", func(t *testing.T) {
		dbErr := errors.New("insert db error")
		mock.ExpectExec(insertQuery).
			WithArgs(entityID, shared.EntityTypeCompany, "EUR").
			WillReturnError(dbErr)

		rec, err := repo.LockForUpdate(ctx, entityID, shared.EntityTypeCompany, "EUR")
		assert.Error(t, err)
		assert.Nil(t, rec)
		assert.Contains(t, err.Error(), "failed to ensure balance row")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lock db error", func(t *testing.T) {
		dbErr := errors.New("lock db error")
		mock.ExpectExec(insertQuery).
			WithArgs(entityID, shared.EntityTypeCompany, "EUR").
			WillReturnResult(pgxmock.NewResult("INSERT", 0))
		mock.ExpectQuery(lockQuery).WithArgs(entityID).WillReturnError(dbErr)

		rec, err := repo.LockForUpdate(ctx, entityID, shared.EntityTypeCompany, "EUR")
		assert.Error(t, err)
		assert.Nil(t, rec)
		assert.Contains(t, err.Error(), "failed to lock balance record")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBalanceRepository_WithTx(t *testing.T) {
	logger := newTestLogger()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	originalRepo := &BalanceRepository{querier: mockPool, logger: logger}

	mockPool.ExpectBegin()
	pgxTx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	txRepo := originalRepo.WithTx(pgxTx)

	assert.NotNil(t, txRepo)
	assert.Equal(t, originalRepo.logger, txRepo.(*BalanceRepository).logger)
	assert.Equal(t, pgxTx, txRepo.(*BalanceRepository).querier, "Querier in new repo should be the transaction")

	assert.NoError(t, mockPool.ExpectationsWereMet())
}
