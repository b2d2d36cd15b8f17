package outbox

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corepay-ledger/internal/domain/ledger"
	"github.com/corepay-ledger/internal/domain/shared"
)

func sampleTransaction() *ledger.Transaction {
	return &ledger.Transaction{
		ID:              uuid.New(),
		Reference:       "pay-2024-001",
		EntityID:        "emp-1",
		EntityType:      shared.EntityTypeEmployee,
		Type:            shared.TransactionTypeCredit,
		Amount:          1500,
		Currency:        "EUR",
		PreviousBalance: 0,
		NewBalance:      1500,
		CreatedAt:       time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestNewMessage(t *testing.T) {
	tx := sampleTransaction()

	msg, err := NewMessage(tx)
	require.NoError(t, err)

	assert.Equal(t, tx.ID, msg.TransactionID)
	assert.Equal(t, tx.EntityID, msg.EntityID)
	assert.Equal(t, shared.OutboxStatusPending, msg.Status)
	assert.Zero(t, msg.Attempts)
	assert.Nil(t, msg.LastAttemptAt)
	assert.NotEmpty(t, msg.Payload)
}

func TestMessage_GetLedgerTransaction(t *testing.T) {
	tx := sampleTransaction()
	msg, err := NewMessage(tx)
	require.NoError(t, err)

	decoded, err := msg.GetLedgerTransaction()
	require.NoError(t, err)
	assert.Equal(t, tx.ID, decoded.ID)
	assert.Equal(t, tx.Reference, decoded.Reference)
	assert.Equal(t, tx.Amount, decoded.Amount)
	assert.Equal(t, tx.NewBalance, decoded.NewBalance)

	t.Run("Corrupt Payload", func(t *testing.T) {
		msg.Payload = []byte("{not json")
		decoded, err := msg.GetLedgerTransaction()
		assert.Error(t, err)
		assert.Nil(t, decoded)
	})
}

func TestMessage_StateTransitions(t *testing.T) {
	msg, err := NewMessage(sampleTransaction())
	require.NoError(t, err)

	msg.IncrementAttempts()
	assert.Equal(t, 1, msg.Attempts)
	require.NotNil(t, msg.LastAttemptAt)

	msg.MarkAsProcessed()
	assert.Equal(t, shared.OutboxStatusProcessed, msg.Status)

	msg.MarkAsFailed()
	assert.Equal(t, shared.OutboxStatusFailedToPublish, msg.Status)
}
