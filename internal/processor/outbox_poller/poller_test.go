package outbox_poller

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/corepay-ledger/internal/config"
	"github.com/corepay-ledger/internal/domain/outbox"
	"github.com/corepay-ledger/internal/domain/shared"
	"github.com/corepay-ledger/internal/platform/messaging/producers"
)

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	m.Called(tx)
	return m
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishEvent(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, original []byte, reason producers.DeadLetterReason) error {
	args := m.Called(ctx, key, original, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newTestPoller(repo outbox.Repository, publisher EventPublisher, maxRetries int) *Poller {
	logger := slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
	return NewPoller(&config.OutboxConfig{
		PollingInterval:  time.Second,
		BatchSize:        10,
		MaxRetryAttempts: maxRetries,
	}, repo, publisher, nil, logger)
}

func pendingMessage(id int64, attempts int) *outbox.Message {
	return &outbox.Message{
		ID:            id,
		TransactionID: uuid.New(),
		EntityID:      "emp-1",
		Payload:       json.RawMessage(`{}`),
		Status:        shared.OutboxStatusPending,
		Attempts:      attempts,
		CreatedAt:     time.Now(),
	}
}

func TestPoller_ProcessPendingMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("Publishes All Pending", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		publisher := new(MockEventPublisher)
		poller := newTestPoller(repo, publisher, 5)

		messages := []*outbox.Message{pendingMessage(1, 0), pendingMessage(2, 0)}
		repo.On("GetPending", ctx, 10).Return(messages, nil)
		publisher.On("PublishEvent", ctx, messages[0]).Return(nil)
		publisher.On("PublishEvent", ctx, messages[1]).Return(nil)

		err := poller.processPendingMessages(ctx)
		assert.NoError(t, err)
		publisher.AssertExpectations(t)
		repo.AssertNotCalled(t, "IncrementAttempts")
	})

	t.Run("Empty Batch", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		publisher := new(MockEventPublisher)
		poller := newTestPoller(repo, publisher, 5)

		repo.On("GetPending", ctx, 10).Return([]*outbox.Message{}, nil)

		err := poller.processPendingMessages(ctx)
		assert.NoError(t, err)
		publisher.AssertNotCalled(t, "PublishEvent")
	})

	t.Run("Fetch Failure", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		publisher := new(MockEventPublisher)
		poller := newTestPoller(repo, publisher, 5)

		repo.On("GetPending", ctx, 10).Return(nil, assert.AnError)

		err := poller.processPendingMessages(ctx)
		assert.Error(t, err)
	})

	t.Run("Publish Failure Increments Attempts", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		publisher := new(MockEventPublisher)
		poller := newTestPoller(repo, publisher, 5)

		msg := pendingMessage(1, 0)
		repo.On("GetPending", ctx, 10).Return([]*outbox.Message{msg}, nil)
		publisher.On("PublishEvent", ctx, msg).Return(assert.AnError)
		repo.On("IncrementAttempts", ctx, int64(1)).Return(nil)

		err := poller.processPendingMessages(ctx)
		assert.NoError(t, err)
		repo.AssertCalled(t, "IncrementAttempts", ctx, int64(1))
		repo.AssertNotCalled(t, "UpdateStatus", ctx, int64(1), shared.OutboxStatusFailedToPublish)
	})

	t.Run("Max Retries Marks Failed", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		publisher := new(MockEventPublisher)
		poller := newTestPoller(repo, publisher, 3)

		// this attempt is the third and final one
		msg := pendingMessage(1, 2)
		repo.On("GetPending", ctx, 10).Return([]*outbox.Message{msg}, nil)
		publisher.On("PublishEvent", ctx, msg).Return(assert.AnError)
		repo.On("IncrementAttempts", ctx, int64(1)).Return(nil)
		repo.On("UpdateStatus", ctx, int64(1), shared.OutboxStatusFailedToPublish).Return(nil)

		err := poller.processPendingMessages(ctx)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("Exhausted Message Is Dead Lettered", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		publisher := new(MockEventPublisher)
		dlq := new(MockDeadLetterPublisher)
		poller := newTestPoller(repo, publisher, 3)
		poller.dlq = dlq

		msg := pendingMessage(1, 2)
		repo.On("GetPending", ctx, 10).Return([]*outbox.Message{msg}, nil)
		publisher.On("PublishEvent", ctx, msg).Return(assert.AnError)
		repo.On("IncrementAttempts", ctx, int64(1)).Return(nil)
		repo.On("UpdateStatus", ctx, int64(1), shared.OutboxStatusFailedToPublish).Return(nil)
		dlq.On("PublishToDLQ", ctx, msg.TransactionID.String(), []byte(msg.Payload), producers.ReasonPublishExhausted).Return(nil)

		err := poller.processPendingMessages(ctx)
		assert.NoError(t, err)
		dlq.AssertExpectations(t)
	})

	t.Run("One Failure Does Not Block The Batch", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		publisher := new(MockEventPublisher)
		poller := newTestPoller(repo, publisher, 5)

		failing := pendingMessage(1, 0)
		healthy := pendingMessage(2, 0)
		repo.On("GetPending", ctx, 10).Return([]*outbox.Message{failing, healthy}, nil)
		publisher.On("PublishEvent", ctx, failing).Return(assert.AnError)
		publisher.On("PublishEvent", ctx, healthy).Return(nil)
		repo.On("IncrementAttempts", ctx, int64(1)).Return(nil)

		err := poller.processPendingMessages(ctx)
		assert.NoError(t, err)
		publisher.AssertExpectations(t)
	})
}

func TestPoller_StartStopsOnContextCancel(t *testing.T) {
	repo := new(MockOutboxRepository)
	publisher := new(MockEventPublisher)
	poller := newTestPoller(repo, publisher, 5)
	poller.pollInterval = 10 * time.Millisecond

	repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
}
