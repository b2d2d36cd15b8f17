package processor

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"
)

// WorkerPoolEventService fans event processing out over a bounded worker
// pool. The caller still blocks for the result, so Kafka offsets are only
// committed once the event is fully applied.
type WorkerPoolEventService struct {
	baseService PaymentEventService
	pool        *ants.Pool
	logger      *slog.Logger
}

// NewWorkerPoolEventService wraps a PaymentEventService with a worker pool
func NewWorkerPoolEventService(
	baseService PaymentEventService,
	size int,
	logger *slog.Logger,
) (*WorkerPoolEventService, error) {
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolEventService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ProcessEvent submits the event to the worker pool and waits for the result
func (s *WorkerPoolEventService) ProcessEvent(ctx context.Context, event *PaymentEvent) error {
	resultChan := make(chan error, 1)

	eventCopy := *event
	err := s.pool.Submit(func() {
		resultChan <- s.baseService.ProcessEvent(ctx, &eventCopy)
	})
	if err != nil {
		s.logger.Error("Failed to submit payment event to worker pool",
			"event_id", event.EventID,
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool
func (s *WorkerPoolEventService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool
func (s *WorkerPoolEventService) Running() int {
	return s.pool.Running()
}
