package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/corepay-ledger/internal/config"
	"github.com/corepay-ledger/internal/domain/reconciliation"
)

// Service runs automatic reconciliation batches and handles manual matching
type Service struct {
	transactions reconciliation.TransactionSource
	logbook      reconciliation.LogbookSource
	matches      reconciliation.MatchRepository
	scorer       *Scorer
	pool         *ants.Pool
	cfg          config.ReconciliationConfig
	logger       *slog.Logger
}

// NewService creates the reconciliation service with its own scoring pool
func NewService(
	logger *slog.Logger,
	cfg config.ReconciliationConfig,
	poolSize int,
	transactions reconciliation.TransactionSource,
	logbook reconciliation.LogbookSource,
	matches reconciliation.MatchRepository,
) (*Service, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create scoring pool: %w", err)
	}

	return &Service{
		transactions: transactions,
		logbook:      logbook,
		matches:      matches,
		scorer:       NewScorer(cfg.TimeWindow, cfg.AmountTolerance),
		pool:         pool,
		cfg:          cfg,
		logger:       logger,
	}, nil
}

// Shutdown releases the scoring pool
func (s *Service) Shutdown() {
	s.logger.Info("Shutting down reconciliation scoring pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// RunAutomaticReconciliation loads the user's unmatched transactions and
// logbook entries, scores every candidate pair concurrently, then greedily
// confirms the highest-scoring pairs. Pairs at or above the auto-match
// threshold are confirmed; pairs between the minimum score and the threshold
// are counted for manual review.
func (s *Service) RunAutomaticReconciliation(ctx context.Context, userID string, start, end time.Time) (*reconciliation.BatchResult, error) {
	transactions, err := s.transactions.ListUnmatched(ctx, userID, start, end, s.cfg.BatchLimit)
	if err != nil {
		return nil, err
	}
	entries, err := s.logbook.ListUnmatched(ctx, userID, start, end, s.cfg.BatchLimit)
	if err != nil {
		return nil, err
	}

	result := &reconciliation.BatchResult{TotalProcessed: len(transactions)}
	if len(transactions) == 0 || len(entries) == 0 {
		return result, nil
	}

	candidates := s.scorePairs(ctx, transactions, entries)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	confirmed, reviewable := s.assignGreedy(candidates)

	for _, candidate := range confirmed {
		if err := s.confirm(candidate, reconciliation.MatchTypeAutomatic, reconciliation.SystemActor, ""); err != nil {
			if errors.Is(err, reconciliation.ErrAlreadyMatched{}) {
				s.logger.Warn("Pair lost a matching race, skipping",
					"transaction_id", candidate.Transaction.ID,
					"logbook_entry_id", candidate.Entry.ID)
				continue
			}
			return nil, err
		}
		result.AutomaticMatches++
	}
	result.ManualReviewRequired = reviewable

	s.logger.Info("Automatic reconciliation completed",
		"user_id", userID,
		"total_processed", result.TotalProcessed,
		"automatic_matches", result.AutomaticMatches,
		"manual_review_required", result.ManualReviewRequired)

	return result, nil
}

// scorePairs evaluates every transaction/entry pair on the worker pool.
// Cancellation stops scheduling further pairs; already-submitted pairs finish.
func (s *Service) scorePairs(ctx context.Context, transactions []*reconciliation.PaymentTransaction, entries []*reconciliation.LogbookEntry) []*reconciliation.Candidate {
	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		candidates []*reconciliation.Candidate
	)

	for _, tx := range transactions {
		for _, entry := range entries {
			if ctx.Err() != nil {
				wg.Wait()
				return candidates
			}

			tx, entry := tx, entry
			wg.Add(1)
			err := s.pool.Submit(func() {
				defer wg.Done()
				candidate, ok := s.scorer.Score(tx, entry)
				if !ok || candidate.Score < s.cfg.MinimumMatchScore {
					return
				}
				mu.Lock()
				candidates = append(candidates, candidate)
				mu.Unlock()
			})
			if err != nil {
				wg.Done()
				s.logger.Error("Failed to submit pair for scoring",
					"transaction_id", tx.ID, "logbook_entry_id", entry.ID, "error", err)
			}
		}
	}

	wg.Wait()
	return candidates
}

// assignGreedy picks pairs highest score first, consuming each transaction and
// entry at most once. Returns the pairs to auto-confirm and the count of
// assigned pairs that landed below the auto-match threshold.
func (s *Service) assignGreedy(candidates []*reconciliation.Candidate) ([]*reconciliation.Candidate, int) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		// Deterministic tie-break on identifiers
		if candidates[i].Transaction.ID != candidates[j].Transaction.ID {
			return candidates[i].Transaction.ID < candidates[j].Transaction.ID
		}
		return candidates[i].Entry.ID < candidates[j].Entry.ID
	})

	usedTx := make(map[string]bool)
	usedEntry := make(map[string]bool)
	var confirmed []*reconciliation.Candidate
	reviewable := 0

	for _, c := range candidates {
		if usedTx[c.Transaction.ID] || usedEntry[c.Entry.ID] {
			continue
		}
		usedTx[c.Transaction.ID] = true
		usedEntry[c.Entry.ID] = true

		if c.Score >= s.cfg.AutoMatchThreshold {
			confirmed = append(confirmed, c)
		} else {
			reviewable++
		}
	}

	return confirmed, reviewable
}

// confirm writes the match record and marks both sides consumed. It runs on a
// background context so a confirmation in flight is never torn in half by a
// cancelled request; the unique indexes backstop any race with another run.
func (s *Service) confirm(candidate *reconciliation.Candidate, matchType reconciliation.MatchType, actorID, notes string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	match := &reconciliation.Match{
		ID:                    uuid.New(),
		UserID:                candidate.Transaction.UserID,
		TransactionID:         candidate.Transaction.ID,
		LogbookEntryID:        candidate.Entry.ID,
		MatchScore:            candidate.Score,
		MatchType:             matchType,
		TimeDifferenceMinutes: candidate.TimeDifference.Minutes(),
		AmountDifference:      candidate.AmountDifference,
		MatchedAt:             time.Now(),
		MatchedBy:             actorID,
		Notes:                 notes,
	}

	if err := s.matches.Create(ctx, match); err != nil {
		return err
	}

	if err := s.transactions.MarkMatched(ctx, match.TransactionID, match.ID.String()); err != nil {
		s.logger.Error("Failed to mark transaction matched after match insert",
			"match_id", match.ID.String(), "transaction_id", match.TransactionID, "error", err)
		return err
	}
	if err := s.logbook.MarkMatched(ctx, match.LogbookEntryID, match.ID.String()); err != nil {
		s.logger.Error("Failed to mark logbook entry matched after match insert",
			"match_id", match.ID.String(), "logbook_entry_id", match.LogbookEntryID, "error", err)
		return err
	}

	return nil
}

// GetPotentialMatches returns the best candidate pairings for a user without
// confirming anything, highest score first
func (s *Service) GetPotentialMatches(ctx context.Context, userID string, start, end time.Time, limit int) ([]*reconciliation.Candidate, error) {
	transactions, err := s.transactions.ListUnmatched(ctx, userID, start, end, s.cfg.BatchLimit)
	if err != nil {
		return nil, err
	}
	entries, err := s.logbook.ListUnmatched(ctx, userID, start, end, s.cfg.BatchLimit)
	if err != nil {
		return nil, err
	}

	candidates := s.scorePairs(ctx, transactions, entries)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// ManualReconciliation confirms a pairing chosen by a human reviewer.
// Both sides must exist and be unconsumed; the score is recorded even when it
// falls below the automatic threshold, since the reviewer has the final word.
func (s *Service) ManualReconciliation(ctx context.Context, transactionID, logbookEntryID, actorID, notes string) (*reconciliation.Match, error) {
	tx, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	entry, err := s.logbook.GetByID(ctx, logbookEntryID)
	if err != nil {
		return nil, err
	}

	if tx.Matched {
		return nil, reconciliation.ErrAlreadyMatched{TransactionID: transactionID}
	}
	if entry.Matched {
		return nil, reconciliation.ErrAlreadyMatched{LogbookEntryID: logbookEntryID}
	}

	dt := tx.OccurredAt.Sub(entry.OccurredAt)
	if dt < 0 {
		dt = -dt
	}
	amountDiff := tx.Amount - entry.Amount
	if amountDiff < 0 {
		amountDiff = -amountDiff
	}

	candidate := &reconciliation.Candidate{
		Transaction:      tx,
		Entry:            entry,
		TimeDifference:   dt,
		AmountDifference: amountDiff,
	}
	if scored, ok := s.scorer.Score(tx, entry); ok {
		candidate.Score = scored.Score
	}

	if err := s.confirm(candidate, reconciliation.MatchTypeManual, actorID, notes); err != nil {
		return nil, err
	}

	match, err := s.matches.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, fmt.Errorf("match for transaction %s not found after confirmation", transactionID)
	}

	s.logger.Info("Manual match confirmed",
		"match_id", match.ID.String(),
		"transaction_id", transactionID,
		"logbook_entry_id", logbookEntryID,
		"matched_by", actorID)

	return match, nil
}

// GetStats aggregates match outcomes for a user over a time window
func (s *Service) GetStats(ctx context.Context, userID string, start, end time.Time) (*reconciliation.Stats, error) {
	total, matched, err := s.transactions.CountByUser(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	stats := &reconciliation.Stats{
		TotalTransactions: total,
		MatchedCount:      matched,
		UnmatchedCount:    total - matched,
	}
	if total > 0 {
		stats.MatchRate = float64(matched) / float64(total)
	}

	matches, err := s.matches.ListByUser(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		var sum float64
		for _, m := range matches {
			sum += m.MatchScore
		}
		stats.AverageScore = sum / float64(len(matches))
	}

	return stats, nil
}
