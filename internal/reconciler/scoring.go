// Package reconciler matches payment gateway transactions against manually
// recorded logbook entries. Candidate pairs are scored by time and amount
// proximity; high-confidence pairs are confirmed automatically while the rest
// are left for manual review.
package reconciler

import (
	"math"
	"time"

	"github.com/corepay-ledger/internal/domain/reconciliation"
)

const (
	timeWeight   = 0.6
	amountWeight = 0.4
)

// Scorer evaluates how likely a transaction and a logbook entry describe the
// same real-world payment
type Scorer struct {
	timeWindow      time.Duration
	amountTolerance float64 // Relative, e.g. 0.01 for 1%
}

// NewScorer creates a scorer with the given hard gates
func NewScorer(timeWindow time.Duration, amountTolerance float64) *Scorer {
	return &Scorer{
		timeWindow:      timeWindow,
		amountTolerance: amountTolerance,
	}
}

// Score evaluates a pair. Pairs outside the time window or amount tolerance,
// or with mismatched users or currencies, are not candidates at all and return
// ok=false. For candidates the score is a weighted blend of time and amount
// proximity in [0,1]: 1.0 for a same-instant exact-amount pair, decreasing
// monotonically as either distance grows toward its gate.
func (s *Scorer) Score(tx *reconciliation.PaymentTransaction, entry *reconciliation.LogbookEntry) (*reconciliation.Candidate, bool) {
	if tx.UserID != entry.UserID || tx.Currency != entry.Currency {
		return nil, false
	}
	if tx.Matched || entry.Matched {
		return nil, false
	}

	dt := tx.OccurredAt.Sub(entry.OccurredAt)
	if dt < 0 {
		dt = -dt
	}
	if dt > s.timeWindow {
		return nil, false
	}

	amountDiff := tx.Amount - entry.Amount
	if amountDiff < 0 {
		amountDiff = -amountDiff
	}
	relDiff := relativeAmountDiff(tx.Amount, entry.Amount)
	if relDiff > s.amountTolerance {
		return nil, false
	}

	timeScore := 1.0
	if s.timeWindow > 0 {
		timeScore = 1.0 - float64(dt)/float64(s.timeWindow)
	}
	amountScore := 1.0
	if s.amountTolerance > 0 {
		amountScore = 1.0 - relDiff/s.amountTolerance
	}

	score := timeWeight*timeScore + amountWeight*amountScore
	score = math.Max(0, math.Min(1, score))

	return &reconciliation.Candidate{
		Transaction:      tx,
		Entry:            entry,
		Score:            score,
		TimeDifference:   dt,
		AmountDifference: amountDiff,
	}, true
}

// relativeAmountDiff is the absolute amount difference relative to the larger
// of the two amounts, so the measure is symmetric in its arguments
func relativeAmountDiff(a, b int64) float64 {
	if a == b {
		return 0
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	max := a
	if b > max {
		max = b
	}
	if max <= 0 {
		return 1
	}
	return float64(diff) / float64(max)
}
