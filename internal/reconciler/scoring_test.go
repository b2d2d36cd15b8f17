package reconciler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corepay-ledger/internal/domain/reconciliation"
)

func testTransaction(amount int64, occurredAt time.Time) *reconciliation.PaymentTransaction {
	return &reconciliation.PaymentTransaction{
		ID:         "tx-1",
		UserID:     "user-1",
		Amount:     amount,
		Currency:   "EUR",
		OccurredAt: occurredAt,
	}
}

func testEntry(amount int64, occurredAt time.Time) *reconciliation.LogbookEntry {
	return &reconciliation.LogbookEntry{
		ID:         "entry-1",
		UserID:     "user-1",
		Amount:     amount,
		Currency:   "EUR",
		OccurredAt: occurredAt,
	}
}

func TestScorer_Score(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	scorer := NewScorer(10*time.Minute, 0.01)

	t.Run("exact pair scores 1.0", func(t *testing.T) {
		candidate, ok := scorer.Score(testTransaction(2500, base), testEntry(2500, base))
		require.True(t, ok)
		assert.InDelta(t, 1.0, candidate.Score, 1e-9)
		assert.Zero(t, candidate.AmountDifference)
		assert.Zero(t, candidate.TimeDifference)
	})

	t.Run("pair outside time window is not a candidate", func(t *testing.T) {
		_, ok := scorer.Score(testTransaction(2500, base), testEntry(2500, base.Add(10*time.Minute+time.Second)))
		assert.False(t, ok)
	})

	t.Run("pair exactly at the window boundary is a candidate", func(t *testing.T) {
		candidate, ok := scorer.Score(testTransaction(2500, base), testEntry(2500, base.Add(10*time.Minute)))
		require.True(t, ok)
		// Time component fully decayed, amount component intact
		assert.InDelta(t, 0.4, candidate.Score, 1e-9)
	})

	t.Run("pair beyond amount tolerance is not a candidate", func(t *testing.T) {
		// 2% relative difference against a 1% tolerance
		_, ok := scorer.Score(testTransaction(10000, base), testEntry(9800, base))
		assert.False(t, ok)
	})

	t.Run("score decreases with time distance", func(t *testing.T) {
		near, ok := scorer.Score(testTransaction(2500, base), testEntry(2500, base.Add(time.Minute)))
		require.True(t, ok)
		far, ok := scorer.Score(testTransaction(2500, base), testEntry(2500, base.Add(5*time.Minute)))
		require.True(t, ok)
		assert.Greater(t, near.Score, far.Score)
	})

	t.Run("score decreases with amount distance", func(t *testing.T) {
		exact, ok := scorer.Score(testTransaction(100000, base), testEntry(100000, base))
		require.True(t, ok)
		off, ok := scorer.Score(testTransaction(100000, base), testEntry(99500, base))
		require.True(t, ok)
		assert.Greater(t, exact.Score, off.Score)
	})

	t.Run("time direction does not matter", func(t *testing.T) {
		before, ok := scorer.Score(testTransaction(2500, base), testEntry(2500, base.Add(-3*time.Minute)))
		require.True(t, ok)
		after, ok := scorer.Score(testTransaction(2500, base), testEntry(2500, base.Add(3*time.Minute)))
		require.True(t, ok)
		assert.InDelta(t, before.Score, after.Score, 1e-9)
	})

	t.Run("different users never pair", func(t *testing.T) {
		entry := testEntry(2500, base)
		entry.UserID = "user-2"
		_, ok := scorer.Score(testTransaction(2500, base), entry)
		assert.False(t, ok)
	})

	t.Run("different currencies never pair", func(t *testing.T) {
		entry := testEntry(2500, base)
		entry.Currency = "USD"
		_, ok := scorer.Score(testTransaction(2500, base), entry)
		assert.False(t, ok)
	})

	t.Run("consumed sides never pair", func(t *testing.T) {
		tx := testTransaction(2500, base)
		tx.Matched = true
		_, ok := scorer.Score(tx, testEntry(2500, base))
		assert.False(t, ok)
	})

	t.Run("score stays within bounds", func(t *testing.T) {
		candidate, ok := scorer.Score(testTransaction(10000, base), testEntry(9901, base.Add(9*time.Minute+59*time.Second)))
		require.True(t, ok)
		assert.GreaterOrEqual(t, candidate.Score, 0.0)
		assert.LessOrEqual(t, candidate.Score, 1.0)
	})
}

func TestRelativeAmountDiff(t *testing.T) {
	assert.Equal(t, 0.0, relativeAmountDiff(100, 100))
	assert.InDelta(t, 0.01, relativeAmountDiff(10000, 9900), 1e-9)
	assert.InDelta(t, 0.01, relativeAmountDiff(9900, 10000), 1e-9) // symmetric
	assert.Equal(t, 0.0, relativeAmountDiff(0, 0))
	assert.Equal(t, 1.0, relativeAmountDiff(-5, 0)) // degenerate amounts never look close

}
