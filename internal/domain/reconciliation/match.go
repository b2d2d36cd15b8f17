package reconciliation

import (
	"time"

	"github.com/google/uuid"
)

// SystemActor is recorded as matched_by for automatic matches
const SystemActor = "system"

// MatchType distinguishes automatic batch matches from manually confirmed ones
type MatchType string

const (
	MatchTypeAutomatic MatchType = "AUTOMATIC"
	MatchTypeManual    MatchType = "MANUAL"
)

// PaymentTransaction is an immutable record supplied by the payment gateway.
// The core only reads it; the sole write-back is flipping Matched once the
// transaction is consumed by a confirmed match.
type PaymentTransaction struct {
	ID         string    `json:"id" bson:"_id"`
	Reference  string    `json:"reference" bson:"reference"`
	UserID     string    `json:"user_id" bson:"user_id"`
	Amount     int64     `json:"amount" bson:"amount"` // Stored in minor units
	Currency   string    `json:"currency" bson:"currency"`
	Status     string    `json:"status" bson:"status"`
	OccurredAt time.Time `json:"occurred_at" bson:"occurred_at"`
	Matched    bool      `json:"matched" bson:"matched"`
	MatchID    string    `json:"match_id,omitempty" bson:"match_id,omitempty"`
}

// LogbookEntry is a manually recorded expense supplied by the logbook collaborator
type LogbookEntry struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"user_id" bson:"user_id"`
	Amount      int64     `json:"amount" bson:"amount"` // Stored in minor units
	Currency    string    `json:"currency" bson:"currency"`
	Description string    `json:"description" bson:"description"`
	OccurredAt  time.Time `json:"occurred_at" bson:"occurred_at"`
	Matched     bool      `json:"matched" bson:"matched"`
	MatchID     string    `json:"match_id,omitempty" bson:"match_id,omitempty"`
}

// Match is the auditable record of a confirmed transaction/logbook pairing.
// Immutable once written; each transaction and each logbook entry can be part
// of at most one match.
type Match struct {
	ID                    uuid.UUID `json:"id" bson:"_id"`
	UserID                string    `json:"user_id" bson:"user_id"`
	TransactionID         string    `json:"transaction_id" bson:"transaction_id"`
	LogbookEntryID        string    `json:"logbook_entry_id" bson:"logbook_entry_id"`
	MatchScore            float64   `json:"match_score" bson:"match_score"` // Confidence in [0,1]
	MatchType             MatchType `json:"match_type" bson:"match_type"`
	TimeDifferenceMinutes float64   `json:"time_difference_minutes" bson:"time_difference_minutes"`
	AmountDifference      int64     `json:"amount_difference" bson:"amount_difference"` // Minor units
	MatchedAt             time.Time `json:"matched_at" bson:"matched_at"`
	MatchedBy             string    `json:"matched_by" bson:"matched_by"`
	Notes                 string    `json:"notes,omitempty" bson:"notes,omitempty"`
}

// Candidate is a scored transaction/logbook pair that has passed the hard
// time-window and amount-tolerance gates but is not yet confirmed
type Candidate struct {
	Transaction      *PaymentTransaction `json:"transaction"`
	Entry            *LogbookEntry       `json:"entry"`
	Score            float64             `json:"score"`
	TimeDifference   time.Duration       `json:"time_difference"`
	AmountDifference int64               `json:"amount_difference"`
}

// BatchResult summarizes one automatic reconciliation run
type BatchResult struct {
	TotalProcessed       int `json:"total_processed"`
	AutomaticMatches     int `json:"automatic_matches"`
	ManualReviewRequired int `json:"manual_review_required"`
}

// Stats aggregates match outcomes for a user over a time window
type Stats struct {
	TotalTransactions int64   `json:"total_transactions"`
	MatchedCount      int64   `json:"matched_count"`
	UnmatchedCount    int64   `json:"unmatched_count"`
	MatchRate         float64 `json:"match_rate"`
	AverageScore      float64 `json:"average_score"`
}
