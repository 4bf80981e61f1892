package models

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEntry records one negotiation attempt for demand statistics and
// audit display. Append-only and capacity-bounded; owned by the ledger.
type LedgerEntry struct {
	ID          uuid.UUID `json:"id" db:"id"`
	OwnerID     uuid.UUID `json:"owner_id" db:"owner_id"`
	Category    Category  `json:"category" db:"category"`
	Accepted    bool      `json:"accepted" db:"accepted"`
	Price       float64   `json:"price" db:"price"`
	RecordCount int       `json:"record_count" db:"record_count"`
	Reason      string    `json:"reason,omitempty" db:"reason"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`
}

// NewLedgerEntry creates a ledger entry for a negotiation outcome
func NewLedgerEntry(ownerID uuid.UUID, result *NegotiationResult, recordCount int) LedgerEntry {
	return LedgerEntry{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Category:    result.Category,
		Accepted:    result.Accepted,
		Price:       result.Price,
		RecordCount: recordCount,
		Reason:      result.Reason,
		Timestamp:   result.DecidedAt,
	}
}
