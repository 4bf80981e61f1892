package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/inboxmarket/datagate/models"
)

// PolicyRepository is the durable policy store collaborator. The engine
// calls it synchronously per negotiation and never caches beyond the policy
// service's snapshot cache.
type PolicyRepository interface {
	// GetByOwner retrieves the single active policy for an owner
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Policy, error)

	// Save replaces the whole policy object atomically (upsert)
	Save(ctx context.Context, policy *models.Policy) error

	// Delete removes an owner's policy
	Delete(ctx context.Context, ownerID uuid.UUID) error
}

// ArchiveRepository mirrors ledger entries durably for offline audit; the
// in-memory ledger stays authoritative for demand statistics.
type ArchiveRepository interface {
	// Append stores one negotiation attempt
	Append(ctx context.Context, entry models.LedgerEntry) error

	// ListByOwner returns an owner's most recent entries, newest first
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.LedgerEntry, error)
}
