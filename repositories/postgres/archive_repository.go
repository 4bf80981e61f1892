package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/inboxmarket/datagate/models"
	"github.com/inboxmarket/datagate/repositories"
	"go.uber.org/zap"
)

// ArchiveRepository implements repositories.ArchiveRepository over Postgres
type ArchiveRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewArchiveRepository creates a new negotiation archive repository
func NewArchiveRepository(db *sql.DB, logger *zap.Logger) repositories.ArchiveRepository {
	return &ArchiveRepository{
		db:     db,
		logger: logger,
	}
}

// Append stores one negotiation attempt
func (r *ArchiveRepository) Append(ctx context.Context, entry models.LedgerEntry) error {
	query := `
		INSERT INTO negotiation_archive
		(id, owner_id, category, accepted, price, record_count, reason, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.OwnerID,
		entry.Category,
		entry.Accepted,
		entry.Price,
		entry.RecordCount,
		entry.Reason,
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append archive entry: %w", err)
	}

	return nil
}

// ListByOwner returns an owner's most recent entries, newest first
func (r *ArchiveRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.LedgerEntry, error) {
	query := `
		SELECT id, owner_id, category, accepted, price, record_count, reason, timestamp
		FROM negotiation_archive
		WHERE owner_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	defer rows.Close()

	entries := make([]models.LedgerEntry, 0)
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(
			&e.ID, &e.OwnerID, &e.Category, &e.Accepted,
			&e.Price, &e.RecordCount, &e.Reason, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan archive entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating archive rows: %w", err)
	}

	return entries, nil
}
