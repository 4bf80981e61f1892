package mailsource

import (
	"context"

	"github.com/inboxmarket/datagate/models"
)

// Source provides the owner's email records for a category lookup.
// Implementations must return records no older than maxAgeDays when
// maxAgeDays is positive; a zero value means no age limit.
type Source interface {
	FetchRecords(ctx context.Context, ownerID string, category models.Category, maxAgeDays int) ([]models.Record, error)
}
