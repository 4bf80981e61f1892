package mailsource

import (
	"context"
	"time"

	"github.com/inboxmarket/datagate/models"
)

// StaticSource serves a fixed set of records. Used for local development
// and as a seed source when no upstream indexer is configured.
type StaticSource struct {
	records []models.Record
	now     func() time.Time
}

func NewStaticSource(records []models.Record) *StaticSource {
	return &StaticSource{records: records, now: time.Now}
}

func (s *StaticSource) FetchRecords(_ context.Context, _ string, category models.Category, maxAgeDays int) ([]models.Record, error) {
	var cutoff time.Time
	if maxAgeDays > 0 {
		cutoff = s.now().AddDate(0, 0, -maxAgeDays)
	}

	out := make([]models.Record, 0, len(s.records))
	for _, r := range s.records {
		if r.Category != "" && r.Category != category {
			continue
		}
		if maxAgeDays > 0 && r.Timestamp.Before(cutoff) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
