// Package ledger keeps a bounded, append-only record of recent negotiation
// attempts. It feeds the pricing engine's demand multiplier and the
// user-facing history view.
package ledger

import (
	"container/list"
	"sort"
	"sync"
	"time"

	"github.com/inboxmarket/datagate/models"
)

// DefaultCapacity is the per-category entry cap used when none is configured
const DefaultCapacity = 100

// Clock supplies "now" so the trailing-window counts are deterministic in
// tests.
type Clock func() time.Time

// Ledger is a per-category FIFO ring of ledger entries. Appends from
// concurrent negotiations are serialized by a single mutex; eviction drops
// the oldest entry when a category exceeds its cap.
type Ledger struct {
	mu       sync.Mutex
	entries  map[models.Category]*list.List
	capacity int
	now      Clock
}

// New creates a Ledger with the given per-category capacity. A nil clock
// defaults to time.Now.
func New(capacity int, clock Clock) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if clock == nil {
		clock = time.Now
	}
	return &Ledger{
		entries:  make(map[models.Category]*list.List),
		capacity: capacity,
		now:      clock,
	}
}

// Record appends an entry, evicting the oldest same-category entry when the
// cap is exceeded.
func (l *Ledger) Record(entry models.LedgerEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ring, ok := l.entries[entry.Category]
	if !ok {
		ring = list.New()
		l.entries[entry.Category] = ring
	}

	ring.PushBack(entry)
	if ring.Len() > l.capacity {
		ring.Remove(ring.Front())
	}
}

// RecentCount returns the number of same-category entries inside the
// trailing window. The result equals a linear scan; no approximation.
func (l *Ledger) RecentCount(category models.Category, window time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	ring, ok := l.entries[category]
	if !ok {
		return 0
	}

	// Full scan: appends are normally time-ordered, but the count is
	// specified to equal a linear scan even when they are not.
	cutoff := l.now().Add(-window)
	count := 0
	for e := ring.Back(); e != nil; e = e.Prev() {
		entry := e.Value.(models.LedgerEntry)
		if !entry.Timestamp.Before(cutoff) {
			count++
		}
	}
	return count
}

// History returns up to limit entries across all categories, newest first.
func (l *Ledger) History(limit int) []models.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	all := make([]models.LedgerEntry, 0)
	for _, ring := range l.entries {
		for e := ring.Front(); e != nil; e = e.Next() {
			all = append(all, e.Value.(models.LedgerEntry))
		}
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}

// Len returns the total number of retained entries
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0
	for _, ring := range l.entries {
		total += ring.Len()
	}
	return total
}

// CategoryStats holds windowed demand counts for one category
type CategoryStats struct {
	LastMinute int `json:"last_minute"`
	LastHour   int `json:"last_hour"`
	LastDay    int `json:"last_day"`
	Retained   int `json:"retained"`
}

// UsageStats holds windowed demand counts per category
type UsageStats struct {
	PerCategory map[models.Category]CategoryStats `json:"per_category"`
}

// Stats returns demand counts in the trailing minute, hour, and day windows
// for every category with retained entries.
func (l *Ledger) Stats() UsageStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	stats := UsageStats{PerCategory: make(map[models.Category]CategoryStats)}
	for category, ring := range l.entries {
		cs := CategoryStats{Retained: ring.Len()}
		for e := ring.Back(); e != nil; e = e.Prev() {
			entry := e.Value.(models.LedgerEntry)
			age := now.Sub(entry.Timestamp)
			if age > 24*time.Hour {
				continue
			}
			cs.LastDay++
			if age <= time.Hour {
				cs.LastHour++
			}
			if age <= time.Minute {
				cs.LastMinute++
			}
		}
		stats.PerCategory[category] = cs
	}
	return stats
}
