package policy

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inboxmarket/datagate/models"
)

// cacheEntry is a single cached policy snapshot with TTL
type cacheEntry struct {
	ownerID    uuid.UUID
	policy     *models.Policy
	insertedAt time.Time
	element    *list.Element // For LRU tracking
}

// isExpired checks if the cache entry has expired
func (e *cacheEntry) isExpired(ttl time.Duration) bool {
	return time.Since(e.insertedAt) > ttl
}

// Cache is an in-memory LRU cache with TTL for policy snapshots, keyed by
// owner. Thread-safe. Cached policies are stored as immutable snapshots;
// Get hands out clones so a cached object is never mutated by callers.
type Cache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*cacheEntry
	lruList *list.List
	maxSize int
	ttl     time.Duration
	hits    uint64
	misses  uint64
}

// NewCache creates a Cache with the specified max size and TTL
func NewCache(maxSize int, ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[uuid.UUID]*cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get retrieves a policy snapshot from cache. Returns nil if not found or
// expired.
func (c *Cache) Get(ownerID uuid.UUID) *models.Policy {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[ownerID]
	if !exists || entry.isExpired(c.ttl) {
		c.misses++
		if exists {
			c.removeEntry(ownerID)
		}
		return nil
	}

	c.lruList.MoveToFront(entry.element)
	c.hits++

	return entry.policy.Clone()
}

// Set stores a policy snapshot in cache
func (c *Cache) Set(policy *models.Policy) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := policy.Clone()

	if entry, exists := c.entries[policy.OwnerID]; exists {
		entry.policy = snapshot
		entry.insertedAt = time.Now()
		c.lruList.MoveToFront(entry.element)
		return
	}

	if c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	entry := &cacheEntry{
		ownerID:    policy.OwnerID,
		policy:     snapshot,
		insertedAt: time.Now(),
	}
	entry.element = c.lruList.PushFront(policy.OwnerID)
	c.entries[policy.OwnerID] = entry
}

// Invalidate removes an owner's cached snapshot
func (c *Cache) Invalidate(ownerID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeEntry(ownerID)
}

// Clear removes all entries from the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[uuid.UUID]*cacheEntry)
	c.lruList.Init()
}

// CacheStats represents cache statistics
type CacheStats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return CacheStats{
		Size:    c.lruList.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: rate,
	}
}

// removeEntry removes an entry (must be called with lock held)
func (c *Cache) removeEntry(ownerID uuid.UUID) {
	if entry, exists := c.entries[ownerID]; exists {
		c.lruList.Remove(entry.element)
		delete(c.entries, ownerID)
	}
}

// evictLRU evicts the least recently used entry (must be called with lock held)
func (c *Cache) evictLRU() {
	back := c.lruList.Back()
	if back == nil {
		return
	}
	ownerID := back.Value.(uuid.UUID)
	c.lruList.Remove(back)
	delete(c.entries, ownerID)
}

// CleanupExpired removes all expired entries, returning how many were dropped
func (c *Cache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	expired := make([]uuid.UUID, 0)
	for ownerID, entry := range c.entries {
		if entry.isExpired(c.ttl) {
			expired = append(expired, ownerID)
		}
	}
	for _, ownerID := range expired {
		c.removeEntry(ownerID)
	}
	return len(expired)
}

// StartCleanupWorker periodically cleans up expired entries until stopCh closes
func (c *Cache) StartCleanupWorker(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanupExpired()
		case <-stopCh:
			return
		}
	}
}
