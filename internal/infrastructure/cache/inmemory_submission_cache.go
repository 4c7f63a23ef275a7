package cache

import (
	"context"
	"sync"
	"time"

	"github.com/printdesk/backend/internal/domain/printing"
)

// entry represents a stored submission outcome with expiration
type entry struct {
	record    printing.SubmissionRecord
	expiresAt time.Time
}

// InMemorySubmissionCache implements SubmissionCache using an in-memory map
// This is suitable for single-instance deployments and testing
type InMemorySubmissionCache struct {
	mu        sync.RWMutex
	entries   map[string]entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemorySubmissionCache creates a new in-memory submission cache
// It starts a background goroutine to clean up expired entries
func NewInMemorySubmissionCache() *InMemorySubmissionCache {
	c := &InMemorySubmissionCache{
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

// Get returns the recorded outcome for key, if it has not expired
func (c *InMemorySubmissionCache) Get(ctx context.Context, key string) (*printing.SubmissionRecord, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[key]
	if !exists || time.Now().After(e.expiresAt) {
		return nil, false, nil
	}

	record := e.record
	if e.record.JobID != nil {
		id := *e.record.JobID
		record.JobID = &id
	}
	return &record, true, nil
}

// Put records the outcome for key with a TTL, replacing any earlier entry
func (c *InMemorySubmissionCache) Put(ctx context.Context, key string, record printing.SubmissionRecord, ttl time.Duration) error {
	if record.JobID != nil {
		id := *record.JobID
		record.JobID = &id
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		record:    record,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Close stops the cleanup goroutine and releases resources
// Safe to call multiple times
func (c *InMemorySubmissionCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (c *InMemorySubmissionCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *InMemorySubmissionCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Size returns the number of entries in the cache (for testing/monitoring)
func (c *InMemorySubmissionCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure InMemorySubmissionCache implements SubmissionCache
var _ printing.SubmissionCache = (*InMemorySubmissionCache)(nil)
