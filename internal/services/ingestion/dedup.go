package ingestion

import (
	"context"
	"sync"
	"time"

	"tifo/internal/domain/post"
)

// Deduplicator is the fast-path duplicate check consulted before the
// database boundary. The first caller for a key wins.
type Deduplicator interface {
	MarkSeen(ctx context.Context, key post.Key) (bool, error)
}

// MemoryDeduplicator is a process-local Deduplicator. Suitable for a
// single instance; multi-instance deployments use the Redis one.
type MemoryDeduplicator struct {
	mu   sync.Mutex
	seen map[post.Key]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryDeduplicator creates an in-memory deduplicator. ttl <= 0
// keeps keys for 24 hours.
func NewMemoryDeduplicator(ttl time.Duration) *MemoryDeduplicator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryDeduplicator{
		seen: make(map[post.Key]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// MarkSeen records the key and reports whether this call was the first.
func (d *MemoryDeduplicator) MarkSeen(_ context.Context, key post.Key) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if at, ok := d.seen[key]; ok && now.Sub(at) < d.ttl {
		return false, nil
	}

	// Opportunistic prune keeps the map bounded without a sweeper.
	if len(d.seen) > 0 && len(d.seen)%4096 == 0 {
		cutoff := now.Add(-d.ttl)
		for k, at := range d.seen {
			if at.Before(cutoff) {
				delete(d.seen, k)
			}
		}
	}

	d.seen[key] = now
	return true, nil
}
