package revocations

import (
	"context"
	"sync"
	"time"
)

type MemoryRepository struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[string]time.Time)}
}

func (r *MemoryRepository) Revoke(ctx context.Context, jti string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[jti] = until
	return nil
}

// IsRevoked reports whether jti is on the list as of now. Entries past
// their expiry are dropped on the way.
func (r *MemoryRepository) IsRevoked(ctx context.Context, jti string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, until := range r.entries {
		if !now.Before(until) {
			delete(r.entries, id)
		}
	}

	_, ok := r.entries[jti]
	return ok, nil
}

func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
