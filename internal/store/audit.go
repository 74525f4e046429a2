package store

import (
	"context"
	"sync"

	"github.com/rxanchor/rxanchor/internal/domain"
)

const defaultAuditCapacity = 4096

// AuditRing keeps the most recent audit entries in a fixed-size ring. Oldest
// entries fall off once the ring is full.
type AuditRing struct {
	mu      sync.RWMutex
	entries []*domain.AuditLog
	next    int
	full    bool
}

func NewAuditRing(capacity int) *AuditRing {
	if capacity <= 0 {
		capacity = defaultAuditCapacity
	}
	return &AuditRing{entries: make([]*domain.AuditLog, capacity)}
}

func (r *AuditRing) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = entry
	r.next++
	if r.next == len(r.entries) {
		r.next = 0
		r.full = true
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (r *AuditRing) Recent(n int) []*domain.AuditLog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	size := r.next
	if r.full {
		size = len(r.entries)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]*domain.AuditLog, 0, n)
	for i := 0; i < n; i++ {
		idx := r.next - 1 - i
		if idx < 0 {
			idx += len(r.entries)
		}
		out = append(out, r.entries[idx])
	}
	return out
}
