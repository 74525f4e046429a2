// Package store provides the in-memory record.Repository implementation.
// Records live for the process lifetime only; restarts lose them. That is an
// accepted property of the deployment, not a bug.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/rxanchor/rxanchor/internal/domain/record"
)

// Memory is a mutex-guarded map store with secondary indexes by BaaS task ID
// and blockchain transaction ID. Submission, webhook, and verification
// requests interleave freely, so every mutation holds the write lock for the
// whole check-then-write sequence.
type Memory struct {
	mu       sync.RWMutex
	records  map[string]*record.Record // key: tracking ID
	byTaskID map[string]string         // BaaS task ID -> tracking ID
	byTxID   map[string]string         // transaction ID -> tracking ID
	order    []string                  // insertion order for List
}

func NewMemory() *Memory {
	return &Memory{
		records:  make(map[string]*record.Record),
		byTaskID: make(map[string]string),
		byTxID:   make(map[string]string),
	}
}

func (m *Memory) Create(ctx context.Context, r *record.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[r.TrackingID]; exists {
		return record.ErrDuplicateTrackingID
	}

	stored := *r
	m.records[r.TrackingID] = &stored
	m.order = append(m.order, r.TrackingID)
	if r.BaaSTaskID != "" {
		m.byTaskID[r.BaaSTaskID] = r.TrackingID
	}
	return nil
}

func (m *Memory) GetByTrackingID(ctx context.Context, trackingID string) (*record.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(trackingID)
}

func (m *Memory) GetByTaskID(ctx context.Context, taskID string) (*record.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	trackingID, ok := m.byTaskID[taskID]
	if !ok {
		return nil, record.ErrRecordNotFound
	}
	return m.getLocked(trackingID)
}

func (m *Memory) GetByTransactionID(ctx context.Context, transactionID string) (*record.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	trackingID, ok := m.byTxID[transactionID]
	if !ok {
		return nil, record.ErrRecordNotFound
	}
	return m.getLocked(trackingID)
}

func (m *Memory) UpdateStatus(ctx context.Context, trackingID string, status record.Status, transactionID, explorerURL string) (*record.Record, error) {
	if !status.IsValid() || !status.IsTerminal() {
		return nil, record.ErrInvalidStatus
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[trackingID]
	if !ok {
		return nil, record.ErrRecordNotFound
	}
	if r.Status.IsTerminal() {
		return nil, record.ErrInvalidTransition
	}

	r.Status = status
	if status == record.StatusConfirmed {
		r.TransactionID = transactionID
		r.ExplorerURL = explorerURL
		if transactionID != "" {
			m.byTxID[transactionID] = trackingID
		}
	}
	r.UpdatedAt = time.Now().UTC()

	updated := *r
	return &updated, nil
}

func (m *Memory) List(ctx context.Context) ([]*record.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*record.Record, 0, len(m.order))
	for _, trackingID := range m.order {
		r := *m.records[trackingID]
		out = append(out, &r)
	}
	return out, nil
}

// getLocked returns a copy so callers never mutate stored state directly.
// Caller must hold at least the read lock.
func (m *Memory) getLocked(trackingID string) (*record.Record, error) {
	r, ok := m.records[trackingID]
	if !ok {
		return nil, record.ErrRecordNotFound
	}
	copied := *r
	return &copied, nil
}
