package record

import "context"

// Repository abstracts record storage so a durable backend can replace the
// in-memory default without touching callers.
type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByTrackingID(ctx context.Context, trackingID string) (*Record, error)
	GetByTaskID(ctx context.Context, taskID string) (*Record, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*Record, error)
	// UpdateStatus transitions a pending record to a terminal status. The
	// terminal-state check is atomic with the write; re-terminating returns
	// ErrInvalidTransition.
	UpdateStatus(ctx context.Context, trackingID string, status Status, transactionID, explorerURL string) (*Record, error)
	List(ctx context.Context) ([]*Record, error)
}
