package domain

import "time"

type AuditAction string

const (
	ActionSubmit  AuditAction = "submit"
	ActionWebhook AuditAction = "webhook"
	ActionVerify  AuditAction = "verify"
	ActionRead    AuditAction = "read"
)

func (a AuditAction) IsValid() bool {
	switch a {
	case ActionSubmit, ActionWebhook, ActionVerify, ActionRead:
		return true
	}
	return false
}

// AuditLog records one API action against a prescription record. Entries are
// written asynchronously and kept in memory alongside the records themselves.
type AuditLog struct {
	OccurredAt time.Time `json:"occurred_at"`

	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id"`

	IPAddress string `json:"ip_address,omitempty"` // supports IPv6
	RequestID string `json:"request_id,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	Detail    string `json:"detail,omitempty"`
}
