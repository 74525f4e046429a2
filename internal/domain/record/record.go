package record

import (
	"strings"
	"time"
)

// The fixed envelope fields every anchored payload carries.
const (
	ApplicationName = "prescriptionRegistry"
	PayloadVersion  = 1
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether a record in this status may never transition again.
func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// Payload is the clinical content that gets hashed and anchored. It is
// immutable once constructed; the stored hash depends on it.
type Payload struct {
	Application         string `json:"application"`
	Version             int    `json:"version"`
	PatientFullName     string `json:"patient_full_name"`
	PatientDOB          string `json:"patient_dob"`       // YYYY-MM-DD
	PrescriptionDate    string `json:"prescription_date"` // YYYY-MM-DD
	MedicationName      string `json:"medication_name"`
	DosageStrength      string `json:"dosage_strength"`
	Route               string `json:"route"`
	FrequencyDuration   string `json:"frequency_duration"`
	Quantity            string `json:"quantity"`
	RefillInfo          string `json:"refill_info"`
	PrescriberSignature string `json:"prescriber_signature"`
	Timestamp           string `json:"timestamp"` // ISO-8601 UTC
}

// Record tracks one submission through the anchoring lifecycle.
type Record struct {
	TrackingID  string  `json:"tracking_id"`
	Payload     Payload `json:"payload"`
	PayloadHash string  `json:"payload_hash"` // base64 SHA-256 of canonical JSON
	BaaSTaskID  string  `json:"baas_task_id,omitempty"`
	Status      Status  `json:"status"`

	// TransactionID and ExplorerURL are set by the confirmation webhook;
	// TransactionID is present iff Status == confirmed.
	TransactionID string `json:"transaction_id,omitempty"`
	ExplorerURL   string `json:"explorer_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Record) IsTerminal() bool {
	return r.Status.IsTerminal()
}

// SubmitCommand carries raw form input into the submission service.
type SubmitCommand struct {
	PatientFullName     string `json:"patient_full_name"`
	PatientDOB          string `json:"patient_dob"`
	PrescriptionDate    string `json:"prescription_date"`
	MedicationName      string `json:"medication_name"`
	DosageStrength      string `json:"dosage_strength"`
	Route               string `json:"route"`
	FrequencyDuration   string `json:"frequency_duration"`
	Quantity            string `json:"quantity"`
	RefillInfo          string `json:"refill_info"`
	PrescriberSignature string `json:"prescriber_signature"`
	// Timestamp is optional; the service stamps now-UTC when empty.
	Timestamp string `json:"timestamp"`
}

// Payload builds the immutable payload from the command, applying the fixed
// envelope fields.
func (c *SubmitCommand) Payload(now time.Time) Payload {
	ts := strings.TrimSpace(c.Timestamp)
	if ts == "" {
		ts = now.UTC().Format(time.RFC3339)
	}
	return Payload{
		Application:         ApplicationName,
		Version:             PayloadVersion,
		PatientFullName:     strings.TrimSpace(c.PatientFullName),
		PatientDOB:          strings.TrimSpace(c.PatientDOB),
		PrescriptionDate:    strings.TrimSpace(c.PrescriptionDate),
		MedicationName:      strings.TrimSpace(c.MedicationName),
		DosageStrength:      strings.TrimSpace(c.DosageStrength),
		Route:               strings.TrimSpace(c.Route),
		FrequencyDuration:   strings.TrimSpace(c.FrequencyDuration),
		Quantity:            strings.TrimSpace(c.Quantity),
		RefillInfo:          strings.TrimSpace(c.RefillInfo),
		PrescriberSignature: strings.TrimSpace(c.PrescriberSignature),
		Timestamp:           ts,
	}
}

// Notification is the webhook body the BaaS platform delivers after the
// asynchronous blockchain write settles.
type Notification struct {
	DataID            string             `json:"dataId"`
	TaskID            string             `json:"taskId,omitempty"`
	BlockchainResults []BlockchainResult `json:"BlockchainResults"`
}

type BlockchainResult struct {
	TransactionID          string `json:"transactionId"`
	TransactionExplorerURL string `json:"transactionExplorerUrl,omitempty"`
	IsSuccess              *bool  `json:"isSuccess"`
}

// Result returns the first blockchain result, if any. The platform sends one
// result per anchoring attempt; only the first is authoritative.
func (n *Notification) Result() (BlockchainResult, bool) {
	if len(n.BlockchainResults) == 0 {
		return BlockchainResult{}, false
	}
	return n.BlockchainResults[0], true
}
