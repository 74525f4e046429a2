package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/rxanchor/rxanchor/internal/baas"
	"github.com/rxanchor/rxanchor/internal/domain/record"
	"github.com/rxanchor/rxanchor/internal/store"
)

type fakeSubmitter struct {
	ack     *baas.TaskAck
	err     error
	lastReq *baas.SubmitRequest
	calls   int
}

func (f *fakeSubmitter) SubmitTask(ctx context.Context, req *baas.SubmitRequest) (*baas.TaskAck, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.ack, nil
}

func (f *fakeSubmitter) SchemaName() string { return "prescriptionRegistry" }

func newAuditService(t *testing.T) *AuditService {
	t.Helper()
	svc := NewAuditService(store.NewAuditRing(64), zap.NewNop())
	t.Cleanup(svc.Shutdown)
	return svc
}

func validCommand() *record.SubmitCommand {
	return &record.SubmitCommand{
		PatientFullName:     "Alice Demo",
		PatientDOB:          "1980-02-01",
		PrescriptionDate:    "2025-09-04",
		MedicationName:      "Amoxicillin",
		DosageStrength:      "500mg",
		Route:               "oral",
		FrequencyDuration:   "twice daily for 7 days",
		Quantity:            "14",
		RefillInfo:          "no refills",
		PrescriberSignature: "Dr. B. Demo",
		Timestamp:           "2025-09-04T08:00:00Z",
	}
}

func TestSubmit_CreatesPendingRecord(t *testing.T) {
	repo := store.NewMemory()
	submitter := &fakeSubmitter{ack: &baas.TaskAck{TaskID: "task-42"}}
	svc := NewSubmissionService(repo, submitter, newAuditService(t), zap.NewNop())

	r, err := svc.Submit(context.Background(), validCommand(), "10.0.0.1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if r.Status != record.StatusPending {
		t.Errorf("expected pending, got %s", r.Status)
	}
	if r.BaaSTaskID != "task-42" {
		t.Errorf("expected task-42, got %q", r.BaaSTaskID)
	}
	if r.TransactionID != "" {
		t.Errorf("new record must not carry a transaction ID, got %q", r.TransactionID)
	}
	if !strings.HasPrefix(r.TrackingID, "presc_") {
		t.Errorf("tracking ID missing presc_ prefix: %s", r.TrackingID)
	}
	if r.PayloadHash == "" {
		t.Error("payload hash is empty")
	}
	if r.Payload.Application != record.ApplicationName || r.Payload.Version != record.PayloadVersion {
		t.Errorf("envelope fields not applied: %+v", r.Payload)
	}

	// Envelope forwarded to the platform matches the record.
	if submitter.lastReq.DataID != r.TrackingID {
		t.Errorf("dataId %q does not match tracking ID %q", submitter.lastReq.DataID, r.TrackingID)
	}
	if submitter.lastReq.DataSchemaName != "prescriptionRegistry" {
		t.Errorf("unexpected schema name %q", submitter.lastReq.DataSchemaName)
	}

	stored, err := repo.GetByTrackingID(context.Background(), r.TrackingID)
	if err != nil {
		t.Fatalf("record not stored: %v", err)
	}
	if stored.PayloadHash != r.PayloadHash {
		t.Error("stored hash differs from returned hash")
	}
}

func TestSubmit_NoRecordOnPlatformFailure(t *testing.T) {
	repo := store.NewMemory()
	submitter := &fakeSubmitter{err: &baas.SubmitError{Reason: baas.ReasonServer, Status: 500, Message: "boom"}}
	svc := NewSubmissionService(repo, submitter, newAuditService(t), zap.NewNop())

	_, err := svc.Submit(context.Background(), validCommand(), "10.0.0.1")
	if err == nil {
		t.Fatal("expected error")
	}
	if se, ok := baas.IsSubmitError(err); !ok || se.Reason != baas.ReasonServer {
		t.Errorf("expected wrapped *SubmitError, got %v", err)
	}

	records, _ := repo.List(context.Background())
	if len(records) != 0 {
		t.Errorf("failed submission created %d orphan records", len(records))
	}
}

func TestSubmit_ValidationFailuresSkipPlatform(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*record.SubmitCommand)
		field  string
	}{
		{"missing patient name", func(c *record.SubmitCommand) { c.PatientFullName = "  " }, "patient_full_name"},
		{"missing dob", func(c *record.SubmitCommand) { c.PatientDOB = "" }, "patient_dob"},
		{"malformed dob", func(c *record.SubmitCommand) { c.PatientDOB = "01/02/1980" }, "patient_dob"},
		{"missing medication", func(c *record.SubmitCommand) { c.MedicationName = "" }, "medication_name"},
		{"malformed timestamp", func(c *record.SubmitCommand) { c.Timestamp = "yesterday" }, "timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := store.NewMemory()
			submitter := &fakeSubmitter{ack: &baas.TaskAck{TaskID: "task-1"}}
			svc := NewSubmissionService(repo, submitter, newAuditService(t), zap.NewNop())

			cmd := validCommand()
			tt.mutate(cmd)

			_, err := svc.Submit(context.Background(), cmd, "10.0.0.1")
			var validErr *ValidationError
			if !errors.As(err, &validErr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			found := false
			for _, f := range validErr.Fields {
				if strings.Contains(f, tt.field) {
					found = true
				}
			}
			if !found {
				t.Errorf("expected field %s in %v", tt.field, validErr.Fields)
			}
			if submitter.calls != 0 {
				t.Error("platform must not be called for invalid input")
			}
		})
	}
}

func TestSubmit_DefaultsTimestamp(t *testing.T) {
	repo := store.NewMemory()
	submitter := &fakeSubmitter{ack: &baas.TaskAck{TaskID: "task-1"}}
	svc := NewSubmissionService(repo, submitter, newAuditService(t), zap.NewNop())

	cmd := validCommand()
	cmd.Timestamp = ""

	r, err := svc.Submit(context.Background(), cmd, "10.0.0.1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if r.Payload.Timestamp == "" {
		t.Error("timestamp not defaulted")
	}
}

func TestSubmit_UniqueTrackingIDs(t *testing.T) {
	repo := store.NewMemory()
	submitter := &fakeSubmitter{ack: &baas.TaskAck{TaskID: "task-1"}}
	svc := NewSubmissionService(repo, submitter, newAuditService(t), zap.NewNop())

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		r, err := svc.Submit(context.Background(), validCommand(), "10.0.0.1")
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		if seen[r.TrackingID] {
			t.Fatalf("duplicate tracking ID %s", r.TrackingID)
		}
		seen[r.TrackingID] = true
	}
}
