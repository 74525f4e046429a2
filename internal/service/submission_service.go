package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rxanchor/rxanchor/internal/baas"
	"github.com/rxanchor/rxanchor/internal/domain/record"
	"github.com/rxanchor/rxanchor/internal/fingerprint"
)

// TaskSubmitter is the slice of the BaaS client the submission path needs.
type TaskSubmitter interface {
	SubmitTask(ctx context.Context, req *baas.SubmitRequest) (*baas.TaskAck, error)
	SchemaName() string
}

type SubmissionService struct {
	repo     record.Repository
	client   TaskSubmitter
	auditSvc *AuditService
	log      *zap.Logger
}

func NewSubmissionService(repo record.Repository, client TaskSubmitter, auditSvc *AuditService, log *zap.Logger) *SubmissionService {
	return &SubmissionService{repo: repo, client: client, auditSvc: auditSvc, log: log}
}

// Submit validates the command, anchors the payload with the BaaS platform,
// and stores a pending record. A failed platform call creates no record; there
// is never partial state.
func (s *SubmissionService) Submit(ctx context.Context, cmd *record.SubmitCommand, ip string) (*record.Record, error) {
	if err := validateSubmitCommand(cmd); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	payload := cmd.Payload(now)

	hash, err := fingerprint.Sum(payload)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting payload: %w", err)
	}

	// Random tracking IDs instead of wall-clock seconds: concurrent
	// submissions within the same second must not collide.
	trackingID := "presc_" + uuid.NewString()

	ack, err := s.client.SubmitTask(ctx, &baas.SubmitRequest{
		DataSchemaName: s.client.SchemaName(),
		DataID:         trackingID,
		JSONPayload:    payload,
	})
	if err != nil {
		s.log.Warn("blockchain submission failed",
			zap.String("tracking_id", trackingID),
			zap.Error(err),
		)
		s.auditSvc.LogAsync(ctx, AuditEntry{
			Action: "submit", ResourceType: "prescription", ResourceID: trackingID,
			IPAddress: ip, Outcome: "error", Detail: err.Error(),
		})
		return nil, fmt.Errorf("submitting to blockchain platform: %w", err)
	}

	r := &record.Record{
		TrackingID:  trackingID,
		Payload:     payload,
		PayloadHash: hash,
		BaaSTaskID:  ack.TaskID,
		Status:      record.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("storing prescription record: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Action: "submit", ResourceType: "prescription", ResourceID: trackingID,
		IPAddress: ip, Outcome: "pending",
	})

	s.log.Info("prescription submitted",
		zap.String("tracking_id", trackingID),
		zap.String("baas_task_id", ack.TaskID),
	)

	return r, nil
}

func (s *SubmissionService) GetRecord(ctx context.Context, trackingID string) (*record.Record, error) {
	return s.repo.GetByTrackingID(ctx, trackingID)
}

func (s *SubmissionService) ListRecords(ctx context.Context) ([]*record.Record, error) {
	return s.repo.List(ctx)
}

func validateSubmitCommand(cmd *record.SubmitCommand) error {
	var errs []string

	if strings.TrimSpace(cmd.PatientFullName) == "" {
		errs = append(errs, "patient_full_name is required")
	}
	if strings.TrimSpace(cmd.PatientDOB) == "" {
		errs = append(errs, "patient_dob is required")
	} else if _, err := time.Parse("2006-01-02", strings.TrimSpace(cmd.PatientDOB)); err != nil {
		errs = append(errs, "patient_dob must be YYYY-MM-DD")
	}
	if strings.TrimSpace(cmd.PrescriptionDate) != "" {
		if _, err := time.Parse("2006-01-02", strings.TrimSpace(cmd.PrescriptionDate)); err != nil {
			errs = append(errs, "prescription_date must be YYYY-MM-DD")
		}
	}
	if strings.TrimSpace(cmd.MedicationName) == "" {
		errs = append(errs, "medication_name is required")
	}
	if ts := strings.TrimSpace(cmd.Timestamp); ts != "" {
		if _, err := time.Parse(time.RFC3339, ts); err != nil {
			errs = append(errs, "timestamp must be ISO-8601")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
