package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rxanchor/rxanchor/internal/domain/record"
)

type WebhookService struct {
	repo     record.Repository
	auditSvc *AuditService
	log      *zap.Logger
}

func NewWebhookService(repo record.Repository, auditSvc *AuditService, log *zap.Logger) *WebhookService {
	return &WebhookService{repo: repo, auditSvc: auditSvc, log: log}
}

// HandleNotification applies a platform completion notification to the
// correlated record. Redeliveries for a record that already reached a terminal
// status are acknowledged as no-ops: webhook senders retry on ambiguous
// responses, and a duplicate must not be treated as a failure.
func (s *WebhookService) HandleNotification(ctx context.Context, n *record.Notification, ip string) (*record.Record, error) {
	if strings.TrimSpace(n.DataID) == "" && strings.TrimSpace(n.TaskID) == "" {
		return nil, &ValidationError{Fields: []string{"dataId or taskId is required"}}
	}

	r, err := s.resolve(ctx, n)
	if err != nil {
		s.log.Warn("webhook for unknown record dropped",
			zap.String("data_id", n.DataID),
			zap.String("task_id", n.TaskID),
		)
		return nil, err
	}

	result, ok := n.Result()
	if !ok || result.IsSuccess == nil {
		// The original platform occasionally delivers interim
		// notifications without a settled result; leave the record pending.
		s.log.Info("webhook without settled result ignored",
			zap.String("tracking_id", r.TrackingID),
		)
		return r, nil
	}

	status := record.StatusFailed
	if *result.IsSuccess {
		status = record.StatusConfirmed
	}

	updated, err := s.repo.UpdateStatus(ctx, r.TrackingID, status, result.TransactionID, result.TransactionExplorerURL)
	if errors.Is(err, record.ErrInvalidTransition) {
		// Redelivery after the record settled. Benign.
		s.log.Info("duplicate webhook for terminal record",
			zap.String("tracking_id", r.TrackingID),
			zap.String("status", string(r.Status)),
		)
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("updating record status: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Action: "webhook", ResourceType: "prescription", ResourceID: updated.TrackingID,
		IPAddress: ip, Outcome: string(updated.Status), Detail: result.TransactionID,
	})

	s.log.Info("record status updated from webhook",
		zap.String("tracking_id", updated.TrackingID),
		zap.String("status", string(updated.Status)),
		zap.String("transaction_id", updated.TransactionID),
	)

	return updated, nil
}

func (s *WebhookService) resolve(ctx context.Context, n *record.Notification) (*record.Record, error) {
	if id := strings.TrimSpace(n.DataID); id != "" {
		if r, err := s.repo.GetByTrackingID(ctx, id); err == nil {
			return r, nil
		} else if !errors.Is(err, record.ErrRecordNotFound) {
			return nil, err
		}
	}
	if id := strings.TrimSpace(n.TaskID); id != "" {
		return s.repo.GetByTaskID(ctx, id)
	}
	return nil, record.ErrRecordNotFound
}
