package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rxanchor/rxanchor/internal/baas"
	"github.com/rxanchor/rxanchor/internal/domain/record"
	"github.com/rxanchor/rxanchor/internal/fingerprint"
)

// RemoteVerifier is the slice of the BaaS client used for platform-side
// verification.
type RemoteVerifier interface {
	VerifyTransaction(ctx context.Context, req *baas.VerifyRequest) (*baas.VerifyResult, error)
}

type VerificationResult struct {
	Matched      bool          `json:"matched"`
	RecordStatus record.Status `json:"record_status"`
	StoredHash   string        `json:"stored_hash"`
	TrackingID   string        `json:"tracking_id"`
}

type VerificationService struct {
	repo     record.Repository
	remote   RemoteVerifier
	auditSvc *AuditService
	log      *zap.Logger
}

func NewVerificationService(repo record.Repository, remote RemoteVerifier, auditSvc *AuditService, log *zap.Logger) *VerificationService {
	return &VerificationService{repo: repo, remote: remote, auditSvc: auditSvc, log: log}
}

// VerifyByTransactionID recomputes the candidate payload's fingerprint and
// compares it with the hash stored at submission time. The candidate is raw
// JSON so independently re-typed documents verify regardless of key order.
func (s *VerificationService) VerifyByTransactionID(ctx context.Context, transactionID string, candidatePayload json.RawMessage, ip string) (*VerificationResult, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, &ValidationError{Fields: []string{"transaction_id is required"}}
	}

	r, err := s.repo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	candidateHash, err := fingerprint.SumJSON(candidatePayload)
	if err != nil {
		return nil, &ValidationError{Fields: []string{"payload must be valid JSON"}}
	}

	return s.compare(ctx, r, candidateHash, ip), nil
}

// VerifyByHash compares a caller-supplied base64 hash with the stored one.
// Exact, case-sensitive match only.
func (s *VerificationService) VerifyByHash(ctx context.Context, transactionID, candidateHash string, ip string) (*VerificationResult, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, &ValidationError{Fields: []string{"transaction_id is required"}}
	}
	if strings.TrimSpace(candidateHash) == "" {
		return nil, &ValidationError{Fields: []string{"payload_hash is required"}}
	}

	r, err := s.repo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	return s.compare(ctx, r, candidateHash, ip), nil
}

// VerifyRemote defers verification to the blockchain platform itself, the way
// the original registry page did. The local store is not consulted.
func (s *VerificationService) VerifyRemote(ctx context.Context, transactionID string, candidatePayload json.RawMessage, candidateHash string, ip string) (*baas.VerifyResult, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, &ValidationError{Fields: []string{"transaction_id is required"}}
	}

	req := &baas.VerifyRequest{TransactionID: transactionID}
	if len(candidatePayload) > 0 {
		var payload any
		if err := json.Unmarshal(candidatePayload, &payload); err != nil {
			return nil, &ValidationError{Fields: []string{"payload must be valid JSON"}}
		}
		req.JSONPayload = payload
	}
	if h := strings.TrimSpace(candidateHash); h != "" {
		req.JSONPayloadHash = h
	}

	result, err := s.remote.VerifyTransaction(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("remote verification: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Action: "verify", ResourceType: "transaction", ResourceID: transactionID,
		IPAddress: ip, Outcome: "remote",
	})

	return result, nil
}

func (s *VerificationService) compare(ctx context.Context, r *record.Record, candidateHash string, ip string) *VerificationResult {
	matched := subtle.ConstantTimeCompare([]byte(r.PayloadHash), []byte(candidateHash)) == 1

	outcome := "mismatch"
	if matched {
		outcome = "match"
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Action: "verify", ResourceType: "prescription", ResourceID: r.TrackingID,
		IPAddress: ip, Outcome: outcome,
	})

	return &VerificationResult{
		Matched:      matched,
		RecordStatus: r.Status,
		StoredHash:   r.PayloadHash,
		TrackingID:   r.TrackingID,
	}
}
