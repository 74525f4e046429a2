package v1

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rxanchor/rxanchor/internal/service"
	"github.com/rxanchor/rxanchor/pkg/metrics"
)

type VerificationHandler struct {
	verifications *service.VerificationService
	collector     *metrics.Collector
	log           *zap.Logger
}

func NewVerificationHandler(verifications *service.VerificationService, collector *metrics.Collector, log *zap.Logger) *VerificationHandler {
	return &VerificationHandler{verifications: verifications, collector: collector, log: log}
}

type verifyRequest struct {
	TransactionID string          `json:"transaction_id"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	PayloadHash   string          `json:"payload_hash,omitempty"`
}

// Verify checks a candidate payload or hash against the fingerprint stored at
// submission time. Exactly one of payload / payload_hash is used; the hash
// wins when both are present.
func (h *VerificationHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	ip := c.ClientIP()

	var (
		result *service.VerificationResult
		err    error
	)
	switch {
	case strings.TrimSpace(req.PayloadHash) != "":
		result, err = h.verifications.VerifyByHash(ctx, req.TransactionID, req.PayloadHash, ip)
	case len(req.Payload) > 0:
		result, err = h.verifications.VerifyByTransactionID(ctx, req.TransactionID, req.Payload, ip)
	default:
		respondServiceError(c, &service.ValidationError{Fields: []string{"payload or payload_hash is required"}})
		return
	}

	if err != nil {
		h.collector.VerificationsTotal.WithLabelValues("error").Inc()
		respondServiceError(c, err)
		return
	}

	outcome := "mismatch"
	if result.Matched {
		outcome = "match"
	}
	h.collector.VerificationsTotal.WithLabelValues(outcome).Inc()

	respondOK(c, result)
}

// VerifyRemote forwards the verification request to the blockchain platform.
func (h *VerificationHandler) VerifyRemote(c *gin.Context) {
	var req verifyRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.verifications.VerifyRemote(c.Request.Context(), req.TransactionID, req.Payload, req.PayloadHash, c.ClientIP())
	if err != nil {
		h.collector.VerificationsTotal.WithLabelValues("error").Inc()
		respondServiceError(c, err)
		return
	}

	h.collector.VerificationsTotal.WithLabelValues("remote").Inc()

	if result.Body != nil {
		respondOK(c, result.Body)
		return
	}
	respondOK(c, gin.H{"raw_response": result.RawBody})
}
