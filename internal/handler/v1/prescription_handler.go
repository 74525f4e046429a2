package v1

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rxanchor/rxanchor/internal/domain/record"
	"github.com/rxanchor/rxanchor/internal/service"
	"github.com/rxanchor/rxanchor/pkg/metrics"
)

type PrescriptionHandler struct {
	submissions *service.SubmissionService
	collector   *metrics.Collector
	log         *zap.Logger
}

func NewPrescriptionHandler(submissions *service.SubmissionService, collector *metrics.Collector, log *zap.Logger) *PrescriptionHandler {
	return &PrescriptionHandler{submissions: submissions, collector: collector, log: log}
}

// Submit registers a prescription and queues its blockchain anchoring task.
func (h *PrescriptionHandler) Submit(c *gin.Context) {
	var cmd record.SubmitCommand
	if !bindJSON(c, &cmd) {
		return
	}

	r, err := h.submissions.Submit(c.Request.Context(), &cmd, c.ClientIP())
	if err != nil {
		h.collector.SubmissionsTotal.WithLabelValues("error").Inc()
		respondServiceError(c, err)
		return
	}

	h.collector.SubmissionsTotal.WithLabelValues("pending").Inc()
	respondCreated(c, r)
}

func (h *PrescriptionHandler) Get(c *gin.Context) {
	trackingID := c.Param("tracking_id")

	r, err := h.submissions.GetRecord(c.Request.Context(), trackingID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, r)
}

func (h *PrescriptionHandler) List(c *gin.Context) {
	records, err := h.submissions.ListRecords(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, records)
}
