package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rxanchor/rxanchor/internal/domain/record"
	"github.com/rxanchor/rxanchor/internal/service"
	"github.com/rxanchor/rxanchor/pkg/metrics"
)

type WebhookHandler struct {
	webhooks  *service.WebhookService
	collector *metrics.Collector
	log       *zap.Logger
}

func NewWebhookHandler(webhooks *service.WebhookService, collector *metrics.Collector, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, collector: collector, log: log}
}

// Notify receives the BaaS platform's completion callback. There is no
// signature check on this endpoint; the platform does not sign callbacks.
// Anyone deploying outside a trusted network should front this with a
// shared-secret check.
func (h *WebhookHandler) Notify(c *gin.Context) {
	var n record.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		h.collector.WebhooksTotal.WithLabelValues("invalid").Inc()
		respondError(c, http.StatusBadRequest, "invalid webhook body")
		return
	}

	r, err := h.webhooks.HandleNotification(c.Request.Context(), &n, c.ClientIP())
	if err != nil {
		h.collector.WebhooksTotal.WithLabelValues("dropped").Inc()
		respondServiceError(c, err)
		return
	}

	h.collector.WebhooksTotal.WithLabelValues(string(r.Status)).Inc()
	c.JSON(http.StatusOK, gin.H{
		"message":     "webhook processed",
		"tracking_id": r.TrackingID,
		"status":      r.Status,
	})
}
