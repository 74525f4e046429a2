package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rxanchor/rxanchor/internal/config"
	"github.com/rxanchor/rxanchor/pkg/metrics"
)

type RouterDeps struct {
	Prescriptions *PrescriptionHandler
	Webhooks      *WebhookHandler
	Verifications *VerificationHandler
	Collector     *metrics.Collector
	Config        *config.Config
	Log           *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(Metrics(deps.Collector))
	router.Use(CORS(deps.Config.CORS))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": deps.Config.App.Name,
			"version": deps.Config.App.Version,
		})
	})
	router.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	// The platform callback lives outside the versioned API; the path is
	// what gets registered with the BaaS platform.
	router.POST(deps.Config.Webhook.CallbackPath, deps.Webhooks.Notify)

	api := router.Group("/api/v1")
	{
		api.POST("/prescriptions", deps.Prescriptions.Submit)
		api.GET("/prescriptions", deps.Prescriptions.List)
		api.GET("/prescriptions/:tracking_id", deps.Prescriptions.Get)

		api.POST("/verify", deps.Verifications.Verify)
		api.POST("/verify/remote", deps.Verifications.VerifyRemote)
	}

	return router
}
