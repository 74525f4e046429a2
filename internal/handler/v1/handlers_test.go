package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rxanchor/rxanchor/internal/baas"
	"github.com/rxanchor/rxanchor/internal/config"
	"github.com/rxanchor/rxanchor/internal/domain/record"
	"github.com/rxanchor/rxanchor/internal/service"
	"github.com/rxanchor/rxanchor/internal/store"
	"github.com/rxanchor/rxanchor/pkg/metrics"
)

// promauto registers into the default registry; one collector serves every
// test in the package.
var testCollector = metrics.NewCollector("rxanchor_test")

type stubClient struct {
	ack *baas.TaskAck
	err error
}

func (s *stubClient) SubmitTask(ctx context.Context, req *baas.SubmitRequest) (*baas.TaskAck, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.ack, nil
}

func (s *stubClient) SchemaName() string { return "prescriptionRegistry" }

func (s *stubClient) VerifyTransaction(ctx context.Context, req *baas.VerifyRequest) (*baas.VerifyResult, error) {
	return &baas.VerifyResult{StatusCode: 200, Body: map[string]any{"verified": true}}, nil
}

func testRouter(t *testing.T, client *stubClient) (*gin.Engine, record.Repository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.App.Name = "rxanchor-api"
	cfg.App.Environment = "test"
	cfg.Webhook.CallbackPath = "/webhook/prescription-notification"
	cfg.CORS = config.CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         time.Hour,
	}

	log := zap.NewNop()
	repo := store.NewMemory()
	auditSvc := service.NewAuditService(store.NewAuditRing(64), log)
	t.Cleanup(auditSvc.Shutdown)

	router := NewRouter(RouterDeps{
		Prescriptions: NewPrescriptionHandler(service.NewSubmissionService(repo, client, auditSvc, log), testCollector, log),
		Webhooks:      NewWebhookHandler(service.NewWebhookService(repo, auditSvc, log), testCollector, log),
		Verifications: NewVerificationHandler(service.NewVerificationService(repo, client, auditSvc, log), testCollector, log),
		Collector:     testCollector,
		Config:        cfg,
		Log:           log,
	})
	return router, repo
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func submitBody() map[string]any {
	return map[string]any{
		"patient_full_name":    "Alice Demo",
		"patient_dob":          "1980-02-01",
		"prescription_date":    "2025-09-04",
		"medication_name":      "Amoxicillin",
		"dosage_strength":      "500mg",
		"route":                "oral",
		"frequency_duration":   "twice daily for 7 days",
		"quantity":             "14",
		"refill_info":          "no refills",
		"prescriber_signature": "Dr. B. Demo",
		"timestamp":            "2025-09-04T08:00:00Z",
	}
}

func TestSubmitEndpoint(t *testing.T) {
	router, _ := testRouter(t, &stubClient{ack: &baas.TaskAck{TaskID: "task-9"}})

	w := postJSON(t, router, "/api/v1/prescriptions", submitBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data record.Record `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Data.Status != record.StatusPending {
		t.Errorf("expected pending, got %s", resp.Data.Status)
	}
	if resp.Data.BaaSTaskID != "task-9" {
		t.Errorf("expected task-9, got %q", resp.Data.BaaSTaskID)
	}
}

func TestSubmitEndpoint_ValidationError(t *testing.T) {
	router, repo := testRouter(t, &stubClient{ack: &baas.TaskAck{TaskID: "task-9"}})

	body := submitBody()
	delete(body, "patient_full_name")
	delete(body, "medication_name")

	w := postJSON(t, router, "/api/v1/prescriptions", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var resp ValidationErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Fields) != 2 {
		t.Errorf("expected 2 field errors, got %v", resp.Fields)
	}

	records, _ := repo.List(context.Background())
	if len(records) != 0 {
		t.Errorf("invalid submission created records")
	}
}

func TestSubmitEndpoint_PlatformErrorMapsToGateway(t *testing.T) {
	router, _ := testRouter(t, &stubClient{err: &baas.SubmitError{Reason: baas.ReasonAuth, Status: 401, Message: "bad key"}})

	w := postJSON(t, router, "/api/v1/prescriptions", submitBody())
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", w.Code, w.Body.String())
	}
}

func TestWebhookEndpoint_FullLifecycle(t *testing.T) {
	router, repo := testRouter(t, &stubClient{ack: &baas.TaskAck{TaskID: "task-9"}})

	w := postJSON(t, router, "/api/v1/prescriptions", submitBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d", w.Code)
	}
	var created struct {
		Data record.Record `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding submit response: %v", err)
	}

	notification := map[string]any{
		"dataId": created.Data.TrackingID,
		"BlockchainResults": []map[string]any{{
			"transactionId":          "TX123",
			"transactionExplorerUrl": "https://explorer/TX123",
			"isSuccess":              true,
		}},
	}

	w = postJSON(t, router, "/webhook/prescription-notification", notification)
	if w.Code != http.StatusOK {
		t.Fatalf("webhook: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	settled, err := repo.GetByTrackingID(context.Background(), created.Data.TrackingID)
	if err != nil {
		t.Fatalf("GetByTrackingID: %v", err)
	}
	if settled.Status != record.StatusConfirmed || settled.TransactionID != "TX123" {
		t.Fatalf("record did not confirm: %+v", settled)
	}

	// Redelivery is acknowledged, not rejected.
	w = postJSON(t, router, "/webhook/prescription-notification", notification)
	if w.Code != http.StatusOK {
		t.Errorf("webhook redelivery: expected 200, got %d", w.Code)
	}

	// Verify by payload through the API.
	verify := map[string]any{
		"transaction_id": "TX123",
		"payload":        created.Data.Payload,
	}
	w = postJSON(t, router, "/api/v1/verify", verify)
	if w.Code != http.StatusOK {
		t.Fatalf("verify: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var verified struct {
		Data service.VerificationResult `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &verified); err != nil {
		t.Fatalf("decoding verify response: %v", err)
	}
	if !verified.Data.Matched {
		t.Error("original payload did not verify through the API")
	}
}

func TestWebhookEndpoint_BadBody(t *testing.T) {
	router, _ := testRouter(t, &stubClient{})

	req := httptest.NewRequest(http.MethodPost, "/webhook/prescription-notification", bytes.NewReader([]byte(`{broken`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestWebhookEndpoint_UnknownRecord(t *testing.T) {
	router, _ := testRouter(t, &stubClient{})

	notification := map[string]any{
		"dataId":            "presc_ghost",
		"BlockchainResults": []map[string]any{{"isSuccess": true}},
	}
	w := postJSON(t, router, "/webhook/prescription-notification", notification)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestVerifyEndpoint_RequiresCandidate(t *testing.T) {
	router, _ := testRouter(t, &stubClient{})

	w := postJSON(t, router, "/api/v1/verify", map[string]any{"transaction_id": "TX123"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestVerifyRemoteEndpoint(t *testing.T) {
	router, _ := testRouter(t, &stubClient{})

	w := postJSON(t, router, "/api/v1/verify/remote", map[string]any{
		"transaction_id": "TX123",
		"payload_hash":   "abc=",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Data["verified"] != true {
		t.Errorf("platform response not surfaced: %v", resp.Data)
	}
}

func TestListAndGetEndpoints(t *testing.T) {
	router, _ := testRouter(t, &stubClient{ack: &baas.TaskAck{TaskID: "task-9"}})

	w := postJSON(t, router, "/api/v1/prescriptions", submitBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d", w.Code)
	}
	var created struct {
		Data record.Record `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding submit response: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/prescriptions", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var list struct {
		Data []record.Record `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decoding list response: %v", err)
	}
	if len(list.Data) != 1 {
		t.Fatalf("expected 1 record, got %d", len(list.Data))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/prescriptions/"+created.Data.TrackingID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/prescriptions/presc_missing", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("get missing: expected 404, got %d", w.Code)
	}
}

func TestHealthz(t *testing.T) {
	router, _ := testRouter(t, &stubClient{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("X-Request-ID"); got == "" {
		t.Error("request ID header not set")
	}
}
