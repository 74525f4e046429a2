// Package baas is the HTTP client for the Blockchain-as-a-Service platform
// that anchors prescription payloads on chain.
package baas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/rxanchor/rxanchor/internal/config"
)

const (
	submitPath = "/blockchainTask"
	verifyPath = "/blockchainTransaction/verify"

	// Responses are small JSON documents; cap reads so a misbehaving
	// upstream cannot balloon memory.
	maxResponseBytes = 1 << 20
)

// SubmitRequest is the outbound anchoring envelope.
type SubmitRequest struct {
	DataSchemaName string `json:"dataSchemaName"`
	DataID         string `json:"dataId"`
	JSONPayload    any    `json:"jsonPayload"`
}

// TaskAck is the platform's acknowledgment of a queued anchoring task.
type TaskAck struct {
	TaskID string
}

type taskResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// VerifyRequest asks the platform to verify an on-chain transaction against a
// payload, a hash, or both.
type VerifyRequest struct {
	TransactionID   string `json:"transactionId"`
	JSONPayload     any    `json:"jsonPayload,omitempty"`
	JSONPayloadHash string `json:"jsonPayloadHash,omitempty"`
}

// VerifyResult carries the platform's verification response as-is.
type VerifyResult struct {
	StatusCode int
	Body       map[string]any
	RawBody    string
}

type Client struct {
	baseURL    string
	apiKey     string
	authStyle  string
	schemaName string
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(cfg config.BaaSConfig, log *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		authStyle:  cfg.AuthStyle,
		schemaName: cfg.SchemaName,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		log:        log,
	}
}

// SchemaName returns the dataSchemaName sent with every submission.
func (c *Client) SchemaName() string {
	return c.schemaName
}

// SubmitTask queues an anchoring task for the payload. Any non-2xx status or
// transport failure returns a *SubmitError; callers wanting retries must wrap
// this themselves.
func (c *Client) SubmitTask(ctx context.Context, req *SubmitRequest) (*TaskAck, error) {
	body, status, err := c.post(ctx, submitPath, req)
	if err != nil {
		return nil, err
	}

	if status < 200 || status > 299 {
		return nil, classifyStatus(status, string(body))
	}

	var parsed taskResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &SubmitError{Reason: ReasonServer, Status: status,
			Message: fmt.Sprintf("unparseable acknowledgment: %v", err)}
	}
	if parsed.Data.ID == "" {
		return nil, &SubmitError{Reason: ReasonServer, Status: status,
			Message: "acknowledgment missing task id"}
	}

	c.log.Debug("blockchain task queued",
		zap.String("data_id", req.DataID),
		zap.String("task_id", parsed.Data.ID),
	)

	return &TaskAck{TaskID: parsed.Data.ID}, nil
}

// VerifyTransaction asks the platform itself to verify a transaction. The
// response is passed through largely untouched so the caller can surface
// whatever the platform reports.
func (c *Client) VerifyTransaction(ctx context.Context, req *VerifyRequest) (*VerifyResult, error) {
	body, status, err := c.post(ctx, verifyPath, req)
	if err != nil {
		return nil, err
	}

	if status != http.StatusOK {
		return nil, classifyStatus(status, string(body))
	}

	result := &VerifyResult{StatusCode: status, RawBody: string(body)}
	// The platform occasionally answers 200 with a non-JSON body; keep the
	// raw text and leave Body nil in that case.
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err == nil {
		result.Body = parsed
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, int, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("encoding request body: %w", err)
	}

	endpoint := c.baseURL + path
	if c.authStyle == "query" {
		endpoint += "?apiKey=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authStyle != "query" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &SubmitError{Reason: ReasonNetwork, Message: err.Error(), cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, 0, &SubmitError{Reason: ReasonNetwork, Message: "reading response: " + err.Error(), cause: err}
	}

	return body, resp.StatusCode, nil
}

func classifyStatus(status int, body string) *SubmitError {
	reason := ReasonServer
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		reason = ReasonAuth
	case status >= 400 && status < 500:
		reason = ReasonValidation
	}
	return &SubmitError{Reason: reason, Status: status, Message: truncate(body, 512)}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Reason classifies a failed platform call.
type Reason string

const (
	ReasonNetwork    Reason = "network"
	ReasonAuth       Reason = "auth"
	ReasonValidation Reason = "validation"
	ReasonServer     Reason = "server"
)

type SubmitError struct {
	Reason  Reason
	Status  int
	Message string
	cause   error
}

func (e *SubmitError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("baas %s error (status %d): %s", e.Reason, e.Status, e.Message)
	}
	return fmt.Sprintf("baas %s error: %s", e.Reason, e.Message)
}

func (e *SubmitError) Unwrap() error {
	return e.cause
}

// IsSubmitError unwraps err into a *SubmitError if possible.
func IsSubmitError(err error) (*SubmitError, bool) {
	var se *SubmitError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Timeout reports whether the error was a client-side timeout.
func (e *SubmitError) Timeout() bool {
	if e.cause == nil {
		return false
	}
	var ne interface{ Timeout() bool }
	if errors.As(e.cause, &ne) {
		return ne.Timeout()
	}
	return false
}
