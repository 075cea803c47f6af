package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// executePath is appended to the backend base URL.
const executePath = "/v1/execute"

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// HTTPBackend executes expressions by POSTing them as JSON to a compute service.
type HTTPBackend struct {
	client  *http.Client
	baseURL string
	token   string
	timeout time.Duration
	logger  *slog.Logger
}

var _ contract.ComputeBackend = &HTTPBackend{} // Compile-time check

type executeRequest struct {
	Expr *schema.Expr `json:"expr"`
}

type errorResponse struct {
	Error struct {
		Message   string `json:"message"`
		Retryable *bool  `json:"retryable,omitempty"`
	} `json:"error"`
}

// NewHTTPBackend returns a client for the service at baseURL. timeout bounds each call.
func NewHTTPBackend(baseURL, token string, timeout time.Duration, logger *slog.Logger) *HTTPBackend {
	return &HTTPBackend{
		client:  &http.Client{},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		timeout: timeout,
		logger:  logger,
	}
}

// Execute sends expr and decodes the returned value.
func (b *HTTPBackend) Execute(ctx context.Context, expr *schema.Expr) (schema.Value, error) {
	parent := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	body, err := json.Marshal(executeRequest{Expr: expr})
	if err != nil {
		return schema.Value{}, &schema.RemoteComputeError{Op: expr.Op, Message: "encode request", Cause: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+executePath, bytes.NewReader(body))
	if err != nil {
		return schema.Value{}, &schema.RemoteComputeError{Op: expr.Op, Message: "build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		// Transport failures and per-call timeouts are retryable unless the caller gave up.
		return schema.Value{}, &schema.RemoteComputeError{
			Op:        expr.Op,
			Message:   err.Error(),
			Retryable: parent.Err() == nil,
			Cause:     err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	b.logger.Debug("remote_execute", "op", expr.Op, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		return schema.Value{}, decodeErrorResponse(expr.Op, resp)
	}

	var v schema.Value
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return schema.Value{}, &schema.RemoteComputeError{Op: expr.Op, Message: "decode response: " + err.Error(), Cause: err}
	}
	if v.Kind == "" {
		return schema.Value{}, &schema.RemoteComputeError{Op: expr.Op, Message: "response has no value kind"}
	}
	return v, nil
}

func decodeErrorResponse(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	rce := &schema.RemoteComputeError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Retryable:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		Message:    strings.TrimSpace(string(raw)),
	}
	var er errorResponse
	if err := json.Unmarshal(raw, &er); err == nil && er.Error.Message != "" {
		rce.Message = er.Error.Message
		if er.Error.Retryable != nil {
			rce.Retryable = *er.Error.Retryable
		}
	}
	if rce.Message == "" {
		rce.Message = http.StatusText(resp.StatusCode)
	}
	return rce
}
