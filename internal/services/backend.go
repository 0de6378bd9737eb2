package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var (
	// ErrNetwork marks failures where no response was received.
	ErrNetwork = errors.New("network error")
	// ErrMalformed marks 2xx responses whose body could not be decoded.
	ErrMalformed = errors.New("malformed response")
)

// APIError is the uniform failure of a backend call.
type APIError struct {
	// Status is the HTTP status code, or 0 when no response was read.
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) Unwrap() error { return e.Err }

// Transport reports whether the request never got a response.
func (e *APIError) Transport() bool { return errors.Is(e.Err, ErrNetwork) }

// Unauthorized reports whether the backend rejected the bearer credential.
func (e *APIError) Unauthorized() bool { return e.Status == http.StatusUnauthorized }

// BackendClient talks to the portal backend. It never retries and never caches.
type BackendClient struct {
	client *resty.Client
	logger *zap.Logger
}

func NewBackendClient(baseURL string, timeout time.Duration, logger *zap.Logger) *BackendClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &BackendClient{client: client, logger: logger}
}

// Request issues one call to the backend. The token, when set, is sent as a
// bearer credential. Any non-2xx status becomes an *APIError carrying the
// body's "message" field when there is one.
func (c *BackendClient) Request(ctx context.Context, method, path string, body any, token string) (json.RawMessage, error) {
	req := c.client.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if token != "" {
		req.SetAuthToken(token)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return nil, &APIError{Message: "network error", Err: fmt.Errorf("%w: %w", ErrNetwork, err)}
	}

	c.logger.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", time.Since(start)))

	if !resp.IsSuccess() {
		return nil, errorFromResponse(resp.StatusCode(), resp.Body())
	}
	return json.RawMessage(resp.Body()), nil
}

// Get and Post are shorthands for Request.
func (c *BackendClient) Get(ctx context.Context, path, token string) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodGet, path, nil, token)
}

func (c *BackendClient) Post(ctx context.Context, path string, body any, token string) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodPost, path, body, token)
}

func errorFromResponse(status int, body []byte) *APIError {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return &APIError{Status: status, Message: payload.Message}
	}
	return &APIError{Status: status, Message: fmt.Sprintf("API error with status %d", status)}
}

// decode unmarshals a successful response into out.
func decode(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Message: "malformed response", Err: fmt.Errorf("%w: %w", ErrMalformed, err)}
	}
	return nil
}
