// Package ai wraps the external classification backend. Errors are
// typed so callers can distinguish transport trouble from contract
// violations, but every error ultimately means "fall back".
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/config"
)

var (
	// ErrBadPayload means the backend answered with JSON that does not
	// match the task contract.
	ErrBadPayload = errors.New("ai: malformed response payload")
	// ErrNotImplemented means no backend is configured for the task.
	ErrNotImplemented = errors.New("ai: provider not implemented")
	// ErrTransient covers timeouts and 5xx responses worth retrying
	// on a later cycle.
	ErrTransient = errors.New("ai: transient backend failure")
)

// Classifier runs a named classification task over structured input
// and returns the backend's raw JSON result.
type Classifier interface {
	Classify(ctx context.Context, task string, input any) (json.RawMessage, error)
}

// HTTPClient talks to the classification backend over HTTP.
type HTTPClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *zap.Logger
}

// NewHTTPClient builds the backend client from configuration.
func NewHTTPClient(cfg config.AIConfig, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout()},
		logger:   logger,
	}
}

type classifyRequest struct {
	Task  string `json:"task"`
	Input any    `json:"input"`
}

// Classify POSTs the task to the backend and returns its JSON result.
func (c *HTTPClient) Classify(ctx context.Context, task string, input any) (json.RawMessage, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("%w: no endpoint configured", ErrNotImplemented)
	}

	body, err := json.Marshal(classifyRequest{Task: task, Input: input})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrTransient, resp.StatusCode)
	case resp.StatusCode == http.StatusNotImplemented || resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: status %d", ErrNotImplemented, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: status %d", ErrBadPayload, resp.StatusCode)
	}

	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: invalid json", ErrBadPayload)
	}
	return json.RawMessage(payload), nil
}
