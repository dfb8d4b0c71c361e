// Package judgeclient provides implementations of the judge port: an
// HTTP client for a real judgment service and a scripted client for
// tests and offline runs.
package judgeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/parley/internal/domain/judge"
)

const defaultTimeout = 30 * time.Second

// HTTPClient posts judge requests to an external service. Every call
// carries an explicit timeout; the caller must never hold a lock while
// awaiting a response.
type HTTPClient struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// HTTPOption configures the HTTP judge client.
type HTTPOption func(*HTTPClient)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient overrides the underlying client, for tests.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewHTTP creates a judge client for the given endpoint.
func NewHTTP(url string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		url:     url,
		client:  &http.Client{},
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type wireRequest struct {
	Stage          string `json:"stage"`
	SectionID      string `json:"section_id"`
	Transcript     string `json:"transcript"`
	Rubric         string `json:"rubric"`
	CorrectionHint string `json:"correction_hint,omitempty"`
}

// Judge implements judge.Client.
func (c *HTTPClient) Judge(ctx context.Context, req judge.Request) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(wireRequest{
		Stage:          string(req.Stage),
		SectionID:      req.SectionID,
		Transcript:     req.Transcript,
		Rubric:         req.Rubric,
		CorrectionHint: req.CorrectionHint,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal judge request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build judge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("judge call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("judge call: unexpected status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read judge response: %w", err)
	}
	return json.RawMessage(raw), nil
}

// Scripted replies from a fixed function, for tests and offline runs.
type Scripted struct {
	fn func(req judge.Request) (json.RawMessage, error)
}

// NewScripted wraps a reply function.
func NewScripted(fn func(req judge.Request) (json.RawMessage, error)) *Scripted {
	return &Scripted{fn: fn}
}

// Judge implements judge.Client.
func (s *Scripted) Judge(_ context.Context, req judge.Request) (json.RawMessage, error) {
	return s.fn(req)
}
