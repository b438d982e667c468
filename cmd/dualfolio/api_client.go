package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// apiClient talks to a running dualfolio server.
type apiClient struct {
	http    *http.Client
	baseURL string
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// apiEnvelope mirrors the server's response envelope.
type apiEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// apiError is a non-2xx response.
type apiError struct {
	Message    string
	Details    []string
	RetryAfter string
	StatusCode int
}

func (e *apiError) Error() string {
	msg := fmt.Sprintf("server responded %d: %s", e.StatusCode, e.Message)
	if len(e.Details) > 0 {
		msg += "\n  - " + strings.Join(e.Details, "\n  - ")
	}
	if e.RetryAfter != "" {
		msg += fmt.Sprintf(" (retry in %ss)", e.RetryAfter)
	}
	return msg
}

func (c *apiClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *apiClient) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", c.baseURL, err)
	}
	defer func() {
		_ = resp.Body.Close() // Best-effort cleanup
	}()

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &apiError{
			StatusCode: resp.StatusCode,
			Message:    env.Message,
			RetryAfter: resp.Header.Get("Retry-After"),
		}
		// Validation failures carry the individual violations
		_ = json.Unmarshal(env.Data, &apiErr.Details)
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
