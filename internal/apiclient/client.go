// Package apiclient talks to the upstream order and catalog HTTP APIs. It is
// the only place upstream status codes are translated into the engine's error
// taxonomy; nothing past this boundary inspects HTTP responses.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ordersync/internal/models"
	"ordersync/internal/session"

	"go.uber.org/zap"
)

type Client struct {
	baseURL string
	http    *http.Client
	session *session.Session
	logger  *zap.Logger
}

// NewClient creates an upstream API client bound to a session.
func NewClient(baseURL string, timeout time.Duration, sess *session.Session, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		session: sess,
		logger:  logger,
	}
}

// do issues a request and decodes the JSON response into out (when non-nil).
// Transport failures and 5xx map to ErrTransient, 409 to ErrStaleState, 404
// to ErrNotFound and the remaining 4xx to ErrValidation.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session.IsAuthenticated() {
		req.Header.Set("Authorization", "Bearer "+c.session.Token())
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts, refused connections and DNS failures all land here.
		return fmt.Errorf("%w: %s %s: %v", models.ErrTransient, method, path, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, method, path); err != nil {
		return err
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response for %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) checkStatus(resp *http.Response, method, path string) error {
	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s %s", models.ErrStaleState, method, path)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", models.ErrNotFound, method, path)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s %s: upstream returned %d", models.ErrTransient, method, path, resp.StatusCode)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: upstream returned %d: %s", models.ErrValidation, method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}
}
