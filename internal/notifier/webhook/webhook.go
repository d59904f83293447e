// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/newthinker/risklab/internal/notifier"
)

const defaultTimeout = 30 * time.Second

// Webhook implements the Notifier interface for HTTP webhooks
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// New creates a new Webhook notifier
func New(url string, headers map[string]string) (*Webhook, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook: url is required")
	}
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: defaultTimeout},
	}, nil
}

func (w *Webhook) Name() string { return "webhook" }

// payload is the JSON body posted for an event.
type payload struct {
	Type string `json:"type"`
	notifier.BatchEvent
}

// Notify posts the event as JSON. A response status of 400 or above is an
// error.
func (w *Webhook) Notify(ctx context.Context, event notifier.BatchEvent) error {
	body, err := json.Marshal(payload{Type: notifier.EventBatchCompleted, BatchEvent: event})
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: server returned %d", resp.StatusCode)
	}

	return nil
}
