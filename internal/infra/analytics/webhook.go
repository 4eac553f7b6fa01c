package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"signflow/internal/usecase"
)

// WebhookSink posts lifecycle events to an external collector. Callers
// already treat analytics as best-effort, so errors surface but never
// block a workflow.
type WebhookSink struct {
	URL    string
	Token  string
	Client *http.Client
}

func NewWebhookSink(url, token string) (*WebhookSink, error) {
	if url == "" {
		return nil, fmt.Errorf("analytics url is required")
	}
	return &WebhookSink{
		URL:    url,
		Token:  token,
		Client: &http.Client{Timeout: 5 * time.Second},
	}, nil
}

type eventPayload struct {
	Name       string         `json:"name"`
	DocumentID string         `json:"document_id"`
	TeamID     string         `json:"team_id"`
	Properties map[string]any `json:"properties,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func (w *WebhookSink) Record(ctx context.Context, event usecase.AnalyticsEvent) error {
	body, err := json.Marshal(eventPayload{
		Name:       event.Name,
		DocumentID: event.DocumentID,
		TeamID:     event.TeamID,
		Properties: event.Properties,
		OccurredAt: event.OccurredAt,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.Token != "" {
		req.Header.Set("Authorization", "Bearer "+w.Token)
	}
	resp, err := w.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("analytics collector returned %d", resp.StatusCode)
	}
	return nil
}
