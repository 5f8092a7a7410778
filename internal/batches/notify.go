package batches

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// EventBatchFinished is sent when a batch reaches a final status.
const EventBatchFinished = "batch.finished"

// Event is the notification payload for a finished batch.
type Event struct {
	Type        string    `json:"type"`
	BatchID     uuid.UUID `json:"batch_id"`
	UserID      uuid.UUID `json:"user_id"`
	Status      Status    `json:"status"`
	Summary     Summary   `json:"summary"`
	CompletedAt time.Time `json:"completed_at"`
}

// Notifier delivers batch events. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// LogNotifier writes events to a logger.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("notifier", "log")}
}

func (n *LogNotifier) Notify(_ context.Context, e Event) error {
	n.logger.Info(
		"batch finished",
		"batch_id", e.BatchID,
		"user_id", e.UserID,
		"status", e.Status,
		"successful", e.Summary.Successful,
		"failed", e.Summary.Failed,
		"cancelled", e.Summary.Cancelled,
	)
	return nil
}

// WebhookNotifier posts events as JSON to a URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a WebhookNotifier. The timeout bounds each
// delivery.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("deliver webhook: status %d", resp.StatusCode)
	}
	return nil
}
