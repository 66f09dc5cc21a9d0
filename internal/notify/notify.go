// Package notify tells the operator about newly raised fraud alerts.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fraud-monitor/internal/logging"
	"fraud-monitor/internal/models"
)

// Notification describes one newly observed alert.
type Notification struct {
	Title     string       `json:"title"`
	Message   string       `json:"message"`
	Alert     models.Alert `json:"alert"`
	Timestamp time.Time    `json:"timestamp"`
}

// Channel delivers notifications somewhere.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// Multi fans a notification out to every channel. A failing channel does
// not stop delivery to the others.
type Multi struct {
	channels []Channel
	logger   zerolog.Logger
}

// NewMulti creates a fan-out notifier.
func NewMulti(logger zerolog.Logger, channels ...Channel) *Multi {
	return &Multi{
		channels: channels,
		logger:   logging.WithComponent(logger, "notify"),
	}
}

// Send delivers n to all channels and returns the first error.
func (m *Multi) Send(ctx context.Context, n Notification) error {
	var first error
	for _, ch := range m.channels {
		if err := ch.Send(ctx, n); err != nil {
			m.logger.Warn().Err(err).Str("channel", ch.Name()).Int64("alert_id", n.Alert.ID).Msg("Notification failed")
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Len returns the number of channels.
func (m *Multi) Len() int {
	return len(m.channels)
}

// Watcher diffs successive alert windows and notifies about alerts that
// are new and still pending. The first window only seeds what has been
// seen, so starting a session does not replay the backlog.
type Watcher struct {
	sender *Multi

	mu     sync.Mutex
	seeded bool
	seen   map[int64]struct{}
}

// NewWatcher creates a watcher that delivers through m.
func NewWatcher(m *Multi) *Watcher {
	return &Watcher{
		sender: m,
		seen:   make(map[int64]struct{}),
	}
}

// Observe records the current alert window and returns the alerts that
// were announced.
func (w *Watcher) Observe(ctx context.Context, alerts []models.Alert) []models.Alert {
	w.mu.Lock()
	var fresh []models.Alert
	next := make(map[int64]struct{}, len(alerts))
	for _, a := range alerts {
		next[a.ID] = struct{}{}
		if !w.seeded {
			continue
		}
		if _, ok := w.seen[a.ID]; ok {
			continue
		}
		if a.Status == models.AlertPending {
			fresh = append(fresh, a)
		}
	}
	w.seen = next
	w.seeded = true
	w.mu.Unlock()

	// Oldest first so announcements read in the order alerts were raised.
	for i := len(fresh) - 1; i >= 0; i-- {
		w.sender.Send(ctx, NewAlertNotification(fresh[i]))
	}
	return fresh
}

// NewAlertNotification builds the notification for a new alert.
func NewAlertNotification(a models.Alert) Notification {
	return Notification{
		Title: fmt.Sprintf("Fraud alert #%d", a.ID),
		Message: fmt.Sprintf("%s alert on %s (user %s), risk %.1f: %s",
			a.AlertType, a.TransactionID, a.UserID, a.RiskScore, a.Description),
		Alert:     a,
		Timestamp: time.Now().UTC(),
	}
}

// WebhookNotifier posts notifications as JSON to a URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook channel.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Name returns the name of the channel.
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

// Send posts n to the webhook.
func (w *WebhookNotifier) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(map[string]interface{}{
		"type":      "fraud_alert",
		"title":     n.Title,
		"message":   n.Message,
		"data":      n.Alert,
		"timestamp": n.Timestamp.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "FraudMonitor/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
