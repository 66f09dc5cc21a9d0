// Package router maps inbound push notifications to state refreshes.
package router

import (
	"bytes"
	"encoding/json"

	"github.com/rs/zerolog"

	apperrors "fraud-monitor/internal/errors"
	"fraud-monitor/internal/logging"
	"fraud-monitor/internal/metrics"
	"fraud-monitor/internal/state"
)

// TypeFraudAlert is broadcast by the API when a transaction raises an alert.
const TypeFraudAlert = "fraud_alert"

// Notification is a decoded push message.
type Notification struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// FraudAlertData is the body of a fraud_alert notification. It is only
// used for logging; the refresh brings in the authoritative records.
type FraudAlertData struct {
	TransactionID string  `json:"transaction_id"`
	UserID        string  `json:"user_id"`
	RiskScore     float64 `json:"risk_score"`
	AlertType     string  `json:"alert_type"`
	Description   string  `json:"description"`
}

// Parse decodes a payload and checks the type discriminant is present.
func Parse(payload []byte) (Notification, error) {
	var n Notification
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return n, apperrors.NewNotificationError(payload, "payload is not a JSON object", nil)
	}
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return n, apperrors.NewNotificationError(payload, "invalid json", err)
	}
	if n.Type == "" {
		return n, apperrors.NewNotificationError(payload, "missing type", nil)
	}
	return n, nil
}

// Actions returns the refreshes a notification calls for. Unknown types
// map to none. A new alert changes the alert list, the transaction that
// raised it and the aggregate, so fraud_alert refreshes all three.
func Actions(n Notification) []state.Kind {
	switch n.Type {
	case TypeFraudAlert:
		return []state.Kind{state.KindAlerts, state.KindTransactions, state.KindSummary}
	}
	return nil
}

// Router turns raw payloads into refresh actions, logging what it drops.
type Router struct {
	logger zerolog.Logger
}

// New creates a router.
func New(logger zerolog.Logger) *Router {
	return &Router{logger: logging.WithComponent(logger, "router")}
}

// Route returns the refreshes for payload. It never fails: malformed and
// unrecognized payloads yield no actions.
func (r *Router) Route(payload []byte) []state.Kind {
	n, err := Parse(payload)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("malformed").Inc()
		r.logger.Warn().Err(err).Msg("Dropping malformed notification")
		return nil
	}

	actions := Actions(n)
	if len(actions) == 0 {
		metrics.NotificationsTotal.WithLabelValues("unknown").Inc()
		r.logger.Debug().Str("type", n.Type).Msg("Ignoring notification type")
		return nil
	}

	metrics.NotificationsTotal.WithLabelValues(n.Type).Inc()
	if n.Type == TypeFraudAlert {
		var data FraudAlertData
		if err := json.Unmarshal(n.Data, &data); err == nil {
			r.logger.Info().
				Str("transaction_id", data.TransactionID).
				Str("user_id", data.UserID).
				Float64("risk_score", data.RiskScore).
				Str("alert_type", data.AlertType).
				Msg("Fraud alert received")
		}
	}

	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	logging.LogNotification(r.logger, n.Type, names)
	return actions
}
