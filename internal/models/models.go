// Package models provides domain models for the fraud monitor.
package models

import (
	"bytes"
	"fmt"
	"time"
)

// Time is a timestamp as served by the API. The service emits ISO-8601
// values that may omit the zone offset; those are read as UTC.
type Time struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// NewTime wraps t.
func NewTime(t time.Time) Time {
	return Time{Time: t}
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid timestamp %s", data)
	}
	s := string(data[1 : len(data)-1])
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}

// Summary holds server-computed aggregates over the full transaction population.
// It cannot be derived from the local windows and is always replaced wholesale.
type Summary struct {
	TotalTransactions int64   `json:"total_transactions"`
	TotalAmount       float64 `json:"total_amount"`
	FraudCount        int64   `json:"fraud_count"`
	HighRiskCount     int64   `json:"high_risk_count"`
	AvgRiskScore      float64 `json:"avg_risk_score"`
	PendingAlerts     int64   `json:"pending_alerts"`
}

// Snapshot is a read-only view of the synchronized state.
type Snapshot struct {
	Transactions []Transaction `json:"transactions"`
	Alerts       []Alert       `json:"alerts"`
	Summary      Summary       `json:"summary"`
}
