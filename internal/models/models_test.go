package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTransactionDecodesAPIPayload(t *testing.T) {
	payload := `{
		"id": 42,
		"user_id": "user_0007",
		"transaction_id": "txn_abc",
		"amount": 129.5,
		"merchant": "Amazon",
		"category": "shopping",
		"location": null,
		"latitude": 40.71,
		"longitude": -74.0,
		"timestamp": "2024-03-01T10:15:30.123456",
		"is_fraud": false,
		"risk_score": null,
		"fraud_reason": null,
		"created_at": "2024-03-01T10:15:31+00:00"
	}`

	var txn Transaction
	if err := json.Unmarshal([]byte(payload), &txn); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if txn.ID != 42 || txn.TransactionID != "txn_abc" {
		t.Errorf("unexpected identity %d/%s", txn.ID, txn.TransactionID)
	}
	if txn.Scored() {
		t.Error("expected unscored transaction")
	}
	if txn.Location != nil {
		t.Error("expected nil location")
	}
	if txn.Latitude == nil || *txn.Latitude != 40.71 {
		t.Error("expected latitude")
	}
	want := time.Date(2024, 3, 1, 10, 15, 30, 123456000, time.UTC)
	if !txn.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", txn.Timestamp.Time, want)
	}
}

func TestAlertReviewedAtNullable(t *testing.T) {
	var alert Alert
	if err := json.Unmarshal([]byte(`{"id":7,"status":"pending","reviewed_at":null,"created_at":"2024-03-01T10:00:00"}`), &alert); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if alert.ReviewedAt != nil {
		t.Error("expected nil reviewed_at")
	}

	if err := json.Unmarshal([]byte(`{"id":7,"status":"reviewed","reviewed_at":"2024-03-01T10:05:00"}`), &alert); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if alert.ReviewedAt == nil || alert.ReviewedAt.IsZero() {
		t.Error("expected reviewed_at")
	}
	if alert.Status != AlertReviewed {
		t.Errorf("status = %s", alert.Status)
	}
}

func TestTimeRejectsGarbage(t *testing.T) {
	var ts Time
	if err := json.Unmarshal([]byte(`"yesterday"`), &ts); err == nil {
		t.Error("expected error")
	}
	if err := json.Unmarshal([]byte(`12`), &ts); err == nil {
		t.Error("expected error")
	}
}

func TestAlertStatusPredicates(t *testing.T) {
	tests := []struct {
		status   AlertStatus
		valid    bool
		terminal bool
	}{
		{AlertPending, true, false},
		{AlertReviewed, true, true},
		{AlertResolved, true, true},
		{AlertFalsePositive, true, true},
		{"escalated", false, false},
	}
	for _, tt := range tests {
		if got := tt.status.Valid(); got != tt.valid {
			t.Errorf("%s.Valid() = %v", tt.status, got)
		}
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("%s.Terminal() = %v", tt.status, got)
		}
	}
}

func TestCloneDetachesPointers(t *testing.T) {
	score := 80.0
	txn := Transaction{ID: 1, RiskScore: &score}
	c := txn.Clone()
	*c.RiskScore = 10
	if *txn.RiskScore != 80 {
		t.Error("clone shares risk score pointer")
	}

	reviewed := NewTime(time.Now())
	alert := Alert{ID: 1, ReviewedAt: &reviewed}
	ac := alert.Clone()
	ac.ReviewedAt.Time = time.Time{}
	if alert.ReviewedAt.IsZero() {
		t.Error("clone shares reviewed_at pointer")
	}
}
