package models

// Transaction is a monitored payment event. It is created by the API and
// never modified locally; a newer copy with the same ID replaces it.
type Transaction struct {
	ID            int64    `json:"id"`
	UserID        string   `json:"user_id"`
	TransactionID string   `json:"transaction_id"`
	Amount        float64  `json:"amount"`
	Merchant      string   `json:"merchant"`
	Category      string   `json:"category"`
	Location      *string  `json:"location"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Timestamp     Time     `json:"timestamp"`
	IsFraud       bool     `json:"is_fraud"`
	RiskScore     *float64 `json:"risk_score"`
	FraudReason   *string  `json:"fraud_reason"`
	CreatedAt     Time     `json:"created_at"`
}

// Scored reports whether the API has attached a risk score.
func (t Transaction) Scored() bool {
	return t.RiskScore != nil
}

// Clone returns a copy that shares no pointers with t.
func (t Transaction) Clone() Transaction {
	c := t
	c.Location = cloneString(t.Location)
	c.Latitude = cloneFloat(t.Latitude)
	c.Longitude = cloneFloat(t.Longitude)
	c.RiskScore = cloneFloat(t.RiskScore)
	c.FraudReason = cloneString(t.FraudReason)
	return c
}

// TransactionCreate is the payload for submitting a new transaction.
// TransactionID is the client-chosen idempotency key.
type TransactionCreate struct {
	UserID        string   `json:"user_id"`
	TransactionID string   `json:"transaction_id"`
	Amount        float64  `json:"amount"`
	Merchant      string   `json:"merchant"`
	Category      string   `json:"category"`
	Location      *string  `json:"location,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	Timestamp     *Time    `json:"timestamp,omitempty"`
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
