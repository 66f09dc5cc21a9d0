package models

// AlertStatus is the review state of a fraud alert.
type AlertStatus string

const (
	AlertPending       AlertStatus = "pending"
	AlertReviewed      AlertStatus = "reviewed"
	AlertResolved      AlertStatus = "resolved"
	AlertFalsePositive AlertStatus = "false_positive"
)

// Valid reports whether s is one of the known statuses.
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertPending, AlertReviewed, AlertResolved, AlertFalsePositive:
		return true
	}
	return false
}

// Terminal reports whether s is a review outcome. Alerts leave pending
// for exactly one of these and are not moved again.
func (s AlertStatus) Terminal() bool {
	switch s {
	case AlertReviewed, AlertResolved, AlertFalsePositive:
		return true
	}
	return false
}

// AlertType classifies what kind of signal raised the alert.
// Unknown types from the API are kept as-is.
type AlertType string

const (
	AlertTypeAnomaly    AlertType = "anomaly"
	AlertTypeBehavioral AlertType = "behavioral"
	AlertTypePattern    AlertType = "pattern"
)

// Alert is a flagged transaction awaiting or past review.
type Alert struct {
	ID            int64       `json:"id"`
	TransactionID string      `json:"transaction_id"`
	UserID        string      `json:"user_id"`
	RiskScore     float64     `json:"risk_score"`
	AlertType     AlertType   `json:"alert_type"`
	Description   string      `json:"description"`
	Status        AlertStatus `json:"status"`
	CreatedAt     Time        `json:"created_at"`
	ReviewedAt    *Time       `json:"reviewed_at"`
}

// Clone returns a copy that shares no pointers with a.
func (a Alert) Clone() Alert {
	c := a
	if a.ReviewedAt != nil {
		r := *a.ReviewedAt
		c.ReviewedAt = &r
	}
	return c
}
