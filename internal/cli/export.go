package cli

import (
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"fraud-monitor/internal/audit"
	"fraud-monitor/internal/models"
)

type transactionRow struct {
	ID            int64   `csv:"id"`
	TransactionID string  `csv:"transaction_id"`
	UserID        string  `csv:"user_id"`
	Amount        float64 `csv:"amount"`
	Merchant      string  `csv:"merchant"`
	Category      string  `csv:"category"`
	RiskScore     string  `csv:"risk_score"`
	IsFraud       bool    `csv:"is_fraud"`
	Timestamp     string  `csv:"timestamp"`
}

type alertRow struct {
	ID            int64   `csv:"id"`
	TransactionID string  `csv:"transaction_id"`
	UserID        string  `csv:"user_id"`
	RiskScore     float64 `csv:"risk_score"`
	AlertType     string  `csv:"alert_type"`
	Status        string  `csv:"status"`
	Description   string  `csv:"description"`
	CreatedAt     string  `csv:"created_at"`
	ReviewedAt    string  `csv:"reviewed_at"`
}

type historyRow struct {
	Timestamp string `csv:"timestamp"`
	SessionID string `csv:"session_id"`
	Command   string `csv:"command"`
	Target    string `csv:"target"`
	Success   bool   `csv:"success"`
	Error     string `csv:"error"`
}

func writeCSV(w io.Writer, rows interface{}) error {
	return gocsv.Marshal(rows, w)
}

func csvTime(t models.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func transactionRows(txns []models.Transaction) []*transactionRow {
	rows := make([]*transactionRow, 0, len(txns))
	for _, t := range txns {
		row := &transactionRow{
			ID:            t.ID,
			TransactionID: t.TransactionID,
			UserID:        t.UserID,
			Amount:        t.Amount,
			Merchant:      t.Merchant,
			Category:      t.Category,
			IsFraud:       t.IsFraud,
			Timestamp:     csvTime(t.Timestamp),
		}
		if t.Scored() {
			row.RiskScore = FormatRisk(*t.RiskScore)
		}
		rows = append(rows, row)
	}
	return rows
}

func alertRows(alerts []models.Alert) []*alertRow {
	rows := make([]*alertRow, 0, len(alerts))
	for _, a := range alerts {
		row := &alertRow{
			ID:            a.ID,
			TransactionID: a.TransactionID,
			UserID:        a.UserID,
			RiskScore:     a.RiskScore,
			AlertType:     string(a.AlertType),
			Status:        string(a.Status),
			Description:   a.Description,
			CreatedAt:     csvTime(a.CreatedAt),
		}
		if a.ReviewedAt != nil {
			row.ReviewedAt = csvTime(*a.ReviewedAt)
		}
		rows = append(rows, row)
	}
	return rows
}

func historyRows(entries []audit.Entry) []*historyRow {
	rows := make([]*historyRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, &historyRow{
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			SessionID: e.SessionID,
			Command:   e.Command,
			Target:    e.Target,
			Success:   e.Success,
			Error:     e.Error,
		})
	}
	return rows
}
