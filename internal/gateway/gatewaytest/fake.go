// Package gatewaytest provides an in-memory Gateway for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "fraud-monitor/internal/errors"
	"fraud-monitor/internal/gateway"
	"fraud-monitor/internal/models"
)

// Fake is an in-memory authority. Lists are served newest-first like the
// real API. Errors and call gates can be injected per operation.
type Fake struct {
	mu           sync.Mutex
	transactions []models.Transaction // oldest first
	alerts       []models.Alert       // oldest first
	summary      models.Summary
	nextID       int64

	errs  map[string]error
	gates map[string]chan struct{}
	calls map[string]int
}

// Operation names accepted by FailOn, Gate and Calls.
const (
	OpCreateTransaction = "create_transaction"
	OpListTransactions  = "list_transactions"
	OpGetTransaction    = "get_transaction"
	OpListAlerts        = "list_alerts"
	OpGetAlert          = "get_alert"
	OpUpdateAlertStatus = "update_alert_status"
	OpGetSummary        = "get_summary"
)

// New creates an empty fake.
func New() *Fake {
	return &Fake{
		nextID: 1,
		errs:   make(map[string]error),
		gates:  make(map[string]chan struct{}),
		calls:  make(map[string]int),
	}
}

// AddTransaction appends a transaction as the newest and assigns an ID if unset.
func (f *Fake) AddTransaction(t models.Transaction) models.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == 0 {
		t.ID = f.nextID
	}
	if t.ID >= f.nextID {
		f.nextID = t.ID + 1
	}
	f.transactions = append(f.transactions, t)
	return t
}

// AddAlert appends an alert as the newest.
func (f *Fake) AddAlert(a models.Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.Status == "" {
		a.Status = models.AlertPending
	}
	f.alerts = append(f.alerts, a)
}

// SetSummary sets the aggregate served by GetSummary.
func (f *Fake) SetSummary(s models.Summary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summary = s
}

// FailOn makes op return err until cleared with a nil err.
func (f *Fake) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = apperrors.NewRequestError(op, "fake", 0, err)
}

// Gate makes op block after reading its result until the returned
// function is called. The result reflects the state at call time.
func (f *Fake) Gate(op string) (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[op] = ch
	var once sync.Once
	return func() {
		once.Do(func() { close(ch) })
	}
}

// Calls returns how many times op has been invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Alert returns the authority's copy of an alert.
func (f *Fake) Alert(id int64) (models.Alert, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.alerts {
		if a.ID == id {
			return a.Clone(), true
		}
	}
	return models.Alert{}, false
}

func (f *Fake) enter(op string) (chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.gates[op], f.errs[op]
}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return apperrors.NewRequestError("gate", "fake", 0, ctx.Err())
	}
}

// CreateTransaction implements gateway.Gateway.
func (f *Fake) CreateTransaction(ctx context.Context, in models.TransactionCreate) (*models.Transaction, error) {
	gate, err := f.enter(OpCreateTransaction)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	for _, t := range f.transactions {
		if t.TransactionID == in.TransactionID {
			f.mu.Unlock()
			return nil, apperrors.NewRequestError(OpCreateTransaction, "fake", 400, fmt.Errorf("Transaction already exists"))
		}
	}
	now := models.NewTime(time.Now().UTC())
	txn := models.Transaction{
		ID:            f.nextID,
		UserID:        in.UserID,
		TransactionID: in.TransactionID,
		Amount:        in.Amount,
		Merchant:      in.Merchant,
		Category:      in.Category,
		Location:      in.Location,
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
		Timestamp:     now,
		CreatedAt:     now,
	}
	f.nextID++
	f.transactions = append(f.transactions, txn)
	f.summary.TotalTransactions++
	f.summary.TotalAmount += in.Amount
	f.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return nil, err
	}
	return &txn, nil
}

// ListTransactions implements gateway.Gateway.
func (f *Fake) ListTransactions(ctx context.Context, offset, limit int) ([]models.Transaction, error) {
	return f.listTransactions(ctx, "", offset, limit)
}

// ListUserTransactions implements gateway.Gateway. It counts as a
// list_transactions call.
func (f *Fake) ListUserTransactions(ctx context.Context, userID string, offset, limit int) ([]models.Transaction, error) {
	return f.listTransactions(ctx, userID, offset, limit)
}

func (f *Fake) listTransactions(ctx context.Context, userID string, offset, limit int) ([]models.Transaction, error) {
	gate, err := f.enter(OpListTransactions)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	var out []models.Transaction
	skipped := 0
	for i := len(f.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		t := f.transactions[i]
		if userID != "" && t.UserID != userID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, t.Clone())
	}
	f.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTransaction implements gateway.Gateway.
func (f *Fake) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	gate, err := f.enter(OpGetTransaction)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	var found *models.Transaction
	for _, t := range f.transactions {
		if t.TransactionID == transactionID {
			c := t.Clone()
			found = &c
			break
		}
	}
	f.mu.Unlock()

	if found == nil {
		return nil, apperrors.NewRequestError(OpGetTransaction, "fake", 404, fmt.Errorf("Transaction not found"))
	}
	if err := wait(ctx, gate); err != nil {
		return nil, err
	}
	return found, nil
}

// GetAlert implements gateway.Gateway.
func (f *Fake) GetAlert(ctx context.Context, alertID int64) (*models.Alert, error) {
	gate, err := f.enter(OpGetAlert)
	if err != nil {
		return nil, err
	}

	a, ok := f.Alert(alertID)
	if !ok {
		return nil, apperrors.NewRequestError(OpGetAlert, "fake", 404, fmt.Errorf("Alert not found"))
	}
	if err := wait(ctx, gate); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAlerts implements gateway.Gateway.
func (f *Fake) ListAlerts(ctx context.Context, offset, limit int, status models.AlertStatus) ([]models.Alert, error) {
	gate, err := f.enter(OpListAlerts)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	var out []models.Alert
	skipped := 0
	for i := len(f.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		a := f.alerts[i]
		if status != "" && a.Status != status {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, a.Clone())
	}
	f.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateAlertStatus implements gateway.Gateway.
func (f *Fake) UpdateAlertStatus(ctx context.Context, alertID int64, status models.AlertStatus) error {
	gate, err := f.enter(OpUpdateAlertStatus)
	if err != nil {
		return err
	}

	f.mu.Lock()
	found := false
	for i := range f.alerts {
		if f.alerts[i].ID != alertID {
			continue
		}
		found = true
		if f.alerts[i].Status == models.AlertPending && status != models.AlertPending {
			f.summary.PendingAlerts--
		}
		f.alerts[i].Status = status
		if status.Terminal() {
			reviewed := models.NewTime(time.Now().UTC())
			f.alerts[i].ReviewedAt = &reviewed
		}
	}
	f.mu.Unlock()

	if !found {
		return apperrors.NewRequestError(OpUpdateAlertStatus, "fake", 404, fmt.Errorf("Alert not found"))
	}
	return wait(ctx, gate)
}

// GetSummary implements gateway.Gateway.
func (f *Fake) GetSummary(ctx context.Context) (*models.Summary, error) {
	gate, err := f.enter(OpGetSummary)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	s := f.summary
	f.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return nil, err
	}
	return &s, nil
}

var _ gateway.Gateway = (*Fake)(nil)
