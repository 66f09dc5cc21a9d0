package command

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fraud-monitor/internal/audit"
	apperrors "fraud-monitor/internal/errors"
	"fraud-monitor/internal/gateway/gatewaytest"
	"fraud-monitor/internal/logging"
	"fraud-monitor/internal/models"
	"fraud-monitor/internal/state"
)

type memRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *memRecorder) Record(_ context.Context, e audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memRecorder) Close() error { return nil }

func (m *memRecorder) all() []audit.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audit.Entry(nil), m.entries...)
}

func setup(t *testing.T) (*gatewaytest.Fake, *state.Store, *memRecorder, *Gateway) {
	t.Helper()
	fake := gatewaytest.New()
	store := state.New(fake, state.Config{Logger: zerolog.Nop()})
	rec := &memRecorder{}
	g := New(Config{Gateway: fake, Store: store, Recorder: rec, SessionID: "test", Logger: zerolog.Nop()})
	return fake, store, rec, g
}

func pendingAlert(id int64) models.Alert {
	return models.Alert{
		ID:            id,
		TransactionID: "txn_7",
		UserID:        "user_1",
		RiskScore:     91,
		AlertType:     models.AlertTypeAnomaly,
		Description:   "amount far above user baseline",
		Status:        models.AlertPending,
	}
}

func TestTransitionReviewed(t *testing.T) {
	fake, store, rec, g := setup(t)
	fake.AddAlert(pendingAlert(7))
	fake.SetSummary(models.Summary{PendingAlerts: 1})
	ctx := context.Background()
	if err := store.RefreshAlerts(ctx); err != nil {
		t.Fatal(err)
	}

	if err := g.Transition(ctx, 7, models.AlertReviewed); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	alerts := store.Alerts()
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d", len(alerts))
	}
	if alerts[0].Status != models.AlertReviewed {
		t.Errorf("status = %s, want reviewed", alerts[0].Status)
	}
	if alerts[0].ReviewedAt == nil || alerts[0].ReviewedAt.IsZero() {
		t.Error("reviewed_at not populated")
	}
	if store.Summary().PendingAlerts != 0 {
		t.Errorf("summary not refreshed: %+v", store.Summary())
	}
	if fake.Calls(gatewaytest.OpListAlerts) != 2 || fake.Calls(gatewaytest.OpGetSummary) != 1 {
		t.Errorf("refresh calls: alerts=%d summary=%d",
			fake.Calls(gatewaytest.OpListAlerts), fake.Calls(gatewaytest.OpGetSummary))
	}

	entries := rec.all()
	if len(entries) != 1 || !entries[0].Success || entries[0].Target != "7" || entries[0].SessionID != "test" {
		t.Errorf("journal = %+v", entries)
	}
}

func TestTransitionFailureLeavesStateUntouched(t *testing.T) {
	fake, store, rec, g := setup(t)
	fake.AddAlert(pendingAlert(7))
	ctx := context.Background()
	if err := store.RefreshAlerts(ctx); err != nil {
		t.Fatal(err)
	}
	fake.FailOn(gatewaytest.OpUpdateAlertStatus, errors.New("boom"))

	err := g.Transition(ctx, 7, models.AlertResolved)
	if !apperrors.Is(err, apperrors.ErrCommandFailed) {
		t.Fatalf("expected ErrCommandFailed, got %v", err)
	}
	if !apperrors.Is(err, apperrors.ErrRequestFailed) {
		t.Errorf("cause not preserved: %v", err)
	}

	if got := store.Alerts()[0].Status; got != models.AlertPending {
		t.Errorf("local status = %s, want pending", got)
	}
	if a, _ := fake.Alert(7); a.Status != models.AlertPending {
		t.Errorf("remote status = %s, want pending", a.Status)
	}
	if fake.Calls(gatewaytest.OpListAlerts) != 1 || fake.Calls(gatewaytest.OpGetSummary) != 0 {
		t.Error("refresh issued after a failed transition")
	}

	entries := rec.all()
	if len(entries) != 1 || entries[0].Success || entries[0].Error == "" {
		t.Errorf("journal = %+v", entries)
	}
}

func TestTransitionRejectsNonTerminalStatus(t *testing.T) {
	fake, _, _, g := setup(t)
	fake.AddAlert(pendingAlert(7))

	for _, status := range []models.AlertStatus{models.AlertPending, "escalated", ""} {
		err := g.Transition(context.Background(), 7, status)
		if !apperrors.Is(err, apperrors.ErrCommandFailed) || !apperrors.Is(err, apperrors.ErrInputValidation) {
			t.Errorf("Transition(%q) = %v", status, err)
		}
	}
	if fake.Calls(gatewaytest.OpUpdateAlertStatus) != 0 {
		t.Error("API called for an invalid status")
	}
}

func TestTransitionSucceedsWhenRefreshFails(t *testing.T) {
	fake, _, _, g := setup(t)
	fake.AddAlert(pendingAlert(7))
	fake.FailOn(gatewaytest.OpListAlerts, errors.New("unavailable"))

	if err := g.Transition(context.Background(), 7, models.AlertFalsePositive); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if a, _ := fake.Alert(7); a.Status != models.AlertFalsePositive {
		t.Errorf("remote status = %s", a.Status)
	}
}

func TestSubmitVisibleBeforeSummaryRefresh(t *testing.T) {
	fake, store, _, g := setup(t)
	release := fake.Gate(gatewaytest.OpGetSummary)
	defer release()

	type result struct {
		txn *models.Transaction
		err error
	}
	done := make(chan result, 1)
	go func() {
		txn, err := g.Submit(context.Background(), models.TransactionCreate{
			UserID:        "user_1",
			TransactionID: "txn_new",
			Amount:        120.5,
			Merchant:      "Acme",
			Category:      "retail",
		})
		done <- result{txn, err}
	}()

	deadline := time.After(2 * time.Second)
	for fake.Calls(gatewaytest.OpGetSummary) == 0 {
		select {
		case <-deadline:
			t.Fatal("summary refresh never started")
		case <-time.After(time.Millisecond):
		}
	}

	txns := store.Transactions()
	if len(txns) != 1 || txns[0].TransactionID != "txn_new" {
		t.Fatalf("transaction not visible while summary pending: %+v", txns)
	}
	if store.Summary().TotalTransactions != 0 {
		t.Error("summary applied before refresh completed")
	}

	release()
	r := <-done
	if r.err != nil {
		t.Fatalf("Submit: %v", r.err)
	}
	if r.txn.ID == 0 || r.txn.CreatedAt.IsZero() {
		t.Errorf("returned transaction lacks server fields: %+v", r.txn)
	}
	if store.Summary().TotalTransactions != 1 {
		t.Errorf("summary = %+v", store.Summary())
	}
}

func TestSubmitFillsIdempotencyKey(t *testing.T) {
	_, store, rec, g := setup(t)

	txn, err := g.Submit(context.Background(), models.TransactionCreate{UserID: "u", Amount: 5, Merchant: "m", Category: "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(txn.TransactionID) != 36 {
		t.Errorf("transaction_id = %q, want a UUID", txn.TransactionID)
	}
	if store.Transactions()[0].TransactionID != txn.TransactionID {
		t.Error("store holds a different transaction")
	}
	if e := rec.all(); len(e) != 1 || e[0].Target != txn.TransactionID {
		t.Errorf("journal = %+v", e)
	}
}

func TestSubmitFailures(t *testing.T) {
	tests := []struct {
		name    string
		in      models.TransactionCreate
		failOn  string
		wantVal bool
	}{
		{"zero amount", models.TransactionCreate{UserID: "u", Amount: 0}, "", true},
		{"negative amount", models.TransactionCreate{UserID: "u", Amount: -3}, "", true},
		{"missing user", models.TransactionCreate{Amount: 10}, "", true},
		{"api error", models.TransactionCreate{UserID: "u", Amount: 10}, gatewaytest.OpCreateTransaction, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, store, _, g := setup(t)
			if tt.failOn != "" {
				fake.FailOn(tt.failOn, errors.New("rejected"))
			}

			_, err := g.Submit(context.Background(), tt.in)
			if !apperrors.Is(err, apperrors.ErrCommandFailed) {
				t.Fatalf("expected ErrCommandFailed, got %v", err)
			}
			if apperrors.Is(err, apperrors.ErrInputValidation) != tt.wantVal {
				t.Errorf("validation = %v, want %v", apperrors.Is(err, apperrors.ErrInputValidation), tt.wantVal)
			}
			if len(store.Transactions()) != 0 {
				t.Error("store mutated after failed submit")
			}
			if fake.Calls(gatewaytest.OpGetSummary) != 0 {
				t.Error("summary refreshed after failed submit")
			}
		})
	}
}

func TestSubmitDuplicateKeyFails(t *testing.T) {
	_, _, _, g := setup(t)
	in := models.TransactionCreate{UserID: "u", TransactionID: "dup", Amount: 1}
	if _, err := g.Submit(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Submit(context.Background(), in); !apperrors.Is(err, apperrors.ErrCommandFailed) {
		t.Errorf("expected duplicate submit to fail, got %v", err)
	}
}

// loggingFake logs through the context logger like the HTTP client does.
type loggingFake struct {
	*gatewaytest.Fake
}

func (f loggingFake) UpdateAlertStatus(ctx context.Context, alertID int64, status models.AlertStatus) error {
	l := logging.FromContext(ctx, zerolog.Nop())
	l.Info().Str("status", string(status)).Msg("api call")
	return f.Fake.UpdateAlertStatus(ctx, alertID, status)
}

func TestTransitionScopesContextLogger(t *testing.T) {
	fake := gatewaytest.New()
	fake.AddAlert(pendingAlert(7))
	var buf bytes.Buffer
	lg := zerolog.New(&buf)
	gw := loggingFake{fake}
	store := state.New(gw, state.Config{Logger: zerolog.Nop()})
	g := New(Config{Gateway: gw, Store: store, SessionID: "test", Logger: lg})

	if err := g.Transition(context.Background(), 7, models.AlertResolved); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	var line string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, `"message":"api call"`) {
			line = l
		}
	}
	if line == "" {
		t.Fatalf("gateway call did not log through the context logger: %s", buf.String())
	}
	for _, want := range []string{`"command":"set_alert_status"`, `"target":"7"`, `"component":"command"`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %s missing %s", line, want)
		}
	}
}
