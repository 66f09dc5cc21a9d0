package router

import (
	"bytes"
	"sort"
	"testing"

	"github.com/rs/zerolog"

	apperrors "fraud-monitor/internal/errors"
	"fraud-monitor/internal/state"
)

func sorted(kinds []state.Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	sort.Strings(out)
	return out
}

func TestRouteFraudAlertRefreshesEverything(t *testing.T) {
	payloads := []string{
		`{"type":"fraud_alert","data":{"transaction_id":"txn_1","user_id":"u","risk_score":87.5,"alert_type":"pattern","description":"x"}}`,
		`{"type":"fraud_alert"}`,
		`{"type":"fraud_alert","data":"not an object"}`,
		`  {"type":"fraud_alert","data":{},"extra":[1,2,3]}`,
	}

	r := New(zerolog.Nop())
	for _, p := range payloads {
		got := sorted(r.Route([]byte(p)))
		want := []string{"alerts", "summary", "transactions"}
		if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
			t.Errorf("Route(%s) = %v, want %v", p, got, want)
		}
	}
}

func TestRouteUnknownTypeIsNoop(t *testing.T) {
	r := New(zerolog.Nop())
	for _, p := range []string{
		`{"type":"connection","message":"Connected to fraud detection system"}`,
		`{"type":"echo","message":"ping"}`,
		`{"type":"FRAUD_ALERT"}`,
	} {
		if got := r.Route([]byte(p)); len(got) != 0 {
			t.Errorf("Route(%s) = %v, want none", p, got)
		}
	}
}

func TestRouteMalformedIsSwallowed(t *testing.T) {
	var buf bytes.Buffer
	r := New(zerolog.New(&buf))

	for _, p := range []string{``, `not json`, `[1,2]`, `{"type":`, `{"data":{}}`, `{"type":""}`, `{"type":42}`} {
		if got := r.Route([]byte(p)); len(got) != 0 {
			t.Errorf("Route(%q) = %v, want none", p, got)
		}
	}
	if !bytes.Contains(buf.Bytes(), []byte("Dropping malformed notification")) {
		t.Error("expected malformed payloads to be logged")
	}
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`{"message":"no type"}`))
	if !apperrors.Is(err, apperrors.ErrMalformedNotification) {
		t.Errorf("expected ErrMalformedNotification, got %v", err)
	}

	n, err := Parse([]byte(`{"type":"fraud_alert","data":{"risk_score":90}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if n.Type != TypeFraudAlert || len(n.Data) == 0 {
		t.Errorf("unexpected notification %+v", n)
	}
}

func TestActionsIsPure(t *testing.T) {
	a := Actions(Notification{Type: TypeFraudAlert})
	b := Actions(Notification{Type: TypeFraudAlert, Data: []byte(`{"risk_score":1}`)})
	if len(a) != 3 || len(b) != 3 {
		t.Fatalf("unexpected action counts %d, %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("actions depend on payload body: %v vs %v", a, b)
		}
	}
	if Actions(Notification{Type: "other"}) != nil {
		t.Error("unknown type should map to nil")
	}
}
