package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOutcome(t *testing.T) {
	if Outcome(nil) != OutcomeSuccess {
		t.Error("nil error should be success")
	}
	if Outcome(errors.New("x")) != OutcomeFailure {
		t.Error("error should be failure")
	}
}

func TestRefreshCounterLabels(t *testing.T) {
	c := RefreshTotal.WithLabelValues("summary", OutcomeSuccess)
	before := testutil.ToFloat64(c)
	c.Inc()
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Errorf("counter = %v, want %v", got, before+1)
	}
}
