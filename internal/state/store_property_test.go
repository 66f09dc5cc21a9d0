package state

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"fraud-monitor/internal/gateway/gatewaytest"
	"fraud-monitor/internal/models"
)

// Property: for any sequence of authority growth, refreshes and optimistic
// inserts, each window stays within the cap and holds unique identities.
func TestProperty_WindowsBoundedAndUnique(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	// Each op: 0 = authority adds a transaction, 1 = authority adds an alert,
	// 2 = refresh transactions, 3 = refresh alerts, 4 = optimistic insert.
	opsGen := gen.SliceOf(gen.IntRange(0, 4))
	capGen := gen.IntRange(1, 20)

	properties.Property("windows never exceed cap or repeat an ID", prop.ForAll(
		func(ops []int, maxItems int) bool {
			fake := gatewaytest.New()
			store := New(fake, Config{MaxItems: maxItems, Logger: zerolog.Nop()})
			ctx := context.Background()
			var nextAlert int64 = 1

			for i, op := range ops {
				switch op {
				case 0:
					fake.AddTransaction(models.Transaction{TransactionID: "t" + string(rune('a'+i%26))})
				case 1:
					fake.AddAlert(models.Alert{ID: nextAlert})
					nextAlert++
				case 2:
					store.RefreshTransactions(ctx)
				case 3:
					store.RefreshAlerts(ctx)
				case 4:
					// Reuse an ID that may already be in the window.
					store.InsertTransaction(models.Transaction{ID: int64(i%7 + 1)})
				}

				txns := store.Transactions()
				alerts := store.Alerts()
				if len(txns) > maxItems || len(alerts) > maxItems {
					return false
				}
				if !uniqueTransactions(txns) || !uniqueAlerts(alerts) {
					return false
				}
			}
			return true
		},
		opsGen,
		capGen,
	))

	properties.TestingRun(t)
}

// Property: an optimistically inserted transaction is always the head of
// the window immediately after the insert.
func TestProperty_InsertIsHead(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("inserted transaction is newest", prop.ForAll(
		func(existing []int64, id int64, maxItems int) bool {
			store := New(gatewaytest.New(), Config{MaxItems: maxItems, Logger: zerolog.Nop()})
			page := make([]models.Transaction, len(existing))
			for i, e := range existing {
				page[i] = models.Transaction{ID: e}
			}
			if err := store.ReplaceTransactions(page); err != nil {
				return false
			}
			if err := store.InsertTransaction(models.Transaction{ID: id}); err != nil {
				return false
			}
			txns := store.Transactions()
			return len(txns) > 0 && txns[0].ID == id && len(txns) <= maxItems && uniqueTransactions(txns)
		},
		gen.SliceOf(gen.Int64Range(1, 50)),
		gen.Int64Range(1, 50),
		gen.IntRange(1, 30),
	))

	properties.TestingRun(t)
}

func uniqueTransactions(txns []models.Transaction) bool {
	seen := make(map[int64]bool, len(txns))
	for _, t := range txns {
		if seen[t.ID] {
			return false
		}
		seen[t.ID] = true
	}
	return true
}

func uniqueAlerts(alerts []models.Alert) bool {
	seen := make(map[int64]bool, len(alerts))
	for _, a := range alerts {
		if seen[a.ID] {
			return false
		}
		seen[a.ID] = true
	}
	return true
}
