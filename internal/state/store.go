// Package state holds the canonical in-memory view of transactions, alerts
// and the summary, kept consistent with the remote API.
package state

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "fraud-monitor/internal/errors"
	"fraud-monitor/internal/gateway"
	"fraud-monitor/internal/logging"
	"fraud-monitor/internal/metrics"
	"fraud-monitor/internal/models"
)

// DefaultMaxItems is the window depth for both collections.
const DefaultMaxItems = 500

// Kind identifies one independently refreshed piece of state.
type Kind string

const (
	KindTransactions Kind = "transactions"
	KindAlerts       Kind = "alerts"
	KindSummary      Kind = "summary"
)

// Kinds lists every refreshable piece of state.
var Kinds = []Kind{KindTransactions, KindAlerts, KindSummary}

// Config holds store configuration.
type Config struct {
	MaxItems int
	Logger   zerolog.Logger
}

// Store owns the synchronized state. Each refresh replaces one field
// wholesale; refreshes of different fields never interact and concurrent
// refreshes of the same field resolve as last write wins. Reads return
// copies.
type Store struct {
	gw       gateway.Gateway
	maxItems int
	logger   zerolog.Logger

	mu           sync.RWMutex
	transactions []models.Transaction
	alerts       []models.Alert
	summary      models.Summary
	lastSync     map[Kind]time.Time
	closed       bool
	onChange     func(Kind)
}

// New creates a store fed by gw.
func New(gw gateway.Gateway, cfg Config) *Store {
	maxItems := cfg.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &Store{
		gw:       gw,
		maxItems: maxItems,
		logger:   logging.WithComponent(cfg.Logger, "store"),
		lastSync: make(map[Kind]time.Time),
	}
}

// MaxItems returns the collection cap.
func (s *Store) MaxItems() int {
	return s.maxItems
}

// OnChange registers a function called after every applied write.
// It runs outside the store lock.
func (s *Store) OnChange(fn func(Kind)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Transactions returns a copy of the transaction window, newest first.
func (s *Store) Transactions() []models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTransactions(s.transactions)
}

// Alerts returns a copy of the alert window, newest first.
func (s *Store) Alerts() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAlerts(s.alerts)
}

// Summary returns the latest aggregate.
func (s *Store) Summary() models.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// Snapshot returns all three values read under one lock.
func (s *Store) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Snapshot{
		Transactions: cloneTransactions(s.transactions),
		Alerts:       cloneAlerts(s.alerts),
		Summary:      s.summary,
	}
}

// Len returns the number of items held for kind. The summary counts as one
// item once it has been written.
func (s *Store) Len(kind Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch kind {
	case KindTransactions:
		return len(s.transactions)
	case KindAlerts:
		return len(s.alerts)
	case KindSummary:
		if _, ok := s.lastSync[KindSummary]; ok {
			return 1
		}
	}
	return 0
}

// LastSync returns when kind was last written, or the zero time.
func (s *Store) LastSync(kind Kind) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync[kind]
}

// Refresh dispatches to the refresh operation for kind.
func (s *Store) Refresh(ctx context.Context, kind Kind) error {
	switch kind {
	case KindTransactions:
		return s.RefreshTransactions(ctx)
	case KindAlerts:
		return s.RefreshAlerts(ctx)
	case KindSummary:
		return s.RefreshSummary(ctx)
	}
	return apperrors.NewValidationError("kind", kind, "unknown state kind")
}

// RefreshTransactions fetches the newest page and replaces the window.
func (s *Store) RefreshTransactions(ctx context.Context) error {
	start := time.Now()
	page, err := s.gw.ListTransactions(ctx, 0, s.maxItems)
	if err == nil {
		err = s.ReplaceTransactions(page)
	}
	s.observe(KindTransactions, start, err)
	return err
}

// RefreshAlerts fetches the newest page and replaces the window.
func (s *Store) RefreshAlerts(ctx context.Context) error {
	start := time.Now()
	page, err := s.gw.ListAlerts(ctx, 0, s.maxItems, "")
	if err == nil {
		err = s.ReplaceAlerts(page)
	}
	s.observe(KindAlerts, start, err)
	return err
}

// RefreshSummary fetches and replaces the aggregate.
func (s *Store) RefreshSummary(ctx context.Context) error {
	start := time.Now()
	summary, err := s.gw.GetSummary(ctx)
	if err == nil {
		err = s.SetSummary(*summary)
	}
	s.observe(KindSummary, start, err)
	return err
}

// ReplaceTransactions installs page as the transaction window.
func (s *Store) ReplaceTransactions(page []models.Transaction) error {
	next := bound(cloneTransactions(page), transactionID, s.maxItems)
	return s.apply(KindTransactions, func() {
		s.transactions = next
	})
}

// ReplaceAlerts installs page as the alert window.
func (s *Store) ReplaceAlerts(page []models.Alert) error {
	next := bound(cloneAlerts(page), alertID, s.maxItems)
	return s.apply(KindAlerts, func() {
		s.alerts = next
	})
}

// SetSummary replaces the aggregate.
func (s *Store) SetSummary(summary models.Summary) error {
	return s.apply(KindSummary, func() {
		s.summary = summary
	})
}

// InsertTransaction prepends an authoritative transaction ahead of the next
// full refresh. An existing entry with the same ID is replaced; the tail
// is evicted past the cap.
func (s *Store) InsertTransaction(txn models.Transaction) error {
	txn = txn.Clone()
	return s.apply(KindTransactions, func() {
		next := make([]models.Transaction, 0, len(s.transactions)+1)
		next = append(next, txn)
		next = append(next, s.transactions...)
		s.transactions = bound(next, transactionID, s.maxItems)
	})
}

// Close tears the store down. Writes after Close, including those of
// fetches already in flight, are dropped and return ErrSessionClosed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.onChange = nil
}

// Closed reports whether Close has been called.
func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Store) apply(kind Kind, write func()) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return apperrors.ErrSessionClosed
	}
	write()
	s.lastSync[kind] = time.Now()
	onChange := s.onChange
	nTxn, nAlerts := len(s.transactions), len(s.alerts)
	s.mu.Unlock()

	metrics.StoreItems.WithLabelValues(string(KindTransactions)).Set(float64(nTxn))
	metrics.StoreItems.WithLabelValues(string(KindAlerts)).Set(float64(nAlerts))

	if onChange != nil {
		onChange(kind)
	}
	return nil
}

func (s *Store) observe(kind Kind, start time.Time, err error) {
	outcome := metrics.Outcome(err)
	if apperrors.Is(err, apperrors.ErrSessionClosed) {
		outcome = metrics.OutcomeDropped
	}
	metrics.RefreshTotal.WithLabelValues(string(kind), outcome).Inc()
	metrics.RefreshDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
}

// bound drops repeated identities, keeping the first (newest) copy, then
// truncates the tail to max.
func bound[T any](items []T, id func(T) int64, max int) []T {
	seen := make(map[int64]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		k := id(item)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
		if len(out) == max {
			break
		}
	}
	return out
}

func transactionID(t models.Transaction) int64 { return t.ID }

func alertID(a models.Alert) int64 { return a.ID }

func cloneTransactions(in []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}

func cloneAlerts(in []models.Alert) []models.Alert {
	out := make([]models.Alert, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}
