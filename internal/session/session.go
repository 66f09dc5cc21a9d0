// Package session wires the store, push channel, router, poll scheduler and
// command gateway into one live view of the fraud API.
package session

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fraud-monitor/internal/audit"
	"fraud-monitor/internal/command"
	apperrors "fraud-monitor/internal/errors"
	"fraud-monitor/internal/gateway"
	"fraud-monitor/internal/logging"
	"fraud-monitor/internal/models"
	"fraud-monitor/internal/push"
	"fraud-monitor/internal/router"
	"fraud-monitor/internal/scheduler"
	"fraud-monitor/internal/state"
)

const maxReconnectDelay = 30 * time.Second

// Config holds session configuration.
type Config struct {
	Gateway gateway.Gateway

	// PushURL is the websocket endpoint. Empty disables push; the session
	// then relies on polling alone.
	PushURL           string
	HandshakeTimeout  time.Duration
	ReconnectAttempts int
	ReconnectDelay    time.Duration

	SummaryInterval time.Duration
	DataInterval    time.Duration
	MaxItems        int

	Recorder audit.Recorder
	Logger   zerolog.Logger
}

// DefaultConfig returns a config with the standard cadences for gw.
func DefaultConfig(gw gateway.Gateway) Config {
	return Config{
		Gateway:         gw,
		ReconnectDelay:  time.Second,
		SummaryInterval: 2 * time.Second,
		DataInterval:    5 * time.Second,
		MaxItems:        state.DefaultMaxItems,
		Logger:          zerolog.Nop(),
	}
}

// Session is one running sync engine. It is started once and stopped once.
type Session struct {
	id       string
	cfg      Config
	logger   zerolog.Logger
	store    *state.Store
	router   *router.Router
	sched    *scheduler.Scheduler
	commands *command.Gateway

	mu      sync.Mutex
	started bool
	stopped bool
	channel *push.Channel
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a session. Nothing runs until Start.
func New(cfg Config) *Session {
	id := uuid.NewString()
	logger := cfg.Logger.With().Str("session", id).Logger()

	store := state.New(cfg.Gateway, state.Config{
		MaxItems: cfg.MaxItems,
		Logger:   logger,
	})

	s := &Session{
		id:     id,
		cfg:    cfg,
		logger: logging.WithComponent(logger, "session"),
		store:  store,
		router: router.New(logger),
		commands: command.New(command.Config{
			Gateway:   cfg.Gateway,
			Store:     store,
			Recorder:  cfg.Recorder,
			SessionID: id,
			Logger:    logger,
		}),
	}

	s.sched = scheduler.New(logger,
		scheduler.Task{
			Name:     "summary",
			Interval: cfg.SummaryInterval,
			Run:      s.pollSummary,
		},
		scheduler.Task{
			Name:     "collections",
			Interval: cfg.DataInterval,
			Run:      s.pollCollections,
		},
	)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Store returns the underlying state store.
func (s *Session) Store() *state.Store {
	return s.store
}

// Start begins polling and opens the push channel. The first poll of
// every piece of state is issued immediately. A push channel that fails
// to open is logged and polling continues.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("session already started")
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	runCtx := s.ctx
	s.mu.Unlock()

	if err := s.sched.Start(runCtx); err != nil {
		s.mu.Lock()
		s.started = false
		s.cancel()
		s.mu.Unlock()
		return err
	}

	if s.cfg.PushURL != "" {
		if err := s.openChannel(runCtx); err != nil {
			s.logger.Warn().Err(err).Msg("Push channel unavailable, continuing with polling")
			s.scheduleReconnect()
		}
	}

	s.logger.Info().
		Dur("summary_interval", s.cfg.SummaryInterval).
		Dur("data_interval", s.cfg.DataInterval).
		Bool("push", s.cfg.PushURL != "").
		Msg("Session started")
	return nil
}

// Stop closes the push channel, cancels polling and tears down the store.
// Fetches still in flight finish without touching the state. Safe to call
// more than once.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	channel := s.channel
	cancel := s.cancel
	s.mu.Unlock()

	if channel != nil {
		channel.Close()
	}
	s.sched.Stop()
	s.store.Close()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	s.logger.Info().Msg("Session stopped")
}

// Snapshot returns copies of all three pieces of state.
func (s *Session) Snapshot() models.Snapshot {
	return s.store.Snapshot()
}

// PushConnected reports whether the push channel is currently open.
func (s *Session) PushConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel != nil && s.channel.Connected()
}

// SubmitTransaction creates a transaction through the API.
func (s *Session) SubmitTransaction(ctx context.Context, in models.TransactionCreate) (*models.Transaction, error) {
	if s.store.Closed() {
		return nil, apperrors.NewCommandError(audit.CommandSubmit, in.TransactionID, apperrors.ErrSessionClosed)
	}
	return s.commands.Submit(ctx, in)
}

// SetAlertStatus moves an alert to a review outcome through the API.
func (s *Session) SetAlertStatus(ctx context.Context, alertID int64, status models.AlertStatus) error {
	if s.store.Closed() {
		return apperrors.NewCommandError(audit.CommandTransition, fmt.Sprint(alertID), apperrors.ErrSessionClosed)
	}
	return s.commands.Transition(ctx, alertID, status)
}

func (s *Session) pollSummary(ctx context.Context) {
	err := s.store.RefreshSummary(ctx)
	s.logRefresh(state.KindSummary, err)
}

func (s *Session) pollCollections(ctx context.Context) {
	var wg sync.WaitGroup
	for _, kind := range []state.Kind{state.KindTransactions, state.KindAlerts} {
		wg.Add(1)
		go func(kind state.Kind) {
			defer wg.Done()
			s.logRefresh(kind, s.store.Refresh(ctx, kind))
		}(kind)
	}
	wg.Wait()
}

func (s *Session) logRefresh(kind state.Kind, err error) {
	if apperrors.Is(err, apperrors.ErrSessionClosed) {
		return
	}
	logging.LogRefresh(s.logger, string(kind), s.store.Len(kind), err)
}

// dispatch starts one refresh without blocking the push read loop.
func (s *Session) dispatch(kind state.Kind) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.logRefresh(kind, s.store.Refresh(ctx, kind))
	}()
}

func (s *Session) handleMessage(payload []byte) {
	for _, kind := range s.router.Route(payload) {
		s.dispatch(kind)
	}
}

func (s *Session) openChannel(ctx context.Context) error {
	ch := push.New(push.Config{
		URL:              s.cfg.PushURL,
		HandshakeTimeout: s.cfg.HandshakeTimeout,
		Logger:           s.cfg.Logger.With().Str("session", s.id).Logger(),
	})
	ch.OnMessage(s.handleMessage)
	ch.OnError(func(err error) {
		s.logger.Debug().Err(err).Msg("Push channel reported an error")
	})
	ch.OnClose(func() {
		s.logger.Warn().Msg("Push channel closed")
		s.scheduleReconnect()
	})

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return apperrors.ErrSessionClosed
	}
	s.channel = ch
	s.mu.Unlock()

	return ch.Open(ctx)
}

// scheduleReconnect starts the reconnect loop if one is configured.
func (s *Session) scheduleReconnect() {
	if s.cfg.ReconnectAttempts <= 0 {
		return
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.reconnect(ctx)
	}()
}

// reconnect retries the push channel with exponential backoff.
func (s *Session) reconnect(ctx context.Context) {
	base := s.cfg.ReconnectDelay
	if base <= 0 {
		base = time.Second
	}

	for attempt := 0; attempt < s.cfg.ReconnectAttempts; attempt++ {
		delay := base * time.Duration(math.Pow(2, float64(attempt)))
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		s.logger.Info().Int("attempt", attempt+1).Dur("delay", delay).Msg("Reconnecting push channel")
		err := s.openChannel(ctx)
		if err == nil {
			return
		}
		if apperrors.Is(err, apperrors.ErrSessionClosed) {
			return
		}
		s.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Reconnect failed")
	}

	s.logger.Error().Int("attempts", s.cfg.ReconnectAttempts).Msg("Max reconnection attempts reached, polling only")
}
