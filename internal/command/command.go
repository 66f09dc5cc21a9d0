// Package command issues user-initiated mutations against the fraud API and
// reconciles the local state after the API confirms them.
package command

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fraud-monitor/internal/audit"
	apperrors "fraud-monitor/internal/errors"
	"fraud-monitor/internal/gateway"
	"fraud-monitor/internal/logging"
	"fraud-monitor/internal/metrics"
	"fraud-monitor/internal/models"
	"fraud-monitor/internal/state"
)

// Config holds dependencies for the command gateway.
type Config struct {
	Gateway   gateway.Gateway
	Store     *state.Store
	Recorder  audit.Recorder
	SessionID string
	Logger    zerolog.Logger
}

// Gateway applies commands. Alert statuses are never changed locally
// before the API confirms; the local view only moves through refreshes.
type Gateway struct {
	gw        gateway.Gateway
	store     *state.Store
	recorder  audit.Recorder
	sessionID string
	logger    zerolog.Logger
}

// New creates a command gateway.
func New(cfg Config) *Gateway {
	rec := cfg.Recorder
	if rec == nil {
		rec = audit.Nop{}
	}
	return &Gateway{
		gw:        cfg.Gateway,
		store:     cfg.Store,
		recorder:  rec,
		sessionID: cfg.SessionID,
		logger:    logging.WithComponent(cfg.Logger, "command"),
	}
}

// Submit creates a transaction. On success the authoritative record is
// inserted at the head of the local window before the summary is
// refreshed. An empty TransactionID is replaced by a fresh UUID.
func (g *Gateway) Submit(ctx context.Context, in models.TransactionCreate) (*models.Transaction, error) {
	if in.TransactionID == "" {
		in.TransactionID = uuid.NewString()
	}
	ctx = g.scoped(ctx, audit.CommandSubmit, in.TransactionID)

	txn, err := g.submit(ctx, in)
	g.finish(ctx, audit.CommandSubmit, in.TransactionID, err, map[string]interface{}{
		"user_id":  in.UserID,
		"amount":   in.Amount,
		"merchant": in.Merchant,
	})
	if err != nil {
		return nil, apperrors.NewCommandError(audit.CommandSubmit, in.TransactionID, err)
	}

	if err := g.store.InsertTransaction(*txn); err != nil {
		g.logger.Warn().Err(err).Str("transaction_id", txn.TransactionID).Msg("Could not insert submitted transaction")
	}
	if err := g.store.RefreshSummary(ctx); err != nil {
		logging.LogRefresh(g.logger, string(state.KindSummary), 0, err)
	}
	return txn, nil
}

func (g *Gateway) submit(ctx context.Context, in models.TransactionCreate) (*models.Transaction, error) {
	if in.UserID == "" {
		return nil, apperrors.NewValidationError("user_id", in.UserID, "required")
	}
	if in.Amount <= 0 {
		return nil, apperrors.NewValidationError("amount", in.Amount, "must be greater than zero")
	}
	return g.gw.CreateTransaction(ctx, in)
}

// Transition moves an alert out of pending. The target must be a review
// outcome. After the API confirms, alerts and the summary are refreshed.
// A failed refresh is logged only; the write itself has succeeded.
func (g *Gateway) Transition(ctx context.Context, alertID int64, status models.AlertStatus) error {
	target := strconv.FormatInt(alertID, 10)
	ctx = g.scoped(ctx, audit.CommandTransition, target)

	var err error
	if !status.Terminal() {
		err = apperrors.NewValidationError("status", status, "must be reviewed, resolved or false_positive")
	} else {
		err = g.gw.UpdateAlertStatus(ctx, alertID, status)
	}
	g.finish(ctx, audit.CommandTransition, target, err, map[string]interface{}{
		"status": string(status),
	})
	if err != nil {
		return apperrors.NewCommandError(audit.CommandTransition, target, err)
	}

	if err := g.store.RefreshAlerts(ctx); err != nil {
		logging.LogRefresh(g.logger, string(state.KindAlerts), 0, err)
	}
	if err := g.store.RefreshSummary(ctx); err != nil {
		logging.LogRefresh(g.logger, string(state.KindSummary), 0, err)
	}
	return nil
}

// scoped carries a logger tagged with the command onto ctx so the API
// calls and refreshes it triggers log under the same fields.
func (g *Gateway) scoped(ctx context.Context, command, target string) context.Context {
	l := g.logger.With().Str("command", command).Str("target", target).Logger()
	return logging.WithLogger(ctx, l)
}

func (g *Gateway) finish(ctx context.Context, command, target string, err error, details map[string]interface{}) {
	logging.LogCommand(g.logger, command, target, err)
	metrics.CommandsTotal.WithLabelValues(command, metrics.Outcome(err)).Inc()

	entry := audit.Entry{
		SessionID: g.sessionID,
		Command:   command,
		Target:    target,
		Success:   err == nil,
		Details:   details,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	// Journal failures are logged only.
	if rerr := g.recorder.Record(context.WithoutCancel(ctx), entry); rerr != nil {
		g.logger.Warn().Err(rerr).Str("command", command).Msg("Failed to record command")
	}
}
