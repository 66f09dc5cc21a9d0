package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"fraud-monitor/internal/health"
	"fraud-monitor/internal/models"
	"fraud-monitor/internal/notify"
	"fraud-monitor/internal/session"
	"fraud-monitor/internal/state"
)

// addMonitoringCommands adds the live watch and summary commands.
func addMonitoringCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newWatchCmd(app))
	rootCmd.AddCommand(newSummaryCmd(app))
}

func newWatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live view of the summary and newest alerts",
		Long: `Start a sync session and keep redrawing the summary and the newest fraud
alerts as they change. Push notifications trigger immediate refreshes;
polling keeps the view current when push is unavailable.

Stop with Ctrl+C.`,
		Example: `  monitor watch
  monitor watch --alerts 20
  monitor watch --metrics-addr :9108`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			maxAlerts, _ := cmd.Flags().GetInt("alerts")
			redraw, _ := cmd.Flags().GetDuration("redraw")
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
			if metricsAddr == "" && app.Config.Metrics.Enabled {
				metricsAddr = app.Config.Metrics.ListenAddr
			}

			cfg, err := app.SessionConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sess := session.New(cfg)
			if metricsAddr != "" {
				shutdown := serveMetrics(app, metricsAddr, sessionHealth(sess, cfg))
				defer shutdown()
			}

			return runWatch(ctx, output, sess, app.AlertWatcher(output), maxAlerts, redraw)
		},
	}

	cmd.Flags().IntP("alerts", "n", 10, "Number of alerts to show")
	cmd.Flags().Duration("redraw", time.Second, "Minimum time between redraws")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}

// runWatch runs a session until ctx is done, redrawing on change. When
// alerts is non-nil each alert refresh is passed to it after the redraw.
func runWatch(ctx context.Context, output *Output, sess *session.Session, alerts *notify.Watcher, maxAlerts int, redraw time.Duration) error {
	changed := make(chan struct{}, 1)
	var alertsChanged atomic.Bool
	sess.Store().OnChange(func(kind state.Kind) {
		if kind == state.KindAlerts {
			alertsChanged.Store(true)
		}
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	if err := sess.Start(ctx); err != nil {
		return err
	}
	defer sess.Stop()

	if redraw <= 0 {
		redraw = time.Second
	}
	ticker := time.NewTicker(redraw)
	defer ticker.Stop()

	dirty := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
			dirty = true
		case <-ticker.C:
			if !dirty {
				continue
			}
			dirty = false
			if err := renderWatch(output, sess, maxAlerts); err != nil {
				return err
			}
			if alerts != nil && alertsChanged.Swap(false) {
				alerts.Observe(ctx, sess.Snapshot().Alerts)
			}
		}
	}
}

// AlertWatcher builds the new-alert notifier from config, or nil when
// notifications are off. The terminal channel is skipped in JSON mode.
func (a *App) AlertWatcher(output *Output) *notify.Watcher {
	n := a.Config.Notify
	if !n.Enabled {
		return nil
	}

	var channels []notify.Channel
	if !output.IsJSON() {
		channels = append(channels, notify.NewTerminalNotifier(output.Writer(), n.Bell, output.colorEnabled))
	}
	if n.WebhookURL != "" {
		channels = append(channels, notify.NewWebhookNotifier(n.WebhookURL, n.Timeout))
	}
	if len(channels) == 0 {
		return nil
	}
	return notify.NewWatcher(notify.NewMulti(a.Logger, channels...))
}

func renderWatch(output *Output, sess *session.Session, maxAlerts int) error {
	snap := sess.Snapshot()
	if output.IsJSON() {
		return output.JSON(snap)
	}

	if output.colorEnabled {
		output.Printf("\033[H\033[2J")
	}

	now := time.Now()
	st := sess.Store()
	push := output.Paint("● offline", Bad)
	if sess.PushConnected() {
		push = output.Paint("● live", Good)
	}
	output.Bold("Fraud Monitor")
	output.Printf("  Push: %s   Alerts synced %s   Summary synced %s\n",
		push,
		FormatAge(st.LastSync(state.KindAlerts), now),
		FormatAge(st.LastSync(state.KindSummary), now))
	output.Println()

	renderSummary(output, snap.Summary)
	output.Println()
	renderAlerts(output, snap.Alerts, maxAlerts)
	return nil
}

func renderSummary(output *Output, s models.Summary) {
	output.Bold("Summary")
	output.Printf("  Transactions:     %s\n", FormatCount(s.TotalTransactions))
	output.Printf("  Total Amount:     %s\n", FormatAmount(s.TotalAmount))
	output.Printf("  Fraud Detected:   %s\n", output.Paint(FormatCount(s.FraudCount), Bad))
	output.Printf("  High Risk:        %s\n", output.Paint(FormatCount(s.HighRiskCount), Caution))
	output.Printf("  Avg Risk Score:   %s\n", output.Risk(s.AvgRiskScore))
	output.Printf("  Pending Alerts:   %s\n", FormatCount(s.PendingAlerts))
}

func renderAlerts(output *Output, alerts []models.Alert, max int) {
	output.Bold("Alerts")
	if len(alerts) == 0 {
		output.Dim("  No alerts")
		return
	}
	if max > 0 && len(alerts) > max {
		alerts = alerts[:max]
	}

	table := NewTable(output, "ID", "Transaction", "User", "Risk", "Type", "Status", "Created", "Description")
	for _, a := range alerts {
		table.AddRow(
			fmt.Sprintf("%d", a.ID),
			a.TransactionID,
			a.UserID,
			output.Risk(a.RiskScore),
			string(a.AlertType),
			output.Status(a.Status),
			FormatTime(a.CreatedAt),
			Truncate(a.Description, 48),
		)
	}
	table.Render()
}

// sessionHealth checks push connectivity and that each kind of state is
// being refreshed at roughly its polling cadence.
func sessionHealth(sess *session.Session, cfg session.Config) *health.Monitor {
	m := health.NewMonitor()
	m.Register("push", health.PushCheck(cfg.PushURL != "", sess.PushConnected))

	st := sess.Store()
	intervals := map[state.Kind]time.Duration{
		state.KindSummary:      cfg.SummaryInterval,
		state.KindTransactions: cfg.DataInterval,
		state.KindAlerts:       cfg.DataInterval,
	}
	for _, kind := range state.Kinds {
		kind := kind
		m.Register(string(kind), health.SyncCheck(func() time.Time { return st.LastSync(kind) }, 2*intervals[kind]))
	}
	return m
}

// serveMetrics exposes the Prometheus registry and the session health
// report, and returns a shutdown func.
func serveMetrics(app *App, addr string, monitor *health.Monitor) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", monitor.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func newSummaryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show transaction and alert statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(cmd.Context(), app.Config.API.Timeout)
			defer cancel()

			summary, err := app.Gateway.GetSummary(ctx)
			if err != nil {
				output.Error("Failed to fetch summary: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(summary)
			}
			renderSummary(output, *summary)
			return nil
		},
	}
}
