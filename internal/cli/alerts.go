package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	apperrors "fraud-monitor/internal/errors"
	"fraud-monitor/internal/models"
)

// addAlertCommands adds fraud alert commands.
func addAlertCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List and review fraud alerts",
		Long: `List fraud alerts and move pending alerts to a review outcome.

An alert leaves pending exactly once: reviewed, resolved or false_positive.`,
	}

	cmd.AddCommand(newAlertsListCmd(app))
	cmd.AddCommand(newAlertShowCmd(app))
	cmd.AddCommand(newAlertTransitionCmd(app, "review", models.AlertReviewed, "Mark an alert as reviewed"))
	cmd.AddCommand(newAlertTransitionCmd(app, "resolve", models.AlertResolved, "Mark an alert as resolved (confirmed fraud handled)"))
	cmd.AddCommand(newAlertTransitionCmd(app, "dismiss", models.AlertFalsePositive, "Mark an alert as a false positive"))

	rootCmd.AddCommand(cmd)
}

func newAlertsListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the newest alerts",
		Example: `  monitor alerts list
  monitor alerts list --status pending
  monitor alerts list --limit 100 --csv > alerts.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			limit, _ := cmd.Flags().GetInt("limit")
			csvOut, _ := cmd.Flags().GetBool("csv")
			statusFlag, _ := cmd.Flags().GetString("status")

			status := models.AlertStatus(statusFlag)
			if status != "" && !status.Valid() {
				err := apperrors.NewValidationError("status", statusFlag, "must be pending, reviewed, resolved or false_positive")
				output.Error("%v", err)
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), app.Config.API.Timeout)
			defer cancel()

			alerts, err := app.Gateway.ListAlerts(ctx, 0, limit, status)
			if err != nil {
				output.Error("Failed to fetch alerts: %v", err)
				return err
			}

			switch {
			case csvOut:
				return writeCSV(output.Writer(), alertRows(alerts))
			case output.IsJSON():
				return output.JSON(alerts)
			}
			renderAlerts(output, alerts, 0)
			return nil
		},
	}

	cmd.Flags().IntP("limit", "l", 20, "Number of alerts to show")
	cmd.Flags().StringP("status", "s", "", "Only show alerts with this status")
	cmd.Flags().Bool("csv", false, "Write CSV instead of a table")
	return cmd
}

func newAlertShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "show <alert-id>",
		Short:   "Show one alert",
		Args:    cobra.ExactArgs(1),
		Example: "  monitor alerts show 7",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			id, err := parseAlertID(args[0])
			if err != nil {
				output.Error("%v", err)
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), app.Config.API.Timeout)
			defer cancel()

			alert, err := app.Gateway.GetAlert(ctx, id)
			if err != nil {
				output.Error("Failed to fetch alert %d: %v", id, err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(alert)
			}

			output.Bold("Alert %d", alert.ID)
			output.Printf("  Status:      %s\n", output.Status(alert.Status))
			output.Printf("  Type:        %s\n", alert.AlertType)
			output.Printf("  Risk Score:  %s\n", output.Risk(alert.RiskScore))
			output.Printf("  Transaction: %s\n", alert.TransactionID)
			output.Printf("  User:        %s\n", alert.UserID)
			output.Printf("  Raised:      %s\n", FormatTime(alert.CreatedAt))
			if alert.ReviewedAt != nil {
				output.Printf("  Reviewed:    %s\n", FormatTime(*alert.ReviewedAt))
			}
			output.Printf("  %s\n", alert.Description)
			return nil
		},
	}
}

func parseAlertID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("alert-id", arg, "must be a positive integer")
	}
	return id, nil
}

func newAlertTransitionCmd(app *App, use string, status models.AlertStatus, short string) *cobra.Command {
	return &cobra.Command{
		Use:     use + " <alert-id>",
		Short:   short,
		Args:    cobra.ExactArgs(1),
		Example: fmt.Sprintf("  monitor alerts %s 7", use),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			id, err := parseAlertID(args[0])
			if err != nil {
				output.Error("%v", err)
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 3*app.Config.API.Timeout)
			defer cancel()

			commands, store := app.commands()
			if err := commands.Transition(ctx, id, status); err != nil {
				output.Error("Could not mark alert %d as %s: %v", id, status, err)
				return err
			}

			var updated *models.Alert
			for _, a := range store.Alerts() {
				if a.ID == id {
					a := a
					updated = &a
					break
				}
			}

			if output.IsJSON() {
				if updated != nil {
					return output.JSON(updated)
				}
				return output.JSON(map[string]interface{}{"id": id, "status": status})
			}
			output.Success("✓ Alert %d marked %s", id, status)
			if updated != nil && updated.ReviewedAt != nil {
				output.Dim("  Reviewed at %s", FormatTime(*updated.ReviewedAt))
			}
			output.Printf("  Pending alerts: %s\n", FormatCount(store.Summary().PendingAlerts))
			return nil
		},
	}
}
