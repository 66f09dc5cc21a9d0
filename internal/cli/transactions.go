package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fraud-monitor/internal/command"
	"fraud-monitor/internal/models"
	"fraud-monitor/internal/state"
)

// addTransactionCommands adds transaction commands.
func addTransactionCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newSubmitCmd(app))
	rootCmd.AddCommand(newTransactionsCmd(app))
}

// commands builds a one-shot command gateway backed by a fresh store.
func (a *App) commands() (*command.Gateway, *state.Store) {
	store := state.New(a.Gateway, state.Config{
		MaxItems: a.Config.Store.MaxItems,
		Logger:   a.Logger,
	})
	return command.New(command.Config{
		Gateway:  a.Gateway,
		Store:    store,
		Recorder: a.Recorder(),
		Logger:   a.Logger,
	}), store
}

func newSubmitCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a transaction for fraud scoring",
		Long: `Submit a transaction to the fraud detection API. The API scores it
immediately and raises an alert when the risk is high.

If --id is omitted a random idempotency key is generated.`,
		Example: `  monitor submit --user user_42 --amount 1250.00 --merchant "Acme Electronics" --category electronics
  monitor submit --user user_42 --amount 9.99 --merchant Cafe --category food --location "Berlin" --lat 52.52 --lon 13.40`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			in := models.TransactionCreate{}
			in.UserID, _ = cmd.Flags().GetString("user")
			in.TransactionID, _ = cmd.Flags().GetString("id")
			in.Amount, _ = cmd.Flags().GetFloat64("amount")
			in.Merchant, _ = cmd.Flags().GetString("merchant")
			in.Category, _ = cmd.Flags().GetString("category")
			if cmd.Flags().Changed("location") {
				loc, _ := cmd.Flags().GetString("location")
				in.Location = &loc
			}
			if cmd.Flags().Changed("lat") {
				lat, _ := cmd.Flags().GetFloat64("lat")
				in.Latitude = &lat
			}
			if cmd.Flags().Changed("lon") {
				lon, _ := cmd.Flags().GetFloat64("lon")
				in.Longitude = &lon
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*app.Config.API.Timeout)
			defer cancel()

			commands, _ := app.commands()
			txn, err := commands.Submit(ctx, in)
			if err != nil {
				output.Error("Submit failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(txn)
			}
			output.Success("✓ Transaction %s accepted (id %d)", txn.TransactionID, txn.ID)
			output.Printf("  Amount:     %s\n", FormatAmount(txn.Amount))
			output.Printf("  Merchant:   %s (%s)\n", txn.Merchant, txn.Category)
			if txn.Scored() {
				output.Printf("  Risk Score: %s\n", output.Risk(*txn.RiskScore))
			}
			if txn.IsFraud {
				reason := "flagged"
				if txn.FraudReason != nil {
					reason = *txn.FraudReason
				}
				output.Warning("⚠ Flagged as fraud: %s", reason)
			}
			return nil
		},
	}

	cmd.Flags().String("user", "", "User ID (required)")
	cmd.Flags().Float64("amount", 0, "Amount, must be positive (required)")
	cmd.Flags().String("merchant", "", "Merchant name (required)")
	cmd.Flags().String("category", "", "Merchant category (required)")
	cmd.Flags().String("id", "", "Client transaction ID (default: random UUID)")
	cmd.Flags().String("location", "", "Location name")
	cmd.Flags().Float64("lat", 0, "Latitude")
	cmd.Flags().Float64("lon", 0, "Longitude")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("amount")
	cmd.MarkFlagRequired("merchant")
	cmd.MarkFlagRequired("category")
	return cmd
}

func newTransactionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"txns"},
		Short:   "List the newest transactions",
		Example: `  monitor transactions
  monitor transactions --user user_42 --limit 50
  monitor transactions show txn_1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			limit, _ := cmd.Flags().GetInt("limit")
			csvOut, _ := cmd.Flags().GetBool("csv")
			user, _ := cmd.Flags().GetString("user")

			ctx, cancel := context.WithTimeout(cmd.Context(), app.Config.API.Timeout)
			defer cancel()

			var txns []models.Transaction
			var err error
			if user != "" {
				txns, err = app.Gateway.ListUserTransactions(ctx, user, 0, limit)
			} else {
				txns, err = app.Gateway.ListTransactions(ctx, 0, limit)
			}
			if err != nil {
				output.Error("Failed to fetch transactions: %v", err)
				return err
			}

			switch {
			case csvOut:
				return writeCSV(output.Writer(), transactionRows(txns))
			case output.IsJSON():
				return output.JSON(txns)
			}

			if len(txns) == 0 {
				output.Dim("No transactions")
				return nil
			}
			table := NewTable(output, "ID", "Transaction", "User", "Amount", "Merchant", "Risk", "Fraud", "Time")
			for _, t := range txns {
				risk := "-"
				if t.Scored() {
					risk = output.Risk(*t.RiskScore)
				}
				fraud := ""
				if t.IsFraud {
					fraud = output.Paint("yes", Bad)
				}
				table.AddRow(
					fmt.Sprintf("%d", t.ID),
					t.TransactionID,
					t.UserID,
					FormatAmount(t.Amount),
					Truncate(t.Merchant, 24),
					risk,
					fraud,
					FormatTime(t.Timestamp),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntP("limit", "l", 20, "Number of transactions to show")
	cmd.Flags().StringP("user", "u", "", "Only show transactions of this user")
	cmd.Flags().Bool("csv", false, "Write CSV instead of a table")
	cmd.AddCommand(newTransactionShowCmd(app))
	return cmd
}

func newTransactionShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "show <transaction-id>",
		Short:   "Show one transaction by its client transaction ID",
		Args:    cobra.ExactArgs(1),
		Example: "  monitor transactions show txn_1",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			ctx, cancel := context.WithTimeout(cmd.Context(), app.Config.API.Timeout)
			defer cancel()

			txn, err := app.Gateway.GetTransaction(ctx, args[0])
			if err != nil {
				output.Error("Failed to fetch transaction %s: %v", args[0], err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(txn)
			}

			output.Bold("Transaction %s", txn.TransactionID)
			output.Printf("  ID:         %d\n", txn.ID)
			output.Printf("  User:       %s\n", txn.UserID)
			output.Printf("  Amount:     %s\n", FormatAmount(txn.Amount))
			output.Printf("  Merchant:   %s (%s)\n", txn.Merchant, txn.Category)
			if txn.Location != nil {
				output.Printf("  Location:   %s\n", *txn.Location)
			}
			if txn.Latitude != nil && txn.Longitude != nil {
				output.Printf("  Coords:     %.4f, %.4f\n", *txn.Latitude, *txn.Longitude)
			}
			output.Printf("  Time:       %s\n", FormatTime(txn.Timestamp))
			if txn.Scored() {
				output.Printf("  Risk Score: %s\n", output.Risk(*txn.RiskScore))
			}
			if txn.IsFraud {
				reason := "flagged"
				if txn.FraudReason != nil {
					reason = *txn.FraudReason
				}
				output.Warning("⚠ Flagged as fraud: %s", reason)
			}
			return nil
		},
	}
}
