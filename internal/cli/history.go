package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"fraud-monitor/internal/audit"
)

// addHistoryCommands adds the command journal viewer.
func addHistoryCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently issued commands",
		Long: `Show the commands recorded in the local audit journal, newest first.

Requires the sqlite audit backend.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			limit, _ := cmd.Flags().GetInt("limit")
			csvOut, _ := cmd.Flags().GetBool("csv")

			reader, ok := app.Recorder().(audit.Reader)
			if !ok {
				err := fmt.Errorf("audit backend %q does not support reading history", app.Config.Audit.Backend)
				if !app.Config.Audit.Enabled {
					err = fmt.Errorf("audit journal is disabled")
				}
				output.Error("%v", err)
				return err
			}

			entries, err := reader.Recent(cmd.Context(), limit)
			if err != nil {
				output.Error("Failed to read journal: %v", err)
				return err
			}

			switch {
			case csvOut:
				return writeCSV(output.Writer(), historyRows(entries))
			case output.IsJSON():
				return output.JSON(entries)
			}

			if len(entries) == 0 {
				output.Dim("No commands recorded")
				return nil
			}
			table := NewTable(output, "Time", "Command", "Target", "Result", "Error")
			for _, e := range entries {
				result := output.Paint("ok", Good)
				if !e.Success {
					result = output.Paint("failed", Bad)
				}
				table.AddRow(
					e.Timestamp.Local().Format("2006-01-02 15:04:05"),
					e.Command,
					e.Target,
					result,
					Truncate(e.Error, 60),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntP("limit", "l", 20, "Number of entries to show")
	cmd.Flags().Bool("csv", false, "Write CSV instead of a table")
	rootCmd.AddCommand(cmd)
}
