package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-demand-tracker/internal/timecalc"
)

var hoursCmd = &cobra.Command{
	Use:   "hours <start> <end>",
	Short: "Business hours between two timestamps",
	Long: `Print the business hours between two timestamps on the configured calendar.
Timestamps without a zone are read in the calendar's timezone; RFC 3339
instants such as 2024-01-02T08:00:00Z are converted into it.`,
	Example: `  tdt hours 2024-01-02T08:00 2024-01-02T12:00
  tdt hours 2024-01-02T08:00:00Z 2024-01-02T12:00`,
	Args: exactArgs(2),
	RunE: runHours,
}

func runHours(cmd *cobra.Command, args []string) error {
	cal := app.store.Calendar()
	start, err := cal.Parse(args[0])
	if err != nil {
		return usageError{fmt.Errorf("start: %w", err)}
	}
	end, err := cal.Parse(args[1])
	if err != nil {
		return usageError{fmt.Errorf("end: %w", err)}
	}
	fmt.Fprintln(cmd.OutOrStdout(), timecalc.FormatHours(cal.ElapsedBusinessHours(start, end)))
	return nil
}
