package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-demand-tracker/internal/timecalc"
)

var completeComment string

var completeCmd = &cobra.Command{
	Use:     "complete <id>",
	Short:   "Mark a demand as completed",
	Example: `  tdt complete 3 --comment "Sent to finance"`,
	Args:    exactArgs(1),
	RunE:    runComplete,
}

func init() {
	completeCmd.Flags().StringVarP(&completeComment, "comment", "c", "", "Completion comment (required)")
}

func runComplete(cmd *cobra.Command, args []string) error {
	now := time.Now()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	d, err := app.store.Complete(cmd.Context(), id, completeComment, now)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Completed demand #%d %q. Worked: %s\n",
		marker(d), d.ID, d.Title, timecalc.FormatHours(app.store.WorkedHours(d, now)))
	return nil
}
