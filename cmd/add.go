package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-demand-tracker/internal/model"
	"github.com/Tiliavir/trivial-demand-tracker/internal/timecalc"
)

var (
	addTitle       string
	addDescription string
	addType        string
	addReceived    string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a new demand",
	Example: `  tdt add --title "Monthly report" --description "Close books" --type routine
  tdt add --title "Fix printer" --description "3rd floor" --received "2024-01-02T08:00"`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "Short title (required)")
	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "Description (required)")
	addCmd.Flags().StringVar(&addType, "type", "sporadic", "Demand type: routine or sporadic")
	addCmd.Flags().StringVar(&addReceived, "received", "", "When the demand arrived, e.g. 2024-01-02T08:00 (default now)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	typ, err := model.ParseDemandType(addType)
	if err != nil {
		return usageError{err}
	}
	received := addReceived
	if received == "" {
		received = timecalc.FormatNaive(time.Now().In(app.store.Calendar().Location()))
	}

	d, err := app.store.Create(cmd.Context(), model.DemandInput{
		Title:       addTitle,
		Description: addDescription,
		Type:        typ,
		Received:    received,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Created demand #%d %q (%s)\n", marker(d), d.ID, d.Title, d.Type.Label())
	return nil
}
