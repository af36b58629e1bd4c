package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-demand-tracker/internal/model"
	"github.com/Tiliavir/trivial-demand-tracker/internal/timecalc"
)

var (
	editTitle       string
	editDescription string
	editType        string
	editReceived    string
)

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change title, description, type or received date of a demand",
	Long: `Change title, description, type or received date of a demand.
Only the flags given are changed. Completion date and comment are never touched.`,
	Args: exactArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVarP(&editTitle, "title", "t", "", "New title")
	editCmd.Flags().StringVarP(&editDescription, "description", "d", "", "New description")
	editCmd.Flags().StringVar(&editType, "type", "", "New type: routine or sporadic")
	editCmd.Flags().StringVar(&editReceived, "received", "", "New received date, e.g. 2024-01-02T08:00")
}

func runEdit(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	cur, err := app.store.Get(id)
	if err != nil {
		return err
	}

	in := model.DemandInput{
		Title:       cur.Title,
		Description: cur.Description,
		Type:        cur.Type,
		Received:    timecalc.FormatNaive(cur.ReceivedDate),
	}
	flags := cmd.Flags()
	if flags.Changed("title") {
		in.Title = editTitle
	}
	if flags.Changed("description") {
		in.Description = editDescription
	}
	if flags.Changed("type") {
		if in.Type, err = model.ParseDemandType(editType); err != nil {
			return usageError{err}
		}
	}
	if flags.Changed("received") {
		in.Received = editReceived
	}

	d, err := app.store.Update(cmd.Context(), id, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated demand #%d %q\n", d.ID, d.Title)
	return nil
}
