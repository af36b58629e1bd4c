package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show all fields of a demand",
	Args:  exactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	now := time.Now()

	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	d, err := app.store.Get(id)
	if err != nil {
		return err
	}
	printDemandDetail(cmd.OutOrStdout(), d, app.store.WorkedHours(d, now), now)
	return nil
}
