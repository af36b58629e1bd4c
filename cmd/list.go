package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-demand-tracker/internal/model"
)

var listFilter string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List demands, most recently received first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVarP(&listFilter, "filter", "f", "all", "Filter: all, pending, completed, routine, sporadic")
}

func runList(cmd *cobra.Command, args []string) error {
	now := time.Now()

	f, err := model.ParseFilter(listFilter)
	if err != nil {
		return usageError{err}
	}

	out := cmd.OutOrStdout()
	n := 0
	for d := range app.store.List(f) {
		printDemandLine(out, d, app.store.WorkedHours(d, now))
		n++
	}
	if n == 0 {
		fmt.Fprintln(out, "No demands found.")
	}
	return nil
}
