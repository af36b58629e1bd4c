package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-demand-tracker/internal/routine"
)

var routineCmd = &cobra.Command{
	Use:   "routine",
	Short: "Routine demand maintenance",
}

var routineRecreateCmd = &cobra.Command{
	Use:   "recreate",
	Short: "Create today's successors of completed routine demands",
	Long: `Create a pending successor for every routine demand completed before today.
Running it more than once a day creates nothing new.`,
	Args: cobra.NoArgs,
	RunE: runRoutineRecreate,
}

func init() {
	routineCmd.AddCommand(routineRecreateCmd)
}

func runRoutineRecreate(cmd *cobra.Command, args []string) error {
	created, err := routine.Recreate(cmd.Context(), app.store, time.Now(), app.logger)
	out := cmd.OutOrStdout()
	for _, d := range created {
		fmt.Fprintf(out, "%s Recreated #%d %q\n", marker(d), d.ID, d.Title)
	}
	if err != nil {
		return err
	}
	if len(created) == 0 {
		fmt.Fprintln(out, "Nothing to recreate.")
	}
	return nil
}
