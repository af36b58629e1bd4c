package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-demand-tracker/internal/msgraph"
)

var (
	todoSyncList   string
	todoSyncDryRun bool
)

var todoCmd = &cobra.Command{
	Use:   "todo",
	Short: "Microsoft To Do integration",
}

var todoListsCmd = &cobra.Command{
	Use:   "lists",
	Short: "Show your Microsoft To Do lists and their ids",
	Args:  cobra.NoArgs,
	RunE:  runTodoLists,
}

var todoSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import open Microsoft To Do tasks as sporadic demands",
	Args:  cobra.NoArgs,
	RunE:  runTodoSync,
}

func init() {
	todoSyncCmd.Flags().StringVar(&todoSyncList, "list", "", "To Do list id (see 'tdt todo lists')")
	todoSyncCmd.Flags().BoolVar(&todoSyncDryRun, "dry-run", false, "Print planned operations without writing")
	todoCmd.AddCommand(todoListsCmd)
	todoCmd.AddCommand(todoSyncCmd)
}

func graphClient(cmd *cobra.Command) (*msgraph.Client, error) {
	ctx := cmd.Context()
	cache, err := msgraph.DefaultTokenCache()
	if err != nil {
		return nil, err
	}
	tok, oauthCfg, err := msgraph.Authenticate(ctx, cache, app.cfg.MSGraph.TenantID, app.cfg.MSGraph.ClientID, cmd.OutOrStdout())
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	return msgraph.NewClient(ctx, tok, oauthCfg, cache), nil
}

func runTodoLists(cmd *cobra.Command, args []string) error {
	client, err := graphClient(cmd)
	if err != nil {
		return err
	}
	lists, err := client.ListTaskLists(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(lists) == 0 {
		fmt.Fprintln(out, "No task lists found.")
		return nil
	}
	for _, l := range lists {
		fmt.Fprintf(out, "%-30s %s\n", l.DisplayName, l.ID)
	}
	return nil
}

func runTodoSync(cmd *cobra.Command, args []string) error {
	if todoSyncList == "" {
		return usageError{errors.New("--list is required (see 'tdt todo lists')")}
	}
	client, err := graphClient(cmd)
	if err != nil {
		return err
	}
	tasks, err := client.ListTasks(cmd.Context(), todoSyncList)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if todoSyncDryRun {
		fmt.Fprintln(out, "Dry run – nothing will be written.")
	}
	fmt.Fprintf(out, "Syncing %d tasks...\n", len(tasks))

	result, err := msgraph.SyncTasks(cmd.Context(), app.store, tasks, msgraph.SyncOptions{
		DryRun: todoSyncDryRun,
		Out:    out,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nImported: %d  Updated: %d  Skipped: %d  Errors: %d\n",
		result.Imported, result.Updated, result.Skipped, result.Errors)
	return nil
}
