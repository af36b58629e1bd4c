package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-demand-tracker/internal/storage"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show the dashboard and refresh it when demands change",
	Long: `Show the dashboard and refresh it whenever another tdt process changes
the stored demands. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	if err := renderDashboard(out, "md", time.Now()); err != nil {
		return err
	}

	err := app.snap.Watch(ctx, func() {
		if err := app.store.Reload(ctx); err != nil {
			app.logger.Warn("reload failed", "err", err)
			return
		}
		fmt.Fprintln(out)
		if err := renderDashboard(out, "md", time.Now()); err != nil {
			app.logger.Warn("render failed", "err", err)
		}
	})
	if errors.Is(err, storage.ErrWatchUnsupported) {
		return usageError{fmt.Errorf("storage backend %q cannot be watched", app.cfg.Storage.Backend)}
	}
	return err
}
