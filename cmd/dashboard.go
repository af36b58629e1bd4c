package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-demand-tracker/internal/model"
	"github.com/Tiliavir/trivial-demand-tracker/internal/timecalc"
)

var dashboardFormat string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show counts and worked business hours by type",
	Args:  cobra.NoArgs,
	RunE:  runDashboard,
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardFormat, "format", "md", "Output format: md, json")
}

func runDashboard(cmd *cobra.Command, args []string) error {
	switch dashboardFormat {
	case "md", "json":
	default:
		return usageError{fmt.Errorf("unknown format %q (want md or json)", dashboardFormat)}
	}
	return renderDashboard(cmd.OutOrStdout(), dashboardFormat, time.Now())
}

// dashboardJSON is the machine-readable dashboard.
type dashboardJSON struct {
	GeneratedAt string `json:"generatedAt"`
	model.Stats
}

// renderDashboard writes the dashboard for the current store contents.
func renderDashboard(w io.Writer, format string, now time.Time) error {
	st := roundStats(app.store.Aggregate(now))

	if format == "json" {
		data, err := json.MarshalIndent(dashboardJSON{GeneratedAt: timecalc.FormatUTC(now), Stats: st}, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	pending := slices.Collect(app.store.List(model.FilterPending))
	printDashboard(w, st, pending, func(d model.Demand) float64 {
		return app.store.WorkedHours(d, now)
	}, now)
	return nil
}
