package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/trivial-demand-tracker/internal/model"
	"github.com/Tiliavir/trivial-demand-tracker/internal/timecalc"
)

var (
	exportFormat string
	exportFilter string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export demands to stdout",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json, yaml, md")
	exportCmd.Flags().StringVarP(&exportFilter, "filter", "f", "all", "Filter: all, pending, completed, routine, sporadic")
}

// exportRow is one exported demand with its worked hours.
type exportRow struct {
	model.Demand `yaml:",inline"`
	WorkedHours  float64 `json:"workedHours" yaml:"workedHours"`
}

func runExport(cmd *cobra.Command, args []string) error {
	now := time.Now()

	f, err := model.ParseFilter(exportFilter)
	if err != nil {
		return usageError{err}
	}

	var rows []exportRow
	for d := range app.store.List(f) {
		rows = append(rows, exportRow{Demand: d, WorkedHours: timecalc.RoundHours(app.store.WorkedHours(d, now))})
	}
	return writeExport(cmd.OutOrStdout(), exportFormat, rows)
}

func writeExport(w io.Writer, format string, rows []exportRow) error {
	switch format {
	case "json":
		if rows == nil {
			rows = []exportRow{}
		}
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
		return enc.Close()
	case "md":
		printMarkdown(w, rows)
	case "csv":
		printCSV(w, rows)
	default:
		return usageError{fmt.Errorf("unknown format %q (want csv, json, yaml or md)", format)}
	}
	return nil
}

func printCSV(w io.Writer, rows []exportRow) {
	fmt.Fprintln(w, "id,title,description,type,status,received,completed,comment,worked_hours")
	for _, r := range rows {
		completed := ""
		if r.CompletedDate != nil {
			completed = r.CompletedDate.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d,%s,%s,%s,%s,%s,%s,%s,%.2f\n",
			r.ID,
			csvEscape(r.Title),
			csvEscape(r.Description),
			csvEscape(string(r.Type)),
			statusLabel(r.Demand),
			csvEscape(r.ReceivedDate.Format(time.RFC3339)),
			csvEscape(completed),
			csvEscape(r.Comment),
			r.WorkedHours,
		)
	}
}

func printMarkdown(w io.Writer, rows []exportRow) {
	fmt.Fprintln(w, "| ID | Title | Type | Status | Received | Completed | Hours |")
	fmt.Fprintln(w, "|---:|---|---|---|---|---|---:|")
	for _, r := range rows {
		completed := "–"
		if r.CompletedDate != nil {
			completed = r.CompletedDate.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "| %d | %s | %s | %s | %s | %s | %.2f |\n",
			r.ID,
			mdEscape(r.Title),
			r.Type.Label(),
			statusLabel(r.Demand),
			r.ReceivedDate.Format("2006-01-02 15:04"),
			completed,
			r.WorkedHours,
		)
	}
}

// mdEscape keeps a cell on one line and escapes the column separator.
func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	// Escape internal double quotes by doubling them.
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
