package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/Tiliavir/trivial-demand-tracker/internal/model"
	"github.com/Tiliavir/trivial-demand-tracker/internal/timecalc"
)

var (
	pendingMarker   = color.New(color.FgYellow).SprintFunc()
	completedMarker = color.New(color.FgGreen).SprintFunc()
	headerColor     = color.New(color.Bold)
)

// marker returns the colored status marker for d.
func marker(d model.Demand) string {
	if d.Pending() {
		return pendingMarker("●")
	}
	return completedMarker("✓")
}

// statusLabel returns "pending" or "completed".
func statusLabel(d model.Demand) string {
	if d.Pending() {
		return "pending"
	}
	return "completed"
}

// printDemandLine prints a one-line summary of d.
func printDemandLine(w io.Writer, d model.Demand, hours float64) {
	fmt.Fprintf(w, "%s #%-4d %-9s %s  %-40s %8s\n",
		marker(d),
		d.ID,
		d.Type.Label(),
		d.ReceivedDate.Format("2006-01-02 15:04"),
		truncate(d.Title, 40),
		timecalc.FormatHours(hours),
	)
}

// printDemandDetail prints every field of d. Lead time is wall-clock time
// from receipt to completion, or to now while pending.
func printDemandDetail(w io.Writer, d model.Demand, hours float64, now time.Time) {
	fmt.Fprintf(w, "%s Demand #%d\n", marker(d), d.ID)
	fmt.Fprintf(w, "  Title:       %s\n", d.Title)
	fmt.Fprintf(w, "  Description: %s\n", d.Description)
	fmt.Fprintf(w, "  Type:        %s\n", d.Type.Label())
	fmt.Fprintf(w, "  Received:    %s\n", d.ReceivedDate.Format("2006-01-02 15:04"))
	if d.CompletedDate != nil {
		fmt.Fprintf(w, "  Completed:   %s\n", d.CompletedDate.Format("2006-01-02 15:04"))
		fmt.Fprintf(w, "  Comment:     %s\n", d.Comment)
	} else {
		fmt.Fprintln(w, "  Completed:   –")
	}
	fmt.Fprintf(w, "  Worked:      %s\n", timecalc.FormatHours(hours))
	end := now
	if d.CompletedDate != nil {
		end = *d.CompletedDate
	}
	if lead := int64(end.Sub(d.ReceivedDate).Seconds()); lead >= 0 {
		fmt.Fprintf(w, "  Lead time:   %s\n", timecalc.FormatDuration(lead))
	}
	if d.Recreated {
		fmt.Fprintln(w, "  Recreated:   yes")
	}
	if d.ExternalID != "" {
		fmt.Fprintf(w, "  External ID: %s\n", d.ExternalID)
	}
}

// printDashboard prints the aggregate statistics followed by the pending
// demands.
func printDashboard(w io.Writer, st model.Stats, pending []model.Demand, hours func(model.Demand) float64, now time.Time) {
	headerColor.Fprintf(w, "Dashboard – %s\n", now.Format("2006-01-02 15:04"))
	fmt.Fprintln(w, "--------------------------------")
	fmt.Fprintf(w, "%-20s%d\n", "Completed", st.CompletedCount)
	fmt.Fprintf(w, "%-20s%d\n", "Pending", st.PendingCount)
	fmt.Fprintf(w, "%-20s%d\n", "Routine", st.RoutineCount)
	fmt.Fprintf(w, "%-20s%d\n", "Sporadic", st.SporadicCount)
	fmt.Fprintln(w, "--------------------------------")
	fmt.Fprintf(w, "%-20s%s\n", "Routine hours", timecalc.FormatHours(st.TotalRoutineHours))
	fmt.Fprintf(w, "%-20s%s\n", "Sporadic hours", timecalc.FormatHours(st.TotalSporadicHours))

	if len(pending) == 0 {
		return
	}
	fmt.Fprintln(w)
	headerColor.Fprintln(w, "Pending")
	for _, d := range pending {
		printDemandLine(w, d, hours(d))
	}
}

// roundStats rounds the hour totals for display.
func roundStats(st model.Stats) model.Stats {
	st.TotalRoutineHours = timecalc.RoundHours(st.TotalRoutineHours)
	st.TotalSporadicHours = timecalc.RoundHours(st.TotalSporadicHours)
	return st
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
