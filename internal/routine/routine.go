// Package routine recreates completed routine demands for the next day.
package routine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Tiliavir/trivial-demand-tracker/internal/model"
	"github.com/Tiliavir/trivial-demand-tracker/internal/store"
	"github.com/Tiliavir/trivial-demand-tracker/internal/timecalc"
)

// Recreate creates a pending successor for every routine demand completed
// before now's day. A successor is skipped when a routine demand with the same
// title is still pending or was already received on now's day, so running the
// job twice is a no-op. It returns the demands it created.
func Recreate(ctx context.Context, s *store.Store, now time.Time, logger *slog.Logger) ([]model.Demand, error) {
	if logger == nil {
		logger = slog.Default()
	}
	loc := s.Calendar().Location()
	today := timecalc.StartOfDay(now.In(loc))

	seen := make(map[string]bool)
	var done []model.Demand
	for d := range s.List(model.FilterRoutine) {
		if d.Pending() || timecalc.SameDay(d.ReceivedDate.In(loc), today) {
			seen[dedupeKey(d.Title)] = true
		}
		if d.CompletedDate != nil && d.CompletedDate.In(loc).Before(today) {
			done = append(done, d)
		}
	}

	var created []model.Demand
	for _, d := range done {
		key := dedupeKey(d.Title)
		if seen[key] {
			continue
		}
		succ, err := s.Create(ctx, model.DemandInput{
			Title:       d.Title,
			Description: d.Description,
			Type:        model.Routine,
			Received:    timecalc.FormatUTC(now),
			Recreated:   true,
		})
		if err != nil {
			return created, fmt.Errorf("recreating demand %d: %w", d.ID, err)
		}
		seen[key] = true
		created = append(created, succ)
		logger.Info("routine demand recreated", "from", d.ID, "id", succ.ID, "title", succ.Title)
	}
	return created, nil
}

func dedupeKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
