package msgraph

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Tiliavir/trivial-demand-tracker/internal/model"
	"github.com/Tiliavir/trivial-demand-tracker/internal/store"
	"github.com/Tiliavir/trivial-demand-tracker/internal/timecalc"
)

// SyncResult holds counters for a sync operation.
type SyncResult struct {
	Imported int
	Skipped  int
	Updated  int
	Errors   int
}

// SyncOptions configures a sync run.
type SyncOptions struct {
	DryRun bool
	// Out receives one progress line per task. Nil means stdout.
	Out io.Writer
}

const statusCompleted = "completed"

// MapTaskToInput converts a To Do task into a sporadic demand input. The
// received date is the task's creation time; the description is the plain
// text body, or the title when the body is empty or HTML.
func MapTaskToInput(task TodoTask) (model.DemandInput, error) {
	if strings.TrimSpace(task.CreatedDateTime) == "" {
		return model.DemandInput{}, fmt.Errorf("task %q has no createdDateTime", task.Title)
	}
	desc := strings.TrimSpace(task.Body.Content)
	if desc == "" || strings.EqualFold(task.Body.ContentType, "html") {
		desc = strings.TrimSpace(task.Title)
	}
	return model.DemandInput{
		Title:       strings.TrimSpace(task.Title),
		Description: desc,
		Type:        model.Sporadic,
		Received:    task.CreatedDateTime,
		ExternalID:  task.ID,
	}, nil
}

// unchanged reports whether an imported demand still matches the task input.
func unchanged(d model.Demand, in model.DemandInput, loc *time.Location) bool {
	received, err := timecalc.ParseTimestamp(in.Received, loc)
	if err != nil {
		return false
	}
	return d.Title == in.Title && d.Description == in.Description && d.ReceivedDate.Equal(received)
}

// SyncTasks imports open To Do tasks into s as sporadic demands. Tasks that
// were imported before are matched by external id and updated when their
// title, description or creation time changed. Completed tasks are ignored.
func SyncTasks(ctx context.Context, s *store.Store, tasks []TodoTask, opts SyncOptions) (SyncResult, error) {
	var result SyncResult
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	loc := s.Calendar().Location()

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if task.Status == statusCompleted {
			continue
		}

		in, err := MapTaskToInput(task)
		if err != nil {
			fmt.Fprintf(out, "  ! Error mapping task %q: %v\n", task.Title, err)
			result.Errors++
			continue
		}

		if found, ok := s.FindByExternalID(task.ID); ok {
			if unchanged(found, in, loc) {
				fmt.Fprintf(out, "  – Skipped:  %s (already imported as #%d)\n", task.Title, found.ID)
				result.Skipped++
				continue
			}
			if !opts.DryRun {
				// Keep a type the user reassigned locally.
				in.Type = found.Type
				if _, err := s.Update(ctx, found.ID, in); err != nil {
					fmt.Fprintf(out, "  ! Error updating %q: %v\n", task.Title, err)
					result.Errors++
					continue
				}
			}
			fmt.Fprintf(out, "  ↑ Updated:  %s (#%d)\n", task.Title, found.ID)
			result.Updated++
			continue
		}

		if !opts.DryRun {
			d, err := s.Create(ctx, in)
			if err != nil {
				fmt.Fprintf(out, "  ! Error saving %q: %v\n", task.Title, err)
				result.Errors++
				continue
			}
			fmt.Fprintf(out, "  ✓ Imported: %s (#%d)\n", task.Title, d.ID)
		} else {
			fmt.Fprintf(out, "  ✓ Imported: %s\n", task.Title)
		}
		result.Imported++
	}

	return result, nil
}
