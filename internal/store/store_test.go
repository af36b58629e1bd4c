package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/trivial-demand-tracker/internal/model"
	"github.com/Tiliavir/trivial-demand-tracker/internal/storage"
	"github.com/Tiliavir/trivial-demand-tracker/internal/store"
	"github.com/Tiliavir/trivial-demand-tracker/internal/timecalc"
)

// memPersister keeps the last saved snapshot in memory.
type memPersister struct {
	saved   []model.Demand
	saves   int
	failing bool
}

func (p *memPersister) Load(context.Context) ([]model.Demand, error) {
	out := make([]model.Demand, len(p.saved))
	for i, d := range p.saved {
		out[i] = d.Clone()
	}
	return out, nil
}

func (p *memPersister) Save(_ context.Context, demands []model.Demand) error {
	if p.failing {
		return errors.New("disk full")
	}
	p.saves++
	p.saved = make([]model.Demand, len(demands))
	for i, d := range demands {
		p.saved[i] = d.Clone()
	}
	return nil
}

var brt = time.FixedZone("BRT", -3*3600)

func newCalendar(t *testing.T) *timecalc.Calendar {
	t.Helper()
	cal, err := timecalc.NewCalendar(timecalc.DefaultWorkStart, timecalc.DefaultWorkEnd, timecalc.DefaultWeekdays, brt)
	require.NoError(t, err)
	return cal
}

func newStore(t *testing.T) (*store.Store, *memPersister) {
	t.Helper()
	p := &memPersister{}
	s, err := store.New(context.Background(), p, newCalendar(t))
	require.NoError(t, err)
	return s, p
}

func input(title string, typ model.DemandType, received string) model.DemandInput {
	return model.DemandInput{Title: title, Description: title + " description", Type: typ, Received: received}
}

func collect(s *store.Store, f model.Filter) []model.Demand {
	return slices.Collect(s.List(f))
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	s, p := newStore(t)

	d, err := s.Create(ctx, model.DemandInput{
		Title:       "  Report ",
		Description: "Monthly",
		Type:        model.Routine,
		Received:    "2024-01-02T08:00",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), d.ID)
	assert.Equal(t, "Report", d.Title)
	assert.True(t, d.Pending())
	assert.Empty(t, d.Comment)
	assert.True(t, d.ReceivedDate.Equal(time.Date(2024, 1, 2, 8, 0, 0, 0, brt)))
	assert.Equal(t, 1, p.saves)
	require.Len(t, p.saved, 1)

	d2, err := s.Create(ctx, input("Second", model.Sporadic, "2024-01-03T09:00"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), d2.ID)
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		in    model.DemandInput
		field string
	}{
		{"empty title", model.DemandInput{Title: " ", Description: "d", Type: model.Routine, Received: "2024-01-02T08:00"}, "title"},
		{"empty description", model.DemandInput{Title: "t", Type: model.Routine, Received: "2024-01-02T08:00"}, "description"},
		{"unknown type", model.DemandInput{Title: "t", Description: "d", Type: "weekly", Received: "2024-01-02T08:00"}, "type"},
		{"empty received", model.DemandInput{Title: "t", Description: "d", Type: model.Routine}, "receivedDate"},
		{"unparseable received", model.DemandInput{Title: "t", Description: "d", Type: model.Sporadic, Received: "soon"}, "receivedDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, p := newStore(t)
			_, err := s.Create(context.Background(), tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, store.ErrValidation)

			var ve *store.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, 0, s.Len())
			assert.Equal(t, 0, p.saves)
		})
	}
}

func TestUpdateKeepsCompletionFields(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	d, err := s.Create(ctx, input("Report", model.Routine, "2024-01-02T08:00"))
	require.NoError(t, err)

	now := time.Date(2024, 1, 2, 12, 0, 0, 0, brt)
	_, err = s.Complete(ctx, d.ID, "done", now)
	require.NoError(t, err)

	updated, err := s.Update(ctx, d.ID, model.DemandInput{
		Title:       "Quarterly report",
		Description: "Q1",
		Type:        model.Sporadic,
		Received:    "2024-01-01T10:00",
	})
	require.NoError(t, err)

	assert.Equal(t, "Quarterly report", updated.Title)
	assert.Equal(t, "Q1", updated.Description)
	assert.Equal(t, model.Sporadic, updated.Type)
	assert.True(t, updated.ReceivedDate.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, brt)))
	require.NotNil(t, updated.CompletedDate)
	assert.True(t, updated.CompletedDate.Equal(now))
	assert.Equal(t, "done", updated.Comment)
}

func TestUpdateErrors(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	d, err := s.Create(ctx, input("Report", model.Routine, "2024-01-02T08:00"))
	require.NoError(t, err)

	_, err = s.Update(ctx, 42, input("x", model.Routine, "2024-01-02T08:00"))
	assert.ErrorIs(t, err, store.ErrNotFound)
	var nf *store.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, int64(42), nf.ID)

	_, err = s.Update(ctx, d.ID, input("", model.Routine, "2024-01-02T08:00"))
	assert.ErrorIs(t, err, store.ErrValidation)

	got, err := s.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Report", got.Title)
}

func TestCompleteRequiresComment(t *testing.T) {
	ctx := context.Background()
	s, p := newStore(t)
	d, err := s.Create(ctx, input("Report", model.Routine, "2024-01-02T08:00"))
	require.NoError(t, err)
	saves := p.saves

	_, err = s.Complete(ctx, d.ID, "", time.Now())
	assert.ErrorIs(t, err, store.ErrValidation)
	_, err = s.Complete(ctx, d.ID, "   ", time.Now())
	assert.ErrorIs(t, err, store.ErrValidation)

	got, err := s.Get(d.ID)
	require.NoError(t, err)
	assert.True(t, got.Pending())
	assert.Empty(t, got.Comment)
	assert.Equal(t, saves, p.saves)
}

func TestCompleteUnknownID(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.Complete(context.Background(), 7, "done", time.Now())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCompleteTwiceOverwrites(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	d, err := s.Create(ctx, input("Report", model.Sporadic, "2024-01-02T08:00"))
	require.NoError(t, err)

	first := time.Date(2024, 1, 2, 12, 0, 0, 0, brt)
	second := time.Date(2024, 1, 3, 9, 0, 0, 0, brt)
	_, err = s.Complete(ctx, d.ID, "done", first)
	require.NoError(t, err)
	got, err := s.Complete(ctx, d.ID, "redone", second)
	require.NoError(t, err)

	require.NotNil(t, got.CompletedDate)
	assert.True(t, got.CompletedDate.Equal(second))
	assert.Equal(t, "redone", got.Comment)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s, p := newStore(t)
	a, err := s.Create(ctx, input("A", model.Routine, "2024-01-02T08:00"))
	require.NoError(t, err)
	b, err := s.Create(ctx, input("B", model.Routine, "2024-01-02T09:00"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, b.ID))
	assert.Equal(t, 1, s.Len())
	require.Len(t, p.saved, 1)
	assert.Equal(t, a.ID, p.saved[0].ID)

	err = s.Delete(ctx, b.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The highest id was deleted; it must still not be handed out again.
	c, err := s.Create(ctx, input("C", model.Routine, "2024-01-02T10:00"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.ID)
}

func TestIDsStayUniqueAcrossOperations(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	seen := map[int64]bool{}
	now := time.Date(2024, 1, 5, 12, 0, 0, 0, brt)

	for i := 0; i < 50; i++ {
		d, err := s.Create(ctx, input("task", model.Sporadic, "2024-01-02T08:00"))
		require.NoError(t, err)
		assert.False(t, seen[d.ID], "id %d reused", d.ID)
		seen[d.ID] = true

		switch i % 4 {
		case 1:
			require.NoError(t, s.Delete(ctx, d.ID))
		case 2:
			_, err = s.Complete(ctx, d.ID, "ok", now)
			require.NoError(t, err)
		case 3:
			require.NoError(t, s.Delete(ctx, d.ID-1))
		}
	}

	ids := map[int64]bool{}
	for d := range s.List(model.FilterAll) {
		assert.False(t, ids[d.ID], "duplicate id %d", d.ID)
		ids[d.ID] = true
	}
}

func TestListOrderAndFilters(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	older, err := s.Create(ctx, input("Older", model.Routine, "2024-01-02T08:00"))
	require.NoError(t, err)
	newer, err := s.Create(ctx, input("Newer", model.Sporadic, "2024-01-03T08:00"))
	require.NoError(t, err)
	oldest, err := s.Create(ctx, input("Oldest", model.Sporadic, "2024-01-01T08:00"))
	require.NoError(t, err)
	_, err = s.Complete(ctx, older.ID, "done", time.Date(2024, 1, 2, 9, 0, 0, 0, brt))
	require.NoError(t, err)

	ids := func(ds []model.Demand) []int64 {
		out := make([]int64, len(ds))
		for i, d := range ds {
			out[i] = d.ID
		}
		return out
	}

	assert.Equal(t, []int64{newer.ID, older.ID, oldest.ID}, ids(collect(s, model.FilterAll)))
	assert.Equal(t, []int64{newer.ID, oldest.ID}, ids(collect(s, model.FilterPending)))
	assert.Equal(t, []int64{older.ID}, ids(collect(s, model.FilterCompleted)))
	assert.Equal(t, []int64{older.ID}, ids(collect(s, model.FilterRoutine)))
	assert.Equal(t, []int64{newer.ID, oldest.ID}, ids(collect(s, model.FilterSporadic)))
}

func TestListIsLazyAndRestartable(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	seq := s.List(model.FilterAll)

	_, err := s.Create(ctx, input("A", model.Routine, "2024-01-02T08:00"))
	require.NoError(t, err)
	assert.Len(t, slices.Collect(seq), 1)

	_, err = s.Create(ctx, input("B", model.Routine, "2024-01-03T08:00"))
	require.NoError(t, err)
	assert.Len(t, slices.Collect(seq), 2)

	// Stopping early must not panic or leave the store locked.
	for range seq {
		break
	}
	assert.Equal(t, 2, s.Len())
}

func TestListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	d, err := s.Create(ctx, input("A", model.Routine, "2024-01-02T08:00"))
	require.NoError(t, err)
	_, err = s.Complete(ctx, d.ID, "done", time.Date(2024, 1, 2, 9, 0, 0, 0, brt))
	require.NoError(t, err)

	for got := range s.List(model.FilterAll) {
		got.Title = "mutated"
		*got.CompletedDate = time.Time{}
	}
	fresh, err := s.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", fresh.Title)
	assert.False(t, fresh.CompletedDate.IsZero())
}

func TestWorkedHoursScenario(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	d, err := s.Create(ctx, model.DemandInput{
		Title:       "Report",
		Description: "Monthly",
		Type:        model.Routine,
		Received:    "2024-01-02T08:00:00Z",
	})
	require.NoError(t, err)

	now := time.Date(2024, 1, 2, 12, 0, 0, 0, brt)
	assert.InDelta(t, 4.8, s.WorkedHours(d, now), 1e-9)
}

func TestAggregate(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	routine, err := s.Create(ctx, input("Report", model.Routine, "2024-01-02T08:00"))
	require.NoError(t, err)
	_, err = s.Create(ctx, input("Fix", model.Sporadic, "2024-01-02T10:00"))
	require.NoError(t, err)

	now := time.Date(2024, 1, 2, 12, 0, 0, 0, brt)
	before := s.Aggregate(now)
	assert.Equal(t, 0, before.CompletedCount)
	assert.Equal(t, 2, before.PendingCount)
	assert.Equal(t, 1, before.RoutineCount)
	assert.Equal(t, 1, before.SporadicCount)
	// Pending demands contribute hours to date.
	assert.InDelta(t, 4, before.TotalRoutineHours, 1e-9)
	assert.InDelta(t, 2, before.TotalSporadicHours, 1e-9)

	completedAt := time.Date(2024, 1, 2, 11, 0, 0, 0, brt)
	done, err := s.Complete(ctx, routine.ID, "done", completedAt)
	require.NoError(t, err)

	after := s.Aggregate(now)
	assert.Equal(t, before.CompletedCount+1, after.CompletedCount)
	assert.Equal(t, before.PendingCount-1, after.PendingCount)
	assert.Equal(t, 2, after.Total())
	assert.InDelta(t, s.WorkedHours(done, now), after.TotalRoutineHours, 1e-9)
	assert.InDelta(t, 3, after.TotalRoutineHours, 1e-9)
	assert.InDelta(t, before.TotalSporadicHours, after.TotalSporadicHours, 1e-9)
}

func TestFailedSaveLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	s, p := newStore(t)
	d, err := s.Create(ctx, input("A", model.Routine, "2024-01-02T08:00"))
	require.NoError(t, err)

	p.failing = true
	_, err = s.Create(ctx, input("B", model.Routine, "2024-01-02T09:00"))
	require.Error(t, err)
	_, err = s.Update(ctx, d.ID, input("renamed", model.Sporadic, "2024-01-02T09:00"))
	require.Error(t, err)
	_, err = s.Complete(ctx, d.ID, "done", time.Now())
	require.Error(t, err)
	require.Error(t, s.Delete(ctx, d.ID))

	assert.Equal(t, 1, s.Len())
	got, err := s.Get(d.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Title)
	assert.True(t, got.Pending())

	p.failing = false
	next, err := s.Create(ctx, input("B", model.Routine, "2024-01-02T09:00"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.ID, "failed create must not consume an id")
}

func TestReloadClobbersAndKeepsCounter(t *testing.T) {
	ctx := context.Background()
	s, p := newStore(t)
	for _, title := range []string{"A", "B", "C"} {
		_, err := s.Create(ctx, input(title, model.Routine, "2024-01-02T08:00"))
		require.NoError(t, err)
	}

	// Another writer replaced the snapshot with a single older record.
	p.saved = []model.Demand{{
		ID:           1,
		Title:        "External",
		Description:  "written elsewhere",
		Type:         model.Sporadic,
		ReceivedDate: time.Date(2024, 1, 1, 8, 0, 0, 0, brt),
	}}
	require.NoError(t, s.Reload(ctx))

	all := collect(s, model.FilterAll)
	require.Len(t, all, 1)
	assert.Equal(t, "External", all[0].Title)

	d, err := s.Create(ctx, input("D", model.Routine, "2024-01-02T08:00"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), d.ID)
}

func TestReloadOfCorruptSnapshotKeepsState(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := storage.NewFileBackend(dir)
	require.NoError(t, err)
	s, err := store.New(ctx, storage.NewSnapshot(b, storage.DefaultKey, brt), newCalendar(t))
	require.NoError(t, err)
	_, err = s.Create(ctx, input("Report", model.Routine, "2024-01-02T08:00"))
	require.NoError(t, err)

	// Another process left a half-written snapshot behind.
	path := filepath.Join(dir, "demands.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":`), 0o600))

	err = s.Reload(ctx)
	require.ErrorIs(t, err, storage.ErrCorrupt)
	assert.Equal(t, 1, s.Len(), "failed reload must keep the in-memory demands")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":`, string(data), "failed reload must not delete the stored snapshot")
}

func TestNewSeedsCounterFromSnapshot(t *testing.T) {
	p := &memPersister{saved: []model.Demand{
		{ID: 3, Title: "a", Description: "a", Type: model.Routine, ReceivedDate: time.Date(2024, 1, 1, 8, 0, 0, 0, brt)},
		{ID: 9, Title: "b", Description: "b", Type: model.Routine, ReceivedDate: time.Date(2024, 1, 1, 9, 0, 0, 0, brt)},
	}}
	s, err := store.New(context.Background(), p, newCalendar(t))
	require.NoError(t, err)

	d, err := s.Create(context.Background(), input("c", model.Sporadic, "2024-01-02T08:00"))
	require.NoError(t, err)
	assert.Equal(t, int64(10), d.ID)
}

func TestFindByExternalID(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	in := input("Imported", model.Sporadic, "2024-01-02T08:00")
	in.ExternalID = "AAMk-1"
	created, err := s.Create(ctx, in)
	require.NoError(t, err)

	got, ok := s.FindByExternalID("AAMk-1")
	require.True(t, ok)
	assert.Equal(t, created.ID, got.ID)

	_, ok = s.FindByExternalID("")
	assert.False(t, ok)
	_, ok = s.FindByExternalID("missing")
	assert.False(t, ok)
}
