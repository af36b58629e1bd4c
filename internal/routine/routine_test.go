package routine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/trivial-demand-tracker/internal/model"
	"github.com/Tiliavir/trivial-demand-tracker/internal/routine"
	"github.com/Tiliavir/trivial-demand-tracker/internal/store"
	"github.com/Tiliavir/trivial-demand-tracker/internal/timecalc"
)

type memPersister struct{ saved []model.Demand }

func (m *memPersister) Load(context.Context) ([]model.Demand, error) { return m.saved, nil }
func (m *memPersister) Save(_ context.Context, d []model.Demand) error {
	m.saved = d
	return nil
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	cal, err := timecalc.NewCalendar(timecalc.Clock{Hour: 9}, timecalc.Clock{Hour: 17}, timecalc.DefaultWeekdays, time.UTC)
	require.NoError(t, err)
	s, err := store.New(context.Background(), &memPersister{}, cal)
	require.NoError(t, err)
	return s
}

func addDemand(t *testing.T, s *store.Store, title string, typ model.DemandType, received string, completed *time.Time) model.Demand {
	t.Helper()
	ctx := context.Background()
	d, err := s.Create(ctx, model.DemandInput{Title: title, Description: title + " desc", Type: typ, Received: received})
	require.NoError(t, err)
	if completed != nil {
		d, err = s.Complete(ctx, d.ID, "ok", *completed)
		require.NoError(t, err)
	}
	return d
}

func at(day, hour int) *time.Time {
	t := time.Date(2024, 1, day, hour, 0, 0, 0, time.UTC)
	return &t
}

func TestRecreateCompletedRoutine(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	orig := addDemand(t, s, "Backup", model.Routine, "2024-01-02T09:00", at(2, 12))
	now := *at(3, 8)

	created, err := routine.Recreate(ctx, s, now, nil)
	require.NoError(t, err)
	require.Len(t, created, 1)

	succ := created[0]
	assert.Greater(t, succ.ID, orig.ID)
	assert.Equal(t, "Backup", succ.Title)
	assert.Equal(t, orig.Description, succ.Description)
	assert.Equal(t, model.Routine, succ.Type)
	assert.True(t, succ.Recreated)
	assert.True(t, succ.Pending())
	assert.True(t, succ.ReceivedDate.Equal(now))

	// Running again on the same day creates nothing.
	again, err := routine.Recreate(ctx, s, now.Add(3*time.Hour), nil)
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Equal(t, 2, s.Len())
}

func TestRecreateSkips(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	addDemand(t, s, "Same day", model.Routine, "2024-01-03T07:00", at(3, 7))
	addDemand(t, s, "Pending", model.Routine, "2024-01-02T09:00", nil)
	addDemand(t, s, "Sporadic", model.Sporadic, "2024-01-02T09:00", at(2, 10))
	// Already received today under the same title.
	addDemand(t, s, "Report", model.Routine, "2024-01-01T09:00", at(1, 10))
	addDemand(t, s, "report", model.Routine, "2024-01-03T06:00", nil)

	created, err := routine.Recreate(ctx, s, *at(3, 8), nil)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestRecreateDedupesWithinRun(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	addDemand(t, s, "Invoices", model.Routine, "2024-01-01T09:00", at(1, 11))
	addDemand(t, s, "Invoices", model.Routine, "2024-01-02T09:00", at(2, 11))
	addDemand(t, s, "Mail", model.Routine, "2024-01-02T09:00", at(2, 9))

	created, err := routine.Recreate(ctx, s, *at(3, 8), nil)
	require.NoError(t, err)
	require.Len(t, created, 2)

	titles := []string{created[0].Title, created[1].Title}
	assert.ElementsMatch(t, []string{"Invoices", "Mail"}, titles)
}

func TestRecreateSkipsWhilePendingSuccessorExists(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	addDemand(t, s, "Backup", model.Routine, "2024-01-02T09:00", at(2, 12))

	first, err := routine.Recreate(ctx, s, *at(3, 8), nil)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// The successor from the 3rd is still open on the 4th and 5th.
	for _, day := range []int{4, 5} {
		created, err := routine.Recreate(ctx, s, *at(day, 8), nil)
		require.NoError(t, err)
		assert.Empty(t, created, "day %d", day)
	}
	assert.Equal(t, 2, s.Len())

	// Once the successor is completed, the next day gets a new one.
	_, err = s.Complete(ctx, first[0].ID, "ok", *at(5, 10))
	require.NoError(t, err)
	created, err := routine.Recreate(ctx, s, *at(6, 8), nil)
	require.NoError(t, err)
	assert.Len(t, created, 1)
}
