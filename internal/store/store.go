// Package store holds the in-memory demand collection and the operations a
// CLI or reporting layer drives. Every mutation rewrites the full persisted
// snapshot; a failed write leaves the in-memory state untouched.
package store

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Tiliavir/trivial-demand-tracker/internal/model"
	"github.com/Tiliavir/trivial-demand-tracker/internal/timecalc"
)

// Persister loads and saves the complete demand snapshot.
type Persister interface {
	Load(ctx context.Context) ([]model.Demand, error)
	Save(ctx context.Context, demands []model.Demand) error
}

// Store owns the demand records. It is safe for use by a single writer plus a
// reload goroutine.
type Store struct {
	mu        sync.Mutex
	demands   []model.Demand // insertion order
	nextID    int64
	cal       *timecalc.Calendar
	persister Persister
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for store events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store seeded from the persisted snapshot.
func New(ctx context.Context, p Persister, cal *timecalc.Calendar, opts ...Option) (*Store, error) {
	if cal == nil {
		cal = timecalc.DefaultCalendar()
	}
	s := &Store{
		nextID:    1,
		cal:       cal,
		persister: p,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Calendar returns the business-hours calendar used for aggregation.
func (s *Store) Calendar() *timecalc.Calendar { return s.cal }

// Len returns the number of demands held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.demands)
}

// Reload replaces the in-memory state with the persisted snapshot. Local
// changes that were not persisted are lost. The id counter never moves
// backwards, so ids stay unique for the lifetime of the Store.
func (s *Store) Reload(ctx context.Context) error {
	loaded, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading demands: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.demands = loaded
	for _, d := range loaded {
		if d.ID >= s.nextID {
			s.nextID = d.ID + 1
		}
	}
	s.logger.Debug("demands loaded", "count", len(loaded), "next_id", s.nextID)
	return nil
}

// Create adds a new pending demand.
func (s *Store) Create(ctx context.Context, in model.DemandInput) (model.Demand, error) {
	received, err := s.validate(in)
	if err != nil {
		return model.Demand{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d := model.Demand{
		ID:           s.nextID,
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		Type:         in.Type,
		ReceivedDate: received,
		Recreated:    in.Recreated,
		ExternalID:   in.ExternalID,
	}
	next := append(s.cloneLocked(), d)
	if err := s.commitLocked(ctx, next); err != nil {
		return model.Demand{}, err
	}
	s.nextID++
	s.logger.Debug("demand created", "id", d.ID, "type", d.Type)
	return d.Clone(), nil
}

// Update replaces title, description, type and received date of an existing
// demand. Completion fields are never touched.
func (s *Store) Update(ctx context.Context, id int64, in model.DemandInput) (model.Demand, error) {
	received, err := s.validate(in)
	if err != nil {
		return model.Demand{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return model.Demand{}, &NotFoundError{ID: id}
	}
	next := s.cloneLocked()
	d := &next[i]
	d.Title = strings.TrimSpace(in.Title)
	d.Description = strings.TrimSpace(in.Description)
	d.Type = in.Type
	d.ReceivedDate = received
	if err := s.commitLocked(ctx, next); err != nil {
		return model.Demand{}, err
	}
	s.logger.Debug("demand updated", "id", id)
	return next[i].Clone(), nil
}

// Complete marks a demand done at now with the given comment. Completing an
// already completed demand overwrites its completion date and comment.
func (s *Store) Complete(ctx context.Context, id int64, comment string, now time.Time) (model.Demand, error) {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return model.Demand{}, &ValidationError{Field: "comment", Reason: "a comment is required to complete a demand"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return model.Demand{}, &NotFoundError{ID: id}
	}
	if !s.demands[i].Pending() {
		s.logger.Warn("re-completing demand", "id", id, "previous", s.demands[i].CompletedDate)
	}
	next := s.cloneLocked()
	completed := now.In(s.cal.Location())
	next[i].CompletedDate = &completed
	next[i].Comment = comment
	if err := s.commitLocked(ctx, next); err != nil {
		return model.Demand{}, err
	}
	s.logger.Debug("demand completed", "id", id)
	return next[i].Clone(), nil
}

// Delete removes a demand. Deleting an unknown id returns a *NotFoundError.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return &NotFoundError{ID: id}
	}
	next := slices.Delete(s.cloneLocked(), i, i+1)
	if err := s.commitLocked(ctx, next); err != nil {
		return err
	}
	s.logger.Debug("demand deleted", "id", id)
	return nil
}

// Get returns a copy of the demand with the given id.
func (s *Store) Get(id int64) (model.Demand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return model.Demand{}, &NotFoundError{ID: id}
	}
	return s.demands[i].Clone(), nil
}

// FindByExternalID returns the demand imported under externalID, if any.
func (s *Store) FindByExternalID(externalID string) (model.Demand, bool) {
	if externalID == "" {
		return model.Demand{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.demands {
		if d.ExternalID == externalID {
			return d.Clone(), true
		}
	}
	return model.Demand{}, false
}

// List returns the demands matching f, most recently received first. The
// sequence reads the store when iterated, so it can be ranged over again to
// observe later changes.
func (s *Store) List(f model.Filter) iter.Seq[model.Demand] {
	return func(yield func(model.Demand) bool) {
		for _, d := range s.snapshot(f) {
			if !yield(d) {
				return
			}
		}
	}
}

func (s *Store) snapshot(f model.Filter) []model.Demand {
	s.mu.Lock()
	out := make([]model.Demand, 0, len(s.demands))
	for _, d := range s.demands {
		if f.Match(d) {
			out = append(out, d.Clone())
		}
	}
	s.mu.Unlock()

	slices.SortStableFunc(out, func(a, b model.Demand) int {
		return cmp.Compare(b.ReceivedDate.UnixNano(), a.ReceivedDate.UnixNano())
	})
	return out
}

// WorkedHours returns the business hours spent on d so far. Pending demands
// are measured up to now.
func (s *Store) WorkedHours(d model.Demand, now time.Time) float64 {
	end := now
	if d.CompletedDate != nil {
		end = *d.CompletedDate
	}
	return s.cal.ElapsedBusinessHours(d.ReceivedDate, end)
}

// Aggregate computes the dashboard statistics as of now.
func (s *Store) Aggregate(now time.Time) model.Stats {
	var st model.Stats
	for d := range s.List(model.FilterAll) {
		if d.Pending() {
			st.PendingCount++
		} else {
			st.CompletedCount++
		}
		h := s.WorkedHours(d, now)
		if d.Type == model.Routine {
			st.RoutineCount++
			st.TotalRoutineHours += h
		} else {
			st.SporadicCount++
			st.TotalSporadicHours += h
		}
	}
	return st
}

func (s *Store) validate(in model.DemandInput) (time.Time, error) {
	if strings.TrimSpace(in.Title) == "" {
		return time.Time{}, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if strings.TrimSpace(in.Description) == "" {
		return time.Time{}, &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if !in.Type.Valid() {
		return time.Time{}, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown type %q", in.Type)}
	}
	if strings.TrimSpace(in.Received) == "" {
		return time.Time{}, &ValidationError{Field: "receivedDate", Reason: "must not be empty"}
	}
	received, err := s.cal.Parse(in.Received)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "receivedDate", Reason: err.Error()}
	}
	return received, nil
}

func (s *Store) indexLocked(id int64) int {
	return slices.IndexFunc(s.demands, func(d model.Demand) bool { return d.ID == id })
}

func (s *Store) cloneLocked() []model.Demand {
	out := make([]model.Demand, len(s.demands), len(s.demands)+1)
	for i, d := range s.demands {
		out[i] = d.Clone()
	}
	return out
}

// commitLocked persists next and, on success, makes it the current state.
func (s *Store) commitLocked(ctx context.Context, next []model.Demand) error {
	if err := s.persister.Save(ctx, next); err != nil {
		return fmt.Errorf("saving demands: %w", err)
	}
	s.demands = next
	return nil
}
