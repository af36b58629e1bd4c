// Package storage persists the demand snapshot under a single key in a local
// key-value store. The snapshot is a JSON array rewritten in full on every
// change.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Tiliavir/trivial-demand-tracker/internal/model"
	"github.com/Tiliavir/trivial-demand-tracker/internal/timecalc"
)

// DefaultKey is the key the snapshot is stored under.
const DefaultKey = "demands"

// ErrWatchUnsupported is returned by Watch when the backend cannot report
// external changes.
var ErrWatchUnsupported = errors.New("backend does not support watching")

// ErrCorrupt is returned by Snapshot.Load when the stored snapshot cannot be
// decoded.
var ErrCorrupt = errors.New("corrupt snapshot")

// Backend is a key-value store of opaque values.
type Backend interface {
	// Get returns the value for key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Watcher is implemented by backends that can report writes made by other
// processes. Watch blocks until ctx is done and calls onChange for every
// detected change to key.
type Watcher interface {
	Watch(ctx context.Context, key string, onChange func()) error
}

// BaseDir returns the root data directory (~/.tdt).
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".tdt"), nil
}

// record is the persisted form of a demand, field for field.
type record struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Type          string  `json:"type"`
	ReceivedDate  string  `json:"receivedDate"`
	CompletedDate *string `json:"completedDate"`
	Comment       string  `json:"comment"`
	Recreated     bool    `json:"_recreated,omitempty"`
	ExternalID    string  `json:"externalId,omitempty"`
}

// Encode renders demands as the snapshot JSON array. Received dates are
// written as wall-clock time, completion dates as UTC instants, and pending
// demands carry an explicit null completedDate.
func Encode(demands []model.Demand) ([]byte, error) {
	recs := make([]record, 0, len(demands))
	for _, d := range demands {
		r := record{
			ID:           d.ID,
			Title:        d.Title,
			Description:  d.Description,
			Type:         string(d.Type),
			ReceivedDate: timecalc.FormatNaive(d.ReceivedDate),
			Comment:      d.Comment,
			Recreated:    d.Recreated,
			ExternalID:   d.ExternalID,
		}
		if d.CompletedDate != nil {
			s := timecalc.FormatUTC(*d.CompletedDate)
			r.CompletedDate = &s
		}
		recs = append(recs, r)
	}
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("storage error marshalling JSON: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot. Timestamps are read in loc; an empty or null
// snapshot yields no demands.
func Decode(data []byte, loc *time.Location) ([]model.Demand, error) {
	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("corrupt snapshot JSON: %w", err)
	}
	demands := make([]model.Demand, 0, len(recs))
	for _, r := range recs {
		received, err := timecalc.ParseTimestamp(r.ReceivedDate, loc)
		if err != nil {
			return nil, fmt.Errorf("demand %d: receivedDate: %w", r.ID, err)
		}
		d := model.Demand{
			ID:           r.ID,
			Title:        r.Title,
			Description:  r.Description,
			Type:         model.DemandType(r.Type),
			ReceivedDate: received,
			Comment:      r.Comment,
			Recreated:    r.Recreated,
			ExternalID:   r.ExternalID,
		}
		if r.CompletedDate != nil && *r.CompletedDate != "" {
			completed, err := timecalc.ParseTimestamp(*r.CompletedDate, loc)
			if err != nil {
				return nil, fmt.Errorf("demand %d: completedDate: %w", r.ID, err)
			}
			d.CompletedDate = &completed
		}
		demands = append(demands, d)
	}
	return demands, nil
}

// Snapshot stores all demands under one key of a Backend. It satisfies the
// store's persister contract.
type Snapshot struct {
	backend Backend
	key     string
	loc     *time.Location
}

// NewSnapshot binds a backend key. An empty key means DefaultKey; a nil loc
// means time.Local.
func NewSnapshot(b Backend, key string, loc *time.Location) *Snapshot {
	if key == "" {
		key = DefaultKey
	}
	if loc == nil {
		loc = time.Local
	}
	return &Snapshot{backend: b, key: key, loc: loc}
}

// Key returns the backend key the snapshot lives under.
func (s *Snapshot) Key() string { return s.key }

// Load reads the snapshot. A missing key is an empty snapshot. A corrupt
// snapshot is copied to "<key>.corrupt" and reported as ErrCorrupt; the live
// key is left in place until Discard or the next Save replaces it.
func (s *Snapshot) Load(ctx context.Context) ([]model.Demand, error) {
	data, ok, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("storage error reading %s: %w", s.key, err)
	}
	if !ok || len(data) == 0 {
		return []model.Demand{}, nil
	}
	demands, err := Decode(data, s.loc)
	if err != nil {
		backup := s.backupKey()
		if putErr := s.backend.Put(ctx, backup, data); putErr != nil {
			return nil, fmt.Errorf("%w: %s: %v (backup failed: %v)", ErrCorrupt, s.key, err, putErr)
		}
		return nil, fmt.Errorf("%w: %s (backed up to %s): %v", ErrCorrupt, s.key, backup, err)
	}
	return demands, nil
}

// Discard removes the live snapshot so the next Load starts empty. It refuses
// to run unless a backup exists.
func (s *Snapshot) Discard(ctx context.Context) error {
	if _, ok, err := s.backend.Get(ctx, s.backupKey()); err != nil {
		return fmt.Errorf("storage error reading %s: %w", s.backupKey(), err)
	} else if !ok {
		return fmt.Errorf("refusing to discard %s without a backup", s.key)
	}
	if err := s.backend.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("storage error deleting %s: %w", s.key, err)
	}
	return nil
}

func (s *Snapshot) backupKey() string { return s.key + ".corrupt" }

// Save writes the full snapshot.
func (s *Snapshot) Save(ctx context.Context, demands []model.Demand) error {
	data, err := Encode(demands)
	if err != nil {
		return err
	}
	if err := s.backend.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("storage error writing %s: %w", s.key, err)
	}
	return nil
}

// Watch reports external changes to the snapshot key when the backend
// supports it.
func (s *Snapshot) Watch(ctx context.Context, onChange func()) error {
	w, ok := s.backend.(Watcher)
	if !ok {
		return ErrWatchUnsupported
	}
	return w.Watch(ctx, s.key, onChange)
}
