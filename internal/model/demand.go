package model

import (
	"fmt"
	"strings"
	"time"
)

// DemandType is the category a demand is aggregated under.
type DemandType string

const (
	// Routine demands recur daily.
	Routine DemandType = "rotina"
	// Sporadic demands arrive ad hoc.
	Sporadic DemandType = "esporadica"
)

// Valid reports whether t is one of the known demand types.
func (t DemandType) Valid() bool {
	return t == Routine || t == Sporadic
}

// Label returns a human-readable name for t.
func (t DemandType) Label() string {
	switch t {
	case Routine:
		return "Routine"
	case Sporadic:
		return "Sporadic"
	default:
		return string(t)
	}
}

// ParseDemandType accepts both the stored values and their English names.
func ParseDemandType(s string) (DemandType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rotina", "routine":
		return Routine, nil
	case "esporadica", "sporadic":
		return Sporadic, nil
	}
	return "", fmt.Errorf("unknown demand type %q (want routine or sporadic)", s)
}

// Demand is a single tracked unit of work.
type Demand struct {
	ID            int64      `json:"id" yaml:"id"`
	Title         string     `json:"title" yaml:"title"`
	Description   string     `json:"description" yaml:"description"`
	Type          DemandType `json:"type" yaml:"type"`
	ReceivedDate  time.Time  `json:"receivedDate" yaml:"receivedDate"`
	CompletedDate *time.Time `json:"completedDate" yaml:"completedDate"`
	Comment       string     `json:"comment" yaml:"comment"`
	// Recreated marks successors created by the routine recreation job.
	Recreated bool `json:"_recreated,omitempty" yaml:"recreated,omitempty"`
	// ExternalID is the Microsoft To Do task id for imported demands.
	ExternalID string `json:"externalId,omitempty" yaml:"externalId,omitempty"`
}

// Pending reports whether the demand has not been completed yet.
func (d Demand) Pending() bool {
	return d.CompletedDate == nil
}

// Clone returns a deep copy of d.
func (d Demand) Clone() Demand {
	if d.CompletedDate != nil {
		c := *d.CompletedDate
		d.CompletedDate = &c
	}
	return d
}

// DemandInput holds the user-editable fields of a demand as entered.
// Received is raw text and is parsed by the store.
type DemandInput struct {
	Title       string
	Description string
	Type        DemandType
	Received    string
	Recreated   bool
	ExternalID  string
}

// Filter selects a subset of demands for listing.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterCompleted Filter = "completed"
	FilterRoutine   Filter = "rotina"
	FilterSporadic  Filter = "esporadica"
)

// ParseFilter maps a filter name to a Filter. An empty string means all.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "pending":
		return FilterPending, nil
	case "completed", "done":
		return FilterCompleted, nil
	case "rotina", "routine":
		return FilterRoutine, nil
	case "esporadica", "sporadic":
		return FilterSporadic, nil
	}
	return "", fmt.Errorf("unknown filter %q (want all, pending, completed, routine or sporadic)", s)
}

// Match reports whether d passes the filter.
func (f Filter) Match(d Demand) bool {
	switch f {
	case FilterPending:
		return d.Pending()
	case FilterCompleted:
		return !d.Pending()
	case FilterRoutine:
		return d.Type == Routine
	case FilterSporadic:
		return d.Type == Sporadic
	default:
		return true
	}
}

// Stats holds the dashboard aggregates.
type Stats struct {
	CompletedCount     int     `json:"completedCount" yaml:"completedCount"`
	PendingCount       int     `json:"pendingCount" yaml:"pendingCount"`
	RoutineCount       int     `json:"routineCount" yaml:"routineCount"`
	SporadicCount      int     `json:"sporadicCount" yaml:"sporadicCount"`
	TotalRoutineHours  float64 `json:"totalRoutineHours" yaml:"totalRoutineHours"`
	TotalSporadicHours float64 `json:"totalSporadicHours" yaml:"totalSporadicHours"`
}

// Total returns the number of demands counted in s.
func (s Stats) Total() int {
	return s.CompletedCount + s.PendingCount
}
