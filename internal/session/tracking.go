package session

import "time"

// ProjectTracking aggregates one project's recorded time. Sessions holds only
// current-month records; older ones live in the monthly archives.
type ProjectTracking struct {
	Name           string    `json:"name,omitempty"`
	TotalTime      float64   `json:"totalTime"`
	TodayTime      float64   `json:"todayTime"`
	LastActiveDate string    `json:"lastActiveDate,omitempty"` // YYYY-MM-DD
	Sessions       []Session `json:"sessions"`
}

// GlobalTracking aggregates time across all projects. WeekTime and MonthTime
// are anchored to WeekStart/MonthStart and are recomputed, not zeroed, when
// those anchors roll over.
type GlobalTracking struct {
	TotalTime      float64   `json:"totalTime"`
	TodayTime      float64   `json:"todayTime"`
	WeekTime       float64   `json:"weekTime"`
	MonthTime      float64   `json:"monthTime"`
	LastActiveDate string    `json:"lastActiveDate,omitempty"`
	WeekStart      string    `json:"weekStart,omitempty"`  // YYYY-MM-DD
	MonthStart     string    `json:"monthStart,omitempty"` // YYYY-MM-DD
	Sessions       []Session `json:"sessions"`
}

// Snapshot is the whole live dataset: one value, owned by the store, replaced
// atomically on every update.
type Snapshot struct {
	Version  int                         `json:"version"`
	Projects map[string]*ProjectTracking `json:"projects"`
	Global   *GlobalTracking             `json:"global"`
}

// NewSnapshot returns an empty, fully-initialised snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Version:  1,
		Projects: make(map[string]*ProjectTracking),
		Global:   &GlobalTracking{},
	}
}

// Normalize fills in nil maps and pointers after a JSON load so steady-state
// code never branches on presence.
func (s *Snapshot) Normalize() {
	if s.Projects == nil {
		s.Projects = make(map[string]*ProjectTracking)
	}
	if s.Global == nil {
		s.Global = &GlobalTracking{}
	}
	if s.Version == 0 {
		s.Version = 1
	}
}

// Project returns the tracking record for id, creating it if absent.
func (s *Snapshot) Project(id string) *ProjectTracking {
	p, ok := s.Projects[id]
	if !ok {
		p = &ProjectTracking{}
		s.Projects[id] = p
	}
	return p
}

// DayStart returns local midnight of t's day.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekStartOf returns local midnight of the Monday of t's week.
func WeekStartOf(t time.Time) time.Time {
	day := DayStart(t)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

// MonthStartOf returns local midnight of the first day of t's month.
func MonthStartOf(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same local calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// SameMonth reports whether a and b fall in the same local calendar month.
func SameMonth(a, b time.Time) bool {
	ay, am, _ := a.Date()
	by, bm, _ := b.Date()
	return ay == by && am == bm
}

// SumSince totals the duration, in seconds, of valid sessions starting at or
// after cutoff. Used to recompute anchored counters after a rollover.
func SumSince(sessions []Session, cutoff time.Time) float64 {
	var total float64
	for _, s := range sessions {
		if s.Valid() && !s.StartTime.Before(cutoff) {
			total += s.Duration
		}
	}
	return total
}

// Duration converts stored seconds to a time.Duration.
func Duration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
