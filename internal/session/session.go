// Package session defines the persisted time-tracking data model: immutable
// session records, per-project and global tracking aggregates, and the
// snapshot that the persistence layer owns.
package session

import (
	"encoding/json"
	"math"
	"time"
)

// GlobalID is the reserved entity id for the cross-project aggregate. It is
// maintained by the tracker and never appears on per-project surfaces.
const GlobalID = "__global__"

// MaxDuration bounds a single session record. Anything longer is the product
// of clock trouble and is dropped by the sanitizer.
const MaxDuration = 24 * time.Hour

// Session is one closed tracking interval. Records are immutable once
// written; Duration is stored in seconds and must equal EndTime - StartTime.
type Session struct {
	ID        string
	StartTime time.Time
	EndTime   time.Time
	Duration  float64 // seconds
}

// New builds a session record for the closed interval [start, end].
func New(id string, start, end time.Time) Session {
	return Session{
		ID:        id,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start).Seconds(),
	}
}

// Valid reports whether the record satisfies the session invariants:
// parseable timestamps, end not before start, and a finite duration in
// (0, 24h].
func (s Session) Valid() bool {
	if s.StartTime.IsZero() || s.EndTime.IsZero() {
		return false
	}
	if s.EndTime.Before(s.StartTime) {
		return false
	}
	if math.IsNaN(s.Duration) || math.IsInf(s.Duration, 0) {
		return false
	}
	return s.Duration > 0 && s.Duration <= MaxDuration.Seconds()
}

type sessionJSON struct {
	ID        string  `json:"id"`
	StartTime string  `json:"startTime"`
	EndTime   string  `json:"endTime"`
	Duration  float64 `json:"duration"`
}

// MarshalJSON writes timestamps as RFC 3339 so archive files stay
// independently inspectable.
func (s Session) MarshalJSON() ([]byte, error) {
	return json.Marshal(sessionJSON{
		ID:        s.ID,
		StartTime: s.StartTime.Format(time.RFC3339Nano),
		EndTime:   s.EndTime.Format(time.RFC3339Nano),
		Duration:  s.Duration,
	})
}

// UnmarshalJSON is tolerant: an unparseable timestamp leaves the field zero
// instead of failing the whole document, so one corrupt record cannot take
// the dataset down. Valid() rejects such records later.
func (s *Session) UnmarshalJSON(data []byte) error {
	var raw sessionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.ID = raw.ID
	s.Duration = raw.Duration
	s.StartTime, _ = time.Parse(time.RFC3339Nano, raw.StartTime)
	s.EndTime, _ = time.Parse(time.RFC3339Nano, raw.EndTime)
	return nil
}
