package track

import (
	"time"

	"github.com/fakeyudi/tally/internal/archive"
	"github.com/fakeyudi/tally/internal/session"
)

type monthKey struct {
	year  int
	month time.Month
}

// archiveOldLocked moves every live session outside the current month into
// its monthly archive and writes the trimmed snapshot back once. Runs at
// startup and on month rollover; appends are deduplicated, so re-running
// after a partial failure is harmless.
func (t *Tracker) archiveOldLocked(now time.Time) {
	snap := t.store.Get()

	type bucket struct {
		global   []session.Session
		projects map[string]archive.ProjectSessions
	}
	buckets := make(map[monthKey]*bucket)
	bucketFor := func(k monthKey) *bucket {
		b, ok := buckets[k]
		if !ok {
			b = &bucket{projects: make(map[string]archive.ProjectSessions)}
			buckets[k] = b
		}
		return b
	}

	partition := func(sessions []session.Session) (keep []session.Session, moved map[monthKey][]session.Session) {
		moved = make(map[monthKey][]session.Session)
		for _, s := range sessions {
			if session.SameMonth(s.StartTime, now) {
				keep = append(keep, s)
				continue
			}
			k := monthKey{s.StartTime.Year(), s.StartTime.Month()}
			moved[k] = append(moved[k], s)
		}
		return keep, moved
	}

	changed := false

	keep, moved := partition(snap.Global.Sessions)
	if len(moved) > 0 {
		snap.Global.Sessions = keep
		for k, sessions := range moved {
			bucketFor(k).global = sessions
		}
		changed = true
	}

	for id, p := range snap.Projects {
		keep, moved := partition(p.Sessions)
		if len(moved) == 0 {
			continue
		}
		p.Sessions = keep
		for k, sessions := range moved {
			b := bucketFor(k)
			b.projects[id] = archive.ProjectSessions{ProjectName: p.Name, Sessions: sessions}
		}
		changed = true
	}

	if !changed {
		return
	}

	for k, b := range buckets {
		t.archive.Append(k.year, k.month, b.global, b.projects)
	}

	t.store.Set(snap)
	t.store.Save()
}
