// Package sanitize repairs the live dataset once at startup, before any
// detector runs: malformed counters are clamped, impossible session records
// dropped, and legacy records migrated to the current schema. Problems are
// logged, never surfaced.
package sanitize

import (
	"log"
	"math"
	"time"

	"github.com/fakeyudi/tally/internal/session"
)

// Run repairs snap in place and reports whether anything changed. The caller
// writes the snapshot back exactly once when it did.
func Run(snap *session.Snapshot, now time.Time) bool {
	snap.Normalize()

	changed := false
	for id, p := range snap.Projects {
		if sanitizeProject(id, p, now) {
			changed = true
		}
	}
	if sanitizeGlobal(snap.Global, now) {
		changed = true
	}
	return changed
}

func sanitizeProject(id string, p *session.ProjectTracking, now time.Time) bool {
	changed := clampCounter(&p.TotalTime)
	changed = clampCounter(&p.TodayTime) || changed

	if fixFutureDate(&p.LastActiveDate, now) {
		p.TodayTime = 0
		changed = true
	}

	kept, dropped := filterSessions(p.Sessions)
	if dropped > 0 {
		log.Printf("dropped %d invalid session record(s) for project %s", dropped, id)
		p.Sessions = kept
		changed = true
	}
	return changed
}

func sanitizeGlobal(g *session.GlobalTracking, now time.Time) bool {
	changed := clampCounter(&g.TotalTime)
	changed = clampCounter(&g.TodayTime) || changed
	changed = clampCounter(&g.WeekTime) || changed
	changed = clampCounter(&g.MonthTime) || changed

	if fixFutureDate(&g.LastActiveDate, now) {
		g.TodayTime = 0
		changed = true
	}

	kept, dropped := filterSessions(g.Sessions)
	if dropped > 0 {
		log.Printf("dropped %d invalid global session record(s)", dropped)
		g.Sessions = kept
		changed = true
	}

	// Legacy records predate the week/month counters. Anchor them to the
	// current window and recompute from the surviving session history rather
	// than starting from zero.
	if _, err := time.Parse(session.DateLayout, g.WeekStart); err != nil {
		ws := session.WeekStartOf(now)
		g.WeekStart = ws.Format(session.DateLayout)
		g.WeekTime = session.SumSince(g.Sessions, ws)
		changed = true
	}
	if _, err := time.Parse(session.DateLayout, g.MonthStart); err != nil {
		ms := session.MonthStartOf(now)
		g.MonthStart = ms.Format(session.DateLayout)
		g.MonthTime = session.SumSince(g.Sessions, ms)
		changed = true
	}
	return changed
}

// clampCounter zeroes a counter that is negative or non-finite.
func clampCounter(v *float64) bool {
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		*v = 0
		return true
	}
	return false
}

// fixFutureDate clears a date field that is unparseable or more than one day
// in the future. Reports whether it cleared anything.
func fixFutureDate(field *string, now time.Time) bool {
	if *field == "" {
		return false
	}
	t, err := time.Parse(session.DateLayout, *field)
	if err != nil || t.After(now.Add(24*time.Hour)) {
		*field = ""
		return true
	}
	return false
}

func filterSessions(sessions []session.Session) ([]session.Session, int) {
	kept := sessions[:0]
	dropped := 0
	for _, s := range sessions {
		if s.Valid() {
			kept = append(kept, s)
		} else {
			dropped++
		}
	}
	return kept, dropped
}
