package sanitize_test

import (
	"math"
	"testing"
	"time"

	"github.com/fakeyudi/tally/internal/sanitize"
	"github.com/fakeyudi/tally/internal/session"
)

var now = time.Date(2026, time.February, 10, 9, 0, 0, 0, time.UTC)

// fresh returns a snapshot whose global record is already migrated, so tests
// can focus on one repair at a time.
func fresh() *session.Snapshot {
	snap := session.NewSnapshot()
	snap.Global.WeekStart = session.WeekStartOf(now).Format(session.DateLayout)
	snap.Global.MonthStart = session.MonthStartOf(now).Format(session.DateLayout)
	return snap
}

func TestClampsBadCounters(t *testing.T) {
	snap := fresh()
	p := snap.Project("p1")
	p.TotalTime = -50
	p.TodayTime = math.NaN()
	snap.Global.WeekTime = math.Inf(1)

	if !sanitize.Run(snap, now) {
		t.Fatal("expected changes to be reported")
	}
	if p.TotalTime != 0 || p.TodayTime != 0 {
		t.Errorf("counters not clamped: total=%v today=%v", p.TotalTime, p.TodayTime)
	}
	if snap.Global.WeekTime != 0 {
		t.Errorf("global weekTime not clamped: %v", snap.Global.WeekTime)
	}
}

func TestClearsFutureLastActiveDate(t *testing.T) {
	snap := fresh()
	p := snap.Project("p1")
	p.TodayTime = 1200
	p.LastActiveDate = now.AddDate(0, 0, 3).Format(session.DateLayout)

	if !sanitize.Run(snap, now) {
		t.Fatal("expected changes to be reported")
	}
	if p.LastActiveDate != "" {
		t.Errorf("future lastActiveDate kept: %q", p.LastActiveDate)
	}
	if p.TodayTime != 0 {
		t.Errorf("todayTime not zeroed with the date: %v", p.TodayTime)
	}
}

func TestKeepsRecentLastActiveDate(t *testing.T) {
	snap := fresh()
	p := snap.Project("p1")
	// Today and up to one day ahead are within clock-skew tolerance.
	p.LastActiveDate = now.Format(session.DateLayout)

	sanitize.Run(snap, now)
	if p.LastActiveDate == "" {
		t.Error("today's lastActiveDate should be kept")
	}
}

func TestDropsInvalidSessions(t *testing.T) {
	snap := fresh()
	good := session.New("good", now.Add(-time.Hour), now)
	p := snap.Project("p1")
	p.Sessions = []session.Session{
		good,
		{ID: "no-times", Duration: 60},
		{ID: "negative", StartTime: now, EndTime: now.Add(-time.Hour), Duration: -3600},
		session.New("too-long", now.Add(-30*time.Hour), now),
	}

	if !sanitize.Run(snap, now) {
		t.Fatal("expected changes to be reported")
	}
	if len(p.Sessions) != 1 || p.Sessions[0].ID != "good" {
		t.Errorf("expected only the good session to survive, got %d", len(p.Sessions))
	}
}

// Bounded duration property: every session surviving sanitization has a
// duration in (0, 24h].
func TestSurvivorsSatisfyBoundedDuration(t *testing.T) {
	snap := fresh()
	g := snap.Global
	g.Sessions = []session.Session{
		session.New("a", now.Add(-time.Minute), now),
		session.New("b", now, now),
		session.New("c", now.Add(-25*time.Hour), now),
		{ID: "d", StartTime: now.Add(-time.Hour), EndTime: now, Duration: math.NaN()},
	}

	sanitize.Run(snap, now)
	for _, s := range g.Sessions {
		if s.Duration <= 0 || s.Duration > session.MaxDuration.Seconds() {
			t.Errorf("session %q survived with duration %v", s.ID, s.Duration)
		}
	}
}

// TestMigratesLegacyWindowCounters verifies that records lacking week/month
// anchors get them recomputed from the session history, not zeroed.
func TestMigratesLegacyWindowCounters(t *testing.T) {
	snap := session.NewSnapshot() // no anchors at all
	g := snap.Global
	thisWeek := session.WeekStartOf(now).Add(10 * time.Hour)
	g.Sessions = []session.Session{
		session.New("in-week", thisWeek, thisWeek.Add(2*time.Hour)),
		session.New("in-month", session.MonthStartOf(now).Add(time.Hour), session.MonthStartOf(now).Add(2*time.Hour)),
	}

	if !sanitize.Run(snap, now) {
		t.Fatal("expected migration to be reported as a change")
	}
	if g.WeekStart != session.WeekStartOf(now).Format(session.DateLayout) {
		t.Errorf("WeekStart = %q", g.WeekStart)
	}
	if g.MonthStart != session.MonthStartOf(now).Format(session.DateLayout) {
		t.Errorf("MonthStart = %q", g.MonthStart)
	}
	if g.WeekTime != 7200 {
		t.Errorf("WeekTime = %v, want 7200 (the in-week session)", g.WeekTime)
	}
	if g.MonthTime != 7200+3600 {
		t.Errorf("MonthTime = %v, want 10800 (both sessions)", g.MonthTime)
	}
}

// TestCleanSnapshotReportsNoChange guards the "exactly one write-back"
// contract: a snapshot needing no repair must not trigger a write.
func TestCleanSnapshotReportsNoChange(t *testing.T) {
	snap := fresh()
	p := snap.Project("p1")
	p.TotalTime = 100
	p.LastActiveDate = now.Format(session.DateLayout)
	p.Sessions = []session.Session{session.New("s", now.Add(-time.Hour), now)}

	if sanitize.Run(snap, now) {
		t.Error("clean snapshot reported as changed")
	}
}
