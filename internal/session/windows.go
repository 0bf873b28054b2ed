package session

import "time"

// DateLayout is how calendar-day fields (lastActiveDate, weekStart,
// monthStart) are stored.
const DateLayout = time.DateOnly

// sumOnDay totals valid sessions starting on the same local day as day.
func sumOnDay(sessions []Session, day time.Time) float64 {
	var total float64
	for _, s := range sessions {
		if s.Valid() && SameDay(s.StartTime, day) {
			total += s.Duration
		}
	}
	return total
}

// TodaySeconds returns the project's time for now's calendar day. The stored
// counter is only trusted while lastActiveDate is still today; otherwise the
// value is recomputed from the session list, so a stale counter from
// yesterday never leaks into a new day.
func (p *ProjectTracking) TodaySeconds(now time.Time) float64 {
	if p.LastActiveDate == now.Format(DateLayout) {
		return p.TodayTime
	}
	return sumOnDay(p.Sessions, now)
}

// TodaySeconds returns the global time for now's calendar day.
func (g *GlobalTracking) TodaySeconds(now time.Time) float64 {
	if g.LastActiveDate == now.Format(DateLayout) {
		return g.TodayTime
	}
	return sumOnDay(g.Sessions, now)
}

// WeekSeconds returns the global time for the week containing now,
// recomputing from the session list when the stored anchor has rolled over.
func (g *GlobalTracking) WeekSeconds(now time.Time) float64 {
	ws := WeekStartOf(now)
	if g.WeekStart == ws.Format(DateLayout) {
		return g.WeekTime
	}
	return SumSince(g.Sessions, ws)
}

// MonthSeconds returns the global time for the month containing now.
func (g *GlobalTracking) MonthSeconds(now time.Time) float64 {
	ms := MonthStartOf(now)
	if g.MonthStart == ms.Format(DateLayout) {
		return g.MonthTime
	}
	return SumSince(g.Sessions, ms)
}
