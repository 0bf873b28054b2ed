package session_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/tally/internal/session"
)

func TestValid(t *testing.T) {
	base := time.Date(2026, time.February, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		sess session.Session
		want bool
	}{
		{
			name: "normal one hour session",
			sess: session.New("a", base, base.Add(time.Hour)),
			want: true,
		},
		{
			name: "zero start time",
			sess: session.Session{ID: "a", EndTime: base, Duration: 60},
			want: false,
		},
		{
			name: "zero end time",
			sess: session.Session{ID: "a", StartTime: base, Duration: 60},
			want: false,
		},
		{
			name: "end before start",
			sess: session.Session{ID: "a", StartTime: base, EndTime: base.Add(-time.Minute), Duration: 60},
			want: false,
		},
		{
			name: "zero duration",
			sess: session.New("a", base, base),
			want: false,
		},
		{
			name: "negative duration",
			sess: session.Session{ID: "a", StartTime: base, EndTime: base.Add(time.Hour), Duration: -5},
			want: false,
		},
		{
			name: "NaN duration",
			sess: session.Session{ID: "a", StartTime: base, EndTime: base.Add(time.Hour), Duration: math.NaN()},
			want: false,
		},
		{
			name: "infinite duration",
			sess: session.Session{ID: "a", StartTime: base, EndTime: base.Add(time.Hour), Duration: math.Inf(1)},
			want: false,
		},
		{
			name: "exactly 24h",
			sess: session.New("a", base, base.Add(24*time.Hour)),
			want: true,
		},
		{
			name: "over 24h",
			sess: session.New("a", base, base.Add(25*time.Hour)),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sess.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestUnmarshalToleratesBadTimestamps verifies that one corrupt record does
// not fail the whole document: the bad timestamp parses to zero and the
// record fails Valid instead.
func TestUnmarshalToleratesBadTimestamps(t *testing.T) {
	raw := `{"id":"x","startTime":"not-a-time","endTime":"2026-02-10T09:00:00Z","duration":60}`

	var s session.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !s.StartTime.IsZero() {
		t.Errorf("expected zero StartTime, got %v", s.StartTime)
	}
	if s.EndTime.IsZero() {
		t.Error("expected EndTime to parse")
	}
	if s.Valid() {
		t.Error("record with unparseable timestamp must not be valid")
	}
}

// Session JSON round-trip preserves every field.
func TestSessionRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		start := time.Unix(rapid.Int64Range(0, 1_700_000_000).Draw(rt, "start"), 0).UTC()
		end := start.Add(time.Duration(rapid.Int64Range(1, 86_400).Draw(rt, "dur")) * time.Second)
		original := session.New(rapid.StringN(1, 36, -1).Draw(rt, "id"), start, end)

		data, err := json.Marshal(original)
		if err != nil {
			rt.Fatalf("Marshal: %v", err)
		}
		var loaded session.Session
		if err := json.Unmarshal(data, &loaded); err != nil {
			rt.Fatalf("Unmarshal: %v", err)
		}

		if loaded.ID != original.ID {
			rt.Errorf("ID mismatch: got %q, want %q", loaded.ID, original.ID)
		}
		if !loaded.StartTime.Equal(original.StartTime) {
			rt.Errorf("StartTime mismatch: got %v, want %v", loaded.StartTime, original.StartTime)
		}
		if !loaded.EndTime.Equal(original.EndTime) {
			rt.Errorf("EndTime mismatch: got %v, want %v", loaded.EndTime, original.EndTime)
		}
		if loaded.Duration != original.Duration {
			rt.Errorf("Duration mismatch: got %v, want %v", loaded.Duration, original.Duration)
		}
	})
}

func TestWeekStartOfIsMonday(t *testing.T) {
	tests := []struct {
		day  time.Time
		want time.Time
	}{
		// 2026-08-27 is a Thursday.
		{
			day:  time.Date(2026, time.August, 27, 15, 30, 0, 0, time.UTC),
			want: time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC),
		},
		// A Monday maps to itself.
		{
			day:  time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC),
			want: time.Date(2026, time.August, 24, 0, 0, 0, 0, time.UTC),
		},
		// A Sunday belongs to the week started the previous Monday.
		{
			day:  time.Date(2026, time.August, 23, 23, 59, 0, 0, time.UTC),
			want: time.Date(2026, time.August, 17, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		if got := session.WeekStartOf(tt.day); !got.Equal(tt.want) {
			t.Errorf("WeekStartOf(%v) = %v, want %v", tt.day, got, tt.want)
		}
	}
}

// TestTodaySecondsIgnoresStaleCounter verifies that a todayTime recorded
// yesterday is not reported as today's time.
func TestTodaySecondsIgnoresStaleCounter(t *testing.T) {
	yesterday := time.Date(2026, time.February, 9, 14, 0, 0, 0, time.UTC)
	now := time.Date(2026, time.February, 10, 9, 0, 0, 0, time.UTC)

	p := &session.ProjectTracking{
		TodayTime:      3600,
		LastActiveDate: yesterday.Format(session.DateLayout),
		Sessions: []session.Session{
			session.New("old", yesterday, yesterday.Add(time.Hour)),
			session.New("new", now.Add(-30*time.Minute), now),
		},
	}

	if got := p.TodaySeconds(now); got != 1800 {
		t.Errorf("TodaySeconds = %v, want 1800 (only today's session)", got)
	}
	// Counter trusted while the date still matches.
	p.LastActiveDate = now.Format(session.DateLayout)
	if got := p.TodaySeconds(now); got != 3600 {
		t.Errorf("TodaySeconds = %v, want stored 3600", got)
	}
}

// TestWeekSecondsRecomputesAfterRollover verifies that a rolled-over anchor
// causes a recompute from the session list rather than trusting the counter.
func TestWeekSecondsRecomputesAfterRollover(t *testing.T) {
	lastWeek := time.Date(2026, time.August, 18, 10, 0, 0, 0, time.UTC) // Tuesday
	now := time.Date(2026, time.August, 27, 10, 0, 0, 0, time.UTC)      // Thursday, next week

	g := &session.GlobalTracking{
		WeekTime:  7200,
		WeekStart: session.WeekStartOf(lastWeek).Format(session.DateLayout),
		Sessions: []session.Session{
			session.New("old", lastWeek, lastWeek.Add(2*time.Hour)),
			session.New("new", now.Add(-time.Hour), now),
		},
	}

	if got := g.WeekSeconds(now); got != 3600 {
		t.Errorf("WeekSeconds = %v, want 3600 (recomputed for current week)", got)
	}
}
