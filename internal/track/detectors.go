package track

import (
	"log"
	"time"

	"github.com/fakeyudi/tally/internal/session"
)

// runDetector drives one boundary detector off a ticker until Shutdown.
// Ticks take the tracker lock, so detector callbacks never overlap each other
// or an incoming activity signal.
func (t *Tracker) runDetector(every time.Duration, tick func(now time.Time)) {
	defer t.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.running {
				tick(t.now())
			}
			t.mu.Unlock()
		}
	}
}

// heartbeatTick infers sleep/wake cycles from gaps between ticks. On a gap
// beyond the threshold, every active interval is closed at the last
// known-awake instant and reopened at now, so sleep never counts as work.
func (t *Tracker) heartbeatTick(now time.Time) {
	gap := now.Sub(t.lastHeartbeat)
	if gap > t.cfg.SleepThreshold {
		asleep := t.lastHeartbeat
		log.Printf("heartbeat gap of %s, treating as sleep/wake", gap.Round(time.Second))
		for id, iv := range t.intervals {
			// An interval opened after the wake instant has nothing to split.
			if !iv.active() || iv.sessionStart.After(asleep) {
				continue
			}
			t.persistLocked(id, iv.sessionStart, asleep)
			iv.sessionStart = now
			t.scheduleIdleLocked(id)
		}
	}
	t.lastHeartbeat = now
}

// midnightTick splits intervals that straddle a date change, closing and
// reopening them exactly at local midnight so day buckets never span two
// days. A month change additionally triggers the archival pass, after the
// split, so the pre-midnight portions land in the right month.
func (t *Tracker) midnightTick(now time.Time) {
	today := session.DayStart(now)
	if today.Equal(t.lastDate) {
		return
	}

	midnight := today
	for id, iv := range t.intervals {
		if !iv.active() || !iv.sessionStart.Before(midnight) {
			continue
		}
		t.persistLocked(id, iv.sessionStart, midnight)
		iv.sessionStart = midnight
	}

	if !session.SameMonth(t.lastDate, today) {
		t.archiveOldLocked(now)
	}
	t.lastDate = today
}

// checkpointTick closes and reopens every active interval at now, bounding
// worst-case loss on an unclean shutdown to one checkpoint window. Idle state
// and deadlines are left untouched.
func (t *Tracker) checkpointTick(now time.Time) {
	for id, iv := range t.intervals {
		if !iv.active() {
			continue
		}
		t.persistLocked(id, iv.sessionStart, now)
		iv.sessionStart = now
	}
}
