// Package track implements the active-time state machine: per-project and
// global runtime intervals, the idle/output-grace policy, and the boundary
// detectors that keep recorded time correct across sleep, midnight and
// crashes.
package track

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fakeyudi/tally/internal/archive"
	"github.com/fakeyudi/tally/internal/sanitize"
	"github.com/fakeyudi/tally/internal/session"
)

// Store is the persistence collaborator owning the live snapshot.
type Store interface {
	Get() *session.Snapshot
	Set(*session.Snapshot)
	Save()                // may be debounced
	SaveImmediate() error // synchronous, shutdown only
}

// Config holds the tracker's timing knobs. Zero fields take the defaults.
type Config struct {
	IdleTimeout        time.Duration // input silence before an interval goes idle
	OutputGrace        time.Duration // recent output defers the idle transition
	HeartbeatInterval  time.Duration
	SleepThreshold     time.Duration // heartbeat gap treated as a sleep/wake cycle
	MidnightInterval   time.Duration
	CheckpointInterval time.Duration
}

// DefaultConfig returns the standard timing policy.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:        15 * time.Minute,
		OutputGrace:        2 * time.Minute,
		HeartbeatInterval:  30 * time.Second,
		SleepThreshold:     2 * time.Minute,
		MidnightInterval:   30 * time.Second,
		CheckpointInterval: 5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.OutputGrace <= 0 {
		c.OutputGrace = d.OutputGrace
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.SleepThreshold <= 0 {
		c.SleepThreshold = d.SleepThreshold
	}
	if c.MidnightInterval <= 0 {
		c.MidnightInterval = d.MidnightInterval
	}
	if c.CheckpointInterval <= 0 {
		c.CheckpointInterval = d.CheckpointInterval
	}
	return c
}

// rescheduleSlack pads a deferred idle check so the output window has
// definitely expired when the timer fires again.
const rescheduleSlack = time.Second

// interval is the runtime state for one entity. It survives idle transitions,
// boundary splits and checkpoints; only Stop discards it.
type interval struct {
	sessionStart time.Time // zero while idle
	lastActivity time.Time
	lastOutput   time.Time
	idle         bool
}

func (iv *interval) active() bool {
	return !iv.idle && !iv.sessionStart.IsZero()
}

// Tracker is the session tracker. One mutex guards the whole tracked state:
// every boundary is computed relative to sessionStart and sessionStart reset
// to that boundary under the same lock, so no interleaving of detectors can
// double-count or lose time.
type Tracker struct {
	cfg     Config
	store   Store
	archive *archive.Store
	now     func() time.Time

	mu            sync.Mutex
	running       bool
	intervals     map[string]*interval // keyed by project id, plus session.GlobalID
	idleTimers    map[string]*time.Timer
	lastHeartbeat time.Time
	lastDate      time.Time // local midnight of the last observed day

	stop chan struct{}
	wg   sync.WaitGroup
}

// New builds a Tracker over the given store and archive. Call Init before
// sending signals; signals arriving earlier are dropped.
func New(st Store, arch *archive.Store, cfg Config) *Tracker {
	return &Tracker{
		cfg:        cfg.withDefaults(),
		store:      st,
		archive:    arch,
		now:        time.Now,
		intervals:  make(map[string]*interval),
		idleTimers: make(map[string]*time.Timer),
	}
}

// Init sanitizes and migrates the live dataset, moves any out-of-month
// history to the archives, and starts the boundary detectors.
func (t *Tracker) Init() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	now := t.now()

	snap := t.store.Get()
	if sanitize.Run(snap, now) {
		t.store.Set(snap)
		t.store.Save()
	}
	t.archiveOldLocked(now)

	t.lastHeartbeat = now
	t.lastDate = session.DayStart(now)
	t.running = true
	t.stop = make(chan struct{})

	t.wg.Add(3)
	go t.runDetector(t.cfg.HeartbeatInterval, t.heartbeatTick)
	go t.runDetector(t.cfg.MidnightInterval, t.midnightTick)
	go t.runDetector(t.cfg.CheckpointInterval, t.checkpointTick)
}

// Shutdown closes every active interval at now, forces a synchronous save,
// and stops the detectors. Safe to call more than once.
func (t *Tracker) Shutdown() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	close(t.stop)

	now := t.now()
	for id, iv := range t.intervals {
		if iv.active() {
			t.persistLocked(id, iv.sessionStart, now)
		}
	}
	t.intervals = make(map[string]*interval)
	for id, timer := range t.idleTimers {
		timer.Stop()
		delete(t.idleTimers, id)
	}
	t.mu.Unlock()

	t.wg.Wait()
	if err := t.store.SaveImmediate(); err != nil {
		log.Printf("final save failed: %v", err)
	}
}

// Start begins tracking a project. Already active is a no-op; idle resumes.
func (t *Tracker) Start(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running || id == session.GlobalID {
		return
	}
	t.startLocked(id, t.now())
}

// Stop ends tracking for a project: the open interval is persisted and the
// runtime state discarded. Stopping the last tracked project stops the global
// interval the same way.
func (t *Tracker) Stop(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running || id == session.GlobalID {
		return
	}
	t.stopLocked(id, t.now())
}

// RecordActivity notes user input for a project: it starts tracking if
// needed, resumes from idle, and otherwise pushes back the idle deadline for
// the project and the global interval.
func (t *Tracker) RecordActivity(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running || id == session.GlobalID {
		return
	}
	now := t.now()

	iv := t.intervals[id]
	if iv == nil {
		t.startLocked(id, now)
		return
	}
	if iv.idle {
		t.resumeLocked(id, now)
		return
	}
	iv.lastActivity = now
	t.scheduleIdleLocked(id)
	if g := t.intervals[session.GlobalID]; g != nil && g.active() {
		g.lastActivity = now
		t.scheduleIdleLocked(session.GlobalID)
	}
}

// RecordOutputActivity notes program output for a project. Output only
// defers the idle transition of an already-active interval; it never resets
// the input deadline and never resumes an idle one.
func (t *Tracker) RecordOutputActivity(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running || id == session.GlobalID {
		return
	}
	iv := t.intervals[id]
	if iv == nil || !iv.active() {
		return
	}
	now := t.now()
	iv.lastOutput = now
	if g := t.intervals[session.GlobalID]; g != nil && g.active() {
		g.lastOutput = now
	}
}

// SetProjectName records a display name for a project; the latest name wins
// and follows sessions into the archives.
func (t *Tracker) SetProjectName(id, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id == session.GlobalID || name == "" {
		return
	}
	snap := t.store.Get()
	p := snap.Project(id)
	if p.Name == name {
		return
	}
	p.Name = name
	t.store.Set(snap)
	t.store.Save()
}

func (t *Tracker) startLocked(id string, now time.Time) {
	if iv := t.intervals[id]; iv != nil {
		if iv.active() {
			return
		}
		t.resumeLocked(id, now)
		return
	}

	firstActive := !t.anyActiveProjectLocked()
	t.intervals[id] = &interval{sessionStart: now, lastActivity: now}
	t.scheduleIdleLocked(id)
	if firstActive {
		t.startGlobalLocked(now)
	}
}

func (t *Tracker) resumeLocked(id string, now time.Time) {
	iv := t.intervals[id]
	if iv == nil || !iv.idle {
		return
	}
	firstActive := !t.anyActiveProjectLocked()
	iv.sessionStart = now
	iv.idle = false
	iv.lastActivity = now
	t.scheduleIdleLocked(id)
	if firstActive {
		t.startGlobalLocked(now)
	}
}

// startGlobalLocked opens or resumes the global interval.
func (t *Tracker) startGlobalLocked(now time.Time) {
	g := t.intervals[session.GlobalID]
	if g == nil {
		t.intervals[session.GlobalID] = &interval{sessionStart: now, lastActivity: now}
	} else if !g.active() {
		g.sessionStart = now
		g.idle = false
		g.lastActivity = now
	}
	t.scheduleIdleLocked(session.GlobalID)
}

// pauseLocked is the idle transition: the interval is closed at boundary and
// kept, awaiting real input. Pausing the last active project pauses the
// global interval at the same boundary.
func (t *Tracker) pauseLocked(id string, boundary time.Time) {
	iv := t.intervals[id]
	if iv == nil || !iv.active() {
		return
	}
	t.persistLocked(id, iv.sessionStart, boundary)
	iv.sessionStart = time.Time{}
	iv.idle = true
	t.cancelIdleLocked(id)

	if id != session.GlobalID && !t.anyActiveProjectLocked() {
		t.pauseLocked(session.GlobalID, boundary)
	}
}

func (t *Tracker) stopLocked(id string, now time.Time) {
	iv := t.intervals[id]
	if iv == nil {
		return
	}
	if iv.active() {
		t.persistLocked(id, iv.sessionStart, now)
	}
	delete(t.intervals, id)
	t.cancelIdleLocked(id)

	if id != session.GlobalID {
		if !t.anyTrackedProjectLocked() {
			t.stopLocked(session.GlobalID, now)
		} else if !t.anyActiveProjectLocked() {
			t.pauseLocked(session.GlobalID, now)
		}
	}
}

// idleTimeout fires when a project has seen no input for the idle window.
// Recent output defers the transition; only staleness past the grace window
// lets it pause.
func (t *Tracker) idleTimeout(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.idleTimeoutLocked(id, t.now())
}

func (t *Tracker) idleTimeoutLocked(id string, now time.Time) {
	iv := t.intervals[id]
	if iv == nil || !iv.active() {
		return
	}

	if !iv.lastOutput.IsZero() {
		if sinceOutput := now.Sub(iv.lastOutput); sinceOutput < t.cfg.OutputGrace {
			// A long-running command is still talking. Check again once the
			// grace window has drained; output defers, never triggers.
			t.rescheduleIdleLocked(id, t.cfg.OutputGrace-sinceOutput+rescheduleSlack)
			return
		}
	}

	// The global deadline can fire a beat before the project timers that
	// keep feeding it. Leave the pause to the project cascade.
	if id == session.GlobalID && t.anyActiveProjectLocked() {
		return
	}

	t.pauseLocked(id, now)
}

func (t *Tracker) scheduleIdleLocked(id string) {
	t.rescheduleIdleLocked(id, t.cfg.IdleTimeout)
}

func (t *Tracker) rescheduleIdleLocked(id string, d time.Duration) {
	if timer := t.idleTimers[id]; timer != nil {
		timer.Stop()
	}
	t.idleTimers[id] = time.AfterFunc(d, func() { t.idleTimeout(id) })
}

func (t *Tracker) cancelIdleLocked(id string) {
	if timer := t.idleTimers[id]; timer != nil {
		timer.Stop()
		delete(t.idleTimers, id)
	}
}

func (t *Tracker) anyActiveProjectLocked() bool {
	for id, iv := range t.intervals {
		if id != session.GlobalID && iv.active() {
			return true
		}
	}
	return false
}

func (t *Tracker) anyTrackedProjectLocked() bool {
	for id := range t.intervals {
		if id != session.GlobalID {
			return true
		}
	}
	return false
}

// persistLocked emits the session record for a closed interval and folds it
// into the live dataset, or routes it straight to the archive when it does
// not belong to the current month.
func (t *Tracker) persistLocked(id string, start, end time.Time) {
	if !end.After(start) {
		return
	}
	sess := session.New(uuid.NewString(), start, end)
	now := t.now()
	snap := t.store.Get()

	if id == session.GlobalID {
		t.addGlobalLocked(snap.Global, sess, now)
	} else {
		t.addProjectLocked(id, snap.Project(id), sess, now)
	}

	t.store.Set(snap)
	t.store.Save()
}

func (t *Tracker) addProjectLocked(id string, p *session.ProjectTracking, sess session.Session, now time.Time) {
	today := now.Format(session.DateLayout)
	if p.LastActiveDate != today {
		p.TodayTime = 0
	}
	p.LastActiveDate = today

	p.TotalTime += sess.Duration
	if session.SameDay(sess.StartTime, now) {
		p.TodayTime += sess.Duration
	}

	if session.SameMonth(sess.StartTime, now) {
		p.Sessions = append(p.Sessions, sess)
		return
	}
	t.archive.Append(sess.StartTime.Year(), sess.StartTime.Month(), nil,
		map[string]archive.ProjectSessions{
			id: {ProjectName: p.Name, Sessions: []session.Session{sess}},
		})
}

func (t *Tracker) addGlobalLocked(g *session.GlobalTracking, sess session.Session, now time.Time) {
	today := now.Format(session.DateLayout)
	if g.LastActiveDate != today {
		g.TodayTime = 0
	}
	g.LastActiveDate = today

	// Re-anchor the week/month counters before applying the new session so a
	// rollover recomputes from history instead of dragging stale time along.
	ws := session.WeekStartOf(now)
	if wsStr := ws.Format(session.DateLayout); g.WeekStart != wsStr {
		g.WeekStart = wsStr
		g.WeekTime = session.SumSince(g.Sessions, ws)
	}
	ms := session.MonthStartOf(now)
	if msStr := ms.Format(session.DateLayout); g.MonthStart != msStr {
		g.MonthStart = msStr
		g.MonthTime = session.SumSince(g.Sessions, ms)
	}

	g.TotalTime += sess.Duration
	if session.SameDay(sess.StartTime, now) {
		g.TodayTime += sess.Duration
	}
	if !sess.StartTime.Before(ws) {
		g.WeekTime += sess.Duration
	}
	if !sess.StartTime.Before(ms) {
		g.MonthTime += sess.Duration
	}

	if session.SameMonth(sess.StartTime, now) {
		g.Sessions = append(g.Sessions, sess)
		return
	}
	t.archive.Append(sess.StartTime.Year(), sess.StartTime.Month(),
		[]session.Session{sess}, nil)
}

// IsTracking reports whether the project currently has an active (non-idle)
// interval.
func (t *Tracker) IsTracking(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	iv := t.intervals[id]
	return iv != nil && iv.active()
}

// ActiveProjectCount returns the number of projects with an active interval.
func (t *Tracker) ActiveProjectCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for id, iv := range t.intervals {
		if id != session.GlobalID && iv.active() {
			n++
		}
	}
	return n
}

// TrackedProjects returns the ids of all tracked projects, active or idle,
// sorted for stable display.
func (t *Tracker) TrackedProjects() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.intervals))
	for id := range t.intervals {
		if id != session.GlobalID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ProjectTimes returns today's and the all-time totals for a project,
// including the elapsed portion of an open interval.
func (t *Tracker) ProjectTimes(id string) (today, total time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()

	var todaySec, totalSec float64
	if p, ok := t.store.Get().Projects[id]; ok {
		todaySec = p.TodaySeconds(now)
		totalSec = p.TotalTime
	}
	if iv := t.intervals[id]; iv != nil && iv.active() {
		open := now.Sub(iv.sessionStart).Seconds()
		todaySec += open
		totalSec += open
	}
	return session.Duration(todaySec), session.Duration(totalSec)
}

// GlobalTimes returns today's, this week's and this month's totals across all
// projects, including the elapsed portion of the open global interval.
func (t *Tracker) GlobalTimes() (today, week, month time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()

	g := t.store.Get().Global
	todaySec := g.TodaySeconds(now)
	weekSec := g.WeekSeconds(now)
	monthSec := g.MonthSeconds(now)

	if iv := t.intervals[session.GlobalID]; iv != nil && iv.active() {
		open := now.Sub(iv.sessionStart).Seconds()
		todaySec += open
		weekSec += open
		monthSec += open
	}
	return session.Duration(todaySec), session.Duration(weekSec), session.Duration(monthSec)
}
