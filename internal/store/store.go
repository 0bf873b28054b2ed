// Package store implements the persistence collaborator for the live
// dataset: one snapshot value with atomic get/set, a debounced save, and an
// immediate save for shutdown.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fakeyudi/tally/internal/session"
)

// DefaultDebounce is how long Save waits before flushing, coalescing the
// bursts of updates the tracker produces around boundary events.
const DefaultDebounce = 2 * time.Second

// Store owns the live snapshot. All mutation goes through Set; the tracker is
// the single writer, so Get hands out the current value without copying. Set
// captures the marshaled form, and flushes write those bytes only, so the
// debounce timer goroutine never reads the live object while the tracker is
// mutating it.
type Store struct {
	path     string
	debounce time.Duration

	mu    sync.Mutex
	snap  *session.Snapshot
	data  []byte // marshaled form of snap, written by flushes
	timer *time.Timer
}

// Open loads the snapshot at path, or starts a fresh one if the file is
// missing. A corrupt file is logged and replaced rather than surfaced; the
// sanitizer handles anything salvageable inside a parseable file.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s := &Store{path: path, debounce: DefaultDebounce}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.snap = session.NewSnapshot()
	case err != nil:
		return nil, fmt.Errorf("reading tracking data: %w", err)
	default:
		var snap session.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			log.Printf("tracking data at %s is corrupt, starting fresh: %v", path, err)
			s.snap = session.NewSnapshot()
		} else {
			snap.Normalize()
			s.snap = &snap
		}
	}

	if s.data, err = json.MarshalIndent(s.snap, "", "  "); err != nil {
		return nil, fmt.Errorf("encoding tracking data: %w", err)
	}
	return s, nil
}

// Path returns the on-disk location of the live snapshot.
func (s *Store) Path() string { return s.path }

// Get returns the current snapshot.
func (s *Store) Get() *session.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Set replaces the current snapshot. The snapshot is marshaled here, while
// the caller's mutation is complete and its lock still held, so a flush
// firing later needs only the captured bytes.
func (s *Store) Set(snap *session.Snapshot) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		log.Printf("encoding tracking data: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	if err == nil {
		s.data = data
	}
}

// SetDebounce adjusts the Save coalescing window. Values <= 0 keep the
// current window.
func (s *Store) SetDebounce(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debounce = d
}

// Save schedules a flush after the debounce window, resetting the window if
// one is already pending.
func (s *Store) Save() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		if err := s.SaveImmediate(); err != nil {
			log.Printf("saving tracking data: %v", err)
		}
	})
}

// SaveImmediate flushes the snapshot to disk synchronously, cancelling any
// pending debounced save. This is the shutdown path.
func (s *Store) SaveImmediate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	return s.flushLocked()
}

// flushLocked writes the bytes captured by the last Set via a temp file +
// os.Rename so readers never observe a partial document. It must not touch
// the live snapshot: the debounce timer runs on its own goroutine and the
// tracker may be mid-mutation.
func (s *Store) flushLocked() (err error) {
	data := s.data

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "tracking-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to persist tracking data: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to persist tracking data: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to persist tracking data: %w", err)
	}

	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to persist tracking data: %w", err)
	}
	return nil
}
