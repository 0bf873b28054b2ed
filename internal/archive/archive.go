// Package archive stores closed sessions outside the current month, one JSON
// document per calendar month, so the live dataset stays bounded while old
// history remains inspectable.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fakeyudi/tally/internal/session"
)

// Version of the archive document schema.
const Version = 1

// cacheSize bounds the number of loaded archives held in memory.
const cacheSize = 3

// ProjectSessions is one project's slice of an archive.
type ProjectSessions struct {
	ProjectName string            `json:"projectName,omitempty"`
	Sessions    []session.Session `json:"sessions"`
}

// Archive is the document for one calendar month. No session id appears twice
// within GlobalSessions or within any one project's Sessions.
type Archive struct {
	Version         int                        `json:"version"`
	Month           string                     `json:"month"` // YYYY-MM
	CreatedAt       time.Time                  `json:"createdAt"`
	LastModifiedAt  time.Time                  `json:"lastModifiedAt"`
	GlobalSessions  []session.Session          `json:"globalSessions"`
	ProjectSessions map[string]ProjectSessions `json:"projectSessions"`
}

type cacheEntry struct {
	arch     *Archive
	loadedAt time.Time
}

// Store reads and writes monthly archive files under one directory.
type Store struct {
	dir string
	now func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewStore returns a Store rooted at dir. The directory is created on first
// write.
func NewStore(dir string) *Store {
	return &Store{
		dir:   dir,
		now:   time.Now,
		cache: make(map[string]cacheEntry),
	}
}

// FileName returns the archive file name for a month, e.g. "february_2026.json".
func FileName(year int, month time.Month) string {
	return fmt.Sprintf("%s_%d.json", strings.ToLower(month.String()), year)
}

// MonthKey returns the YYYY-MM key for a month.
func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

func (s *Store) path(year int, month time.Month) string {
	return filepath.Join(s.dir, FileName(year, month))
}

// Append merges sessions into the archive for (year, month): global sessions
// into the global list, project sessions into their per-project lists, each
// deduplicated by session id. Project names follow the latest append. The
// file is read fresh from disk (never the cache) so concurrent history moves
// cannot lose updates, and is written atomically. Failures are logged, never
// raised: the worst outcome is that a month's history stays in the live set
// until the next pass.
func (s *Store) Append(year int, month time.Month, global []session.Session, projects map[string]ProjectSessions) {
	s.mu.Lock()
	defer s.mu.Unlock()

	arch := s.readFile(year, month)
	if arch == nil {
		arch = &Archive{
			Version:         Version,
			Month:           MonthKey(year, month),
			CreatedAt:       s.now(),
			ProjectSessions: make(map[string]ProjectSessions),
		}
	}
	if arch.ProjectSessions == nil {
		arch.ProjectSessions = make(map[string]ProjectSessions)
	}

	arch.GlobalSessions = mergeSessions(arch.GlobalSessions, global)
	for id, ps := range projects {
		entry := arch.ProjectSessions[id]
		entry.Sessions = mergeSessions(entry.Sessions, ps.Sessions)
		if ps.ProjectName != "" {
			entry.ProjectName = ps.ProjectName
		}
		arch.ProjectSessions[id] = entry
	}
	arch.LastModifiedAt = s.now()

	if err := s.writeFile(year, month, arch); err != nil {
		log.Printf("writing archive %s: %v", FileName(year, month), err)
	}

	// The on-disk document changed either way; drop any cached copy.
	delete(s.cache, MonthKey(year, month))
}

// Load returns the archive for (year, month), or nil if none exists or the
// file is unreadable. Loads go through a small cache; the entry with the
// oldest load time is evicted when the cache is full.
func (s *Store) Load(year int, month time.Month) *Archive {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := MonthKey(year, month)
	if entry, ok := s.cache[key]; ok {
		return entry.arch
	}

	arch := s.readFile(year, month)
	if arch == nil {
		return nil
	}

	if len(s.cache) >= cacheSize {
		var oldestKey string
		var oldest time.Time
		for k, e := range s.cache {
			if oldestKey == "" || e.loadedAt.Before(oldest) {
				oldestKey, oldest = k, e.loadedAt
			}
		}
		delete(s.cache, oldestKey)
	}
	s.cache[key] = cacheEntry{arch: arch, loadedAt: s.now()}
	return arch
}

// readFile reads the archive document from disk, bypassing the cache.
// Missing or unreadable files yield nil.
func (s *Store) readFile(year int, month time.Month) *Archive {
	data, err := os.ReadFile(s.path(year, month))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("reading archive %s: %v", FileName(year, month), err)
		}
		return nil
	}
	var arch Archive
	if err := json.Unmarshal(data, &arch); err != nil {
		log.Printf("parsing archive %s: %v", FileName(year, month), err)
		return nil
	}
	return &arch
}

// writeFile writes the document via a temp file + os.Rename, removing the
// temp file on any failure.
func (s *Store) writeFile(year int, month time.Month, arch *Archive) (err error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}

	data, err := json.MarshalIndent(arch, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "archive-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path(year, month))
}

// mergeSessions appends the src sessions whose ids are not already present in
// dst, preserving order of arrival.
func mergeSessions(dst, src []session.Session) []session.Session {
	seen := make(map[string]struct{}, len(dst))
	for _, s := range dst {
		seen[s.ID] = struct{}{}
	}
	for _, s := range src {
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		dst = append(dst, s)
	}
	return dst
}
