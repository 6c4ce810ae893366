package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quietmark/quietmark/pkg/types"
)

// Entry is an audit record together with the time it was received.
type Entry struct {
	Record    types.AuditRecord
	UpdatedAt time.Time
}

// Store is a thread-safe in-memory audit store holding the latest record per
// page URL. A background goroutine (Run) periodically evicts entries that
// have not been refreshed within the configured TTL.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Put stores or replaces the record for rec.PageURL.
func (s *Store) Put(rec types.AuditRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rec.PageURL] = &Entry{
		Record:    rec,
		UpdatedAt: s.now(),
	}
}

// Get returns the Entry for the given page URL and whether one was found.
// The entry may be stale if TTL has elapsed.
func (s *Store) Get(pageURL string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[pageURL]
	return e, ok
}

// List returns all entries whose UpdatedAt is within the TTL.
// Stale entries that have not yet been evicted are excluded.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.now().Add(-s.ttl)
	out := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		if e.UpdatedAt.After(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the total number of entries currently held, including stale ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// TTL returns the configured retention duration.
func (s *Store) TTL() time.Duration { return s.ttl }

// Evict removes entries whose UpdatedAt is older than now minus TTL.
// It returns the number of entries removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for page, e := range s.data {
		if !e.UpdatedAt.After(cutoff) {
			delete(s.data, page)
			removed++
		}
	}
	return removed
}

// Run starts the background TTL eviction loop. It ticks at half the TTL
// interval (minimum 1 second, maximum 1 minute) so entries are evicted
// promptly without busy-looping on long retentions. Run blocks until ctx is
// cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	if interval > time.Minute {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted stale audit records", "count", n)
			}
		}
	}
}
