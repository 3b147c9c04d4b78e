package store

import (
	"sync"
	"time"

	"github.com/tikgrab/tikgrab/internal/model"
)

// Sessions caches extraction results between the metadata lookup and a later
// download request. Sessions are write-once and immutable; the cache is
// bounded by a max entry count (oldest evicted first) and a TTL checked
// lazily on read, so long uptimes cannot grow it without limit.
type Sessions struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	entries    map[string]model.Session
	order      []string // insertion order, for oldest-first eviction
}

// NewSessions creates a session cache. maxEntries <= 0 means unbounded and
// ttl <= 0 disables expiry.
func NewSessions(maxEntries int, ttl time.Duration) *Sessions {
	return &Sessions{
		maxEntries: maxEntries,
		ttl:        ttl,
		entries:    make(map[string]model.Session),
	}
}

// Put stores a session under its id, evicting the oldest entries when the
// cache is full.
func (s *Sessions) Put(sess model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[sess.ID]; !exists {
		s.order = append(s.order, sess.ID)
	}
	s.entries[sess.ID] = sess

	for s.maxEntries > 0 && len(s.entries) > s.maxEntries {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.entries, oldest)
	}
}

// Get returns a copy of the session, if present and not expired.
func (s *Sessions) Get(id string) (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.entries[id]
	if !ok {
		return model.Session{}, false
	}
	if s.ttl > 0 && time.Since(sess.CreatedAt) > s.ttl {
		delete(s.entries, id)
		return model.Session{}, false
	}
	return sess, true
}

// Len returns the number of cached sessions, counting expired entries that
// have not been read yet.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
