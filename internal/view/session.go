package view

import (
	"sync"
	"time"
)

// MemorySessionStore is an in-memory SessionMarkerStore for a single
// viewing session.
type MemorySessionStore struct {
	mu      sync.Mutex
	markers map[string]struct{}
}

var _ SessionMarkerStore = (*MemorySessionStore)(nil)

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{markers: make(map[string]struct{})}
}

func (s *MemorySessionStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.markers[key]
	return ok
}

func (s *MemorySessionStore) Set(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[key] = struct{}{}
}

// defaultSessionLimit caps the registry so clients that never echo
// cookies (curl, crawlers) cannot grow it without bound.
const defaultSessionLimit = 10000

type sessionEntry struct {
	store    *MemorySessionStore
	lastSeen time.Time
}

// SessionRegistry hands out one MemorySessionStore per browsing session
// id. Sessions are created on first use; when the registry is full the
// least recently used session is evicted. Evicting a live session only
// means its next view counts again.
type SessionRegistry struct {
	mu       sync.Mutex
	limit    int
	sessions map[string]*sessionEntry
}

func NewSessionRegistry() *SessionRegistry {
	return newSessionRegistry(defaultSessionLimit)
}

func newSessionRegistry(limit int) *SessionRegistry {
	return &SessionRegistry{
		limit:    limit,
		sessions: make(map[string]*sessionEntry),
	}
}

func (r *SessionRegistry) Session(id string) *MemorySessionStore {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.sessions[id]; ok {
		e.lastSeen = time.Now()
		return e.store
	}

	if len(r.sessions) >= r.limit {
		r.evictOldest()
	}
	e := &sessionEntry{store: NewMemorySessionStore(), lastSeen: time.Now()}
	r.sessions[id] = e
	return e.store
}

// Drop removes a session immediately, for callers that observe the
// session ending.
func (r *SessionRegistry) Drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// evictOldest removes the least recently used session. Caller holds the
// lock.
func (r *SessionRegistry) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, e := range r.sessions {
		if oldestID == "" || e.lastSeen.Before(oldest) {
			oldestID = id
			oldest = e.lastSeen
		}
	}
	delete(r.sessions, oldestID)
}
