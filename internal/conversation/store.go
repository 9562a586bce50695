// Package conversation tracks per-client conversation identity across
// stateless chat requests: which upstream thread a conversation maps to,
// how many turns it has served, and which sessions to evict when the
// tracked set outgrows its capacity.
package conversation

import (
	"container/list"
	"time"
)

// Session is the per-conversation state kept between requests.
type Session struct {
	// ThreadID scopes a logical thread on the upstream side. It is
	// regenerated when the session rotates.
	ThreadID string

	// BackendID is learned from an upstream response and stitches
	// follow-up turns to the same server-side thread. Empty until learned.
	BackendID string

	// TurnCount counts turns since the session was created or last rotated.
	TurnCount int

	// LastUsed orders sessions for least-recently-used eviction.
	LastUsed time.Time
}

type storeEntry struct {
	id      string
	session *Session
}

// Store is a bounded-capacity, recency-ordered map from conversation id to
// session state. All operations are O(1) amortized and perform no I/O.
// The Store itself is not safe for concurrent use; the Manager serializes
// access behind its lock.
type Store struct {
	entries map[string]*list.Element
	order   *list.List // front = least recently used
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get returns the session for id, if present.
func (s *Store) Get(id string) (*Session, bool) {
	elem, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return elem.Value.(*storeEntry).session, true
}

// Put inserts or replaces the session for id and marks it most recently used.
func (s *Store) Put(id string, session *Session) {
	if elem, ok := s.entries[id]; ok {
		elem.Value.(*storeEntry).session = session
		s.order.MoveToBack(elem)
		return
	}
	s.entries[id] = s.order.PushBack(&storeEntry{id: id, session: session})
}

// Touch marks id as most recently used. Unknown ids are ignored.
func (s *Store) Touch(id string) {
	if elem, ok := s.entries[id]; ok {
		s.order.MoveToBack(elem)
	}
}

// EvictOldest removes the least-recently-used session and returns its id.
func (s *Store) EvictOldest() (string, bool) {
	front := s.order.Front()
	if front == nil {
		return "", false
	}
	entry := front.Value.(*storeEntry)
	s.order.Remove(front)
	delete(s.entries, entry.id)
	return entry.id, true
}

// Remove deletes the session for id, reporting whether it was present.
func (s *Store) Remove(id string) bool {
	elem, ok := s.entries[id]
	if !ok {
		return false
	}
	s.order.Remove(elem)
	delete(s.entries, id)
	return true
}

// Len returns the number of tracked sessions.
func (s *Store) Len() int {
	return len(s.entries)
}

// IDs returns the tracked conversation ids, least recently used first.
func (s *Store) IDs() []string {
	ids := make([]string, 0, s.order.Len())
	for elem := s.order.Front(); elem != nil; elem = elem.Next() {
		ids = append(ids, elem.Value.(*storeEntry).id)
	}
	return ids
}

// Snapshot returns a copy of every session keyed by conversation id.
func (s *Store) Snapshot() map[string]Session {
	out := make(map[string]Session, len(s.entries))
	for elem := s.order.Front(); elem != nil; elem = elem.Next() {
		entry := elem.Value.(*storeEntry)
		out[entry.id] = *entry.session
	}
	return out
}
