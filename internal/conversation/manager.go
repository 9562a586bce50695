package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/router-for-me/PerplexityProxyAPI/internal/constant"
	"github.com/router-for-me/PerplexityProxyAPI/internal/util"
)

// Resolution is the outcome of resolving a conversation id for one turn.
// Its fields feed the upstream request builder: ThreadID scopes the
// thread, BackendID (when present) stitches to the server-side thread,
// and IsNew selects the fresh-vs-followup query source.
type Resolution struct {
	ThreadID  string
	BackendID string
	IsNew     bool
	TurnCount int
}

// SessionSummary is the read-only per-session view exposed by Stats.
type SessionSummary struct {
	TurnCount    int    `json:"turn_count"`
	ThreadID     string `json:"thread_uuid"`
	HasBackendID bool   `json:"has_backend_uuid"`
}

// Stats is a point-in-time snapshot of the manager's state.
type Stats struct {
	ActiveConversations     int                       `json:"active_conversations"`
	MaxConversations        int                       `json:"max_conversations"`
	MaxTurnsPerConversation int                       `json:"max_turns_per_conversation"`
	Conversations           map[string]SessionSummary `json:"conversations"`
}

// Manager implements the get-or-create / rotate / evict protocol over the
// session store. Every compound read-modify-write runs under a single
// mutex so concurrent requests for the same conversation id serialize;
// the lock is never held across I/O.
type Manager struct {
	mu          sync.Mutex
	store       *Store
	maxTurns    int
	maxSessions int
}

// NewManager creates a manager rotating threads after maxTurns turns and
// tracking at most maxSessions conversations. Non-positive limits fall
// back to 50 turns and 10 sessions.
func NewManager(maxTurns, maxSessions int) *Manager {
	if maxTurns <= 0 {
		maxTurns = 50
	}
	if maxSessions <= 0 {
		maxSessions = 10
	}
	return &Manager{
		store:       NewStore(),
		maxTurns:    maxTurns,
		maxSessions: maxSessions,
	}
}

// Resolve returns the thread identity for conversationID, creating,
// rotating, or evicting sessions as needed. An empty id resolves to the
// default conversation.
func (m *Manager) Resolve(conversationID string) Resolution {
	if conversationID == "" {
		conversationID = constant.DefaultConversationID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()

	if session, ok := m.store.Get(conversationID); ok {
		if session.TurnCount >= m.maxTurns {
			// Continuity reset: same store entry, fresh thread identity.
			// The rotated turn reports count 0; a brand-new session starts at 1.
			session.ThreadID = uuid.NewString()
			session.BackendID = ""
			session.TurnCount = 0
			session.LastUsed = now
			m.store.Touch(conversationID)
			log.Infof("conversation %q reached %d turns, rotating to thread %s",
				conversationID, m.maxTurns, util.TruncateID(session.ThreadID))
			return Resolution{ThreadID: session.ThreadID, IsNew: true, TurnCount: 0}
		}

		session.TurnCount++
		session.LastUsed = now
		m.store.Touch(conversationID)
		return Resolution{
			ThreadID:  session.ThreadID,
			BackendID: session.BackendID,
			IsNew:     false,
			TurnCount: session.TurnCount,
		}
	}

	for m.store.Len() >= m.maxSessions {
		if evicted, ok := m.store.EvictOldest(); ok {
			log.Debugf("evicted least recently used conversation %q", evicted)
		}
	}

	session := &Session{
		ThreadID:  uuid.NewString(),
		TurnCount: 1,
		LastUsed:  now,
	}
	m.store.Put(conversationID, session)
	log.Infof("created conversation %q with thread %s",
		conversationID, util.TruncateID(session.ThreadID))

	return Resolution{ThreadID: session.ThreadID, IsNew: true, TurnCount: 1}
}

// UpdateBackendID records the backend id learned from an upstream
// response. It is a silent no-op when the session was reset or evicted in
// the meantime; sessions are best-effort state, not a ledger.
func (m *Manager) UpdateBackendID(conversationID, backendID string) {
	if conversationID == "" {
		conversationID = constant.DefaultConversationID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.store.Get(conversationID); ok {
		session.BackendID = backendID
		log.Debugf("updated backend id for %q: %s", conversationID, util.TruncateID(backendID))
	}
}

// Reset removes the session for conversationID if present. Idempotent.
func (m *Manager) Reset(conversationID string) {
	if conversationID == "" {
		conversationID = constant.DefaultConversationID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store.Remove(conversationID) {
		log.Infof("reset conversation %q", conversationID)
	}
}

// ResetAll removes every tracked session and returns how many were removed.
func (m *Manager) ResetAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for _, id := range m.store.IDs() {
		if m.store.Remove(id) {
			removed++
		}
	}
	if removed > 0 {
		log.Infof("reset %d conversations", removed)
	}
	return removed
}

// ActiveCount returns the number of tracked sessions.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Len()
}

// Stats returns a read-only snapshot of every tracked session. The lock is
// held only for the copy.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	snapshot := m.store.Snapshot()
	m.mu.Unlock()

	summaries := make(map[string]SessionSummary, len(snapshot))
	for id, session := range snapshot {
		summaries[id] = SessionSummary{
			TurnCount:    session.TurnCount,
			ThreadID:     util.TruncateID(session.ThreadID),
			HasBackendID: session.BackendID != "",
		}
	}
	return Stats{
		ActiveConversations:     len(snapshot),
		MaxConversations:        m.maxSessions,
		MaxTurnsPerConversation: m.maxTurns,
		Conversations:           summaries,
	}
}
