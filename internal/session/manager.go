package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager keys sessions by player and evicts ones idle past the TTL. Evicting
// a session only drops the in-memory state machine; ledger idempotency still
// protects a spin that was in flight when its session went away.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	hooks    Hooks
	idleTTL  time.Duration
}

// NewManager creates a session manager. idleTTL <= 0 disables eviction.
func NewManager(hooks Hooks, idleTTL time.Duration) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		hooks:    hooks,
		idleTTL:  idleTTL,
	}
}

// Session returns the player's session, creating one with the given advisory
// spin counter if none exists. An existing session's counter is refreshed.
func (m *Manager) Session(playerID uuid.UUID, spinsRemaining int) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[playerID]; ok {
		s.SetSpinsRemaining(spinsRemaining)
		return s
	}

	s := New(playerID, spinsRemaining, m.hooks)
	m.sessions[playerID] = s
	return s
}

// Get returns the player's session without creating one.
func (m *Manager) Get(playerID uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[playerID]
	return s, ok
}

// Evict removes the player's session.
func (m *Manager) Evict(playerID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, playerID)
}

// Sweep drops sessions idle longer than the TTL and returns how many were
// evicted. In-flight sessions are never swept, and neither are sessions with
// awards still queued for reconciliation: recreating one from the stale
// player row would re-open entitlement the player already spent.
func (m *Manager) Sweep(now time.Time) int {
	if m.idleTTL <= 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, s := range m.sessions {
		if s.State() == StateSpinning || s.PendingAwards() > 0 {
			continue
		}
		if now.Sub(s.LastActive()) > m.idleTTL {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
