package session

import (
	"sync"

	"github.com/rs/zerolog"

	"voice-interrupt-filter/internal/events"
	"voice-interrupt-filter/internal/filter"
	"voice-interrupt-filter/internal/observability/logging"
)

// Manager tracks live sessions so the control API and ingest layer can
// reach them by ID. New sessions start from the manager's base filter
// configuration; each session owns its engine afterwards.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	publisher events.TranscriptPublisher
	baseCfg   filter.Config
	limits    Limits
	log       zerolog.Logger
}

// NewManager creates a session manager.
func NewManager(baseCfg filter.Config, publisher events.TranscriptPublisher, limits Limits) *Manager {
	return &Manager{
		sessions:  make(map[string]*Session),
		publisher: publisher,
		baseCfg:   baseCfg,
		limits:    limits,
		log:       logging.WithComponent("session-manager"),
	}
}

// BaseConfig returns a copy of the filter configuration new sessions get.
func (m *Manager) BaseConfig() filter.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := m.baseCfg
	cfg.IgnoredPhrases = append([]string(nil), m.baseCfg.IgnoredPhrases...)
	cfg.InterruptPhrases = append([]string(nil), m.baseCfg.InterruptPhrases...)
	return cfg
}

// Create starts a new session for an interaction.
func (m *Manager) Create(interactionID, tenantID string) *Session {
	s := New(interactionID, tenantID, m.BaseConfig(), m.publisher, m.limits)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	count := len(m.sessions)
	m.mu.Unlock()

	m.log.Info().
		Str("sessionId", s.ID()).
		Str("interactionId", interactionID).
		Int("activeSessions", count).
		Msg("Session created")
	return s
}

// Get returns a session by ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove closes a session and forgets it.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return
	}
	if err := s.Close(); err != nil {
		m.log.Error().Err(err).Str("sessionId", id).Msg("Error closing session")
	}
	m.log.Info().Str("sessionId", id).Int("activeSessions", count).Msg("Session removed")
}

// List returns all live sessions.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// CloseAll shuts down every session, used on service exit.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		if err := s.Close(); err != nil {
			m.log.Error().Err(err).Str("sessionId", s.ID()).Msg("Error closing session")
		}
	}
}
