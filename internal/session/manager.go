package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"pdfrag/internal/domain"
)

// Manager keeps one Session per user for the lifetime of the process.
type Manager struct {
	pipeline Pipeline
	sessions map[string]*Session
	mtx      sync.RWMutex
}

func NewManager(pipeline Pipeline) *Manager {
	return &Manager{
		pipeline: pipeline,
		sessions: map[string]*Session{},
	}
}

// Create starts a new empty session with a random ID.
func (m *Manager) Create() *Session {
	s := New(uuid.NewString(), m.pipeline)

	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.sessions[s.ID()] = s
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return s, nil
}

// GetOrCreate returns the session for id, or a new one when id is empty
// or unknown. created reports whether a new session was made.
func (m *Manager) GetOrCreate(id string) (s *Session, created bool) {
	if len(strings.TrimSpace(id)) > 0 {
		if s, err := m.Get(id); err == nil {
			return s, false
		}
	}
	return m.Create(), true
}

// List returns sessions oldest first.
func (m *Manager) List() []*Session {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created().Equal(out[j].Created()) {
			return out[i].ID() < out[j].ID()
		}
		return out[i].Created().Before(out[j].Created())
	})
	return out
}

// Delete ends a session and releases its index.
func (m *Manager) Delete(id string) error {
	m.mtx.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mtx.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return s.Close()
}

// MarkAllStale flags every ready session.
func (m *Manager) MarkAllStale() {
	for _, s := range m.List() {
		s.MarkStale()
	}
}

// Close ends every session.
func (m *Manager) Close() error {
	m.mtx.Lock()
	sessions := m.sessions
	m.sessions = map[string]*Session{}
	m.mtx.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
