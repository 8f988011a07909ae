package auth

import (
	"context"
	"sync"
	"time"
)

// MemorySessionStore keeps sessions and the access blacklist in process
// memory. It backs tests and single-process development runs; deployments
// use the Postgres or Redis store.
type MemorySessionStore struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	blacklist map[string]time.Time
	now       func() time.Time
}

// NewMemorySessionStore returns an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions:  make(map[string]*Session),
		blacklist: make(map[string]time.Time),
		now:       time.Now,
	}
}

// WithNow overrides the store's time source. Intended for tests.
func (m *MemorySessionStore) WithNow(now func() time.Time) *MemorySessionStore {
	if now != nil {
		m.now = now
	}
	return m
}

func (m *MemorySessionStore) CreateSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MemorySessionStore) FindSession(_ context.Context, tokenID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[tokenID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemorySessionStore) RevokeSession(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[tokenID]
	if !ok || s.State != SessionActive {
		return false, nil
	}
	s.State = SessionRevoked
	return true, nil
}

func (m *MemorySessionStore) RevokeSubjectSessions(_ context.Context, subjectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.SubjectID == subjectID {
			s.State = SessionRevoked
		}
	}
	return nil
}

func (m *MemorySessionStore) BlacklistAccess(_ context.Context, tokenID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blacklist[tokenID] = expiresAt
	return nil
}

func (m *MemorySessionStore) AccessBlacklisted(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiresAt, ok := m.blacklist[tokenID]
	if !ok {
		return false, nil
	}
	if m.now().After(expiresAt) {
		delete(m.blacklist, tokenID)
		return false, nil
	}
	return true, nil
}
