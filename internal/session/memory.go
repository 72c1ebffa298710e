package session

import (
	"sync"
	"time"
)

// MemoryStore implements Store with an in-process map. State is lost on
// restart; use the SQLite store when webhook redelivery across restarts
// matters.
type MemoryStore struct {
	*callLocks

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		callLocks: newCallLocks(),
		sessions:  make(map[string]*Session),
	}
}

func (m *MemoryStore) GetOrCreate(callID string, lookup LookupFunc) (*Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[callID]; ok {
		return s.Clone(), false, nil
	}

	p, err := lookup()
	if err != nil {
		return nil, false, err
	}

	now := time.Now()
	s := &Session{
		CallID:    callID,
		Profile:   p,
		State:     StateActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.sessions[callID] = s
	return s.Clone(), true, nil
}

func (m *MemoryStore) Get(callID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[callID]
	if !ok {
		return nil, ErrUnknownSession
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Append(callID string, turns ...Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[callID]
	if !ok {
		return ErrUnknownSession
	}
	s.Turns = append(s.Turns, turns...)
	s.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) ReplaceTurns(callID string, turns []Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[callID]
	if !ok {
		return ErrUnknownSession
	}
	s.Turns = append([]Turn(nil), turns...)
	s.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) Close(callID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[callID]; ok {
		s.State = StateClosed
		s.UpdatedAt = time.Now()
	}
	return nil
}

func (m *MemoryStore) ResetAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions = make(map[string]*Session)
	return nil
}

func (m *MemoryStore) PurgeClosed(keep time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-keep)
	n := 0
	for id, s := range m.sessions {
		if s.State == StateClosed && s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Shutdown() error { return nil }
