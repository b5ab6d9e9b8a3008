package session

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"
)

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore keeps sessions in process; a ttl of zero never expires them
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()

	entry, ok := m.entries[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	session := copySession(entry.session)
	return &session, nil
}

func (m *MemoryStore) Save(ctx context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return errors.New("session id must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()

	session.UpdatedAt = m.now()
	entry := memoryEntry{session: copySession(*session)}
	if m.ttl > 0 {
		entry.expiresAt = session.UpdatedAt.Add(m.ttl)
	}
	m.entries[session.ID] = entry
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoryEntry)
	return nil
}

// sweep drops expired entries; callers hold mu
func (m *MemoryStore) sweep() {
	if m.ttl <= 0 {
		return
	}
	now := m.now()
	for id, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			delete(m.entries, id)
		}
	}
}

// copySession detaches the stored value from caller owned slices and maps
func copySession(s Session) Session {
	if s.DisplayImage != nil {
		s.DisplayImage = append([]byte(nil), s.DisplayImage...)
	}
	if s.Metadata != nil {
		s.Metadata = maps.Clone(s.Metadata)
	}
	return s
}
