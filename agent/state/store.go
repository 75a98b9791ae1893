package state

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	ErrStateNotFound  = errors.New("session state not found")
	ErrNilSession     = errors.New("session is nil")
	ErrInvalidSession = errors.New("session id is empty")
)

const defaultStoreTTL = 2 * time.Hour

// Store is the session registry used by the orchestrator.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, sessionID string) error
}

// StoreOption customizes MemoryStore.
type StoreOption func(*MemoryStore)

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *MemoryStore) {
		s.ttl = ttl
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

type storedSession struct {
	session  *Session
	lastSeen time.Time
}

// MemoryStore keeps live sessions in process. Conversations hold tool
// bindings and cannot leave the process, so there is no remote backend.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]storedSession
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	store := &MemoryStore{
		sessions: make(map[string]storedSession),
		ttl:      defaultStoreTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (*Session, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return nil, ErrInvalidSession
	}

	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || s.expired(entry) {
		return nil, ErrStateNotFound
	}
	return entry.session, nil
}

func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	if sess == nil {
		return ErrNilSession
	}
	if strings.TrimSpace(sess.ID) == "" {
		return ErrInvalidSession
	}
	s.mu.Lock()
	s.sessions[sess.ID] = storedSession{session: sess, lastSeen: s.now()}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return ErrInvalidSession
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops sessions not saved within the TTL and returns them.
func (s *MemoryStore) Sweep() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dropped []*Session
	for id, entry := range s.sessions {
		if s.expired(entry) {
			delete(s.sessions, id)
			dropped = append(dropped, entry.session)
		}
	}
	return dropped
}

func (s *MemoryStore) expired(entry storedSession) bool {
	if s.ttl <= 0 {
		return false
	}
	return s.now().Sub(entry.lastSeen) > s.ttl
}
