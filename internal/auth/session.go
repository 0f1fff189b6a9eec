package auth

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrSessionNotFound is returned by a SessionStore for unknown, expired or
// deleted sessions.
var ErrSessionNotFound = errors.New("auth: session not found")

// SessionStore maps opaque session ids to user ids.
//
// Implementations must make Delete idempotent: deleting an unknown session is
// not an error, so logout always succeeds.
type SessionStore interface {
	Save(ctx context.Context, sessionID, userID string, ttl time.Duration) error
	Lookup(ctx context.Context, sessionID string) (userID string, err error)
	Delete(ctx context.Context, sessionID string) error
}

// defaultMemorySessions bounds the in-memory store. The least recently used
// session is evicted once it is full.
const defaultMemorySessions = 10000

type memoryEntry struct {
	userID    string
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Sessions are lost on restart,
// which logs everybody out; use RedisStore when that matters.
type MemoryStore struct {
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

var _ SessionStore = (*MemoryStore)(nil)

// NewMemoryStore creates a store that holds at most size sessions, none of
// them for longer than maxTTL.
func NewMemoryStore(size int, maxTTL time.Duration) *MemoryStore {
	if size <= 0 {
		size = defaultMemorySessions
	}
	return &MemoryStore{
		lru: expirable.NewLRU[string, memoryEntry](size, nil, maxTTL),
		now: time.Now,
	}
}

func (m *MemoryStore) Save(_ context.Context, sessionID, userID string, ttl time.Duration) error {
	m.lru.Add(sessionID, memoryEntry{userID: userID, expiresAt: m.now().Add(ttl)})
	return nil
}

func (m *MemoryStore) Lookup(_ context.Context, sessionID string) (string, error) {
	entry, ok := m.lru.Get(sessionID)
	if !ok {
		return "", ErrSessionNotFound
	}
	// The LRU expires on its own TTL; a shorter per-session TTL is checked here.
	if !m.now().Before(entry.expiresAt) {
		m.lru.Remove(sessionID)
		return "", ErrSessionNotFound
	}
	return entry.userID, nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.lru.Remove(sessionID)
	return nil
}

// Len reports the number of live sessions.
func (m *MemoryStore) Len() int {
	return m.lru.Len()
}
