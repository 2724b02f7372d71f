// Package session implements the server-side session records behind the
// authentication gate. Callers only ever see "optional principal id"; the
// storage medium (Redis, in-process) never leaks past this package.
package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:%s"

// Store records active sessions. A session that is absent (expired or
// revoked) yields ok=false from UserID.
type Store interface {
	Create(ctx context.Context, userID uint, ttl time.Duration) (string, error)
	UserID(ctx context.Context, sid string) (uint, bool, error)
	Revoke(ctx context.Context, sid string) error
}

// NewStore returns a Redis-backed store, or an in-process fallback when no
// Redis client is available. The fallback keeps development and tests alive
// but does not survive restarts.
func NewStore(client *redis.Client) Store {
	if client == nil {
		return NewMemoryStore()
	}
	return &redisStore{client: client}
}

type redisStore struct {
	client *redis.Client
}

func (s *redisStore) Create(ctx context.Context, userID uint, ttl time.Duration) (string, error) {
	sid := uuid.NewString()
	key := fmt.Sprintf(keyPrefix, sid)
	if err := s.client.Set(ctx, key, strconv.FormatUint(uint64(userID), 10), ttl).Err(); err != nil {
		return "", err
	}
	return sid, nil
}

func (s *redisStore) UserID(ctx context.Context, sid string) (uint, bool, error) {
	val, err := s.client.Get(ctx, fmt.Sprintf(keyPrefix, sid)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, false, err
	}
	return uint(id), true, nil
}

func (s *redisStore) Revoke(ctx context.Context, sid string) error {
	return s.client.Del(ctx, fmt.Sprintf(keyPrefix, sid)).Err()
}

type memoryEntry struct {
	userID    uint
	expiresAt time.Time
}

// MemoryStore is the in-process fallback Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Create(_ context.Context, userID uint, ttl time.Duration) (string, error) {
	sid := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sid] = memoryEntry{userID: userID, expiresAt: time.Now().Add(ttl)}
	return sid, nil
}

func (s *MemoryStore) UserID(_ context.Context, sid string) (uint, bool, error) {
	s.mu.RLock()
	entry, ok := s.sessions[sid]
	s.mu.RUnlock()
	if !ok {
		return 0, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, sid)
		s.mu.Unlock()
		return 0, false, nil
	}
	return entry.userID, true, nil
}

func (s *MemoryStore) Revoke(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sid)
	return nil
}
