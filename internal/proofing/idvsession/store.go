package idvsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound reports a workflow session that does not exist.
var ErrNotFound = errors.New("workflow session not found")

// Store persists workflow sessions between requests.
type Store interface {
	Load(ctx context.Context, userID string) (*Session, error)
	Save(ctx context.Context, session *Session) error
}

// RedisStore keeps workflow sessions as JSON blobs with a sliding TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func sessionKey(userID string) string {
	return "idv:session:" + userID
}

func (s *RedisStore) Load(ctx context.Context, userID string) (*Session, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load workflow session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("decode workflow session: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode workflow session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(session.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save workflow session: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store for tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]*Session{}}
}

func (s *MemoryStore) Load(_ context.Context, userID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *MemoryStore) Save(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.UserID] = session
	return nil
}
