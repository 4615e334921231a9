package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultSessionTTL = 4 * time.Hour

// RedisStore persists sessions as one Redis hash per session. Writes are
// staged in-process and flushed by Commit in a single pipeline; reads check
// the staged buffer first so a request sees its own pending writes. No
// WATCH/locking: concurrent commits to the same session are last-write-wins,
// matching the store contract.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration

	mu     sync.Mutex
	staged map[string]map[string][]byte
}

type RedisOption func(*RedisStore)

// WithTTL overrides the session expiry applied on every commit.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		ttl:    defaultSessionTTL,
		staged: make(map[string]map[string][]byte),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sessionKey(sessionID string) string {
	return "marlin:session:" + sessionID
}

func (s *RedisStore) Get(ctx context.Context, sessionID, key string) ([]byte, bool, error) {
	s.mu.Lock()
	if pending, ok := s.staged[sessionID]; ok {
		if v, ok := pending[key]; ok {
			s.mu.Unlock()
			return clone(v), true, nil
		}
	}
	s.mu.Unlock()

	v, err := s.client.HGet(ctx, sessionKey(sessionID), key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("session get %q: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(_ context.Context, sessionID, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, ok := s.staged[sessionID]
	if !ok {
		pending = make(map[string][]byte)
		s.staged[sessionID] = pending
	}
	pending[key] = clone(value)
	return nil
}

func (s *RedisStore) Commit(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	pending, ok := s.staged[sessionID]
	if ok {
		delete(s.staged, sessionID)
	}
	s.mu.Unlock()
	if !ok || len(pending) == 0 {
		return nil
	}

	fields := make(map[string]any, len(pending))
	for k, v := range pending {
		fields[k] = v
	}

	key := sessionKey(sessionID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session commit: %w", err)
	}
	return nil
}

func (s *RedisStore) Destroy(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.staged, sessionID)
	s.mu.Unlock()

	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}
	return nil
}
