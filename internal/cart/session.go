package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionLine is what an anonymous cart keeps per packet. Snapshots are
// rebuilt from the catalog on every load.
type SessionLine struct {
	PacketID uuid.UUID `json:"packet_id"`
	Quantity int       `json:"quantity"`
}

// SessionStore persists anonymous carts.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) ([]SessionLine, error)
	Save(ctx context.Context, sessionID string, lines []SessionLine) error
	Delete(ctx context.Context, sessionID string) error
}

type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Touch(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(sessionID string) string
}

// RedisSessionStore keeps session carts as JSON under the cart key with a
// sliding TTL.
type RedisSessionStore struct {
	kv    kvStore
	ttl   time.Duration
	isNil func(error) bool
}

// NewRedisSessionStore builds the store. isNil recognises the client's
// missing-key error.
func NewRedisSessionStore(kv kvStore, ttl time.Duration, isNil func(error) bool) (*RedisSessionStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if isNil == nil {
		return nil, fmt.Errorf("nil-error matcher required")
	}
	return &RedisSessionStore{kv: kv, ttl: ttl, isNil: isNil}, nil
}

func (s *RedisSessionStore) Load(ctx context.Context, sessionID string) ([]SessionLine, error) {
	key := s.kv.CartKey(sessionID)
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if s.isNil(err) {
			return nil, nil
		}
		return nil, err
	}
	var lines []SessionLine
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, fmt.Errorf("decode session cart: %w", err)
	}
	if s.ttl > 0 {
		if err := s.kv.Touch(ctx, key, s.ttl); err != nil {
			return nil, err
		}
	}
	return lines, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, sessionID string, lines []SessionLine) error {
	if len(lines) == 0 {
		return s.Delete(ctx, sessionID)
	}
	payload, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, s.kv.CartKey(sessionID), string(payload), s.ttl)
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.kv.Del(ctx, s.kv.CartKey(sessionID))
}
