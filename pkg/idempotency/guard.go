// Package idempotency claims one-shot keys in Redis so a side effect such as
// a card charge runs at most once per key within the TTL.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/greenrow/seedshop-backend/pkg/redis"
)

// Guard claims keys with SETNX. Keys follow ss:idempotency:<scope>:<id>.
type Guard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewGuard(store redis.IdempotencyStore, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, ttl: ttl}, nil
}

// Claim returns true when the caller now owns the key, false when someone
// else claimed it first.
func (g *Guard) Claim(ctx context.Context, scope, id string) (bool, error) {
	key, err := g.key(scope, id)
	if err != nil {
		return false, err
	}
	return g.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl)
}

// Release frees a claimed key so a later attempt may run.
func (g *Guard) Release(ctx context.Context, scope, id string) error {
	key, err := g.key(scope, id)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *Guard) key(scope, id string) (string, error) {
	scope = strings.TrimSpace(scope)
	id = strings.TrimSpace(id)
	if scope == "" {
		return "", errors.New("scope is required")
	}
	if id == "" {
		return "", errors.New("id is required")
	}
	return g.store.IdempotencyKey(scope, id), nil
}

// Scope builds a nested scope such as "payment:square".
func Scope(parts ...string) string {
	return strings.Join(parts, ":")
}
