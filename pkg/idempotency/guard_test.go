package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	setNXResult bool
	setNXError  error
	lastKey     string
	lastTTL     time.Duration
	lastDeleted string
}

func (f *fakeStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	f.lastKey = key
	f.lastTTL = ttl
	return f.setNXResult, f.setNXError
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "ss:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	if len(keys) > 0 {
		f.lastDeleted = keys[0]
	}
	return nil
}

func TestClaimFirstTime(t *testing.T) {
	store := &fakeStore{setNXResult: true}
	guard, err := NewGuard(store, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	claimed, err := guard.Claim(context.Background(), Scope("payment", "order"), "abc")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !claimed {
		t.Fatalf("expected first claim to succeed")
	}
	if store.lastKey != "ss:idempotency:payment:order:abc" {
		t.Fatalf("unexpected key: %q", store.lastKey)
	}
	if store.lastTTL != 24*time.Hour {
		t.Fatalf("unexpected ttl: %v", store.lastTTL)
	}
}

func TestClaimAlreadyHeld(t *testing.T) {
	guard, err := NewGuard(&fakeStore{setNXResult: false}, time.Hour)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	claimed, err := guard.Claim(context.Background(), "payment", "abc")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed {
		t.Fatalf("expected claim to be refused")
	}
}

func TestClaimErrors(t *testing.T) {
	guard, err := NewGuard(&fakeStore{setNXError: errors.New("boom")}, time.Hour)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	if _, err := guard.Claim(context.Background(), "payment", "abc"); err == nil {
		t.Fatal("expected store error")
	}
	if _, err := guard.Claim(context.Background(), "", "abc"); err == nil {
		t.Fatal("expected scope error")
	}
	if _, err := guard.Claim(context.Background(), "payment", " "); err == nil {
		t.Fatal("expected id error")
	}
}

func TestRelease(t *testing.T) {
	store := &fakeStore{}
	guard, err := NewGuard(store, time.Hour)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	if err := guard.Release(context.Background(), "payment", "abc"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if store.lastDeleted != "ss:idempotency:payment:abc" {
		t.Fatalf("unexpected deleted key %q", store.lastDeleted)
	}
}

func TestNewGuardValidation(t *testing.T) {
	if _, err := NewGuard(nil, time.Hour); err == nil {
		t.Fatal("expected nil store error")
	}
	if _, err := NewGuard(&fakeStore{}, -time.Second); err == nil {
		t.Fatal("expected negative ttl error")
	}
}
