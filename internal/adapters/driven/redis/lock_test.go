package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/brochurebot/internal/core/domain"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

const ingestLock = "ingest:t_0123456789abcdef0123456789abcdef"

func TestLock_OwnerIDUnique(t *testing.T) {
	client, _ := setupTestRedis(t)
	a, b := NewLock(client), NewLock(client)
	if a.OwnerID() == "" || a.OwnerID() == b.OwnerID() {
		t.Errorf("owner ids not unique: %q %q", a.OwnerID(), b.OwnerID())
	}
}

func TestLock_AcquireExclusive(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	first, second := NewLock(client), NewLock(client)

	ok, err := first.Acquire(ctx, ingestLock, time.Minute)
	if err != nil || !ok {
		t.Fatalf("first Acquire() = %v, %v", ok, err)
	}
	if got, _ := mr.Get(lockPrefix + ingestLock); got != first.OwnerID() {
		t.Errorf("stored owner = %q, want %q", got, first.OwnerID())
	}

	ok, err = second.Acquire(ctx, ingestLock, time.Minute)
	if err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}
	if ok {
		t.Error("second instance acquired a held lock")
	}

	ok, _ = first.Acquire(ctx, ingestLock, time.Minute)
	if ok {
		t.Error("lock is not reentrant")
	}
}

func TestLock_AcquireValidation(t *testing.T) {
	client, _ := setupTestRedis(t)
	l := NewLock(client)

	if _, err := l.Acquire(context.Background(), "", time.Minute); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("empty name error = %v", err)
	}
	if _, err := l.Acquire(context.Background(), ingestLock, 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("zero ttl error = %v", err)
	}
}

func TestLock_ExpiresAfterTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	first, second := NewLock(client), NewLock(client)

	_, _ = first.Acquire(ctx, ingestLock, time.Second)
	mr.FastForward(2 * time.Second)

	ok, err := second.Acquire(ctx, ingestLock, time.Minute)
	if err != nil || !ok {
		t.Errorf("Acquire() after expiry = %v, %v", ok, err)
	}
}

func TestLock_Release(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	l := NewLock(client)

	_, _ = l.Acquire(ctx, ingestLock, time.Minute)
	if err := l.Release(ctx, ingestLock); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if mr.Exists(lockPrefix + ingestLock) {
		t.Error("lock key still present")
	}

	if err := l.Release(ctx, ingestLock); err != nil {
		t.Errorf("Release() of free lock error = %v", err)
	}
}

func TestLock_ReleaseByOtherOwnerIsNoop(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	owner, other := NewLock(client), NewLock(client)

	_, _ = owner.Acquire(ctx, ingestLock, time.Minute)
	if err := other.Release(ctx, ingestLock); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if !mr.Exists(lockPrefix + ingestLock) {
		t.Error("lock released by a non-owner")
	}
}

func TestLock_Extend(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	owner, other := NewLock(client), NewLock(client)

	_, _ = owner.Acquire(ctx, ingestLock, 10*time.Second)
	if err := owner.Extend(ctx, ingestLock, time.Minute); err != nil {
		t.Fatalf("Extend() error = %v", err)
	}
	if ttl := mr.TTL(lockPrefix + ingestLock); ttl <= 10*time.Second {
		t.Errorf("TTL = %v, want > 10s", ttl)
	}

	if err := other.Extend(ctx, ingestLock, time.Minute); !errors.Is(err, domain.ErrLockHeld) {
		t.Errorf("Extend() by non-owner error = %v, want ErrLockHeld", err)
	}
}

func TestLock_Ping(t *testing.T) {
	client, _ := setupTestRedis(t)
	if err := NewLock(client).Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
