package service

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryNegativeLookupCacheStoreGetSetInvalidate(t *testing.T) {
	store := NewInMemoryNegativeLookupCacheStore()
	ctx := context.Background()

	if err := store.Set(ctx, unknownRefreshTokenNamespace, "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d", time.Minute); err != nil {
		t.Fatalf("set negative cache: %v", err)
	}
	ok, err := store.Get(ctx, unknownRefreshTokenNamespace, "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")
	if err != nil {
		t.Fatalf("get negative cache: %v", err)
	}
	if !ok {
		t.Fatal("expected negative cache hit")
	}

	if err := store.InvalidateNamespace(ctx, unknownRefreshTokenNamespace); err != nil {
		t.Fatalf("invalidate negative cache namespace: %v", err)
	}
	ok, err = store.Get(ctx, unknownRefreshTokenNamespace, "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")
	if err != nil {
		t.Fatalf("get cache after invalidate: %v", err)
	}
	if ok {
		t.Fatal("expected negative cache miss after invalidate")
	}
}

func TestInMemoryNegativeLookupCacheStoreExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := newInMemoryNegativeLookupCacheStoreWithClock(clock.Now)
	ctx := context.Background()

	if err := store.Set(ctx, unknownRefreshTokenNamespace, "77", 30*time.Second); err != nil {
		t.Fatalf("set negative cache: %v", err)
	}
	clock.Advance(29 * time.Second)
	if ok, _ := store.Get(ctx, unknownRefreshTokenNamespace, "77"); !ok {
		t.Fatal("expected entry to live until its ttl")
	}
	clock.Advance(time.Second)
	ok, err := store.Get(ctx, unknownRefreshTokenNamespace, "77")
	if err != nil {
		t.Fatalf("get negative cache: %v", err)
	}
	if ok {
		t.Fatal("expected negative cache entry to expire")
	}
}

func TestInMemoryNegativeLookupCacheStoreIgnoresNonPositiveTTL(t *testing.T) {
	store := NewInMemoryNegativeLookupCacheStore()
	ctx := context.Background()
	if err := store.Set(ctx, unknownRefreshTokenNamespace, "k", 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ok, _ := store.Get(ctx, unknownRefreshTokenNamespace, "k"); ok {
		t.Fatal("zero ttl must not cache")
	}
}

func TestNoopNegativeLookupCacheStoreAlwaysMisses(t *testing.T) {
	store := NewNoopNegativeLookupCacheStore()
	ctx := context.Background()
	if err := store.Set(ctx, unknownRefreshTokenNamespace, "404", time.Minute); err != nil {
		t.Fatalf("set noop negative cache: %v", err)
	}
	ok, err := store.Get(ctx, unknownRefreshTokenNamespace, "404")
	if err != nil {
		t.Fatalf("get noop negative cache: %v", err)
	}
	if ok {
		t.Fatal("expected noop negative cache miss")
	}
	if err := store.InvalidateNamespace(ctx, unknownRefreshTokenNamespace); err != nil {
		t.Fatalf("invalidate noop negative cache namespace: %v", err)
	}
}
