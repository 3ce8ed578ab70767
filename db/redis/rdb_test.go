package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/heimaolst/shortlink/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewRedisClient(context.Background(), "redis://"+mr.Addr(), zap.NewNop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return NewCache(rdb), mr
}

func TestCacheLink(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	if _, err := cache.GetLink(ctx, "abcd1234"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}

	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	want := model.CachedLink{ID: "id-1", OriginalURL: "https://example.com", IsActive: true, ExpiresAt: &expires}
	if err := cache.SetLink(ctx, "abcd1234", want); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := cache.GetLink(ctx, "abcd1234")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != want.ID || got.OriginalURL != want.OriginalURL || !got.IsActive || !got.ExpiresAt.Equal(expires) {
		t.Errorf("got %+v, want %+v", got, want)
	}

	if err := cache.DeleteLink(ctx, "abcd1234", "other123"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := cache.GetLink(ctx, "abcd1234"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestCacheLink_CorruptEntryIsMiss(t *testing.T) {
	cache, mr := newTestCache(t)
	mr.HSet(shortcodeHashKey, "broken12", "{not json")

	if _, err := cache.GetLink(context.Background(), "broken12"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	if mr.HGet(shortcodeHashKey, "broken12") != "" {
		t.Error("corrupt entry should be removed")
	}
}

func TestCacheAccount(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	principal := model.Principal{ID: "acc-1", Username: "alice", Email: "alice@example.com"}
	if err := cache.SetAccount(ctx, principal); err != nil {
		t.Fatal(err)
	}
	got, err := cache.GetAccount(ctx, "acc-1")
	if err != nil || *got != principal {
		t.Fatalf("get account: %v %+v", err, got)
	}
	if ttl := mr.TTL(accountKeyPrefix + "acc-1"); ttl != accountTTL {
		t.Errorf("ttl = %v", ttl)
	}

	mr.FastForward(accountTTL + time.Second)
	if _, err := cache.GetAccount(ctx, "acc-1"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected expiry, got %v", err)
	}

	cache.SetAccount(ctx, principal)
	if err := cache.DeleteAccount(ctx, "acc-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.GetAccount(ctx, "acc-1"); !errors.Is(err, redis.Nil) {
		t.Errorf("expected miss after delete, got %v", err)
	}
}

func TestNewRedisClient_BadURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), "not a url", zap.NewNop()); err == nil {
		t.Fatal("expected parse error")
	}
}
