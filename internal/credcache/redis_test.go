package credcache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"session-issuance-console/internal/security"
)

func newTestRedisStore(t *testing.T, keyByte byte) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	var k [32]byte
	for i := range k {
		k[i] = keyByte
	}
	return NewRedisStore(rdb, security.NewSealer(&k)), mr
}

func TestRedisStore_PutGet(t *testing.T) {
	t.Parallel()
	s, mr := newTestRedisStore(t, 7)
	ctx := context.Background()
	verifiedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	p := Pending{PhoneNumber: "+919876543210", Credential: "SESSIONSTR2", TwoFactorSecret: "pw123", VerifiedAt: verifiedAt}
	if err := s.Put(ctx, "h1", p, 10*time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}

	k := "issuance:pending:h1"
	if !mr.Exists(k) {
		t.Fatalf("expected key %q to exist", k)
	}
	if ttl := mr.TTL(k); ttl <= 0 {
		t.Fatalf("expected TTL to be set, got %v", ttl)
	}
	raw, err := mr.Get(k)
	if err != nil {
		t.Fatalf("miniredis Get: %v", err)
	}
	if strings.Contains(raw, "SESSIONSTR2") || strings.Contains(raw, "pw123") {
		t.Error("stored value contains plaintext secrets")
	}

	got, ok, err := s.Get(ctx, "h1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Credential != "SESSIONSTR2" || got.TwoFactorSecret != "pw123" {
		t.Errorf("Get = %+v, want credential and secret round-tripped", got)
	}
	if !got.VerifiedAt.Equal(verifiedAt) {
		t.Errorf("VerifiedAt = %v, want %v", got.VerifiedAt, verifiedAt)
	}
}

func TestRedisStore_Expiry(t *testing.T) {
	t.Parallel()
	s, mr := newTestRedisStore(t, 7)
	ctx := context.Background()

	if err := s.Put(ctx, "h1", Pending{Credential: "c"}, time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, ok, err := s.Get(ctx, "h1"); ok || err != nil {
		t.Errorf("Get after TTL: ok=%v err=%v, want false, nil", ok, err)
	}
}

func TestRedisStore_MissingAndDelete(t *testing.T) {
	t.Parallel()
	s, mr := newTestRedisStore(t, 7)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); ok || err != nil {
		t.Errorf("Get(missing): ok=%v err=%v, want false, nil", ok, err)
	}
	_ = s.Put(ctx, "h1", Pending{Credential: "c"}, time.Minute)
	if err := s.Delete(ctx, "h1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if mr.Exists("issuance:pending:h1") {
		t.Error("key still exists after Delete")
	}
}

func TestRedisStore_WrongKeyFails(t *testing.T) {
	t.Parallel()
	s, mr := newTestRedisStore(t, 7)
	ctx := context.Background()
	if err := s.Put(ctx, "h1", Pending{Credential: "c"}, time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	var other [32]byte
	reader := NewRedisStore(rdb, security.NewSealer(&other))
	if _, _, err := reader.Get(ctx, "h1"); err == nil {
		t.Error("Get with wrong seal key err = nil")
	}
}

func TestRedisStore_ContextCanceled(t *testing.T) {
	t.Parallel()
	s, _ := newTestRedisStore(t, 7)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Put(ctx, "h1", Pending{Credential: "c"}, time.Minute); err == nil {
		t.Error("Put with canceled context err = nil")
	}
}
