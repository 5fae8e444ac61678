package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"centone-chat/internal/domain"
)

type mockRedisKVClient struct {
	values map[string]string

	lastSetKey string
	lastSetTTL time.Duration
	lastGet    string
	lastDel    []string

	setErr error
	getErr error
	delErr error
}

func (m *mockRedisKVClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.lastSetKey = key
	m.lastSetTTL = expiration
	cmd := redis.NewStatusCmd(ctx)
	if m.setErr != nil {
		cmd.SetErr(m.setErr)
		return cmd
	}
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = value.(string)
	cmd.SetVal("OK")
	return cmd
}

func (m *mockRedisKVClient) Get(ctx context.Context, key string) *redis.StringCmd {
	m.lastGet = key
	cmd := redis.NewStringCmd(ctx)
	if m.getErr != nil {
		cmd.SetErr(m.getErr)
		return cmd
	}
	v, ok := m.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (m *mockRedisKVClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.lastDel = keys
	cmd := redis.NewIntCmd(ctx)
	if m.delErr != nil {
		cmd.SetErr(m.delErr)
		return cmd
	}
	for _, k := range keys {
		delete(m.values, k)
	}
	cmd.SetVal(1)
	return cmd
}

func TestMemoryRefreshTokenStore_Basics(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := &memoryRefreshTokenStore{grants: map[string]refreshGrant{}, now: func() time.Time { return now }}
	owner := domain.Owner{AppID: "app", UserID: "u1"}

	if _, ok, err := store.Lookup(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing token false,nil; got %v,%v", ok, err)
	}

	if err := store.Issue(ctx, "jti-1", owner, time.Minute); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	key, ok, err := store.Lookup(ctx, "jti-1")
	if err != nil || !ok || key != "app/u1" {
		t.Fatalf("expected grant for app/u1, got %q %v %v", key, ok, err)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := store.Lookup(ctx, "jti-1"); ok {
		t.Fatalf("expected grant expired")
	}
	if len(store.grants) != 0 {
		t.Fatalf("expired grant must be dropped")
	}
}

func TestMemoryRefreshTokenStore_RevokeAndEmptyJTI(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRefreshTokenStore()
	owner := domain.Owner{AppID: "app", UserID: "u1"}

	if err := store.Issue(ctx, "", owner, time.Minute); err != nil {
		t.Fatalf("empty jti issue should be no-op, got %v", err)
	}
	if err := store.Issue(ctx, "jti-2", owner, time.Minute); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if err := store.Revoke(ctx, " jti-2 "); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, ok, err := store.Lookup(ctx, "jti-2"); err != nil || ok {
		t.Fatalf("expected revoked token absent, got %v,%v", ok, err)
	}
}

func TestRedisRefreshTokenStore_Basics(t *testing.T) {
	ctx := context.Background()
	mock := &mockRedisKVClient{}
	store := &redisRefreshTokenStore{client: mock, prefix: "chat:refresh:", timeout: time.Second}
	owner := domain.Owner{AppID: "app", UserID: "u1"}

	if err := store.Issue(ctx, " j1 ", owner, 0); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if mock.lastSetKey != "chat:refresh:j1" {
		t.Fatalf("unexpected key, got %q", mock.lastSetKey)
	}
	if mock.lastSetTTL != defaultRefreshStoreTTL {
		t.Fatalf("expected TTL fallback, got %v", mock.lastSetTTL)
	}

	key, ok, err := store.Lookup(ctx, " j1 ")
	if err != nil || !ok || key != "app/u1" {
		t.Fatalf("expected app/u1, got %q %v %v", key, ok, err)
	}

	if err := store.Revoke(ctx, " j1 "); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if len(mock.lastDel) != 1 || mock.lastDel[0] != "chat:refresh:j1" {
		t.Fatalf("unexpected del key: %+v", mock.lastDel)
	}
	if _, ok, err := store.Lookup(ctx, "j1"); err != nil || ok {
		t.Fatalf("redis.Nil must read as absent, got %v %v", ok, err)
	}
}

func TestRedisRefreshTokenStore_ErrorPathsAndEmptyJTI(t *testing.T) {
	ctx := context.Background()
	mock := &mockRedisKVClient{
		setErr: errors.New("set failed"),
		getErr: errors.New("get failed"),
		delErr: errors.New("del failed"),
	}
	store := &redisRefreshTokenStore{client: mock, prefix: "chat:refresh:", timeout: time.Second}
	owner := domain.Owner{AppID: "app", UserID: "u1"}

	if err := store.Issue(ctx, "", owner, time.Minute); err != nil {
		t.Fatalf("empty jti issue should be no-op, got %v", err)
	}
	if _, ok, err := store.Lookup(ctx, ""); err != nil || ok {
		t.Fatalf("empty jti lookup should be false,nil; got %v,%v", ok, err)
	}
	if err := store.Revoke(ctx, ""); err != nil {
		t.Fatalf("empty jti revoke should be no-op, got %v", err)
	}

	if err := store.Issue(ctx, "j2", owner, time.Minute); err == nil {
		t.Fatalf("expected issue error")
	}
	if _, _, err := store.Lookup(ctx, "j2"); err == nil {
		t.Fatalf("expected lookup error")
	}
	if err := store.Revoke(ctx, "j2"); err == nil {
		t.Fatalf("expected revoke error")
	}
}

// foreignGrantStore responde que todo jti pertenece a otro owner.
type foreignGrantStore struct{ RefreshTokenStore }

func (s foreignGrantStore) Lookup(context.Context, string) (string, bool, error) {
	return "app/someone-else", true, nil
}

func TestJWTService_RefreshRejectsForeignGrant(t *testing.T) {
	ctx := context.Background()
	svc := NewJWTServiceWithStore("secret", time.Minute, time.Hour, foreignGrantStore{NewMemoryRefreshTokenStore()})

	pair, err := svc.GeneratePair(ctx, domain.Owner{AppID: "app", UserID: "u1"})
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	if _, err := svc.RefreshPair(ctx, pair.RefreshToken); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid, got %v", err)
	}
}
