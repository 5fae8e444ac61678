package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"centone-chat/internal/domain"
)

const defaultRefreshStoreTTL = 24 * time.Hour

// RefreshTokenStore registra a que owner pertenece cada refresh token vigente (por jti).
// Lookup devuelve ok=false si el jti no existe, venció o fue revocado.
type RefreshTokenStore interface {
	Issue(ctx context.Context, jti string, owner domain.Owner, ttl time.Duration) error
	Lookup(ctx context.Context, jti string) (ownerKey string, ok bool, err error)
	Revoke(ctx context.Context, jti string) error
}

type refreshGrant struct {
	ownerKey  string
	expiresAt time.Time
}

type memoryRefreshTokenStore struct {
	mu     sync.Mutex
	grants map[string]refreshGrant
	now    func() time.Time
}

func NewMemoryRefreshTokenStore() RefreshTokenStore {
	return &memoryRefreshTokenStore{
		grants: make(map[string]refreshGrant),
		now:    time.Now,
	}
}

func (s *memoryRefreshTokenStore) Issue(_ context.Context, jti string, owner domain.Owner, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultRefreshStoreTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[jti] = refreshGrant{ownerKey: owner.Key(), expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *memoryRefreshTokenStore) Lookup(_ context.Context, jti string) (string, bool, error) {
	jti = strings.TrimSpace(jti)
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[jti]
	if !ok {
		return "", false, nil
	}
	if s.now().After(g.expiresAt) {
		delete(s.grants, jti)
		return "", false, nil
	}
	return g.ownerKey, true, nil
}

func (s *memoryRefreshTokenStore) Revoke(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants, strings.TrimSpace(jti))
	return nil
}

type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// redisRefreshTokenStore guarda chat:refresh:{jti} -> owner key con TTL.
type redisRefreshTokenStore struct {
	client  redisKV
	prefix  string
	timeout time.Duration
}

func NewRedisRefreshTokenStore(client *redis.Client) RefreshTokenStore {
	if client == nil {
		return nil
	}
	return &redisRefreshTokenStore{
		client:  client,
		prefix:  "chat:refresh:",
		timeout: 500 * time.Millisecond,
	}
}

func (s *redisRefreshTokenStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *redisRefreshTokenStore) Issue(ctx context.Context, jti string, owner domain.Owner, ttl time.Duration) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultRefreshStoreTTL
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.Set(ctx, s.prefix+jti, owner.Key(), ttl).Err()
}

func (s *redisRefreshTokenStore) Lookup(ctx context.Context, jti string) (string, bool, error) {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return "", false, nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	key, err := s.client.Get(ctx, s.prefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return key, true, nil
}

func (s *redisRefreshTokenStore) Revoke(ctx context.Context, jti string) error {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.Del(ctx, s.prefix+jti).Err()
}
