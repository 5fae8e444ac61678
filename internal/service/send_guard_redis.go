package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"centone-chat/internal/domain"
)

// Borra la clave solo si sigue siendo nuestra.
const redisReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

type redisLocker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisSendGuard comparte el guard entre replicas. El TTL libera envios huerfanos.
type RedisSendGuard struct {
	client redisLocker
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

func NewRedisSendGuard(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisSendGuard {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSendGuard{client: client, ttl: ttl, prefix: "chat:send:", logger: logger}
}

// Acquire falla abierto si Redis no responde: el envío sigue sin guard.
func (g *RedisSendGuard) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := g.prefix + key
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, redisKey, token, g.ttl).Result()
	if err != nil {
		g.logger.Warn("send guard unavailable", zap.String("key", key), zap.Error(err))
		return func() {}, nil
	}
	if !ok {
		return nil, domain.ErrSendInProgress
	}

	return func() {
		rctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if err := g.client.Eval(rctx, redisReleaseScript, []string{redisKey}, token).Err(); err != nil {
			g.logger.Warn("send guard release failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
