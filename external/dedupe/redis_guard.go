package dedupe

import (
	"context"
	"log/slog"
	"time"

	"github.com/foxseedlab/pwbot/internal/dedupe"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "pwbot:dedupe:"

type setNXer interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
}

// RedisGuard shares claimed keys between bot replicas through SETNX.
type RedisGuard struct {
	client setNXer
}

func NewRedisGuard(client setNXer) dedupe.Guard {
	return &RedisGuard{client: client}
}

func (g *RedisGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return g.client.SetNX(ctx, keyPrefix+key, 1, ttl).Result()
}

func newRedisClient(addr, password string, db int) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("unable to reach redis", "addr", addr, "error", err)
	} else {
		slog.Info("connected to redis", "addr", addr)
	}
	return client
}
