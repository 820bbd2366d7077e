package api

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// loginCounter 是登录防护所需的 Redis 命令子集。
type loginCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// loginGuard 按 IP+邮箱限制每小时尝试次数，并在连续失败后临时锁定邮箱。
// Redis 不可用时放行，不影响正常登录。
type loginGuard struct {
	redis         loginCounter
	logger        *slog.Logger
	limitPerHour  int
	lockThreshold int
	lockTTL       time.Duration
	now           func() time.Time
}

func newLoginGuard(client loginCounter, logger *slog.Logger, limitPerHour, lockThreshold int, lockTTL time.Duration) *loginGuard {
	return &loginGuard{
		redis:         client,
		logger:        logger,
		limitPerHour:  limitPerHour,
		lockThreshold: lockThreshold,
		lockTTL:       lockTTL,
		now:           time.Now,
	}
}

// Allow 计数本次尝试；超过限额或邮箱被锁定时返回 false。
func (g *loginGuard) Allow(ctx context.Context, ip, email string) bool {
	if g == nil || g.redis == nil {
		return true
	}
	email = strings.ToLower(email)

	if g.limitPerHour > 0 {
		rateKey := "rate:login:" + ip + ":" + email + ":" + g.now().UTC().Format("2006010215")
		count, err := incrWithTTL(ctx, g.redis, rateKey, time.Hour)
		if err != nil {
			g.logger.Warn("login rate counter unavailable", slog.Any("error", err))
			return true
		}
		if count > int64(g.limitPerHour) {
			return false
		}
	}

	ttl, err := g.redis.TTL(ctx, lockKey(email)).Result()
	if err != nil {
		g.logger.Warn("login lock lookup failed", slog.Any("error", err))
		return true
	}
	return ttl <= 0
}

// Failed 记录一次失败；连续失败达到阈值后锁定邮箱。
func (g *loginGuard) Failed(ctx context.Context, email string) {
	if g == nil || g.redis == nil || g.lockThreshold <= 0 {
		return
	}
	email = strings.ToLower(email)

	count, err := incrWithTTL(ctx, g.redis, failKey(email), g.lockTTL)
	if err != nil {
		g.logger.Warn("login failure counter unavailable", slog.Any("error", err))
		return
	}
	if count >= int64(g.lockThreshold) {
		_ = g.redis.Set(ctx, lockKey(email), "1", g.lockTTL).Err()
	}
}

// Succeeded 清理失败计数。
func (g *loginGuard) Succeeded(ctx context.Context, email string) {
	if g == nil || g.redis == nil {
		return
	}
	_ = g.redis.Del(ctx, failKey(strings.ToLower(email))).Err()
}

func lockKey(email string) string { return "lock:login:" + email }
func failKey(email string) string { return "lock:login:fail:" + email }

func incrWithTTL(ctx context.Context, client loginCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}
