package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"event-ticketing/config"

	"github.com/redis/go-redis/v9"
)

// Decision is the limiter's verdict for one request.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	// Allow 消耗 key 的一個 token
	Allow(ctx context.Context, key string) (Decision, error)
}

type RedisTokenBucket struct {
	client redis.UniversalClient
	cfg    config.RateLimitConfig
}

func NewRedisTokenBucket(client redis.UniversalClient, cfg config.RateLimitConfig) *RedisTokenBucket {
	return &RedisTokenBucket{client: client, cfg: cfg}
}

/*
補充與扣減在同一支 Lua 腳本內完成 (原子性)
 1. 讀取 tokens / last_refill_ms，不存在則以滿桶初始化
 2. 依經過的 interval 補充 token，不超過 capacity
 3. 有 token 則扣 1，否則計算距下次補充的毫秒數
 4. 寫回並設定 TTL
*/
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 and refill_tokens > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + intervals * refill_tokens)
			last_refill = last_refill + intervals * interval_ms
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return {allowed, tokens, retry_after_ms}
`)

func (l *RedisTokenBucket) key(key string) string {
	return fmt.Sprintf("%s:%s", l.cfg.Prefix, key)
}

func (l *RedisTokenBucket) Allow(ctx context.Context, key string) (Decision, error) {
	ttl := int64(l.cfg.TTL / time.Second)
	if ttl <= 0 {
		ttl = 60
	}

	vals, err := tokenBucketScript.Run(ctx, l.client, []string{l.key(key)},
		time.Now().UnixMilli(),
		l.cfg.Capacity,
		l.cfg.RefillTokens,
		l.cfg.RefillInterval.Milliseconds(),
		ttl,
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("token bucket: %w", err)
	}
	if len(vals) != 3 {
		return Decision{}, fmt.Errorf("token bucket: unexpected result %v", vals)
	}

	return Decision{
		Allowed:    vals[0] == 1,
		Remaining:  int(vals[1]),
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// RetryAfterSeconds rounds up for the Retry-After header; never below 1.
func (d Decision) RetryAfterSeconds() string {
	secs := int((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
