package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresmejia3/faceguard/internal/logger"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another process is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends the key's expiry only while it still holds our token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker is a Locker shared by every process pointed at the same Redis.
// The TTL bounds how long a crashed holder can block a key; a live holder
// keeps extending it every TTL/3 until it unlocks.
type RedisLocker struct {
	Client    *redis.Client
	Prefix    string
	TTL       time.Duration
	RetryWait time.Duration
}

// NewRedisLocker connects to addr and verifies the connection.
func NewRedisLocker(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 10,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	logger.Info("connected to redis successfully", logger.LoggerOptions{Key: "addr", Data: addr})
	return &RedisLocker{
		Client:    client,
		Prefix:    "faceguard:lock:",
		TTL:       ttl,
		RetryWait: 50 * time.Millisecond,
	}, nil
}

func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	redisKey := r.Prefix + key

	for {
		ok, err := r.Client.SetNX(ctx, redisKey, token, r.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %q: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.RetryWait):
		}
	}

	stop, done := make(chan struct{}), make(chan struct{})
	go r.refresh(key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// The caller's ctx may already be cancelled; release regardless.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, r.Client, []string{redisKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				logger.Error("failed to release redis lock",
					logger.LoggerOptions{Key: "key", Data: key},
					logger.LoggerOptions{Key: "error", Data: err})
			}
		})
	}, nil
}

// refresh extends the lock until stop is closed or the key stops holding token.
func (r *RedisLocker) refresh(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	if r.TTL <= 0 {
		<-stop
		return
	}
	interval := max(r.TTL/3, time.Millisecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		n, err := refreshScript.Run(ctx, r.Client, []string{r.Prefix + key}, token, r.TTL.Milliseconds()).Int()
		cancel()
		if err != nil {
			logger.Warning("failed to extend redis lock",
				logger.LoggerOptions{Key: "key", Data: key},
				logger.LoggerOptions{Key: "error", Data: err})
			continue
		}
		if n == 0 {
			logger.Warning("redis lock lost before release", logger.LoggerOptions{Key: "key", Data: key})
			<-stop
			return
		}
	}
}

// Ping checks that Redis is reachable.
func (r *RedisLocker) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (r *RedisLocker) Close() error {
	return r.Client.Close()
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
