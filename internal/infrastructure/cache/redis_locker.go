package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/reversecharge/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultLockKeyPrefix = "reverse_charge:lock:"

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisLocker implements Locker with SET NX PX keys in Redis.
// Suitable for deployments where several instances reconcile the same orders.
type RedisLocker struct {
	client     *redis.Client
	ownsClient bool
	keyPrefix  string
	config     shared.LockConfig
	logger     *zap.Logger
}

// NewRedisLocker connects to Redis and creates a locker
func NewRedisLocker(cfg RedisConfig, lockCfg shared.LockConfig, logger *zap.Logger) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	l := NewRedisLockerWithClient(client, "", lockCfg, logger)
	l.ownsClient = true
	return l, nil
}

// NewRedisLockerWithClient creates a locker over an existing client.
// The client is not closed by Close.
func NewRedisLockerWithClient(client *redis.Client, keyPrefix string, lockCfg shared.LockConfig, logger *zap.Logger) *RedisLocker {
	if keyPrefix == "" {
		keyPrefix = defaultLockKeyPrefix
	}
	defaults := shared.DefaultLockConfig()
	if lockCfg.TTL <= 0 {
		lockCfg.TTL = defaults.TTL
	}
	if lockCfg.RetryInterval <= 0 {
		lockCfg.RetryInterval = defaults.RetryInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{
		client:    client,
		keyPrefix: keyPrefix,
		config:    lockCfg,
		logger:    logger,
	}
}

// Lock polls SET NX until the key is free or ctx is done
func (l *RedisLocker) Lock(ctx context.Context, key string) (shared.Unlock, error) {
	redisKey := l.keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.config.RetryInterval)
	defer ticker.Stop()

	for {
		acquired, err := l.client.SetNX(ctx, redisKey, token, l.config.TTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: key %s: %w", shared.ErrLockTimeout, key, ctx.Err())
			}
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if acquired {
			return l.unlocker(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: key %s: %w", shared.ErrLockTimeout, key, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) unlocker(redisKey, token string) shared.Unlock {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
				// the key expires after TTL anyway
				l.logger.Warn("failed to release lock",
					zap.String("key", redisKey),
					zap.Error(err),
				)
			}
		})
	}
}

// Close closes the Redis client when the locker created it
func (l *RedisLocker) Close() error {
	if !l.ownsClient {
		return nil
	}
	return l.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (l *RedisLocker) GetClient() *redis.Client {
	return l.client
}

// Ensure RedisLocker implements Locker
var _ shared.Locker = (*RedisLocker)(nil)
