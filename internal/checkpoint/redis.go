package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps checkpoints in Redis. Keys are namespaced by a prefix
// (the configured checkpoint location) and expire after the TTL, which
// should exceed the window width so open windows always survive a restart.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures RedisStore.
type RedisOption func(*redisConfig)

type redisConfig struct {
	addr     string
	password string
	db       int
	prefix   string
	ttl      time.Duration
	poolSize int
}

// WithRedisAddr sets the Redis address.
func WithRedisAddr(addr string) RedisOption {
	return func(c *redisConfig) {
		if addr != "" {
			c.addr = addr
		}
	}
}

// WithRedisAuth sets password and database.
func WithRedisAuth(password string, db int) RedisOption {
	return func(c *redisConfig) {
		c.password = password
		c.db = db
	}
}

// WithRedisPrefix sets the key namespace.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *redisConfig) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithRedisTTL sets checkpoint expiry.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(c *redisConfig) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(opts ...RedisOption) (*RedisStore, error) {
	cfg := &redisConfig{
		addr:     "localhost:6379",
		prefix:   "tradeflow:ckpt",
		ttl:      time.Hour,
		poolSize: 10,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.addr,
		Password: cfg.password,
		DB:       cfg.db,
		PoolSize: cfg.poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{client: client, prefix: cfg.prefix, ttl: cfg.ttl}, nil
}

func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := s.client.Set(ctx, s.key(rec.Symbol), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", rec.Symbol, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, symbol string) (Record, error) {
	b, err := s.client.Get(ctx, s.key(symbol)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("load checkpoint %s: %w", symbol, err)
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return Record{}, fmt.Errorf("unmarshal checkpoint %s: %w", symbol, err)
	}
	return rec, nil
}

func (s *RedisStore) Delete(ctx context.Context, symbol string) error {
	return s.client.Unlink(ctx, s.key(symbol)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(symbol string) string {
	return s.prefix + ":" + symbol
}
