package metadata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr      string // Redis server address (host:port)
	Password  string // Redis password (optional)
	DB        int    // Redis database number
	Namespace string // prefix for every key, defaults to "screenrec:"
}

// RedisKV stores each path as one Redis string key.
type RedisKV struct {
	client    *redis.Client
	namespace string
	logger    zerolog.Logger
}

// NewRedisKV connects to Redis and verifies the connection.
func NewRedisKV(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to Redis metadata store")

	return newRedisKV(client, cfg.Namespace, logger), nil
}

func newRedisKV(client *redis.Client, namespace string, logger zerolog.Logger) *RedisKV {
	if namespace == "" {
		namespace = "screenrec:"
	}
	return &RedisKV{client: client, namespace: namespace, logger: logger}
}

func (r *RedisKV) Write(ctx context.Context, path string, value []byte) error {
	key, err := validatePath(path)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.namespace+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisKV) ReadAll(ctx context.Context, path string) (Snapshot, error) {
	collection := normalizeCollection(path)
	prefix := r.namespace + collection
	pattern := escapeGlob(prefix) + "*"

	var keys []string
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return Snapshot{}, fmt.Errorf("redis scan %s: %w", collection, err)
	}

	children := make(map[string][]byte)
	if len(keys) == 0 {
		return NewSnapshot(collection, children), nil
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("redis mget %s: %w", collection, err)
	}

	for i, key := range keys {
		name, ok := directChild(collection, strings.TrimPrefix(key, r.namespace))
		if !ok {
			continue
		}
		switch v := values[i].(type) {
		case string:
			children[name] = []byte(v)
		case nil:
			// Deleted between SCAN and MGET.
		default:
			r.logger.Warn().Str("key", key).Msgf("unexpected redis value type %T", v)
		}
	}
	return NewSnapshot(collection, children), nil
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}

// HealthCheck checks if Redis is available.
func (r *RedisKV) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
