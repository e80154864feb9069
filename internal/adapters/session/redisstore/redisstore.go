package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "tienda:session:"

// Store keeps every session as one redis hash whose TTL is refreshed on write.
type Store struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func New(cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("no se pudo conectar a redis: %w", err)
	}
	return NewWithClient(client, "", cfg.TTL), nil
}

func NewWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *Store {
	if keyPrefix == "" {
		keyPrefix = defaultPrefix
	}
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	return &Store{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (s *Store) key(sid string) string { return s.keyPrefix + sid }

func (s *Store) Get(ctx context.Context, sid, key string, dst any) (bool, error) {
	raw, err := s.client.HGet(ctx, s.key(sid), key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("leyendo sesión: %w", err)
	}
	return true, json.Unmarshal(raw, dst)
}

func (s *Store) Set(ctx context.Context, sid, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	k := s.key(sid)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, k, key, raw)
	pipe.Expire(ctx, k, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("guardando sesión: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, sid string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.HDel(ctx, s.key(sid), keys...).Err()
}

func (s *Store) Close() error { return s.client.Close() }
