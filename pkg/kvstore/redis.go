package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type redisStore struct {
	rdb    goredis.UniversalClient
	prefix string
}

// NewRedisStore は Redis に接続し、疎通確認を行ってからストアを返します。
func NewRedisStore(ctx context.Context, addr string, db int, prefix string) (Store, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreWithClient(rdb, prefix), nil
}

// NewRedisStoreWithClient は既存のクライアントをラップします。
func NewRedisStoreWithClient(rdb goredis.UniversalClient, prefix string) Store {
	return &redisStore{rdb: rdb, prefix: prefix}
}

// key は接頭辞を付けた Redis のキーを返します。既に接頭辞で始まるキーはそのままです。
func (s *redisStore) key(k string) string {
	if strings.HasPrefix(k, s.prefix) {
		return k
	}
	return s.prefix + k
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string) error {
	if err := s.rdb.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.rdb.Close()
}
