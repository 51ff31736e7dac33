// Package kvstore はブラウザのキー・バリューストア相当の文字列KVを提供します。
// 下書きと利用者指定のAPIキーはここに保存されます。
package kvstore

import (
	"context"
	"fmt"
	"sync"
)

// Store は文字列キーと文字列値の永続ストアです。
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Options は Open に渡す接続設定です。
type Options struct {
	Driver    string // memory | sqlite | redis
	Path      string // sqlite の DSN
	RedisAddr string // redis 用
	RedisDB   int
	Prefix    string // redis のキー接頭辞
}

// Open は Driver に応じたストアを生成します。
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(ctx, opts.Path)
	case "redis":
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisDB, opts.Prefix)
	default:
		return nil, fmt.Errorf("unknown kv driver: %q", opts.Driver)
	}
}

type memoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore はプロセス内だけで保持されるストアを返します。
func NewMemoryStore() Store {
	return &memoryStore{data: make(map[string]string)}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Close() error { return nil }
