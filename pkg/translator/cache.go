package translator

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/patrickmn/go-cache"
)

// Cache は翻訳結果のキャッシュ操作を抽象化するインターフェースです。
// *cache.Cache (patrickmn/go-cache) がそのまま満たします。
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, d time.Duration)
}

// NewCache は size に応じたキャッシュを返します。
// size が 0 以下なら期限なしのセッションキャッシュ、正の値なら件数上限付きの LRU です。
func NewCache(size int) Cache {
	if size <= 0 {
		return cache.New(cache.NoExpiration, 0)
	}
	c, _ := lru.New[string, any](size)
	return &lruCache{c: c}
}

// lruCache は golang-lru を Cache に合わせるアダプタです。有効期限は無視します。
type lruCache struct {
	c *lru.Cache[string, any]
}

func (l *lruCache) Get(key string) (any, bool) {
	return l.c.Get(key)
}

func (l *lruCache) Set(key string, value any, _ time.Duration) {
	l.c.Add(key, value)
}
