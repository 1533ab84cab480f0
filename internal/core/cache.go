package core

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/RecoveryAshes/ThreadCrawl/internal/models"
)

const (
	// DefaultCacheTTL 结果缓存有效期
	DefaultCacheTTL = 24 * time.Hour

	// DefaultCacheEntries 缓存条目上限
	DefaultCacheEntries = 1000
)

type cacheEntry struct {
	result   *models.ThreadResult
	storedAt time.Time
}

// ResultCache 按帖子ID缓存提取结果
// 过期只在Get时惰性检查,没有后台清理
// 存入后的结果视为不可变
type ResultCache struct {
	ttl   time.Duration
	store *lru.Cache[string, cacheEntry]
	now   func() time.Time
}

// NewResultCache 创建结果缓存
func NewResultCache(ttl time.Duration, maxEntries int) (*ResultCache, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	store, err := lru.New[string, cacheEntry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("创建缓存失败: %w", err)
	}
	return &ResultCache{ttl: ttl, store: store, now: time.Now}, nil
}

// Get 命中且未过期时返回结果,过期条目在此删除
// 条目只在存活时间严格小于TTL时可见
func (c *ResultCache) Get(key string) (*models.ThreadResult, bool) {
	entry, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		c.store.Remove(key)
		return nil, false
	}
	return entry.result, true
}

// Put 总是覆盖已有条目
func (c *ResultCache) Put(key string, result *models.ThreadResult) {
	c.store.Add(key, cacheEntry{result: result, storedAt: c.now()})
}

// Len 当前条目数(含尚未被惰性删除的过期条目)
func (c *ResultCache) Len() int {
	return c.store.Len()
}
