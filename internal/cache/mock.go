// Package cache 缓存层内存实现（用于测试）
package cache

import (
	"context"
	"sync"

	"freshly-market/internal/model"
)

// MemoryCache 纯内存的 CacheStore 实现
//
// 不做 TTL 过期，只用于单元测试；并发安全。
type MemoryCache struct {
	mu        sync.Mutex
	locations map[string]*model.DriverLocation
	attempts  map[string]int64
}

// NewMemoryCache 创建 MemoryCache 实例
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		locations: make(map[string]*model.DriverLocation),
		attempts:  make(map[string]int64),
	}
}

// Close 关闭缓存
func (c *MemoryCache) Close() error {
	return nil
}

// DriverLocationCache 方法

func (c *MemoryCache) SetDriverLocation(ctx context.Context, deliveryID string, loc *model.DriverLocation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locations[deliveryID] = loc
	return nil
}

func (c *MemoryCache) GetDriverLocation(ctx context.Context, deliveryID string) (*model.DriverLocation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locations[deliveryID], nil
}

// LoginRateLimiter 方法

func (c *MemoryCache) RegisterLoginFailure(ctx context.Context, typ model.PrincipalType, email string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := string(typ) + ":" + email
	c.attempts[key]++
	return c.attempts[key], nil
}

func (c *MemoryCache) LoginAttempts(ctx context.Context, typ model.PrincipalType, email string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts[string(typ)+":"+email], nil
}

func (c *MemoryCache) ClearLoginFailures(ctx context.Context, typ model.PrincipalType, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.attempts, string(typ)+":"+email)
	return nil
}
