// Package redis Redis 缓存实现
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"freshly-market/internal/cache"
	"freshly-market/internal/model"
)

// Store Redis 缓存存储
type Store struct {
	client *redis.Client
}

// 编译期接口断言
var _ cache.CacheStore = (*Store)(nil)

// NewStoreFromURL 从 URL 创建 Redis 缓存实例
func NewStoreFromURL(redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("[Redis/Cache] Connected to %s", opts.Addr)
	return &Store{client: client}, nil
}

// Close 关闭 Redis 连接
func (s *Store) Close() error {
	return s.client.Close()
}

// ============================================================================
// DriverLocationCache
// ============================================================================

// SetDriverLocation 写入司机最新位置，重置 TTL
//
// 位置是纯易失数据：司机停止上报后 TTL 到期自动消失，
// 买家侧表现为"暂无位置"而不是陈旧坐标。
func (s *Store) SetDriverLocation(ctx context.Context, deliveryID string, loc *model.DriverLocation) error {
	data, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("marshal driver location: %w", err)
	}
	key := cache.KeyDriverLocation + deliveryID
	if err := s.client.Set(ctx, key, data, cache.TTLDriverLocation).Err(); err != nil {
		return fmt.Errorf("set driver location: %w", err)
	}
	return nil
}

// GetDriverLocation 读取司机最新位置；未命中返回 (nil, nil)
func (s *Store) GetDriverLocation(ctx context.Context, deliveryID string) (*model.DriverLocation, error) {
	key := cache.KeyDriverLocation + deliveryID
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get driver location: %w", err)
	}
	var loc model.DriverLocation
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, fmt.Errorf("unmarshal driver location: %w", err)
	}
	return &loc, nil
}

// ============================================================================
// LoginRateLimiter
// ============================================================================

func loginKey(typ model.PrincipalType, email string) string {
	return cache.KeyLoginAttempts + string(typ) + ":" + email
}

// RegisterLoginFailure 记一次登录失败，返回窗口内累计次数
func (s *Store) RegisterLoginFailure(ctx context.Context, typ model.PrincipalType, email string) (int64, error) {
	key := loginKey(typ, email)

	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, cache.TTLLoginAttempts)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("register login failure: %w", err)
	}
	return incr.Val(), nil
}

// LoginAttempts 查询窗口内累计失败次数
func (s *Store) LoginAttempts(ctx context.Context, typ model.PrincipalType, email string) (int64, error) {
	n, err := s.client.Get(ctx, loginKey(typ, email)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get login attempts: %w", err)
	}
	return n, nil
}

// ClearLoginFailures 登录成功后清零
func (s *Store) ClearLoginFailures(ctx context.Context, typ model.PrincipalType, email string) error {
	return s.client.Del(ctx, loginKey(typ, email)).Err()
}
