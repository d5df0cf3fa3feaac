// Package cache 定义缓存层抽象接口
//
// 司机实时位置与登录限流计数器是纯易失数据，带 TTL 存 Redis，
// 不进持久化存储。具体实现在子包 redis/ 中，测试使用 mock.go。
package cache

import (
	"context"
	"time"

	"freshly-market/internal/model"
)

// 缓存键前缀与 TTL
const (
	KeyDriverLocation = "freshly:delivery:location:" // + deliveryID
	KeyLoginAttempts  = "freshly:login:attempts:"    // + principalType:email

	TTLDriverLocation = 2 * time.Minute
	TTLLoginAttempts  = 15 * time.Minute

	// MaxLoginAttempts 限流窗口内允许的登录失败次数
	MaxLoginAttempts = 10
)

// DriverLocationCache 司机实时位置缓存（按配送记录维度）
type DriverLocationCache interface {
	// SetDriverLocation 写入最新位置，重置 TTL
	SetDriverLocation(ctx context.Context, deliveryID string, loc *model.DriverLocation) error
	// GetDriverLocation 读取最新位置；缓存未命中返回 (nil, nil)
	GetDriverLocation(ctx context.Context, deliveryID string) (*model.DriverLocation, error)
}

// LoginRateLimiter 登录失败限流
type LoginRateLimiter interface {
	// RegisterLoginFailure 记一次失败，返回窗口内累计次数
	RegisterLoginFailure(ctx context.Context, typ model.PrincipalType, email string) (int64, error)
	// LoginAttempts 查询窗口内累计失败次数
	LoginAttempts(ctx context.Context, typ model.PrincipalType, email string) (int64, error)
	// ClearLoginFailures 登录成功后清零
	ClearLoginFailures(ctx context.Context, typ model.PrincipalType, email string) error
}

// CacheStore 缓存层完整接口
type CacheStore interface {
	DriverLocationCache
	LoginRateLimiter

	Close() error
}
