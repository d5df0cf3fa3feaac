// Package server 提供 HTTP API 处理器
//
// 本包实现 Freshly.lk 市场的 RESTful API，包括：
//   - 三类主体（农户/买家/司机）的注册、登录、资料管理
//   - 商品、订单、评价、投诉的 CRUD
//   - 司机配送与实时位置追踪（含 WebSocket 推送）
//
// 文件组织：
//   - common.go: 通用工具函数和 Handler 定义
//   - router.go: 路由配置与认证中间件装配
//   - farmers.go / buyers.go / drivers.go: 各主体的注册登录与资料接口
//   - principals.go: 三类主体共用的注册/登录/重置流程
//   - products.go / orders.go / reviews.go / complaints.go / deliveries.go: 资源接口
//   - uploads.go: 图片上传（multipart → MinIO）
//   - tracking_ws.go: 配送位置 WebSocket 推送
//   - metrics.go: Prometheus 指标
package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"freshly-market/internal/apiserver/auth"
	"freshly-market/internal/cache"
	"freshly-market/internal/mailer"
	"freshly-market/internal/objstore"
	"freshly-market/internal/storage"
)

// Handler API 处理器
//
// Handler 是所有 HTTP API 的入口，负责：
//   - 路由请求到对应的处理函数
//   - 管理存储层连接
//   - 协调对象存储、缓存与邮件协作方
type Handler struct {
	store   storage.PersistentStore // MongoDB 存储层（持久化业务数据）
	cache   cache.CacheStore        // Redis（司机位置 + 登录限流）
	objects objstore.Store          // MinIO（商品/评价图片）
	mail    mailer.Mailer           // 密码重置邮件
	authCfg auth.Config
	metrics *Metrics // Prometheus 指标
}

// NewHandler 创建 Handler 实例
func NewHandler(store storage.PersistentStore, cacheStore cache.CacheStore, objects objstore.Store, mail mailer.Mailer, authCfg auth.Config) *Handler {
	return &Handler{
		store:   store,
		cache:   cacheStore,
		objects: objects,
		mail:    mail,
		authCfg: authCfg,
		metrics: NewMetrics("freshly"),
	}
}

// writeJSON 将数据以 JSON 格式写入 HTTP 响应
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError 将错误信息以 JSON 格式写入 HTTP 响应
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError 将存储层领域错误映射为 HTTP 状态
//
// dupMessage 用于定制唯一键冲突时的提示文案，传空串则用通用文案。
func writeStoreError(w http.ResponseWriter, err error, dupMessage string) {
	if dupMessage == "" {
		dupMessage = "already exists"
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrDuplicate):
		writeError(w, http.StatusConflict, dupMessage)
	case errors.Is(err, storage.ErrConflict):
		writeError(w, http.StatusConflict, "conflict")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// generateID 生成带前缀的唯一标识符
//
// 使用加密安全的随机数生成 6 字节（12 个十六进制字符）的 ID，
// 格式为：prefix-xxxxxxxxxxxx
func generateID(prefix string) string {
	b := make([]byte, 6)
	rand.Read(b)
	return prefix + "-" + hex.EncodeToString(b)
}

// Health 健康检查接口
//
// 路由: GET /health
//
// 用于负载均衡器和监控系统检查服务状态。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
