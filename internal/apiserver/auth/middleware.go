package auth

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"freshly-market/internal/model"
)

// LoadFunc 按 ID 加载主体文档
// 主体不存在时返回 (nil, nil)，与存储层 findOne 约定一致。
type LoadFunc func(ctx context.Context, id string) (any, error)

// Require 创建指定主体类型的认证中间件
//
// 流程（三类主体共用）：
//  1. 按策略提取令牌（Bearer 头和/或 cookie）；缺失 → 401 token missing
//  2. 验证签名与过期时间 → 401 invalid token
//  3. 校验令牌中的主体类型与路由要求一致 → 401 invalid token
//  4. 按 ID 加载主体文档；不存在（账号已删、令牌过时）→ 401 principal not found
//  5. 将主体附着到请求 context，放行
//
// 所有失败路径写 JSON 错误体并终止请求链，不重试。
func Require(cfg Config, typ model.PrincipalType, load LoadFunc) func(http.HandlerFunc) http.HandlerFunc {
	policy := cfg.PolicyFor(typ)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			tokenString := ExtractToken(r, policy)
			if tokenString == "" {
				unauthorized(w, "token missing")
				return
			}

			claims, err := ParseToken(cfg, tokenString)
			if err != nil {
				log.Printf("[auth] token parse error: %v", err)
				unauthorized(w, "invalid token")
				return
			}

			// 防止跨主体类型复用令牌（买家令牌访问农户路由等）
			if claims.Principal != string(typ) {
				unauthorized(w, "invalid token")
				return
			}

			doc, err := load(r.Context(), claims.Subject)
			if err != nil {
				log.Printf("[auth] load %s %s: %v", typ, claims.Subject, err)
				writeJSONError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if doc == nil {
				unauthorized(w, "principal not found")
				return
			}

			p := &Principal{ID: claims.Subject, Type: typ, Doc: doc}
			next(w, r.WithContext(WithPrincipal(r.Context(), p)))
		}
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusUnauthorized, message)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
