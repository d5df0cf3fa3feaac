package server

import (
	"context"
	"log"
	"net/http"
	"regexp"
	"time"

	"freshly-market/internal/apiserver/auth"
	"freshly-market/internal/cache"
	"freshly-market/internal/model"
)

// 本文件承载三类主体共用的注册/登录/重置流程片段。
// 各主体的字段校验与响应形状在 farmers.go / buyers.go / drivers.go 中。

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// issueToken 为主体签发令牌，并按该类主体的策略写 HTTP-only cookie
//
// 返回 ok=false 时已写出错误响应。
func (h *Handler) issueToken(w http.ResponseWriter, typ model.PrincipalType, principalID string) (string, bool) {
	token, err := auth.GenerateToken(h.authCfg, typ, principalID)
	if err != nil {
		log.Printf("[auth] generate token for %s %s: %v", typ, principalID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return "", false
	}
	if h.authCfg.PolicyFor(typ).SetCookie {
		auth.SetTokenCookie(w, h.authCfg, typ, token)
	}
	return token, true
}

// loginBlocked 登录限流检查：窗口内失败次数达到上限则拒绝
func (h *Handler) loginBlocked(ctx context.Context, w http.ResponseWriter, typ model.PrincipalType, email string) bool {
	n, err := h.cache.LoginAttempts(ctx, typ, email)
	if err != nil {
		// 限流是保护层，缓存故障不阻断登录
		log.Printf("[auth] login attempts lookup failed: %v", err)
		return false
	}
	if n >= cache.MaxLoginAttempts {
		writeError(w, http.StatusTooManyRequests, "too many login attempts, try again later")
		return true
	}
	return false
}

// noteLoginFailure 记一次登录失败
func (h *Handler) noteLoginFailure(ctx context.Context, typ model.PrincipalType, email string) {
	if _, err := h.cache.RegisterLoginFailure(ctx, typ, email); err != nil {
		log.Printf("[auth] register login failure: %v", err)
	}
}

// noteLoginSuccess 登录成功后清零失败计数
func (h *Handler) noteLoginSuccess(ctx context.Context, typ model.PrincipalType, email string) {
	if err := h.cache.ClearLoginFailures(ctx, typ, email); err != nil {
		log.Printf("[auth] clear login failures: %v", err)
	}
}

// sendResetToken 生成并落库重置 token，邮寄明文
//
// 为避免账号枚举，无论邮箱是否存在，调用方都返回同一响应。
func (h *Handler) sendResetToken(ctx context.Context, email string, save func(ctx context.Context, tokenHash string, expiry time.Time) error) {
	plain, hash, err := auth.NewResetToken()
	if err != nil {
		log.Printf("[auth] generate reset token: %v", err)
		return
	}
	if err := save(ctx, hash, time.Now().Add(auth.ResetTokenTTL)); err != nil {
		log.Printf("[auth] save reset token: %v", err)
		return
	}
	if err := h.mail.SendResetToken(ctx, email, plain); err != nil {
		// 邮件是尽力而为的协作方调用：失败只记日志
		log.Printf("[mailer] send reset token to %s: %v", email, err)
	}
}
