// Package auth 主体认证：JWT 令牌管理、密码哈希、HTTP 中间件、归属校验
//
// 三类主体（farmer/buyer/driver）共用同一套认证组件，通过 PrincipalType
// 参数化，而不是每类主体各复制一份中间件。
// 各类主体的令牌有效期与投递方式（cookie / Bearer 头）差异保留为
// 显式的每类策略（TokenPolicy）。
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"freshly-market/internal/model"
)

// CookieName 承载令牌的 HTTP-only cookie 名称
const CookieName = "jwt"

// contextKey context 键类型
type contextKey string

// Config 认证配置
type Config struct {
	JWTSecret      string // 只从 JWT_SECRET 环境变量读取
	FarmerTokenTTL time.Duration
	BuyerTokenTTL  time.Duration
	DriverTokenTTL time.Duration
	SecureCookie   bool // 生产环境置 true
}

// DefaultConfig 返回默认认证配置
//
// 农户/买家令牌 1 小时，司机令牌 24 小时。各类主体的有效期差异
// 是既有产品行为，保留为显式配置而非统一。
func DefaultConfig() Config {
	return Config{
		FarmerTokenTTL: time.Hour,
		BuyerTokenTTL:  time.Hour,
		DriverTokenTTL: 24 * time.Hour,
	}
}

// TokenPolicy 每类主体的令牌投递/提取策略
type TokenPolicy struct {
	TTL         time.Duration
	SetCookie   bool // 签发时是否同时写 HTTP-only cookie（farmer/buyer 流程）
	AllowHeader bool // 认证时是否接受 Authorization: Bearer 头（driver 流程）
}

// PolicyFor 返回指定主体类型的令牌策略
func (c Config) PolicyFor(typ model.PrincipalType) TokenPolicy {
	switch typ {
	case model.PrincipalDriver:
		// 司机端：令牌走 JSON body，同时接受 Bearer 头或 cookie
		return TokenPolicy{TTL: c.DriverTokenTTL, SetCookie: false, AllowHeader: true}
	case model.PrincipalBuyer:
		return TokenPolicy{TTL: c.BuyerTokenTTL, SetCookie: true, AllowHeader: false}
	default:
		return TokenPolicy{TTL: c.FarmerTokenTTL, SetCookie: true, AllowHeader: false}
	}
}

// ============================================================================
// 密码哈希
// ============================================================================

// HashPassword 使用 bcrypt 哈希密码
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	return string(bytes), err
}

// CheckPassword 验证密码
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ============================================================================
// JWT Token
// ============================================================================

// Claims JWT 声明
//
// 只携带主体 ID（Subject）、主体类型与过期时间；每次请求重新解析，
// 不做任何服务端会话存储。
type Claims struct {
	jwt.RegisteredClaims
	Principal string `json:"prn"` // "farmer" | "buyer" | "driver"
}

// GenerateToken 为指定主体签发令牌
func GenerateToken(cfg Config, typ model.PrincipalType, principalID string) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cfg.PolicyFor(typ).TTL)),
		},
		Principal: string(typ),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseToken 解析并验证 JWT
func ParseToken(cfg Config, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// SetTokenCookie 将令牌写入站点范围的 HTTP-only cookie
func SetTokenCookie(w http.ResponseWriter, cfg Config, typ model.PrincipalType, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(cfg.PolicyFor(typ).TTL.Seconds()),
	})
}

// ClearTokenCookie 注销时清除令牌 cookie
func ClearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// ExtractToken 按策略从请求中提取候选令牌字符串
//
// AllowHeader 的主体先查 Authorization: Bearer 头，再回落到 cookie；
// 其余主体只查 cookie。找不到返回空串。
func ExtractToken(r *http.Request, policy TokenPolicy) string {
	if policy.AllowHeader {
		if h := r.Header.Get("Authorization"); h != "" {
			parts := strings.SplitN(h, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				return strings.TrimSpace(parts[1])
			}
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// ============================================================================
// Context 辅助函数
// ============================================================================

// Principal 认证通过后附着到请求上下文的主体信息
type Principal struct {
	ID   string
	Type model.PrincipalType
	Doc  any // 从所属集合加载的主体文档（*model.Farmer 等）
}

// WithPrincipal 将认证主体注入 context，键按主体类型区分
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey(p.Type), p)
}

// GetPrincipal 从 context 获取指定类型的认证主体
func GetPrincipal(ctx context.Context, typ model.PrincipalType) *Principal {
	p, _ := ctx.Value(contextKey(typ)).(*Principal)
	return p
}
