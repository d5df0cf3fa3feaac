package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ResetTokenTTL 密码重置 token 有效期
const ResetTokenTTL = time.Hour

// NewResetToken 生成随机密码重置 token
//
// 返回明文（邮件发送给用户）与 SHA-256 哈希（落库）。
// 明文不落库，完成重置时按哈希反查。
func NewResetToken() (plain, hash string, err error) {
	b := make([]byte, 32)
	if _, err = rand.Read(b); err != nil {
		return "", "", err
	}
	plain = hex.EncodeToString(b)
	return plain, HashResetToken(plain), nil
}

// HashResetToken 计算重置 token 的存储哈希
func HashResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
