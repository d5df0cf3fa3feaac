// Package mailer 密码重置邮件发送
//
// 外部邮件服务是协作方而非本系统的一部分：这里只做一层薄封装，
// SMTP 未配置时退化为只记日志的实现（开发/测试环境）。
package mailer

import (
	"context"
	"fmt"
	"log"
	"net/smtp"

	"freshly-market/internal/config"
)

// Mailer 重置 token 邮件发送接口
type Mailer interface {
	// SendResetToken 将明文重置 token 发送到指定邮箱
	SendResetToken(ctx context.Context, to, token string) error
}

// New 按配置创建 Mailer
//
// SMTP host 为空时返回 LogMailer（token 打到日志，便于本地联调）。
func New(cfg config.SMTPConfig) Mailer {
	if cfg.Host == "" {
		return &LogMailer{}
	}
	return &SMTPMailer{cfg: cfg}
}

// ============================================================================
// SMTPMailer
// ============================================================================

// SMTPMailer 经由外部 SMTP 服务发送
type SMTPMailer struct {
	cfg config.SMTPConfig
}

// SendResetToken 发送密码重置邮件
func (m *SMTPMailer) SendResetToken(ctx context.Context, to, token string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	msg := []byte("From: " + m.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: Freshly.lk password reset\r\n" +
		"\r\n" +
		"Use this token to reset your password (valid for 1 hour):\r\n\r\n" +
		token + "\r\n\r\n" +
		"If you did not request a reset, ignore this mail.\r\n")

	var a smtp.Auth
	if m.cfg.User != "" {
		a = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, a, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send reset mail to %s: %w", to, err)
	}
	return nil
}

// ============================================================================
// LogMailer
// ============================================================================

// LogMailer 只记日志的实现（SMTP 未配置时使用）
type LogMailer struct{}

// SendResetToken 把 token 写入日志
func (m *LogMailer) SendResetToken(ctx context.Context, to, token string) error {
	log.Printf("[mailer] (log only) reset token for %s: %s", to, token)
	return nil
}
