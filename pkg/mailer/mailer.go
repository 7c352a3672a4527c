// Package mailer 封装 SMTP 邮件发送。
package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	mail "github.com/go-mail/mail/v2"
	"go.uber.org/zap"

	"icodses/backend/config"
)

// ErrNotConfigured SMTP 未配置
var ErrNotConfigured = errors.New("smtp 未配置 (mail.smtp_host / mail.from)")

// Message 一封待发送的 HTML 邮件
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer 邮件发送接口
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// ── SMTP 实现 ──

type smtpMailer struct {
	dialer *mail.Dialer
	from   string
}

// New 按配置创建 Mailer；SMTP 未配置时返回只记录日志的实现
func New(cfg *config.MailConfig, logger *zap.Logger) Mailer {
	if !cfg.Enabled() {
		logger.Warn("SMTP 未配置，邮件将只记录日志")
		return &logMailer{logger: logger}
	}

	d := mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.SMTPHost,
		InsecureSkipVerify: cfg.SkipTLSVerify,
	}
	d.Timeout = 15 * time.Second

	return &smtpMailer{dialer: d, from: cfg.From}
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mm := mail.NewMessage()
	mm.SetHeader("From", m.from)
	mm.SetHeader("To", msg.To)
	mm.SetHeader("Subject", msg.Subject)
	mm.SetBody("text/html", msg.HTML)

	if err := m.dialer.DialAndSend(mm); err != nil {
		return fmt.Errorf("发送邮件到 %s 失败: %w", msg.To, err)
	}
	return nil
}

// ── 未配置时的降级实现 ──

type logMailer struct {
	logger *zap.Logger
}

func (m *logMailer) Send(_ context.Context, msg Message) error {
	m.logger.Warn("邮件未发送（SMTP 未配置）",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return ErrNotConfigured
}

// ── 重试 ──

// SendWithRetry 有限次重试发送，退避时间按 2 的幂增长
// ErrNotConfigured 属于永久错误，不重试
func SendWithRetry(ctx context.Context, m Mailer, msg Message, attempts int, backoff time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = m.Send(ctx, msg); err == nil {
			return nil
		}
		if errors.Is(err, ErrNotConfigured) || i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(Backoff(backoff, i+1)):
		}
	}
	return err
}

// Backoff 第 attempt 次失败后的等待时间：base * 2^(attempt-1)，上限 1 小时
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= time.Hour {
			return time.Hour
		}
	}
	return d
}
