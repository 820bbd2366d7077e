// Package mail 发送交易类邮件（邮箱验证、密码重置）。
package mail

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"
)

var actionTemplate = template.Must(template.New("action").Parse(`<div style="max-width:480px;margin:0 auto;font-family:sans-serif;padding:24px;">
<h2 style="color:#6366F1;">{{.Title}}</h2>
<p>{{.Lead}}</p>
<a href="{{.Link}}" style="display:inline-block;padding:12px 24px;background:#6366F1;color:#fff;border-radius:8px;text-decoration:none;margin:16px 0;">{{.Button}}</a>
<p style="color:#666;font-size:14px;">{{.Footer}}</p>
</div>`))

type actionData struct {
	Title  string
	Lead   string
	Button string
	Link   string
	Footer string
}

// Message 是一封待发送的邮件。
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer 抽象邮件通道。调用方只记录失败，不向上传播。
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer 在未配置邮件服务时使用，只记录日志。
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("mail not sent, transport disabled",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	return nil
}

// VerificationMessage 构造邮箱验证邮件。
func VerificationMessage(clientURL, to, token string) Message {
	link := actionURL(clientURL, "/verify-email", token)
	return Message{
		To:      to,
		Subject: "LinkPage - Verify your email",
		HTML:    render("Verify your email", "Click the button below to verify your email address.", "Verify email", link, "This link is valid for 24 hours."),
		Text:    fmt.Sprintf("Verify your LinkPage email address: %s\nThis link is valid for 24 hours.", link),
	}
}

// PasswordResetMessage 构造密码重置邮件。
func PasswordResetMessage(clientURL, to, token string) Message {
	link := actionURL(clientURL, "/reset-password", token)
	return Message{
		To:      to,
		Subject: "LinkPage - Reset your password",
		HTML:    render("Reset your password", "Click the button below to choose a new password.", "Reset password", link, "This link is valid for 1 hour."),
		Text:    fmt.Sprintf("Reset your LinkPage password: %s\nThis link is valid for 1 hour.", link),
	}
}

func actionURL(clientURL, path, token string) string {
	return strings.TrimRight(clientURL, "/") + path + "?token=" + url.QueryEscape(token)
}

// render 执行邮件模板；失败时返回空串，邮件仍带纯文本正文。
func render(title, lead, button, link, footer string) string {
	var b strings.Builder
	data := actionData{Title: title, Lead: lead, Button: button, Link: link, Footer: footer}
	if err := actionTemplate.Execute(&b, data); err != nil {
		return ""
	}
	return b.String()
}
