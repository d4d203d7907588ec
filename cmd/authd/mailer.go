package main

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/openconvo/authcore"
)

// smtpMailer sends notification mail over plain SMTP with AUTH. Delivery
// failures are the engine's to audit and swallow; this type just reports
// them.
type smtpMailer struct {
	addr string
	auth smtp.Auth
	from string
}

func newSMTPMailer(cfg serviceConfig) *smtpMailer {
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
	}
	return &smtpMailer{
		addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		auth: auth,
		from: cfg.SMTPFrom,
	}
}

func (m *smtpMailer) SendWelcome(_ context.Context, user *authcore.PublicUser) error {
	subject := "Welcome!"
	body := fmt.Sprintf("Hi %s,\r\n\r\nYour account is ready.\r\n", user.FirstName)
	return m.send(user.Email, subject, body)
}

func (m *smtpMailer) SendLoginNotification(_ context.Context, user *authcore.PublicUser, ip string) error {
	subject := "New sign-in to your account"
	body := fmt.Sprintf("Hi %s,\r\n\r\nA new sign-in to your account just happened", user.FirstName)
	if ip != "" {
		body += " from " + ip
	}
	body += ".\r\nIf this was not you, change your password now.\r\n"
	return m.send(user.Email, subject, body)
}

func (m *smtpMailer) send(to, subject, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
