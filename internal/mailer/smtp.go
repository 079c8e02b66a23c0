package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"dayplanner/internal/logger"

	"go.uber.org/zap"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends plain-text mail over SMTP with AUTH PLAIN.
type SMTPMailer struct {
	config SMTPConfig
}

func NewSMTPMailer(config SMTPConfig) *SMTPMailer {
	return &SMTPMailer{config: config}
}

func (m *SMTPMailer) SendSignInLink(ctx context.Context, email, link string) error {
	return m.send(email, "Your sign-in link",
		"Follow this link to sign in to your planner:\r\n\r\n"+link+
			"\r\n\r\nThe link can be used once and expires shortly.")
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, email, link string) error {
	return m.send(email, "Password reset",
		"Follow this link to choose a new password:\r\n\r\n"+link+
			"\r\n\r\nIf you did not request a reset, ignore this mail.")
}

func (m *SMTPMailer) SendVerification(ctx context.Context, email, link string) error {
	return m.send(email, "Confirm your account",
		"Follow this link to confirm your account:\r\n\r\n"+link)
}

func (m *SMTPMailer) send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)
	msg := []byte("From: " + m.config.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")

	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	if err := smtp.SendMail(addr, auth, m.config.From, []string{to}, msg); err != nil {
		logger.Warn("Mailer: delivery failed",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err))
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}
