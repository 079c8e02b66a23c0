package mailer

import (
	"context"

	"dayplanner/internal/logger"

	"go.uber.org/zap"
)

// LogMailer logs instead of sending, for development setups without SMTP.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) SendSignInLink(ctx context.Context, email, link string) error {
	logger.Info("Mailer: sign-in link (not sent)",
		zap.String("to", email), zap.String("link", link))
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, link string) error {
	logger.Info("Mailer: password reset link (not sent)",
		zap.String("to", email), zap.String("link", link))
	return nil
}

func (m *LogMailer) SendVerification(ctx context.Context, email, link string) error {
	logger.Info("Mailer: verification link (not sent)",
		zap.String("to", email), zap.String("link", link))
	return nil
}
