package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ResetNotifier delivers a password reset token to the account owner out of
// band.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error
}

// LogNotifier writes reset links to the log. It is meant for local
// development when no mail provider is configured.
type LogNotifier struct {
	baseURL string
	logger  *zap.Logger
}

// NewLogNotifier creates a LogNotifier building links under baseURL.
func NewLogNotifier(baseURL string, logger *zap.Logger) *LogNotifier {
	return &LogNotifier{baseURL: baseURL, logger: logger}
}

// SendPasswordReset logs the reset link.
func (n *LogNotifier) SendPasswordReset(_ context.Context, email, token string, expiresAt time.Time) error {
	n.logger.Warn("password reset link (mail delivery disabled)",
		zap.String("email", email),
		zap.String("link", n.baseURL+"/reset/"+token),
		zap.Time("expires_at", expiresAt),
	)
	return nil
}
