package mail

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// sender is the part of the Resend emails API used here.
type sender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendMailer delivers password reset links through Resend.
type ResendMailer struct {
	emails  sender
	from    string
	baseURL string
	logger  *zap.Logger
}

// NewResendMailer creates a mailer sending from the given address. Links
// point at baseURL.
func NewResendMailer(apiKey, from, baseURL string, logger *zap.Logger) *ResendMailer {
	return newResendMailer(resend.NewClient(apiKey).Emails, from, baseURL, logger)
}

func newResendMailer(emails sender, from, baseURL string, logger *zap.Logger) *ResendMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResendMailer{
		emails:  emails,
		from:    from,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// ResetLink is the page where token can be redeemed.
func (m *ResendMailer) ResetLink(token string) string {
	return m.baseURL + "/reset/" + token
}

// SendPasswordReset emails the reset link to email.
func (m *ResendMailer) SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	link := m.ResetLink(token)
	expiry := expiresAt.UTC().Format("2006-01-02 15:04 MST")

	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{email},
		Subject: "Reset your password",
		Text: fmt.Sprintf("You requested a password reset.\n\nOpen %s to choose a new password. The link expires at %s.\n\nIf you did not request this, ignore this email.",
			link, expiry),
		Html: fmt.Sprintf(`<p>You requested a password reset.</p><p><a href="%s">Choose a new password</a>. The link expires at %s.</p><p>If you did not request this, ignore this email.</p>`,
			html.EscapeString(link), html.EscapeString(expiry)),
	}

	resp, err := m.emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}

	m.logger.Info("password reset email sent", zap.String("email_id", resp.Id))
	return nil
}
