package mail

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resend.SendEmailResponse), args.Error(1)
}

func TestResendMailer_SendPasswordReset(t *testing.T) {
	ctx := context.Background()
	emails := new(mockSender)
	mailer := newResendMailer(emails, "noreply@katalog.test", "https://katalog.test/", nil)

	emails.On("SendWithContext", ctx, mock.MatchedBy(func(p *resend.SendEmailRequest) bool {
		return p.From == "noreply@katalog.test" &&
			len(p.To) == 1 && p.To[0] == "user@example.com" &&
			containsAll(p.Text, "https://katalog.test/reset/abc123", "2024-06-10 09:00 UTC") &&
			containsAll(p.Html, `href="https://katalog.test/reset/abc123"`)
	})).Return(&resend.SendEmailResponse{Id: "email-1"}, nil).Once()

	err := mailer.SendPasswordReset(ctx, "user@example.com", "abc123", time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	emails.AssertExpectations(t)
}

func TestResendMailer_SendFailure(t *testing.T) {
	emails := new(mockSender)
	mailer := newResendMailer(emails, "noreply@katalog.test", "http://localhost:8080", nil)

	emails.On("SendWithContext", mock.Anything, mock.Anything).Return(nil, errors.New("rate limited")).Once()

	err := mailer.SendPasswordReset(context.Background(), "user@example.com", "abc123", time.Now())
	assert.ErrorContains(t, err, "rate limited")
	assert.Equal(t, "http://localhost:8080/reset/abc123", mailer.ResetLink("abc123"))
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
