// Package email delivers account verification codes.
//
// Services depend on Sender. NewResendSender talks to the Resend API;
// NewLogSender only writes the code to the log, for development setups
// without an API key.
package email

import (
	"context"
	"fmt"
	"html"

	"github.com/resend/resend-go/v3"
	"go.uber.org/zap"
)

// Sender sends transactional mail.
type Sender interface {
	// SendVerificationCode mails the 6-digit code a new account must
	// confirm before it can log in.
	SendVerificationCode(ctx context.Context, toEmail, username, code string) error
}

type resendSender struct {
	client    *resend.Client
	fromEmail string
}

// NewResendSender builds a Sender backed by Resend. fromEmail must belong
// to a domain verified in Resend.
func NewResendSender(apiKey, fromEmail string) Sender {
	return &resendSender{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
	}
}

func (s *resendSender) SendVerificationCode(ctx context.Context, toEmail, username, code string) error {
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("SafeSpace <%s>", s.fromEmail),
		To:      []string{toEmail},
		Subject: "Your SafeSpace verification code",
		Html:    verificationHTML(username, code),
		Text:    fmt.Sprintf("Hi %s, your SafeSpace verification code is %s.", username, code),
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}

func verificationHTML(username, code string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:0;background-color:#f4f6fb;font-family:Arial,Helvetica,sans-serif;">
  <table width="100%%" cellpadding="0" cellspacing="0" style="padding:40px 0;">
    <tr>
      <td align="center">
        <table width="480" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:8px;padding:40px;">
          <tr>
            <td>
              <h1 style="color:#1e293b;font-size:22px;margin:0 0 16px 0;">Welcome to SafeSpace, %s</h1>
              <p style="color:#475569;font-size:15px;line-height:1.6;margin:0 0 24px 0;">
                Enter this code to verify your email address:
              </p>
              <p style="color:#4f46e5;font-size:32px;font-weight:700;letter-spacing:8px;margin:0 0 24px 0;">%s</p>
              <p style="color:#94a3b8;font-size:13px;margin:0;">
                After verification an administrator still has to approve your account.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`, html.EscapeString(username), html.EscapeString(code))
}

type logSender struct {
	logger *zap.Logger
}

// NewLogSender builds a Sender that logs codes instead of mailing them.
func NewLogSender(logger *zap.Logger) Sender {
	return &logSender{logger: logger.Named("email")}
}

func (s *logSender) SendVerificationCode(_ context.Context, toEmail, username, code string) error {
	s.logger.Info("verification code (email delivery disabled)",
		zap.String("to", toEmail),
		zap.String("user", username),
		zap.String("code", code),
	)
	return nil
}
