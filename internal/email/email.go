// Package email renders and sends the transactional mail the notification
// worker produces.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"

	"github.com/chatterly/registration-service/config"
)

// Sender delivers a welcome email. Sending the same mail twice is tolerated;
// the worker's at-least-once delivery can produce duplicates.
type Sender interface {
	SendWelcome(ctx context.Context, to, username string) error
}

const welcomeSubject = "Welcome to Chatterly"

const welcomeTemplate = `<html>
<body style="font-family: sans-serif;">
  <h2>Welcome, {{.Username}}!</h2>
  <p>Your account is ready. Log in and say hello.</p>
</body>
</html>`

var welcomeTmpl = template.Must(template.New("welcome").Parse(welcomeTemplate))

var _ Sender = (*SMTPSender)(nil)

// SMTPSender sends mail over plain SMTP. Auth is skipped when no username is
// configured (local relay, mailcatcher in dev).
type SMTPSender struct {
	logger *slog.Logger
	cfg    config.EmailConfig
}

func NewSMTPSender(cfg config.EmailConfig, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{
		logger: logger,
		cfg:    cfg,
	}
}

func (s *SMTPSender) SendWelcome(_ context.Context, to, username string) error {
	var body bytes.Buffer
	if err := welcomeTmpl.Execute(&body, struct{ Username string }{Username: username}); err != nil {
		return fmt.Errorf("email: failed to render welcome template: %w", err)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.cfg.From, to, welcomeSubject, body.String())

	addr := s.cfg.Host + ":" + s.cfg.Port
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("email: failed to send welcome mail: %w", err)
	}

	s.logger.Debug("Welcome email sent", slog.String("to", to))
	return nil
}
