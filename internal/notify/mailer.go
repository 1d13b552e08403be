// Package notify sends transactional email, currently just the password
// recovery message. Delivery uses plain SMTP with optional AUTH; failures
// are returned to the caller, never retried.
package notify

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/latchwork/latchwork-core/internal/infrastructure/config"
	"github.com/latchwork/latchwork-core/internal/infrastructure/logging"
)

// ErrDisabled is returned when mail delivery is disabled in config.
var ErrDisabled = errors.New("notify: mail disabled in configuration")

// Mailer sends email through the configured SMTP relay.
type Mailer struct {
	cfg    config.MailConfig
	logger *logging.Logger

	// send is replaceable in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewMailer creates a mailer from config.
func NewMailer(cfg config.MailConfig, logger *logging.Logger) *Mailer {
	return &Mailer{
		cfg:    cfg,
		logger: logger.With("component", "notify"),
		send:   smtp.SendMail,
	}
}

// SendPasswordReset mails a one-time reset token to the given address.
// The raw token appears only in this message; the store holds its hash.
func (m *Mailer) SendPasswordReset(to, token string) error {
	subject := "Latchwork password reset"
	body := fmt.Sprintf(
		"A password reset was requested for your account.\r\n\r\n"+
			"Reset token: %s\r\n\r\n"+
			"The token is valid for a limited time and can be used once.\r\n"+
			"If you did not request this, ignore this message.\r\n",
		token,
	)
	return m.Send(to, subject, body)
}

// Send delivers a plain-text message to a single recipient.
func (m *Mailer) Send(to, subject, body string) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}
	if to == "" {
		return errors.New("notify: empty recipient")
	}

	msg := buildMessage(m.cfg.From, to, subject, body)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	if err := m.send(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		m.logger.Error("mail delivery failed", "to", to, "error", err)
		return fmt.Errorf("sending mail: %w", err)
	}

	m.logger.Info("mail sent", "to", to, "subject", subject)
	return nil
}

// buildMessage assembles an RFC 5322 plain-text message.
func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
