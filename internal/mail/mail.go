// Package mail delivers outbound email.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
)

// ErrInvalidMessage is returned for messages missing a recipient or subject.
var ErrInvalidMessage = errors.New("invalid mail message")

// Message is one plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidMessage)
	}
	if strings.ContainsAny(m.To, "\r\n") || strings.ContainsAny(m.Subject, "\r\n") {
		return fmt.Errorf("%w: header contains line break", ErrInvalidMessage)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	return nil
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	from   string
	logger *slog.Logger
}

// NewLogSender creates a sender for local development.
func NewLogSender(from string, logger *slog.Logger) *LogSender {
	return &LogSender{from: from, logger: logger.With("component", "mail.log")}
}

// Send logs the message.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "mail sent",
		"from", s.from,
		"to", msg.To,
		"subject", msg.Subject,
		"body_bytes", len(msg.Body),
	)
	return nil
}

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Addr     string
	Username string
	Password string
	From     string
}

// SMTPSender delivers through an SMTP relay with PLAIN auth when
// credentials are configured.
type SMTPSender struct {
	cfg    SMTPConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger *slog.Logger
}

// NewSMTPSender creates an SMTP sender.
func NewSMTPSender(cfg SMTPConfig, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, send: smtp.SendMail, logger: logger.With("component", "mail.smtp")}
}

// Send delivers the message. smtp.SendMail does not take a context, so
// cancellation is only checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		host, _, err := net.SplitHostPort(s.cfg.Addr)
		if err != nil {
			return fmt.Errorf("failed to parse SMTP address: %w", err)
		}
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, host)
	}

	if err := s.send(s.cfg.Addr, auth, s.cfg.From, []string{msg.To}, formatMessage(s.cfg.From, msg)); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	s.logger.InfoContext(ctx, "mail sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

func formatMessage(from string, msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}
