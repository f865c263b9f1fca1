// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email delivers one-time verification codes.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/portfolio-admin/internal/config"
	"codeberg.org/oliverandrich/portfolio-admin/internal/i18n"
	"github.com/wneessen/go-mail"
)

// Sender delivers a verification code to a recipient.
type Sender interface {
	SendVerification(ctx context.Context, toEmail, displayName, code string) error
}

// Message is a rendered verification mail.
type Message struct {
	Subject string
	Body    string
}

// Render localizes the verification mail for the locale stored in ctx.
func Render(ctx context.Context, displayName, code string, ttl time.Duration) Message {
	return Message{
		Subject: i18n.T(ctx, "email_verification_subject"),
		Body: i18n.TData(ctx, "email_verification_body", map[string]any{
			"Name":    displayName,
			"Code":    code,
			"Minutes": int(ttl.Minutes()),
		}),
	}
}

// NewSender returns an SMTP sender when a host is configured and a log sender otherwise.
func NewSender(cfg *config.SMTPConfig, codeTTL time.Duration) (Sender, error) {
	if cfg.Host == "" {
		return &LogSender{ttl: codeTTL}, nil
	}
	return NewSMTPSender(cfg, codeTTL)
}

// SMTPSender mails codes through an SMTP relay.
type SMTPSender struct {
	cfg *config.SMTPConfig
	ttl time.Duration
}

// NewSMTPSender creates a sender for the given SMTP settings.
func NewSMTPSender(cfg *config.SMTPConfig, codeTTL time.Duration) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &SMTPSender{cfg: cfg, ttl: codeTTL}, nil
}

// SendVerification mails the code to toEmail, addressing the recipient as displayName.
func (s *SMTPSender) SendVerification(ctx context.Context, toEmail, displayName, code string) error {
	rendered := Render(ctx, displayName, code, s.ttl)

	msg, err := s.buildMessage(toEmail, displayName, rendered)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

func (s *SMTPSender) buildMessage(to, displayName string, rendered Message) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.AddToFormat(displayName, to); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(rendered.Subject)
	msg.SetBodyString(mail.TypeTextPlain, rendered.Body)

	return msg, nil
}

func (s *SMTPSender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	// Implicit TLS on 465, STARTTLS elsewhere
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	return opts
}

// LogSender writes codes to the log instead of mailing them. Used in
// development when no SMTP host is configured.
type LogSender struct {
	ttl time.Duration
}

// SendVerification logs the rendered message.
func (s *LogSender) SendVerification(ctx context.Context, toEmail, displayName, code string) error {
	rendered := Render(ctx, displayName, code, s.ttl)
	slog.InfoContext(ctx, "verification code",
		"to", toEmail,
		"name", displayName,
		"subject", rendered.Subject,
		"code", code,
	)
	return nil
}
