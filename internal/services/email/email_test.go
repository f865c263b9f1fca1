// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/portfolio-admin/internal/config"
	"codeberg.org/oliverandrich/portfolio-admin/internal/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func validSMTPConfig() *config.SMTPConfig {
	return &config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "testuser",
		Password: "testpass",
		From:     "noreply@example.com",
		FromName: "Portfolio Admin",
		TLS:      true,
	}
}

func TestNewSMTPSender(t *testing.T) {
	sender, err := NewSMTPSender(validSMTPConfig(), time.Hour)

	require.NoError(t, err)
	assert.NotNil(t, sender)
}

func TestNewSMTPSender_MissingHost(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.Host = ""

	_, err := NewSMTPSender(cfg, time.Hour)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP host is required")
}

func TestNewSMTPSender_MissingFrom(t *testing.T) {
	cfg := validSMTPConfig()
	cfg.From = ""

	_, err := NewSMTPSender(cfg, time.Hour)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP from address is required")
}

func TestNewSender(t *testing.T) {
	t.Run("smtp when host set", func(t *testing.T) {
		sender, err := NewSender(validSMTPConfig(), time.Hour)

		require.NoError(t, err)
		assert.IsType(t, &SMTPSender{}, sender)
	})

	t.Run("log without host", func(t *testing.T) {
		sender, err := NewSender(&config.SMTPConfig{}, time.Hour)

		require.NoError(t, err)
		assert.IsType(t, &LogSender{}, sender)
	})
}

func TestRender(t *testing.T) {
	require.NoError(t, i18n.Init())
	ctx := i18n.WithLocale(context.Background(), language.English)

	msg := Render(ctx, "User", "482913", time.Hour)

	assert.Equal(t, "Your verification code", msg.Subject)
	assert.Contains(t, msg.Body, "Hello User")
	assert.Contains(t, msg.Body, "482913")
	assert.Contains(t, msg.Body, "60 minutes")
}

func TestRender_German(t *testing.T) {
	require.NoError(t, i18n.Init())
	ctx := i18n.WithLocale(context.Background(), language.German)

	msg := Render(ctx, "Admin", "482913", 30*time.Minute)

	assert.Equal(t, "Dein Bestätigungscode", msg.Subject)
	assert.Contains(t, msg.Body, "Hallo Admin")
	assert.Contains(t, msg.Body, "30 Minuten")
}

func TestBuildMessage(t *testing.T) {
	sender, err := NewSMTPSender(validSMTPConfig(), time.Hour)
	require.NoError(t, err)

	msg, err := sender.buildMessage("a@x.com", "User", Message{Subject: "s", Body: "b"})

	require.NoError(t, err)
	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"<a@x.com>"}, rcpts)
	from, err := msg.GetSender(false)
	require.NoError(t, err)
	assert.Equal(t, "<noreply@example.com>", from)
}

func TestBuildMessage_InvalidRecipient(t *testing.T) {
	sender, err := NewSMTPSender(validSMTPConfig(), time.Hour)
	require.NoError(t, err)

	_, err = sender.buildMessage("not an address", "User", Message{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "setting to address")
}

func TestClientOptions(t *testing.T) {
	tests := []struct {
		name  string
		port  int
		tls   bool
		user  string
		count int
	}{
		{"starttls with auth", 587, true, "user", 5},
		{"implicit tls", 465, true, "", 3},
		{"plain without auth", 25, false, "", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validSMTPConfig()
			cfg.Port = tt.port
			cfg.TLS = tt.tls
			cfg.Username = tt.user
			sender, err := NewSMTPSender(cfg, time.Hour)
			require.NoError(t, err)

			assert.Len(t, sender.clientOptions(), tt.count)
		})
	}
}

func TestLogSender(t *testing.T) {
	sender := &LogSender{ttl: time.Hour}

	err := sender.SendVerification(context.Background(), "a@x.com", "User", "482913")

	assert.NoError(t, err)
}
