// Package mail delivers a single formatted message through an SMTP relay or a transactional
// email API. Every Sender reports failures as *DeliveryError carrying a FailureKind.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tyemirov/cyberhelp/internal/config"
)

// Sender performs exactly one delivery attempt per call.
type Sender interface {
	Send(ctx context.Context, message Message) error
}

// NewSender builds the Sender selected by cfg.MailProvider.
func NewSender(cfg config.Config, logger *slog.Logger) (Sender, error) {
	timeout := time.Duration(cfg.MailTimeoutSec) * time.Second
	switch cfg.MailProvider {
	case config.ProviderSMTP:
		return NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			Timeout:  timeout,
		}, logger), nil
	case config.ProviderMailgun:
		return NewMailgunSender(MailgunConfig{
			APIKey:  cfg.MailgunAPIKey,
			Domain:  cfg.MailgunDomain,
			APIBase: cfg.MailgunAPIBase,
			Timeout: timeout,
		}, logger), nil
	case config.ProviderSMTP2GO:
		return NewSMTP2GOSender(logger), nil
	case config.ProviderLog:
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("mail: unsupported provider %q", cfg.MailProvider)
	}
}
