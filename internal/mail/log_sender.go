package mail

import (
	"context"
	"log/slog"
)

// LogSender records messages in the log instead of delivering them. It is meant for local runs.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (sender *LogSender) Send(ctx context.Context, message Message) error {
	if err := message.Validate(); err != nil {
		return newDeliveryError("log", FailureUnknown, err)
	}
	sender.logger.InfoContext(ctx,
		"mail_logged",
		"to", message.To.Email,
		"from", message.From.Email,
		"subject", message.Subject,
		"attachments", len(message.Attachments),
		"text_bytes", len(message.TextBody),
		"html_bytes", len(message.HTMLBody),
	)
	return nil
}
