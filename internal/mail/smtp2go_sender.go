package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/smtp2go-oss/smtp2go-go"
)

const providerSMTP2GO = "smtp2go"

var (
	// ErrAttachmentsUnsupported is returned when a provider cannot carry file attachments.
	ErrAttachmentsUnsupported = errors.New("mail: provider does not support attachments")
	// ErrEmptyProviderResponse is returned when the API answered without a result document.
	ErrEmptyProviderResponse = errors.New("mail: provider returned no result")
)

type smtp2goSendFunc func(email *smtp2go.Email) (*smtp2go.Smtp2goApiResult, error)

// SMTP2GOSender delivers messages through the SMTP2GO API. The client library reads
// SMTP2GO_API_KEY and SMTP2GO_API_ROOT from the environment.
//
// The v1 API client has no custom header field, so Message.ReplyTo is not transmitted.
type SMTP2GOSender struct {
	logger *slog.Logger
	send   smtp2goSendFunc
}

// NewSMTP2GOSender creates an SMTP2GOSender backed by smtp2go.Send.
func NewSMTP2GOSender(logger *slog.Logger) *SMTP2GOSender {
	return &SMTP2GOSender{logger: logger, send: smtp2go.Send}
}

type smtp2goOutcome struct {
	result *smtp2go.Smtp2goApiResult
	err    error
}

// Send submits message to SMTP2GO once. The library's HTTP client has no deadline, so the call
// runs in its own goroutine and Send returns when ctx ends; the abandoned request finishes in the
// background.
func (sender *SMTP2GOSender) Send(ctx context.Context, message Message) error {
	if err := message.Validate(); err != nil {
		return newDeliveryError(providerSMTP2GO, FailureUnknown, err)
	}
	if len(message.Attachments) > 0 {
		return newDeliveryError(providerSMTP2GO, FailureUnknown, ErrAttachmentsUnsupported)
	}
	if err := ctx.Err(); err != nil {
		return newDeliveryError(providerSMTP2GO, FailureUnknown, err)
	}

	email := &smtp2go.Email{
		From:     message.From.String(),
		To:       []string{message.To.String()},
		Subject:  sanitizeHeaderValue(message.Subject),
		TextBody: message.TextBody,
		HtmlBody: message.HTMLBody,
	}

	outcomes := make(chan smtp2goOutcome, 1)
	go func() {
		result, err := sender.send(email)
		outcomes <- smtp2goOutcome{result: result, err: err}
	}()

	var deliveryErr *DeliveryError
	select {
	case <-ctx.Done():
		deliveryErr = newDeliveryError(providerSMTP2GO, FailureUnknown, fmt.Errorf("smtp2go request abandoned: %w", ctx.Err()))
	case outcome := <-outcomes:
		deliveryErr = interpretSMTP2GOOutcome(outcome)
	}

	if deliveryErr != nil {
		sender.logger.Error("smtp2go_send_failed", "kind", deliveryErr.Kind, "error", deliveryErr.Err)
		return deliveryErr
	}
	sender.logger.Info("smtp2go_send_completed")
	return nil
}

// interpretSMTP2GOOutcome turns a client result into a DeliveryError. The client reports API
// rejections with a nil error and the reason in result.Data.
func interpretSMTP2GOOutcome(outcome smtp2goOutcome) *DeliveryError {
	if outcome.err != nil {
		var missingKey smtp2go.MissingAPIKeyError
		var malformedKey *smtp2go.IncorrectAPIKeyFormatError
		if errors.As(outcome.err, &missingKey) || errors.As(outcome.err, &malformedKey) {
			return newDeliveryError(providerSMTP2GO, FailureUnauthorized, outcome.err)
		}
		return newDeliveryError(providerSMTP2GO, classifyText(outcome.err.Error()), outcome.err)
	}
	if outcome.result == nil {
		return newDeliveryError(providerSMTP2GO, FailureUnknown, ErrEmptyProviderResponse)
	}

	data := outcome.result.Data
	reason := data.Error
	if reason == "" && data.FieldValidationErrors.Message != "" {
		reason = data.FieldValidationErrors.FieldName + ": " + data.FieldValidationErrors.Message
	}
	if reason == "" {
		return nil
	}
	rejection := fmt.Errorf("smtp2go rejected request %s: %s (%s)", outcome.result.RequestId, reason, data.ErrorCode)
	return newDeliveryError(providerSMTP2GO, classifySMTP2GOError(data.ErrorCode, reason), rejection)
}

func classifySMTP2GOError(code string, text string) FailureKind {
	normalizedCode := strings.ToUpper(code)
	switch {
	case strings.Contains(normalizedCode, "API_KEY"),
		strings.Contains(normalizedCode, "UNAUTHORI"),
		strings.Contains(normalizedCode, "PERMISSION_DENIED"):
		return FailureUnauthorized
	case strings.Contains(normalizedCode, "NOT_VERIFIED"),
		strings.Contains(normalizedCode, "UNVERIFIED"):
		return FailureDomainUnverified
	}
	if kind := classifyText(text); kind != FailureUnknown {
		return kind
	}
	if strings.Contains(strings.ToLower(text), "not verified") {
		return FailureDomainUnverified
	}
	return FailureUnknown
}
