package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	providerMailgun        = "mailgun"
	maxMailgunErrorBody    = 4096
	defaultMailgunTimeout  = 30 * time.Second
	mailgunMessagesPathFmt = "%s/v3/%s/messages"
)

// MailgunConfig describes a Mailgun sending domain.
type MailgunConfig struct {
	APIKey  string
	Domain  string
	APIBase string
	Timeout time.Duration
}

// MailgunSender delivers messages through the Mailgun messages API.
type MailgunSender struct {
	cfg        MailgunConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewMailgunSender creates a MailgunSender with its own HTTP client.
func NewMailgunSender(cfg MailgunConfig, logger *slog.Logger) *MailgunSender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultMailgunTimeout
	}
	return &MailgunSender{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type mailgunResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Send posts message to Mailgun once.
func (sender *MailgunSender) Send(ctx context.Context, message Message) error {
	if err := message.Validate(); err != nil {
		return newDeliveryError(providerMailgun, FailureUnknown, err)
	}

	body, contentType, encodeErr := encodeMailgunForm(message)
	if encodeErr != nil {
		return newDeliveryError(providerMailgun, FailureUnknown, encodeErr)
	}

	endpoint := fmt.Sprintf(mailgunMessagesPathFmt, strings.TrimRight(sender.cfg.APIBase, "/"), sender.cfg.Domain)
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if requestErr != nil {
		return newDeliveryError(providerMailgun, FailureUnknown, requestErr)
	}
	request.SetBasicAuth("api", sender.cfg.APIKey)
	request.Header.Set("Content-Type", contentType)

	response, responseErr := sender.httpClient.Do(request)
	if responseErr != nil {
		sender.logger.Error("mailgun_request_failed", "error", responseErr)
		return newDeliveryError(providerMailgun, FailureUnknown, responseErr)
	}
	defer response.Body.Close()

	responseBody, _ := io.ReadAll(io.LimitReader(response.Body, maxMailgunErrorBody))
	if response.StatusCode >= http.StatusOK && response.StatusCode < http.StatusMultipleChoices {
		var accepted mailgunResponse
		if err := json.Unmarshal(responseBody, &accepted); err == nil {
			sender.logger.Info("mailgun_send_completed", "provider_message_id", accepted.ID)
		}
		return nil
	}

	providerText := strings.TrimSpace(string(responseBody))
	var rejected mailgunResponse
	if err := json.Unmarshal(responseBody, &rejected); err == nil && rejected.Message != "" {
		providerText = rejected.Message
	}
	kind := classifyMailgunStatus(response.StatusCode, providerText)
	sender.logger.Error("mailgun_send_rejected", "status", response.StatusCode, "kind", kind)
	return newDeliveryError(providerMailgun, kind, fmt.Errorf("status %d: %s", response.StatusCode, providerText))
}

func classifyMailgunStatus(statusCode int, providerText string) FailureKind {
	if kind := classifyText(providerText); kind == FailureRecipientRestricted {
		return kind
	}
	switch statusCode {
	case http.StatusUnauthorized:
		return FailureUnauthorized
	case http.StatusNotFound:
		return FailureDomainUnverified
	default:
		return classifyText(providerText)
	}
}

func encodeMailgunForm(message Message) (*bytes.Buffer, string, error) {
	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)

	fields := []struct {
		name  string
		value string
	}{
		{name: "from", value: message.From.String()},
		{name: "to", value: message.To.String()},
		{name: "subject", value: sanitizeHeaderValue(message.Subject)},
		{name: "text", value: message.TextBody},
		{name: "html", value: message.HTMLBody},
		{name: "h:Reply-To", value: sanitizeHeaderValue(message.ReplyTo)},
	}
	for _, formField := range fields {
		if formField.value == "" {
			continue
		}
		if err := writer.WriteField(formField.name, formField.value); err != nil {
			return nil, "", err
		}
	}

	for _, attachment := range message.Attachments {
		contentType := strings.TrimSpace(attachment.ContentType)
		if contentType == "" {
			contentType = defaultAttachmentType
		}
		filename := sanitizeFilename(attachment.Filename)
		part, err := writer.CreatePart(textproto.MIMEHeader{
			"Content-Disposition": {fmt.Sprintf("form-data; name=\"attachment\"; filename=\"%s\"", filename)},
			"Content-Type":        {sanitizeHeaderValue(contentType)},
		})
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(attachment.Data); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buffer, writer.FormDataContentType(), nil
}
