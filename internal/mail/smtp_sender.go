package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

const (
	providerSMTP              = "smtp"
	defaultAttachmentType     = "application/octet-stream"
	base64LineLength          = 76
	defaultSMTPConnectTimeout = 10 * time.Second
)

var (
	// ErrSMTPAuthNotOffered means SMTP_USERNAME is set but the relay does not advertise AUTH.
	ErrSMTPAuthNotOffered = errors.New("smtp: relay does not offer AUTH but a username is configured")
	// ErrSMTPAuthInsecure means credentials would cross an unencrypted connection to a remote relay.
	ErrSMTPAuthInsecure = errors.New("smtp: relay did not offer STARTTLS, refusing to send credentials in clear text")
)

// SMTPConfig describes an SMTP relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// SMTPSender delivers messages through an SMTP relay, upgrading with STARTTLS when offered.
type SMTPSender struct {
	cfg    SMTPConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewSMTPSender creates an SMTPSender.
func NewSMTPSender(cfg SMTPConfig, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, logger: logger, now: time.Now}
}

// Send performs one SMTP transaction for message.
func (sender *SMTPSender) Send(ctx context.Context, message Message) error {
	if err := message.Validate(); err != nil {
		return newDeliveryError(providerSMTP, FailureUnknown, err)
	}

	payload, buildErr := buildEmailMessage(message, sender.now())
	if buildErr != nil {
		return newDeliveryError(providerSMTP, FailureUnknown, buildErr)
	}

	if err := sender.transmit(ctx, message, payload); err != nil {
		kind := classifySMTPError(err)
		sender.logger.Error("smtp_send_failed", "host", sender.cfg.Host, "kind", kind, "error", err)
		return newDeliveryError(providerSMTP, kind, err)
	}
	sender.logger.Info("smtp_send_completed", "host", sender.cfg.Host, "attachments", len(message.Attachments))
	return nil
}

func (sender *SMTPSender) transmit(ctx context.Context, message Message, payload []byte) error {
	address := net.JoinHostPort(sender.cfg.Host, strconv.Itoa(sender.cfg.Port))
	timeout := sender.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSMTPConnectTimeout
	}

	dialer := &net.Dialer{Timeout: timeout}
	connection, dialErr := dialer.DialContext(ctx, "tcp", address)
	if dialErr != nil {
		return fmt.Errorf("dial %s: %w", address, dialErr)
	}
	deadline := time.Now().Add(timeout)
	if ctxDeadline, hasDeadline := ctx.Deadline(); hasDeadline && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := connection.SetDeadline(deadline); err != nil {
		connection.Close()
		return fmt.Errorf("set deadline: %w", err)
	}

	client, clientErr := smtp.NewClient(connection, sender.cfg.Host)
	if clientErr != nil {
		connection.Close()
		return fmt.Errorf("smtp handshake: %w", clientErr)
	}
	defer client.Close()

	if supported, _ := client.Extension("STARTTLS"); supported {
		if err := client.StartTLS(&tls.Config{ServerName: sender.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if sender.cfg.Username != "" {
		authSupported, _ := client.Extension("AUTH")
		_, encrypted := client.TLSConnectionState()
		if err := checkAuthTransport(sender.cfg.Host, authSupported, encrypted); err != nil {
			return err
		}
		auth := smtp.PlainAuth("", sender.cfg.Username, sender.cfg.Password, sender.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(message.From.Email); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := client.Rcpt(message.To.Email); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}
	dataWriter, dataErr := client.Data()
	if dataErr != nil {
		return fmt.Errorf("smtp DATA: %w", dataErr)
	}
	if _, err := dataWriter.Write(payload); err != nil {
		dataWriter.Close()
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := dataWriter.Close(); err != nil {
		return fmt.Errorf("smtp end DATA: %w", err)
	}
	// The relay accepted the message once DATA closed; a failed QUIT does not undo that.
	_ = client.Quit()
	return nil
}

// checkAuthTransport mirrors the conditions under which smtp.PlainAuth would refuse to run, so the
// failure names the missing relay capability.
func checkAuthTransport(host string, authSupported bool, encrypted bool) error {
	if !authSupported {
		return fmt.Errorf("%w (host %s)", ErrSMTPAuthNotOffered, host)
	}
	if !encrypted && !isLocalRelay(host) {
		return fmt.Errorf("%w (host %s)", ErrSMTPAuthInsecure, host)
	}
	return nil
}

func isLocalRelay(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// classifySMTPError maps SMTP reply codes and text onto a FailureKind.
func classifySMTPError(err error) FailureKind {
	var protocolError *textproto.Error
	if !errors.As(err, &protocolError) {
		return classifyText(err.Error())
	}
	switch protocolError.Code {
	case 530, 534, 535:
		return FailureUnauthorized
	case 550, 551, 553, 554:
		if kind := classifyText(protocolError.Msg); kind != FailureUnknown {
			return kind
		}
		if strings.Contains(strings.ToLower(protocolError.Msg), "relay") {
			return FailureRecipientRestricted
		}
		return FailureUnknown
	default:
		return classifyText(protocolError.Msg)
	}
}

// buildEmailMessage renders message as an RFC 5322 payload. Bodies become a
// multipart/alternative part; attachments wrap it in multipart/mixed.
func buildEmailMessage(message Message, sentAt time.Time) ([]byte, error) {
	var buffer bytes.Buffer

	writeHeader(&buffer, "From", message.From.String())
	writeHeader(&buffer, "To", message.To.String())
	if message.ReplyTo != "" {
		writeHeader(&buffer, "Reply-To", sanitizeHeaderValue(message.ReplyTo))
	}
	writeHeader(&buffer, "Subject", mime.QEncoding.Encode("utf-8", sanitizeHeaderValue(message.Subject)))
	writeHeader(&buffer, "Date", sentAt.Format(time.RFC1123Z))
	writeHeader(&buffer, "MIME-Version", "1.0")

	if len(message.Attachments) == 0 {
		alternative := multipart.NewWriter(&buffer)
		writeHeader(&buffer, "Content-Type", "multipart/alternative; boundary=\""+alternative.Boundary()+"\"")
		buffer.WriteString("\r\n")
		if err := writeAlternativeParts(alternative, message); err != nil {
			return nil, err
		}
		if err := alternative.Close(); err != nil {
			return nil, err
		}
		return buffer.Bytes(), nil
	}

	mixed := multipart.NewWriter(&buffer)
	writeHeader(&buffer, "Content-Type", "multipart/mixed; boundary=\""+mixed.Boundary()+"\"")
	buffer.WriteString("\r\n")

	var alternativeBuffer bytes.Buffer
	alternative := multipart.NewWriter(&alternativeBuffer)
	if err := writeAlternativeParts(alternative, message); err != nil {
		return nil, err
	}
	if err := alternative.Close(); err != nil {
		return nil, err
	}
	alternativePart, partErr := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"multipart/alternative; boundary=\"" + alternative.Boundary() + "\""},
	})
	if partErr != nil {
		return nil, partErr
	}
	if _, err := alternativePart.Write(alternativeBuffer.Bytes()); err != nil {
		return nil, err
	}

	for _, attachment := range message.Attachments {
		contentType := strings.TrimSpace(attachment.ContentType)
		if contentType == "" {
			contentType = defaultAttachmentType
		}
		filename := sanitizeFilename(attachment.Filename)
		attachmentPart, attachmentErr := mixed.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {sanitizeHeaderValue(contentType) + "; name=\"" + filename + "\""},
			"Content-Disposition":       {"attachment; filename=\"" + filename + "\""},
			"Content-Transfer-Encoding": {"base64"},
		})
		if attachmentErr != nil {
			return nil, attachmentErr
		}
		if err := writeBase64Lines(attachmentPart, attachment.Data); err != nil {
			return nil, err
		}
	}
	if err := mixed.Close(); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func writeAlternativeParts(writer *multipart.Writer, message Message) error {
	bodies := []struct {
		contentType string
		content     string
	}{
		{contentType: "text/plain; charset=\"utf-8\"", content: message.TextBody},
		{contentType: "text/html; charset=\"utf-8\"", content: message.HTMLBody},
	}
	for _, body := range bodies {
		if body.content == "" {
			continue
		}
		part, err := writer.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {body.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return err
		}
		encoder := quotedprintable.NewWriter(part)
		if _, err := io.WriteString(encoder, body.content); err != nil {
			return err
		}
		if err := encoder.Close(); err != nil {
			return err
		}
	}
	return nil
}

func writeBase64Lines(writer io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for start := 0; start < len(encoded); start += base64LineLength {
		end := start + base64LineLength
		if end > len(encoded) {
			end = len(encoded)
		}
		if _, err := io.WriteString(writer, encoded[start:end]+"\r\n"); err != nil {
			return err
		}
	}
	return nil
}

func writeHeader(buffer *bytes.Buffer, name string, value string) {
	buffer.WriteString(name)
	buffer.WriteString(": ")
	buffer.WriteString(value)
	buffer.WriteString("\r\n")
}
