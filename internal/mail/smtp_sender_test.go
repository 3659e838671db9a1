package mail

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net"
	netmail "net/mail"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func sampleMessage() Message {
	return Message{
		To:       Address{Email: "desk@cyberhelp.test"},
		From:     Address{Email: "noreply@cyberhelp.test", Name: "CyberHelp Desk"},
		ReplyTo:  "jane@example.com",
		Subject:  "New Contact Form Submission: Help",
		TextBody: "Message:\nLine one\nLine two",
		HTMLBody: "<p>Line one<br>Line two</p>",
	}
}

func TestBuildEmailMessageWithoutAttachments(t *testing.T) {
	t.Helper()

	payload, err := buildEmailMessage(sampleMessage(), time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("build error: %v", err)
	}

	parsed, parseErr := netmail.ReadMessage(bytes.NewReader(payload))
	if parseErr != nil {
		t.Fatalf("parse error: %v", parseErr)
	}
	if parsed.Header.Get("Reply-To") != "jane@example.com" {
		t.Fatalf("unexpected reply-to %q", parsed.Header.Get("Reply-To"))
	}
	decoder := new(mime.WordDecoder)
	subject, _ := decoder.DecodeHeader(parsed.Header.Get("Subject"))
	if subject != "New Contact Form Submission: Help" {
		t.Fatalf("unexpected subject %q", subject)
	}

	mediaType, params, mediaErr := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	if mediaErr != nil || mediaType != "multipart/alternative" {
		t.Fatalf("expected multipart/alternative, got %q (%v)", mediaType, mediaErr)
	}
	parts := readParts(t, parsed.Body, params["boundary"])
	if len(parts) != 2 {
		t.Fatalf("expected text and html parts, got %d", len(parts))
	}
	if !strings.HasPrefix(parts[0].contentType, "text/plain") || parts[0].body != "Message:\nLine one\nLine two" {
		t.Fatalf("unexpected text part %+v", parts[0])
	}
	if !strings.HasPrefix(parts[1].contentType, "text/html") || parts[1].body != "<p>Line one<br>Line two</p>" {
		t.Fatalf("unexpected html part %+v", parts[1])
	}
}

func TestBuildEmailMessageWithAttachments(t *testing.T) {
	t.Helper()

	message := sampleMessage()
	message.Attachments = []Attachment{
		{Filename: "statement.pdf", ContentType: "application/pdf", Data: bytes.Repeat([]byte{0x25, 0x50, 0x44, 0x46}, 64)},
		{Filename: "notes.bin", Data: []byte("raw bytes")},
	}

	payload, err := buildEmailMessage(message, time.Now())
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	parsed, parseErr := netmail.ReadMessage(bytes.NewReader(payload))
	if parseErr != nil {
		t.Fatalf("parse error: %v", parseErr)
	}
	mediaType, params, _ := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	if mediaType != "multipart/mixed" {
		t.Fatalf("expected multipart/mixed, got %q", mediaType)
	}

	reader := multipart.NewReader(parsed.Body, params["boundary"])
	var attachments []Attachment
	partIndex := 0
	for {
		part, nextErr := reader.NextPart()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			t.Fatalf("next part error: %v", nextErr)
		}
		if partIndex == 0 {
			if !strings.HasPrefix(part.Header.Get("Content-Type"), "multipart/alternative") {
				t.Fatalf("expected alternative body first, got %q", part.Header.Get("Content-Type"))
			}
			partIndex++
			continue
		}
		// multipart.Reader only decodes quoted-printable parts.
		encoded, _ := io.ReadAll(part)
		decoded, decodeErr := decodeBase64Lines(encoded)
		if decodeErr != nil {
			t.Fatalf("decode attachment: %v", decodeErr)
		}
		attachments = append(attachments, Attachment{
			Filename:    part.FileName(),
			ContentType: strings.Split(part.Header.Get("Content-Type"), ";")[0],
			Data:        decoded,
		})
		partIndex++
	}

	if len(attachments) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(attachments))
	}
	if attachments[0].Filename != "statement.pdf" || attachments[0].ContentType != "application/pdf" {
		t.Fatalf("unexpected first attachment %+v", attachments[0])
	}
	if !bytes.Equal(attachments[0].Data, message.Attachments[0].Data) {
		t.Fatalf("first attachment content mismatch")
	}
	if attachments[1].ContentType != defaultAttachmentType {
		t.Fatalf("expected default content type, got %q", attachments[1].ContentType)
	}
	if !bytes.Equal(attachments[1].Data, []byte("raw bytes")) {
		t.Fatalf("second attachment content mismatch")
	}
}

func TestSanitizeFilenameStripsControlCharacters(t *testing.T) {
	t.Helper()

	message := sampleMessage()
	message.Attachments = []Attachment{{
		Filename:    "invoice.pdf\r\nBcc:spam@example.com",
		ContentType: "application/pdf",
		Data:        []byte("payload"),
	}}
	payload, err := buildEmailMessage(message, time.Now())
	if err != nil {
		t.Fatalf("build error: %v", err)
	}
	text := string(payload)
	if strings.Contains(text, "\r\nBcc:") || strings.Contains(text, "\nBcc:") {
		t.Fatalf("expected header injection attempt to be stripped")
	}
	if !strings.Contains(text, "filename=\"invoice.pdfBcc:spam@example.com\"") {
		t.Fatalf("expected sanitized filename without control characters")
	}
}

func TestClassifySMTPError(t *testing.T) {
	t.Helper()

	testCases := []struct {
		name     string
		err      error
		expected FailureKind
	}{
		{name: "AuthFailed", err: &textproto.Error{Code: 535, Msg: "5.7.8 Authentication credentials invalid"}, expected: FailureUnauthorized},
		{name: "RelayDenied", err: &textproto.Error{Code: 554, Msg: "5.7.1 Relay access denied"}, expected: FailureRecipientRestricted},
		{name: "SenderDomain", err: &textproto.Error{Code: 553, Msg: "5.7.1 Sender address rejected: domain not owned"}, expected: FailureDomainUnverified},
		{name: "TrialText", err: &textproto.Error{Code: 550, Msg: "Trial accounts can only send emails to the administrator"}, expected: FailureRecipientRestricted},
		{name: "Mailbox", err: &textproto.Error{Code: 550, Msg: "5.1.1 mailbox unavailable"}, expected: FailureUnknown},
		{name: "Network", err: errors.New("dial tcp: connection refused"), expected: FailureUnknown},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Helper()
			if got := classifySMTPError(testCase.err); got != testCase.expected {
				t.Fatalf("expected %s, got %s", testCase.expected, got)
			}
		})
	}
}

func TestSMTPSenderDeliversThroughRelay(t *testing.T) {
	t.Helper()

	relay := startFakeRelay(t, fakeRelayOptions{})
	sender := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: relay.port, Timeout: 5 * time.Second}, discardLogger())

	if err := sender.Send(context.Background(), sampleMessage()); err != nil {
		t.Fatalf("send error: %v", err)
	}

	transcript := relay.transcript()
	if !strings.Contains(transcript, "MAIL FROM:<noreply@cyberhelp.test>") {
		t.Fatalf("expected MAIL FROM command, transcript: %s", transcript)
	}
	if !strings.Contains(transcript, "RCPT TO:<desk@cyberhelp.test>") {
		t.Fatalf("expected RCPT TO command, transcript: %s", transcript)
	}
	if !strings.Contains(relay.data(), "Reply-To: jane@example.com") {
		t.Fatalf("expected message data to reach the relay")
	}
}

func TestSMTPSenderReportsAuthenticationFailure(t *testing.T) {
	t.Helper()

	relay := startFakeRelay(t, fakeRelayOptions{advertiseAuth: true, authReply: "535 5.7.8 Authentication credentials invalid"})
	sender := NewSMTPSender(SMTPConfig{
		Host:     "127.0.0.1",
		Port:     relay.port,
		Username: "apikey",
		Password: "wrong",
		Timeout:  5 * time.Second,
	}, discardLogger())

	err := sender.Send(context.Background(), sampleMessage())
	if err == nil {
		t.Fatalf("expected authentication error")
	}
	if KindOf(err) != FailureUnauthorized {
		t.Fatalf("expected unauthorized kind, got %s (%v)", KindOf(err), err)
	}
	if strings.Contains(relay.transcript(), "MAIL FROM") {
		t.Fatalf("did not expect MAIL FROM after failed auth")
	}
}

type renderedPart struct {
	contentType string
	body        string
}

func TestSMTPSenderRejectsRelayWithoutAuth(t *testing.T) {
	t.Helper()

	relay := startFakeRelay(t, fakeRelayOptions{advertiseAuth: false})
	sender := NewSMTPSender(SMTPConfig{
		Host:     "127.0.0.1",
		Port:     relay.port,
		Username: "apikey",
		Password: "secret",
		Timeout:  5 * time.Second,
	}, discardLogger())

	err := sender.Send(context.Background(), sampleMessage())
	if !errors.Is(err, ErrSMTPAuthNotOffered) {
		t.Fatalf("expected ErrSMTPAuthNotOffered, got %v", err)
	}
	if KindOf(err) != FailureUnknown {
		t.Fatalf("expected unknown kind, got %s", KindOf(err))
	}
	if strings.Contains(relay.transcript(), "MAIL FROM") {
		t.Fatalf("did not expect MAIL FROM without authentication")
	}
}

func TestCheckAuthTransport(t *testing.T) {
	t.Helper()

	testCases := []struct {
		name          string
		host          string
		authSupported bool
		encrypted     bool
		expected      error
	}{
		{name: "RemoteWithTLS", host: "smtp.example.com", authSupported: true, encrypted: true},
		{name: "LocalWithoutTLS", host: "127.0.0.1", authSupported: true},
		{name: "RemoteWithoutTLS", host: "smtp.example.com", authSupported: true, expected: ErrSMTPAuthInsecure},
		{name: "AuthNotOffered", host: "smtp.example.com", encrypted: true, expected: ErrSMTPAuthNotOffered},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Helper()
			err := checkAuthTransport(testCase.host, testCase.authSupported, testCase.encrypted)
			if testCase.expected == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if !errors.Is(err, testCase.expected) {
				t.Fatalf("expected %v, got %v", testCase.expected, err)
			}
			if kind := classifySMTPError(err); kind != FailureUnknown {
				t.Fatalf("configuration errors must not be classified as %s", kind)
			}
		})
	}
}

func readParts(t *testing.T, body io.Reader, boundary string) []renderedPart {
	t.Helper()

	reader := multipart.NewReader(body, boundary)
	var parts []renderedPart
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return parts
		}
		if err != nil {
			t.Fatalf("next part error: %v", err)
		}
		content, readErr := io.ReadAll(part)
		if readErr != nil {
			t.Fatalf("read part error: %v", readErr)
		}
		contentType := part.Header.Get("Content-Type")
		normalized := strings.ReplaceAll(string(content), "\r\n", "\n")
		parts = append(parts, renderedPart{contentType: contentType, body: normalized})
	}
}

func decodeBase64Lines(encoded []byte) ([]byte, error) {
	joined := strings.Join(strings.Fields(string(encoded)), "")
	return base64.StdEncoding.DecodeString(joined)
}

type fakeRelayOptions struct {
	advertiseAuth bool
	authReply     string
}

type fakeRelay struct {
	port     int
	mutex    sync.Mutex
	commands []string
	payload  strings.Builder
}

func (relay *fakeRelay) transcript() string {
	relay.mutex.Lock()
	defer relay.mutex.Unlock()
	return strings.Join(relay.commands, "\n")
}

func (relay *fakeRelay) data() string {
	relay.mutex.Lock()
	defer relay.mutex.Unlock()
	return relay.payload.String()
}

func startFakeRelay(t *testing.T, options fakeRelayOptions) *fakeRelay {
	t.Helper()

	listener, listenErr := net.Listen("tcp", "127.0.0.1:0")
	if listenErr != nil {
		t.Fatalf("listen error: %v", listenErr)
	}
	t.Cleanup(func() { listener.Close() })

	_, portText, _ := net.SplitHostPort(listener.Addr().String())
	port, _ := strconv.Atoi(portText)
	relay := &fakeRelay{port: port}

	go func() {
		connection, acceptErr := listener.Accept()
		if acceptErr != nil {
			return
		}
		defer connection.Close()
		relay.serve(connection, options)
	}()
	return relay
}

func (relay *fakeRelay) serve(connection net.Conn, options fakeRelayOptions) {
	reader := bufio.NewReader(connection)
	reply := func(line string) {
		_, _ = io.WriteString(connection, line+"\r\n")
	}
	reply("220 relay.test ESMTP")
	for {
		line, readErr := reader.ReadString('\n')
		if readErr != nil {
			return
		}
		command := strings.TrimRight(line, "\r\n")
		relay.mutex.Lock()
		relay.commands = append(relay.commands, command)
		relay.mutex.Unlock()

		upper := strings.ToUpper(command)
		switch {
		case strings.HasPrefix(upper, "EHLO"), strings.HasPrefix(upper, "HELO"):
			if options.advertiseAuth {
				reply("250-relay.test")
				reply("250 AUTH PLAIN")
			} else {
				reply("250 relay.test")
			}
		case strings.HasPrefix(upper, "AUTH"):
			reply(options.authReply)
		case strings.HasPrefix(upper, "MAIL"), strings.HasPrefix(upper, "RCPT"):
			reply("250 2.1.0 Ok")
		case upper == "DATA":
			reply("354 End data with <CR><LF>.<CR><LF>")
			for {
				dataLine, dataErr := reader.ReadString('\n')
				if dataErr != nil {
					return
				}
				if dataLine == ".\r\n" {
					break
				}
				relay.mutex.Lock()
				relay.payload.WriteString(dataLine)
				relay.mutex.Unlock()
			}
			reply("250 2.0.0 Ok: queued")
		case upper == "QUIT":
			reply("221 2.0.0 Bye")
			return
		default:
			reply("501 5.5.4 Syntax error")
		}
	}
}
