package command

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/tyemirov/cyberhelp/internal/config"
	"github.com/tyemirov/cyberhelp/internal/mail"
	"github.com/tyemirov/cyberhelp/pkg/secret"
)

const testSiteDocument = `site:
  title: CyberHelp Desk
contact:
  email: help@cyberhelp.test
  notification_email: desk@cyberhelp.test
`

type stubSender struct {
	messages []mail.Message
	err      error
}

func (sender *stubSender) Send(_ context.Context, message mail.Message) error {
	sender.messages = append(sender.messages, message)
	return sender.err
}

type stubGenerator struct {
	lengths []int
	err     error
}

func (generator *stubGenerator) GenerateSecret(_ context.Context, length secret.ByteLength) (string, error) {
	generator.lengths = append(generator.lengths, length.Value())
	if generator.err != nil {
		return "", generator.err
	}
	return "generated-secret", nil
}

type harness struct {
	output        *bytes.Buffer
	sender        *stubSender
	generator     *stubGenerator
	usedProviders []string
	dependencies  Dependencies
}

func newHarness(t *testing.T, configuration config.Config) *harness {
	t.Helper()

	sitePath := filepath.Join(t.TempDir(), "site-config.yaml")
	if writeErr := os.WriteFile(sitePath, []byte(testSiteDocument), 0o600); writeErr != nil {
		t.Fatalf("write site config: %v", writeErr)
	}
	configuration.SiteConfigPath = sitePath

	testHarness := &harness{
		output:    &bytes.Buffer{},
		sender:    &stubSender{},
		generator: &stubGenerator{},
	}
	testHarness.dependencies = Dependencies{
		Viper: viper.New(),
		LoadConfig: func() (config.Config, error) {
			return configuration, nil
		},
		NewSender: func(cfg config.Config, _ *slog.Logger) (mail.Sender, error) {
			testHarness.usedProviders = append(testHarness.usedProviders, cfg.MailProvider)
			return testHarness.sender, nil
		},
		SecretGenerator: testHarness.generator,
		Output:          testHarness.output,
	}
	return testHarness
}

func (testHarness *harness) execute(args ...string) error {
	root := NewRootCommand(testHarness.dependencies)
	root.SetArgs(args)
	root.SetErr(&bytes.Buffer{})
	return root.Execute()
}

func readyConfig() config.Config {
	return config.Config{
		MailProvider:   config.ProviderSMTP,
		MailFromEmail:  "noreply@cyberhelp.test",
		MailTimeoutSec: 5,
		SMTPUsername:   "relay-user",
		SMTPPassword:   "relay-secret",
	}
}

func TestCheckCommandReportsReadiness(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		config        config.Config
		expectedErr   error
		expectedLines []string
	}{
		{
			name:          "ready",
			config:        readyConfig(),
			expectedLines: []string{"provider: smtp", "recipient: desk@cyberhelp.test", "credentials: present", "journal: disabled", "ready"},
		},
		{
			name: "placeholder credentials",
			config: func() config.Config {
				cfg := readyConfig()
				cfg.SMTPPassword = "changeme"
				return cfg
			}(),
			expectedErr:   ErrMailNotReady,
			expectedLines: []string{"credentials: missing"},
		},
		{
			name: "journal and rate limit",
			config: func() config.Config {
				cfg := readyConfig()
				cfg.DatabasePath = "journal.db"
				cfg.RedisURL = "redis://localhost:6379/0"
				cfg.SubmissionRateLimit = 7
				return cfg
			}(),
			expectedLines: []string{"journal: enabled", "rate limit: 7 per hour"},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			testHarness := newHarness(t, testCase.config)
			err := testHarness.execute("check")
			if testCase.expectedErr != nil {
				if !errors.Is(err, testCase.expectedErr) {
					t.Fatalf("expected %v, got %v", testCase.expectedErr, err)
				}
			} else if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			for _, line := range testCase.expectedLines {
				if !strings.Contains(testHarness.output.String(), line) {
					t.Fatalf("expected output to contain %q, got %s", line, testHarness.output.String())
				}
			}
			if len(testHarness.sender.messages) != 0 {
				t.Fatalf("check must not send mail")
			}
		})
	}
}

func TestProviderFlagOverridesEnvironment(t *testing.T) {
	t.Parallel()

	testHarness := newHarness(t, readyConfig())
	if err := testHarness.execute("check", "--provider", "LOG"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(testHarness.usedProviders) != 1 || testHarness.usedProviders[0] != config.ProviderLog {
		t.Fatalf("expected log provider, got %v", testHarness.usedProviders)
	}
}

func TestSendTestCommand(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name              string
		args              []string
		expectedRecipient string
	}{
		{name: "explicit recipient", args: []string{"send-test", "--to", "ops@cyberhelp.test"}, expectedRecipient: "ops@cyberhelp.test"},
		{name: "notification address", args: []string{"send-test"}, expectedRecipient: "desk@cyberhelp.test"},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			testHarness := newHarness(t, readyConfig())
			if err := testHarness.execute(testCase.args...); err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			if len(testHarness.sender.messages) != 1 {
				t.Fatalf("expected one message, got %d", len(testHarness.sender.messages))
			}
			message := testHarness.sender.messages[0]
			if message.To.Email != testCase.expectedRecipient {
				t.Fatalf("expected recipient %s, got %s", testCase.expectedRecipient, message.To.Email)
			}
			if message.From.Email != "noreply@cyberhelp.test" || message.Subject != testSubject {
				t.Fatalf("unexpected message %+v", message)
			}
			if !strings.Contains(testHarness.output.String(), "Test message sent to "+testCase.expectedRecipient) {
				t.Fatalf("unexpected output %s", testHarness.output.String())
			}
		})
	}
}

func TestSendTestCommandReportsFailureKind(t *testing.T) {
	t.Parallel()

	testHarness := newHarness(t, readyConfig())
	testHarness.sender.err = &mail.DeliveryError{Kind: mail.FailureUnauthorized, Provider: "smtp", Err: errors.New("535 authentication failed")}

	err := testHarness.execute("send-test")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), string(mail.FailureUnauthorized)) {
		t.Fatalf("expected failure kind in error, got %v", err)
	}
}

func TestSendTestCommandRequiresCredentials(t *testing.T) {
	t.Parallel()

	cfg := readyConfig()
	cfg.SMTPUsername = ""
	testHarness := newHarness(t, cfg)

	if err := testHarness.execute("send-test"); !errors.Is(err, ErrMailNotReady) {
		t.Fatalf("expected ErrMailNotReady, got %v", err)
	}
	if len(testHarness.sender.messages) != 0 {
		t.Fatalf("expected no message")
	}
}

func TestGenerateSecretCommand(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name           string
		args           []string
		expectedLength int
		expectedErr    string
	}{
		{name: "default length", args: []string{"generate-secret"}, expectedLength: secret.DefaultByteLength().Value()},
		{name: "custom length", args: []string{"generate-secret", "--bytes", "64"}, expectedLength: 64},
		{name: "too short", args: []string{"generate-secret", "--bytes", "8"}, expectedErr: "invalid secret length"},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			testHarness := newHarness(t, readyConfig())
			err := testHarness.execute(testCase.args...)
			if testCase.expectedErr != "" {
				if err == nil || !strings.Contains(err.Error(), testCase.expectedErr) {
					t.Fatalf("expected error %q, got %v", testCase.expectedErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			if len(testHarness.generator.lengths) != 1 || testHarness.generator.lengths[0] != testCase.expectedLength {
				t.Fatalf("unexpected lengths %v", testHarness.generator.lengths)
			}
			if strings.TrimSpace(testHarness.output.String()) != "generated-secret" {
				t.Fatalf("unexpected output %q", testHarness.output.String())
			}
		})
	}
}
