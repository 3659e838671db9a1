package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tyemirov/cyberhelp/internal/config"
	"github.com/tyemirov/cyberhelp/internal/mail"
	"github.com/tyemirov/cyberhelp/internal/service"
	"github.com/tyemirov/cyberhelp/internal/site"
	"github.com/tyemirov/cyberhelp/pkg/logging"
	"github.com/tyemirov/cyberhelp/pkg/secret"
)

const (
	keyLogLevel       = "LOG_LEVEL"
	keyMailProvider   = "MAIL_PROVIDER"
	keySiteConfigPath = "SITE_CONFIG_PATH"

	defaultOperationTimeout = 30 * time.Second
	testSubject             = "CyberHelp Desk delivery test"
)

var ErrMailNotReady = errors.New("mail delivery is not configured")

type SecretGenerator interface {
	GenerateSecret(context.Context, secret.ByteLength) (string, error)
}

type Dependencies struct {
	Viper           *viper.Viper
	LoadConfig      func() (config.Config, error)
	NewSender       func(config.Config, *slog.Logger) (mail.Sender, error)
	SecretGenerator SecretGenerator
	Output          io.Writer
}

func NewRootCommand(dependencies Dependencies) *cobra.Command {
	if dependencies.Viper == nil {
		dependencies.Viper = viper.New()
	}
	if dependencies.LoadConfig == nil {
		dependencies.LoadConfig = config.LoadConfig
	}
	if dependencies.NewSender == nil {
		dependencies.NewSender = mail.NewSender
	}
	dependencies.Viper.AutomaticEnv()

	root := &cobra.Command{
		Use:           "cyberhelp-cli",
		Short:         "Operate the CyberHelp Desk site",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("provider", "", "Mail provider override (smtp, mailgun, smtp2go, log)")
	root.PersistentFlags().String("site-config", "", "Path to the site configuration document")
	root.PersistentFlags().String("log-level", "", "Log level override")
	_ = dependencies.Viper.BindPFlag(keyMailProvider, root.PersistentFlags().Lookup("provider"))
	_ = dependencies.Viper.BindPFlag(keySiteConfigPath, root.PersistentFlags().Lookup("site-config"))
	_ = dependencies.Viper.BindPFlag(keyLogLevel, root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(buildCheckCommand(dependencies))
	root.AddCommand(buildSendTestCommand(dependencies))
	root.AddCommand(buildGenerateSecretCommand(dependencies))
	return root
}

// environment is the resolved configuration shared by check and send-test.
type environment struct {
	config config.Config
	site   site.Config
	sender mail.Sender
	logger *slog.Logger
}

func resolveEnvironment(cmd *cobra.Command, dependencies Dependencies) (environment, error) {
	configuration, configErr := dependencies.LoadConfig()
	if configErr != nil {
		return environment{}, configErr
	}
	if provider := strings.ToLower(strings.TrimSpace(dependencies.Viper.GetString(keyMailProvider))); provider != "" {
		configuration.MailProvider = provider
	}
	if sitePath := strings.TrimSpace(dependencies.Viper.GetString(keySiteConfigPath)); sitePath != "" {
		configuration.SiteConfigPath = sitePath
	}
	if level := strings.TrimSpace(dependencies.Viper.GetString(keyLogLevel)); level != "" {
		configuration.LogLevel = level
	}

	logger := logging.NewLoggerWithFormat(configuration.LogLevel, configuration.LogFormat, cmd.ErrOrStderr())

	siteConfig, siteErr := site.Load(configuration.SiteConfigPath)
	if siteErr != nil {
		return environment{}, siteErr
	}
	sender, senderErr := dependencies.NewSender(configuration, logger)
	if senderErr != nil {
		return environment{}, senderErr
	}
	return environment{config: configuration, site: siteConfig, sender: sender, logger: logger}, nil
}

func buildCheckCommand(dependencies Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report whether the site can deliver form submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := resolveEnvironment(cmd, dependencies)
			if err != nil {
				return err
			}
			submissions := service.NewSubmissionService(env.sender, nil, env.config, env.site, env.logger)

			output := outputOf(dependencies)
			lines := []string{
				fmt.Sprintf("site: %s", env.site.Site.Title),
				fmt.Sprintf("provider: %s", env.config.MailProvider),
				fmt.Sprintf("from: %s", orNone(env.config.MailFromEmail)),
				fmt.Sprintf("recipient: %s", orNone(env.site.NotificationAddress(env.config.NotificationEmail))),
				fmt.Sprintf("credentials: %s", presence(env.config.MailCredentialsPresent())),
				fmt.Sprintf("journal: %s", enabled(env.config.JournalEnabled())),
				fmt.Sprintf("rate limit: %s", rateLimitSummary(env.config)),
			}
			for _, line := range lines {
				if _, writeErr := fmt.Fprintln(output, line); writeErr != nil {
					return writeErr
				}
			}

			if !submissions.Configured() {
				return ErrMailNotReady
			}
			_, writeErr := fmt.Fprintln(output, "ready")
			return writeErr
		},
	}
}

func buildSendTestCommand(dependencies Dependencies) *cobra.Command {
	var recipientInput string

	command := &cobra.Command{
		Use:   "send-test",
		Short: "Send one test message through the configured provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := resolveEnvironment(cmd, dependencies)
			if err != nil {
				return err
			}
			if !env.config.MailCredentialsPresent() || strings.TrimSpace(env.config.MailFromEmail) == "" {
				return ErrMailNotReady
			}

			recipient := strings.TrimSpace(recipientInput)
			if recipient == "" {
				recipient = env.site.NotificationAddress(env.config.NotificationEmail)
			}
			if recipient == "" {
				return errors.New("no recipient: pass --to or configure a notification address")
			}

			timeout := time.Duration(env.config.MailTimeoutSec) * time.Second
			if timeout <= 0 {
				timeout = defaultOperationTimeout
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			sentAt := time.Now().UTC().Format(time.RFC3339)
			message := mail.Message{
				To:       mail.Address{Email: recipient},
				From:     mail.Address{Email: env.config.MailFromEmail, Name: env.config.MailFromName},
				Subject:  testSubject,
				TextBody: fmt.Sprintf("This is a delivery test from %s sent at %s.\n", env.site.Site.Title, sentAt),
				HTMLBody: fmt.Sprintf("<p>This is a delivery test from %s sent at %s.</p>", env.site.Site.Title, sentAt),
			}
			if sendErr := env.sender.Send(ctx, message); sendErr != nil {
				return fmt.Errorf("send test message (%s): %w", mail.KindOf(sendErr), sendErr)
			}

			_, writeErr := fmt.Fprintf(outputOf(dependencies), "Test message sent to %s via %s\n", recipient, env.config.MailProvider)
			return writeErr
		},
	}

	command.Flags().StringVar(&recipientInput, "to", "", "Recipient address (defaults to the notification address)")
	return command
}

func buildGenerateSecretCommand(dependencies Dependencies) *cobra.Command {
	var bytesLength int

	command := &cobra.Command{
		Use:   "generate-secret",
		Short: "Generate an ADMIN_AUTH_TOKEN value",
		RunE: func(cmd *cobra.Command, args []string) error {
			generator := dependencies.SecretGenerator
			if generator == nil {
				return errors.New("secret generator is not configured")
			}

			length := secret.DefaultByteLength()
			if bytesLength > 0 {
				parsedLength, err := secret.NewByteLength(bytesLength)
				if err != nil {
					return fmt.Errorf("invalid secret length: %w", err)
				}
				length = parsedLength
			}

			secretValue, err := generator.GenerateSecret(cmd.Context(), length)
			if err != nil {
				return err
			}
			_, writeErr := fmt.Fprintln(outputOf(dependencies), secretValue)
			return writeErr
		},
	}

	command.Flags().IntVar(&bytesLength, "bytes", 0, "Number of random bytes for the secret (minimum 32)")
	return command
}

func outputOf(dependencies Dependencies) io.Writer {
	if dependencies.Output == nil {
		return io.Discard
	}
	return dependencies.Output
}

func orNone(value string) string {
	if strings.TrimSpace(value) == "" {
		return "(none)"
	}
	return value
}

func presence(present bool) string {
	if present {
		return "present"
	}
	return "missing"
}

func enabled(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}

func rateLimitSummary(configuration config.Config) string {
	if !configuration.RateLimitEnabled() {
		return "disabled"
	}
	return fmt.Sprintf("%d per hour", configuration.SubmissionRateLimit)
}
