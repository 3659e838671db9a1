package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Mail provider identifiers accepted by MAIL_PROVIDER.
const (
	ProviderSMTP    = "smtp"
	ProviderMailgun = "mailgun"
	ProviderSMTP2GO = "smtp2go"
	ProviderLog     = "log"
)

const (
	defaultHTTPListenAddr      = ":8080"
	defaultSiteConfigPath      = "data/site-config.yaml"
	defaultLogLevel            = "INFO"
	defaultSMTPPort            = 25
	defaultMailgunAPIBase      = "https://api.mailgun.net"
	defaultMailTimeoutSec      = 30
	defaultSubmissionRateLimit = 10
)

type Config struct {
	LogLevel  string
	LogFormat string

	HTTPListenAddr     string
	HTTPStaticRoot     string
	HTTPAllowedOrigins []string
	HTTPTrustedProxies []string
	SiteConfigPath     string

	MailProvider      string
	MailFromEmail     string
	MailFromName      string
	NotificationEmail string
	MailTimeoutSec    int

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	MailgunAPIKey  string
	MailgunDomain  string
	MailgunAPIBase string

	SMTP2GOAPIKey string

	DatabasePath   string
	AdminAuthToken string

	RedisURL            string
	SubmissionRateLimit int
}

// LoadConfig reads the environment concurrently. Every value is optional; provider credentials are
// checked per request so the site keeps serving pages while mail is unconfigured.
func LoadConfig() (Config, error) {
	var configuration Config
	var waitGroup sync.WaitGroup

	taskFunctions := []func() error{
		loadEnvString("LOG_LEVEL", defaultLogLevel, &configuration.LogLevel),
		loadEnvString("LOG_FORMAT", "", &configuration.LogFormat),
		loadEnvString("HTTP_LISTEN_ADDR", defaultHTTPListenAddr, &configuration.HTTPListenAddr),
		loadEnvString("HTTP_STATIC_ROOT", "", &configuration.HTTPStaticRoot),
		loadEnvString("SITE_CONFIG_PATH", defaultSiteConfigPath, &configuration.SiteConfigPath),
		loadEnvProvider("MAIL_PROVIDER", &configuration.MailProvider),
		loadEnvString("MAIL_FROM_NAME", "", &configuration.MailFromName),
		loadEnvString("NOTIFICATION_EMAIL", "", &configuration.NotificationEmail),
		loadEnvInt("MAIL_TIMEOUT_SEC", defaultMailTimeoutSec, &configuration.MailTimeoutSec),
		loadEnvString("SMTP_HOST", "", &configuration.SMTPHost),
		loadEnvInt("SMTP_PORT", defaultSMTPPort, &configuration.SMTPPort),
		loadEnvString("SMTP_USERNAME", "", &configuration.SMTPUsername),
		loadEnvString("SMTP_PASSWORD", "", &configuration.SMTPPassword),
		loadEnvString("MAILGUN_API_KEY", "", &configuration.MailgunAPIKey),
		loadEnvString("MAILGUN_DOMAIN", "", &configuration.MailgunDomain),
		loadEnvString("MAILGUN_API_BASE", defaultMailgunAPIBase, &configuration.MailgunAPIBase),
		loadEnvString("SMTP2GO_API_KEY", "", &configuration.SMTP2GOAPIKey),
		loadEnvString("DATABASE_PATH", "", &configuration.DatabasePath),
		loadEnvString("ADMIN_AUTH_TOKEN", "", &configuration.AdminAuthToken),
		loadEnvString("REDIS_URL", "", &configuration.RedisURL),
		loadEnvInt("SUBMISSION_RATE_LIMIT", defaultSubmissionRateLimit, &configuration.SubmissionRateLimit),
	}

	errorChannel := make(chan error, len(taskFunctions))
	for _, taskFunction := range taskFunctions {
		waitGroup.Add(1)
		go func(task func() error) {
			defer waitGroup.Done()
			if taskError := task(); taskError != nil {
				errorChannel <- taskError
			}
		}(taskFunction)
	}

	waitGroup.Wait()
	close(errorChannel)

	var errorMessages []string
	for errorValue := range errorChannel {
		errorMessages = append(errorMessages, errorValue.Error())
	}
	if len(errorMessages) > 0 {
		return Config{}, fmt.Errorf("configuration errors: %s", strings.Join(errorMessages, ", "))
	}

	configuration.MailFromEmail = firstNonEmpty(os.Getenv("MAIL_FROM_EMAIL"), os.Getenv("SMTP_FROM_EMAIL"))
	configuration.HTTPAllowedOrigins = parseCSV(os.Getenv("HTTP_ALLOWED_ORIGINS"))
	configuration.HTTPTrustedProxies = parseCSV(os.Getenv("HTTP_TRUSTED_PROXIES"))

	return configuration, nil
}

func loadEnvString(environmentKey string, defaultValue string, destination *string) func() error {
	return func() error {
		environmentValue := strings.TrimSpace(os.Getenv(environmentKey))
		if environmentValue == "" {
			environmentValue = defaultValue
		}
		*destination = environmentValue
		return nil
	}
}

func loadEnvInt(environmentKey string, defaultValue int, destination *int) func() error {
	const invalidIntFormat = "invalid integer for %s: %v"
	const negativeIntFormat = "invalid integer for %s: must not be negative"
	return func() error {
		environmentValue := strings.TrimSpace(os.Getenv(environmentKey))
		if environmentValue == "" {
			*destination = defaultValue
			return nil
		}
		parsedInteger, conversionError := strconv.Atoi(environmentValue)
		if conversionError != nil {
			return fmt.Errorf(invalidIntFormat, environmentKey, conversionError)
		}
		if parsedInteger < 0 {
			return fmt.Errorf(negativeIntFormat, environmentKey)
		}
		*destination = parsedInteger
		return nil
	}
}

func loadEnvProvider(environmentKey string, destination *string) func() error {
	const unsupportedProviderFormat = "unsupported %s %q"
	return func() error {
		provider := strings.ToLower(strings.TrimSpace(os.Getenv(environmentKey)))
		if provider == "" {
			provider = ProviderSMTP
		}
		switch provider {
		case ProviderSMTP, ProviderMailgun, ProviderSMTP2GO, ProviderLog:
			*destination = provider
			return nil
		default:
			return fmt.Errorf(unsupportedProviderFormat, environmentKey, provider)
		}
	}
}

// MailCredentialsPresent reports whether the selected provider has usable, non-placeholder credentials.
func (configuration Config) MailCredentialsPresent() bool {
	switch configuration.MailProvider {
	case ProviderSMTP:
		return !IsPlaceholder(configuration.SMTPUsername) && !IsPlaceholder(configuration.SMTPPassword)
	case ProviderMailgun:
		return !IsPlaceholder(configuration.MailgunAPIKey) && !IsPlaceholder(configuration.MailgunDomain)
	case ProviderSMTP2GO:
		return !IsPlaceholder(configuration.SMTP2GOAPIKey)
	case ProviderLog:
		return true
	default:
		return false
	}
}

// JournalEnabled reports whether delivery outcomes should be recorded.
func (configuration Config) JournalEnabled() bool {
	return configuration.DatabasePath != ""
}

// RateLimitEnabled reports whether a Redis-backed submission limit is configured.
func (configuration Config) RateLimitEnabled() bool {
	return configuration.RedisURL != "" && configuration.SubmissionRateLimit > 0
}

// IsPlaceholder treats empty values and template leftovers such as "changeme",
// "your-api-key" or "<password>" as absent.
func IsPlaceholder(value string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return true
	}
	if strings.HasPrefix(trimmed, "<") && strings.HasSuffix(trimmed, ">") {
		return true
	}
	if strings.HasPrefix(trimmed, "your-") || strings.HasPrefix(trimmed, "your_") {
		return true
	}
	switch trimmed {
	case "changeme", "change-me", "placeholder", "xxx":
		return true
	}
	return false
}

func parseCSV(value string) []string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	rawParts := strings.Split(trimmed, ",")
	var normalized []string
	for _, part := range rawParts {
		candidate := strings.TrimSpace(part)
		if candidate == "" {
			continue
		}
		normalized = append(normalized, candidate)
	}
	return normalized
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
