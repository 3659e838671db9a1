package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/tyemirov/cyberhelp/internal/config"
	"github.com/tyemirov/cyberhelp/internal/httpapi"
	"github.com/tyemirov/cyberhelp/internal/journal"
	"github.com/tyemirov/cyberhelp/internal/mail"
	"github.com/tyemirov/cyberhelp/internal/ratelimit"
	"github.com/tyemirov/cyberhelp/internal/service"
	"github.com/tyemirov/cyberhelp/internal/site"
	"github.com/tyemirov/cyberhelp/pkg/logging"
	"github.com/tyemirov/cyberhelp/pkg/secret"
)

const redisConnectTimeout = 5 * time.Second

type application struct {
	server  *httpapi.Server
	journal *journal.Store
	redis   *redis.Client
	logger  *slog.Logger
}

func main() {
	_ = godotenv.Load()

	configuration, configErr := config.LoadConfig()
	if configErr != nil {
		fallbackLogger := logging.NewLogger("INFO")
		for _, errMsg := range strings.Split(configErr.Error(), ", ") {
			fallbackLogger.Error("configuration_error", "detail", errMsg)
		}
		os.Exit(1)
	}

	mainLogger := logging.NewLoggerWithFormat(configuration.LogLevel, configuration.LogFormat, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, appErr := newApplication(ctx, configuration, mainLogger)
	if appErr != nil {
		mainLogger.Error("startup_failed", "error", appErr)
		os.Exit(1)
	}
	if runErr := app.run(ctx); runErr != nil {
		mainLogger.Error("server_failed", "error", runErr)
		os.Exit(1)
	}
}

func newApplication(ctx context.Context, configuration config.Config, logger *slog.Logger) (*application, error) {
	siteConfig, siteErr := site.Load(configuration.SiteConfigPath)
	if siteErr != nil {
		return nil, siteErr
	}

	sender, senderErr := mail.NewSender(configuration, logger)
	if senderErr != nil {
		return nil, senderErr
	}

	app := &application{logger: logger}

	var recorder service.Recorder
	var deliveries httpapi.DeliveryLister
	if configuration.JournalEnabled() {
		store, storeErr := journal.Open(configuration.DatabasePath, logger)
		if storeErr != nil {
			return nil, fmt.Errorf("open delivery journal: %w", storeErr)
		}
		app.journal = store
		recorder = store
		deliveries = store
		if configuration.AdminAuthToken != "" && !secret.Strong(configuration.AdminAuthToken) {
			logger.Warn("admin_token_weak", "hint", "generate one with cyberhelp-cli generate-secret")
		}
	}

	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if configuration.RateLimitEnabled() {
		connectCtx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
		client, connectErr := ratelimit.Connect(connectCtx, configuration.RedisURL)
		cancel()
		if connectErr != nil {
			logger.Warn("rate_limit_disabled", "error", connectErr)
		} else {
			app.redis = client
			limiter = ratelimit.NewRedisLimiter(client, configuration.SubmissionRateLimit, ratelimit.DefaultWindow)
		}
	}

	submissions := service.NewSubmissionService(sender, recorder, configuration, siteConfig, logger)
	if !submissions.Configured() {
		logger.Warn("mail_not_configured", "provider", configuration.MailProvider)
	}

	server, serverErr := httpapi.NewServer(httpapi.Config{
		ListenAddr:     configuration.HTTPListenAddr,
		StaticRoot:     configuration.HTTPStaticRoot,
		AllowedOrigins: configuration.HTTPAllowedOrigins,
		TrustedProxies: configuration.HTTPTrustedProxies,
		Site:           siteConfig,
		Submissions:    submissions,
		Deliveries:     deliveries,
		AdminToken:     configuration.AdminAuthToken,
		Limiter:        limiter,
		Logger:         logger,
	})
	if serverErr != nil {
		app.close()
		return nil, serverErr
	}
	app.server = server
	return app, nil
}

// run serves until ctx is cancelled or the listener fails, then shuts down.
func (app *application) run(ctx context.Context) error {
	defer app.close()

	serveErrors := make(chan error, 1)
	go func() {
		serveErrors <- app.server.Start()
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		app.logger.Info("shutdown_requested")
	case serveErr = <-serveErrors:
		if serveErr != nil {
			app.logger.Error("http_server_failed", "error", serveErr)
		}
	}

	if shutdownErr := app.server.Shutdown(context.Background()); shutdownErr != nil {
		return errors.Join(serveErr, shutdownErr)
	}
	app.logger.Info("server_stopped")
	return serveErr
}

func (app *application) close() {
	if app.journal != nil {
		if closeErr := app.journal.Close(); closeErr != nil {
			app.logger.Warn("journal_close_failed", "error", closeErr)
		}
	}
	if app.redis != nil {
		if closeErr := app.redis.Close(); closeErr != nil {
			app.logger.Warn("redis_close_failed", "error", closeErr)
		}
	}
}
