package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tyemirov/cyberhelp/internal/journal"
	"github.com/tyemirov/cyberhelp/internal/model"
	"github.com/tyemirov/cyberhelp/internal/ratelimit"
	"github.com/tyemirov/cyberhelp/internal/service"
	"github.com/tyemirov/cyberhelp/internal/site"
)

const (
	defaultTimeout      = 5 * time.Second
	defaultMaxBodyBytes = 64 * 1024 * 1024
)

// SubmissionService is the form pipeline behind the API routes.
type SubmissionService interface {
	SubmitContact(ctx context.Context, submission model.ContactSubmission) (service.Receipt, error)
	SubmitReport(ctx context.Context, submission model.ReportSubmission) (service.Receipt, error)
}

// DeliveryLister exposes journal records to the admin route.
type DeliveryLister interface {
	List(ctx context.Context, status journal.Status, limit int) ([]journal.Delivery, error)
}

// Config captures all inputs required to construct the HTTP server.
type Config struct {
	ListenAddr           string
	StaticRoot           string
	AllowedOrigins       []string
	TrustedProxies       []string
	Site                 site.Config
	Submissions          SubmissionService
	Deliveries           DeliveryLister
	AdminToken           string
	Limiter              ratelimit.Limiter
	Logger               *slog.Logger
	MaxBodyBytes         int64
	ReadHeaderTimeout    time.Duration
	ShutdownGraceTimeout time.Duration
}

// Server hosts the site pages, the form API and embedded assets.
type Server struct {
	config     Config
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer wires Gin, middleware, and handlers.
func NewServer(cfg Config) (*Server, error) {
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return nil, errors.New("httpapi: listen address is required")
	}
	if cfg.Submissions == nil {
		return nil, errors.New("httpapi: submission service is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("httpapi: logger is required")
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.Unlimited{}
	}

	pageTemplates, templateErr := parsePageTemplates()
	if templateErr != nil {
		return nil, templateErr
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	engine.SetHTMLTemplate(pageTemplates)
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(cfg.Logger))

	engine.GET("/healthz", func(contextGin *gin.Context) {
		contextGin.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	assets, assetsErr := assetFileSystem()
	if assetsErr != nil {
		return nil, assetsErr
	}
	engine.StaticFS("/assets", assets)
	if cfg.StaticRoot != "" {
		engine.StaticFS("/static", gin.Dir(filepath.Clean(cfg.StaticRoot), false))
	}

	pages := newPageHandler(cfg.Site)
	pages.register(engine)

	engine.Use(buildCORS(cfg.AllowedOrigins))
	api := engine.Group("/api")

	submissions := newSubmissionHandler(cfg.Submissions, cfg.Logger)
	limited := api.Group("")
	limited.Use(rateLimitMiddleware(cfg.Limiter, cfg.Logger))
	limited.Use(bodyLimitMiddleware(pickBodyLimit(cfg.MaxBodyBytes)))
	limited.POST("/contact", submissions.submitContact)
	limited.POST("/submit-report", submissions.submitReport)

	if cfg.Deliveries != nil && strings.TrimSpace(cfg.AdminToken) != "" {
		admin := api.Group("")
		admin.Use(authMiddleware(cfg.AdminToken))
		admin.GET("/deliveries", newDeliveryHandler(cfg.Deliveries, cfg.Logger).listDeliveries)
	}

	engine.NoRoute(func(contextGin *gin.Context) {
		if strings.HasPrefix(contextGin.Request.URL.Path, "/api/") {
			contextGin.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Not found"})
			return
		}
		pages.notFound(contextGin)
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           engine,
		ReadHeaderTimeout: pickDuration(cfg.ReadHeaderTimeout, defaultTimeout),
	}

	return &Server{
		config:     cfg,
		httpServer: httpServer,
		logger:     cfg.Logger,
	}, nil
}

// Start begins serving HTTP traffic.
func (server *Server) Start() error {
	server.logger.Info("http_server_listening", "addr", server.httpServer.Addr)
	err := server.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully terminates the HTTP server.
func (server *Server) Shutdown(ctx context.Context) error {
	timeout := pickDuration(server.config.ShutdownGraceTimeout, defaultTimeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return server.httpServer.Shutdown(ctx)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		started := time.Now()
		contextGin.Next()
		logger.Info(
			"http_request_completed",
			"method", contextGin.Request.Method,
			"path", contextGin.Request.URL.Path,
			"status", contextGin.Writer.Status(),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}
}

func buildCORS(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowHeaders: []string{"Content-Type", "X-Requested-With", "Authorization"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		MaxAge:       12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
		return cors.New(cfg)
	}
	cfg.AllowOrigins = allowedOrigins
	cfg.AllowCredentials = true
	return cors.New(cfg)
}

func pickDuration(candidate time.Duration, fallback time.Duration) time.Duration {
	if candidate <= 0 {
		return fallback
	}
	return candidate
}

func pickBodyLimit(candidate int64) int64 {
	if candidate <= 0 {
		return defaultMaxBodyBytes
	}
	return candidate
}
