// Package http serves the MamaBoss JSON API on echo.
package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	gommonlog "github.com/labstack/gommon/log"

	"mamaboss/internal/amqp"
	"mamaboss/internal/auth"
	"mamaboss/internal/log"
	"mamaboss/internal/metrics"
	"mamaboss/internal/middleware/authn"
	"mamaboss/internal/middleware/ratelimit"
	"mamaboss/internal/middleware/security"
	"mamaboss/internal/middleware/trace"
	"mamaboss/internal/services"
)

// PaymentNotifier hands a processor notification to whoever applies it:
// the AMQP queue, or the worker directly when there is no broker.
type PaymentNotifier interface {
	PublishPaymentNotification(ctx context.Context, n amqp.PaymentNotification) error
}

// PaymentNotifierFunc adapts a function to PaymentNotifier.
type PaymentNotifierFunc func(ctx context.Context, n amqp.PaymentNotification) error

func (f PaymentNotifierFunc) PublishPaymentNotification(ctx context.Context, n amqp.PaymentNotification) error {
	return f(ctx, n)
}

type Config struct {
	Addr               string
	RateLimitPerMinute int
	LogLevel           string
	Logger             *log.Logger
	Metrics            *metrics.Metrics
	Location           *time.Location
	Now                func() time.Time
	// Ready reports whether dependencies (storage, broker) are usable.
	Ready func(ctx context.Context) error
}

type Server struct {
	echo     *echo.Echo
	cfg      Config
	auth     *auth.Service
	modules  *services.Modules
	payments PaymentNotifier
	limiter  *ratelimit.Limiter
	detector *security.Detector
	logger   *log.Logger

	shutdownOnce sync.Once
}

// NewServer configures middleware and routes, returning a server ready to
// Start.
func NewServer(cfg Config, authSvc *auth.Service, modules *services.Modules, payments PaymentNotifier) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Server{
		echo:     echo.New(),
		cfg:      cfg,
		auth:     authSvc,
		modules:  modules,
		payments: payments,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		detector: security.NewDetector(),
		logger:   cfg.Logger.WithComponent(log.ComponentHTTP),
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	setEchoLogLevel(e, cfg.LogLevel)
	e.IPExtractor = s.detector.ExtractClientIP
	e.HTTPErrorHandler = errorHandler(cfg.Logger)

	e.Use(trace.NewMiddleware(cfg.Logger, cfg.Metrics).Handler)
	e.Use(log.Middleware(cfg.Logger, string(trace.RequestIDKey)))
	e.Use(security.Headers(security.DefaultHeadersConfig()))
	e.Use(s.detector.Middleware(cfg.Logger, false))

	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo

	e.GET("/healthz", s.handleHealth)
	e.GET("/readyz", s.handleReady)
	e.GET("/metrics", echo.WrapHandler(s.cfg.Metrics.Handler()))

	// Mercado Pago does not retry on 429, so the webhook skips the limiter.
	e.Any("/api/webhooks/mercadopago", s.handleMercadoPagoWebhook)

	api := e.Group("/api", s.limiter.Middleware(nil))

	public := api.Group("/auth")
	public.POST("/register", s.handleRegister)
	public.POST("/login", s.handleLogin)
	public.POST("/google", s.handleGoogleLogin)

	private := api.Group("", authn.RequireUser(s.auth, s.cfg.Logger))

	private.POST("/auth/logout", s.handleLogout)
	private.GET("/auth/me", s.handleGetMe)
	private.PATCH("/auth/me", s.handleUpdateMe)

	private.GET("/tasks", s.handleListTasks)
	private.GET("/tasks/pending", s.handlePendingTasks)
	private.GET("/tasks/completed", s.handleCompletedTasks)
	private.POST("/tasks", s.handleCreateTask)
	private.GET("/tasks/:id", s.handleGetTask)
	private.PATCH("/tasks/:id", s.handleUpdateTask)
	private.POST("/tasks/:id/toggle", s.handleToggleTask)
	private.DELETE("/tasks/:id", s.handleDeleteTask)

	private.GET("/goals", s.handleListGoals)
	private.GET("/goals/active", s.handleActiveGoals)
	private.GET("/goals/completed", s.handleCompletedGoals)
	private.POST("/goals", s.handleCreateGoal)
	private.GET("/goals/:id", s.handleGetGoal)
	private.PATCH("/goals/:id", s.handleUpdateGoal)
	private.PUT("/goals/:id/progress", s.handleGoalProgress)
	private.DELETE("/goals/:id", s.handleDeleteGoal)

	private.GET("/events", s.handleListEvents)
	private.GET("/events/upcoming", s.handleUpcomingEvents)
	private.GET("/events/calendar", s.handleCalendar)
	private.POST("/events", s.handleCreateEvent)
	private.GET("/events/:id", s.handleGetEvent)
	private.PATCH("/events/:id", s.handleUpdateEvent)
	private.DELETE("/events/:id", s.handleDeleteEvent)

	private.GET("/finances", s.handleListFinances)
	private.GET("/finances/stats", s.handleFinanceStats)
	private.GET("/finances/breakdown", s.handleFinanceBreakdown)
	private.POST("/finances", s.handleCreateFinance)
	private.GET("/finances/:id", s.handleGetFinance)
	private.PATCH("/finances/:id", s.handleUpdateFinance)
	private.DELETE("/finances/:id", s.handleDeleteFinance)

	private.GET("/courses", s.handleListCourses)
	private.GET("/courses/premium", s.handlePremiumCourses)
	private.GET("/courses/free", s.handleFreeCourses)
	private.GET("/courses/stats", s.handleCourseStats)
	private.POST("/courses", s.handleCreateCourse)
	private.GET("/courses/:id", s.handleGetCourse)
	private.PATCH("/courses/:id", s.handleUpdateCourse)
	private.PUT("/courses/:id/progress", s.handleCourseProgress)
	private.DELETE("/courses/:id", s.handleDeleteCourse)

	private.GET("/settings", s.handleGetSettings)
	private.PATCH("/settings", s.handleUpdateSettings)
	private.POST("/settings/reset", s.handleResetSettings)

	private.GET("/subscription", s.handleGetSubscription)
	private.POST("/subscription", s.handleSubscribe)
	private.DELETE("/subscription", s.handleCancelSubscription)
	private.GET("/subscription/plans", s.handleListPlans)
	private.GET("/subscription/payment-methods", s.handleListPaymentMethods)
	private.GET("/subscription/transactions", s.handleListTransactions)
	private.POST("/subscription/checkout", s.handleCheckout)

	private.GET("/dashboard", s.handleDashboard)
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.cfg.Addr)
	if err := s.echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the rate limiter and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.echo.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(c echo.Context) error {
	if s.cfg.Ready != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := s.cfg.Ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

// now is the request time in the configured zone.
func (s *Server) now() time.Time {
	return s.cfg.Now().In(s.cfg.Location)
}

// setEchoLogLevel keeps echo's own logger in step with LOG_LEVEL.
func setEchoLogLevel(e *echo.Echo, level string) {
	switch strings.ToLower(level) {
	case "debug":
		e.Logger.SetLevel(gommonlog.DEBUG)
	case "info":
		e.Logger.SetLevel(gommonlog.INFO)
	case "error":
		e.Logger.SetLevel(gommonlog.ERROR)
	case "off":
		e.Logger.SetLevel(gommonlog.OFF)
	default:
		e.Logger.SetLevel(gommonlog.WARN)
	}
}
