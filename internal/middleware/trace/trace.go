package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"mamaboss/internal/log"
	"mamaboss/internal/metrics"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID. The same name is used
	// for the echo.Context value.
	RequestIDKey ContextKey = "request_id"

	headerRequestID = "X-Request-ID"
)

// Middleware assigns a request id, then logs and measures each request.
type Middleware struct {
	logger  *log.StructuredLogger
	metrics *metrics.Metrics
}

// NewMiddleware creates a new trace middleware
func NewMiddleware(logger *log.Logger, m *metrics.Metrics) *Middleware {
	return &Middleware{
		logger:  log.NewStructuredLogger(logger),
		metrics: m,
	}
}

// Handler returns the echo middleware. An incoming X-Request-ID is kept
// when it is short enough to be an id.
func (m *Middleware) Handler(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		requestID := req.Header.Get(headerRequestID)
		if requestID == "" || len(requestID) > 64 {
			requestID = GenerateRequestID()
		}
		c.Set(string(RequestIDKey), requestID)
		c.Response().Header().Set(headerRequestID, requestID)
		c.SetRequest(req.WithContext(context.WithValue(req.Context(), RequestIDKey, requestID)))

		err := next(c)
		if err != nil {
			// Let echo render the error now so the status is final.
			c.Error(err)
		}

		status := c.Response().Status
		duration := time.Since(start)
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		m.metrics.ObserveHTTP(route, req.Method, status, duration)
		m.logger.LogHTTPEnd(c.Request().Context(), req.Method, req.URL.Path, req.URL.RawQuery,
			status, duration.Milliseconds(), c.RealIP())
		return nil
	}
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
