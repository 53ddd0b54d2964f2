// Package apierr is the JSON error body every API failure is rendered as.
package apierr

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ErrorMessage is serialised as {"reason": ..., "advice": ...}.
type ErrorMessage struct {
	Reason string `json:"reason"`
	Advice string `json:"advice,omitempty"`
	Cause  error  `json:"-"`
}

func (e ErrorMessage) Error() string {
	lines := []string{e.Reason}
	if e.Advice != "" {
		lines = append(lines, e.Advice)
	}
	if e.Cause != nil {
		lines = append(lines, "caused by: "+e.Cause.Error())
	}
	return strings.Join(lines, "\n")
}

// MarshalJSON keeps echo's default error handler from rendering the
// message through Error().
func (e ErrorMessage) MarshalJSON() ([]byte, error) {
	type body ErrorMessage
	return json.Marshal(body(e))
}

func (e ErrorMessage) Unwrap() error {
	return e.Cause
}

type Option func(*ErrorMessage)

func WithAdvice(advice string) Option {
	return func(m *ErrorMessage) {
		m.Advice = advice
	}
}

func WithCause(err error) Option {
	return func(m *ErrorMessage) {
		m.Cause = err
	}
}

// New builds an echo error whose body is an ErrorMessage.
func New(code int, reason string, opts ...Option) *echo.HTTPError {
	msg := ErrorMessage{Reason: reason}
	for _, opt := range opts {
		opt(&msg)
	}
	he := echo.NewHTTPError(code, msg)
	if msg.Cause != nil {
		he.Internal = msg.Cause
	}
	return he
}

// BadRequest reports rejected input.
func BadRequest(reason string, opts ...Option) *echo.HTTPError {
	return New(http.StatusBadRequest, reason, opts...)
}

// Unauthorized reports a missing or unusable session.
func Unauthorized(reason string) *echo.HTTPError {
	return New(http.StatusUnauthorized, reason, WithAdvice("sign in again to get a new token"))
}

// Internal hides err behind a generic message.
func Internal(err error) *echo.HTTPError {
	return New(http.StatusInternalServerError, "internal error", WithAdvice("try again later"), WithCause(err))
}
