package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"mamaboss/internal/auth"
	"mamaboss/internal/core"
	"mamaboss/internal/http/apierr"
	"mamaboss/internal/log"
	"mamaboss/internal/payment"
	"mamaboss/internal/services"
)

// toHTTPError maps domain and service errors onto API responses.
func toHTTPError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if reason, ok := he.Message.(string); ok {
			return apierr.New(he.Code, reason, apierr.WithCause(he.Internal))
		}
		return he
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		return apierr.New(http.StatusNotFound, "not found", apierr.WithAdvice("check the id"), apierr.WithCause(err))
	case core.IsValidation(err):
		return apierr.BadRequest(err.Error(), apierr.WithCause(err))

	case errors.Is(err, auth.ErrInvalidCredentials):
		return apierr.New(http.StatusUnauthorized, "invalid credentials", apierr.WithAdvice("check your email and password"))
	case errors.Is(err, auth.ErrPasswordMismatch), errors.Is(err, auth.ErrWeakPassword):
		return apierr.BadRequest(err.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		return apierr.New(http.StatusConflict, err.Error(), apierr.WithAdvice("sign in instead, or use another email"))
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenExpired):
		return apierr.Unauthorized(err.Error())
	case errors.Is(err, auth.ErrGoogleDisabled):
		return apierr.New(http.StatusNotImplemented, err.Error())

	case errors.Is(err, services.ErrQuotaExceeded):
		return apierr.New(http.StatusPaymentRequired, err.Error(), apierr.WithAdvice("upgrade to a premium plan to add more"), apierr.WithCause(err))
	case errors.Is(err, services.ErrPremiumRequired):
		return apierr.New(http.StatusPaymentRequired, err.Error(), apierr.WithAdvice("upgrade to a premium plan to unlock this course"))
	case errors.Is(err, services.ErrPaymentDeclined):
		return apierr.New(http.StatusPaymentRequired, err.Error(), apierr.WithAdvice("try another payment method"), apierr.WithCause(err))
	case errors.Is(err, services.ErrPlanNotFound), errors.Is(err, services.ErrMethodNotFound):
		return apierr.BadRequest(err.Error(), apierr.WithCause(err))
	case errors.Is(err, services.ErrNoSubscription):
		return apierr.New(http.StatusNotFound, err.Error(), apierr.WithAdvice("subscribe to a plan first"))
	case errors.Is(err, services.ErrAlreadyOnPlan):
		return apierr.New(http.StatusConflict, err.Error())
	case errors.Is(err, payment.ErrNotFound):
		return apierr.New(http.StatusNotFound, err.Error(), apierr.WithCause(err))
	}

	return apierr.Internal(err)
}

// errorHandler renders every error as an apierr body and logs server-side
// failures with their cause.
func errorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	logger = logger.WithComponent(log.ComponentHTTP)
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		he := toHTTPError(err)
		if he.Code >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request().Context(), "Request failed",
				log.FieldMethod, c.Request().Method,
				log.FieldPath, c.Request().URL.Path,
				log.FieldError, err)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(he.Code)
		} else {
			writeErr = c.JSON(he.Code, he.Message)
		}
		if writeErr != nil {
			logger.ErrorContext(c.Request().Context(), "Failed to write error response", log.FieldError, writeErr)
		}
	}
}
