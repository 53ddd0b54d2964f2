// Package authn guards routes behind a bearer token.
package authn

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"mamaboss/internal/auth"
	"mamaboss/internal/http/apierr"
	"mamaboss/internal/log"
)

const userIDKey = "user_id"

type ctxKey struct{}

// Authenticator resolves a bearer token to a user ID.
type Authenticator interface {
	Authenticate(token string) (string, error)
}

// RequireUser rejects requests without a valid "Authorization: Bearer"
// header and stores the user ID for handlers.
func RequireUser(a Authenticator, logger *log.Logger) echo.MiddlewareFunc {
	logger = logger.WithComponent(log.ComponentAuth)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return apierr.Unauthorized("authorization header required")
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				return apierr.Unauthorized("invalid authorization header")
			}

			userID, err := a.Authenticate(strings.TrimSpace(token))
			if errors.Is(err, auth.ErrTokenExpired) {
				return apierr.Unauthorized("token expired")
			}
			if err != nil {
				logger.DebugContext(c.Request().Context(), "Rejected bearer token", log.FieldError, err)
				return apierr.Unauthorized("invalid token")
			}

			c.Set(userIDKey, userID)
			req := c.Request()
			ctx := context.WithValue(req.Context(), ctxKey{}, userID)
			ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, userID))
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

// UserID returns the authenticated user, or "" outside RequireUser.
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}

// UserIDFromContext is UserID for code that only has the request context.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
