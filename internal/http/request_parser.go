package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"mamaboss/internal/http/apierr"
)

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams reads ?year= and ?month= (1-12), defaulting each to the
// month containing now. Present but malformed values are rejected.
func ParseMonthParams(c echo.Context, now time.Time) (MonthParams, error) {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(c.QueryParam("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 {
			return MonthParams{}, apierr.BadRequest("invalid year", apierr.WithAdvice("use a four digit year, e.g. ?year=2025"))
		}
		params.Year = y
	}
	if v := strings.TrimSpace(c.QueryParam("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return MonthParams{}, apierr.BadRequest("invalid month", apierr.WithAdvice("months run from 1 to 12"))
		}
		params.Month = m
	}

	return params, nil
}

// ParseDay parses a YYYY-MM-DD value as midnight in loc.
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, apierr.BadRequest("invalid date", apierr.WithAdvice("use the YYYY-MM-DD format"))
	}
	return day, nil
}

// ParseBool parses a query flag such as ?business=true.
func ParseBool(name, value string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, apierr.BadRequest("invalid "+name, apierr.WithAdvice("use true or false"))
	}
	return b, nil
}

// ParseInt parses a numeric query or body value.
func ParseInt(name, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, apierr.BadRequest("invalid "+name, apierr.WithAdvice("use a whole number"))
	}
	return n, nil
}

// enum is a string-backed enumeration from core.
type enum interface {
	~string
	Valid() bool
}

// ParseEnum reads an optional enumerated query value. ok is false when the
// parameter is absent.
func ParseEnum[T enum](c echo.Context, name string) (value T, ok bool, err error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return value, false, nil
	}
	value = T(raw)
	if !value.Valid() {
		return value, false, apierr.BadRequest("invalid "+name, apierr.WithAdvice("unknown value "+strconv.Quote(raw)))
	}
	return value, true, nil
}

// BindBody decodes the JSON request body into v. Unlike c.Bind it never
// reads path or query parameters.
func BindBody(c echo.Context, v any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, v); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusUnsupportedMediaType {
			return apierr.New(http.StatusUnsupportedMediaType, "unsupported content type",
				apierr.WithAdvice("send the body as application/json"))
		}
		return apierr.BadRequest("invalid request body", apierr.WithAdvice("check the JSON syntax and field types"), apierr.WithCause(err))
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
