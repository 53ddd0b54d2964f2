// Package core holds the MamaBoss domain model: entities, enumerations,
// validation rules and the pure aggregations computed over them.
package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrEmptyTitle       = errors.New("empty title")
	ErrTitleTooLong     = errors.New("title too long (max 200 characters)")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidPriority  = errors.New("invalid priority")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidType      = errors.New("invalid type")
	ErrInvalidProgress  = errors.New("invalid progress (must be between 0 and 100)")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidSetting   = errors.New("invalid setting")
	ErrInvalidDuration  = errors.New("invalid duration")
	ErrEmptyDescription = errors.New("empty description")
)

var validationErrors = []error{
	ErrEmptyTitle, ErrTitleTooLong, ErrEmptyName, ErrInvalidEmail,
	ErrInvalidCategory, ErrInvalidPriority, ErrInvalidStatus, ErrInvalidType,
	ErrInvalidProgress, ErrInvalidAmount, ErrInvalidDate, ErrInvalidMonth,
	ErrInvalidSetting, ErrInvalidDuration, ErrEmptyDescription,
}

// IsValidation reports whether err was caused by rejected user input.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

const maxTitleLength = 200

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrEmptyTitle
	}
	if len(title) > maxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

func validateProgress(p int) error {
	if p < 0 || p > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidProgress, p)
	}
	return nil
}

// ClampProgress bounds a progress value to 0..100.
func ClampProgress(p int) int {
	return max(0, min(100, p))
}

// Filter returns the items for which keep reports true, preserving order.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// InMonth reports whether t falls in the given year and month (1-12) in loc.
func InMonth(t time.Time, year, month int, loc *time.Location) bool {
	ty, tm, _ := t.In(loc).Date()
	return ty == year && int(tm) == month
}

// ValidateMonth checks that month is in 1..12.
func ValidateMonth(month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: %d", ErrInvalidMonth, month)
	}
	return nil
}
