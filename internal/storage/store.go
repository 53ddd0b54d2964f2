// Package storage is the persistence port: a key/value store of JSON
// documents partitioned by owner scope. Every domain collection is one
// document under a fixed key and is rewritten whole on each mutation.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

var ErrNotFound = errors.New("storage: key not found")

// GlobalScope holds documents that belong to no single user.
const GlobalScope = ""

const (
	KeyUser          = "mamaboss_user"
	KeyTasks         = "mamaboss_tasks"
	KeyGoals         = "mamaboss_goals"
	KeyEvents        = "mamaboss_events"
	KeyFinances      = "mamaboss_finances"
	KeyCourses       = "mamaboss_courses"
	KeySettings      = "mamaboss_settings"
	KeySubscription  = "mamaboss_subscription"
	KeyTransactions  = "mamaboss_transactions"
	KeyAccounts      = "mamaboss_accounts"
	KeyProcessedPays = "mamaboss_processed_payments"
)

// UserKeys lists the documents kept per user.
var UserKeys = []string{
	KeyUser, KeyTasks, KeyGoals, KeyEvents, KeyFinances,
	KeyCourses, KeySettings, KeySubscription, KeyTransactions,
}

// Store persists raw JSON documents. Scope is the owning user ID or
// GlobalScope. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, scope, key string) ([]byte, error)
	Set(ctx context.Context, scope, key string, value []byte) error
	Remove(ctx context.Context, scope, key string) error
	Clear(ctx context.Context, scope string) error
	Keys(ctx context.Context, scope string) ([]string, error)
	Scopes(ctx context.Context) ([]string, error)
	Close() error
}

// Load decodes the document at scope/key into a T. found is false when
// the key is absent. A document that no longer decodes is logged and
// reported as absent so callers fall back to their defaults.
func Load[T any](ctx context.Context, s Store, scope, key string) (v T, found bool, err error) {
	raw, err := s.Get(ctx, scope, key)
	if errors.Is(err, ErrNotFound) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		slog.WarnContext(ctx, "Discarding unreadable document",
			"component", "storage", "scope", scope, "key", key, "error", err)
		var zero T
		return zero, false, nil
	}
	return v, true, nil
}

// Save encodes v and writes it to scope/key.
func Save[T any](ctx context.Context, s Store, scope, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Set(ctx, scope, key, raw); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
