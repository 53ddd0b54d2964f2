package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"mamaboss/internal/core"
	"mamaboss/internal/log"
	"mamaboss/internal/storage"
)

type SettingsService struct {
	deps  Deps
	locks keyedMutex
	slog  *log.StructuredLogger
}

var _ WeekStarter = (*SettingsService)(nil)

func NewSettingsService(deps Deps) *SettingsService {
	deps = deps.withDefaults()
	return &SettingsService{deps: deps, slog: log.NewStructuredLogger(deps.Logger)}
}

// Get returns the defaults overlaid with whatever the user has stored.
// Sections or fields missing from the stored document keep their default.
func (s *SettingsService) Get(ctx context.Context, userID string) (core.Settings, error) {
	defaults := core.DefaultSettings(userID, s.deps.now())
	raw, err := s.deps.Store.Get(ctx, userID, storage.KeySettings)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return defaults, nil
		}
		return core.Settings{}, err
	}
	merged := defaults
	if err := json.Unmarshal(raw, &merged); err != nil {
		s.deps.Logger.WarnContext(ctx, "Discarding unreadable settings",
			log.FieldComponent, log.ComponentSettings,
			log.FieldUserID, userID,
			log.FieldError, err)
		return defaults, nil
	}
	merged.ID, merged.UserID = userID, userID
	return merged, nil
}

// Update merges p section by section and validates the result.
func (s *SettingsService) Update(ctx context.Context, userID string, p core.SettingsPatch) (core.Settings, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	cur, err := s.Get(ctx, userID)
	if err != nil {
		return core.Settings{}, err
	}
	cur.Apply(p)
	if err := cur.Validate(); err != nil {
		return core.Settings{}, err
	}
	cur.UpdatedAt = s.deps.now()
	if err := s.save(ctx, userID, cur); err != nil {
		return core.Settings{}, err
	}
	s.slog.LogMutation(ctx, log.ComponentSettings, log.OpUpdate, userID, "settings", userID)
	return cur, nil
}

// Reset stores the defaults again.
func (s *SettingsService) Reset(ctx context.Context, userID string) (core.Settings, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	defaults := core.DefaultSettings(userID, s.deps.now())
	if err := s.save(ctx, userID, defaults); err != nil {
		return core.Settings{}, err
	}
	s.slog.LogMutation(ctx, log.ComponentSettings, log.OpDelete, userID, "settings", userID)
	return defaults, nil
}

// WeekStart is the first weekday of the user's calendar, as Get reports it.
func (s *SettingsService) WeekStart(ctx context.Context, userID string) (time.Weekday, error) {
	st, err := s.Get(ctx, userID)
	if err != nil {
		return time.Sunday, err
	}
	return st.WeekStartDay(), nil
}

func (s *SettingsService) save(ctx context.Context, userID string, st core.Settings) error {
	if err := storage.Save(ctx, s.deps.Store, userID, storage.KeySettings, st); err != nil {
		return err
	}
	s.deps.Changes.Notify(userID)
	return nil
}
