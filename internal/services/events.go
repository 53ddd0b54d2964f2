package services

import (
	"context"
	"sort"
	"time"

	"mamaboss/internal/core"
	"mamaboss/internal/log"
	"mamaboss/internal/storage"
)

// WeekStarter supplies the first weekday of a user's calendar.
type WeekStarter interface {
	WeekStart(ctx context.Context, userID string) (time.Weekday, error)
}

type EventService struct {
	deps   Deps
	events collection[core.Event]
	weeks  WeekStarter
	slog   *log.StructuredLogger
}

// NewEventService creates the calendar module. Without a WeekStarter the
// month grid starts on Sunday.
func NewEventService(deps Deps, weeks WeekStarter) *EventService {
	deps = deps.withDefaults()
	return &EventService{
		deps:   deps,
		events: newCollection[core.Event](deps, storage.KeyEvents),
		weeks:  weeks,
		slog:   log.NewStructuredLogger(deps.Logger),
	}
}

func (s *EventService) List(ctx context.Context, userID string) ([]core.Event, error) {
	return s.events.list(ctx, userID)
}

func (s *EventService) Get(ctx context.Context, userID, id string) (core.Event, error) {
	events, err := s.events.list(ctx, userID)
	if err != nil {
		return core.Event{}, err
	}
	i, err := indexOf(events, id, eventID)
	if err != nil {
		return core.Event{}, err
	}
	return events[i], nil
}

// Add appends a new event to the calendar.
func (s *EventService) Add(ctx context.Context, userID string, in core.Event) (core.Event, error) {
	now := s.deps.now()
	e := core.Event{
		ID:          newID(),
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Type:        in.Type,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Validate(); err != nil {
		return core.Event{}, err
	}
	err := s.events.update(ctx, userID, func(events []core.Event) ([]core.Event, error) {
		return append(events, e), nil
	})
	if err != nil {
		return core.Event{}, err
	}
	s.slog.LogMutation(ctx, log.ComponentEvents, log.OpCreate, userID, "event", e.ID)
	return e, nil
}

func (s *EventService) Update(ctx context.Context, userID, id string, p core.EventPatch) (core.Event, error) {
	var out core.Event
	err := s.events.update(ctx, userID, func(events []core.Event) ([]core.Event, error) {
		i, err := indexOf(events, id, eventID)
		if err != nil {
			return nil, err
		}
		e := events[i]
		e.Apply(p)
		if err := e.Validate(); err != nil {
			return nil, err
		}
		e.UpdatedAt = s.deps.now()
		events[i] = e
		out = e
		return events, nil
	})
	if err != nil {
		return core.Event{}, err
	}
	s.slog.LogMutation(ctx, log.ComponentEvents, log.OpUpdate, userID, "event", id)
	return out, nil
}

func (s *EventService) Delete(ctx context.Context, userID, id string) error {
	err := s.events.update(ctx, userID, func(events []core.Event) ([]core.Event, error) {
		i, err := indexOf(events, id, eventID)
		if err != nil {
			return nil, err
		}
		return remove(events, i), nil
	})
	if err != nil {
		return err
	}
	s.slog.LogMutation(ctx, log.ComponentEvents, log.OpDelete, userID, "event", id)
	return nil
}

// ByDate returns the events on the same calendar day as day.
func (s *EventService) ByDate(ctx context.Context, userID string, day time.Time) ([]core.Event, error) {
	loc := s.deps.Location
	return s.filter(ctx, userID, func(e core.Event) bool { return core.SameDay(e.Date, day, loc) })
}

// ByMonth returns the events dated in year/month, month being 1..12.
func (s *EventService) ByMonth(ctx context.Context, userID string, year, month int) ([]core.Event, error) {
	if err := core.ValidateMonth(month); err != nil {
		return nil, err
	}
	loc := s.deps.Location
	return s.filter(ctx, userID, func(e core.Event) bool { return core.InMonth(e.Date, year, month, loc) })
}

func (s *EventService) ByType(ctx context.Context, userID string, t core.EventType) ([]core.Event, error) {
	return s.filter(ctx, userID, func(e core.Event) bool { return e.Type == t })
}

// Upcoming returns the events after now, soonest first.
func (s *EventService) Upcoming(ctx context.Context, userID string) ([]core.Event, error) {
	now := s.deps.now()
	out, err := s.filter(ctx, userID, func(e core.Event) bool { return e.Date.After(now) })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// MonthGrid lays out the 42-cell calendar view for year/month.
func (s *EventService) MonthGrid(ctx context.Context, userID string, year, month int) ([]core.CalendarDay, error) {
	if err := core.ValidateMonth(month); err != nil {
		return nil, err
	}
	events, err := s.events.list(ctx, userID)
	if err != nil {
		return nil, err
	}
	start := time.Sunday
	if s.weeks != nil {
		if start, err = s.weeks.WeekStart(ctx, userID); err != nil {
			return nil, err
		}
	}
	return core.MonthGrid(year, month, start, s.deps.now(), events), nil
}

func (s *EventService) filter(ctx context.Context, userID string, keep func(core.Event) bool) ([]core.Event, error) {
	events, err := s.events.list(ctx, userID)
	if err != nil {
		return nil, err
	}
	return core.Filter(events, keep), nil
}

func eventID(e core.Event) string { return e.ID }
