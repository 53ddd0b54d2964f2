package core

import (
	"fmt"
	"time"
)

type EventType string

const (
	EventFamily EventType = "familia"
	EventWork   EventType = "trabalho"
	EventSchool EventType = "escola"
)

func (t EventType) Valid() bool {
	switch t {
	case EventFamily, EventWork, EventSchool:
		return true
	}
	return false
}

type Event struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	Type        EventType `json:"type"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type EventPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	Type        *EventType `json:"type,omitempty"`
}

func (e Event) Validate() error {
	if err := validateTitle(e.Title); err != nil {
		return err
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: event date is required", ErrInvalidDate)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, e.Type)
	}
	return nil
}

func (e *Event) Apply(p EventPatch) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Type != nil {
		e.Type = *p.Type
	}
}
