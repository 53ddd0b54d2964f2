package core

import (
	"fmt"
	"time"
)

type TaskCategory string

const (
	TaskWork     TaskCategory = "trabalho"
	TaskFamily   TaskCategory = "familia"
	TaskPersonal TaskCategory = "pessoal"
)

func (c TaskCategory) Valid() bool {
	switch c {
	case TaskWork, TaskFamily, TaskPersonal:
		return true
	}
	return false
}

type Priority string

const (
	PriorityHigh   Priority = "alta"
	PriorityMedium Priority = "media"
	PriorityLow    Priority = "baixa"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Weight orders priorities for the dashboard: alta 3, media 2, baixa 1.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

type Task struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Category    TaskCategory `json:"category"`
	Priority    Priority     `json:"priority"`
	Completed   bool         `json:"completed"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// TaskPatch carries a partial update; nil fields are left untouched.
type TaskPatch struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Category    *TaskCategory `json:"category,omitempty"`
	Priority    *Priority     `json:"priority,omitempty"`
	Completed   *bool         `json:"completed,omitempty"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
}

func (t Task) Validate() error {
	if err := validateTitle(t.Title); err != nil {
		return err
	}
	if !t.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, t.Category)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	return nil
}

func (t *Task) Apply(p TaskPatch) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.DueDate != nil {
		t.DueDate = p.DueDate
	}
}
