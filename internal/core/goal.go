package core

import (
	"fmt"
	"time"
)

type GoalCategory string

const (
	GoalWork      GoalCategory = "trabalho"
	GoalPersonal  GoalCategory = "pessoal"
	GoalFamily    GoalCategory = "familia"
	GoalFinancial GoalCategory = "financeiro"
	GoalHealth    GoalCategory = "saude"
)

func (c GoalCategory) Valid() bool {
	switch c {
	case GoalWork, GoalPersonal, GoalFamily, GoalFinancial, GoalHealth:
		return true
	}
	return false
}

type GoalStatus string

const (
	GoalActive    GoalStatus = "ativa"
	GoalCompleted GoalStatus = "concluida"
	GoalPaused    GoalStatus = "pausada"
)

func (s GoalStatus) Valid() bool {
	switch s {
	case GoalActive, GoalCompleted, GoalPaused:
		return true
	}
	return false
}

type Goal struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Category    GoalCategory `json:"category"`
	Progress    int          `json:"progress"`
	Status      GoalStatus   `json:"status"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type GoalPatch struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Category    *GoalCategory `json:"category,omitempty"`
	Progress    *int          `json:"progress,omitempty"`
	Status      *GoalStatus   `json:"status,omitempty"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
}

func (g Goal) Validate() error {
	if err := validateTitle(g.Title); err != nil {
		return err
	}
	if !g.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, g.Category)
	}
	if !g.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, g.Status)
	}
	return validateProgress(g.Progress)
}

func (g *Goal) Apply(p GoalPatch) {
	if p.Title != nil {
		g.Title = *p.Title
	}
	if p.Description != nil {
		g.Description = *p.Description
	}
	if p.Category != nil {
		g.Category = *p.Category
	}
	if p.Progress != nil {
		g.Progress = *p.Progress
	}
	if p.Status != nil {
		g.Status = *p.Status
	}
	if p.DueDate != nil {
		g.DueDate = p.DueDate
	}
}

// SetProgress clamps progress to 0..100 and marks the goal concluida once
// it reaches 100. A lower value leaves the status as it was.
func (g *Goal) SetProgress(p int) {
	g.Progress = ClampProgress(p)
	if g.Progress >= 100 {
		g.Status = GoalCompleted
	}
}
