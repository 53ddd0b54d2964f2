package services

import (
	"context"

	"mamaboss/internal/core"
	"mamaboss/internal/log"
	"mamaboss/internal/storage"
)

type GoalService struct {
	deps  Deps
	goals collection[core.Goal]
	plans PlanResolver
	slog  *log.StructuredLogger
}

func NewGoalService(deps Deps, plans PlanResolver) *GoalService {
	deps = deps.withDefaults()
	return &GoalService{
		deps:  deps,
		goals: newCollection[core.Goal](deps, storage.KeyGoals),
		plans: plans,
		slog:  log.NewStructuredLogger(deps.Logger),
	}
}

func (s *GoalService) List(ctx context.Context, userID string) ([]core.Goal, error) {
	return s.goals.list(ctx, userID)
}

func (s *GoalService) Get(ctx context.Context, userID, id string) (core.Goal, error) {
	goals, err := s.goals.list(ctx, userID)
	if err != nil {
		return core.Goal{}, err
	}
	i, err := indexOf(goals, id, goalID)
	if err != nil {
		return core.Goal{}, err
	}
	return goals[i], nil
}

// Add stores a new active goal with no progress at the head of the list.
func (s *GoalService) Add(ctx context.Context, userID string, in core.Goal) (core.Goal, error) {
	now := s.deps.now()
	g := core.Goal{
		ID:          newID(),
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Status:      core.GoalActive,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}

	err := s.goals.update(ctx, userID, func(goals []core.Goal) ([]core.Goal, error) {
		if err := checkQuota(ctx, s.plans, userID, len(goals), func(l core.PlanLimits) int { return l.MaxGoals }); err != nil {
			return nil, err
		}
		return append([]core.Goal{g}, goals...), nil
	})
	if err != nil {
		return core.Goal{}, err
	}
	s.slog.LogMutation(ctx, log.ComponentGoals, log.OpCreate, userID, "goal", g.ID)
	return g, nil
}

func (s *GoalService) Update(ctx context.Context, userID, id string, p core.GoalPatch) (core.Goal, error) {
	return s.mutate(ctx, userID, id, log.OpUpdate, func(g *core.Goal) error {
		g.Apply(p)
		return g.Validate()
	})
}

// UpdateProgress clamps progress to 0..100; reaching 100 concludes the goal.
func (s *GoalService) UpdateProgress(ctx context.Context, userID, id string, progress int) (core.Goal, error) {
	return s.mutate(ctx, userID, id, log.OpUpdate, func(g *core.Goal) error {
		g.SetProgress(progress)
		return nil
	})
}

func (s *GoalService) Delete(ctx context.Context, userID, id string) error {
	err := s.goals.update(ctx, userID, func(goals []core.Goal) ([]core.Goal, error) {
		i, err := indexOf(goals, id, goalID)
		if err != nil {
			return nil, err
		}
		return remove(goals, i), nil
	})
	if err != nil {
		return err
	}
	s.slog.LogMutation(ctx, log.ComponentGoals, log.OpDelete, userID, "goal", id)
	return nil
}

func (s *GoalService) ByCategory(ctx context.Context, userID string, c core.GoalCategory) ([]core.Goal, error) {
	return s.filter(ctx, userID, func(g core.Goal) bool { return g.Category == c })
}

func (s *GoalService) ByStatus(ctx context.Context, userID string, st core.GoalStatus) ([]core.Goal, error) {
	return s.filter(ctx, userID, func(g core.Goal) bool { return g.Status == st })
}

func (s *GoalService) Active(ctx context.Context, userID string) ([]core.Goal, error) {
	return s.ByStatus(ctx, userID, core.GoalActive)
}

func (s *GoalService) Completed(ctx context.Context, userID string) ([]core.Goal, error) {
	return s.ByStatus(ctx, userID, core.GoalCompleted)
}

func (s *GoalService) mutate(ctx context.Context, userID, id, op string, fn func(*core.Goal) error) (core.Goal, error) {
	var out core.Goal
	err := s.goals.update(ctx, userID, func(goals []core.Goal) ([]core.Goal, error) {
		i, err := indexOf(goals, id, goalID)
		if err != nil {
			return nil, err
		}
		g := goals[i]
		if err := fn(&g); err != nil {
			return nil, err
		}
		g.UpdatedAt = s.deps.now()
		goals[i] = g
		out = g
		return goals, nil
	})
	if err != nil {
		return core.Goal{}, err
	}
	s.slog.LogMutation(ctx, log.ComponentGoals, op, userID, "goal", id)
	return out, nil
}

func (s *GoalService) filter(ctx context.Context, userID string, keep func(core.Goal) bool) ([]core.Goal, error) {
	goals, err := s.goals.list(ctx, userID)
	if err != nil {
		return nil, err
	}
	return core.Filter(goals, keep), nil
}

func goalID(g core.Goal) string { return g.ID }
