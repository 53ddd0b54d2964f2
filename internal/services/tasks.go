package services

import (
	"context"
	"fmt"

	"mamaboss/internal/core"
	"mamaboss/internal/log"
	"mamaboss/internal/storage"
)

// PlanResolver returns the plan currently granted to a user.
type PlanResolver interface {
	CurrentPlan(ctx context.Context, userID string) (core.Plan, error)
}

type TaskService struct {
	deps  Deps
	tasks collection[core.Task]
	plans PlanResolver
	slog  *log.StructuredLogger
}

// NewTaskService creates the task module. plans may be nil, in which case
// no quota is enforced.
func NewTaskService(deps Deps, plans PlanResolver) *TaskService {
	deps = deps.withDefaults()
	return &TaskService{
		deps:  deps,
		tasks: newCollection[core.Task](deps, storage.KeyTasks),
		plans: plans,
		slog:  log.NewStructuredLogger(deps.Logger),
	}
}

func (s *TaskService) List(ctx context.Context, userID string) ([]core.Task, error) {
	return s.tasks.list(ctx, userID)
}

func (s *TaskService) Get(ctx context.Context, userID, id string) (core.Task, error) {
	tasks, err := s.tasks.list(ctx, userID)
	if err != nil {
		return core.Task{}, err
	}
	i, err := indexOf(tasks, id, taskID)
	if err != nil {
		return core.Task{}, err
	}
	return tasks[i], nil
}

// Add stores a new pending task at the head of the list.
func (s *TaskService) Add(ctx context.Context, userID string, in core.Task) (core.Task, error) {
	now := s.deps.now()
	t := core.Task{
		ID:          newID(),
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := t.Validate(); err != nil {
		return core.Task{}, err
	}

	err := s.tasks.update(ctx, userID, func(tasks []core.Task) ([]core.Task, error) {
		if err := checkQuota(ctx, s.plans, userID, len(tasks), func(l core.PlanLimits) int { return l.MaxTasks }); err != nil {
			return nil, err
		}
		return append([]core.Task{t}, tasks...), nil
	})
	if err != nil {
		return core.Task{}, err
	}
	s.slog.LogMutation(ctx, log.ComponentTasks, log.OpCreate, userID, "task", t.ID)
	return t, nil
}

func (s *TaskService) Update(ctx context.Context, userID, id string, p core.TaskPatch) (core.Task, error) {
	var out core.Task
	err := s.tasks.update(ctx, userID, func(tasks []core.Task) ([]core.Task, error) {
		i, err := indexOf(tasks, id, taskID)
		if err != nil {
			return nil, err
		}
		t := tasks[i]
		t.Apply(p)
		if err := t.Validate(); err != nil {
			return nil, err
		}
		t.UpdatedAt = s.deps.now()
		tasks[i] = t
		out = t
		return tasks, nil
	})
	if err != nil {
		return core.Task{}, err
	}
	s.slog.LogMutation(ctx, log.ComponentTasks, log.OpUpdate, userID, "task", id)
	return out, nil
}

func (s *TaskService) ToggleComplete(ctx context.Context, userID, id string) (core.Task, error) {
	var out core.Task
	err := s.tasks.update(ctx, userID, func(tasks []core.Task) ([]core.Task, error) {
		i, err := indexOf(tasks, id, taskID)
		if err != nil {
			return nil, err
		}
		tasks[i].Completed = !tasks[i].Completed
		tasks[i].UpdatedAt = s.deps.now()
		out = tasks[i]
		return tasks, nil
	})
	if err != nil {
		return core.Task{}, err
	}
	s.slog.LogMutation(ctx, log.ComponentTasks, log.OpToggle, userID, "task", id)
	return out, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, id string) error {
	err := s.tasks.update(ctx, userID, func(tasks []core.Task) ([]core.Task, error) {
		i, err := indexOf(tasks, id, taskID)
		if err != nil {
			return nil, err
		}
		return remove(tasks, i), nil
	})
	if err != nil {
		return err
	}
	s.slog.LogMutation(ctx, log.ComponentTasks, log.OpDelete, userID, "task", id)
	return nil
}

func (s *TaskService) ByCategory(ctx context.Context, userID string, c core.TaskCategory) ([]core.Task, error) {
	return s.filter(ctx, userID, func(t core.Task) bool { return t.Category == c })
}

func (s *TaskService) ByPriority(ctx context.Context, userID string, p core.Priority) ([]core.Task, error) {
	return s.filter(ctx, userID, func(t core.Task) bool { return t.Priority == p })
}

func (s *TaskService) Pending(ctx context.Context, userID string) ([]core.Task, error) {
	return s.filter(ctx, userID, func(t core.Task) bool { return !t.Completed })
}

func (s *TaskService) Completed(ctx context.Context, userID string) ([]core.Task, error) {
	return s.filter(ctx, userID, func(t core.Task) bool { return t.Completed })
}

func (s *TaskService) filter(ctx context.Context, userID string, keep func(core.Task) bool) ([]core.Task, error) {
	tasks, err := s.tasks.list(ctx, userID)
	if err != nil {
		return nil, err
	}
	return core.Filter(tasks, keep), nil
}

func taskID(t core.Task) string { return t.ID }

// checkQuota fails with ErrQuotaExceeded once count reaches the limit the
// user's plan sets. A zero limit is unlimited.
func checkQuota(ctx context.Context, plans PlanResolver, userID string, count int, limit func(core.PlanLimits) int) error {
	if plans == nil {
		return nil
	}
	plan, err := plans.CurrentPlan(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve plan: %w", err)
	}
	if max := limit(plan.Limits); max > 0 && count >= max {
		return fmt.Errorf("%w: the %s plan allows %d", ErrQuotaExceeded, plan.Name, max)
	}
	return nil
}
