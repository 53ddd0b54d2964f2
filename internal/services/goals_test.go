package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mamaboss/internal/core"
)

func TestGoalService(t *testing.T) {
	deps, _ := newTestDeps(t)
	svc := NewGoalService(deps, nil)
	ctx := context.Background()

	g, err := svc.Add(ctx, "u1", core.Goal{Title: "Faturar 10k", Category: core.GoalFinancial, Progress: 80, Status: core.GoalPaused})
	require.NoError(t, err)
	assert.Equal(t, 0, g.Progress, "new goals start from zero")
	assert.Equal(t, core.GoalActive, g.Status)

	h, err := svc.Add(ctx, "u1", core.Goal{Title: "Correr 5k", Category: core.GoalHealth})
	require.NoError(t, err)
	goals, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, h.ID, goals[0].ID)

	g, err = svc.UpdateProgress(ctx, "u1", g.ID, 150)
	require.NoError(t, err)
	assert.Equal(t, 100, g.Progress)
	assert.Equal(t, core.GoalCompleted, g.Status)

	h, err = svc.UpdateProgress(ctx, "u1", h.ID, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, h.Progress)
	assert.Equal(t, core.GoalActive, h.Status)

	completed, err := svc.Completed(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, completed, 1)
	active, err := svc.Active(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, active, 1)
	byCat, err := svc.ByCategory(ctx, "u1", core.GoalHealth)
	require.NoError(t, err)
	assert.Len(t, byCat, 1)

	paused := core.GoalPaused
	h, err = svc.Update(ctx, "u1", h.ID, core.GoalPatch{Status: &paused})
	require.NoError(t, err)
	assert.Equal(t, core.GoalPaused, h.Status)

	tooMuch := 101
	_, err = svc.Update(ctx, "u1", h.ID, core.GoalPatch{Progress: &tooMuch})
	assert.ErrorIs(t, err, core.ErrInvalidProgress)

	require.NoError(t, svc.Delete(ctx, "u1", h.ID))
	_, err = svc.UpdateProgress(ctx, "u1", h.ID, 10)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestGoalService_Quota(t *testing.T) {
	deps, _ := newTestDeps(t)
	svc := NewGoalService(deps, fixedPlan(core.Plan{Name: "Gratuito", Limits: core.PlanLimits{MaxGoals: 1}}))
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", core.Goal{Title: "a", Category: core.GoalWork})
	require.NoError(t, err)
	_, err = svc.Add(ctx, "u1", core.Goal{Title: "b", Category: core.GoalWork})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}
