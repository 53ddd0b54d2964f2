package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mamaboss/internal/core"
)

func TestEventService(t *testing.T) {
	deps, _ := newTestDeps(t)
	svc := NewEventService(deps, nil)
	ctx := context.Background()

	at := func(m time.Month, d, h int) time.Time { return time.Date(2025, m, d, h, 0, 0, 0, time.UTC) }
	school, err := svc.Add(ctx, "u1", core.Event{Title: "Reunião escolar", Date: at(time.March, 20, 9), Type: core.EventSchool})
	require.NoError(t, err)
	past, err := svc.Add(ctx, "u1", core.Event{Title: "Aniversário", Date: at(time.March, 1, 18), Type: core.EventFamily})
	require.NoError(t, err)
	soon, err := svc.Add(ctx, "u1", core.Event{Title: "Cliente", Date: at(time.March, 15, 14), Type: core.EventWork})
	require.NoError(t, err)
	_, err = svc.Add(ctx, "u1", core.Event{Title: "Férias", Date: at(time.April, 2, 8), Type: core.EventFamily})
	require.NoError(t, err)

	events, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, school.ID, events[0].ID, "events are appended")

	upcoming, err := svc.Upcoming(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, upcoming, 3)
	assert.Equal(t, soon.ID, upcoming[0].ID)
	assert.Equal(t, school.ID, upcoming[1].ID)

	day, err := svc.ByDate(ctx, "u1", at(time.March, 1, 23))
	require.NoError(t, err)
	assert.Equal(t, []string{past.ID}, ids(day))

	march, err := svc.ByMonth(ctx, "u1", 2025, 3)
	require.NoError(t, err)
	assert.Len(t, march, 3)
	_, err = svc.ByMonth(ctx, "u1", 2025, 13)
	assert.ErrorIs(t, err, core.ErrInvalidMonth)

	family, err := svc.ByType(ctx, "u1", core.EventFamily)
	require.NoError(t, err)
	assert.Len(t, family, 2)

	_, err = svc.Add(ctx, "u1", core.Event{Title: "Sem data", Type: core.EventWork})
	assert.ErrorIs(t, err, core.ErrInvalidDate)
}

type weekStart time.Weekday

func (w weekStart) WeekStart(context.Context, string) (time.Weekday, error) {
	return time.Weekday(w), nil
}

func TestEventService_MonthGrid(t *testing.T) {
	deps, _ := newTestDeps(t)
	ctx := context.Background()

	// March 2025 starts on a Saturday.
	sunday := NewEventService(deps, nil)
	_, err := sunday.Add(ctx, "u1", core.Event{Title: "Consulta", Date: time.Date(2025, 3, 15, 11, 0, 0, 0, time.UTC), Type: core.EventFamily})
	require.NoError(t, err)

	grid, err := sunday.MonthGrid(ctx, "u1", 2025, 3)
	require.NoError(t, err)
	require.Len(t, grid, core.GridCells)
	assert.Equal(t, 23, grid[0].Day)
	assert.False(t, grid[0].IsCurrentMonth)
	assert.Equal(t, 1, grid[6].Day)
	assert.True(t, grid[6].IsCurrentMonth)
	today := grid[6+14]
	assert.True(t, today.IsToday)
	assert.Len(t, today.Events, 1)

	monday := NewEventService(deps, weekStart(time.Monday))
	grid, err = monday.MonthGrid(ctx, "u1", 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 24, grid[0].Day)
	assert.Equal(t, 1, grid[5].Day)
}

func ids[T interface{ core.Event | core.Finance | core.Course }](items []T) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch v := any(it).(type) {
		case core.Event:
			out = append(out, v.ID)
		case core.Finance:
			out = append(out, v.ID)
		case core.Course:
			out = append(out, v.ID)
		}
	}
	return out
}
