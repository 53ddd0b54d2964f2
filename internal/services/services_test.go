package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mamaboss/internal/core"
	"mamaboss/internal/payment"
	"mamaboss/internal/storage"
	"mamaboss/internal/storage/memory"
)

var testNow = time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newTestDeps(t *testing.T) (Deps, *clock) {
	t.Helper()
	c := &clock{t: testNow}
	return Deps{
		Store:    memory.New(),
		Location: time.UTC,
		Now:      c.Now,
		Changes:  NewNotifier(),
	}, c
}

func mustCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := DefaultCatalog()
	require.NoError(t, err)
	return c
}

func newTestSubscriptions(t *testing.T, deps Deps, failureRate float64) (*SubscriptionService, *payment.Simulator) {
	t.Helper()
	sim := payment.NewSeededSimulator(failureRate, 0, 42, deps.Now)
	return NewSubscriptionService(deps, SubscriptionConfig{
		Catalog:   mustCatalog(t),
		Processor: sim,
		Checkout:  sim,
		Payments:  sim,
		URLs:      CheckoutURLs{Success: "https://app/ok", Failure: "https://app/fail", Pending: "https://app/wait"},
	}), sim
}

// fixedPlan resolves every user to the same plan.
type fixedPlan core.Plan

func (p fixedPlan) CurrentPlan(context.Context, string) (core.Plan, error) {
	return core.Plan(p), nil
}

func TestCollection_UpdateLeavesStoreUntouchedOnError(t *testing.T) {
	deps, _ := newTestDeps(t)
	deps = deps.withDefaults()
	ctx := context.Background()
	c := newCollection[core.Task](deps, storage.KeyTasks)

	require.NoError(t, c.replace(ctx, "u1", []core.Task{{ID: "a"}}))
	err := c.update(ctx, "u1", func([]core.Task) ([]core.Task, error) {
		return nil, core.ErrNotFound
	})
	assert.ErrorIs(t, err, core.ErrNotFound)

	items, err := c.list(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []core.Task{{ID: "a"}}, items)
}

func TestCollection_SeedIsSavedOnce(t *testing.T) {
	deps, _ := newTestDeps(t)
	deps = deps.withDefaults()
	ctx := context.Background()
	calls := 0
	c := newCollection[core.Event](deps, storage.KeyEvents).withSeed(func(userID string) []core.Event {
		calls++
		return []core.Event{{ID: "seed", UserID: userID}}
	})

	items, err := c.ensure(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, c.replace(ctx, "u1", []core.Event{}))
	items, err = c.ensure(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items, "an emptied collection is not seeded again")
	assert.Equal(t, 1, calls)
}

func TestNotifier(t *testing.T) {
	var got []string
	n := NewNotifier()
	n.Subscribe(func(id string) { got = append(got, id) })
	n.Notify("u1")
	assert.Equal(t, []string{"u1"}, got)

	var nilNotifier *Notifier
	assert.NotPanics(t, func() { nilNotifier.Notify("u1") })
}
