package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"mamaboss/internal/cache"
	"mamaboss/internal/core"
	"mamaboss/internal/log"
)

const (
	dashboardCacheSize = 1000
	dashboardCacheTTL  = 30 * time.Second
)

// DashboardSources are the modules the home screen reads from.
type DashboardSources struct {
	Tasks         *TaskService
	Goals         *GoalService
	Events        *EventService
	Finances      *FinanceService
	Courses       *CourseService
	Subscriptions *SubscriptionService
}

type DashboardService struct {
	deps  Deps
	src   DashboardSources
	cache *cache.LRUCache[core.Dashboard]
}

// NewDashboardService builds the dashboard module. Computed dashboards are
// cached per user and dropped whenever that user's data changes.
func NewDashboardService(deps Deps, src DashboardSources) *DashboardService {
	deps = deps.withDefaults()
	s := &DashboardService{
		deps:  deps,
		src:   src,
		cache: cache.NewLRUCache[core.Dashboard](dashboardCacheSize, dashboardCacheTTL),
	}
	deps.Changes.Subscribe(s.Invalidate)
	return s
}

// Cache exposes the per-user cache so it can be swept.
func (s *DashboardService) Cache() cache.Cleaner {
	return s.cache
}

func (s *DashboardService) Invalidate(userID string) {
	s.cache.Delete(userID)
}

// Get returns the user's dashboard, loading the collections concurrently
// on a cache miss.
func (s *DashboardService) Get(ctx context.Context, userID string) (core.Dashboard, error) {
	if d, ok := s.cache.Get(userID); ok {
		s.deps.Metrics.CacheLookup("dashboard", true)
		return d, nil
	}
	s.deps.Metrics.CacheLookup("dashboard", false)

	var (
		in   core.DashboardInput
		plan core.Plan
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { in.Tasks, err = s.src.Tasks.List(gctx, userID); return })
	g.Go(func() (err error) { in.Goals, err = s.src.Goals.List(gctx, userID); return })
	g.Go(func() (err error) { in.Events, err = s.src.Events.List(gctx, userID); return })
	g.Go(func() (err error) { in.Finances, err = s.src.Finances.List(gctx, userID); return })
	g.Go(func() (err error) { in.Courses, err = s.src.Courses.List(gctx, userID); return })
	if s.src.Subscriptions != nil {
		g.Go(func() (err error) { plan, err = s.src.Subscriptions.CurrentPlan(gctx, userID); return })
	}
	if err := g.Wait(); err != nil {
		s.deps.Logger.ErrorContext(ctx, "Failed to load dashboard",
			log.FieldComponent, log.ComponentDashboard,
			log.FieldUserID, userID,
			log.FieldError, err)
		return core.Dashboard{}, err
	}

	d := core.BuildDashboard(in, s.deps.now())
	if plan.ID != "" {
		d.Plan = &plan
		d.ShowPremium = !plan.Premium
	}
	s.cache.Set(userID, d)
	return d, nil
}
