package services

// ModulesConfig carries the optional collaborators of the module set.
type ModulesConfig struct {
	Subscription SubscriptionConfig
	// FinanceSync receives every new finance record; nil disables export.
	FinanceSync FinanceSyncPublisher
}

// Modules is every use case of the app wired together: the subscription
// module resolves plans for the quota and paywall checks, and settings
// choose the calendar's first weekday.
type Modules struct {
	Tasks         *TaskService
	Goals         *GoalService
	Events        *EventService
	Finances      *FinanceService
	Courses       *CourseService
	Settings      *SettingsService
	Subscriptions *SubscriptionService
	Dashboard     *DashboardService
	Renewals      *RenewalProcessor
}

func NewModules(deps Deps, cfg ModulesConfig) *Modules {
	deps = deps.withDefaults()
	m := &Modules{}
	m.Subscriptions = NewSubscriptionService(deps, cfg.Subscription)
	m.Settings = NewSettingsService(deps)
	m.Tasks = NewTaskService(deps, m.Subscriptions)
	m.Goals = NewGoalService(deps, m.Subscriptions)
	m.Events = NewEventService(deps, m.Settings)
	m.Finances = NewFinanceService(deps, cfg.FinanceSync)
	m.Courses = NewCourseService(deps, cfg.Subscription.Catalog, m.Subscriptions)
	m.Dashboard = NewDashboardService(deps, DashboardSources{
		Tasks:         m.Tasks,
		Goals:         m.Goals,
		Events:        m.Events,
		Finances:      m.Finances,
		Courses:       m.Courses,
		Subscriptions: m.Subscriptions,
	})
	m.Renewals = NewRenewalProcessor(deps, m.Subscriptions)
	return m
}
