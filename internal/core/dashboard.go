package core

import (
	"sort"
	"time"
)

const (
	dashboardPriorityTasks  = 5
	dashboardGoals          = 3
	dashboardUpcomingEvents = 3
)

type DashboardStats struct {
	TotalTasks       int   `json:"totalTasks"`
	CompletedTasks   int   `json:"completedTasks"`
	PendingTasks     int   `json:"pendingTasks"`
	ActiveGoals      int   `json:"activeGoals"`
	UpcomingEvents   int   `json:"upcomingEvents"`
	MonthlyIncome    Money `json:"monthlyIncome"`
	MonthlyExpenses  Money `json:"monthlyExpenses"`
	MonthlyBalance   Money `json:"monthlyBalance"`
	TotalCourses     int   `json:"totalCourses"`
	CompletedCourses int   `json:"completedCourses"`
	AverageProgress  int   `json:"averageProgress"`
}

type Dashboard struct {
	Stats          DashboardStats `json:"stats"`
	PriorityTasks  []Task         `json:"priorityTasks"`
	Goals          []Goal         `json:"goals"`
	UpcomingEvents []Event        `json:"upcomingEvents"`
	Plan           *Plan          `json:"plan,omitempty"`
	ShowPremium    bool           `json:"showPremium"`
}

// DashboardInput is everything the dashboard is computed from.
type DashboardInput struct {
	Tasks    []Task
	Goals    []Goal
	Events   []Event
	Finances []Finance
	Courses  []Course
}

// BuildDashboard computes the home screen summary at now.
// ActiveGoals counts every goal, matching what the home screen has always shown.
func BuildDashboard(in DashboardInput, now time.Time) Dashboard {
	loc := now.Location()
	var st DashboardStats

	st.TotalTasks = len(in.Tasks)
	for _, t := range in.Tasks {
		if t.Completed {
			st.CompletedTasks++
		}
	}
	st.PendingTasks = st.TotalTasks - st.CompletedTasks
	st.ActiveGoals = len(in.Goals)

	upcoming := Filter(in.Events, func(e Event) bool { return e.Date.After(now) })
	st.UpcomingEvents = len(upcoming)

	fs := MonthlyStats(in.Finances, now.In(loc).Year(), int(now.In(loc).Month()), loc)
	st.MonthlyIncome = fs.TotalIncome
	st.MonthlyExpenses = fs.TotalExpenses
	st.MonthlyBalance = fs.Balance

	cs := ComputeCourseStats(in.Courses)
	st.TotalCourses = cs.TotalCourses
	st.CompletedCourses = cs.CompletedCourses
	st.AverageProgress = cs.AverageProgress

	pending := Filter(in.Tasks, func(t Task) bool { return !t.Completed })
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Priority.Weight() > pending[j].Priority.Weight()
	})

	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].Date.Before(upcoming[j].Date) })

	return Dashboard{
		Stats:          st,
		PriorityTasks:  head(pending, dashboardPriorityTasks),
		Goals:          head(in.Goals, dashboardGoals),
		UpcomingEvents: head(upcoming, dashboardUpcomingEvents),
		ShowPremium:    true,
	}
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		items = items[:n]
	}
	if items == nil {
		return []T{}
	}
	return items
}
