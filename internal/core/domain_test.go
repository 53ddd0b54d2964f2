package core

import (
	"errors"
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

func TestTask_Validate(t *testing.T) {
	tests := []struct {
		name string
		task Task
		want error
	}{
		{"valid", Task{Title: "Reunião", Category: TaskWork, Priority: PriorityHigh}, nil},
		{"empty title", Task{Title: "  ", Category: TaskWork, Priority: PriorityHigh}, ErrEmptyTitle},
		{"bad category", Task{Title: "x", Category: "escola", Priority: PriorityHigh}, ErrInvalidCategory},
		{"bad priority", Task{Title: "x", Category: TaskFamily, Priority: "urgente"}, ErrInvalidPriority},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
			if !IsValidation(err) {
				t.Errorf("IsValidation(%v) = false", err)
			}
		})
	}
}

func TestTask_ApplyKeepsUnsetFields(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	task := Task{Title: "a", Description: "d", Category: TaskWork, Priority: PriorityLow, DueDate: &due}
	task.Apply(TaskPatch{Priority: ptr(PriorityHigh)})
	if task.Priority != PriorityHigh || task.Title != "a" || task.Description != "d" || task.DueDate != &due {
		t.Fatalf("unexpected task after patch: %+v", task)
	}
}

func TestGoal_SetProgress(t *testing.T) {
	tests := []struct {
		name       string
		start      GoalStatus
		progress   int
		want       int
		wantStatus GoalStatus
	}{
		{"partial", GoalActive, 40, 40, GoalActive},
		{"complete", GoalActive, 100, 100, GoalCompleted},
		{"over clamps", GoalPaused, 150, 100, GoalCompleted},
		{"negative clamps", GoalActive, -3, 0, GoalActive},
		{"lowering keeps status", GoalCompleted, 50, 50, GoalCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Goal{Status: tt.start}
			g.SetProgress(tt.progress)
			if g.Progress != tt.want || g.Status != tt.wantStatus {
				t.Errorf("got progress=%d status=%s, want %d %s", g.Progress, g.Status, tt.want, tt.wantStatus)
			}
		})
	}
}

func TestMonthlyStats(t *testing.T) {
	loc := time.UTC
	day := func(m, d int) time.Time { return time.Date(2026, time.Month(m), d, 12, 0, 0, 0, loc) }
	records := []Finance{
		{Type: Income, Amount: Money{300000}, Date: day(5, 2), IsBusiness: true},
		{Type: Income, Amount: Money{50000}, Date: day(5, 10)},
		{Type: Expense, Amount: Money{12050}, Date: day(5, 11), IsBusiness: true},
		{Type: Expense, Amount: Money{7000}, Date: day(5, 30)},
		{Type: Expense, Amount: Money{99999}, Date: day(6, 1)},
	}

	s := MonthlyStats(records, 2026, 5, loc)
	want := FinanceStats{
		TotalIncome:      Money{350000},
		TotalExpenses:    Money{19050},
		Balance:          Money{330950},
		BusinessIncome:   Money{300000},
		BusinessExpenses: Money{12050},
		PersonalIncome:   Money{50000},
		PersonalExpenses: Money{7000},
	}
	if s != want {
		t.Fatalf("MonthlyStats() = %+v, want %+v", s, want)
	}

	empty := MonthlyStats(records, 2025, 1, loc)
	if empty != (FinanceStats{}) {
		t.Errorf("expected zero stats for an empty month, got %+v", empty)
	}
}

func TestComputeCourseStats(t *testing.T) {
	tests := []struct {
		name     string
		progress []int
		want     CourseStats
	}{
		{"empty", nil, CourseStats{}},
		{"mixed", []int{0, 50, 100, 25}, CourseStats{
			TotalCourses: 4, CompletedCourses: 1, InProgressCourses: 2, NotStartedCourses: 1, AverageProgress: 44,
		}},
		{"rounds half up", []int{1, 0}, CourseStats{
			TotalCourses: 2, InProgressCourses: 1, NotStartedCourses: 1, AverageProgress: 1,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var courses []Course
			for _, p := range tt.progress {
				courses = append(courses, Course{Progress: p})
			}
			if got := ComputeCourseStats(courses); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMonthGrid(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	events := []Event{
		{ID: "late", Title: "b", Date: time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)},
		{ID: "early", Title: "a", Date: time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)},
	}

	// October 2026 starts on a Thursday.
	tests := []struct {
		name      string
		weekStart time.Weekday
		lead      int
	}{
		{"sunday start", time.Sunday, 4},
		{"monday start", time.Monday, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid := MonthGrid(2026, 10, tt.weekStart, now, events)
			if len(grid) != GridCells {
				t.Fatalf("len = %d, want %d", len(grid), GridCells)
			}
			if grid[0].Date.Weekday() != tt.weekStart {
				t.Errorf("first cell on %s, want %s", grid[0].Date.Weekday(), tt.weekStart)
			}
			for i := 0; i < tt.lead; i++ {
				if grid[i].IsCurrentMonth {
					t.Errorf("cell %d should belong to September", i)
				}
			}
			first := grid[tt.lead]
			if !first.IsCurrentMonth || first.Day != 1 {
				t.Errorf("cell %d = %+v, want October 1", tt.lead, first)
			}
			today := grid[tt.lead+17]
			if !today.IsToday || len(today.Events) != 2 || today.Events[0].ID != "early" {
				t.Errorf("today cell = %+v", today)
			}
			if grid[GridCells-1].IsCurrentMonth {
				t.Error("last cell should spill into November")
			}
		})
	}
}

func TestSettings_ApplyMergesNestedSections(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := DefaultSettings("u1", now)
	s.Apply(SettingsPatch{
		Theme:         ptr("dark"),
		Notifications: &NotificationPatch{Push: ptr(true)},
		Business:      &BusinessPatch{BusinessName: ptr("Doces da Rafa")},
	})

	if s.Theme != "dark" || !s.Notifications.Push || !s.Notifications.Tasks {
		t.Errorf("notifications not merged: %+v", s.Notifications)
	}
	if s.Business.BusinessName != "Doces da Rafa" || s.Preferences.Currency != "BRL" {
		t.Errorf("unexpected settings: %+v", s)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	s.Apply(SettingsPatch{Preferences: &PreferencePatch{WeekStart: ptr("friday")}})
	if err := s.Validate(); !errors.Is(err, ErrInvalidSetting) {
		t.Errorf("Validate() = %v, want ErrInvalidSetting", err)
	}
}

func TestBuildDashboard(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	tasks := []Task{
		{ID: "1", Priority: PriorityLow},
		{ID: "2", Priority: PriorityHigh, Completed: true},
		{ID: "3", Priority: PriorityMedium},
		{ID: "4", Priority: PriorityHigh},
	}
	events := []Event{
		{ID: "past", Date: now.Add(-time.Hour)},
		{ID: "far", Date: now.AddDate(0, 0, 5)},
		{ID: "soon", Date: now.Add(time.Hour)},
	}
	finances := []Finance{
		{Type: Income, Amount: Money{10000}, Date: now},
		{Type: Expense, Amount: Money{2500}, Date: now},
	}

	d := BuildDashboard(DashboardInput{
		Tasks: tasks, Goals: []Goal{{ID: "g1"}, {ID: "g2"}, {ID: "g3"}, {ID: "g4"}},
		Events: events, Finances: finances,
		Courses: []Course{{Progress: 100}, {Progress: 0}},
	}, now)

	st := d.Stats
	if st.TotalTasks != 4 || st.CompletedTasks != 1 || st.PendingTasks != 3 {
		t.Errorf("task stats = %+v", st)
	}
	if st.ActiveGoals != 4 || st.UpcomingEvents != 2 {
		t.Errorf("goal/event stats = %+v", st)
	}
	if st.MonthlyBalance.Cents != 7500 || st.CompletedCourses != 1 || st.AverageProgress != 50 {
		t.Errorf("money/course stats = %+v", st)
	}
	if got := []string{d.PriorityTasks[0].ID, d.PriorityTasks[1].ID, d.PriorityTasks[2].ID}; got[0] != "4" || got[1] != "3" || got[2] != "1" {
		t.Errorf("priority order = %v", got)
	}
	if len(d.Goals) != 3 || d.UpcomingEvents[0].ID != "soon" {
		t.Errorf("goals=%d upcoming=%+v", len(d.Goals), d.UpcomingEvents)
	}
}

func TestCategoryBreakdown(t *testing.T) {
	at := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	records := []Finance{
		{Type: Expense, Category: "moradia", Amount: Money{150000}, Date: at},
		{Type: Expense, Category: "lazer", Amount: Money{3000}, Date: at},
		{Type: Expense, Category: "lazer", Amount: Money{2000}, Date: at},
		{Type: Income, Category: "salario", Amount: Money{500000}, Date: at},
	}
	ov := CategoryBreakdown(records, Expense, 2026, 4, time.UTC)
	if ov.Total.Cents != 155000 || len(ov.ByCategory) != 2 {
		t.Fatalf("overview = %+v", ov)
	}
	if ov.ByCategory[0].Name != "moradia" || ov.ByCategory[1].Amount.Cents != 5000 {
		t.Errorf("categories = %+v", ov.ByCategory)
	}
}
