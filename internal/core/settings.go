package core

import (
	"fmt"
	"slices"
	"time"
)

type NotificationSettings struct {
	Tasks    bool `json:"tasks"`
	Goals    bool `json:"goals"`
	Events   bool `json:"events"`
	Finances bool `json:"finances"`
	Courses  bool `json:"courses"`
	Email    bool `json:"email"`
	Push     bool `json:"push"`
}

type PrivacySettings struct {
	ShareProgress bool `json:"shareProgress"`
	ShareStats    bool `json:"shareStats"`
	PublicProfile bool `json:"publicProfile"`
}

type DisplaySettings struct {
	CompactMode        bool   `json:"compactMode"`
	ShowCompletedTasks bool   `json:"showCompletedTasks"`
	ShowCompletedGoals bool   `json:"showCompletedGoals"`
	DashboardLayout    string `json:"dashboardLayout"`
}

type BusinessSettings struct {
	BusinessName    string `json:"businessName"`
	BusinessType    string `json:"businessType"`
	BusinessEmail   string `json:"businessEmail"`
	BusinessPhone   string `json:"businessPhone"`
	BusinessAddress string `json:"businessAddress"`
	TaxID           string `json:"taxId"`
}

type PreferenceSettings struct {
	Currency   string `json:"currency"`
	DateFormat string `json:"dateFormat"`
	TimeFormat string `json:"timeFormat"`
	WeekStart  string `json:"weekStart"`
}

type Settings struct {
	ID            string               `json:"id"`
	UserID        string               `json:"userId"`
	Theme         string               `json:"theme"`
	Language      string               `json:"language"`
	Notifications NotificationSettings `json:"notifications"`
	Privacy       PrivacySettings      `json:"privacy"`
	Display       DisplaySettings      `json:"display"`
	Business      BusinessSettings     `json:"business"`
	Preferences   PreferenceSettings   `json:"preferences"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

var (
	Themes           = []string{"light", "dark", "auto"}
	Languages        = []string{"pt-BR", "en-US", "es-ES"}
	DashboardLayouts = []string{"default", "compact", "detailed"}
	Currencies       = []string{"BRL", "USD", "EUR"}
	DateFormats      = []string{"DD/MM/YYYY", "MM/DD/YYYY", "YYYY-MM-DD"}
	TimeFormats      = []string{"12h", "24h"}
	WeekStarts       = []string{"monday", "sunday"}
)

// DefaultSettings returns the settings a new user starts with.
func DefaultSettings(userID string, now time.Time) Settings {
	return Settings{
		ID:       userID,
		UserID:   userID,
		Theme:    "light",
		Language: "pt-BR",
		Notifications: NotificationSettings{
			Tasks: true, Goals: true, Events: true, Finances: true,
			Courses: true, Email: true, Push: false,
		},
		Display: DisplaySettings{
			ShowCompletedTasks: true,
			ShowCompletedGoals: true,
			DashboardLayout:    "default",
		},
		Preferences: PreferenceSettings{
			Currency:   "BRL",
			DateFormat: "DD/MM/YYYY",
			TimeFormat: "24h",
			WeekStart:  "sunday",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s Settings) Validate() error {
	checks := []struct {
		name, value string
		allowed     []string
	}{
		{"theme", s.Theme, Themes},
		{"language", s.Language, Languages},
		{"display.dashboardLayout", s.Display.DashboardLayout, DashboardLayouts},
		{"preferences.currency", s.Preferences.Currency, Currencies},
		{"preferences.dateFormat", s.Preferences.DateFormat, DateFormats},
		{"preferences.timeFormat", s.Preferences.TimeFormat, TimeFormats},
		{"preferences.weekStart", s.Preferences.WeekStart, WeekStarts},
	}
	for _, c := range checks {
		if !slices.Contains(c.allowed, c.value) {
			return fmt.Errorf("%w: %s %q (allowed: %v)", ErrInvalidSetting, c.name, c.value, c.allowed)
		}
	}
	return nil
}

// WeekStartDay maps the weekStart preference to a time.Weekday.
func (s Settings) WeekStartDay() time.Weekday {
	if s.Preferences.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

type (
	NotificationPatch struct {
		Tasks    *bool `json:"tasks,omitempty"`
		Goals    *bool `json:"goals,omitempty"`
		Events   *bool `json:"events,omitempty"`
		Finances *bool `json:"finances,omitempty"`
		Courses  *bool `json:"courses,omitempty"`
		Email    *bool `json:"email,omitempty"`
		Push     *bool `json:"push,omitempty"`
	}

	PrivacyPatch struct {
		ShareProgress *bool `json:"shareProgress,omitempty"`
		ShareStats    *bool `json:"shareStats,omitempty"`
		PublicProfile *bool `json:"publicProfile,omitempty"`
	}

	DisplayPatch struct {
		CompactMode        *bool   `json:"compactMode,omitempty"`
		ShowCompletedTasks *bool   `json:"showCompletedTasks,omitempty"`
		ShowCompletedGoals *bool   `json:"showCompletedGoals,omitempty"`
		DashboardLayout    *string `json:"dashboardLayout,omitempty"`
	}

	BusinessPatch struct {
		BusinessName    *string `json:"businessName,omitempty"`
		BusinessType    *string `json:"businessType,omitempty"`
		BusinessEmail   *string `json:"businessEmail,omitempty"`
		BusinessPhone   *string `json:"businessPhone,omitempty"`
		BusinessAddress *string `json:"businessAddress,omitempty"`
		TaxID           *string `json:"taxId,omitempty"`
	}

	PreferencePatch struct {
		Currency   *string `json:"currency,omitempty"`
		DateFormat *string `json:"dateFormat,omitempty"`
		TimeFormat *string `json:"timeFormat,omitempty"`
		WeekStart  *string `json:"weekStart,omitempty"`
	}

	// SettingsPatch merges section by section, field by field.
	SettingsPatch struct {
		Theme         *string            `json:"theme,omitempty"`
		Language      *string            `json:"language,omitempty"`
		Notifications *NotificationPatch `json:"notifications,omitempty"`
		Privacy       *PrivacyPatch      `json:"privacy,omitempty"`
		Display       *DisplayPatch      `json:"display,omitempty"`
		Business      *BusinessPatch     `json:"business,omitempty"`
		Preferences   *PreferencePatch   `json:"preferences,omitempty"`
	}
)

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (s *Settings) Apply(p SettingsPatch) {
	set(&s.Theme, p.Theme)
	set(&s.Language, p.Language)
	if n := p.Notifications; n != nil {
		set(&s.Notifications.Tasks, n.Tasks)
		set(&s.Notifications.Goals, n.Goals)
		set(&s.Notifications.Events, n.Events)
		set(&s.Notifications.Finances, n.Finances)
		set(&s.Notifications.Courses, n.Courses)
		set(&s.Notifications.Email, n.Email)
		set(&s.Notifications.Push, n.Push)
	}
	if pr := p.Privacy; pr != nil {
		set(&s.Privacy.ShareProgress, pr.ShareProgress)
		set(&s.Privacy.ShareStats, pr.ShareStats)
		set(&s.Privacy.PublicProfile, pr.PublicProfile)
	}
	if d := p.Display; d != nil {
		set(&s.Display.CompactMode, d.CompactMode)
		set(&s.Display.ShowCompletedTasks, d.ShowCompletedTasks)
		set(&s.Display.ShowCompletedGoals, d.ShowCompletedGoals)
		set(&s.Display.DashboardLayout, d.DashboardLayout)
	}
	if b := p.Business; b != nil {
		set(&s.Business.BusinessName, b.BusinessName)
		set(&s.Business.BusinessType, b.BusinessType)
		set(&s.Business.BusinessEmail, b.BusinessEmail)
		set(&s.Business.BusinessPhone, b.BusinessPhone)
		set(&s.Business.BusinessAddress, b.BusinessAddress)
		set(&s.Business.TaxID, b.TaxID)
	}
	if pf := p.Preferences; pf != nil {
		set(&s.Preferences.Currency, pf.Currency)
		set(&s.Preferences.DateFormat, pf.DateFormat)
		set(&s.Preferences.TimeFormat, pf.TimeFormat)
		set(&s.Preferences.WeekStart, pf.WeekStart)
	}
}
