package core

import (
	"sort"
	"time"
)

// GridCells is the fixed size of a month view: six weeks.
const GridCells = 42

type CalendarDay struct {
	Date           time.Time `json:"date"`
	Day            int       `json:"day"`
	IsCurrentMonth bool      `json:"isCurrentMonth"`
	IsToday        bool      `json:"isToday"`
	Events         []Event   `json:"events"`
}

// MonthGrid lays out the 42 cells of a month view in now's location.
// Leading cells belong to the previous month so that the first cell falls
// on weekStart; trailing cells run into the next month. Each cell carries
// the events dated on that day, ordered by time.
func MonthGrid(year, month int, weekStart time.Weekday, now time.Time, events []Event) []CalendarDay {
	loc := now.Location()
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	lead := (int(first.Weekday()) - int(weekStart) + 7) % 7
	start := first.AddDate(0, 0, -lead)

	byDay := make(map[string][]Event)
	for _, e := range events {
		k := e.Date.In(loc).Format(time.DateOnly)
		byDay[k] = append(byDay[k], e)
	}

	days := make([]CalendarDay, 0, GridCells)
	for i := 0; i < GridCells; i++ {
		d := start.AddDate(0, 0, i)
		evs := byDay[d.Format(time.DateOnly)]
		sort.SliceStable(evs, func(a, b int) bool { return evs[a].Date.Before(evs[b].Date) })
		if evs == nil {
			evs = []Event{}
		}
		days = append(days, CalendarDay{
			Date:           d,
			Day:            d.Day(),
			IsCurrentMonth: int(d.Month()) == month,
			IsToday:        SameDay(d, now, loc),
			Events:         evs,
		})
	}
	return days
}
