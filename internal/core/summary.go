package core

import (
	"sort"
	"time"
)

// CategoryAmount is an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// MonthOverview breaks one month of a finance type down by category.
type MonthOverview struct {
	Year       int              `json:"year"`
	Month      int              `json:"month"`
	Type       FinanceType      `json:"type"`
	Total      Money            `json:"total"`
	ByCategory []CategoryAmount `json:"byCategory"`
}

// CategoryBreakdown totals records of type typ in year/month per category,
// largest first; ties are ordered by name.
func CategoryBreakdown(records []Finance, typ FinanceType, year, month int, loc *time.Location) MonthOverview {
	ov := MonthOverview{Year: year, Month: month, Type: typ, ByCategory: []CategoryAmount{}}
	totals := map[string]int64{}
	for _, f := range records {
		if f.Type != typ || !InMonth(f.Date, year, month, loc) {
			continue
		}
		totals[f.Category] += f.Amount.Cents
		ov.Total.Cents += f.Amount.Cents
	}
	for name, cents := range totals {
		ov.ByCategory = append(ov.ByCategory, CategoryAmount{Name: name, Amount: Money{Cents: cents}})
	}
	sort.Slice(ov.ByCategory, func(i, j int) bool {
		a, b := ov.ByCategory[i], ov.ByCategory[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		return a.Name < b.Name
	})
	return ov
}
