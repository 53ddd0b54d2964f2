package core

import (
	"fmt"
	"strings"
	"time"
)

type FinanceType string

const (
	Income  FinanceType = "receita"
	Expense FinanceType = "despesa"
)

func (t FinanceType) Valid() bool {
	return t == Income || t == Expense
}

// Finance is a single income or expense record.
type Finance struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId"`
	Type        FinanceType `json:"type"`
	Category    string      `json:"category"`
	Amount      Money       `json:"amount"`
	Description string      `json:"description"`
	Date        time.Time   `json:"date"`
	IsBusiness  bool        `json:"isBusiness"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type FinancePatch struct {
	Type        *FinanceType `json:"type,omitempty"`
	Category    *string      `json:"category,omitempty"`
	Amount      *Money       `json:"amount,omitempty"`
	Description *string      `json:"description,omitempty"`
	Date        *time.Time   `json:"date,omitempty"`
	IsBusiness  *bool        `json:"isBusiness,omitempty"`
}

func (f Finance) Validate() error {
	if !f.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, f.Type)
	}
	if strings.TrimSpace(f.Category) == "" {
		return fmt.Errorf("%w: empty finance category", ErrInvalidCategory)
	}
	if err := f.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(f.Description) == "" {
		return ErrEmptyDescription
	}
	if len(f.Description) > maxTitleLength {
		return fmt.Errorf("%w: description too long", ErrEmptyDescription)
	}
	if f.Date.IsZero() {
		return fmt.Errorf("%w: finance date is required", ErrInvalidDate)
	}
	return nil
}

func (f *Finance) Apply(p FinancePatch) {
	if p.Type != nil {
		f.Type = *p.Type
	}
	if p.Category != nil {
		f.Category = strings.TrimSpace(*p.Category)
	}
	if p.Amount != nil {
		f.Amount = *p.Amount
	}
	if p.Description != nil {
		f.Description = strings.TrimSpace(*p.Description)
	}
	if p.Date != nil {
		f.Date = *p.Date
	}
	if p.IsBusiness != nil {
		f.IsBusiness = *p.IsBusiness
	}
}

// FinanceStats summarizes one month of finance records.
type FinanceStats struct {
	TotalIncome      Money `json:"totalIncome"`
	TotalExpenses    Money `json:"totalExpenses"`
	Balance          Money `json:"balance"`
	BusinessIncome   Money `json:"businessIncome"`
	BusinessExpenses Money `json:"businessExpenses"`
	PersonalIncome   Money `json:"personalIncome"`
	PersonalExpenses Money `json:"personalExpenses"`
}

// MonthlyStats aggregates the records dated in year/month (1-12) in loc.
func MonthlyStats(records []Finance, year, month int, loc *time.Location) FinanceStats {
	var s FinanceStats
	for _, f := range records {
		if !InMonth(f.Date, year, month, loc) {
			continue
		}
		c := f.Amount.Cents
		switch f.Type {
		case Income:
			s.TotalIncome.Cents += c
			if f.IsBusiness {
				s.BusinessIncome.Cents += c
			} else {
				s.PersonalIncome.Cents += c
			}
		case Expense:
			s.TotalExpenses.Cents += c
			if f.IsBusiness {
				s.BusinessExpenses.Cents += c
			} else {
				s.PersonalExpenses.Cents += c
			}
		}
	}
	s.Balance.Cents = s.TotalIncome.Cents - s.TotalExpenses.Cents
	return s
}
