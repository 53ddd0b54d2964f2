package google

import (
	"strconv"
	"strings"
	"time"

	"mamaboss/internal/core"
)

// parseFinanceRows converts a values matrix (as returned by Sheets API)
// into finance records for month. Header and malformed rows are skipped.
func parseFinanceRows(values [][]any, year, month int) []core.Finance {
	var out []core.Finance
	for _, raw := range values {
		cols := toStrings(raw)
		if len(cols) < 6 {
			continue
		}
		m, err := strconv.Atoi(cols[0])
		if err != nil || m != month {
			continue
		}
		day, err := strconv.Atoi(cols[1])
		if err != nil || day < 1 || day > 31 {
			continue
		}
		amount, err := parseAmount(cols[5])
		if err != nil {
			continue
		}
		f := core.Finance{
			Type:        core.FinanceType(cols[2]),
			Description: cols[3],
			Category:    cols[4],
			Amount:      amount,
			Date:        time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC),
		}
		if len(cols) > 6 {
			f.UserID = cols[6]
		}
		if len(cols) > 7 {
			f.ID = cols[7]
		}
		if f.Type != core.Income && f.Type != core.Expense {
			continue
		}
		out = append(out, f)
	}
	return out
}

// parseAmount accepts both "29.90" and the pt-BR "29,90".
func parseAmount(s string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}
