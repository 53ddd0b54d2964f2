package memory

import (
	"context"
	"fmt"
	"sync"

	"mamaboss/internal/core"
	ports "mamaboss/internal/sheets"
)

// Store keeps exported finance rows in memory. It stands in for the
// Google client in tests and when no spreadsheet is configured.
type Store struct {
	mu    sync.Mutex
	items []core.Finance
}

var (
	_ ports.FinanceWriter = (*Store)(nil)
	_ ports.FinanceLister = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// AppendFinance stores the record and returns a synthetic row reference.
func (s *Store) AppendFinance(_ context.Context, f core.Finance) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, f)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// ListFinances returns the rows whose date falls in year/month.
func (s *Store) ListFinances(_ context.Context, year int, month int) ([]core.Finance, error) {
	if err := core.ValidateMonth(month); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Finance
	for _, f := range s.items {
		if f.Date.Year() == year && int(f.Date.Month()) == month {
			out = append(out, f)
		}
	}
	return out, nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []core.Finance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Finance(nil), s.items...)
}
