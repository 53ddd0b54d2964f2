package sheets

import (
	"context"

	"mamaboss/internal/core"
)

// Ports for outbound adapters.
type (
	// FinanceWriter exports one finance record as a spreadsheet row.
	FinanceWriter interface {
		AppendFinance(ctx context.Context, f core.Finance) (rowRef string, err error)
	}

	// FinanceLister returns the exported records for a given month.
	FinanceLister interface {
		ListFinances(ctx context.Context, year int, month int) ([]core.Finance, error)
	}
)
