package services

import (
	"context"
	"strings"

	"mamaboss/internal/core"
	"mamaboss/internal/log"
	"mamaboss/internal/storage"
)

// FinanceSyncPublisher queues a stored finance record for spreadsheet export.
type FinanceSyncPublisher interface {
	PublishFinanceSync(ctx context.Context, userID, financeID string) error
}

type FinanceService struct {
	deps     Deps
	finances collection[core.Finance]
	sync     FinanceSyncPublisher
	slog     *log.StructuredLogger
}

// NewFinanceService creates the finances module. sync may be nil when no
// export is configured.
func NewFinanceService(deps Deps, sync FinanceSyncPublisher) *FinanceService {
	deps = deps.withDefaults()
	return &FinanceService{
		deps:     deps,
		finances: newCollection[core.Finance](deps, storage.KeyFinances),
		sync:     sync,
		slog:     log.NewStructuredLogger(deps.Logger),
	}
}

func (s *FinanceService) List(ctx context.Context, userID string) ([]core.Finance, error) {
	return s.finances.list(ctx, userID)
}

func (s *FinanceService) Get(ctx context.Context, userID, id string) (core.Finance, error) {
	finances, err := s.finances.list(ctx, userID)
	if err != nil {
		return core.Finance{}, err
	}
	i, err := indexOf(finances, id, financeID)
	if err != nil {
		return core.Finance{}, err
	}
	return finances[i], nil
}

// Add appends a record and queues it for export. A failed publish is
// logged; the record stays stored.
func (s *FinanceService) Add(ctx context.Context, userID string, in core.Finance) (core.Finance, error) {
	now := s.deps.now()
	f := core.Finance{
		ID:          newID(),
		UserID:      userID,
		Type:        in.Type,
		Category:    strings.TrimSpace(in.Category),
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		Date:        in.Date,
		IsBusiness:  in.IsBusiness,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := f.Validate(); err != nil {
		return core.Finance{}, err
	}
	err := s.finances.update(ctx, userID, func(finances []core.Finance) ([]core.Finance, error) {
		return append(finances, f), nil
	})
	if err != nil {
		return core.Finance{}, err
	}

	s.deps.Logger.InfoContext(ctx, "Finance record created",
		log.FieldComponent, log.ComponentFinances,
		log.FieldUserID, userID,
		log.FieldEntityID, f.ID,
		log.FieldAmountCents, f.Amount.Cents,
		"type", f.Type)

	if s.sync != nil {
		if err := s.sync.PublishFinanceSync(ctx, userID, f.ID); err != nil {
			s.deps.Logger.WarnContext(ctx, "Failed to queue finance export",
				log.FieldComponent, log.ComponentFinances,
				log.FieldEntityID, f.ID,
				log.FieldError, err)
		}
	}
	return f, nil
}

func (s *FinanceService) Update(ctx context.Context, userID, id string, p core.FinancePatch) (core.Finance, error) {
	var out core.Finance
	err := s.finances.update(ctx, userID, func(finances []core.Finance) ([]core.Finance, error) {
		i, err := indexOf(finances, id, financeID)
		if err != nil {
			return nil, err
		}
		f := finances[i]
		f.Apply(p)
		if err := f.Validate(); err != nil {
			return nil, err
		}
		f.UpdatedAt = s.deps.now()
		finances[i] = f
		out = f
		return finances, nil
	})
	if err != nil {
		return core.Finance{}, err
	}
	s.slog.LogMutation(ctx, log.ComponentFinances, log.OpUpdate, userID, "finance", id)
	return out, nil
}

func (s *FinanceService) Delete(ctx context.Context, userID, id string) error {
	err := s.finances.update(ctx, userID, func(finances []core.Finance) ([]core.Finance, error) {
		i, err := indexOf(finances, id, financeID)
		if err != nil {
			return nil, err
		}
		return remove(finances, i), nil
	})
	if err != nil {
		return err
	}
	s.slog.LogMutation(ctx, log.ComponentFinances, log.OpDelete, userID, "finance", id)
	return nil
}

// ByMonth returns the records dated in year/month, month being 1..12.
func (s *FinanceService) ByMonth(ctx context.Context, userID string, year, month int) ([]core.Finance, error) {
	if err := core.ValidateMonth(month); err != nil {
		return nil, err
	}
	loc := s.deps.Location
	return s.filter(ctx, userID, func(f core.Finance) bool { return core.InMonth(f.Date, year, month, loc) })
}

func (s *FinanceService) ByType(ctx context.Context, userID string, t core.FinanceType) ([]core.Finance, error) {
	return s.filter(ctx, userID, func(f core.Finance) bool { return f.Type == t })
}

func (s *FinanceService) ByCategory(ctx context.Context, userID, category string) ([]core.Finance, error) {
	return s.filter(ctx, userID, func(f core.Finance) bool { return f.Category == category })
}

// ByBusiness returns business records when business is true, personal ones otherwise.
func (s *FinanceService) ByBusiness(ctx context.Context, userID string, business bool) ([]core.Finance, error) {
	return s.filter(ctx, userID, func(f core.Finance) bool { return f.IsBusiness == business })
}

func (s *FinanceService) MonthlyStats(ctx context.Context, userID string, year, month int) (core.FinanceStats, error) {
	if err := core.ValidateMonth(month); err != nil {
		return core.FinanceStats{}, err
	}
	finances, err := s.finances.list(ctx, userID)
	if err != nil {
		return core.FinanceStats{}, err
	}
	return core.MonthlyStats(finances, year, month, s.deps.Location), nil
}

// Breakdown totals one finance type per category for year/month.
func (s *FinanceService) Breakdown(ctx context.Context, userID string, t core.FinanceType, year, month int) (core.MonthOverview, error) {
	if err := core.ValidateMonth(month); err != nil {
		return core.MonthOverview{}, err
	}
	if !t.Valid() {
		return core.MonthOverview{}, core.ErrInvalidType
	}
	finances, err := s.finances.list(ctx, userID)
	if err != nil {
		return core.MonthOverview{}, err
	}
	return core.CategoryBreakdown(finances, t, year, month, s.deps.Location), nil
}

func (s *FinanceService) filter(ctx context.Context, userID string, keep func(core.Finance) bool) ([]core.Finance, error) {
	finances, err := s.finances.list(ctx, userID)
	if err != nil {
		return nil, err
	}
	return core.Filter(finances, keep), nil
}

func financeID(f core.Finance) string { return f.ID }
