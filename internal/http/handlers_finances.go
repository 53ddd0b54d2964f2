package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"mamaboss/internal/core"
	"mamaboss/internal/middleware/authn"
)

// handleListFinances lists finance records. Filters combine:
// ?year=&month=, ?type=, ?category= and ?business=true|false.
func (s *Server) handleListFinances(c echo.Context) error {
	ctx := c.Request().Context()
	userID := authn.UserID(c)

	typ, byType, err := ParseEnum[core.FinanceType](c, "type")
	if err != nil {
		return err
	}
	category := sanitizeInput(c.QueryParam("category"))

	var business, byBusiness bool
	if raw := c.QueryParam("business"); raw != "" {
		if business, err = ParseBool("business", raw); err != nil {
			return err
		}
		byBusiness = true
	}

	var records []core.Finance
	switch {
	case c.QueryParam("year") != "" || c.QueryParam("month") != "":
		params, perr := ParseMonthParams(c, s.now())
		if perr != nil {
			return perr
		}
		records, err = s.modules.Finances.ByMonth(ctx, userID, params.Year, params.Month)
	case byType:
		records, err = s.modules.Finances.ByType(ctx, userID, typ)
	case category != "":
		records, err = s.modules.Finances.ByCategory(ctx, userID, category)
	case byBusiness:
		records, err = s.modules.Finances.ByBusiness(ctx, userID, business)
	default:
		records, err = s.modules.Finances.List(ctx, userID)
	}
	if err != nil {
		return err
	}

	records = core.Filter(records, func(f core.Finance) bool {
		return (!byType || f.Type == typ) &&
			(category == "" || f.Category == category) &&
			(!byBusiness || f.IsBusiness == business)
	})
	return c.JSON(http.StatusOK, nonNil(records))
}

// handleFinanceStats totals ?year=&month=, defaulting to the current month.
func (s *Server) handleFinanceStats(c echo.Context) error {
	params, err := ParseMonthParams(c, s.now())
	if err != nil {
		return err
	}
	stats, err := s.modules.Finances.MonthlyStats(c.Request().Context(), authn.UserID(c), params.Year, params.Month)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// handleFinanceBreakdown groups one ?type= (default despesa) by category.
func (s *Server) handleFinanceBreakdown(c echo.Context) error {
	params, err := ParseMonthParams(c, s.now())
	if err != nil {
		return err
	}
	typ, ok, err := ParseEnum[core.FinanceType](c, "type")
	if err != nil {
		return err
	}
	if !ok {
		typ = core.Expense
	}
	overview, err := s.modules.Finances.Breakdown(c.Request().Context(), authn.UserID(c), typ, params.Year, params.Month)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, overview)
}

func (s *Server) handleCreateFinance(c echo.Context) error {
	var in core.Finance
	if err := BindBody(c, &in); err != nil {
		return err
	}
	in.Category = sanitizeInput(in.Category)
	in.Description = sanitizeInput(in.Description)

	record, err := s.modules.Finances.Add(c.Request().Context(), authn.UserID(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, record)
}

func (s *Server) handleGetFinance(c echo.Context) error {
	record, err := s.modules.Finances.Get(c.Request().Context(), authn.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}

func (s *Server) handleUpdateFinance(c echo.Context) error {
	var patch core.FinancePatch
	if err := BindBody(c, &patch); err != nil {
		return err
	}
	sanitizePtr(patch.Category)
	sanitizePtr(patch.Description)

	record, err := s.modules.Finances.Update(c.Request().Context(), authn.UserID(c), c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}

func (s *Server) handleDeleteFinance(c echo.Context) error {
	if err := s.modules.Finances.Delete(c.Request().Context(), authn.UserID(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
