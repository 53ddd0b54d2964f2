package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"mamaboss/internal/core"
	"mamaboss/internal/middleware/authn"
)

// handleListEvents lists events. ?date=YYYY-MM-DD selects one day,
// ?year=&month= one month; ?type= narrows either.
func (s *Server) handleListEvents(c echo.Context) error {
	ctx := c.Request().Context()
	userID := authn.UserID(c)

	typ, byType, err := ParseEnum[core.EventType](c, "type")
	if err != nil {
		return err
	}

	var events []core.Event
	switch {
	case c.QueryParam("date") != "":
		day, perr := ParseDay(c.QueryParam("date"), s.cfg.Location)
		if perr != nil {
			return perr
		}
		events, err = s.modules.Events.ByDate(ctx, userID, day)
	case c.QueryParam("year") != "" || c.QueryParam("month") != "":
		params, perr := ParseMonthParams(c, s.now())
		if perr != nil {
			return perr
		}
		events, err = s.modules.Events.ByMonth(ctx, userID, params.Year, params.Month)
	case byType:
		events, err = s.modules.Events.ByType(ctx, userID, typ)
	default:
		events, err = s.modules.Events.List(ctx, userID)
	}
	if err != nil {
		return err
	}
	if byType {
		events = core.Filter(events, func(e core.Event) bool { return e.Type == typ })
	}
	return c.JSON(http.StatusOK, nonNil(events))
}

func (s *Server) handleUpcomingEvents(c echo.Context) error {
	events, err := s.modules.Events.Upcoming(c.Request().Context(), authn.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(events))
}

// handleCalendar returns the 42-cell month view for ?year=&month=,
// defaulting to the current month.
func (s *Server) handleCalendar(c echo.Context) error {
	params, err := ParseMonthParams(c, s.now())
	if err != nil {
		return err
	}
	days, err := s.modules.Events.MonthGrid(c.Request().Context(), authn.UserID(c), params.Year, params.Month)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"year":  params.Year,
		"month": params.Month,
		"days":  days,
	})
}

func (s *Server) handleCreateEvent(c echo.Context) error {
	var in core.Event
	if err := BindBody(c, &in); err != nil {
		return err
	}
	in.Title = sanitizeInput(in.Title)
	in.Description = sanitizeInput(in.Description)

	event, err := s.modules.Events.Add(c.Request().Context(), authn.UserID(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, event)
}

func (s *Server) handleGetEvent(c echo.Context) error {
	event, err := s.modules.Events.Get(c.Request().Context(), authn.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, event)
}

func (s *Server) handleUpdateEvent(c echo.Context) error {
	var patch core.EventPatch
	if err := BindBody(c, &patch); err != nil {
		return err
	}
	sanitizePtr(patch.Title)
	sanitizePtr(patch.Description)

	event, err := s.modules.Events.Update(c.Request().Context(), authn.UserID(c), c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, event)
}

func (s *Server) handleDeleteEvent(c echo.Context) error {
	if err := s.modules.Events.Delete(c.Request().Context(), authn.UserID(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
