package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"mamaboss/internal/core"
	"mamaboss/internal/http/apierr"
	"mamaboss/internal/middleware/authn"
)

type progressRequest struct {
	Progress *int `json:"progress"`
}

func bindProgress(c echo.Context) (int, error) {
	var req progressRequest
	if err := BindBody(c, &req); err != nil {
		return 0, err
	}
	if req.Progress == nil {
		return 0, apierr.BadRequest("progress is required", apierr.WithAdvice("send a number from 0 to 100"))
	}
	return *req.Progress, nil
}

// handleListGoals lists goals, narrowed by ?category= or ?status=.
func (s *Server) handleListGoals(c echo.Context) error {
	ctx := c.Request().Context()
	userID := authn.UserID(c)

	category, byCategory, err := ParseEnum[core.GoalCategory](c, "category")
	if err != nil {
		return err
	}
	status, byStatus, err := ParseEnum[core.GoalStatus](c, "status")
	if err != nil {
		return err
	}

	var goals []core.Goal
	switch {
	case byCategory:
		goals, err = s.modules.Goals.ByCategory(ctx, userID, category)
	case byStatus:
		goals, err = s.modules.Goals.ByStatus(ctx, userID, status)
	default:
		goals, err = s.modules.Goals.List(ctx, userID)
	}
	if err != nil {
		return err
	}
	if byCategory && byStatus {
		goals = core.Filter(goals, func(g core.Goal) bool { return g.Status == status })
	}
	return c.JSON(http.StatusOK, nonNil(goals))
}

func (s *Server) handleActiveGoals(c echo.Context) error {
	goals, err := s.modules.Goals.Active(c.Request().Context(), authn.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(goals))
}

func (s *Server) handleCompletedGoals(c echo.Context) error {
	goals, err := s.modules.Goals.Completed(c.Request().Context(), authn.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(goals))
}

func (s *Server) handleCreateGoal(c echo.Context) error {
	var in core.Goal
	if err := BindBody(c, &in); err != nil {
		return err
	}
	in.Title = sanitizeInput(in.Title)
	in.Description = sanitizeInput(in.Description)

	goal, err := s.modules.Goals.Add(c.Request().Context(), authn.UserID(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, goal)
}

func (s *Server) handleGetGoal(c echo.Context) error {
	goal, err := s.modules.Goals.Get(c.Request().Context(), authn.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, goal)
}

func (s *Server) handleUpdateGoal(c echo.Context) error {
	var patch core.GoalPatch
	if err := BindBody(c, &patch); err != nil {
		return err
	}
	sanitizePtr(patch.Title)
	sanitizePtr(patch.Description)

	goal, err := s.modules.Goals.Update(c.Request().Context(), authn.UserID(c), c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, goal)
}

// handleGoalProgress sets progress; reaching 100 completes the goal.
func (s *Server) handleGoalProgress(c echo.Context) error {
	progress, err := bindProgress(c)
	if err != nil {
		return err
	}
	goal, err := s.modules.Goals.UpdateProgress(c.Request().Context(), authn.UserID(c), c.Param("id"), progress)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, goal)
}

func (s *Server) handleDeleteGoal(c echo.Context) error {
	if err := s.modules.Goals.Delete(c.Request().Context(), authn.UserID(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
