package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"mamaboss/internal/core"
	"mamaboss/internal/middleware/authn"
)

// handleListTasks lists tasks, narrowed by ?category= or ?priority=.
func (s *Server) handleListTasks(c echo.Context) error {
	ctx := c.Request().Context()
	userID := authn.UserID(c)

	category, byCategory, err := ParseEnum[core.TaskCategory](c, "category")
	if err != nil {
		return err
	}
	priority, byPriority, err := ParseEnum[core.Priority](c, "priority")
	if err != nil {
		return err
	}

	var tasks []core.Task
	switch {
	case byCategory:
		tasks, err = s.modules.Tasks.ByCategory(ctx, userID, category)
	case byPriority:
		tasks, err = s.modules.Tasks.ByPriority(ctx, userID, priority)
	default:
		tasks, err = s.modules.Tasks.List(ctx, userID)
	}
	if err != nil {
		return err
	}
	if byCategory && byPriority {
		tasks = core.Filter(tasks, func(t core.Task) bool { return t.Priority == priority })
	}
	return c.JSON(http.StatusOK, nonNil(tasks))
}

func (s *Server) handlePendingTasks(c echo.Context) error {
	tasks, err := s.modules.Tasks.Pending(c.Request().Context(), authn.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(tasks))
}

func (s *Server) handleCompletedTasks(c echo.Context) error {
	tasks, err := s.modules.Tasks.Completed(c.Request().Context(), authn.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(tasks))
}

func (s *Server) handleCreateTask(c echo.Context) error {
	var in core.Task
	if err := BindBody(c, &in); err != nil {
		return err
	}
	in.Title = sanitizeInput(in.Title)
	in.Description = sanitizeInput(in.Description)

	task, err := s.modules.Tasks.Add(c.Request().Context(), authn.UserID(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, task)
}

func (s *Server) handleGetTask(c echo.Context) error {
	task, err := s.modules.Tasks.Get(c.Request().Context(), authn.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) handleUpdateTask(c echo.Context) error {
	var patch core.TaskPatch
	if err := BindBody(c, &patch); err != nil {
		return err
	}
	sanitizePtr(patch.Title)
	sanitizePtr(patch.Description)

	task, err := s.modules.Tasks.Update(c.Request().Context(), authn.UserID(c), c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) handleToggleTask(c echo.Context) error {
	task, err := s.modules.Tasks.ToggleComplete(c.Request().Context(), authn.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

func (s *Server) handleDeleteTask(c echo.Context) error {
	if err := s.modules.Tasks.Delete(c.Request().Context(), authn.UserID(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// nonNil keeps empty collections rendering as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func sanitizePtr(s *string) {
	if s != nil {
		*s = sanitizeInput(*s)
	}
}
