package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"mamaboss/internal/core"
	"mamaboss/internal/middleware/authn"
)

// handleListCourses lists courses, narrowed by ?category= and ?progress=.
func (s *Server) handleListCourses(c echo.Context) error {
	ctx := c.Request().Context()
	userID := authn.UserID(c)

	category, byCategory, err := ParseEnum[core.CourseCategory](c, "category")
	if err != nil {
		return err
	}
	var progress int
	byProgress := c.QueryParam("progress") != ""
	if byProgress {
		if progress, err = ParseInt("progress", c.QueryParam("progress")); err != nil {
			return err
		}
	}

	var courses []core.Course
	switch {
	case byCategory:
		courses, err = s.modules.Courses.ByCategory(ctx, userID, category)
	case byProgress:
		courses, err = s.modules.Courses.ByProgress(ctx, userID, progress)
	default:
		courses, err = s.modules.Courses.List(ctx, userID)
	}
	if err != nil {
		return err
	}
	if byCategory && byProgress {
		courses = core.Filter(courses, func(course core.Course) bool { return course.Progress == progress })
	}
	return c.JSON(http.StatusOK, nonNil(courses))
}

func (s *Server) handlePremiumCourses(c echo.Context) error {
	courses, err := s.modules.Courses.Premium(c.Request().Context(), authn.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(courses))
}

func (s *Server) handleFreeCourses(c echo.Context) error {
	courses, err := s.modules.Courses.Free(c.Request().Context(), authn.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(courses))
}

func (s *Server) handleCourseStats(c echo.Context) error {
	stats, err := s.modules.Courses.Stats(c.Request().Context(), authn.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleCreateCourse(c echo.Context) error {
	var in core.Course
	if err := BindBody(c, &in); err != nil {
		return err
	}
	in.Title = sanitizeInput(in.Title)
	in.Description = sanitizeInput(in.Description)

	course, err := s.modules.Courses.Add(c.Request().Context(), authn.UserID(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, course)
}

func (s *Server) handleGetCourse(c echo.Context) error {
	course, err := s.modules.Courses.Get(c.Request().Context(), authn.UserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, course)
}

func (s *Server) handleUpdateCourse(c echo.Context) error {
	var patch core.CoursePatch
	if err := BindBody(c, &patch); err != nil {
		return err
	}
	sanitizePtr(patch.Title)
	sanitizePtr(patch.Description)

	course, err := s.modules.Courses.Update(c.Request().Context(), authn.UserID(c), c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, course)
}

// handleCourseProgress sets progress; premium courses need a premium plan.
func (s *Server) handleCourseProgress(c echo.Context) error {
	progress, err := bindProgress(c)
	if err != nil {
		return err
	}
	course, err := s.modules.Courses.UpdateProgress(c.Request().Context(), authn.UserID(c), c.Param("id"), progress)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, course)
}

func (s *Server) handleDeleteCourse(c echo.Context) error {
	if err := s.modules.Courses.Delete(c.Request().Context(), authn.UserID(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
