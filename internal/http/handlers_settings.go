package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"mamaboss/internal/core"
	"mamaboss/internal/middleware/authn"
)

func (s *Server) handleGetSettings(c echo.Context) error {
	settings, err := s.modules.Settings.Get(c.Request().Context(), authn.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

// handleUpdateSettings merges a partial document, section by section.
func (s *Server) handleUpdateSettings(c echo.Context) error {
	var patch core.SettingsPatch
	if err := BindBody(c, &patch); err != nil {
		return err
	}
	settings, err := s.modules.Settings.Update(c.Request().Context(), authn.UserID(c), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

func (s *Server) handleResetSettings(c echo.Context) error {
	settings, err := s.modules.Settings.Reset(c.Request().Context(), authn.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

func (s *Server) handleDashboard(c echo.Context) error {
	dashboard, err := s.modules.Dashboard.Get(c.Request().Context(), authn.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dashboard)
}
