package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"mamaboss/internal/auth"
	"mamaboss/internal/core"
	"mamaboss/internal/http/apierr"
	"mamaboss/internal/middleware/authn"
)

type googleLoginRequest struct {
	Credential string `json:"credential"`
}

func (s *Server) handleRegister(c echo.Context) error {
	var form auth.RegisterForm
	if err := BindBody(c, &form); err != nil {
		return err
	}
	form.Name = sanitizeInput(form.Name)
	form.Email = sanitizeInput(form.Email)

	sess, err := s.auth.Register(c.Request().Context(), form)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sess)
}

func (s *Server) handleLogin(c echo.Context) error {
	var form auth.LoginForm
	if err := BindBody(c, &form); err != nil {
		return err
	}
	form.Email = sanitizeInput(form.Email)

	sess, err := s.auth.Login(c.Request().Context(), form)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

func (s *Server) handleGoogleLogin(c echo.Context) error {
	var req googleLoginRequest
	if err := BindBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Credential) == "" {
		return apierr.BadRequest("credential is required", apierr.WithAdvice("send the Google ID token as credential"))
	}

	sess, err := s.auth.GoogleLogin(c.Request().Context(), req.Credential)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

func (s *Server) handleLogout(c echo.Context) error {
	if err := s.auth.Logout(c.Request().Context(), authn.UserID(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetMe(c echo.Context) error {
	user, err := s.auth.User(c.Request().Context(), authn.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (s *Server) handleUpdateMe(c echo.Context) error {
	var patch core.UserPatch
	if err := BindBody(c, &patch); err != nil {
		return err
	}
	if patch.Name != nil {
		*patch.Name = sanitizeInput(*patch.Name)
	}

	user, err := s.auth.UpdateUser(c.Request().Context(), authn.UserID(c), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
