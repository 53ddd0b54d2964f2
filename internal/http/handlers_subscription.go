package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"mamaboss/internal/core"
	"mamaboss/internal/http/apierr"
	"mamaboss/internal/middleware/authn"
)

type subscriptionResponse struct {
	Subscription *core.Subscription `json:"subscription"`
	Plan         core.Plan          `json:"plan"`
	IsPremium    bool               `json:"isPremium"`
}

type subscribeResponse struct {
	Subscription core.Subscription       `json:"subscription"`
	Transaction  core.PaymentTransaction `json:"transaction"`
}

type checkoutRequest struct {
	PlanID string `json:"planId"`
}

type checkoutResponse struct {
	PreferenceID     string `json:"preferenceId"`
	InitPoint        string `json:"initPoint"`
	SandboxInitPoint string `json:"sandboxInitPoint,omitempty"`
}

// handleGetSubscription returns the stored subscription with the plan it
// currently grants.
func (s *Server) handleGetSubscription(c echo.Context) error {
	ctx := c.Request().Context()
	userID := authn.UserID(c)

	sub, err := s.modules.Subscriptions.Subscription(ctx, userID)
	if err != nil {
		return err
	}
	plan, err := s.modules.Subscriptions.CurrentPlan(ctx, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, subscriptionResponse{
		Subscription: sub,
		Plan:         plan,
		IsPremium:    plan.Premium,
	})
}

func (s *Server) handleListPlans(c echo.Context) error {
	plans, err := s.modules.Subscriptions.Plans(c.Request().Context(), authn.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, plans)
}

func (s *Server) handleListPaymentMethods(c echo.Context) error {
	return c.JSON(http.StatusOK, nonNil(s.modules.Subscriptions.PaymentMethods()))
}

func (s *Server) handleListTransactions(c echo.Context) error {
	txs, err := s.modules.Subscriptions.Transactions(c.Request().Context(), authn.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, nonNil(txs))
}

// handleSubscribe charges the chosen plan and starts the subscription.
func (s *Server) handleSubscribe(c echo.Context) error {
	ctx := c.Request().Context()
	userID := authn.UserID(c)

	var form core.PaymentForm
	if err := BindBody(c, &form); err != nil {
		return err
	}
	form.PlanID = strings.TrimSpace(form.PlanID)
	form.PaymentMethod = strings.TrimSpace(form.PaymentMethod)
	if form.PlanID == "" || form.PaymentMethod == "" {
		return apierr.BadRequest("planId and paymentMethod are required")
	}

	user, err := s.auth.User(ctx, userID)
	if err != nil {
		return err
	}
	sub, tx, err := s.modules.Subscriptions.Subscribe(ctx, userID, user.Email, form)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, subscribeResponse{Subscription: sub, Transaction: tx})
}

func (s *Server) handleCancelSubscription(c echo.Context) error {
	sub, err := s.modules.Subscriptions.Cancel(c.Request().Context(), authn.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sub)
}

// handleCheckout creates a hosted checkout for a plan and returns where to
// send the user.
func (s *Server) handleCheckout(c echo.Context) error {
	var req checkoutRequest
	if err := BindBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.PlanID) == "" {
		return apierr.BadRequest("planId is required")
	}

	pref, err := s.modules.Subscriptions.Checkout(c.Request().Context(), authn.UserID(c), strings.TrimSpace(req.PlanID))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, checkoutResponse{
		PreferenceID:     pref.ID,
		InitPoint:        pref.InitPoint,
		SandboxInitPoint: pref.SandboxInitPoint,
	})
}
