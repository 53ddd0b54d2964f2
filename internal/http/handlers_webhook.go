package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"mamaboss/internal/amqp"
	"mamaboss/internal/log"
)

const maxWebhookBody = 64 << 10

type webhookNotification struct {
	Type   string          `json:"type"`
	Action string          `json:"action,omitempty"`
	Data   json.RawMessage `json:"data"`
}

type webhookData struct {
	ID json.RawMessage `json:"id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// handleMercadoPagoWebhook accepts processor notifications. Payment
// notifications are handed to the PaymentNotifier; everything else is only
// logged. The body shapes here are what Mercado Pago expects back.
func (s *Server) handleMercadoPagoWebhook(c echo.Context) error {
	if c.Request().Method != http.MethodPost {
		return c.JSON(http.StatusMethodNotAllowed, messageResponse{Message: "Method not allowed"})
	}

	ctx := c.Request().Context()
	logger := s.logger.WithComponent(log.ComponentWebhook)

	n, err := readWebhook(c)
	if err != nil {
		logger.ErrorContext(ctx, "Webhook processing failed", log.FieldError, err)
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
	}
	logger.InfoContext(ctx, "Webhook received", "type", n.Type, "data", string(n.Data))

	if n.Type == "payment" {
		paymentID := n.paymentID()
		if paymentID == "" {
			paymentID = c.QueryParam("data.id")
		}
		if paymentID == "" {
			logger.WarnContext(ctx, "Payment notification without id")
		} else if err := s.notifyPayment(c, amqp.PaymentNotification{
			PaymentID: paymentID,
			Topic:     n.Type,
			Action:    n.Action,
		}); err != nil {
			logger.ErrorContext(ctx, "Webhook processing failed", log.FieldPaymentID, paymentID, log.FieldError, err)
			return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
		}
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "Webhook processed successfully"})
}

func (s *Server) notifyPayment(c echo.Context, n amqp.PaymentNotification) error {
	if s.payments == nil {
		return fmt.Errorf("no payment notifier configured")
	}
	return s.payments.PublishPaymentNotification(c.Request().Context(), n)
}

// readWebhook decodes the JSON body. Legacy IPN calls carry everything in
// the query string (?topic=payment&id=123) with an empty body.
func readWebhook(c echo.Context) (webhookNotification, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return webhookNotification{}, fmt.Errorf("read body: %w", err)
	}

	var n webhookNotification
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &n); err != nil {
			return webhookNotification{}, fmt.Errorf("decode body: %w", err)
		}
	}

	if n.Type == "" {
		n.Type = c.QueryParam("type")
	}
	if n.Type == "" {
		n.Type = c.QueryParam("topic")
	}
	if len(n.Data) == 0 {
		if id := c.QueryParam("id"); id != "" {
			n.Data = json.RawMessage(`{"id":` + strconv.Quote(id) + `}`)
		}
	}
	return n, nil
}

// paymentID reads data.id, which arrives as a string or a number.
func (n webhookNotification) paymentID() string {
	if len(n.Data) == 0 {
		return ""
	}
	var d webhookData
	if err := json.Unmarshal(n.Data, &d); err != nil || len(d.ID) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(d.ID, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var num json.Number
	if err := json.Unmarshal(d.ID, &num); err == nil {
		return num.String()
	}
	return ""
}
