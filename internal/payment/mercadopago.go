package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"mamaboss/internal/core"
	"mamaboss/internal/log"
)

// APIError is a non-2xx answer from the Mercado Pago API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mercadopago: status %d: %s", e.StatusCode, e.Message)
}

// MercadoPago talks to the Mercado Pago REST API with an access token.
type MercadoPago struct {
	baseURL     string
	accessToken string
	http        *http.Client
	logger      *log.Logger
}

var (
	_ Processor     = (*MercadoPago)(nil)
	_ PaymentGetter = (*MercadoPago)(nil)
	_ Checkout      = (*MercadoPago)(nil)
)

func NewMercadoPago(baseURL, accessToken string, httpClient *http.Client, logger *log.Logger) *MercadoPago {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &MercadoPago{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		http:        httpClient,
		logger:      logger.WithComponent(log.ComponentPayment),
	}
}

// mpPayment mirrors the API payload, whose id is numeric.
type mpPayment struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	ExternalReference string      `json:"external_reference"`
	TransactionAmount float64     `json:"transaction_amount"`
	CurrencyID        string      `json:"currency_id"`
	PaymentMethodID   string      `json:"payment_method_id"`
}

func (p mpPayment) payment() *Payment {
	return &Payment{
		ID:                p.ID.String(),
		Status:            p.Status,
		StatusDetail:      p.StatusDetail,
		ExternalReference: p.ExternalReference,
		TransactionAmount: p.TransactionAmount,
		CurrencyID:        p.CurrencyID,
		PaymentMethodID:   p.PaymentMethodID,
	}
}

func (c *MercadoPago) GetPayment(ctx context.Context, id string) (*Payment, error) {
	var p mpPayment
	err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil, "", &p)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return p.payment(), nil
}

func (c *MercadoPago) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("preference has no items")
	}
	var pref Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", req, "", &pref); err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "Checkout preference created", "preference_id", pref.ID)
	return &pref, nil
}

type paymentBody struct {
	TransactionAmount float64 `json:"transaction_amount"`
	Description       string  `json:"description"`
	PaymentMethodID   string  `json:"payment_method_id"`
	Token             string  `json:"token,omitempty"`
	Installments      int     `json:"installments,omitempty"`
	ExternalReference string  `json:"external_reference"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
}

// Charge creates a payment for the plan. Card methods need the card token
// produced by the Mercado Pago browser SDK.
func (c *MercadoPago) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	body := paymentBody{
		TransactionAmount: req.Plan.Price.Decimal(),
		Description:       "MamaBoss " + req.Plan.Name,
		PaymentMethodID:   methodID(req.Form),
		Token:             req.Form.CardToken,
		Installments:      req.Form.Installments,
		ExternalReference: req.ExternalReference(),
	}
	body.Payer.Email = req.Email
	if body.Installments == 0 && body.Token != "" {
		body.Installments = 1
	}

	var p mpPayment
	if err := c.do(ctx, http.MethodPost, "/v1/payments", body, uuid.NewString(), &p); err != nil {
		return ChargeResult{}, err
	}

	status := p.payment().TransactionStatus()
	c.logger.InfoContext(ctx, "Payment created",
		log.FieldPaymentID, p.ID.String(),
		log.FieldPaymentStatus, p.Status,
		log.FieldPlanID, req.Plan.ID)

	if status == core.TransactionRejected || status == core.TransactionCancelled {
		return ChargeResult{}, fmt.Errorf("%w: %s", ErrDeclined, p.StatusDetail)
	}
	return ChargeResult{ProcessorID: p.ID.String(), Status: status}, nil
}

// methodID maps our method ids onto Mercado Pago's payment_method_id.
func methodID(form core.PaymentForm) string {
	switch core.PaymentMethodType(form.PaymentMethod) {
	case core.MethodPix:
		return "pix"
	case core.MethodBoleto:
		return "bolbradesco"
	default:
		return form.PaymentMethod
	}
}

func (c *MercadoPago) do(ctx context.Context, method, path string, in any, idempotencyKey string, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mercadopago %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &e)
		if e.Message == "" {
			e.Message = strings.TrimSpace(string(raw))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
