// Package payment charges subscription plans and creates hosted checkout
// preferences, either against Mercado Pago or a local simulator.
package payment

import (
	"context"
	"errors"

	"mamaboss/internal/core"
)

var (
	// ErrDeclined is returned when the processor refuses the charge.
	ErrDeclined = errors.New("payment declined")
	// ErrNotFound is returned for an unknown processor payment id.
	ErrNotFound = errors.New("payment not found")
)

// ChargeRequest is one attempt to pay for a plan.
type ChargeRequest struct {
	UserID string
	Email  string
	Plan   core.Plan
	Form   core.PaymentForm
}

// ExternalReference ties a processor payment back to its user and plan.
func (r ChargeRequest) ExternalReference() string {
	return ExternalReference(r.UserID, r.Plan.ID)
}

// ChargeResult is the processor's answer to an accepted charge.
type ChargeResult struct {
	ProcessorID string
	Status      core.TransactionStatus
}

// Processor charges a plan. A refused charge returns ErrDeclined.
type Processor interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// Payment is the subset of a processor payment the webhook flow reads.
type Payment struct {
	ID                string  `json:"id"`
	Status            string  `json:"status"`
	StatusDetail      string  `json:"status_detail,omitempty"`
	ExternalReference string  `json:"external_reference"`
	TransactionAmount float64 `json:"transaction_amount"`
	CurrencyID        string  `json:"currency_id"`
	PaymentMethodID   string  `json:"payment_method_id"`
}

// TransactionStatus maps processor statuses onto ours. Anything not yet
// settled is pending.
func (p Payment) TransactionStatus() core.TransactionStatus {
	switch p.Status {
	case "approved", "authorized":
		return core.TransactionApproved
	case "rejected":
		return core.TransactionRejected
	case "cancelled", "refunded", "charged_back":
		return core.TransactionCancelled
	default:
		return core.TransactionPending
	}
}

// PaymentGetter fetches a payment by processor id.
type PaymentGetter interface {
	GetPayment(ctx context.Context, id string) (*Payment, error)
}

// Item is one line of a checkout preference.
type Item struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

// BackURLs are where the hosted checkout returns the buyer.
type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// PreferenceRequest is the body of a hosted checkout preference.
type PreferenceRequest struct {
	Items             []Item   `json:"items"`
	BackURLs          BackURLs `json:"back_urls"`
	AutoReturn        string   `json:"auto_return,omitempty"`
	ExternalReference string   `json:"external_reference"`
	NotificationURL   string   `json:"notification_url,omitempty"`
}

// Preference is a created checkout.
type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point,omitempty"`
}

// Checkout creates hosted checkout preferences.
type Checkout interface {
	CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error)
}
