package core

import "time"

type BillingInterval string

const (
	IntervalMonthly BillingInterval = "monthly"
	IntervalYearly  BillingInterval = "yearly"
)

// PeriodEnd returns the end of a billing period starting at start:
// 30 days for monthly plans, 365 for yearly ones.
func (i BillingInterval) PeriodEnd(start time.Time) time.Time {
	if i == IntervalYearly {
		return start.AddDate(0, 0, 365)
	}
	return start.AddDate(0, 0, 30)
}

// PlanLimits caps collections for a plan. Zero means unlimited.
type PlanLimits struct {
	MaxTasks int `json:"maxTasks" yaml:"maxTasks"`
	MaxGoals int `json:"maxGoals" yaml:"maxGoals"`
}

type Plan struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       Money           `json:"price"`
	Currency    string          `json:"currency"`
	Interval    BillingInterval `json:"interval"`
	Features    []string        `json:"features"`
	IsPopular   bool            `json:"isPopular,omitempty"`
	IsCurrent   bool            `json:"isCurrent,omitempty"`
	Premium     bool            `json:"premium"`
	Limits      PlanLimits      `json:"limits"`
}

type PaymentMethodType string

const (
	MethodCreditCard   PaymentMethodType = "credit_card"
	MethodDebitCard    PaymentMethodType = "debit_card"
	MethodPix          PaymentMethodType = "pix"
	MethodBoleto       PaymentMethodType = "boleto"
	MethodBankTransfer PaymentMethodType = "bank_transfer"
)

type PaymentMethod struct {
	ID          string            `json:"id" yaml:"id"`
	Type        PaymentMethodType `json:"type" yaml:"type"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description" yaml:"description"`
	Icon        string            `json:"icon" yaml:"icon"`
}

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionApproved  TransactionStatus = "approved"
	TransactionRejected  TransactionStatus = "rejected"
	TransactionCancelled TransactionStatus = "cancelled"
)

type PaymentTransaction struct {
	ID            string            `json:"id"`
	UserID        string            `json:"userId"`
	PlanID        string            `json:"planId"`
	Amount        Money             `json:"amount"`
	Currency      string            `json:"currency"`
	Status        TransactionStatus `json:"status"`
	PaymentMethod string            `json:"paymentMethod"`
	MercadoPagoID string            `json:"mercadopagoId,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionPending   SubscriptionStatus = "pending"
)

type Subscription struct {
	ID        string             `json:"id"`
	UserID    string             `json:"userId"`
	PlanID    string             `json:"planId"`
	Status    SubscriptionStatus `json:"status"`
	StartDate time.Time          `json:"startDate"`
	EndDate   time.Time          `json:"endDate"`
	AutoRenew bool               `json:"autoRenew"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`

	// PendingPaymentID is a charge the processor has not settled yet, for
	// PendingPlanID: a renewal of PlanID or a change to another plan.
	PendingPaymentID string `json:"pendingPaymentId,omitempty"`
	PendingPlanID    string `json:"pendingPlanId,omitempty"`
}

// IsActive reports whether the subscription currently grants its plan.
func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == SubscriptionActive
}

// AwaitingPayment reports whether a charge for this subscription is
// still pending at the processor.
func (s *Subscription) AwaitingPayment() bool {
	return s != nil && s.PendingPaymentID != ""
}

// ClearPending forgets the unsettled charge.
func (s *Subscription) ClearPending() {
	s.PendingPaymentID = ""
	s.PendingPlanID = ""
}

// Lapsed reports whether the paid period is over at now.
func (s *Subscription) Lapsed(now time.Time) bool {
	return s != nil && !now.Before(s.EndDate)
}

// PaymentForm is what the client submits to subscribe. Card fields are
// forwarded to the processor and never stored.
type PaymentForm struct {
	PlanID         string `json:"planId"`
	PaymentMethod  string `json:"paymentMethod"`
	CardNumber     string `json:"cardNumber,omitempty"`
	CardHolderName string `json:"cardHolderName,omitempty"`
	CardExpiry     string `json:"cardExpiry,omitempty"`
	CardCVV        string `json:"cardCvv,omitempty"`
	CardToken      string `json:"cardToken,omitempty"`
	Installments   int    `json:"installments,omitempty"`
}
