package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"mamaboss/internal/core"
	"mamaboss/internal/log"
	"mamaboss/internal/payment"
	"mamaboss/internal/storage"
)

// CheckoutURLs configure hosted checkout preferences.
type CheckoutURLs struct {
	Success      string
	Failure      string
	Pending      string
	Notification string
}

// SubscriptionConfig wires the payment side of the subscription module.
type SubscriptionConfig struct {
	Catalog   *Catalog
	Processor payment.Processor
	Checkout  payment.Checkout
	Payments  payment.PaymentGetter
	URLs      CheckoutURLs
}

type SubscriptionService struct {
	deps         Deps
	cfg          SubscriptionConfig
	transactions collection[core.PaymentTransaction]
	locks        keyedMutex
	processed    keyedMutex
	slog         *log.StructuredLogger
}

var _ PlanResolver = (*SubscriptionService)(nil)

func NewSubscriptionService(deps Deps, cfg SubscriptionConfig) *SubscriptionService {
	deps = deps.withDefaults()
	return &SubscriptionService{
		deps:         deps,
		cfg:          cfg,
		transactions: newCollection[core.PaymentTransaction](deps, storage.KeyTransactions),
		slog:         log.NewStructuredLogger(deps.Logger),
	}
}

func (s *SubscriptionService) Catalog() *Catalog {
	return s.cfg.Catalog
}

// Plans lists every plan, flagging the one the user is on.
func (s *SubscriptionService) Plans(ctx context.Context, userID string) ([]core.Plan, error) {
	current, err := s.CurrentPlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	plans := make([]core.Plan, len(s.cfg.Catalog.Plans))
	for i, p := range s.cfg.Catalog.Plans {
		p.IsCurrent = p.ID == current.ID
		plans[i] = p
	}
	return plans, nil
}

func (s *SubscriptionService) PaymentMethods() []core.PaymentMethod {
	return s.cfg.Catalog.Methods
}

// Subscription returns the stored subscription in any status, or nil.
func (s *SubscriptionService) Subscription(ctx context.Context, userID string) (*core.Subscription, error) {
	sub, _, err := storage.Load[*core.Subscription](ctx, s.deps.Store, userID, storage.KeySubscription)
	return sub, err
}

// ActiveSubscription returns the subscription only while it is active.
func (s *SubscriptionService) ActiveSubscription(ctx context.Context, userID string) (*core.Subscription, error) {
	sub, err := s.Subscription(ctx, userID)
	if err != nil || !sub.IsActive() {
		return nil, err
	}
	return sub, nil
}

// CurrentPlan is the plan of the active subscription, or the default plan.
func (s *SubscriptionService) CurrentPlan(ctx context.Context, userID string) (core.Plan, error) {
	sub, err := s.ActiveSubscription(ctx, userID)
	if err != nil {
		return core.Plan{}, err
	}
	if sub != nil {
		if p, ok := s.cfg.Catalog.Plan(sub.PlanID); ok {
			return p, nil
		}
	}
	return s.cfg.Catalog.DefaultPlan(), nil
}

// Transactions returns the user's payment history, newest first.
func (s *SubscriptionService) Transactions(ctx context.Context, userID string) ([]core.PaymentTransaction, error) {
	txs, err := s.transactions.list(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].CreatedAt.After(txs[j].CreatedAt) })
	return txs, nil
}

// Subscribe charges the plan and, once paid, starts a subscription for a
// full billing period. A declined charge stores nothing. A charge the
// processor leaves pending is recorded on the subscription: a user with an
// active plan keeps it until the payment notification settles the change,
// anyone else gets a pending subscription for the new plan.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID, email string, form core.PaymentForm) (core.Subscription, core.PaymentTransaction, error) {
	plan, ok := s.cfg.Catalog.Plan(form.PlanID)
	if !ok {
		return core.Subscription{}, core.PaymentTransaction{}, fmt.Errorf("%w: %q", ErrPlanNotFound, form.PlanID)
	}
	if _, ok := s.cfg.Catalog.Method(form.PaymentMethod); !ok {
		return core.Subscription{}, core.PaymentTransaction{}, fmt.Errorf("%w: %q", ErrMethodNotFound, form.PaymentMethod)
	}

	unlock := s.locks.lock(userID)
	defer unlock()

	cur, err := s.Subscription(ctx, userID)
	if err != nil {
		return core.Subscription{}, core.PaymentTransaction{}, err
	}
	if cur.IsActive() && cur.PlanID == plan.ID {
		return core.Subscription{}, core.PaymentTransaction{}, fmt.Errorf("%w: %s", ErrAlreadyOnPlan, plan.ID)
	}

	result := payment.ChargeResult{Status: core.TransactionApproved}
	if plan.Price.Cents > 0 {
		result, err = s.cfg.Processor.Charge(ctx, payment.ChargeRequest{UserID: userID, Email: email, Plan: plan, Form: form})
		if errors.Is(err, payment.ErrDeclined) {
			s.deps.Metrics.Payment(plan.ID, "declined")
			s.deps.Logger.WarnContext(ctx, "Payment declined",
				log.FieldComponent, log.ComponentSubscription,
				log.FieldUserID, userID,
				log.FieldPlanID, plan.ID,
				log.FieldPaymentMethod, form.PaymentMethod)
			return core.Subscription{}, core.PaymentTransaction{}, fmt.Errorf("%w: %v", ErrPaymentDeclined, err)
		}
		if err != nil {
			s.deps.Metrics.Payment(plan.ID, "error")
			return core.Subscription{}, core.PaymentTransaction{}, fmt.Errorf("charge plan %s: %w", plan.ID, err)
		}
	}
	s.deps.Metrics.Payment(plan.ID, string(result.Status))

	now := s.deps.now()
	tx := core.PaymentTransaction{
		ID:            newID(),
		UserID:        userID,
		PlanID:        plan.ID,
		Amount:        plan.Price,
		Currency:      plan.Currency,
		Status:        result.Status,
		PaymentMethod: form.PaymentMethod,
		MercadoPagoID: result.ProcessorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.appendTransaction(ctx, userID, tx); err != nil {
		return core.Subscription{}, core.PaymentTransaction{}, err
	}

	var sub core.Subscription
	switch {
	case result.Status == core.TransactionApproved:
		sub = core.Subscription{
			ID:        newID(),
			UserID:    userID,
			PlanID:    plan.ID,
			Status:    core.SubscriptionActive,
			StartDate: now,
			EndDate:   plan.Interval.PeriodEnd(now),
			AutoRenew: true,
			CreatedAt: now,
			UpdatedAt: now,
		}
	case cur.IsActive():
		sub = *cur
		sub.PendingPaymentID = result.ProcessorID
		sub.PendingPlanID = plan.ID
		sub.UpdatedAt = now
	default:
		sub = core.Subscription{
			ID:               newID(),
			UserID:           userID,
			PlanID:           plan.ID,
			Status:           core.SubscriptionPending,
			StartDate:        now,
			EndDate:          plan.Interval.PeriodEnd(now),
			AutoRenew:        true,
			CreatedAt:        now,
			UpdatedAt:        now,
			PendingPaymentID: result.ProcessorID,
			PendingPlanID:    plan.ID,
		}
	}
	if err := s.saveSubscription(ctx, userID, &sub); err != nil {
		return core.Subscription{}, core.PaymentTransaction{}, err
	}

	s.deps.Logger.InfoContext(ctx, "Subscription created",
		log.FieldComponent, log.ComponentSubscription,
		log.FieldOperation, log.OpSubscribe,
		log.FieldUserID, userID,
		log.FieldPlanID, plan.ID,
		log.FieldPaymentID, result.ProcessorID,
		log.FieldPaymentStatus, result.Status)
	return sub, tx, nil
}

// Cancel stops renewal and ends the plan at once; the user falls back to
// the default plan.
func (s *SubscriptionService) Cancel(ctx context.Context, userID string) (core.Subscription, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	sub, err := s.Subscription(ctx, userID)
	if err != nil {
		return core.Subscription{}, err
	}
	if sub == nil {
		return core.Subscription{}, ErrNoSubscription
	}
	sub.Status = core.SubscriptionCancelled
	sub.AutoRenew = false
	sub.UpdatedAt = s.deps.now()
	if err := s.saveSubscription(ctx, userID, sub); err != nil {
		return core.Subscription{}, err
	}
	s.slog.LogMutation(ctx, log.ComponentSubscription, log.OpCancel, userID, "subscription", sub.ID)
	return *sub, nil
}

// Checkout creates a hosted checkout preference selling planID.
func (s *SubscriptionService) Checkout(ctx context.Context, userID, planID string) (*payment.Preference, error) {
	product, ok := s.cfg.Catalog.ProductForPlan(planID)
	if !ok {
		return nil, fmt.Errorf("%w: %q has no checkout product", ErrPlanNotFound, planID)
	}
	pref, err := s.cfg.Checkout.CreatePreference(ctx, payment.PreferenceRequest{
		Items: []payment.Item{{
			ID:         product.ID,
			Title:      product.Title,
			Quantity:   1,
			UnitPrice:  product.Price.Decimal(),
			CurrencyID: product.Currency,
		}},
		BackURLs: payment.BackURLs{
			Success: s.cfg.URLs.Success,
			Failure: s.cfg.URLs.Failure,
			Pending: s.cfg.URLs.Pending,
		},
		AutoReturn:        "approved",
		ExternalReference: payment.ExternalReference(userID, planID),
		NotificationURL:   s.cfg.URLs.Notification,
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout preference: %w", err)
	}
	s.deps.Logger.InfoContext(ctx, "Checkout preference created",
		log.FieldComponent, log.ComponentPayment,
		log.FieldUserID, userID,
		log.FieldPlanID, planID,
		"preference_id", pref.ID)
	return pref, nil
}

// ProcessPaymentNotification records the processor payment paymentID
// against the user and plan named in its external reference. An approved
// payment activates the plan. Settled payments are processed once;
// pending ones are revisited by later notifications.
func (s *SubscriptionService) ProcessPaymentNotification(ctx context.Context, paymentID string) error {
	unlockProcessed := s.processed.lock(storage.GlobalScope)
	defer unlockProcessed()

	done, _, err := storage.Load[[]string](ctx, s.deps.Store, storage.GlobalScope, storage.KeyProcessedPays)
	if err != nil {
		return err
	}
	for _, id := range done {
		if id == paymentID {
			s.deps.Logger.InfoContext(ctx, "Payment already processed",
				log.FieldComponent, log.ComponentPayment,
				log.FieldPaymentID, paymentID)
			return nil
		}
	}

	p, err := s.cfg.Payments.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("fetch payment %s: %w", paymentID, err)
	}
	userID, planID, err := payment.ParseExternalReference(p.ExternalReference)
	if err != nil {
		return err
	}
	plan, ok := s.cfg.Catalog.Plan(planID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrPlanNotFound, planID)
	}
	status := p.TransactionStatus()

	unlock := s.locks.lock(userID)
	defer unlock()

	now := s.deps.now()
	var settled bool
	err = s.transactions.update(ctx, userID, func(txs []core.PaymentTransaction) ([]core.PaymentTransaction, error) {
		for i := range txs {
			if txs[i].MercadoPagoID == p.ID {
				settled = txs[i].Status == core.TransactionApproved
				txs[i].Status = status
				txs[i].UpdatedAt = now
				return txs, nil
			}
		}
		amount := plan.Price
		if p.TransactionAmount > 0 {
			amount = core.Money{Cents: int64(math.Round(p.TransactionAmount * 100))}
		}
		currency := p.CurrencyID
		if currency == "" {
			currency = plan.Currency
		}
		return append(txs, core.PaymentTransaction{
			ID:            newID(),
			UserID:        userID,
			PlanID:        plan.ID,
			Amount:        amount,
			Currency:      currency,
			Status:        status,
			PaymentMethod: p.PaymentMethodID,
			MercadoPagoID: p.ID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}), nil
	})
	if err != nil {
		return err
	}

	switch status {
	case core.TransactionApproved:
		if !settled {
			if err := s.activate(ctx, userID, plan, p.ID); err != nil {
				return err
			}
		}
	case core.TransactionRejected, core.TransactionCancelled:
		if err := s.dropPending(ctx, userID, p.ID); err != nil {
			return err
		}
	}
	s.deps.Metrics.Payment(plan.ID, string(status))
	s.deps.Logger.InfoContext(ctx, "Payment notification processed",
		log.FieldComponent, log.ComponentPayment,
		log.FieldOperation, log.OpNotify,
		log.FieldUserID, userID,
		log.FieldPlanID, plan.ID,
		log.FieldPaymentID, p.ID,
		log.FieldPaymentStatus, status)

	if status == core.TransactionPending {
		return nil
	}
	return storage.Save(ctx, s.deps.Store, storage.GlobalScope, storage.KeyProcessedPays, append(done, paymentID))
}

// activate applies the approved payment paymentID for plan. A pending
// renewal of the current plan extends the paid period; a pending change of
// plan, or no matching charge at all, grants plan for a fresh period.
func (s *SubscriptionService) activate(ctx context.Context, userID string, plan core.Plan, paymentID string) error {
	now := s.deps.now()
	sub, err := s.Subscription(ctx, userID)
	if err != nil {
		return err
	}
	matches := sub != nil && sub.PendingPaymentID == paymentID
	switch {
	case matches && sub.IsActive() && sub.PlanID == plan.ID:
		sub.StartDate = sub.EndDate
		sub.EndDate = plan.Interval.PeriodEnd(sub.EndDate)
	case matches || (sub != nil && sub.Status == core.SubscriptionPending && sub.PlanID == plan.ID):
		sub.PlanID = plan.ID
		sub.StartDate = now
		sub.EndDate = plan.Interval.PeriodEnd(now)
	default:
		sub = &core.Subscription{
			ID:        newID(),
			UserID:    userID,
			PlanID:    plan.ID,
			StartDate: now,
			EndDate:   plan.Interval.PeriodEnd(now),
			CreatedAt: now,
		}
	}
	sub.Status = core.SubscriptionActive
	sub.AutoRenew = true
	sub.ClearPending()
	sub.UpdatedAt = now
	return s.saveSubscription(ctx, userID, sub)
}

// dropPending forgets the refused charge paymentID. A subscription that
// was only waiting on it expires; an active plan it would have changed
// stays as it is.
func (s *SubscriptionService) dropPending(ctx context.Context, userID, paymentID string) error {
	sub, err := s.Subscription(ctx, userID)
	if err != nil {
		return err
	}
	if sub == nil || sub.PendingPaymentID != paymentID {
		return nil
	}
	now := s.deps.now()
	if sub.Status == core.SubscriptionPending || (sub.PendingPlanID == sub.PlanID && sub.Lapsed(now)) {
		sub.Status = core.SubscriptionExpired
		sub.AutoRenew = false
	}
	sub.ClearPending()
	sub.UpdatedAt = now
	return s.saveSubscription(ctx, userID, sub)
}

// Renew charges the next period of an active subscription. A declined
// renewal is recorded as a rejected transaction and expires the
// subscription. A renewal the processor leaves pending keeps the period
// as it is and marks the subscription as awaiting that payment.
func (s *SubscriptionService) Renew(ctx context.Context, userID string) (core.Subscription, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	sub, err := s.Subscription(ctx, userID)
	if err != nil {
		return core.Subscription{}, err
	}
	if sub == nil {
		return core.Subscription{}, ErrNoSubscription
	}
	plan, ok := s.cfg.Catalog.Plan(sub.PlanID)
	if !ok {
		return core.Subscription{}, fmt.Errorf("%w: %q", ErrPlanNotFound, sub.PlanID)
	}

	method := s.lastPaymentMethod(ctx, userID)
	user, _, err := storage.Load[core.User](ctx, s.deps.Store, userID, storage.KeyUser)
	if err != nil {
		return core.Subscription{}, err
	}

	result := payment.ChargeResult{Status: core.TransactionApproved}
	var chargeErr error
	if plan.Price.Cents > 0 {
		result, chargeErr = s.cfg.Processor.Charge(ctx, payment.ChargeRequest{
			UserID: userID,
			Email:  user.Email,
			Plan:   plan,
			Form:   core.PaymentForm{PlanID: plan.ID, PaymentMethod: method},
		})
		if chargeErr != nil && !errors.Is(chargeErr, payment.ErrDeclined) {
			return core.Subscription{}, fmt.Errorf("charge renewal: %w", chargeErr)
		}
	}

	now := s.deps.now()
	tx := core.PaymentTransaction{
		ID:            newID(),
		UserID:        userID,
		PlanID:        plan.ID,
		Amount:        plan.Price,
		Currency:      plan.Currency,
		Status:        result.Status,
		PaymentMethod: method,
		MercadoPagoID: result.ProcessorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if chargeErr != nil {
		tx.Status = core.TransactionRejected
	}
	if err := s.appendTransaction(ctx, userID, tx); err != nil {
		return core.Subscription{}, err
	}
	s.deps.Metrics.Payment(plan.ID, string(tx.Status))

	switch {
	case chargeErr != nil:
		sub.Status = core.SubscriptionExpired
		sub.AutoRenew = false
		sub.ClearPending()
	case tx.Status == core.TransactionApproved:
		sub.StartDate = sub.EndDate
		sub.EndDate = plan.Interval.PeriodEnd(sub.EndDate)
	case tx.Status == core.TransactionPending:
		sub.PendingPaymentID = result.ProcessorID
		sub.PendingPlanID = plan.ID
	}
	sub.UpdatedAt = now
	if err := s.saveSubscription(ctx, userID, sub); err != nil {
		return core.Subscription{}, err
	}
	s.slog.LogMutation(ctx, log.ComponentSubscription, log.OpRenew, userID, "subscription", sub.ID)
	if chargeErr != nil {
		return *sub, fmt.Errorf("%w: %v", ErrPaymentDeclined, chargeErr)
	}
	return *sub, nil
}

// Expire ends the subscription without charging.
func (s *SubscriptionService) Expire(ctx context.Context, userID string) (core.Subscription, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	sub, err := s.Subscription(ctx, userID)
	if err != nil {
		return core.Subscription{}, err
	}
	if sub == nil {
		return core.Subscription{}, ErrNoSubscription
	}
	sub.Status = core.SubscriptionExpired
	sub.AutoRenew = false
	sub.ClearPending()
	sub.UpdatedAt = s.deps.now()
	if err := s.saveSubscription(ctx, userID, sub); err != nil {
		return core.Subscription{}, err
	}
	s.slog.LogMutation(ctx, log.ComponentSubscription, log.OpRenew, userID, "subscription", sub.ID)
	return *sub, nil
}

// lastPaymentMethod is the method of the latest approved payment, or
// credit card when there is none.
func (s *SubscriptionService) lastPaymentMethod(ctx context.Context, userID string) string {
	txs, err := s.Transactions(ctx, userID)
	if err == nil {
		for _, tx := range txs {
			if tx.Status == core.TransactionApproved && tx.PaymentMethod != "" {
				return tx.PaymentMethod
			}
		}
	}
	return string(core.MethodCreditCard)
}

func (s *SubscriptionService) appendTransaction(ctx context.Context, userID string, tx core.PaymentTransaction) error {
	return s.transactions.update(ctx, userID, func(txs []core.PaymentTransaction) ([]core.PaymentTransaction, error) {
		return append(txs, tx), nil
	})
}

func (s *SubscriptionService) saveSubscription(ctx context.Context, userID string, sub *core.Subscription) error {
	if err := storage.Save(ctx, s.deps.Store, userID, storage.KeySubscription, sub); err != nil {
		return err
	}
	s.deps.Changes.Notify(userID)
	return nil
}
