package services

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mamaboss/internal/core"
	"mamaboss/internal/payment"
	"mamaboss/internal/storage"
)

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func TestRenewalPolicies(t *testing.T) {
	now := testNow
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		sub  core.Subscription
		want RenewalAction
	}{
		{"active in period", core.Subscription{Status: core.SubscriptionActive, EndDate: future, AutoRenew: true}, RenewalNone},
		{"active lapsed auto renew", core.Subscription{Status: core.SubscriptionActive, EndDate: past, AutoRenew: true}, RenewalCharge},
		{"active lapsed no renew", core.Subscription{Status: core.SubscriptionActive, EndDate: past}, RenewalExpire},
		{"active ends exactly now", core.Subscription{Status: core.SubscriptionActive, EndDate: now, AutoRenew: true}, RenewalCharge},
		{"cancelled in period", core.Subscription{Status: core.SubscriptionCancelled, EndDate: future}, RenewalNone},
		{"cancelled lapsed", core.Subscription{Status: core.SubscriptionCancelled, EndDate: past}, RenewalExpire},
		{"pending fresh", core.Subscription{Status: core.SubscriptionPending, UpdatedAt: past}, RenewalNone},
		{"pending stale", core.Subscription{Status: core.SubscriptionPending, UpdatedAt: now.AddDate(0, 0, -8)}, RenewalExpire},
		{"awaiting renewal payment", core.Subscription{Status: core.SubscriptionActive, EndDate: past, AutoRenew: true, PendingPaymentID: "p1", PendingPlanID: "pro"}, RenewalNone},
		{"awaiting payment past grace", core.Subscription{Status: core.SubscriptionActive, EndDate: now.AddDate(0, 0, -7), AutoRenew: true, PendingPaymentID: "p1", PendingPlanID: "pro"}, RenewalExpire},
		{"awaiting upgrade in period", core.Subscription{Status: core.SubscriptionActive, EndDate: future, AutoRenew: true, PendingPaymentID: "p1", PendingPlanID: "business"}, RenewalNone},
		{"expired", core.Subscription{Status: core.SubscriptionExpired, EndDate: past}, RenewalNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, err := GetRenewalPolicy(tt.sub.Status)
			require.NoError(t, err)
			assert.Equal(t, tt.want, policy.Decide(tt.sub, now))
		})
	}

	_, err := GetRenewalPolicy("paused")
	assert.Error(t, err)
}

type alwaysExpire struct{}

func (alwaysExpire) Decide(core.Subscription, time.Time) RenewalAction { return RenewalExpire }

func TestRegisterRenewalPolicy(t *testing.T) {
	const status core.SubscriptionStatus = "trial"
	RegisterRenewalPolicy(status, alwaysExpire{})
	t.Cleanup(func() {
		renewalMu.Lock()
		delete(renewalPolicies, status)
		renewalMu.Unlock()
	})

	p, err := GetRenewalPolicy(status)
	require.NoError(t, err)
	assert.Equal(t, RenewalExpire, p.Decide(core.Subscription{}, testNow))
}

func TestRenewalProcessor(t *testing.T) {
	deps, clk := newTestDeps(t)
	ctx := context.Background()
	svc, _ := newTestSubscriptions(t, deps, 0)

	require.NoError(t, storage.Save(ctx, deps.Store, "renews", storage.KeyUser, core.User{ID: "renews", Email: "a@b.com"}))
	_, _, err := svc.Subscribe(ctx, "renews", "a@b.com", core.PaymentForm{PlanID: "pro", PaymentMethod: "pix"})
	require.NoError(t, err)
	_, _, err = svc.Subscribe(ctx, "cancels", "", core.PaymentForm{PlanID: "pro", PaymentMethod: "pix"})
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, "cancels")
	require.NoError(t, err)
	require.NoError(t, storage.Save(ctx, deps.Store, "nosub", storage.KeyTasks, []core.Task{}))

	proc := NewRenewalProcessor(deps, svc)

	report, err := proc.ProcessDue(ctx, clk.t)
	require.NoError(t, err)
	assert.Equal(t, RenewalReport{Checked: 2, Active: 1}, report)

	clk.t = testNow.AddDate(0, 0, 31)
	report, err = proc.ProcessDue(ctx, clk.t)
	require.NoError(t, err)
	assert.Equal(t, RenewalReport{Checked: 2, Renewed: 1, Expired: 1, Active: 1}, report)

	renewed, err := svc.Subscription(ctx, "renews")
	require.NoError(t, err)
	assert.Equal(t, core.SubscriptionActive, renewed.Status)
	assert.Equal(t, testNow.AddDate(0, 0, 30), renewed.StartDate)
	assert.Equal(t, testNow.AddDate(0, 0, 60), renewed.EndDate)

	txs, err := svc.Transactions(ctx, "renews")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "pix", txs[0].PaymentMethod)

	expired, err := svc.Subscription(ctx, "cancels")
	require.NoError(t, err)
	assert.Equal(t, core.SubscriptionExpired, expired.Status)
}

func TestRenewalProcessor_DeclinedRenewalExpires(t *testing.T) {
	deps, clk := newTestDeps(t)
	ctx := context.Background()
	ok, _ := newTestSubscriptions(t, deps, 0)
	_, _, err := ok.Subscribe(ctx, "u1", "", core.PaymentForm{PlanID: "pro", PaymentMethod: "credit_card"})
	require.NoError(t, err)

	clk.t = testNow.AddDate(0, 1, 0)
	declining, _ := newTestSubscriptions(t, deps, 1)
	report, err := NewRenewalProcessor(deps, declining).ProcessDue(ctx, clk.t)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Expired)

	sub, err := declining.Subscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.SubscriptionExpired, sub.Status)
	txs, err := declining.Transactions(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.TransactionRejected, txs[0].Status)
}

// pendingProcessor leaves every charge pending, as boleto and pix payments
// are until the customer pays.
type pendingProcessor struct {
	charges int
}

func (p *pendingProcessor) Charge(context.Context, payment.ChargeRequest) (payment.ChargeResult, error) {
	p.charges++
	return payment.ChargeResult{ProcessorID: "pend-" + strconv.Itoa(p.charges), Status: core.TransactionPending}, nil
}

func newPendingSubscriptions(t *testing.T, deps Deps, sim *payment.Simulator) (*SubscriptionService, *pendingProcessor) {
	t.Helper()
	proc := &pendingProcessor{}
	return NewSubscriptionService(deps, SubscriptionConfig{
		Catalog:   mustCatalog(t),
		Processor: proc,
		Checkout:  sim,
		Payments:  sim,
	}), proc
}

func TestRenewalProcessor_PendingRenewalChargesOnce(t *testing.T) {
	deps, clk := newTestDeps(t)
	ctx := context.Background()
	ok, sim := newTestSubscriptions(t, deps, 0)
	require.NoError(t, storage.Save(ctx, deps.Store, "u1", storage.KeyUser, core.User{ID: "u1", Email: "a@b.com"}))
	_, _, err := ok.Subscribe(ctx, "u1", "a@b.com", core.PaymentForm{PlanID: "pro", PaymentMethod: "boleto"})
	require.NoError(t, err)

	svc, proc := newPendingSubscriptions(t, deps, sim)
	renewals := NewRenewalProcessor(deps, svc)

	clk.t = testNow.AddDate(0, 0, 31)
	for i := 0; i < 3; i++ {
		report, err := renewals.ProcessDue(ctx, clk.t)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Active, "run %d", i)
		assert.Zero(t, report.Renewed, "run %d", i)
		clk.t = clk.t.Add(time.Hour)
	}
	assert.Equal(t, 1, proc.charges)

	sub, err := svc.Subscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.SubscriptionActive, sub.Status)
	assert.Equal(t, "pend-1", sub.PendingPaymentID)
	assert.Equal(t, testNow.AddDate(0, 0, 30), sub.EndDate, "a pending charge does not extend the period")

	txs, err := svc.Transactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, core.TransactionPending, txs[0].Status)

	sim.Record(payment.Payment{ID: "pend-1", Status: "approved", ExternalReference: payment.ExternalReference("u1", "pro")})
	require.NoError(t, svc.ProcessPaymentNotification(ctx, "pend-1"))

	sub, err = svc.Subscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.SubscriptionActive, sub.Status)
	assert.False(t, sub.AwaitingPayment())
	assert.Equal(t, testNow.AddDate(0, 0, 30), sub.StartDate)
	assert.Equal(t, testNow.AddDate(0, 0, 60), sub.EndDate)
}

func TestRenewalProcessor_PendingRenewalExpiresAfterGrace(t *testing.T) {
	deps, clk := newTestDeps(t)
	ctx := context.Background()
	ok, sim := newTestSubscriptions(t, deps, 0)
	_, _, err := ok.Subscribe(ctx, "u1", "", core.PaymentForm{PlanID: "pro", PaymentMethod: "boleto"})
	require.NoError(t, err)

	svc, proc := newPendingSubscriptions(t, deps, sim)
	renewals := NewRenewalProcessor(deps, svc)

	clk.t = testNow.AddDate(0, 0, 30)
	report, err := renewals.ProcessDue(ctx, clk.t)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pending)

	clk.t = testNow.AddDate(0, 0, 37)
	report, err = renewals.ProcessDue(ctx, clk.t)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Expired)
	assert.Equal(t, 1, proc.charges)

	sub, err := svc.Subscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.SubscriptionExpired, sub.Status)
	assert.False(t, sub.AwaitingPayment())

	plan, err := svc.CurrentPlan(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "free", plan.ID)
}

func TestRenewalProcessor_RejectedPendingRenewalExpires(t *testing.T) {
	deps, clk := newTestDeps(t)
	ctx := context.Background()
	ok, sim := newTestSubscriptions(t, deps, 0)
	_, _, err := ok.Subscribe(ctx, "u1", "", core.PaymentForm{PlanID: "pro", PaymentMethod: "boleto"})
	require.NoError(t, err)

	svc, _ := newPendingSubscriptions(t, deps, sim)
	clk.t = testNow.AddDate(0, 0, 31)
	_, err = NewRenewalProcessor(deps, svc).ProcessDue(ctx, clk.t)
	require.NoError(t, err)

	sim.Record(payment.Payment{ID: "pend-1", Status: "rejected", ExternalReference: payment.ExternalReference("u1", "pro")})
	require.NoError(t, svc.ProcessPaymentNotification(ctx, "pend-1"))

	sub, err := svc.Subscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.SubscriptionExpired, sub.Status)
	assert.False(t, sub.AutoRenew)
	assert.False(t, sub.AwaitingPayment())
}
