package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mamaboss/internal/core"
	"mamaboss/internal/payment"
)

func TestCatalog(t *testing.T) {
	c := mustCatalog(t)

	require.Len(t, c.Plans, 3)
	free := c.DefaultPlan()
	assert.Equal(t, "free", free.ID)
	assert.Equal(t, core.PlanLimits{MaxTasks: 10, MaxGoals: 5}, free.Limits)
	assert.False(t, free.Premium)

	pro, ok := c.Plan("pro")
	require.True(t, ok)
	assert.Equal(t, int64(2990), pro.Price.Cents)
	assert.True(t, pro.IsPopular)
	assert.Len(t, pro.Features, 8)

	product, ok := c.ProductForPlan("business")
	require.True(t, ok)
	assert.Equal(t, "MamaBoss Business - Assinatura Mensal", product.Title)
	assert.Equal(t, int64(7990), product.Price.Cents)
	_, ok = c.ProductForPlan("free")
	assert.False(t, ok)

	yearly, ok := c.Product("mamaboss-premium-yearly")
	require.True(t, ok)
	assert.Equal(t, int64(29990), yearly.Price.Cents)

	require.Len(t, c.Methods, 4)
	pix, ok := c.Method("pix")
	require.True(t, ok)
	assert.Equal(t, "Pagamento instantâneo", pix.Description)
}

func TestParseCatalog_Invalid(t *testing.T) {
	_, err := ParseCatalog([]byte("defaultPlan: gold\nplans: []\n"), []byte("[]"))
	assert.ErrorIs(t, err, ErrPlanNotFound)

	_, err = ParseCatalog([]byte(`
defaultPlan: free
plans:
  - {id: free, price: "abc", interval: monthly}
`), []byte("[]"))
	assert.Error(t, err)
}

func TestSubscriptionService_Subscribe(t *testing.T) {
	deps, _ := newTestDeps(t)
	svc, _ := newTestSubscriptions(t, deps, 0)
	ctx := context.Background()

	plan, err := svc.CurrentPlan(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "free", plan.ID)

	sub, tx, err := svc.Subscribe(ctx, "u1", "rafa@example.com", core.PaymentForm{PlanID: "pro", PaymentMethod: "pix"})
	require.NoError(t, err)
	assert.Equal(t, core.SubscriptionActive, sub.Status)
	assert.True(t, sub.AutoRenew)
	assert.Equal(t, testNow, sub.StartDate)
	assert.Equal(t, testNow.AddDate(0, 0, 30), sub.EndDate)

	assert.Equal(t, core.TransactionApproved, tx.Status)
	assert.Equal(t, int64(2990), tx.Amount.Cents)
	assert.Equal(t, "BRL", tx.Currency)
	assert.Regexp(t, `^mp_\d+_[0-9a-z]{9}$`, tx.MercadoPagoID)

	plan, err = svc.CurrentPlan(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "pro", plan.ID)

	plans, err := svc.Plans(ctx, "u1")
	require.NoError(t, err)
	for _, p := range plans {
		assert.Equal(t, p.ID == "pro", p.IsCurrent, p.ID)
	}

	_, _, err = svc.Subscribe(ctx, "u1", "rafa@example.com", core.PaymentForm{PlanID: "pro", PaymentMethod: "pix"})
	assert.ErrorIs(t, err, ErrAlreadyOnPlan)
}

func TestSubscriptionService_SubscribeErrors(t *testing.T) {
	deps, _ := newTestDeps(t)
	ctx := context.Background()

	approving, _ := newTestSubscriptions(t, deps, 0)
	_, _, err := approving.Subscribe(ctx, "u1", "", core.PaymentForm{PlanID: "gold", PaymentMethod: "pix"})
	assert.ErrorIs(t, err, ErrPlanNotFound)
	_, _, err = approving.Subscribe(ctx, "u1", "", core.PaymentForm{PlanID: "pro", PaymentMethod: "cheque"})
	assert.ErrorIs(t, err, ErrMethodNotFound)

	declining, _ := newTestSubscriptions(t, deps, 1)
	_, _, err = declining.Subscribe(ctx, "u1", "", core.PaymentForm{PlanID: "pro", PaymentMethod: "credit_card"})
	assert.ErrorIs(t, err, ErrPaymentDeclined)

	sub, err := declining.Subscription(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, sub, "a declined payment stores nothing")
	txs, err := declining.Transactions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestSubscriptionService_Cancel(t *testing.T) {
	deps, _ := newTestDeps(t)
	svc, _ := newTestSubscriptions(t, deps, 0)
	ctx := context.Background()

	_, err := svc.Cancel(ctx, "u1")
	assert.ErrorIs(t, err, ErrNoSubscription)

	_, _, err = svc.Subscribe(ctx, "u1", "", core.PaymentForm{PlanID: "business", PaymentMethod: "boleto"})
	require.NoError(t, err)
	sub, err := svc.Cancel(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.SubscriptionCancelled, sub.Status)
	assert.False(t, sub.AutoRenew)
	assert.True(t, sub.EndDate.After(testNow), "the plan ends before its paid period does")

	active, err := svc.ActiveSubscription(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, active)
	plan, err := svc.CurrentPlan(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "free", plan.ID)
}

func TestSubscriptionService_TransactionsNewestFirst(t *testing.T) {
	deps, clk := newTestDeps(t)
	svc, _ := newTestSubscriptions(t, deps, 0)
	ctx := context.Background()

	_, first, err := svc.Subscribe(ctx, "u1", "", core.PaymentForm{PlanID: "pro", PaymentMethod: "pix"})
	require.NoError(t, err)
	clk.t = clk.t.Add(time.Hour)
	_, second, err := svc.Subscribe(ctx, "u1", "", core.PaymentForm{PlanID: "business", PaymentMethod: "pix"})
	require.NoError(t, err)

	txs, err := svc.Transactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, second.ID, txs[0].ID)
	assert.Equal(t, first.ID, txs[1].ID)
}

func TestSubscriptionService_Checkout(t *testing.T) {
	deps, _ := newTestDeps(t)
	svc, _ := newTestSubscriptions(t, deps, 0)
	ctx := context.Background()

	pref, err := svc.Checkout(ctx, "u1", "pro")
	require.NoError(t, err)
	assert.Equal(t, "test_pref_"+itoa(testNow.UnixMilli()), pref.ID)
	assert.Contains(t, pref.InitPoint, pref.ID)

	_, err = svc.Checkout(ctx, "u1", "free")
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestSubscriptionService_ProcessPaymentNotification(t *testing.T) {
	deps, _ := newTestDeps(t)
	svc, sim := newTestSubscriptions(t, deps, 0)
	ctx := context.Background()

	sim.Record(payment.Payment{
		ID:                "9001",
		Status:            "approved",
		ExternalReference: payment.ExternalReference("u1", "business"),
		TransactionAmount: 79.9,
		CurrencyID:        "BRL",
		PaymentMethodID:   "pix",
	})
	require.NoError(t, svc.ProcessPaymentNotification(ctx, "9001"))
	require.NoError(t, svc.ProcessPaymentNotification(ctx, "9001"), "replays are ignored")

	txs, err := svc.Transactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "9001", txs[0].MercadoPagoID)
	assert.Equal(t, int64(7990), txs[0].Amount.Cents)

	plan, err := svc.CurrentPlan(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "business", plan.ID)

	sim.Record(payment.Payment{ID: "9002", Status: "rejected", ExternalReference: payment.ExternalReference("u2", "pro")})
	require.NoError(t, svc.ProcessPaymentNotification(ctx, "9002"))
	txs, err = svc.Transactions(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, core.TransactionRejected, txs[0].Status)
	sub, err := svc.Subscription(ctx, "u2")
	require.NoError(t, err)
	assert.Nil(t, sub)

	assert.ErrorIs(t, svc.ProcessPaymentNotification(ctx, "nope"), payment.ErrNotFound)

	sim.Record(payment.Payment{ID: "9003", Status: "approved", ExternalReference: "garbage"})
	assert.Error(t, svc.ProcessPaymentNotification(ctx, "9003"))
}

func TestSubscriptionService_PendingThenApproved(t *testing.T) {
	deps, _ := newTestDeps(t)
	svc, sim := newTestSubscriptions(t, deps, 0)
	ctx := context.Background()

	sim.Record(payment.Payment{ID: "77", Status: "in_process", ExternalReference: payment.ExternalReference("u1", "pro")})
	require.NoError(t, svc.ProcessPaymentNotification(ctx, "77"))
	plan, err := svc.CurrentPlan(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "free", plan.ID)

	sim.Record(payment.Payment{ID: "77", Status: "approved", ExternalReference: payment.ExternalReference("u1", "pro")})
	require.NoError(t, svc.ProcessPaymentNotification(ctx, "77"))

	txs, err := svc.Transactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, txs, 1, "the pending record is updated in place")
	assert.Equal(t, core.TransactionApproved, txs[0].Status)
	plan, err = svc.CurrentPlan(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "pro", plan.ID)
}

func TestSubscriptionService_PendingUpgradeKeepsCurrentPlan(t *testing.T) {
	deps, clk := newTestDeps(t)
	ctx := context.Background()
	ok, sim := newTestSubscriptions(t, deps, 0)
	_, _, err := ok.Subscribe(ctx, "u1", "", core.PaymentForm{PlanID: "pro", PaymentMethod: "credit_card"})
	require.NoError(t, err)

	svc, _ := newPendingSubscriptions(t, deps, sim)
	sub, tx, err := svc.Subscribe(ctx, "u1", "", core.PaymentForm{PlanID: "business", PaymentMethod: "boleto"})
	require.NoError(t, err)
	assert.Equal(t, core.TransactionPending, tx.Status)
	assert.Equal(t, "pro", sub.PlanID)
	assert.Equal(t, "business", sub.PendingPlanID)

	plan, err := svc.CurrentPlan(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "pro", plan.ID)

	clk.t = testNow.AddDate(0, 0, 2)
	sim.Record(payment.Payment{ID: tx.MercadoPagoID, Status: "approved", ExternalReference: payment.ExternalReference("u1", "business")})
	require.NoError(t, svc.ProcessPaymentNotification(ctx, tx.MercadoPagoID))

	plan, err = svc.CurrentPlan(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "business", plan.ID)
	sub2, err := svc.Subscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, clk.t, sub2.StartDate)
	assert.Equal(t, clk.t.AddDate(0, 0, 30), sub2.EndDate)
	assert.False(t, sub2.AwaitingPayment())
}

func TestSubscriptionService_RejectedUpgradeKeepsCurrentPlan(t *testing.T) {
	deps, _ := newTestDeps(t)
	ctx := context.Background()
	ok, sim := newTestSubscriptions(t, deps, 0)
	_, _, err := ok.Subscribe(ctx, "u1", "", core.PaymentForm{PlanID: "pro", PaymentMethod: "credit_card"})
	require.NoError(t, err)

	svc, _ := newPendingSubscriptions(t, deps, sim)
	_, tx, err := svc.Subscribe(ctx, "u1", "", core.PaymentForm{PlanID: "business", PaymentMethod: "boleto"})
	require.NoError(t, err)

	sim.Record(payment.Payment{ID: tx.MercadoPagoID, Status: "rejected", ExternalReference: payment.ExternalReference("u1", "business")})
	require.NoError(t, svc.ProcessPaymentNotification(ctx, tx.MercadoPagoID))

	sub, err := svc.Subscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.SubscriptionActive, sub.Status)
	assert.Equal(t, "pro", sub.PlanID)
	assert.False(t, sub.AwaitingPayment())
}

func TestSubscriptionService_ApprovedNotificationForSettledCharge(t *testing.T) {
	deps, clk := newTestDeps(t)
	svc, _ := newTestSubscriptions(t, deps, 0)
	ctx := context.Background()

	sub, tx, err := svc.Subscribe(ctx, "u1", "", core.PaymentForm{PlanID: "pro", PaymentMethod: "credit_card"})
	require.NoError(t, err)

	clk.t = testNow.AddDate(0, 0, 10)
	require.NoError(t, svc.ProcessPaymentNotification(ctx, tx.MercadoPagoID))

	got, err := svc.Subscription(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, sub.StartDate, got.StartDate)
	assert.Equal(t, sub.EndDate, got.EndDate, "the paid period is not restarted")
}
