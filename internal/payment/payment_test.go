package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mamaboss/internal/core"
)

var proPlan = core.Plan{ID: "pro", Name: "Pro", Price: core.Money{Cents: 2990}, Currency: "BRL", Interval: core.IntervalMonthly}

func TestExternalReference(t *testing.T) {
	ref := ExternalReference("user-1", "pro")
	assert.Equal(t, "user-1:pro", ref)

	u, p, err := ParseExternalReference(ref)
	require.NoError(t, err)
	assert.Equal(t, "user-1", u)
	assert.Equal(t, "pro", p)

	for _, bad := range []string{"", "user-1", ":pro", "user-1:"} {
		_, _, err := ParseExternalReference(bad)
		assert.Error(t, err, bad)
	}
}

func TestPaymentTransactionStatus(t *testing.T) {
	tests := map[string]core.TransactionStatus{
		"approved":     core.TransactionApproved,
		"rejected":     core.TransactionRejected,
		"refunded":     core.TransactionCancelled,
		"in_process":   core.TransactionPending,
		"pending":      core.TransactionPending,
		"charged_back": core.TransactionCancelled,
	}
	for status, want := range tests {
		assert.Equal(t, want, Payment{Status: status}.TransactionStatus(), status)
	}
}

func TestSimulator_Charge(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("approves and records", func(t *testing.T) {
		sim := NewSeededSimulator(0, 0, 1, func() time.Time { return now })
		res, err := sim.Charge(ctx, ChargeRequest{UserID: "u1", Plan: proPlan, Form: core.PaymentForm{PaymentMethod: "pix"}})
		require.NoError(t, err)
		assert.Equal(t, core.TransactionApproved, res.Status)
		assert.Regexp(t, regexp.MustCompile(`^mp_1792324800000_[0-9a-z]{9}$`), res.ProcessorID)

		p, err := sim.GetPayment(ctx, res.ProcessorID)
		require.NoError(t, err)
		assert.Equal(t, "u1:pro", p.ExternalReference)
		assert.InDelta(t, 29.90, p.TransactionAmount, 0.001)
	})

	t.Run("declines at failure rate one", func(t *testing.T) {
		sim := NewSeededSimulator(1, 0, 1, func() time.Time { return now })
		_, err := sim.Charge(ctx, ChargeRequest{UserID: "u1", Plan: proPlan})
		assert.ErrorIs(t, err, ErrDeclined)
	})

	t.Run("honours cancellation during delay", func(t *testing.T) {
		sim := NewSimulator(0, time.Hour)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := sim.Charge(cctx, ChargeRequest{Plan: proPlan})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("unknown payment", func(t *testing.T) {
		_, err := NewSimulator(0, 0).GetPayment(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestSimulator_CreatePreference(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	sim := NewSeededSimulator(0, 0, 1, func() time.Time { return now })

	pref, err := sim.CreatePreference(context.Background(), PreferenceRequest{Items: []Item{{ID: "x", Quantity: 1}}})
	require.NoError(t, err)
	assert.Equal(t, "test_pref_1700000000000", pref.ID)
	assert.Contains(t, pref.InitPoint, pref.ID)

	_, err = sim.CreatePreference(context.Background(), PreferenceRequest{})
	assert.Error(t, err)
}

func TestMercadoPago(t *testing.T) {
	var lastBody map[string]any
	var lastHeaders http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastHeaders = r.Header.Clone()
		lastBody = nil
		_ = json.NewDecoder(r.Body).Decode(&lastBody)
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/payments/123":
			_, _ = w.Write([]byte(`{"id":123,"status":"approved","external_reference":"u1:pro","transaction_amount":29.9,"currency_id":"BRL"}`))
		case r.Method == http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Payment not found"}`))
		case r.URL.Path == "/checkout/preferences":
			_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://mp/checkout?pref_id=pref-1"}`))
		case r.URL.Path == "/v1/payments" && lastBody["payment_method_id"] == "pix":
			_, _ = w.Write([]byte(`{"id":456,"status":"pending"}`))
		case r.URL.Path == "/v1/payments":
			_, _ = w.Write([]byte(`{"id":789,"status":"rejected","status_detail":"cc_rejected_insufficient_amount"}`))
		}
	}))
	defer srv.Close()

	mp := NewMercadoPago(srv.URL+"/", "TEST-token", srv.Client(), nil)
	ctx := context.Background()

	t.Run("get payment", func(t *testing.T) {
		p, err := mp.GetPayment(ctx, "123")
		require.NoError(t, err)
		assert.Equal(t, "123", p.ID)
		assert.Equal(t, core.TransactionApproved, p.TransactionStatus())
		assert.Equal(t, "Bearer TEST-token", lastHeaders.Get("Authorization"))
	})

	t.Run("missing payment", func(t *testing.T) {
		_, err := mp.GetPayment(ctx, "999")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("create preference", func(t *testing.T) {
		pref, err := mp.CreatePreference(ctx, PreferenceRequest{
			Items:             []Item{{ID: "mamaboss-premium-monthly", Title: "Pro", Quantity: 1, UnitPrice: 29.9, CurrencyID: "BRL"}},
			ExternalReference: "u1:pro",
		})
		require.NoError(t, err)
		assert.Equal(t, "pref-1", pref.ID)
		assert.Equal(t, "u1:pro", lastBody["external_reference"])
	})

	t.Run("pix charge stays pending", func(t *testing.T) {
		res, err := mp.Charge(ctx, ChargeRequest{UserID: "u1", Email: "a@b.com", Plan: proPlan, Form: core.PaymentForm{PaymentMethod: "pix"}})
		require.NoError(t, err)
		assert.Equal(t, "456", res.ProcessorID)
		assert.Equal(t, core.TransactionPending, res.Status)
		assert.NotEmpty(t, lastHeaders.Get("X-Idempotency-Key"))
	})

	t.Run("rejected card is declined", func(t *testing.T) {
		_, err := mp.Charge(ctx, ChargeRequest{UserID: "u1", Plan: proPlan, Form: core.PaymentForm{PaymentMethod: "visa", CardToken: "tok"}})
		assert.ErrorIs(t, err, ErrDeclined)
		assert.EqualValues(t, 1, lastBody["installments"])
	})
}
