package payment

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"mamaboss/internal/core"
)

// Simulator approves charges at random after a fixed delay and keeps the
// payments it made so the webhook flow can look them up.
type Simulator struct {
	FailureRate float64
	Delay       time.Duration

	mu       sync.Mutex
	rnd      *rand.Rand
	now      func() time.Time
	payments map[string]Payment
}

var (
	_ Processor     = (*Simulator)(nil)
	_ PaymentGetter = (*Simulator)(nil)
	_ Checkout      = (*Simulator)(nil)
)

// NewSimulator returns a simulator declining failureRate of charges.
func NewSimulator(failureRate float64, delay time.Duration) *Simulator {
	return &Simulator{
		FailureRate: failureRate,
		Delay:       delay,
		rnd:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6d616d61)),
		now:         time.Now,
		payments:    make(map[string]Payment),
	}
}

// NewSeededSimulator is NewSimulator with a fixed seed and clock, for tests.
func NewSeededSimulator(failureRate float64, delay time.Duration, seed uint64, now func() time.Time) *Simulator {
	s := NewSimulator(failureRate, delay)
	s.rnd = rand.New(rand.NewPCG(seed, seed))
	s.now = now
	return s
}

func (s *Simulator) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ChargeResult{}, ctx.Err()
		case <-t.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rnd.Float64() < s.FailureRate {
		return ChargeResult{}, ErrDeclined
	}

	id := s.newIDLocked("mp")
	s.payments[id] = Payment{
		ID:                id,
		Status:            "approved",
		ExternalReference: req.ExternalReference(),
		TransactionAmount: req.Plan.Price.Decimal(),
		CurrencyID:        req.Plan.Currency,
		PaymentMethodID:   req.Form.PaymentMethod,
	}
	return ChargeResult{ProcessorID: id, Status: core.TransactionApproved}, nil
}

// newIDLocked builds "<prefix>_<millis>_<9 base36 chars>".
func (s *Simulator) newIDLocked(prefix string) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = alphabet[s.rnd.IntN(len(alphabet))]
	}
	return prefix + "_" + strconv.FormatInt(s.now().UnixMilli(), 10) + "_" + string(suffix)
}

func (s *Simulator) GetPayment(_ context.Context, id string) (*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &p, nil
}

// Record stores a payment as if the processor had created it.
func (s *Simulator) Record(p Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = p
}

func (s *Simulator) CreatePreference(_ context.Context, req PreferenceRequest) (*Preference, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("preference has no items")
	}
	s.mu.Lock()
	id := "test_pref_" + strconv.FormatInt(s.now().UnixMilli(), 10)
	s.mu.Unlock()
	return &Preference{
		ID:               id,
		InitPoint:        "https://sandbox.mercadopago.com.br/checkout/v1/redirect?pref_id=" + id,
		SandboxInitPoint: "https://sandbox.mercadopago.com.br/checkout/v1/redirect?pref_id=" + id,
	}, nil
}
