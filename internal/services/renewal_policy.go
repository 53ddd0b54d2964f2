// This file implements the Strategy Pattern for subscription renewal.
// Each subscription status has its own policy that decides what the
// renewal run does with a subscription of that status.

package services

import (
	"fmt"
	"sync"
	"time"

	"mamaboss/internal/core"
)

type RenewalAction string

const (
	RenewalNone   RenewalAction = "none"
	RenewalCharge RenewalAction = "charge"
	RenewalExpire RenewalAction = "expire"
)

// RenewalPolicy is the strategy interface for one subscription status.
type RenewalPolicy interface {
	// Decide returns what to do with sub at now.
	Decide(sub core.Subscription, now time.Time) RenewalAction
}

// ActivePolicy charges lapsed subscriptions that auto-renew and expires
// the rest. A lapsed subscription with a charge still pending is not
// charged again; it waits up to PaymentGrace past its end for the
// processor to settle.
type ActivePolicy struct {
	PaymentGrace time.Duration
}

func (p ActivePolicy) Decide(sub core.Subscription, now time.Time) RenewalAction {
	if !sub.Lapsed(now) {
		return RenewalNone
	}
	if sub.AwaitingPayment() {
		if now.Sub(sub.EndDate) >= p.PaymentGrace {
			return RenewalExpire
		}
		return RenewalNone
	}
	if sub.AutoRenew {
		return RenewalCharge
	}
	return RenewalExpire
}

// CancelledPolicy expires a cancelled subscription once its paid period ends.
type CancelledPolicy struct{}

func (CancelledPolicy) Decide(sub core.Subscription, now time.Time) RenewalAction {
	if sub.Lapsed(now) {
		return RenewalExpire
	}
	return RenewalNone
}

// PendingPolicy expires a subscription whose payment was never confirmed
// within MaxAge.
type PendingPolicy struct {
	MaxAge time.Duration
}

func (p PendingPolicy) Decide(sub core.Subscription, now time.Time) RenewalAction {
	if now.Sub(sub.UpdatedAt) >= p.MaxAge {
		return RenewalExpire
	}
	return RenewalNone
}

// ExpiredPolicy leaves expired subscriptions alone.
type ExpiredPolicy struct{}

func (ExpiredPolicy) Decide(core.Subscription, time.Time) RenewalAction {
	return RenewalNone
}

var (
	renewalMu       sync.RWMutex
	renewalPolicies = map[core.SubscriptionStatus]RenewalPolicy{
		core.SubscriptionActive:    ActivePolicy{PaymentGrace: 7 * 24 * time.Hour},
		core.SubscriptionCancelled: CancelledPolicy{},
		core.SubscriptionPending:   PendingPolicy{MaxAge: 7 * 24 * time.Hour},
		core.SubscriptionExpired:   ExpiredPolicy{},
	}
)

// GetRenewalPolicy returns the policy for status.
func GetRenewalPolicy(status core.SubscriptionStatus) (RenewalPolicy, error) {
	renewalMu.RLock()
	defer renewalMu.RUnlock()
	p, ok := renewalPolicies[status]
	if !ok {
		return nil, fmt.Errorf("unknown subscription status: %s", status)
	}
	return p, nil
}

// RegisterRenewalPolicy replaces or adds the policy for status.
func RegisterRenewalPolicy(status core.SubscriptionStatus, p RenewalPolicy) {
	renewalMu.Lock()
	defer renewalMu.Unlock()
	renewalPolicies[status] = p
}
