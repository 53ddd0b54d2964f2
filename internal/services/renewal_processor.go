package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mamaboss/internal/log"
)

// RenewalReport counts what one renewal run did.
type RenewalReport struct {
	Checked int `json:"checked"`
	Renewed int `json:"renewed"`
	Pending int `json:"pending"`
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
	Active  int `json:"active"`
}

// RenewalProcessor walks every user's subscription and applies the
// renewal policy of its status.
type RenewalProcessor struct {
	deps Deps
	subs *SubscriptionService
}

func NewRenewalProcessor(deps Deps, subs *SubscriptionService) *RenewalProcessor {
	return &RenewalProcessor{deps: deps.withDefaults(), subs: subs}
}

// ProcessDue renews or expires every subscription due at now. A failure on
// one user is logged and counted; the run goes on.
func (p *RenewalProcessor) ProcessDue(ctx context.Context, now time.Time) (RenewalReport, error) {
	var report RenewalReport
	if p.subs == nil {
		return report, fmt.Errorf("processor not properly initialized")
	}

	scopes, err := p.deps.Store.Scopes(ctx)
	if err != nil {
		return report, fmt.Errorf("list users: %w", err)
	}

	p.deps.Logger.InfoContext(ctx, "Processing subscription renewals",
		log.FieldComponent, log.ComponentWorker,
		"users", len(scopes),
		"processing_date", now.Format(time.DateOnly))

	for _, userID := range scopes {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		sub, err := p.subs.Subscription(ctx, userID)
		if err != nil {
			report.Failed++
			p.deps.Logger.ErrorContext(ctx, "Failed to load subscription",
				log.FieldComponent, log.ComponentWorker,
				log.FieldUserID, userID,
				log.FieldError, err)
			continue
		}
		if sub == nil {
			continue
		}
		report.Checked++

		policy, err := GetRenewalPolicy(sub.Status)
		if err != nil {
			report.Failed++
			p.deps.Logger.ErrorContext(ctx, "No renewal policy",
				log.FieldComponent, log.ComponentWorker,
				log.FieldUserID, userID,
				log.FieldError, err)
			continue
		}

		action := policy.Decide(*sub, now)
		switch action {
		case RenewalNone:
			if sub.IsActive() {
				report.Active++
			}
			continue
		case RenewalCharge:
			renewed, err := p.subs.Renew(ctx, userID)
			switch {
			case errors.Is(err, ErrPaymentDeclined):
				report.Expired++
				p.deps.Metrics.Renewal(string(action), "declined")
			case err != nil:
				report.Failed++
				p.deps.Metrics.Renewal(string(action), "error")
				p.deps.Logger.ErrorContext(ctx, "Failed to renew subscription",
					log.FieldComponent, log.ComponentWorker,
					log.FieldUserID, userID,
					log.FieldError, err)
				continue
			case renewed.AwaitingPayment():
				report.Pending++
				if renewed.IsActive() {
					report.Active++
				}
				p.deps.Metrics.Renewal(string(action), "pending")
			default:
				report.Renewed++
				if renewed.IsActive() {
					report.Active++
				}
				p.deps.Metrics.Renewal(string(action), "success")
			}
		case RenewalExpire:
			if _, err := p.subs.Expire(ctx, userID); err != nil {
				report.Failed++
				p.deps.Metrics.Renewal(string(action), "error")
				p.deps.Logger.ErrorContext(ctx, "Failed to expire subscription",
					log.FieldComponent, log.ComponentWorker,
					log.FieldUserID, userID,
					log.FieldError, err)
				continue
			}
			report.Expired++
			p.deps.Metrics.Renewal(string(action), "success")
		}

		p.deps.Logger.InfoContext(ctx, "Subscription renewal applied",
			log.FieldComponent, log.ComponentWorker,
			log.FieldUserID, userID,
			log.FieldPlanID, sub.PlanID,
			"action", action)
	}

	p.deps.Metrics.SetActiveSubscriptions(report.Active)
	p.deps.Logger.InfoContext(ctx, "Subscription renewal complete",
		log.FieldComponent, log.ComponentWorker,
		"checked", report.Checked,
		"renewed", report.Renewed,
		"pending", report.Pending,
		"expired", report.Expired,
		"failed", report.Failed)
	return report, nil
}
