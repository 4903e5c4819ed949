package entitlement

import (
	"context"
	"fmt"
	"time"

	"dietitian-bot/internal/models"
)

// CheckoutEvent is the payload of a checkout-completed webhook.
type CheckoutEvent struct {
	UserID          int64
	Plan            models.Plan
	CustomerRef     string
	SubscriptionRef string
	OccurredAt      time.Time
}

// RenewalEvent is the payload of a subscription-renewed webhook.
type RenewalEvent struct {
	UserID          int64
	SubscriptionRef string
	PeriodEnd       time.Time
}

// CancelEvent is the payload of a subscription-cancelled webhook.
type CancelEvent struct {
	UserID          int64
	SubscriptionRef string
}

// ApplyCheckoutCompleted creates or refreshes the subscription
// record. Expiry is set to the event time plus the configured
// window, never added to the existing expiry, so replaying the same
// event is idempotent.
func (g *Gate) ApplyCheckoutCompleted(ctx context.Context, ev CheckoutEvent) error {
	plan := ev.Plan
	if plan == "" {
		plan = models.PlanBasic
	}
	rec := &models.SubscriptionRecord{
		TelegramID:      ev.UserID,
		Plan:            plan,
		ExpiresAt:       ev.OccurredAt.Add(time.Duration(g.subDays) * 24 * time.Hour),
		CustomerRef:     ev.CustomerRef,
		SubscriptionRef: ev.SubscriptionRef,
	}
	if err := g.store.PutSubscription(ctx, rec); err != nil {
		return fmt.Errorf("failed to store subscription: %w", err)
	}
	return nil
}

// ApplySubscriptionRenewed extends the record to the period end
// carried by the event. Setting (not adding) the expiry keeps replay
// idempotent.
func (g *Gate) ApplySubscriptionRenewed(ctx context.Context, ev RenewalEvent) error {
	rec, err := g.lookup(ctx, ev.UserID, ev.SubscriptionRef)
	if err != nil {
		return err
	}
	if rec == nil {
		if ev.UserID == 0 {
			// Renewal for a subscription we never recorded and the
			// event carries no user: nothing to attach it to.
			return nil
		}
		// Renewal for a user we never saw a checkout for: create the
		// record rather than dropping a paid period.
		rec = &models.SubscriptionRecord{
			TelegramID: ev.UserID,
			Plan:       models.PlanBasic,
		}
	}
	rec.SubscriptionRef = ev.SubscriptionRef
	rec.ExpiresAt = ev.PeriodEnd
	if err := g.store.PutSubscription(ctx, rec); err != nil {
		return fmt.Errorf("failed to store subscription: %w", err)
	}
	return nil
}

// ApplySubscriptionCancelled expires the record immediately. The
// record itself is kept so the expired state stays observable.
func (g *Gate) ApplySubscriptionCancelled(ctx context.Context, ev CancelEvent) error {
	rec, err := g.lookup(ctx, ev.UserID, ev.SubscriptionRef)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	rec.Plan = models.PlanCancelled
	rec.ExpiresAt = g.now()
	if err := g.store.PutSubscription(ctx, rec); err != nil {
		return fmt.Errorf("failed to store subscription: %w", err)
	}
	return nil
}

// lookup resolves a record by user id when the event carries one,
// falling back to the external subscription reference.
func (g *Gate) lookup(ctx context.Context, userID int64, subscriptionRef string) (*models.SubscriptionRecord, error) {
	if userID != 0 {
		rec, err := g.store.GetSubscription(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load subscription: %w", err)
		}
		return rec, nil
	}
	if subscriptionRef == "" {
		return nil, nil
	}
	rec, err := g.store.GetSubscriptionByRef(ctx, subscriptionRef)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription by ref: %w", err)
	}
	return rec, nil
}

// Grant is the operator action giving a user free access for the
// given number of days.
func (g *Gate) Grant(ctx context.Context, userID int64, days int) error {
	rec := &models.SubscriptionRecord{
		TelegramID: userID,
		Plan:       models.PlanGranted,
		ExpiresAt:  g.now().Add(time.Duration(days) * 24 * time.Hour),
	}
	return g.store.PutSubscription(ctx, rec)
}

// Revoke is the operator action expiring a user's access now.
func (g *Gate) Revoke(ctx context.Context, userID int64) error {
	return g.ApplySubscriptionCancelled(ctx, CancelEvent{UserID: userID})
}
