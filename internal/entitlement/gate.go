// Package entitlement decides whether a user may use gated features
// right now, based on their subscription record and daily usage
// counters, and applies payment webhook events to those records.
package entitlement

import (
	"context"
	"fmt"
	"time"

	"dietitian-bot/internal/models"
	"dietitian-bot/internal/store"
)

// Reason codes surfaced to the dispatcher. Valid users carry their
// plan name instead.
const (
	ReasonAdmin                = "admin"
	ReasonSubscriptionRequired = "subscription_required"
	ReasonSubscriptionExpired  = "subscription_expired"
	ReasonPhotoLimitReached    = "photo_limit_reached"
)

type Gate struct {
	store      store.Store
	admins     map[int64]bool
	dailyLimit int
	subDays    int
	now        func() time.Time
}

func NewGate(st store.Store, adminIDs []int64, dailyLimit, subscriptionDays int) *Gate {
	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &Gate{
		store:      st,
		admins:     admins,
		dailyLimit: dailyLimit,
		subDays:    subscriptionDays,
		now:        time.Now,
	}
}

// WithClock substitutes the time source, for tests.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

func (g *Gate) IsAdmin(userID int64) bool {
	return g.admins[userID]
}

// CheckValid reports whether the user currently has a valid
// entitlement. The second return value is the plan name when valid
// and a reason code when not. Admin-listed users are always valid.
func (g *Gate) CheckValid(ctx context.Context, userID int64) (bool, string, error) {
	if g.admins[userID] {
		return true, ReasonAdmin, nil
	}

	rec, err := g.store.GetSubscription(ctx, userID)
	if err != nil {
		return false, "", fmt.Errorf("failed to load subscription: %w", err)
	}
	if rec == nil {
		return false, ReasonSubscriptionRequired, nil
	}
	if !rec.Valid(g.now()) {
		return false, ReasonSubscriptionExpired, nil
	}
	return true, string(rec.Plan), nil
}

// CanUsePhoto decides whether a photo analysis may start right now.
// Unlimited plans skip the counter entirely; the metered basic plan
// is checked against today's UTC counter. The counter is consumed
// separately via ConsumePhoto, only after a usable analysis.
func (g *Gate) CanUsePhoto(ctx context.Context, userID int64) (bool, string, error) {
	if g.admins[userID] {
		return true, ReasonAdmin, nil
	}

	valid, planOrReason, err := g.CheckValid(ctx, userID)
	if err != nil {
		return false, "", err
	}
	if !valid {
		return false, planOrReason, nil
	}

	if models.Plan(planOrReason) != models.PlanBasic {
		return true, planOrReason, nil
	}

	count, err := g.store.GetDailyUsage(ctx, userID, models.UsageDate(g.now()))
	if err != nil {
		return false, "", fmt.Errorf("failed to load daily usage: %w", err)
	}
	if count >= g.dailyLimit {
		return false, ReasonPhotoLimitReached, nil
	}
	return true, planOrReason, nil
}

// ConsumePhoto records one completed photo analysis against today's
// quota. Callers invoke it exactly once, after the analysis result
// is confirmed usable; a failed or refused analysis never consumes
// quota.
func (g *Gate) ConsumePhoto(ctx context.Context, userID int64) error {
	return g.store.IncrementPhotoCount(ctx, userID, models.UsageDate(g.now()))
}
