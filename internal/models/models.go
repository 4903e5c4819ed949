package models

import (
	"time"
)

// Language is one of the bot's supported interface languages.
type Language string

const (
	LangRU Language = "ru"
	LangCS Language = "cs"
	LangEN Language = "en"
)

// DefaultLanguage is the fallback locale for every text lookup.
const DefaultLanguage = LangEN

type Goal string

const (
	GoalLose     Goal = "lose"
	GoalGain     Goal = "gain"
	GoalMaintain Goal = "maintain"
)

type Activity string

const (
	ActivityLow    Activity = "low"
	ActivityMedium Activity = "medium"
	ActivityHigh   Activity = "high"
)

// UserProfile holds the onboarding questionnaire answers for one user.
// Fields are filled in a fixed order; an empty string or zero means
// the field has not been answered yet.
type UserProfile struct {
	TelegramID int64     `json:"telegram_id"`
	ChatID     int64     `json:"chat_id"`
	Username   string    `json:"username"`
	Language   Language  `json:"language"`
	Name       string    `json:"name"`
	Goal       Goal      `json:"goal"`
	WeightKg   int       `json:"weight_kg"`
	HeightCm   int       `json:"height_cm"`
	Age        int       `json:"age"`
	Activity   Activity  `json:"activity"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Lang returns the profile language, falling back to the default
// locale when none has been chosen yet.
func (p *UserProfile) Lang() Language {
	if p == nil || p.Language == "" {
		return DefaultLanguage
	}
	return p.Language
}

type Plan string

const (
	PlanBasic     Plan = "basic"
	PlanPremium   Plan = "premium"
	PlanTrial     Plan = "trial"
	PlanGranted   Plan = "granted"
	PlanCancelled Plan = "cancelled"
)

// SubscriptionRecord is the entitlement state for one user. A record
// is valid while now <= ExpiresAt; cancellation sets ExpiresAt to the
// cancellation time and keeps the record.
type SubscriptionRecord struct {
	TelegramID     int64     `json:"telegram_id"`
	Plan           Plan      `json:"plan"`
	ExpiresAt      time.Time `json:"expires_at"`
	CustomerRef    string    `json:"customer_ref"`
	SubscriptionRef string   `json:"subscription_ref"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Valid reports whether the subscription covers the given instant.
func (s *SubscriptionRecord) Valid(now time.Time) bool {
	return s != nil && !now.After(s.ExpiresAt)
}

// DailyUsage counts completed photo analyses for one user on one
// calendar day. The day boundary is UTC everywhere in the system.
type DailyUsage struct {
	TelegramID int64  `json:"telegram_id"`
	Date       string `json:"date"` // YYYY-MM-DD in UTC
	PhotoCount int    `json:"photo_count"`
}

// UsageDate formats an instant as the UTC calendar-day key used for
// daily quota accounting.
func UsageDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// NutritionRecord is the structured result of one food-photo
// analysis. It is ephemeral and never persisted.
type NutritionRecord struct {
	DishName     string
	PortionGrams int
	Calories     int
	ProteinG     int
	FatG         int
	CarbsG       int
	Advice       string
}

// Unrecognized reports whether the analysis produced nothing usable.
// A record with all four macro fields at zero must never be rendered
// as a nutrition card.
func (n *NutritionRecord) Unrecognized() bool {
	return n.Calories == 0 && n.ProteinG == 0 && n.FatG == 0 && n.CarbsG == 0
}

// HistoryEntry is one message in a user's conversation log.
type HistoryEntry struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}
