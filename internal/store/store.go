// Package store is the persistence boundary: per-user profile facts,
// subscription records, daily usage counters and the conversation
// log. Core logic depends on the Store interface so tests can swap
// in an in-memory fake.
package store

import (
	"context"

	"dietitian-bot/internal/models"
)

// Store is the per-user facts datastore. Field writes are atomic
// single-field upserts: setting one column never clobbers another.
// Daily usage is keyed by the UTC calendar day.
type Store interface {
	// EnsureUser creates the profile row on first contact. It is a
	// no-op for an existing user and never overwrites answers.
	EnsureUser(ctx context.Context, telegramID, chatID int64, username string) error
	GetProfile(ctx context.Context, telegramID int64) (*models.UserProfile, error)
	SetProfileField(ctx context.Context, telegramID int64, column string, value interface{}) error
	// ResetProfile wipes every profile fact and the conversation log.
	// The subscription record is entitlement state, not a profile
	// fact, and survives a reset.
	ResetProfile(ctx context.Context, telegramID int64) error

	GetSubscription(ctx context.Context, telegramID int64) (*models.SubscriptionRecord, error)
	// GetSubscriptionByRef resolves a record by the external
	// subscription reference carried in renewal and cancellation
	// webhook events.
	GetSubscriptionByRef(ctx context.Context, subscriptionRef string) (*models.SubscriptionRecord, error)
	PutSubscription(ctx context.Context, rec *models.SubscriptionRecord) error

	GetDailyUsage(ctx context.Context, telegramID int64, date string) (int, error)
	IncrementPhotoCount(ctx context.Context, telegramID int64, date string) error

	AppendMessage(ctx context.Context, telegramID int64, role, content string) error
	RecentMessages(ctx context.Context, telegramID int64, limit int) ([]models.HistoryEntry, error)
}
