package repo

import (
	"context"
	"time"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/domain"
)

// ReminderRepo is the reminder repository interface
// It is the only mutation surface for reminders; every call is one
// serialized read-modify-write of the document store.
// Index arguments are 1-based display positions.
type ReminderRepo interface {
	// SaveDaily appends an active daily reminder
	SaveDaily(ctx context.Context, userID, text, hhmm string) (*domain.DailyReminder, error)

	// ToggleDaily flips the active flag of the reminder at index
	ToggleDaily(ctx context.Context, userID string, index int) (*domain.DailyReminder, error)

	// RemoveDaily deletes the reminder at index
	RemoveDaily(ctx context.Context, userID string, index int) error

	// MarkDailyFired records the day a daily reminder was dispatched
	MarkDailyFired(ctx context.Context, userID, reminderID, day string) error

	// SaveOneTime appends an unsent one-time reminder
	SaveOneTime(ctx context.Context, userID, text string, at time.Time) (*domain.OneTimeReminder, error)

	// MarkSent marks a one-time reminder as dispatched
	MarkSent(ctx context.Context, userID, reminderID string) error

	// SavePartner stores a reminder under partnerID, sent by senderID
	SavePartner(ctx context.Context, senderID, partnerID, text string, at time.Time) (*domain.PartnerReminder, error)

	// MarkPartnerSent marks a partner reminder as dispatched
	MarkPartnerSent(ctx context.Context, userID, reminderID string) error

	ListDaily(ctx context.Context, userID string) ([]*domain.DailyReminder, error)
	ListOneTime(ctx context.Context, userID string) ([]*domain.OneTimeReminder, error)
	ListPartner(ctx context.Context, userID string) ([]*domain.PartnerReminder, error)

	// Snapshot reads all reminders of all users in one store access
	Snapshot(ctx context.Context) (*domain.ReminderSnapshot, error)
}
