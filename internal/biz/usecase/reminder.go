package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/domain"
	"github.com/ldrbot/feishu-companion-bot/internal/biz/repo"
	"github.com/ldrbot/feishu-companion-bot/internal/pkg/timeutil"
)

// When is a parsed reminder time. Immediate reminders are delivered on the spot.
type When struct {
	At        time.Time
	Immediate bool
}

// ReminderList is everything the list view shows for one user
type ReminderList struct {
	Daily   []*domain.DailyReminder
	OneTime []*domain.OneTimeReminder
	Partner []*domain.PartnerReminder
}

// ReminderUsecase handles reminder creation and management
type ReminderUsecase struct {
	reminderRepo repo.ReminderRepo
	userRepo     repo.UserRepo
	notifier     repo.Notifier
	now          func() time.Time
}

// NewReminderUsecase creates a new reminder usecase
func NewReminderUsecase(
	reminderRepo repo.ReminderRepo,
	userRepo repo.UserRepo,
	notifier repo.Notifier,
) *ReminderUsecase {
	return &ReminderUsecase{
		reminderRepo: reminderRepo,
		userRepo:     userRepo,
		notifier:     notifier,
		now:          time.Now,
	}
}

// ParseWhen understands "now", "tomorrow" (same time tomorrow), "HH:MM"
// (next occurrence) and "YYYY-MM-DD HH:MM".
func (uc *ReminderUsecase) ParseWhen(input string) (When, error) {
	now := uc.now()
	input = strings.ToLower(strings.TrimSpace(input))

	switch input {
	case "":
		return When{}, domain.ErrInvalidDateTime
	case "now":
		return When{At: now, Immediate: true}, nil
	case "tomorrow":
		return When{At: now.Truncate(time.Minute).AddDate(0, 0, 1)}, nil
	}

	if h, m, ok := timeutil.ParseClock(input); ok {
		return When{At: timeutil.NextOccurrence(now, h, m)}, nil
	}

	at, err := timeutil.ParseLocalDateTime(input)
	if err != nil {
		return When{}, domain.ErrInvalidDateTime
	}
	if !at.After(now) {
		return When{}, domain.ErrTimeInPast
	}
	return When{At: at}, nil
}

// CreateDaily validates and stores a daily reminder
func (uc *ReminderUsecase) CreateDaily(ctx context.Context, userID, text, hhmm string) (*domain.DailyReminder, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyText
	}
	hhmm = strings.TrimSpace(hhmm)
	if !timeutil.IsClock(hhmm) {
		return nil, domain.ErrInvalidClock
	}
	return uc.reminderRepo.SaveDaily(ctx, userID, text, hhmm)
}

// CreateOneTime stores a one-time reminder, or delivers it right away
// when when is immediate (the returned reminder is then nil).
func (uc *ReminderUsecase) CreateOneTime(ctx context.Context, userID, text string, when When) (*domain.OneTimeReminder, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyText
	}
	if when.Immediate {
		r := &domain.OneTimeReminder{UserID: userID, Text: text, At: when.At}
		if err := uc.notifier.SendText(ctx, userID, r.Notification()); err != nil {
			return nil, fmt.Errorf("send reminder: %w", err)
		}
		return nil, nil
	}
	return uc.reminderRepo.SaveOneTime(ctx, userID, text, when.At)
}

// CreatePartner sets a reminder for the sender's partner.
// Without a resolved partner nothing is written and ErrNoPartner is returned.
// Immediate reminders go straight to the partner and are not stored.
func (uc *ReminderUsecase) CreatePartner(ctx context.Context, senderID, text string, when When) (*domain.PartnerReminder, *domain.User, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil, domain.ErrEmptyText
	}

	partner, err := uc.userRepo.ResolvePartner(ctx, senderID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve partner: %w", err)
	}
	if partner == nil {
		return nil, nil, domain.ErrNoPartner
	}

	if when.Immediate {
		sender, err := uc.userRepo.Get(ctx, senderID)
		if err != nil {
			return nil, nil, fmt.Errorf("get sender: %w", err)
		}
		if err := uc.notifier.SendText(ctx, partner.ID, domain.PartnerNotification(sender.DisplayName(), text)); err != nil {
			return nil, nil, fmt.Errorf("send partner reminder: %w", err)
		}
		return nil, partner, nil
	}

	saved, err := uc.reminderRepo.SavePartner(ctx, senderID, partner.ID, text, when.At)
	if err != nil {
		return nil, nil, err
	}
	return saved, partner, nil
}

// List returns the user's reminders, including those the partner set for them
func (uc *ReminderUsecase) List(ctx context.Context, userID string) (*ReminderList, error) {
	daily, err := uc.reminderRepo.ListDaily(ctx, userID)
	if err != nil {
		return nil, err
	}
	oneTime, err := uc.reminderRepo.ListOneTime(ctx, userID)
	if err != nil {
		return nil, err
	}
	partner, err := uc.reminderRepo.ListPartner(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ReminderList{Daily: daily, OneTime: oneTime, Partner: partner}, nil
}

// ToggleDaily flips the daily reminder shown at position index (1-based)
func (uc *ReminderUsecase) ToggleDaily(ctx context.Context, userID string, index int) (*domain.DailyReminder, error) {
	return uc.reminderRepo.ToggleDaily(ctx, userID, index)
}

// DeleteDaily removes the daily reminder shown at position index (1-based)
func (uc *ReminderUsecase) DeleteDaily(ctx context.Context, userID string, index int) error {
	return uc.reminderRepo.RemoveDaily(ctx, userID, index)
}

// FormatList renders the list view
func FormatList(list *ReminderList) string {
	if list == nil || len(list.Daily)+len(list.OneTime)+len(list.Partner) == 0 {
		return "📭 no reminders yet! set one from the menu ⏰"
	}

	var b strings.Builder
	if len(list.Daily) > 0 {
		b.WriteString("🔁 daily reminders:\n")
		for i, r := range list.Daily {
			status := "on"
			if !r.Active {
				status = "off"
			}
			fmt.Fprintf(&b, "%d. %s %s (%s)\n", i+1, r.Time, r.Text, status)
		}
	}
	if pending := pendingOneTime(list.OneTime); len(pending) > 0 {
		b.WriteString("\n📅 upcoming:\n")
		for _, r := range pending {
			fmt.Fprintf(&b, "• %s %s\n", r.At.Format("Jan 2 15:04"), r.Text)
		}
	}
	if pending := pendingPartner(list.Partner); len(pending) > 0 {
		b.WriteString("\n💌 from your partner:\n")
		for _, r := range pending {
			fmt.Fprintf(&b, "• %s %s (from %s)\n", r.At.Format("Jan 2 15:04"), r.Text, r.SenderName)
		}
	}
	if len(list.Daily) > 0 {
		b.WriteString("\nreply \"toggle N\" or \"delete N\" to manage daily reminders")
	}
	return strings.TrimRight(b.String(), "\n")
}

func pendingOneTime(list []*domain.OneTimeReminder) []*domain.OneTimeReminder {
	var out []*domain.OneTimeReminder
	for _, r := range list {
		if !r.Sent {
			out = append(out, r)
		}
	}
	return out
}

func pendingPartner(list []*domain.PartnerReminder) []*domain.PartnerReminder {
	var out []*domain.PartnerReminder
	for _, r := range list {
		if !r.Sent {
			out = append(out, r)
		}
	}
	return out
}
