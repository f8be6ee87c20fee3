package data

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/domain"
	"github.com/ldrbot/feishu-companion-bot/internal/biz/repo"
	"github.com/ldrbot/feishu-companion-bot/internal/pkg/timeutil"
)

// reminderRepo implements the reminder repository on the document store
type reminderRepo struct {
	store *DocumentStore
	now   func() time.Time
}

// NewReminderRepo creates a new reminder repository
func NewReminderRepo(store *DocumentStore) repo.ReminderRepo {
	return &reminderRepo{store: store, now: time.Now}
}

// SaveDaily appends an active daily reminder
func (r *reminderRepo) SaveDaily(ctx context.Context, userID, text, hhmm string) (*domain.DailyReminder, error) {
	if !timeutil.IsClock(hhmm) {
		return nil, domain.ErrInvalidClock
	}
	rec := &DailyRecord{
		ID:        r.store.newID(),
		Text:      text,
		Time:      hhmm,
		Active:    true,
		CreatedAt: timeutil.FormatLocalDateTime(r.now()),
	}
	err := r.store.Update(ctx, func(doc *Document) error {
		doc.DailyReminders[userID] = append(doc.DailyReminders[userID], rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save daily reminder: %w", err)
	}
	return dailyFromRecord(userID, rec), nil
}

// ToggleDaily flips the active flag of the reminder at the 1-based index
func (r *reminderRepo) ToggleDaily(ctx context.Context, userID string, index int) (*domain.DailyReminder, error) {
	var toggled *domain.DailyReminder
	err := r.store.Update(ctx, func(doc *Document) error {
		list := doc.DailyReminders[userID]
		if index < 1 || index > len(list) {
			return domain.ErrReminderNotFound
		}
		rec := list[index-1]
		rec.Active = !rec.Active
		toggled = dailyFromRecord(userID, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to toggle daily reminder: %w", err)
	}
	return toggled, nil
}

// RemoveDaily deletes the reminder at the 1-based index
func (r *reminderRepo) RemoveDaily(ctx context.Context, userID string, index int) error {
	err := r.store.Update(ctx, func(doc *Document) error {
		list := doc.DailyReminders[userID]
		if index < 1 || index > len(list) {
			return domain.ErrReminderNotFound
		}
		list = append(list[:index-1], list[index:]...)
		if len(list) == 0 {
			delete(doc.DailyReminders, userID)
		} else {
			doc.DailyReminders[userID] = list
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove daily reminder: %w", err)
	}
	return nil
}

// MarkDailyFired records day as the last dispatch date
func (r *reminderRepo) MarkDailyFired(ctx context.Context, userID, reminderID, day string) error {
	err := r.store.Update(ctx, func(doc *Document) error {
		for _, rec := range doc.DailyReminders[userID] {
			if rec != nil && rec.ID == reminderID {
				rec.LastFiredOn = day
				return nil
			}
		}
		return domain.ErrReminderNotFound
	})
	if err != nil {
		return fmt.Errorf("failed to mark daily reminder fired: %w", err)
	}
	return nil
}

// SaveOneTime appends an unsent one-time reminder
func (r *reminderRepo) SaveOneTime(ctx context.Context, userID, text string, at time.Time) (*domain.OneTimeReminder, error) {
	rec := &OneTimeRecord{
		ID:        r.store.newID(),
		Text:      text,
		Datetime:  timeutil.FormatLocalDateTime(at),
		CreatedAt: timeutil.FormatLocalDateTime(r.now()),
	}
	err := r.store.Update(ctx, func(doc *Document) error {
		doc.OneTimeReminders[userID] = append(doc.OneTimeReminders[userID], rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save one-time reminder: %w", err)
	}
	return oneTimeFromRecord(userID, rec), nil
}

// MarkSent sets sent on a one-time reminder. Marking twice is a no-op.
func (r *reminderRepo) MarkSent(ctx context.Context, userID, reminderID string) error {
	err := r.store.Update(ctx, func(doc *Document) error {
		for _, rec := range doc.OneTimeReminders[userID] {
			if rec != nil && rec.ID == reminderID {
				rec.Sent = true
				return nil
			}
		}
		return domain.ErrReminderNotFound
	})
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return nil
}

// SavePartner stores the reminder under the recipient.
// The sender's display name is copied in so the notification reads well
// even if the sender later renames.
func (r *reminderRepo) SavePartner(ctx context.Context, senderID, partnerID, text string, at time.Time) (*domain.PartnerReminder, error) {
	var saved *domain.PartnerReminder
	err := r.store.Update(ctx, func(doc *Document) error {
		sender := userFromDocument(doc, senderID)
		rec := &PartnerRecord{
			ID:         r.store.newID(),
			Text:       text,
			Datetime:   timeutil.FormatLocalDateTime(at),
			SenderID:   FlexID(senderID),
			SenderName: sender.DisplayName(),
			CreatedAt:  timeutil.FormatLocalDateTime(r.now()),
		}
		doc.PartnerReminders[partnerID] = append(doc.PartnerReminders[partnerID], rec)
		saved = partnerFromRecord(partnerID, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save partner reminder: %w", err)
	}
	return saved, nil
}

// MarkPartnerSent sets sent on a partner reminder held by userID
func (r *reminderRepo) MarkPartnerSent(ctx context.Context, userID, reminderID string) error {
	err := r.store.Update(ctx, func(doc *Document) error {
		for _, rec := range doc.PartnerReminders[userID] {
			if rec != nil && rec.ID == reminderID {
				rec.Sent = true
				return nil
			}
		}
		return domain.ErrReminderNotFound
	})
	if err != nil {
		return fmt.Errorf("failed to mark partner reminder sent: %w", err)
	}
	return nil
}

// ListDaily returns the user's daily reminders in display order
func (r *reminderRepo) ListDaily(ctx context.Context, userID string) ([]*domain.DailyReminder, error) {
	var result []*domain.DailyReminder
	err := r.store.View(ctx, func(doc *Document) error {
		result = dailyList(userID, doc.DailyReminders[userID])
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list daily reminders: %w", err)
	}
	return result, nil
}

// ListOneTime returns the user's one-time reminders in display order
func (r *reminderRepo) ListOneTime(ctx context.Context, userID string) ([]*domain.OneTimeReminder, error) {
	var result []*domain.OneTimeReminder
	err := r.store.View(ctx, func(doc *Document) error {
		result = oneTimeList(userID, doc.OneTimeReminders[userID])
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list one-time reminders: %w", err)
	}
	return result, nil
}

// ListPartner returns reminders the partner set for userID
func (r *reminderRepo) ListPartner(ctx context.Context, userID string) ([]*domain.PartnerReminder, error) {
	var result []*domain.PartnerReminder
	err := r.store.View(ctx, func(doc *Document) error {
		result = partnerList(userID, doc.PartnerReminders[userID])
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list partner reminders: %w", err)
	}
	return result, nil
}

// Snapshot reads every reminder of every user in one store access.
// Users are visited in sorted order so cycles dispatch deterministically.
func (r *reminderRepo) Snapshot(ctx context.Context) (*domain.ReminderSnapshot, error) {
	snap := &domain.ReminderSnapshot{}
	err := r.store.View(ctx, func(doc *Document) error {
		for _, userID := range sortedKeys(doc.DailyReminders) {
			snap.Daily = append(snap.Daily, dailyList(userID, doc.DailyReminders[userID])...)
		}
		for _, userID := range sortedKeys(doc.OneTimeReminders) {
			snap.OneTime = append(snap.OneTime, oneTimeList(userID, doc.OneTimeReminders[userID])...)
		}
		for _, userID := range sortedKeys(doc.PartnerReminders) {
			snap.Partner = append(snap.Partner, partnerList(userID, doc.PartnerReminders[userID])...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read reminders: %w", err)
	}
	return snap, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dailyList(userID string, records []*DailyRecord) []*domain.DailyReminder {
	result := make([]*domain.DailyReminder, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		result = append(result, dailyFromRecord(userID, rec))
	}
	return result
}

func oneTimeList(userID string, records []*OneTimeRecord) []*domain.OneTimeReminder {
	result := make([]*domain.OneTimeReminder, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		result = append(result, oneTimeFromRecord(userID, rec))
	}
	return result
}

func partnerList(userID string, records []*PartnerRecord) []*domain.PartnerReminder {
	result := make([]*domain.PartnerReminder, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		result = append(result, partnerFromRecord(userID, rec))
	}
	return result
}

func dailyFromRecord(userID string, rec *DailyRecord) *domain.DailyReminder {
	return &domain.DailyReminder{
		ID:          rec.ID,
		UserID:      userID,
		Text:        rec.Text,
		Time:        rec.Time,
		Active:      rec.Active,
		CreatedAt:   parseStamp(rec.CreatedAt),
		LastFiredOn: rec.LastFiredOn,
	}
}

func oneTimeFromRecord(userID string, rec *OneTimeRecord) *domain.OneTimeReminder {
	return &domain.OneTimeReminder{
		ID:        rec.ID,
		UserID:    userID,
		Text:      rec.Text,
		At:        parseStamp(rec.Datetime),
		Sent:      rec.Sent,
		CreatedAt: parseStamp(rec.CreatedAt),
	}
}

func partnerFromRecord(userID string, rec *PartnerRecord) *domain.PartnerReminder {
	return &domain.PartnerReminder{
		ID:         rec.ID,
		UserID:     userID,
		SenderID:   string(rec.SenderID),
		SenderName: rec.SenderName,
		Text:       rec.Text,
		At:         parseStamp(rec.Datetime),
		Sent:       rec.Sent,
		CreatedAt:  parseStamp(rec.CreatedAt),
	}
}

// parseStamp returns the zero time for malformed values; a zero At is never due
func parseStamp(s string) time.Time {
	t, err := timeutil.ParseLocalDateTime(s)
	if err != nil {
		return time.Time{}
	}
	return t
}
