package domain

import (
	"errors"
	"fmt"
	"time"
)

// DueWindow is how long after its target time a one-time or partner reminder
// stays eligible. Anything first seen later than this is skipped for good.
const DueWindow = 60 * time.Second

var (
	ErrReminderNotFound = errors.New("reminder not found")
	ErrInvalidClock     = errors.New("time must be HH:MM (24h)")
	ErrInvalidDateTime  = errors.New("invalid date/time")
	ErrEmptyText        = errors.New("reminder text is empty")
	ErrTimeInPast       = errors.New("reminder time is in the past")
)

// ReminderKind names the three reminder collections
type ReminderKind string

const (
	KindDaily   ReminderKind = "daily"
	KindOneTime ReminderKind = "one_time"
	KindPartner ReminderKind = "partner"
)

// DailyReminder fires every day at Time while Active
type DailyReminder struct {
	ID          string
	UserID      string
	Text        string
	Time        string // HH:MM server-local
	Active      bool
	CreatedAt   time.Time
	LastFiredOn string // YYYY-MM-DD of the last successful dispatch
}

// IsDue reports whether the reminder should fire at now.
// A reminder that already fired today is not due again even if the clock
// shows the same minute twice.
func (r *DailyReminder) IsDue(now time.Time) bool {
	if !r.Active {
		return false
	}
	if r.Time != now.Format("15:04") {
		return false
	}
	return r.LastFiredOn != now.Format("2006-01-02")
}

// Notification is the text delivered when the reminder fires
func (r *DailyReminder) Notification() string {
	return fmt.Sprintf("⏰ daily reminder: %s 🔔", r.Text)
}

// OneTimeReminder fires once at At
type OneTimeReminder struct {
	ID        string
	UserID    string
	Text      string
	At        time.Time
	Sent      bool
	CreatedAt time.Time
}

// IsDue reports whether now falls in [At, At+DueWindow) and the reminder is unsent
func (r *OneTimeReminder) IsDue(now time.Time) bool {
	return !r.Sent && inDueWindow(r.At, now)
}

// Notification is the text delivered when the reminder fires
func (r *OneTimeReminder) Notification() string {
	return fmt.Sprintf("⏰ reminder: %s 🔔", r.Text)
}

// PartnerReminder is a one-time reminder set by SenderID for UserID (the recipient)
type PartnerReminder struct {
	ID         string
	UserID     string // recipient
	SenderID   string
	SenderName string
	Text       string
	At         time.Time
	Sent       bool
	CreatedAt  time.Time
}

// IsDue mirrors OneTimeReminder.IsDue
func (r *PartnerReminder) IsDue(now time.Time) bool {
	return !r.Sent && inDueWindow(r.At, now)
}

// Notification names the sender so the recipient knows who set it
func (r *PartnerReminder) Notification() string {
	return PartnerNotification(r.SenderName, r.Text)
}

// PartnerNotification formats a reminder sent on behalf of a partner
func PartnerNotification(senderName, text string) string {
	if senderName == "" {
		senderName = "your partner"
	}
	return fmt.Sprintf("💌 reminder from %s: %s 💕", senderName, text)
}

func inDueWindow(at, now time.Time) bool {
	if at.IsZero() || now.Before(at) {
		return false
	}
	return now.Sub(at) < DueWindow
}

// ReminderSnapshot is every reminder of every user as read in one store access
type ReminderSnapshot struct {
	Daily   []*DailyReminder
	OneTime []*OneTimeReminder
	Partner []*PartnerReminder
}

// Empty reports whether the snapshot holds no reminders at all
func (s *ReminderSnapshot) Empty() bool {
	return s == nil || len(s.Daily)+len(s.OneTime)+len(s.Partner) == 0
}
