package data

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Top-level document keys
const (
	keyUserRoles        = "user_roles"
	keyUserNames        = "user_names"
	keyDailyReminders   = "daily_reminders"
	keyOneTimeReminders = "one_time_reminders"
	keyPartnerReminders = "partner_reminders"
	keyContent          = "content"
)

// Document is the whole persisted application state.
// Keys this program does not know about are kept and written back untouched.
type Document struct {
	UserRoles        map[string]string
	UserNames        map[string]string
	DailyReminders   map[string][]*DailyRecord
	OneTimeReminders map[string][]*OneTimeRecord
	PartnerReminders map[string][]*PartnerRecord
	Content          map[string]RoleContent

	extra map[string]json.RawMessage
}

// DailyRecord is the stored form of a daily reminder
type DailyRecord struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Time        string `json:"time"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"created_at"`
	LastFiredOn string `json:"last_fired_on,omitempty"`
}

// OneTimeRecord is the stored form of a one-time reminder
type OneTimeRecord struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Datetime  string `json:"datetime"`
	Sent      bool   `json:"sent"`
	CreatedAt string `json:"created_at"`
}

// PartnerRecord is the stored form of a partner reminder
type PartnerRecord struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Datetime   string `json:"datetime"`
	Sent       bool   `json:"sent"`
	SenderID   FlexID `json:"sender_id"`
	SenderName string `json:"sender_name"`
	CreatedAt  string `json:"created_at"`
}

// RoleContent holds the media submitted for one role, keyed by content type
// ("image_paths", "video_messages", ...). Types this program never writes
// are kept as they were.
type RoleContent map[string]json.RawMessage

// Paths returns the list stored under key; anything that is not a list of
// strings reads as empty.
func (c RoleContent) Paths(key string) []string {
	return decodeStrings(c[key])
}

// Append adds path to the list stored under key
func (c RoleContent) Append(key, path string) error {
	var list []string
	if raw, ok := c[key]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &list); err != nil {
			return fmt.Errorf("content %s: %w", key, err)
		}
	}
	encoded, err := json.Marshal(append(list, path))
	if err != nil {
		return err
	}
	c[key] = encoded
	return nil
}

// legacyRestaurant is a restaurant suggestion as older documents stored it;
// ratings were written both as "4.5/5" and as 4.5.
type legacyRestaurant struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Rating      any    `json:"rating"`
	Vibe        string `json:"vibe"`
}

// legacyStats is the exchange_stats section of older documents
type legacyStats struct {
	EndDate           string `json:"end_date"`
	RelationshipStart string `json:"relationship_start"`
	NextMeeting       string `json:"next_meeting"`
}

func decodeStrings(raw json.RawMessage) []string {
	if isNull(raw) {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}

func isNull(raw json.RawMessage) bool {
	b := bytes.TrimSpace(raw)
	return len(b) == 0 || string(b) == "null"
}

// FlexID is a user id that older documents stored as a JSON number
type FlexID string

// UnmarshalJSON accepts both "123" and 123
func (f *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("sender_id: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("sender_id: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

func newDocument() *Document {
	return &Document{
		UserRoles:        make(map[string]string),
		UserNames:        make(map[string]string),
		DailyReminders:   make(map[string][]*DailyRecord),
		OneTimeReminders: make(map[string][]*OneTimeRecord),
		PartnerReminders: make(map[string][]*PartnerRecord),
		Content:          make(map[string]RoleContent),
		extra:            make(map[string]json.RawMessage),
	}
}

// UnmarshalJSON splits known sections from unknown ones
func (d *Document) UnmarshalJSON(b []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*d = *newDocument()
	sections := map[string]any{
		keyUserRoles:        &d.UserRoles,
		keyUserNames:        &d.UserNames,
		keyDailyReminders:   &d.DailyReminders,
		keyOneTimeReminders: &d.OneTimeReminders,
		keyPartnerReminders: &d.PartnerReminders,
		keyContent:          &d.Content,
	}
	for key, value := range raw {
		target, known := sections[key]
		if !known {
			d.extra[key] = value
			continue
		}
		if err := json.Unmarshal(value, target); err != nil {
			return fmt.Errorf("section %s: %w", key, err)
		}
	}
	d.fillNil()
	return nil
}

// MarshalJSON writes known sections and the preserved unknown ones
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.extra)+6)
	for key, value := range d.extra {
		out[key] = value
	}
	out[keyUserRoles] = d.UserRoles
	out[keyUserNames] = d.UserNames
	out[keyDailyReminders] = d.DailyReminders
	out[keyOneTimeReminders] = d.OneTimeReminders
	out[keyPartnerReminders] = d.PartnerReminders
	out[keyContent] = d.Content
	return json.Marshal(out)
}

// fillNil makes every section writable after decoding a partial document
func (d *Document) fillNil() {
	if d.UserRoles == nil {
		d.UserRoles = make(map[string]string)
	}
	if d.UserNames == nil {
		d.UserNames = make(map[string]string)
	}
	if d.DailyReminders == nil {
		d.DailyReminders = make(map[string][]*DailyRecord)
	}
	if d.OneTimeReminders == nil {
		d.OneTimeReminders = make(map[string][]*OneTimeRecord)
	}
	if d.PartnerReminders == nil {
		d.PartnerReminders = make(map[string][]*PartnerRecord)
	}
	if d.Content == nil {
		d.Content = make(map[string]RoleContent)
	}
	if d.extra == nil {
		d.extra = make(map[string]json.RawMessage)
	}
}

// assignMissingIDs gives every reminder without an id a fresh one.
// It reports whether anything changed.
func (d *Document) assignMissingIDs(newID func() string) bool {
	changed := false
	for _, list := range d.DailyReminders {
		for _, r := range list {
			if r.ID == "" {
				r.ID = newID()
				changed = true
			}
		}
	}
	for _, list := range d.OneTimeReminders {
		for _, r := range list {
			if r.ID == "" {
				r.ID = newID()
				changed = true
			}
		}
	}
	for _, list := range d.PartnerReminders {
		for _, r := range list {
			if r.ID == "" {
				r.ID = newID()
				changed = true
			}
		}
	}
	return changed
}
