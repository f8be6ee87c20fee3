// Package timeutil holds the date and clock helpers shared by the reminder
// scheduler, the conversation dialogs and the stats view.
//
// All offset-less timestamps are interpreted in time.Local, matching how the
// document store persists them.
package timeutil

import (
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	ClockLayout    = "15:04"
	DateTimeLayout = "2006-01-02T15:04:05"

	// NotAvailable is returned by CurrentTimeIn when the zone cannot be loaded
	NotAvailable = "N/A"
)

// dateTimeLayouts are tried in order by ParseLocalDateTime
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	DateTimeLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// DaysBetween returns the signed number of whole days from start to end.
// Malformed input yields 0.
func DaysBetween(start, end string) int {
	s, err := time.ParseInLocation(DateLayout, strings.TrimSpace(start), time.UTC)
	if err != nil {
		return 0
	}
	e, err := time.ParseInLocation(DateLayout, strings.TrimSpace(end), time.UTC)
	if err != nil {
		return 0
	}
	return int(e.Sub(s).Hours() / 24)
}

// DaysFromToday returns how many days target lies ahead of today (negative if past)
func DaysFromToday(target string) int {
	return DaysFrom(time.Now(), target)
}

// DaysFrom is DaysFromToday with an explicit "now"
func DaysFrom(now time.Time, target string) int {
	return DaysBetween(now.Format(DateLayout), target)
}

// ZoneTime is "now" rendered for a named zone
type ZoneTime struct {
	Clock    string // 15:04
	Date     string // Monday, January 2
	Combined string
}

// CurrentTimeIn formats the current time in zone. Unknown zones yield N/A values.
func CurrentTimeIn(zone string) ZoneTime {
	return TimeIn(time.Now(), zone)
}

// TimeIn formats now in zone
func TimeIn(now time.Time, zone string) ZoneTime {
	if zone == "" {
		return ZoneTime{Clock: NotAvailable, Date: NotAvailable, Combined: NotAvailable}
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return ZoneTime{Clock: NotAvailable, Date: NotAvailable, Combined: NotAvailable}
	}
	local := now.In(loc)
	zt := ZoneTime{
		Clock: local.Format(ClockLayout),
		Date:  local.Format("Monday, January 2"),
	}
	zt.Combined = zt.Date + " " + zt.Clock
	return zt
}

// ParseClock parses a strict 24h "HH:MM" value
func ParseClock(s string) (hour, minute int, ok bool) {
	s = strings.TrimSpace(s)
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, false
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// IsClock reports whether s is a valid "HH:MM"
func IsClock(s string) bool {
	_, _, ok := ParseClock(s)
	return ok
}

// NextOccurrence returns today at hour:minute if that is still ahead of now,
// otherwise the same clock time tomorrow
func NextOccurrence(now time.Time, hour, minute int) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !t.After(now) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// ParseLocalDateTime parses the ISO-ish timestamps found in the document.
// Offset-less values are read in time.Local; RFC3339 values keep their offset.
func ParseLocalDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(time.Local), nil
	}
	var lastErr error
	for _, layout := range dateTimeLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// FormatLocalDateTime renders t the way the document stores timestamps
func FormatLocalDateTime(t time.Time) string {
	return t.In(time.Local).Format(DateTimeLayout)
}
