package domain

import (
	"testing"
	"time"
)

func TestDailyReminder_IsDue(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 30, 0, time.Local)

	tests := []struct {
		name     string
		reminder DailyReminder
		want     bool
	}{
		{"matching minute", DailyReminder{Time: "09:00", Active: true}, true},
		{"inactive", DailyReminder{Time: "09:00", Active: false}, false},
		{"other minute", DailyReminder{Time: "09:01", Active: true}, false},
		{"already fired today", DailyReminder{Time: "09:00", Active: true, LastFiredOn: "2024-01-01"}, false},
		{"fired yesterday", DailyReminder{Time: "09:00", Active: true, LastFiredOn: "2023-12-31"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.reminder.IsDue(now); got != tt.want {
				t.Errorf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOneTimeReminder_IsDue_Window(t *testing.T) {
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.Local)
	r := &OneTimeReminder{At: at}

	if r.IsDue(at.Add(-time.Second)) {
		t.Error("Expected reminder not due before its time")
	}
	if !r.IsDue(at) {
		t.Error("Expected reminder due exactly at its time")
	}
	if !r.IsDue(at.Add(59 * time.Second)) {
		t.Error("Expected reminder due at T+59s")
	}
	if r.IsDue(at.Add(60 * time.Second)) {
		t.Error("Expected reminder outside the window at T+60s")
	}
	if r.IsDue(at.Add(61 * time.Second)) {
		t.Error("Expected reminder outside the window at T+61s")
	}

	r.Sent = true
	if r.IsDue(at) {
		t.Error("Expected sent reminder never due")
	}
}

func TestPartnerReminder_IsDue_ZeroTime(t *testing.T) {
	r := &PartnerReminder{}
	if r.IsDue(time.Now()) {
		t.Error("Expected reminder with unparsed time never due")
	}
}

func TestRole_Opposite(t *testing.T) {
	if RoleBoyfriend.Opposite() != RoleGirlfriend {
		t.Error("Expected girlfriend opposite of boyfriend")
	}
	if RoleGirlfriend.Opposite() != RoleBoyfriend {
		t.Error("Expected boyfriend opposite of girlfriend")
	}
	if Role("").Opposite() != "" {
		t.Error("Expected no opposite for empty role")
	}
	if _, err := ParseRole("partner"); err != ErrInvalidRole {
		t.Errorf("Expected ErrInvalidRole, got %v", err)
	}
}
