package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/domain"
)

var (
	boyfriend  = &domain.User{ID: "ou_bf", Role: domain.RoleBoyfriend, Name: "Alex"}
	girlfriend = &domain.User{ID: "ou_gf", Role: domain.RoleGirlfriend, Name: "Sam"}
)

func newReminderUsecaseForTest(now time.Time, users ...*domain.User) (*ReminderUsecase, *mockReminderRepo, *mockMessageRepo) {
	reminders := newMockReminderRepo()
	messages := &mockMessageRepo{}
	uc := NewReminderUsecase(reminders, newMockUserRepo(users...), messages)
	uc.now = func() time.Time { return now }
	return uc, reminders, messages
}

func TestParseWhen(t *testing.T) {
	now := time.Date(2025, 3, 1, 14, 20, 45, 0, time.Local)
	uc, _, _ := newReminderUsecaseForTest(now)

	tests := []struct {
		input     string
		want      time.Time
		immediate bool
		err       error
	}{
		{"now", now, true, nil},
		{" NOW ", now, true, nil},
		{"tomorrow", time.Date(2025, 3, 2, 14, 20, 0, 0, time.Local), false, nil},
		{"18:00", time.Date(2025, 3, 1, 18, 0, 0, 0, time.Local), false, nil},
		{"09:00", time.Date(2025, 3, 2, 9, 0, 0, 0, time.Local), false, nil},
		{"2025-03-05 08:15", time.Date(2025, 3, 5, 8, 15, 0, 0, time.Local), false, nil},
		{"2025-02-01 08:15", time.Time{}, false, domain.ErrTimeInPast},
		{"25:00", time.Time{}, false, domain.ErrInvalidDateTime},
		{"later", time.Time{}, false, domain.ErrInvalidDateTime},
		{"", time.Time{}, false, domain.ErrInvalidDateTime},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := uc.ParseWhen(tt.input)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got.At), "got %v want %v", got.At, tt.want)
			assert.Equal(t, tt.immediate, got.Immediate)
		})
	}
}

func TestCreateDaily_Validation(t *testing.T) {
	uc, reminders, _ := newReminderUsecaseForTest(time.Now())
	ctx := context.Background()

	_, err := uc.CreateDaily(ctx, "u1", "   ", "09:00")
	assert.ErrorIs(t, err, domain.ErrEmptyText)

	_, err = uc.CreateDaily(ctx, "u1", "drink water", "9am")
	assert.ErrorIs(t, err, domain.ErrInvalidClock)
	assert.Empty(t, reminders.daily["u1"], "nothing persisted on validation failure")

	r, err := uc.CreateDaily(ctx, "u1", " drink water ", "09:00")
	require.NoError(t, err)
	assert.Equal(t, "drink water", r.Text)
	assert.True(t, r.Active)
}

func TestCreateOneTime_ImmediateSendsWithoutPersisting(t *testing.T) {
	now := time.Date(2025, 3, 1, 14, 20, 0, 0, time.Local)
	uc, reminders, messages := newReminderUsecaseForTest(now)

	saved, err := uc.CreateOneTime(context.Background(), "u1", "stretch", When{At: now, Immediate: true})
	require.NoError(t, err)
	assert.Nil(t, saved)
	assert.Empty(t, reminders.oneTime)

	sent := messages.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "u1", sent[0].UserID)
	assert.Contains(t, sent[0].Body, "stretch")
}

func TestCreateOneTime_Scheduled(t *testing.T) {
	now := time.Date(2025, 3, 1, 14, 20, 0, 0, time.Local)
	uc, reminders, messages := newReminderUsecaseForTest(now)

	at := now.Add(time.Hour)
	saved, err := uc.CreateOneTime(context.Background(), "u1", "call mom", When{At: at})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.True(t, saved.At.Equal(at))
	assert.Len(t, reminders.oneTime["u1"], 1)
	assert.Empty(t, messages.messages())
}

func TestCreatePartner_NoPartnerWritesNothing(t *testing.T) {
	uc, reminders, messages := newReminderUsecaseForTest(time.Now(), boyfriend)

	_, _, err := uc.CreatePartner(context.Background(), boyfriend.ID, "drink water", When{At: time.Now().Add(time.Hour)})
	assert.ErrorIs(t, err, domain.ErrNoPartner)
	assert.Empty(t, reminders.partner)
	assert.Empty(t, messages.messages())
}

func TestCreatePartner_NowSendsDirectly(t *testing.T) {
	now := time.Date(2025, 3, 1, 14, 20, 0, 0, time.Local)
	uc, reminders, messages := newReminderUsecaseForTest(now, boyfriend, girlfriend)

	saved, partner, err := uc.CreatePartner(context.Background(), boyfriend.ID, "drink water", When{At: now, Immediate: true})
	require.NoError(t, err)
	assert.Nil(t, saved)
	require.NotNil(t, partner)
	assert.Equal(t, girlfriend.ID, partner.ID)
	assert.Empty(t, reminders.partner, "immediate partner reminders are not stored")

	sent := messages.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, girlfriend.ID, sent[0].UserID)
	assert.Contains(t, sent[0].Body, "Alex")
	assert.Contains(t, sent[0].Body, "drink water")
}

func TestCreatePartner_ScheduledStoresUnderPartner(t *testing.T) {
	now := time.Date(2025, 3, 1, 14, 20, 0, 0, time.Local)
	uc, reminders, _ := newReminderUsecaseForTest(now, boyfriend, girlfriend)

	saved, _, err := uc.CreatePartner(context.Background(), girlfriend.ID, "good night", When{At: now.Add(8 * time.Hour)})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, boyfriend.ID, saved.UserID)
	assert.Len(t, reminders.partner[boyfriend.ID], 1)
}

func TestCreatePartner_StoreFailure(t *testing.T) {
	uc, reminders, _ := newReminderUsecaseForTest(time.Now(), boyfriend, girlfriend)
	reminders.saveErr = errors.New("disk full")

	_, _, err := uc.CreatePartner(context.Background(), boyfriend.ID, "x", When{At: time.Now().Add(time.Hour)})
	assert.Error(t, err)
}

func TestToggleAndDeleteDaily(t *testing.T) {
	uc, _, _ := newReminderUsecaseForTest(time.Now())
	ctx := context.Background()

	_, err := uc.CreateDaily(ctx, "u1", "drink water", "09:00")
	require.NoError(t, err)

	_, err = uc.ToggleDaily(ctx, "u1", 2)
	assert.ErrorIs(t, err, domain.ErrReminderNotFound)

	r, err := uc.ToggleDaily(ctx, "u1", 1)
	require.NoError(t, err)
	assert.False(t, r.Active)

	require.NoError(t, uc.DeleteDaily(ctx, "u1", 1))
	list, err := uc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list.Daily)
}

func TestFormatList(t *testing.T) {
	assert.Contains(t, FormatList(&ReminderList{}), "no reminders")

	at := time.Date(2025, 3, 1, 18, 0, 0, 0, time.Local)
	text := FormatList(&ReminderList{
		Daily: []*domain.DailyReminder{
			{Text: "drink water", Time: "09:00", Active: true},
			{Text: "stretch", Time: "15:00", Active: false},
		},
		OneTime: []*domain.OneTimeReminder{
			{Text: "call mom", At: at},
			{Text: "already sent", At: at, Sent: true},
		},
		Partner: []*domain.PartnerReminder{
			{Text: "good night", At: at, SenderName: "Alex"},
		},
	})

	assert.Contains(t, text, "1. 09:00 drink water (on)")
	assert.Contains(t, text, "2. 15:00 stretch (off)")
	assert.Contains(t, text, "call mom")
	assert.NotContains(t, text, "already sent")
	assert.Contains(t, text, "good night (from Alex)")
}
