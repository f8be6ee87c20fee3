package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/domain"
	"github.com/ldrbot/feishu-companion-bot/internal/biz/repo"
	"github.com/ldrbot/feishu-companion-bot/internal/data"
	"github.com/ldrbot/feishu-companion-bot/internal/pkg/metrics"
)

type notification struct {
	UserID string
	Text   string
}

type mockNotifier struct {
	mu    sync.Mutex
	sent  []notification
	fail  map[string]error
	panic bool
}

func (n *mockNotifier) SendText(ctx context.Context, userID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.panic {
		panic("notifier exploded")
	}
	if err := n.fail[userID]; err != nil {
		return err
	}
	n.sent = append(n.sent, notification{UserID: userID, Text: text})
	return nil
}

func (n *mockNotifier) notifications() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent...)
}

type schedulerFixture struct {
	reminders repo.ReminderRepo
	users     repo.UserRepo
	notifier  *mockNotifier
	scheduler *ReminderScheduler
}

func newSchedulerFixture(t *testing.T, opts ...SchedulerOption) *schedulerFixture {
	t.Helper()
	store, err := data.NewDocumentStore(filepath.Join(t.TempDir(), "bot_data.json"), zap.NewNop())
	require.NoError(t, err)

	f := &schedulerFixture{
		reminders: data.NewReminderRepo(store),
		users:     data.NewUserRepo(store),
		notifier:  &mockNotifier{},
	}
	opts = append([]SchedulerOption{WithSchedulerMetrics(metrics.MustNew(prometheus.NewRegistry()))}, opts...)
	f.scheduler = NewReminderScheduler(f.reminders, f.notifier, zap.NewNop(), opts...)
	return f
}

func at(day, hour, minute, second int) time.Time {
	return time.Date(2025, 3, day, hour, minute, second, 0, time.Local)
}

func TestScheduler_DrinkWaterFiresOncePerDay(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	_, err := f.reminders.SaveDaily(ctx, "u1", "drink water", "09:00")
	require.NoError(t, err)

	require.NoError(t, f.scheduler.RunOnce(ctx, at(1, 9, 0, 30)))
	sent := f.notifier.notifications()
	require.Len(t, sent, 1)
	assert.Equal(t, "u1", sent[0].UserID)
	assert.Contains(t, sent[0].Text, "drink water")

	// same minute seen twice, then the next minute
	require.NoError(t, f.scheduler.RunOnce(ctx, at(1, 9, 0, 50)))
	require.NoError(t, f.scheduler.RunOnce(ctx, at(1, 9, 1, 30)))
	assert.Len(t, f.notifier.notifications(), 1)

	require.NoError(t, f.scheduler.RunOnce(ctx, at(2, 9, 0, 5)))
	assert.Len(t, f.notifier.notifications(), 2)

	list, err := f.reminders.ListDaily(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2025-03-02", list[0].LastFiredOn)
}

func TestScheduler_InactiveDailyIsSkipped(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	_, err := f.reminders.SaveDaily(ctx, "u1", "stretch", "09:00")
	require.NoError(t, err)
	_, err = f.reminders.ToggleDaily(ctx, "u1", 1)
	require.NoError(t, err)

	require.NoError(t, f.scheduler.RunOnce(ctx, at(1, 9, 0, 0)))
	assert.Empty(t, f.notifier.notifications())
}

func TestScheduler_OneTimeDueWindow(t *testing.T) {
	tests := []struct {
		name   string
		offset time.Duration
		fires  bool
	}{
		{"before target", -time.Second, false},
		{"at target", 0, true},
		{"thirty seconds late", 30 * time.Second, true},
		{"last second of window", 59 * time.Second, true},
		{"window closed", 61 * time.Second, false},
		{"an hour late", time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSchedulerFixture(t)
			ctx := context.Background()
			target := at(1, 18, 0, 0)

			_, err := f.reminders.SaveOneTime(ctx, "u1", "call mom", target)
			require.NoError(t, err)

			require.NoError(t, f.scheduler.RunOnce(ctx, target.Add(tt.offset)))

			list, err := f.reminders.ListOneTime(ctx, "u1")
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, tt.fires, list[0].Sent)
			if tt.fires {
				assert.Len(t, f.notifier.notifications(), 1)
			} else {
				assert.Empty(t, f.notifier.notifications())
			}
		})
	}
}

func TestScheduler_OneTimeFiresOnlyOnce(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()
	target := at(1, 18, 0, 0)

	_, err := f.reminders.SaveOneTime(ctx, "u1", "call mom", target)
	require.NoError(t, err)

	require.NoError(t, f.scheduler.RunOnce(ctx, target.Add(10*time.Second)))
	require.NoError(t, f.scheduler.RunOnce(ctx, target.Add(40*time.Second)))
	assert.Len(t, f.notifier.notifications(), 1)
}

func TestScheduler_PartnerReminderNamesSender(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.users.SetRole(ctx, "ou_bf", domain.RoleBoyfriend))
	require.NoError(t, f.users.SetName(ctx, "ou_bf", "Alex"))
	require.NoError(t, f.users.SetRole(ctx, "ou_gf", domain.RoleGirlfriend))

	target := at(1, 22, 30, 0)
	_, err := f.reminders.SavePartner(ctx, "ou_bf", "ou_gf", "good night", target)
	require.NoError(t, err)

	require.NoError(t, f.scheduler.RunOnce(ctx, target.Add(5*time.Second)))

	sent := f.notifier.notifications()
	require.Len(t, sent, 1)
	assert.Equal(t, "ou_gf", sent[0].UserID)
	assert.Contains(t, sent[0].Text, "Alex")
	assert.Contains(t, sent[0].Text, "good night")

	list, err := f.reminders.ListPartner(ctx, "ou_gf")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Sent)
}

func TestScheduler_DeliveryFailureLeavesReminderUnmarked(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()
	target := at(1, 8, 0, 0)

	_, err := f.reminders.SaveOneTime(ctx, "u1", "wake up", target)
	require.NoError(t, err)
	_, err = f.reminders.SaveOneTime(ctx, "u2", "wake up too", target)
	require.NoError(t, err)

	f.notifier.fail = map[string]error{"u1": errors.New("network down")}
	require.NoError(t, f.scheduler.RunOnce(ctx, target.Add(10*time.Second)))

	sent := f.notifier.notifications()
	require.Len(t, sent, 1)
	assert.Equal(t, "u2", sent[0].UserID)

	failed, err := f.reminders.ListOneTime(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, failed[0].Sent)

	// retried on the next cycle while still inside the window
	f.notifier.mu.Lock()
	f.notifier.fail = nil
	f.notifier.mu.Unlock()
	require.NoError(t, f.scheduler.RunOnce(ctx, target.Add(40*time.Second)))

	assert.Len(t, f.notifier.notifications(), 2)
	delivered, err := f.reminders.ListOneTime(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, delivered[0].Sent)
}

type failingSnapshotRepo struct {
	repo.ReminderRepo
}

func (failingSnapshotRepo) Snapshot(ctx context.Context) (*domain.ReminderSnapshot, error) {
	return nil, errors.New("disk on fire")
}

func TestScheduler_SnapshotFailureIsReturned(t *testing.T) {
	s := NewReminderScheduler(failingSnapshotRepo{}, &mockNotifier{}, zap.NewNop())
	err := s.RunOnce(context.Background(), time.Now())
	assert.ErrorContains(t, err, "disk on fire")
}

func TestScheduler_PanicInCycleIsRecovered(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	_, err := f.reminders.SaveDaily(ctx, "u1", "drink water", "09:00")
	require.NoError(t, err)
	f.notifier.panic = true
	f.scheduler.now = func() time.Time { return at(1, 9, 0, 0) }

	assert.NotPanics(t, func() { f.scheduler.cycle(ctx) })
}

func TestScheduler_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newSchedulerFixture(t,
		WithPollInterval(10*time.Millisecond),
		WithClock(func() time.Time { return at(1, 9, 0, 0) }),
	)
	ctx := context.Background()

	_, err := f.reminders.SaveDaily(ctx, "u1", "drink water", "09:00")
	require.NoError(t, err)

	require.NoError(t, f.scheduler.Start(ctx))
	assert.ErrorIs(t, f.scheduler.Start(ctx), ErrSchedulerRunning)
	assert.True(t, f.scheduler.Running())

	require.Eventually(t, func() bool {
		return len(f.notifier.notifications()) == 1
	}, time.Second, 5*time.Millisecond)

	// several more ticks at the same instant must not fire again
	time.Sleep(50 * time.Millisecond)
	f.scheduler.Stop()
	f.scheduler.Stop()

	assert.False(t, f.scheduler.Running())
	assert.Len(t, f.notifier.notifications(), 1)
}

func TestScheduler_StopsWhenParentContextEnds(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newSchedulerFixture(t, WithPollInterval(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, f.scheduler.Start(ctx))
	cancel()

	require.Eventually(t, func() bool { return !f.scheduler.Running() }, 2*time.Second, 10*time.Millisecond)
	f.scheduler.Stop()

	require.NoError(t, f.scheduler.Start(context.Background()), "restart needs no Stop after the parent ended")
	assert.True(t, f.scheduler.Running())
	f.scheduler.Stop()
	assert.False(t, f.scheduler.Running())
}

func TestScheduler_CycleRacesFrontEndWrites(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()
	now := at(1, 9, 0, 0)

	const due = 20
	for i := 0; i < due; i++ {
		_, err := f.reminders.SaveOneTime(ctx, "u1", fmt.Sprintf("due %d", i), now)
		require.NoError(t, err)
	}
	for i := 0; i < 10; i++ {
		_, err := f.reminders.SaveDaily(ctx, "u2", fmt.Sprintf("daily %d", i), "23:00")
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 3; i++ {
			if err := f.scheduler.RunOnce(ctx, now); err != nil {
				errs <- err
			}
		}
	}()

	for i := 0; i < due; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := f.reminders.SaveOneTime(ctx, "u1", fmt.Sprintf("later %d", i), now.Add(24*time.Hour)); err != nil {
				errs <- err
			}
		}(i)
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.reminders.RemoveDaily(ctx, "u2", 1); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Len(t, f.notifier.notifications(), due, "each due reminder is dispatched exactly once")

	oneTime, err := f.reminders.ListOneTime(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, oneTime, 2*due, "no concurrent save is lost")
	sent := 0
	for _, r := range oneTime {
		if r.Sent {
			sent++
			assert.True(t, r.At.Equal(now), "only due reminders are marked")
		}
	}
	assert.Equal(t, due, sent, "no mark is lost")

	daily, err := f.reminders.ListDaily(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, daily, 5)
}
