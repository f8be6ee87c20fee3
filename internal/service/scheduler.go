package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/domain"
	"github.com/ldrbot/feishu-companion-bot/internal/biz/repo"
	"github.com/ldrbot/feishu-companion-bot/internal/pkg/metrics"
	"github.com/ldrbot/feishu-companion-bot/internal/pkg/timeutil"
)

// ErrSchedulerRunning is returned by Start when the loop is already running
var ErrSchedulerRunning = errors.New("reminder scheduler already running")

const (
	defaultPollInterval = 60 * time.Second
	defaultSendTimeout  = 10 * time.Second
)

// ReminderScheduler polls the reminder repository and dispatches due reminders
type ReminderScheduler struct {
	reminderRepo repo.ReminderRepo
	notifier     repo.Notifier
	logger       *zap.Logger
	metrics      *metrics.Metrics

	interval    time.Duration
	sendTimeout time.Duration
	now         func() time.Time

	mu      sync.Mutex
	cycleMu sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// SchedulerOption configures a ReminderScheduler
type SchedulerOption func(*ReminderScheduler)

// WithPollInterval sets the time between cycles
func WithPollInterval(d time.Duration) SchedulerOption {
	return func(s *ReminderScheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSendTimeout bounds each notification
func WithSendTimeout(d time.Duration) SchedulerOption {
	return func(s *ReminderScheduler) {
		if d > 0 {
			s.sendTimeout = d
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *ReminderScheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSchedulerMetrics records dispatches and cycles on m
func WithSchedulerMetrics(m *metrics.Metrics) SchedulerOption {
	return func(s *ReminderScheduler) {
		s.metrics = m
	}
}

// NewReminderScheduler creates a stopped scheduler
func NewReminderScheduler(reminderRepo repo.ReminderRepo, notifier repo.Notifier, logger *zap.Logger, opts ...SchedulerOption) *ReminderScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ReminderScheduler{
		reminderRepo: reminderRepo,
		notifier:     notifier,
		logger:       logger.Named("scheduler"),
		interval:     defaultPollInterval,
		sendTimeout:  defaultSendTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs one cycle immediately, then one per interval until ctx is
// canceled or Stop is called.
func (s *ReminderScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrSchedulerRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(loopCtx, s.done)

	s.logger.Info("started", zap.Duration("interval", s.interval))
	return nil
}

// Stop cancels the loop and waits for it to exit. Stopping a stopped scheduler is a no-op.
func (s *ReminderScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("stopped")
}

// Running reports whether the loop is active
func (s *ReminderScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *ReminderScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.release(done)

	s.cycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

// release returns the scheduler to Stopped when the loop ends on its own,
// i.e. the parent context was canceled. A run already claimed by Stop is left alone.
func (s *ReminderScheduler) release(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != done {
		return
	}
	s.cancel()
	s.cancel, s.done = nil, nil
	s.logger.Info("stopped", zap.String("reason", "context canceled"))
}

// cycle runs one guarded pass; a panic is logged and the loop keeps going
func (s *ReminderScheduler) cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.IncCycleFailure()
			s.logger.Error("cycle panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	if err := s.RunOnce(ctx, s.now()); err != nil && ctx.Err() == nil {
		s.metrics.IncCycleFailure()
		s.logger.Error("cycle failed", zap.Error(err))
	}
}

// RunOnce dispatches every reminder due at now and marks the delivered ones.
// Delivery failures are logged and leave the reminder unmarked; only a
// snapshot failure is returned.
func (s *ReminderScheduler) RunOnce(ctx context.Context, now time.Time) error {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	start := time.Now()
	defer func() { s.metrics.ObserveCycle(time.Since(start)) }()

	snap, err := s.reminderRepo.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("read reminders: %w", err)
	}
	if snap.Empty() {
		return nil
	}

	today := now.Format(timeutil.DateLayout)
	markCtx := context.WithoutCancel(ctx)

	for _, r := range snap.Daily {
		if ctx.Err() != nil {
			return nil
		}
		if !r.IsDue(now) {
			continue
		}
		if s.dispatch(ctx, domain.KindDaily, r.UserID, r.ID, r.Notification()) {
			s.mark(domain.KindDaily, r.ID, s.reminderRepo.MarkDailyFired(markCtx, r.UserID, r.ID, today))
		}
	}

	for _, r := range snap.OneTime {
		if ctx.Err() != nil {
			return nil
		}
		if !r.IsDue(now) {
			continue
		}
		if s.dispatch(ctx, domain.KindOneTime, r.UserID, r.ID, r.Notification()) {
			s.mark(domain.KindOneTime, r.ID, s.reminderRepo.MarkSent(markCtx, r.UserID, r.ID))
		}
	}

	for _, r := range snap.Partner {
		if ctx.Err() != nil {
			return nil
		}
		if !r.IsDue(now) {
			continue
		}
		if s.dispatch(ctx, domain.KindPartner, r.UserID, r.ID, r.Notification()) {
			s.mark(domain.KindPartner, r.ID, s.reminderRepo.MarkPartnerSent(markCtx, r.UserID, r.ID))
		}
	}

	return nil
}

// dispatch sends one notification under its own timeout
func (s *ReminderScheduler) dispatch(ctx context.Context, kind domain.ReminderKind, userID, reminderID, text string) bool {
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	if err := s.notifier.SendText(sendCtx, userID, text); err != nil {
		s.metrics.ObserveDispatch(string(kind), "error")
		s.logger.Warn("delivery failed",
			zap.String("kind", string(kind)),
			zap.String("user_id", userID),
			zap.String("reminder_id", reminderID),
			zap.Error(err),
		)
		return false
	}

	s.metrics.ObserveDispatch(string(kind), "ok")
	s.logger.Info("reminder sent",
		zap.String("kind", string(kind)),
		zap.String("user_id", userID),
		zap.String("reminder_id", reminderID),
	)
	return true
}

func (s *ReminderScheduler) mark(kind domain.ReminderKind, reminderID string, err error) {
	if err != nil {
		s.logger.Error("failed to mark reminder",
			zap.String("kind", string(kind)),
			zap.String("reminder_id", reminderID),
			zap.Error(err),
		)
	}
}
