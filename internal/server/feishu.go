package server

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/domain"
	"github.com/ldrbot/feishu-companion-bot/internal/infra/feishu"
	"github.com/ldrbot/feishu-companion-bot/internal/service"
)

const (
	dedupeWindow   = 5 * time.Minute
	handlerTimeout = 2 * time.Minute
)

// MessageHandler consumes converted inbound messages
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *domain.Message) error
}

// FeishuServer wires the Feishu event stream to the conversation service
// and owns the reminder scheduler lifecycle
type FeishuServer struct {
	feishuClient *feishu.Client
	handler      MessageHandler
	scheduler    *service.ReminderScheduler
	logger       *zap.Logger

	// Message deduplication cache
	seenMsgsMu sync.Mutex
	seenMsgs   map[string]time.Time // msgID -> timestamp
	now        func() time.Time
}

// NewFeishuServer creates a new Feishu server
func NewFeishuServer(
	feishuClient *feishu.Client,
	handler MessageHandler,
	scheduler *service.ReminderScheduler,
	logger *zap.Logger,
) *FeishuServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeishuServer{
		feishuClient: feishuClient,
		handler:      handler,
		scheduler:    scheduler,
		logger:       logger.Named("server"),
		seenMsgs:     make(map[string]time.Time),
		now:          time.Now,
	}
}

// Start starts the scheduler and the Feishu connection, then blocks until
// ctx is done or the connection fails. The scheduler is stopped on return.
func (s *FeishuServer) Start(ctx context.Context) error {
	if s.scheduler != nil {
		if err := s.scheduler.Start(ctx); err != nil {
			return err
		}
		defer s.scheduler.Stop()
	}

	s.feishuClient.OnMessage(func(msg *feishu.Message) {
		s.dispatch(ctx, msg)
	})

	// The websocket client may keep its goroutine after ctx ends
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.feishuClient.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

// dispatch filters, dedupes and converts one event, then hands it to the handler
func (s *FeishuServer) dispatch(ctx context.Context, msg *feishu.Message) {
	if msg == nil || msg.SenderID == "" {
		return
	}
	if msg.ChatType != "" && msg.ChatType != "p2p" {
		s.logger.Debug("ignoring non-private message", zap.String("chat_type", msg.ChatType))
		return
	}

	if !s.markMessageSeen(msg.MsgID) {
		s.logger.Debug("duplicate message ignored", zap.String("msg_id", msg.MsgID))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	if err := s.handler.HandleMessage(ctx, toDomainMessage(msg)); err != nil {
		s.logger.Error("handle message failed",
			zap.String("msg_id", msg.MsgID),
			zap.String("sender", msg.SenderID),
			zap.Error(err),
		)
	}
}

func toDomainMessage(msg *feishu.Message) *domain.Message {
	m := &domain.Message{
		ID:          msg.MsgID,
		ChatID:      msg.ChatID,
		SenderID:    msg.SenderID,
		MsgType:     domain.MsgType(msg.MsgType),
		Content:     strings.TrimSpace(msg.Content),
		ResourceKey: msg.ResourceKey,
	}
	if msg.CreateTime > 0 {
		m.CreateTime = time.UnixMilli(msg.CreateTime)
	}
	return m
}

// markMessageSeen records msgID and reports whether it was new.
// Entries older than dedupeWindow are dropped on the way.
func (s *FeishuServer) markMessageSeen(msgID string) bool {
	if msgID == "" {
		return true
	}

	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()

	now := s.now()
	cutoff := now.Add(-dedupeWindow)
	for id, ts := range s.seenMsgs {
		if ts.Before(cutoff) {
			delete(s.seenMsgs, id)
		}
	}

	if _, exists := s.seenMsgs[msgID]; exists {
		return false
	}
	s.seenMsgs[msgID] = now
	return true
}
