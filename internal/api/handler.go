package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/usecase"
	"github.com/ldrbot/feishu-companion-bot/internal/pkg/timeutil"
)

// CycleRunner runs one scheduler cycle on demand
type CycleRunner interface {
	RunOnce(ctx context.Context, now time.Time) error
}

// Server provides the operations HTTP API
type Server struct {
	reminderUC *usecase.ReminderUsecase
	scheduler  CycleRunner
	gatherer   prometheus.Gatherer
	logger     *zap.Logger

	addr   string
	server *http.Server
}

// NewServer creates a new API server. A nil gatherer serves the default registry.
func NewServer(reminderUC *usecase.ReminderUsecase, scheduler CycleRunner, gatherer prometheus.Gatherer, addr string, logger *zap.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		reminderUC: reminderUC,
		scheduler:  scheduler,
		gatherer:   gatherer,
		logger:     logger.Named("api"),
		addr:       addr,
	}
}

// Handler returns the API routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /api/reminders/{user_id}", s.handleReminders)
	mux.HandleFunc("POST /api/scheduler/run", s.handleSchedulerRun)

	return mux
}

// Start serves until Stop is called
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("starting HTTP server", zap.String("addr", s.addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// ============ Reminder Handlers ============

type dailyView struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Time        string `json:"time"`
	Active      bool   `json:"active"`
	LastFiredOn string `json:"last_fired_on,omitempty"`
}

type oneTimeView struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Datetime   string `json:"datetime"`
	Sent       bool   `json:"sent"`
	SenderID   string `json:"sender_id,omitempty"`
	SenderName string `json:"sender_name,omitempty"`
}

type remindersResponse struct {
	UserID  string        `json:"user_id"`
	Daily   []dailyView   `json:"daily"`
	OneTime []oneTimeView `json:"one_time"`
	Partner []oneTimeView `json:"partner"`
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	list, err := s.reminderUC.List(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := remindersResponse{
		UserID:  userID,
		Daily:   []dailyView{},
		OneTime: []oneTimeView{},
		Partner: []oneTimeView{},
	}
	for _, d := range list.Daily {
		resp.Daily = append(resp.Daily, dailyView{
			ID: d.ID, Text: d.Text, Time: d.Time, Active: d.Active, LastFiredOn: d.LastFiredOn,
		})
	}
	for _, o := range list.OneTime {
		resp.OneTime = append(resp.OneTime, oneTimeView{
			ID: o.ID, Text: o.Text, Datetime: timeutil.FormatLocalDateTime(o.At), Sent: o.Sent,
		})
	}
	for _, p := range list.Partner {
		resp.Partner = append(resp.Partner, oneTimeView{
			ID: p.ID, Text: p.Text, Datetime: timeutil.FormatLocalDateTime(p.At), Sent: p.Sent,
			SenderID: p.SenderID, SenderName: p.SenderName,
		})
	}
	s.writeJSON(w, resp)
}

func (s *Server) handleSchedulerRun(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		http.Error(w, "scheduler not configured", http.StatusServiceUnavailable)
		return
	}

	now := time.Now()
	if err := s.scheduler.RunOnce(r.Context(), now); err != nil {
		s.logger.Error("manual cycle failed", zap.Error(err))
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{
		"success": true,
		"ran_at":  timeutil.FormatLocalDateTime(now),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
