package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ldrbot/feishu-companion-bot/internal/api"
	"github.com/ldrbot/feishu-companion-bot/internal/biz"
	"github.com/ldrbot/feishu-companion-bot/internal/conf"
	"github.com/ldrbot/feishu-companion-bot/internal/data"
	"github.com/ldrbot/feishu-companion-bot/internal/infra/feishu"
	"github.com/ldrbot/feishu-companion-bot/internal/pkg/metrics"
	"github.com/ldrbot/feishu-companion-bot/internal/server"
	"github.com/ldrbot/feishu-companion-bot/internal/service"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot: Feishu events, reminder scheduler and ops API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	content, err := conf.LoadContentConfig(cfg.ContentPath, logger)
	if err != nil {
		return err
	}

	m := metrics.Default()
	feishuClient := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, logger)

	repos, err := data.NewRepositories(feishuClient, cfg.Data.Path, m, logger)
	if err != nil {
		return err
	}
	logger.Info("document store ready", zap.String("path", repos.Store.Path()))

	ucs := biz.NewUsecases(repos.Reminder, repos.User, repos.Content, repos.Message, content.ToContentSettings(), cfg.Data.MediaDir)

	convSvc := service.NewConversationService(ucs.Reminder, ucs.User, ucs.Content, repos.Message, logger)
	scheduler := service.NewReminderScheduler(repos.Reminder, repos.Message, logger,
		service.WithPollInterval(cfg.Scheduler.PollInterval),
		service.WithSendTimeout(cfg.Scheduler.SendTimeout),
		service.WithSchedulerMetrics(m),
	)
	srv := server.NewFeishuServer(feishuClient, convSvc, scheduler, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})

	if cfg.APIAddr != "" {
		apiServer := api.NewServer(ucs.Reminder, scheduler, prometheus.DefaultGatherer, cfg.APIAddr, logger)
		g.Go(apiServer.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return apiServer.Stop(shutdownCtx)
		})
	}

	logger.Info("companion bot started",
		zap.Duration("poll_interval", cfg.Scheduler.PollInterval),
		zap.String("media_dir", cfg.Data.MediaDir),
		zap.String("api_addr", cfg.APIAddr),
	)
	err = g.Wait()
	logger.Info("companion bot stopped")
	return err
}
