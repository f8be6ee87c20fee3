package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/usecase"
	"github.com/ldrbot/feishu-companion-bot/internal/data"
	"github.com/ldrbot/feishu-companion-bot/internal/infra/feishu"
	"github.com/ldrbot/feishu-companion-bot/internal/service"
)

var sendCmd = &cobra.Command{
	Use:   "send <open_id> <text>",
	Short: "Send a one-off text message to a user",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		client := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, logger)
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Scheduler.SendTimeout)
		defer cancel()

		if err := client.SendText(ctx, args[0], strings.Join(args[1:], " ")); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Message sent successfully!")
		return nil
	},
}

var remindersCmd = &cobra.Command{
	Use:   "reminders <open_id>",
	Short: "Print the reminders stored for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repos, err := data.NewRepositories(nil, cfg.Data.Path, nil, logger)
		if err != nil {
			return err
		}

		reminderUC := usecase.NewReminderUsecase(repos.Reminder, repos.User, nil)
		list, err := reminderUC.List(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), usecase.FormatList(list))
		return nil
	},
}

var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Dispatch every reminder due right now, then exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}

		client := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, logger)
		repos, err := data.NewRepositories(client, cfg.Data.Path, nil, logger)
		if err != nil {
			return err
		}

		scheduler := service.NewReminderScheduler(repos.Reminder, repos.Message, logger,
			service.WithSendTimeout(cfg.Scheduler.SendTimeout),
		)
		return scheduler.RunOnce(cmd.Context(), time.Now())
	},
}
