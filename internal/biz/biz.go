package biz

import (
	"github.com/ldrbot/feishu-companion-bot/internal/biz/repo"
	"github.com/ldrbot/feishu-companion-bot/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Reminder *usecase.ReminderUsecase
	User     *usecase.UserUsecase
	Content  *usecase.ContentUsecase
}

// NewUsecases builds the usecase layer over the repositories.
// messageRepo may be nil for tools that only read reminders.
func NewUsecases(
	reminderRepo repo.ReminderRepo,
	userRepo repo.UserRepo,
	contentRepo repo.ContentRepo,
	messageRepo repo.MessageRepo,
	settings usecase.ContentSettings,
	mediaDir string,
) *Usecases {
	return &Usecases{
		Reminder: usecase.NewReminderUsecase(reminderRepo, userRepo, messageRepo),
		User:     usecase.NewUserUsecase(userRepo),
		Content:  usecase.NewContentUsecase(contentRepo, messageRepo, settings, mediaDir),
	}
}
