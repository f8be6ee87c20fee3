package data

import (
	"go.uber.org/zap"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/repo"
	"github.com/ldrbot/feishu-companion-bot/internal/infra/feishu"
	"github.com/ldrbot/feishu-companion-bot/internal/pkg/metrics"
)

// Repositories contains all repositories
type Repositories struct {
	Store    *DocumentStore
	Message  repo.MessageRepo
	Reminder repo.ReminderRepo
	User     repo.UserRepo
	Content  repo.ContentRepo
}

// NewRepositories creates all repositories over one document store
func NewRepositories(
	feishuClient *feishu.Client,
	dataPath string,
	m *metrics.Metrics,
	logger *zap.Logger,
) (*Repositories, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	store, err := NewDocumentStore(dataPath, logger.Named("store"), WithStoreMetrics(m))
	if err != nil {
		return nil, err
	}

	repos := &Repositories{
		Store:    store,
		Reminder: NewReminderRepo(store),
		User:     NewUserRepo(store),
		Content:  NewContentRepo(store),
	}
	// The CLI inspects the document without a Feishu connection
	if feishuClient != nil {
		repos.Message = NewFeishuRepo(feishuClient)
	}
	return repos, nil
}
