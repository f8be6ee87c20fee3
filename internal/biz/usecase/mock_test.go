package usecase

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/domain"
)

// Mock implementations

type sentMessage struct {
	UserID string
	Kind   string // text, image, video
	Body   string // text or file path
}

type mockMessageRepo struct {
	mu       sync.Mutex
	sent     []sentMessage
	sendErr  error
	download func(msg *domain.Message, dest string) error
}

func (m *mockMessageRepo) record(userID, kind, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMessage{UserID: userID, Kind: kind, Body: body})
	return nil
}

func (m *mockMessageRepo) SendText(ctx context.Context, userID, text string) error {
	return m.record(userID, "text", text)
}

func (m *mockMessageRepo) SendImage(ctx context.Context, userID, path string) error {
	return m.record(userID, "image", path)
}

func (m *mockMessageRepo) SendVideo(ctx context.Context, userID, path string) error {
	return m.record(userID, "video", path)
}

func (m *mockMessageRepo) DownloadResource(ctx context.Context, msg *domain.Message, dest string) error {
	if m.download != nil {
		return m.download(msg, dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte("media"), 0644)
}

func (m *mockMessageRepo) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

type mockUserRepo struct {
	users map[string]*domain.User
}

func newMockUserRepo(users ...*domain.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		copied := *u
		m.users[u.ID] = &copied
	}
	return m
}

func (m *mockUserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	if u, ok := m.users[userID]; ok {
		copied := *u
		return &copied, nil
	}
	return &domain.User{ID: userID}, nil
}

func (m *mockUserRepo) SetRole(ctx context.Context, userID string, role domain.Role) error {
	for id, u := range m.users {
		if id != userID && u.Role == role {
			return domain.ErrRoleTaken
		}
	}
	u, ok := m.users[userID]
	if !ok {
		u = &domain.User{ID: userID}
		m.users[userID] = u
	}
	if u.Role != "" && u.Role != role {
		return domain.ErrRoleAlreadySet
	}
	u.Role = role
	return nil
}

func (m *mockUserRepo) SetName(ctx context.Context, userID, name string) error {
	u, ok := m.users[userID]
	if !ok {
		u = &domain.User{ID: userID}
		m.users[userID] = u
	}
	u.Name = name
	return nil
}

func (m *mockUserRepo) ResolvePartner(ctx context.Context, userID string) (*domain.User, error) {
	me, ok := m.users[userID]
	if !ok || !me.HasRole() {
		return nil, nil
	}
	for id, u := range m.users {
		if id != userID && u.Role == me.Role.Opposite() {
			return u, nil
		}
	}
	return nil, nil
}

type mockReminderRepo struct {
	daily   map[string][]*domain.DailyReminder
	oneTime map[string][]*domain.OneTimeReminder
	partner map[string][]*domain.PartnerReminder
	saveErr error
}

func newMockReminderRepo() *mockReminderRepo {
	return &mockReminderRepo{
		daily:   make(map[string][]*domain.DailyReminder),
		oneTime: make(map[string][]*domain.OneTimeReminder),
		partner: make(map[string][]*domain.PartnerReminder),
	}
}

func (m *mockReminderRepo) SaveDaily(ctx context.Context, userID, text, hhmm string) (*domain.DailyReminder, error) {
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	r := &domain.DailyReminder{ID: "d" + text, UserID: userID, Text: text, Time: hhmm, Active: true}
	m.daily[userID] = append(m.daily[userID], r)
	return r, nil
}

func (m *mockReminderRepo) ToggleDaily(ctx context.Context, userID string, index int) (*domain.DailyReminder, error) {
	list := m.daily[userID]
	if index < 1 || index > len(list) {
		return nil, domain.ErrReminderNotFound
	}
	list[index-1].Active = !list[index-1].Active
	return list[index-1], nil
}

func (m *mockReminderRepo) RemoveDaily(ctx context.Context, userID string, index int) error {
	list := m.daily[userID]
	if index < 1 || index > len(list) {
		return domain.ErrReminderNotFound
	}
	m.daily[userID] = append(list[:index-1], list[index:]...)
	return nil
}

func (m *mockReminderRepo) MarkDailyFired(ctx context.Context, userID, reminderID, day string) error {
	return nil
}

func (m *mockReminderRepo) SaveOneTime(ctx context.Context, userID, text string, at time.Time) (*domain.OneTimeReminder, error) {
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	r := &domain.OneTimeReminder{ID: "o" + text, UserID: userID, Text: text, At: at}
	m.oneTime[userID] = append(m.oneTime[userID], r)
	return r, nil
}

func (m *mockReminderRepo) MarkSent(ctx context.Context, userID, reminderID string) error {
	return nil
}

func (m *mockReminderRepo) SavePartner(ctx context.Context, senderID, partnerID, text string, at time.Time) (*domain.PartnerReminder, error) {
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	r := &domain.PartnerReminder{ID: "p" + text, UserID: partnerID, SenderID: senderID, Text: text, At: at}
	m.partner[partnerID] = append(m.partner[partnerID], r)
	return r, nil
}

func (m *mockReminderRepo) MarkPartnerSent(ctx context.Context, userID, reminderID string) error {
	return nil
}

func (m *mockReminderRepo) ListDaily(ctx context.Context, userID string) ([]*domain.DailyReminder, error) {
	return m.daily[userID], nil
}

func (m *mockReminderRepo) ListOneTime(ctx context.Context, userID string) ([]*domain.OneTimeReminder, error) {
	return m.oneTime[userID], nil
}

func (m *mockReminderRepo) ListPartner(ctx context.Context, userID string) ([]*domain.PartnerReminder, error) {
	return m.partner[userID], nil
}

func (m *mockReminderRepo) Snapshot(ctx context.Context) (*domain.ReminderSnapshot, error) {
	snap := &domain.ReminderSnapshot{}
	for _, l := range m.daily {
		snap.Daily = append(snap.Daily, l...)
	}
	for _, l := range m.oneTime {
		snap.OneTime = append(snap.OneTime, l...)
	}
	for _, l := range m.partner {
		snap.Partner = append(snap.Partner, l...)
	}
	return snap, nil
}

type mockContentRepo struct {
	items     map[string][]string
	canned    *domain.CannedContent
	cannedErr error
}

func newMockContentRepo() *mockContentRepo {
	return &mockContentRepo{items: make(map[string][]string)}
}

func (m *mockContentRepo) Add(ctx context.Context, role domain.Role, kind domain.MediaKind, path string) error {
	key := string(role) + "/" + string(kind)
	m.items[key] = append(m.items[key], path)
	return nil
}

func (m *mockContentRepo) List(ctx context.Context, role domain.Role, kind domain.MediaKind) ([]string, error) {
	return m.items[string(role)+"/"+string(kind)], nil
}

func (m *mockContentRepo) Canned(ctx context.Context) (*domain.CannedContent, error) {
	if m.cannedErr != nil {
		return nil, m.cannedErr
	}
	if m.canned == nil {
		return &domain.CannedContent{}, nil
	}
	return m.canned, nil
}
