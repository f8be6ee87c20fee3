package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/domain"
	"github.com/ldrbot/feishu-companion-bot/internal/biz/repo"
	"github.com/ldrbot/feishu-companion-bot/internal/biz/usecase"
)

// DialogState is where a user is in the conversation
type DialogState int

const (
	StateIdle DialogState = iota
	StateMenu
	StateReminderText
	StateReminderKind
	StateReminderTime
	StateDailyTime
	StateRoleChoice
	StateNameInput
	StateConfirm
	StatePhotoUpload
	StateVideoUpload
)

var stateNames = map[DialogState]string{
	StateIdle:         "idle",
	StateMenu:         "menu",
	StateReminderText: "reminder_text",
	StateReminderKind: "reminder_kind",
	StateReminderTime: "reminder_time",
	StateDailyTime:    "daily_time",
	StateRoleChoice:   "role_choice",
	StateNameInput:    "name_input",
	StateConfirm:      "confirm",
	StatePhotoUpload:  "photo_upload",
	StateVideoUpload:  "video_upload",
}

func (s DialogState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// dialog is the per-user conversation state.
// mu serializes the events of one user; different users proceed in parallel.
type dialog struct {
	mu sync.Mutex

	state        DialogState
	reminderText string
	forPartner   bool
	role         domain.Role
	name         string

	// retired is set once the dialog left the map; holders must look it up again
	retired bool
}

func (d *dialog) reset(state DialogState) {
	d.state = state
	d.reminderText = ""
	d.forPartner = false
	d.role = ""
	d.name = ""
}

// ConversationService drives the text dialogs of every user
type ConversationService struct {
	reminderUC  *usecase.ReminderUsecase
	userUC      *usecase.UserUsecase
	contentUC   *usecase.ContentUsecase
	messageRepo repo.MessageRepo
	logger      *zap.Logger

	dialogs   map[string]*dialog
	dialogsMu sync.Mutex
}

// NewConversationService creates a new conversation service
func NewConversationService(
	reminderUC *usecase.ReminderUsecase,
	userUC *usecase.UserUsecase,
	contentUC *usecase.ContentUsecase,
	messageRepo repo.MessageRepo,
	logger *zap.Logger,
) *ConversationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationService{
		reminderUC:  reminderUC,
		userUC:      userUC,
		contentUC:   contentUC,
		messageRepo: messageRepo,
		logger:      logger.Named("conversation"),
		dialogs:     make(map[string]*dialog),
	}
}

// State returns the current dialog state of a user
func (s *ConversationService) State(userID string) DialogState {
	s.dialogsMu.Lock()
	d, ok := s.dialogs[userID]
	s.dialogsMu.Unlock()
	if !ok {
		return StateIdle
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (s *ConversationService) getDialog(userID string) *dialog {
	s.dialogsMu.Lock()
	defer s.dialogsMu.Unlock()

	d, ok := s.dialogs[userID]
	if !ok {
		d = &dialog{}
		s.dialogs[userID] = d
	}
	return d
}

// lockDialog returns the user's live dialog with its mutex held
func (s *ConversationService) lockDialog(userID string) *dialog {
	for {
		d := s.getDialog(userID)
		d.mu.Lock()
		if !d.retired {
			return d
		}
		d.mu.Unlock()
	}
}

// unlockDialog releases d; an idle dialog carries nothing and is dropped
func (s *ConversationService) unlockDialog(userID string, d *dialog) {
	if d.state == StateIdle {
		s.dialogsMu.Lock()
		if s.dialogs[userID] == d {
			delete(s.dialogs, userID)
		}
		s.dialogsMu.Unlock()
		d.retired = true
	}
	d.mu.Unlock()
}

// HandleMessage advances the sender's dialog by one message and sends the reply
func (s *ConversationService) HandleMessage(ctx context.Context, msg *domain.Message) error {
	if msg == nil || msg.SenderID == "" {
		return nil
	}

	d := s.lockDialog(msg.SenderID)
	defer s.unlockDialog(msg.SenderID, d)

	before := d.state
	reply := s.route(ctx, d, msg)

	s.logger.Debug("handled message",
		zap.String("user_id", msg.SenderID),
		zap.String("msg_type", string(msg.MsgType)),
		zap.Stringer("from", before),
		zap.Stringer("to", d.state),
	)

	if reply == "" {
		return nil
	}
	if err := s.messageRepo.SendText(ctx, msg.SenderID, reply); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

func (s *ConversationService) route(ctx context.Context, d *dialog, msg *domain.Message) string {
	if msg.IsCommand() {
		return s.handleCommand(ctx, d, msg)
	}

	switch d.state {
	case StatePhotoUpload, StateVideoUpload:
		return s.handleUpload(ctx, d, msg)
	}

	if msg.MsgType != domain.MsgTypeText {
		if d.state == StateIdle {
			return ""
		}
		return replyMediaHint
	}

	text := strings.TrimSpace(msg.Content)
	switch d.state {
	case StateMenu:
		return s.handleMenu(ctx, d, msg.SenderID, text)
	case StateReminderText:
		return s.handleReminderText(d, text)
	case StateReminderKind:
		return s.handleReminderKind(ctx, d, msg.SenderID, text)
	case StateReminderTime:
		return s.handleReminderTime(ctx, d, msg.SenderID, text)
	case StateDailyTime:
		return s.handleDailyTime(ctx, d, msg.SenderID, text)
	case StateRoleChoice:
		return s.handleRoleChoice(d, text)
	case StateNameInput:
		return s.handleNameInput(d, text)
	case StateConfirm:
		return s.handleConfirm(ctx, d, msg.SenderID, text)
	}
	return echoReply(text)
}

func (s *ConversationService) handleCommand(ctx context.Context, d *dialog, msg *domain.Message) string {
	cmd := strings.ToLower(strings.Fields(msg.Content)[0])
	switch cmd {
	case "/start", "/menu":
		d.reset(StateMenu)
		return s.menu(ctx, msg.SenderID)
	case "/cancel":
		wasIdle := d.state == StateIdle
		d.reset(StateMenu)
		if wasIdle {
			return s.menu(ctx, msg.SenderID)
		}
		return replyCancelled + "\n\n" + s.menu(ctx, msg.SenderID)
	case "/stop", "/exit":
		d.reset(StateIdle)
		return replyGoodbye
	}
	return echoReply(msg.Content)
}

func (s *ConversationService) menu(ctx context.Context, userID string) string {
	u, err := s.userUC.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to load user", zap.String("user_id", userID), zap.Error(err))
		u = &domain.User{ID: userID}
	}
	return menuText(u)
}

func (s *ConversationService) handleMenu(ctx context.Context, d *dialog, userID, text string) string {
	lower := strings.ToLower(text)

	if verb, n, ok := parseIndexCommand(lower); ok {
		return s.manageDaily(ctx, userID, verb, n)
	}

	var canned func(context.Context) (string, error)
	switch lower {
	case "rizz", "flirt":
		canned = s.contentUC.Flirt
	case "motivation", "motivate":
		canned = s.contentUC.Motivation
	case "stats":
		canned = s.contentUC.StatsText
	case "eat", "food", "restaurant":
		canned = s.contentUC.Restaurant
	}
	if canned != nil {
		reply, err := canned(ctx)
		if err != nil {
			return s.storeFailure(userID, "load canned content", err)
		}
		return reply
	}

	switch lower {
	case "time", "clock":
		zt := s.contentUC.PartnerTime()
		if zt.Clock == "N/A" {
			return "🕐 i don't know your partner's time zone yet 😅"
		}
		return fmt.Sprintf("🕐 it's %s for your partner right now 💕", zt.Combined)
	case "see you", "picture", "photo":
		return s.sendMedia(ctx, userID, domain.MediaImage)
	case "bubble", "video":
		return s.sendMedia(ctx, userID, domain.MediaVideo)
	case "remind", "reminder":
		d.reset(StateReminderText)
		return promptReminderText
	case "list", "reminders":
		list, err := s.reminderUC.List(ctx, userID)
		if err != nil {
			return s.storeFailure(userID, "list reminders", err)
		}
		return usecase.FormatList(list)
	case "role":
		return s.startOnboarding(ctx, d, userID)
	case "submit photo":
		return s.startUpload(ctx, d, userID, StatePhotoUpload)
	case "submit bubble", "submit video":
		return s.startUpload(ctx, d, userID, StateVideoUpload)
	}
	return echoReply(text)
}

// parseIndexCommand recognizes "toggle N" and "delete N"
func parseIndexCommand(text string) (verb string, n int, ok bool) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return "", 0, false
	}
	if fields[0] != "toggle" && fields[0] != "delete" {
		return "", 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(fields[1], "#"))
	if err != nil {
		return "", 0, false
	}
	return fields[0], n, true
}

func (s *ConversationService) manageDaily(ctx context.Context, userID, verb string, n int) string {
	if verb == "toggle" {
		r, err := s.reminderUC.ToggleDaily(ctx, userID, n)
		if errors.Is(err, domain.ErrReminderNotFound) {
			return fmt.Sprintf("❌ no daily reminder #%d. reply \"list\" to see them", n)
		}
		if err != nil {
			return s.storeFailure(userID, "toggle reminder", err)
		}
		status := "on"
		if !r.Active {
			status = "off"
		}
		return fmt.Sprintf("🔁 daily reminder #%d \"%s\" is now %s", n, r.Text, status)
	}

	err := s.reminderUC.DeleteDaily(ctx, userID, n)
	if errors.Is(err, domain.ErrReminderNotFound) {
		return fmt.Sprintf("❌ no daily reminder #%d. reply \"list\" to see them", n)
	}
	if err != nil {
		return s.storeFailure(userID, "delete reminder", err)
	}
	return fmt.Sprintf("🗑️ deleted daily reminder #%d", n)
}

func (s *ConversationService) sendMedia(ctx context.Context, userID string, kind domain.MediaKind) string {
	u, err := s.userUC.Get(ctx, userID)
	if err != nil {
		return s.storeFailure(userID, "load user", err)
	}

	err = s.contentUC.SendRandom(ctx, u, kind)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrNoRole):
		return replyNeedRole
	case errors.Is(err, domain.ErrNoContent):
		if kind == domain.MediaVideo {
			return "🫧 *pop* no video bubbles available right now! 😅\n\n(your partner hasn't submitted any video bubbles for you yet! 💕)"
		}
		return "sorry babe, no pics available right now 📸 but imagine me winking at you 😉\n\n(your partner hasn't submitted any photos for you yet!)"
	case errors.Is(err, domain.ErrMediaMissing):
		if kind == domain.MediaVideo {
			return "🫧 video bubble not found, but here's love anyway! 💕"
		}
		return "oops! seems like i'm camera shy today 📸😅 check back later!\n\n(some image files might be missing)"
	}

	s.logger.Error("failed to send media", zap.String("user_id", userID), zap.Error(err))
	if kind == domain.MediaVideo {
		return "🫧 *pop* here's a bubble full of love even though something went wrong! 💕"
	}
	return "oops! something went wrong with the camera 📸💔"
}

func (s *ConversationService) handleReminderText(d *dialog, text string) string {
	if text == "" {
		return promptReminderText
	}
	d.reminderText = text
	d.state = StateReminderKind
	return fmt.Sprintf(promptReminderKind, text)
}

func (s *ConversationService) handleReminderKind(ctx context.Context, d *dialog, userID, text string) string {
	switch strings.ToLower(text) {
	case "1", "me", "once":
		d.forPartner = false
		d.state = StateReminderTime
		return fmt.Sprintf(promptReminderTime, "you")
	case "2", "daily", "every day":
		d.state = StateDailyTime
		return promptDailyTime
	case "3", "partner":
		partner, err := s.userUC.Partner(ctx, userID)
		if err != nil {
			d.reset(StateMenu)
			return s.storeFailure(userID, "resolve partner", err)
		}
		if partner == nil {
			d.reset(StateMenu)
			return "💔 i can't find your partner yet! you both need to set your roles first 💕"
		}
		d.forPartner = true
		d.state = StateReminderTime
		return fmt.Sprintf(promptReminderTime, partner.DisplayName())
	}
	return fmt.Sprintf(promptReminderKind, d.reminderText)
}

func (s *ConversationService) handleReminderTime(ctx context.Context, d *dialog, userID, text string) string {
	when, err := s.reminderUC.ParseWhen(text)
	if errors.Is(err, domain.ErrTimeInPast) {
		return "⏪ that time has already passed! pick a time in the future ⏰"
	}
	if err != nil {
		who := "you"
		if d.forPartner {
			who = "them"
		}
		return "🤔 i didn't get that time.\n\n" + fmt.Sprintf(promptReminderTime, who)
	}

	reminderText, forPartner := d.reminderText, d.forPartner
	d.reset(StateMenu)

	if !forPartner {
		saved, err := s.reminderUC.CreateOneTime(ctx, userID, reminderText, when)
		if err != nil {
			return s.storeFailure(userID, "save reminder", err)
		}
		if saved == nil {
			return ""
		}
		return fmt.Sprintf("✅ reminder set for %s: \"%s\" ⏰", saved.At.Format("Jan 2 15:04"), reminderText)
	}

	saved, partner, err := s.reminderUC.CreatePartner(ctx, userID, reminderText, when)
	if errors.Is(err, domain.ErrNoPartner) {
		return "💔 i can't find your partner anymore! you both need to set your roles first 💕"
	}
	if err != nil {
		return s.storeFailure(userID, "save partner reminder", err)
	}
	if saved == nil {
		return fmt.Sprintf("💌 sent to %s right now! 💕", partner.DisplayName())
	}
	return fmt.Sprintf("✅ i'll remind %s on %s: \"%s\" 💌", partner.DisplayName(), saved.At.Format("Jan 2 15:04"), reminderText)
}

func (s *ConversationService) handleDailyTime(ctx context.Context, d *dialog, userID, text string) string {
	r, err := s.reminderUC.CreateDaily(ctx, userID, d.reminderText, text)
	if errors.Is(err, domain.ErrInvalidClock) {
		return "🤔 that doesn't look like HH:MM.\n\n" + promptDailyTime
	}
	d.reset(StateMenu)
	if err != nil {
		return s.storeFailure(userID, "save daily reminder", err)
	}
	return fmt.Sprintf("✅ daily reminder set for %s: \"%s\" 🔁", r.Time, r.Text)
}

func (s *ConversationService) startOnboarding(ctx context.Context, d *dialog, userID string) string {
	u, err := s.userUC.Get(ctx, userID)
	if err != nil {
		return s.storeFailure(userID, "load user", err)
	}
	if u.HasRole() {
		return fmt.Sprintf("👤 you're already the %s %s", u.Role, roleEmoji(u.Role))
	}
	d.reset(StateRoleChoice)
	return promptRole
}

func (s *ConversationService) handleRoleChoice(d *dialog, text string) string {
	var role domain.Role
	switch strings.ToLower(text) {
	case "1", "boyfriend", "bf":
		role = domain.RoleBoyfriend
	case "2", "girlfriend", "gf":
		role = domain.RoleGirlfriend
	default:
		return promptRole
	}
	d.role = role
	d.state = StateNameInput
	return fmt.Sprintf(promptName, role)
}

func (s *ConversationService) handleNameInput(d *dialog, text string) string {
	name, err := usecase.NormalizeName(text)
	if err != nil {
		return "🤔 names need 1 to 64 characters, try again! 💕"
	}
	d.name = name
	d.state = StateConfirm
	return fmt.Sprintf(promptConfirm, name, name, d.role)
}

func (s *ConversationService) handleConfirm(ctx context.Context, d *dialog, userID, text string) string {
	switch strings.ToLower(text) {
	case "yes", "y", "ok", "yep":
	case "no", "n", "nope":
		d.reset(StateMenu)
		return replyCancelled
	default:
		return fmt.Sprintf(promptConfirm, d.name, d.name, d.role)
	}

	role, name := d.role, d.name
	d.reset(StateMenu)

	_, err := s.userUC.Register(ctx, userID, role, name)
	switch {
	case err == nil:
		return fmt.Sprintf("✅ sup %s! %s\n\nokay la ur the %s la\n\n💕 you can now submit content for your partner and access role-specific features. yippee!", name, roleEmoji(role), role)
	case errors.Is(err, domain.ErrRoleTaken):
		return fmt.Sprintf("❌ cannot sia, someone else is already the %s", role)
	case errors.Is(err, domain.ErrRoleAlreadySet):
		return "❌ cannot sia, your role is already set"
	}
	return s.storeFailure(userID, "register user", err)
}

func (s *ConversationService) startUpload(ctx context.Context, d *dialog, userID string, state DialogState) string {
	u, err := s.userUC.Get(ctx, userID)
	if err != nil {
		return s.storeFailure(userID, "load user", err)
	}
	if !u.HasRole() {
		return replyNeedRole
	}
	d.reset(state)
	if state == StateVideoUpload {
		return fmt.Sprintf(promptVideo, u.Role.Opposite())
	}
	return fmt.Sprintf(promptPhoto, u.Role.Opposite())
}

func (s *ConversationService) handleUpload(ctx context.Context, d *dialog, msg *domain.Message) string {
	wantPhoto := d.state == StatePhotoUpload
	isPhoto := msg.MsgType == domain.MsgTypeImage
	isVideo := msg.MsgType == domain.MsgTypeMedia || msg.MsgType == domain.MsgTypeFile

	if !msg.HasMedia() || (wantPhoto && !isPhoto) || (!wantPhoto && !isVideo) {
		if wantPhoto {
			return "⚠️ please send a photo! 📸 (or /cancel)"
		}
		return "⚠️ please send a video file! 📹 (or /cancel)"
	}

	u, err := s.userUC.Get(ctx, msg.SenderID)
	if err != nil {
		return s.storeFailure(msg.SenderID, "load user", err)
	}
	d.reset(StateMenu)

	partnerRole, err := s.contentUC.Submit(ctx, u, msg)
	if errors.Is(err, domain.ErrNoRole) {
		return "⚠️ error: role not found. please set your role first! 💕"
	}
	if err != nil {
		s.logger.Error("failed to store submission", zap.String("user_id", msg.SenderID), zap.Error(err))
		if wantPhoto {
			return "❌ failed to save photo. please try again! 😅"
		}
		return "❌ failed to save video bubble. please try again! 😅"
	}

	if wantPhoto {
		return fmt.Sprintf("✅ photo submitted successfully! 📸\n\nyour %s will now see this photo when they ask to see you! 💕", partnerRole)
	}
	return fmt.Sprintf("✅ video bubble submitted successfully! 🫧\n\nyour %s will now see this video when they want a bubble! 💕", partnerRole)
}

func (s *ConversationService) storeFailure(userID, action string, err error) string {
	s.logger.Error("failed to "+action, zap.String("user_id", userID), zap.Error(err))
	return replyStoreFailure
}
