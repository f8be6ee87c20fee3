package usecase

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/domain"
	"github.com/ldrbot/feishu-companion-bot/internal/biz/repo"
	"github.com/ldrbot/feishu-companion-bot/internal/pkg/timeutil"
)

// ContentSettings is the canned content the usecase serves
type ContentSettings struct {
	FlirtMessages   []string
	PepTalks        []string
	Restaurants     []domain.Restaurant
	Dates           domain.RelationshipDates
	PartnerTimezone string

	FlirtFallback      string
	MotivationFallback string
	RestaurantFallback string
	StatsFallback      string
}

// ContentUsecase serves canned messages, stats and partner media
type ContentUsecase struct {
	contentRepo repo.ContentRepo
	messageRepo repo.MessageRepo
	settings    ContentSettings
	mediaDir    string

	now  func() time.Time
	pick func(n int) int
}

// NewContentUsecase creates a new content usecase
func NewContentUsecase(
	contentRepo repo.ContentRepo,
	messageRepo repo.MessageRepo,
	settings ContentSettings,
	mediaDir string,
) *ContentUsecase {
	return &ContentUsecase{
		contentRepo: contentRepo,
		messageRepo: messageRepo,
		settings:    settings,
		mediaDir:    mediaDir,
		now:         time.Now,
		pick:        rand.IntN,
	}
}

// current merges the canned content kept in the document over the configured
// settings; non-empty document values win.
func (uc *ContentUsecase) current(ctx context.Context) (ContentSettings, error) {
	settings := uc.settings
	canned, err := uc.contentRepo.Canned(ctx)
	if err != nil {
		return settings, err
	}
	if len(canned.FlirtMessages) > 0 {
		settings.FlirtMessages = canned.FlirtMessages
	}
	if len(canned.PepTalks) > 0 {
		settings.PepTalks = canned.PepTalks
	}
	if len(canned.Restaurants) > 0 {
		settings.Restaurants = canned.Restaurants
	}
	if canned.Dates != nil {
		settings.Dates = *canned.Dates
	}
	return settings, nil
}

// Flirt returns a random flirt line
func (uc *ContentUsecase) Flirt(ctx context.Context) (string, error) {
	settings, err := uc.current(ctx)
	if err != nil {
		return "", err
	}
	if len(settings.FlirtMessages) == 0 {
		return settings.FlirtFallback, nil
	}
	return "💕 " + settings.FlirtMessages[uc.pick(len(settings.FlirtMessages))], nil
}

// Motivation returns a random pep talk
func (uc *ContentUsecase) Motivation(ctx context.Context) (string, error) {
	settings, err := uc.current(ctx)
	if err != nil {
		return "", err
	}
	if len(settings.PepTalks) == 0 {
		return settings.MotivationFallback, nil
	}
	return "💪 " + settings.PepTalks[uc.pick(len(settings.PepTalks))], nil
}

// Restaurant returns a formatted random restaurant suggestion
func (uc *ContentUsecase) Restaurant(ctx context.Context) (string, error) {
	settings, err := uc.current(ctx)
	if err != nil {
		return "", err
	}
	if len(settings.Restaurants) == 0 {
		return settings.RestaurantFallback, nil
	}
	r := settings.Restaurants[uc.pick(len(settings.Restaurants))]

	var b strings.Builder
	fmt.Fprintf(&b, "🍽️ %s 🍽️\n\n", r.Name)
	fmt.Fprintf(&b, "📍 type: %s\n", r.Type)
	if r.Description != "" {
		fmt.Fprintf(&b, "📝 %s\n", r.Description)
	}
	fmt.Fprintf(&b, "⭐ rating: %s\n", r.Rating)
	if r.Vibe != "" {
		fmt.Fprintf(&b, "✨ vibe: %s\n", r.Vibe)
	}
	b.WriteString("\nbon appétit, babe! 😘🍴")
	return b.String(), nil
}

// Stats computes the relationship statistics for today
func (uc *ContentUsecase) Stats(ctx context.Context) (domain.Stats, error) {
	settings, err := uc.current(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	return computeStats(uc.now(), settings.Dates), nil
}

func computeStats(now time.Time, d domain.RelationshipDates) domain.Stats {
	today := now.Format(timeutil.DateLayout)
	return domain.Stats{
		ExchangeDaysLeft: timeutil.DaysFrom(now, d.ExchangeEnd),
		DaysTogether:     timeutil.DaysBetween(d.RelationshipStart, today),
		DaysUntilMeeting: timeutil.DaysFrom(now, d.NextMeeting),
		HasExchangeEnd:   validDate(d.ExchangeEnd),
		HasNextMeeting:   validDate(d.NextMeeting),
		HasRelationship:  validDate(d.RelationshipStart),
	}
}

// StatsText renders Stats, or the fallback when no dates are configured
func (uc *ContentUsecase) StatsText(ctx context.Context) (string, error) {
	s, err := uc.Stats(ctx)
	if err != nil {
		return "", err
	}
	if !s.HasExchangeEnd && !s.HasNextMeeting && !s.HasRelationship {
		return uc.settings.StatsFallback, nil
	}

	var b strings.Builder
	b.WriteString("📊 our statistics! 📊\n\n")

	if s.HasExchangeEnd {
		switch {
		case s.ExchangeDaysLeft > 0:
			fmt.Fprintf(&b, "🎓 exchange days left: %d days ⏰\n", s.ExchangeDaysLeft)
		case s.ExchangeDaysLeft == 0:
			b.WriteString("🎓 exchange ends: today! 🎉\n")
		default:
			fmt.Fprintf(&b, "🎓 exchange completed %d days ago ✅\n", -s.ExchangeDaysLeft)
		}
	}

	if s.HasRelationship && s.DaysTogether > 0 {
		fmt.Fprintf(&b, "💕 together for: %s 🥰\n", formatDuration(s.DaysTogether))
	}

	if s.HasNextMeeting {
		switch {
		case s.DaysUntilMeeting > 0:
			fmt.Fprintf(&b, "✈️ days until we meet: %d days 🤗\n", s.DaysUntilMeeting)
		case s.DaysUntilMeeting == 0:
			b.WriteString("✈️ omggg meeting day: today! 🥳\n")
		default:
			fmt.Fprintf(&b, "✈️ last met %d days ago 🥺\n", -s.DaysUntilMeeting)
		}
	}

	b.WriteString("\n💫 statistically, love level: 100/10!!! 💫")
	return b.String(), nil
}

// formatDuration splits days into years, months (30 days) and days
func formatDuration(days int) string {
	years := days / 365
	months := (days % 365) / 30
	rest := (days % 365) % 30

	switch {
	case years > 0:
		return fmt.Sprintf("%d year(s), %d month(s), %d days", years, months, rest)
	case months > 0:
		return fmt.Sprintf("%d month(s), %d days", months, rest)
	default:
		return fmt.Sprintf("%d days", days)
	}
}

func validDate(s string) bool {
	_, err := time.Parse(timeutil.DateLayout, strings.TrimSpace(s))
	return err == nil
}

// PartnerTime returns the current time in the partner's zone
func (uc *ContentUsecase) PartnerTime() timeutil.ZoneTime {
	return timeutil.TimeIn(uc.now(), uc.settings.PartnerTimezone)
}

// Submit stores the media of msg for the submitter's partner role.
// The file lands in <mediaDir>/<images|videos>/<partnerRole>/ and the
// relative path is recorded in the document.
func (uc *ContentUsecase) Submit(ctx context.Context, submitter *domain.User, msg *domain.Message) (domain.Role, error) {
	if !submitter.HasRole() {
		return "", domain.ErrNoRole
	}
	if !msg.HasMedia() {
		return "", domain.ErrNotMedia
	}

	partnerRole := submitter.Role.Opposite()
	kind := domain.MediaVideo
	prefix, ext := "bubble", ".mp4"
	if msg.MsgType == domain.MsgTypeImage {
		kind = domain.MediaImage
		prefix, ext = "submitted", ".jpg"
	}

	key := msg.ResourceKey
	if len(key) > 8 {
		key = key[len(key)-8:]
	}
	filename := fmt.Sprintf("%s_%d_%s%s", prefix, uc.now().Unix(), key, ext)
	relative := path.Join(kind.Dir(), string(partnerRole), filename)

	dest := filepath.Join(uc.mediaDir, filepath.FromSlash(relative))
	if err := uc.messageRepo.DownloadResource(ctx, msg, dest); err != nil {
		return "", fmt.Errorf("download media: %w", err)
	}
	if err := uc.contentRepo.Add(ctx, partnerRole, kind, relative); err != nil {
		_ = os.Remove(dest)
		return "", err
	}
	return partnerRole, nil
}

// SendRandom sends the viewer a random existing file of kind submitted for their role
func (uc *ContentUsecase) SendRandom(ctx context.Context, viewer *domain.User, kind domain.MediaKind) error {
	if !viewer.HasRole() {
		return domain.ErrNoRole
	}

	paths, err := uc.contentRepo.List(ctx, viewer.Role, kind)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return domain.ErrNoContent
	}

	var available []string
	for _, p := range paths {
		full := filepath.Join(uc.mediaDir, filepath.FromSlash(p))
		if _, err := os.Stat(full); err == nil {
			available = append(available, full)
		}
	}
	if len(available) == 0 {
		return domain.ErrMediaMissing
	}

	chosen := available[uc.pick(len(available))]
	if kind == domain.MediaVideo {
		return uc.messageRepo.SendVideo(ctx, viewer.ID, chosen)
	}
	return uc.messageRepo.SendImage(ctx, viewer.ID, chosen)
}
