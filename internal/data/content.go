package data

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/domain"
	"github.com/ldrbot/feishu-companion-bot/internal/biz/repo"
)

// Top-level keys of canned content kept in older documents
const (
	keyFlirtMessages = "flirt_messages"
	keyPepTalks      = "pep_talks"
	keyRestaurants   = "restaurant_suggestions"
	keyExchangeStats = "exchange_stats"
)

// contentRepo implements the content repository on the document store
type contentRepo struct {
	store *DocumentStore
}

// NewContentRepo creates a new content repository
func NewContentRepo(store *DocumentStore) repo.ContentRepo {
	return &contentRepo{store: store}
}

// Add appends path to the role's collection of kind
func (r *contentRepo) Add(ctx context.Context, role domain.Role, kind domain.MediaKind, path string) error {
	if !role.Valid() {
		return domain.ErrInvalidRole
	}
	err := r.store.Update(ctx, func(doc *Document) error {
		c := doc.Content[string(role)]
		if c == nil {
			c = make(RoleContent)
			doc.Content[string(role)] = c
		}
		return c.Append(string(kind), path)
	})
	if err != nil {
		return fmt.Errorf("failed to add content: %w", err)
	}
	return nil
}

// List returns a copy of the role's collection of kind.
// A role with nothing of its own gets the shared top-level collection.
func (r *contentRepo) List(ctx context.Context, role domain.Role, kind domain.MediaKind) ([]string, error) {
	var paths []string
	err := r.store.View(ctx, func(doc *Document) error {
		if c := doc.Content[string(role)]; c != nil {
			paths = c.Paths(string(kind))
		}
		if len(paths) == 0 {
			paths = decodeStrings(doc.extra[string(kind)])
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	return paths, nil
}

// Canned reads the flirts, pep talks, restaurants and stats dates kept in the document
func (r *contentRepo) Canned(ctx context.Context) (*domain.CannedContent, error) {
	canned := &domain.CannedContent{}
	err := r.store.View(ctx, func(doc *Document) error {
		canned.FlirtMessages = decodeStrings(doc.extra[keyFlirtMessages])
		canned.PepTalks = decodeStrings(doc.extra[keyPepTalks])

		if raw := doc.extra[keyRestaurants]; !isNull(raw) {
			var list []legacyRestaurant
			if err := json.Unmarshal(raw, &list); err != nil {
				return fmt.Errorf("%s: %w", keyRestaurants, err)
			}
			for _, l := range list {
				canned.Restaurants = append(canned.Restaurants, domain.Restaurant{
					Name:        l.Name,
					Type:        l.Type,
					Description: l.Description,
					Rating:      formatRating(l.Rating),
					Vibe:        l.Vibe,
				})
			}
		}

		if raw := doc.extra[keyExchangeStats]; !isNull(raw) {
			var stats legacyStats
			if err := json.Unmarshal(raw, &stats); err != nil {
				return fmt.Errorf("%s: %w", keyExchangeStats, err)
			}
			canned.Dates = &domain.RelationshipDates{
				RelationshipStart: stats.RelationshipStart,
				ExchangeEnd:       stats.EndDate,
				NextMeeting:       stats.NextMeeting,
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read canned content: %w", err)
	}
	return canned, nil
}

func formatRating(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
