package domain

import "errors"

var (
	ErrNoContent    = errors.New("no content submitted yet")
	ErrMediaMissing = errors.New("submitted media files are missing")
	ErrNotMedia     = errors.New("message carries no media")
)

// MediaKind selects a content collection for a role
type MediaKind string

const (
	MediaImage MediaKind = "image_paths"
	MediaVideo MediaKind = "video_messages"
)

// Dir returns the media sub-directory for the kind
func (k MediaKind) Dir() string {
	if k == MediaVideo {
		return "videos"
	}
	return "images"
}

// Restaurant is a canned dinner suggestion
type Restaurant struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
	Rating      string `yaml:"rating"`
	Vibe        string `yaml:"vibe"`
}

// RelationshipDates holds the dates the stats view is computed from (YYYY-MM-DD)
type RelationshipDates struct {
	RelationshipStart string `yaml:"relationship_start"`
	ExchangeEnd       string `yaml:"end_date"`
	NextMeeting       string `yaml:"next_meeting"`
}

// Stats is the computed relationship statistics
type Stats struct {
	ExchangeDaysLeft int
	DaysTogether     int
	DaysUntilMeeting int
	HasExchangeEnd   bool
	HasNextMeeting   bool
	HasRelationship  bool
}

// CannedContent is canned content kept in the document itself.
// Empty lists and nil Dates mean the document holds none.
type CannedContent struct {
	FlirtMessages []string
	PepTalks      []string
	Restaurants   []Restaurant
	Dates         *RelationshipDates
}
