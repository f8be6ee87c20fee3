package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/domain"
	"github.com/ldrbot/feishu-companion-bot/internal/biz/usecase"
)

// ContentConfig is the canned content loaded from YAML
type ContentConfig struct {
	FlirtMessages   []string                 `yaml:"flirt_messages"`
	PepTalks        []string                 `yaml:"pep_talks"`
	Restaurants     []domain.Restaurant      `yaml:"restaurant_suggestions"`
	Stats           domain.RelationshipDates `yaml:"stats"`
	PartnerTimezone string                   `yaml:"partner_timezone"`
	Fallbacks       FallbackMessages         `yaml:"fallbacks"`
}

// FallbackMessages are sent when a collection is empty
type FallbackMessages struct {
	Flirt      string `yaml:"flirt"`
	Motivation string `yaml:"motivation"`
	Restaurant string `yaml:"restaurant"`
	Stats      string `yaml:"stats"`
}

// LoadContentConfig loads canned content from YAML.
// An empty path searches the usual locations; no file found means defaults.
func LoadContentConfig(configPath string, logger *zap.Logger) (*ContentConfig, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/content.yaml",
			"/etc/feishu-companion-bot/content.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "content.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			data, loadedPath = b, p
			break
		}
	}

	if data == nil {
		if configPath != "" {
			return nil, fmt.Errorf("failed to read content config %s", configPath)
		}
		logger.Info("no content.yaml found, using defaults")
		return DefaultContentConfig(), nil
	}

	logger.Info("loading content", zap.String("path", loadedPath))

	var config ContentConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse content.yaml: %w", err)
	}
	config.fillDefaults()
	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *ContentConfig) fillDefaults() {
	defaults := DefaultContentConfig()

	if c.Fallbacks.Flirt == "" {
		c.Fallbacks.Flirt = defaults.Fallbacks.Flirt
	}
	if c.Fallbacks.Motivation == "" {
		c.Fallbacks.Motivation = defaults.Fallbacks.Motivation
	}
	if c.Fallbacks.Restaurant == "" {
		c.Fallbacks.Restaurant = defaults.Fallbacks.Restaurant
	}
	if c.Fallbacks.Stats == "" {
		c.Fallbacks.Stats = defaults.Fallbacks.Stats
	}
}

// ToContentSettings converts to the content usecase settings
func (c *ContentConfig) ToContentSettings() usecase.ContentSettings {
	return usecase.ContentSettings{
		FlirtMessages:      c.FlirtMessages,
		PepTalks:           c.PepTalks,
		Restaurants:        c.Restaurants,
		Dates:              c.Stats,
		PartnerTimezone:    c.PartnerTimezone,
		FlirtFallback:      c.Fallbacks.Flirt,
		MotivationFallback: c.Fallbacks.Motivation,
		RestaurantFallback: c.Fallbacks.Restaurant,
		StatsFallback:      c.Fallbacks.Stats,
	}
}

// DefaultContentConfig returns the built-in content: fallbacks only
func DefaultContentConfig() *ContentConfig {
	return &ContentConfig{
		Fallbacks: FallbackMessages{
			Flirt:      "sorry, i'm feeling a bit tongue-tied right now! 😅",
			Motivation: "eh bro, life tough but you tougher lah! keep going 💪",
			Restaurant: "🍜 no restaurants saved yet, but anywhere with you would be perfect! 💕",
			Stats:      "📊 stats: 100% in love, 200% missing you, ∞% worth it 💕",
		},
	}
}
