package conf

import (
	"os"
	"strconv"
	"time"
)

// Config represents application configuration
type Config struct {
	// Feishu configuration
	Feishu FeishuConfig

	// Document store and media locations
	Data DataConfig

	// Reminder scheduler configuration
	Scheduler SchedulerConfig

	// Path of content.yaml; empty searches the default locations
	ContentPath string

	// Ops HTTP listen address; empty disables the API
	APIAddr string

	// Debug mode
	Debug bool
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
}

// DataConfig contains persistence configuration
type DataConfig struct {
	Path     string
	MediaDir string
}

// SchedulerConfig contains reminder polling configuration
type SchedulerConfig struct {
	PollInterval time.Duration
	SendTimeout  time.Duration
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	dataPath := os.Getenv("BOT_DATA_PATH")
	if dataPath == "" {
		dataPath = "bot_data.json"
	}

	mediaDir := os.Getenv("MEDIA_DIR")
	if mediaDir == "" {
		mediaDir = "."
	}

	return &Config{
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
		},
		Data: DataConfig{
			Path:     dataPath,
			MediaDir: mediaDir,
		},
		Scheduler: SchedulerConfig{
			PollInterval: secondsFromEnv("REMINDER_POLL_SECONDS", 60),
			SendTimeout:  secondsFromEnv("REMINDER_SEND_TIMEOUT_SECONDS", 10),
		},
		ContentPath: os.Getenv("CONTENT_CONFIG_PATH"),
		APIAddr:     os.Getenv("API_ADDR"),
		Debug:       os.Getenv("DEBUG") == "true",
	}
}

// secondsFromEnv reads a positive integer number of seconds, or returns def
func secondsFromEnv(key string, def int) time.Duration {
	seconds := def
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			seconds = parsed
		}
	}
	return time.Duration(seconds) * time.Second
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
		return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
	}
	if c.Data.Path == "" {
		return &ConfigError{Field: "BOT_DATA_PATH", Message: "required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
