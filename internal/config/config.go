package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Journal modes.
const (
	JournalOff    = "off"
	JournalRecord = "record"
	JournalReplay = "replay"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName        string        `mapstructure:"app_name"`
	Env            string        `mapstructure:"app_env"`
	LogLevel       string        `mapstructure:"log_level"`
	BaseURL        string        `mapstructure:"base_url"`
	TimeoutSeconds int64         `mapstructure:"timeout_seconds"`
	Timeout        time.Duration `mapstructure:"-"`
	VerboseLogging bool          `mapstructure:"verbose_logging"`
	UserAgent      string        `mapstructure:"user_agent"`
	TargetsFile    string        `mapstructure:"targets_file"`
	SinksFile      string        `mapstructure:"sinks_file"`

	JournalMode            string        `mapstructure:"journal_mode"`
	JournalPath            string        `mapstructure:"journal_path"`
	JournalTTLSeconds      int64         `mapstructure:"journal_ttl_seconds"`
	JournalCleanupSeconds  int64         `mapstructure:"journal_cleanup_interval_seconds"`
	JournalTTL             time.Duration `mapstructure:"-"`
	JournalCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "endpointkit")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("base_url", "")
	v.SetDefault("timeout_seconds", 30)
	v.SetDefault("verbose_logging", true)
	v.SetDefault("user_agent", "")
	v.SetDefault("targets_file", "./configs/targets.yaml")
	v.SetDefault("sinks_file", "")
	v.SetDefault("journal_mode", JournalOff)
	v.SetDefault("journal_path", "./data/journal.db")
	v.SetDefault("journal_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("journal_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the raw values and fills the derived durations.
func (c *Config) Validate() error {
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("invalid timeout_seconds (must be positive seconds)")
	}
	c.Timeout = time.Duration(c.TimeoutSeconds) * time.Second

	c.JournalMode = strings.ToLower(strings.TrimSpace(c.JournalMode))
	switch c.JournalMode {
	case "":
		c.JournalMode = JournalOff
	case JournalOff, JournalRecord, JournalReplay:
	default:
		return fmt.Errorf("invalid journal_mode %q (want off, record or replay)", c.JournalMode)
	}
	if c.JournalMode != JournalOff && strings.TrimSpace(c.JournalPath) == "" {
		return fmt.Errorf("journal_path is required when journal_mode is %s", c.JournalMode)
	}

	if c.JournalTTLSeconds <= 0 {
		return fmt.Errorf("invalid journal_ttl_seconds (must be positive seconds)")
	}
	if c.JournalCleanupSeconds <= 0 {
		return fmt.Errorf("invalid journal_cleanup_interval_seconds (must be positive seconds)")
	}
	c.JournalTTL = time.Duration(c.JournalTTLSeconds) * time.Second
	c.JournalCleanupInterval = time.Duration(c.JournalCleanupSeconds) * time.Second
	return nil
}
