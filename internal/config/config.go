package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultListen         = ":8080"
	defaultDBPath         = "ten99.db"
	defaultTimezone       = "UTC"
	defaultAnthropicModel = "claude-sonnet-4-20250514"
	defaultReminderCron   = "0 7 * * *"
	defaultBackupCron     = "0 3 * * *"
	defaultRetentionDays  = 30
	defaultSessionTTL     = 30 * 24
	defaultMileageRate    = 0.70
	defaultIncomeTaxRate  = 0.12
)

// PostmarkConfig holds outbound email credentials.
type PostmarkConfig struct {
	Token string `yaml:"token"`
	From  string `yaml:"from"`
}

// AnthropicConfig configures natural-language appointment parsing.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// S3Config points at the bucket used for job file attachments.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

type RemindersConfig struct {
	Cron    string `yaml:"cron"`
	Enabled bool   `yaml:"enabled"`
}

// BackupConfig schedules encrypted database snapshots to the S3 bucket.
// Backups stay off until a passphrase is set.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Cron          string `yaml:"cron"`
	Passphrase    string `yaml:"passphrase"`
	RetentionDays int    `yaml:"retention_days"`
}

// Config is the top-level application configuration.
type Config struct {
	Listen    string `yaml:"listen"`
	BaseURL   string `yaml:"base_url"`
	DBPath    string `yaml:"db_path"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Timezone is the IANA zone used for "today", invoice years and reminders.
	Timezone string `yaml:"timezone"`

	MileageRate   float64 `yaml:"mileage_rate"`
	IncomeTaxRate float64 `yaml:"income_tax_rate"`

	Postmark  PostmarkConfig  `yaml:"postmark"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	S3        S3Config        `yaml:"s3"`
	Reminders RemindersConfig `yaml:"reminders"`
	Backup    BackupConfig    `yaml:"backup"`

	SessionTTLHours int `yaml:"session_ttl_hours"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:        defaultListen,
		DBPath:        defaultDBPath,
		LogLevel:      "info",
		LogFormat:     "text",
		Timezone:      defaultTimezone,
		MileageRate:   defaultMileageRate,
		IncomeTaxRate: defaultIncomeTaxRate,
		Anthropic:     AnthropicConfig{Model: defaultAnthropicModel},
		S3:            S3Config{Region: "us-east-1"},
		Reminders:     RemindersConfig{Cron: defaultReminderCron, Enabled: true},
		Backup:        BackupConfig{Cron: defaultBackupCron, RetentionDays: defaultRetentionDays},

		SessionTTLHours: defaultSessionTTL,
	}
}

// Normalize fills in missing or zero values so partially filled files
// still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.DBPath == "" {
		c.DBPath = defaultDBPath
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		c.LogFormat = "text"
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.MileageRate <= 0 {
		c.MileageRate = defaultMileageRate
	}
	if c.IncomeTaxRate < 0 {
		c.IncomeTaxRate = defaultIncomeTaxRate
	}
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = defaultAnthropicModel
	}
	if c.S3.Region == "" {
		c.S3.Region = "us-east-1"
	}
	if c.Reminders.Cron == "" {
		c.Reminders.Cron = defaultReminderCron
	}
	if c.Backup.Cron == "" {
		c.Backup.Cron = defaultBackupCron
	}
	if c.Backup.RetentionDays <= 0 {
		c.Backup.RetentionDays = defaultRetentionDays
	}
	if c.SessionTTLHours <= 0 {
		c.SessionTTLHours = defaultSessionTTL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// Load reads the YAML file at path, applies TEN99_* environment overrides
// and normalizes the result. A missing file or empty path yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"TEN99_LISTEN":            &c.Listen,
		"TEN99_BASE_URL":          &c.BaseURL,
		"TEN99_DB_PATH":           &c.DBPath,
		"TEN99_LOG_LEVEL":         &c.LogLevel,
		"TEN99_LOG_FORMAT":        &c.LogFormat,
		"TEN99_TIMEZONE":          &c.Timezone,
		"TEN99_POSTMARK_TOKEN":    &c.Postmark.Token,
		"TEN99_POSTMARK_FROM":     &c.Postmark.From,
		"TEN99_ANTHROPIC_API_KEY": &c.Anthropic.APIKey,
		"TEN99_ANTHROPIC_MODEL":   &c.Anthropic.Model,
		"TEN99_S3_ENDPOINT":       &c.S3.Endpoint,
		"TEN99_S3_BUCKET":         &c.S3.Bucket,
		"TEN99_S3_REGION":         &c.S3.Region,
		"TEN99_S3_ACCESS_KEY":     &c.S3.AccessKey,
		"TEN99_S3_SECRET_KEY":     &c.S3.SecretKey,
		"TEN99_REMINDERS_CRON":    &c.Reminders.Cron,
		"TEN99_BACKUP_CRON":       &c.Backup.Cron,
		"TEN99_BACKUP_PASSPHRASE": &c.Backup.Passphrase,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	floats := map[string]*float64{
		"TEN99_MILEAGE_RATE":    &c.MileageRate,
		"TEN99_INCOME_TAX_RATE": &c.IncomeTaxRate,
	}
	for key, dst := range floats {
		if v, ok := lookup(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("parse %s: %w", key, err)
			}
			*dst = f
		}
	}

	bools := map[string]*bool{
		"TEN99_REMINDERS_ENABLED": &c.Reminders.Enabled,
		"TEN99_BACKUP_ENABLED":    &c.Backup.Enabled,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("parse %s: %w", key, err)
			}
			*dst = b
		}
	}

	ints := map[string]*int{
		"TEN99_SESSION_TTL_HOURS":     &c.SessionTTLHours,
		"TEN99_BACKUP_RETENTION_DAYS": &c.Backup.RetentionDays,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("parse %s: %w", key, err)
			}
			*dst = n
		}
	}
	return nil
}
