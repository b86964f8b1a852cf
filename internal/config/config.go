// Package config loads settings from defaults, an optional goaltrack.yml in
// the config directory, a .env file and GOALTRACK_* environment variables,
// in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sadopc/goaltrack/internal/store"
)

const EnvPrefix = "GOALTRACK"

var validate = validator.New()

type Config struct {
	DBPath     string `validate:"required"`
	OutboxPath string `validate:"required"`
	Log        LogConfig
	Auth       AuthConfig
	Outbox     OutboxConfig
	Tracker    TrackerConfig
	Notify     NotifyConfig
}

type LogConfig struct {
	Level    string
	Encoding string `validate:"oneof=console json"`
	File     string
}

type AuthConfig struct {
	// Secret signs session tokens. Empty means one is generated and kept in
	// the database.
	Secret string
	TTL    time.Duration `validate:"gt=0"`
}

type OutboxConfig struct {
	Interval   time.Duration `validate:"gte=1s"`
	MaxRetries int           `validate:"gt=0"`
}

type TrackerConfig struct {
	DefaultUnitLabel string `validate:"required,max=32"`
}

type NotifyConfig struct {
	Bell bool
}

// New returns a viper instance with defaults, env binding and the optional
// config file wired in.
func New() (*viper.Viper, error) {
	_ = godotenv.Load(".env")

	dir, err := store.DefaultDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config directory: %w", err)
	}

	v := viper.New()
	SetDefaults(v, dir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(filepath.Join(dir, "goaltrack.yml"))
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return v, nil
}

// SetDefaults registers every key with its default, rooted at dir.
func SetDefaults(v *viper.Viper, dir string) {
	v.SetDefault("db_path", filepath.Join(dir, "goaltrack.db"))
	v.SetDefault("outbox_path", filepath.Join(dir, "outbox.db"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.file", filepath.Join(dir, "goaltrack.log"))
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.ttl", 720*time.Hour)
	v.SetDefault("outbox.interval", 30*time.Second)
	v.SetDefault("outbox.max_retries", 5)
	v.SetDefault("tracker.default_unit_label", store.DefaultUnitLabel)
	v.SetDefault("notify.bell", true)
}

// Load reads a validated Config out of v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DBPath:     v.GetString("db_path"),
		OutboxPath: v.GetString("outbox_path"),
		Log: LogConfig{
			Level:    v.GetString("log.level"),
			Encoding: v.GetString("log.encoding"),
			File:     v.GetString("log.file"),
		},
		Auth: AuthConfig{
			Secret: v.GetString("auth.secret"),
			TTL:    v.GetDuration("auth.ttl"),
		},
		Outbox: OutboxConfig{
			Interval:   v.GetDuration("outbox.interval"),
			MaxRetries: v.GetInt("outbox.max_retries"),
		},
		Tracker: TrackerConfig{
			DefaultUnitLabel: v.GetString("tracker.default_unit_label"),
		},
		Notify: NotifyConfig{
			Bell: v.GetBool("notify.bell"),
		},
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
