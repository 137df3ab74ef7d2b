package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName              string        `mapstructure:"app_name"`
	Env                  string        `mapstructure:"app_env"`
	LogLevel             string        `mapstructure:"log_level"`
	TargetsFile          string        `mapstructure:"targets_file"`
	PublishersFile       string        `mapstructure:"publishers_file"`
	ProbeIntervalSeconds int64         `mapstructure:"probe_interval"`
	ProbeInterval        time.Duration `mapstructure:"-"`
	WatchTargets         bool          `mapstructure:"watch_targets"`

	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`
	UserAgent             string        `mapstructure:"user_agent"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	SQLitePath             string        `mapstructure:"sqlite_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "samvad-probe")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("targets_file", "./configs/targets.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("probe_interval", 60) // seconds
	v.SetDefault("watch_targets", true)
	v.SetDefault("request_timeout_seconds", 30)
	v.SetDefault("user_agent", "samvad-probe/1.0")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/state.db")
	v.SetDefault("sqlite_path", "./data/state.sqlite")
	v.SetDefault("storage_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) finalize() error {
	if cfg.ProbeIntervalSeconds <= 0 {
		return fmt.Errorf("invalid probe_interval (must be positive seconds)")
	}
	cfg.ProbeInterval = time.Duration(cfg.ProbeIntervalSeconds) * time.Second

	if cfg.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid request_timeout_seconds (must be positive seconds)")
	}
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	if cfg.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	cfg.StorageType = strings.ToLower(strings.TrimSpace(cfg.StorageType))
	switch cfg.StorageType {
	case "", "none", "bbolt", "sqlite":
	default:
		return fmt.Errorf("invalid storage_type %q (want none, bbolt or sqlite)", cfg.StorageType)
	}
	return nil
}

// StoragePath returns the database path for the configured storage type.
func (cfg *Config) StoragePath() string {
	if cfg.StorageType == "sqlite" {
		return cfg.SQLitePath
	}
	return cfg.BBoltPath
}
