// Package config handles configuration loading for loom. It supports
// XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/metaloom/loom/internal/space"
	"github.com/metaloom/loom/internal/taskstore"
)

// Config holds all configuration for loom.
type Config struct {
	Store StoreConfig `mapstructure:"store"`
	Mail  MailConfig  `mapstructure:"mail"`
	Space SpaceConfig `mapstructure:"space"`
	Log   LogConfig   `mapstructure:"log"`
}

// StoreConfig holds task store settings.
type StoreConfig struct {
	// Path is the SQLite database file location.
	Path string `mapstructure:"path"`
	// DedupThreshold is the duplicate-detection threshold (0-1).
	DedupThreshold float64 `mapstructure:"dedup_threshold"`
}

// MailConfig holds message delivery settings.
type MailConfig struct {
	// PreemptOrdering enables queue reordering for preempt-flagged
	// messages. Off by default: the flag is advisory metadata.
	PreemptOrdering bool `mapstructure:"preempt_ordering"`
}

// SpaceConfig holds router settings.
type SpaceConfig struct {
	// DeadLetterLimit is how many dropped messages the router retains.
	DeadLetterLimit int `mapstructure:"dead_letter_limit"`
}

// LogConfig holds debug logging settings.
type LogConfig struct {
	// Path is the debug log file; empty disables debug logging.
	Path string `mapstructure:"path"`
}

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Path:           taskstore.DefaultDBPath(),
			DedupThreshold: taskstore.DefaultDedupThreshold,
		},
		Mail:  MailConfig{PreemptOrdering: false},
		Space: SpaceConfig{DeadLetterLimit: space.DefaultDeadLetterLimit},
		Log:   LogConfig{Path: ""},
	}
}

// Load loads configuration with the following precedence, highest first:
// 1. Environment variables (LOOM_*)
// 2. Project config (.loom.yaml in the current directory or a parent)
// 3. User config (~/.config/loom/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("LOOM")
	v.AutomaticEnv()
	v.BindEnv("store.path", "LOOM_STORE_PATH")
	v.BindEnv("store.dedup_threshold", "LOOM_STORE_DEDUP_THRESHOLD")
	v.BindEnv("log.path", "LOOM_LOG_PATH")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	v.Set("store.path", cfg.Store.Path)
	v.Set("store.dedup_threshold", cfg.Store.DedupThreshold)
	v.Set("mail.preempt_ordering", cfg.Mail.PreemptOrdering)
	v.Set("space.dead_letter_limit", cfg.Space.DeadLetterLimit)
	v.Set("log.path", cfg.Log.Path)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the project config file path if one exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("store.path", taskstore.DefaultDBPath())
	v.SetDefault("store.dedup_threshold", taskstore.DefaultDedupThreshold)
	v.SetDefault("mail.preempt_ordering", false)
	v.SetDefault("space.dead_letter_limit", space.DefaultDeadLetterLimit)
	v.SetDefault("log.path", "")
}

// getUserConfigDir returns the XDG config directory for loom.
func getUserConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "loom")
}

// findProjectConfig walks up from the current directory looking for a
// .loom.yaml file.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".loom.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
