package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/metaloom/loom/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify loom configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/loom/config.yaml
Project-specific overrides can be placed in .loom.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

var configInitForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Create a user config file at ~/.config/loom/config.yaml populated
with the default settings, ready to edit.`,
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.GetUserConfigPath()
	if _, err := os.Stat(path); err == nil && !configInitForce {
		fmt.Printf("Config already exists at %s. Use --force to overwrite.\n", path)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	cfg := config.Default()
	starter := map[string]any{
		"store": map[string]any{
			"path":            cfg.Store.Path,
			"dedup_threshold": cfg.Store.DedupThreshold,
		},
		"mail": map[string]any{
			"preempt_ordering": cfg.Mail.PreemptOrdering,
		},
		"space": map[string]any{
			"dead_letter_limit": cfg.Space.DeadLetterLimit,
		},
		"log": map[string]any{
			"path": cfg.Log.Path,
		},
	}

	data, err := yaml.Marshal(starter)
	if err != nil {
		return fmt.Errorf("marshaling starter config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Printf("%s Created %s\n", color.GreenString("✓"), path)
	return nil
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("store.path: %s\n", cfg.Store.Path)
	fmt.Printf("store.dedup_threshold: %g\n", cfg.Store.DedupThreshold)
	fmt.Printf("mail.preempt_ordering: %t\n", cfg.Mail.PreemptOrdering)
	fmt.Printf("space.dead_letter_limit: %d\n", cfg.Space.DeadLetterLimit)
	logPath := cfg.Log.Path
	if logPath == "" {
		logPath = "(not set)"
	}
	fmt.Printf("log.path: %s\n", logPath)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "store.path":
		return cfg.Store.Path, nil
	case "store.dedup_threshold":
		return strconv.FormatFloat(cfg.Store.DedupThreshold, 'g', -1, 64), nil
	case "mail.preempt_ordering":
		return strconv.FormatBool(cfg.Mail.PreemptOrdering), nil
	case "space.dead_letter_limit":
		return strconv.Itoa(cfg.Space.DeadLetterLimit), nil
	case "log.path":
		if cfg.Log.Path == "" {
			return "(not set)", nil
		}
		return cfg.Log.Path, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "store.path":
		cfg.Store.Path = value
	case "store.dedup_threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for dedup_threshold: %w", err)
		}
		if f < 0 || f > 1 {
			return fmt.Errorf("dedup_threshold must be between 0 and 1, got %g", f)
		}
		cfg.Store.DedupThreshold = f
	case "mail.preempt_ordering":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for preempt_ordering: %w", err)
		}
		cfg.Mail.PreemptOrdering = b
	case "space.dead_letter_limit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for dead_letter_limit: %w", err)
		}
		if n < 0 {
			return fmt.Errorf("dead_letter_limit must be non-negative, got %d", n)
		}
		cfg.Space.DeadLetterLimit = n
	case "log.path":
		cfg.Log.Path = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
