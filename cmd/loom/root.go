package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/metaloom/loom/internal/config"
	"github.com/metaloom/loom/internal/logging"
	"github.com/metaloom/loom/internal/taskstore"
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Agent coordination substrate",
	Long: `Loom is a coordination substrate for cooperating agents.

It routes messages between registered agents through a shared space,
tracks per-component status with a shared phase vocabulary, and keeps
a persistent task store with fuzzy duplicate suppression.

Core capabilities:
- Per-agent status registries with rendered phase icons
- Asynchronous message passing with drop-and-count routing
- Composable runners (sequence, parallel, branch, fallback)
- SQLite-backed tasks with parent/child structure and dedup`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(versionCmd)
}

// openStore opens the task store using the loaded configuration.
func openStore() (*taskstore.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	opts := []taskstore.Option{taskstore.WithDedupThreshold(cfg.Store.DedupThreshold)}
	if cfg.Log.Path != "" {
		if logger, err := logging.New(cfg.Log.Path); err == nil {
			opts = append(opts, taskstore.WithLogger(logger))
		}
	}

	store, err := taskstore.Open(cfg.Store.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening task store: %w", err)
	}
	return store, nil
}
