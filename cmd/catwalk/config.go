package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fairweather/catwalk/pkg/catwalk/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage catwalk configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/catwalk/config.yaml (if set)
  2. ~/.config/catwalk/config.yaml

Environment variables can override config file settings using the
CATWALK_ prefix:
  CATWALK_PROFILE=network
  CATWALK_QUEUE_CAPACITY=5000
  CATWALK_WRITER_BATCH_SIZE=500`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		fmt.Printf("Config file: %s\n\n", configFile)
	} else {
		fmt.Println("Config file: (using defaults, no file found)")
		fmt.Println()
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("default_path:         %s\n", cfg.DefaultPath)
	fmt.Printf("profile:              %s\n", cfg.Profile)
	fmt.Printf("workers:              %d\n", cfg.Workers)
	fmt.Printf("queue_capacity:       %d\n", cfg.QueueCapacity)
	fmt.Printf("filters.hidden:       %t\n", cfg.Filters.Hidden)
	fmt.Printf("filters.symlinks:     %s\n", cfg.Filters.Symlinks)
	fmt.Printf("filters.long_paths:   %s\n", cfg.Filters.LongPaths)
	fmt.Printf("filters.ignore_globs: %v\n", cfg.Filters.IgnoreGlobs)
	fmt.Printf("retry.attempts:       %d\n", cfg.Retry.Attempts)
	fmt.Printf("retry.backoff_millis: %d\n", cfg.Retry.BackoffMillis)
	fmt.Printf("writer.batch_size:    %d\n", cfg.Writer.BatchSize)
	fmt.Printf("checkpoint.records:   %d\n", cfg.Checkpoint.Records)
	fmt.Printf("checkpoint.seconds:   %d\n", cfg.Checkpoint.Seconds)
	fmt.Printf("logging.level:        %s\n", cfg.Logging.Level)

	fmt.Println("\nData directories:")
	fmt.Println("-----------------")
	fmt.Printf("shards:  %s\n", config.ShardDir())
	fmt.Printf("logs:    %s\n", config.StateDir())

	return nil
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	if err := config.WriteDefault(); err != nil {
		return err
	}

	configDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	configPath := filepath.Join(configDir, "config.yaml")

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	editCmd := exec.Command(editor, configPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	configPath := filepath.Join(configDir, "config.yaml")

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		return nil
	}

	if err := config.WriteDefault(); err != nil {
		return err
	}

	printInfo("Created config file: %s", configPath)
	return nil
}

// runConfigPath prints the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	fmt.Println(filepath.Join(configDir, "config.yaml"))
	return nil
}
