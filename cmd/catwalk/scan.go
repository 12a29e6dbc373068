package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fairweather/catwalk/pkg/catwalk/config"
	"github.com/fairweather/catwalk/pkg/catwalk/logging"
	"github.com/fairweather/catwalk/pkg/catwalk/output"
	"github.com/fairweather/catwalk/pkg/catwalk/session"
	"github.com/fairweather/catwalk/pkg/catwalk/shard"
	"github.com/fairweather/catwalk/pkg/catwalk/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Catalog a volume",
	Long: `Walk a volume, hash file content, and commit the catalog to the
volume's shard.

Delta mode (the default) reuses stored hashes for files whose size and
modification time are unchanged. Full mode rehashes everything, which
catches silent corruption and survives mtime games.

An interrupted scan leaves a checkpoint; the next scan of the same root
in the same mode picks up where it stopped. Use --no-resume to start
over.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().Bool("full", false, "rehash every file regardless of metadata")
	scanCmd.Flags().String("profile", "", "force volume profile (ssd, hdd, usb, network)")
	scanCmd.Flags().IntP("workers", "w", 0, "override worker count (0=profiled)")
	scanCmd.Flags().Bool("no-resume", false, "ignore any stored checkpoint")

	rootCmd.AddCommand(scanCmd)
}

// runScan is the scan command handler.
func runScan(cmd *cobra.Command, args []string) error {
	scanPath := viper.GetString("default_path")
	if len(args) > 0 {
		scanPath = args[0]
	}

	expandedPath, err := config.ExpandPath(scanPath)
	if err != nil {
		return fmt.Errorf("failed to expand path: %w", err)
	}
	absPath, err := filepath.Abs(expandedPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("path does not exist: %s", absPath)
		}
		return fmt.Errorf("cannot access path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", absPath)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	if err := config.EnsureDataDir(); err != nil {
		return err
	}

	formatter, err := output.Get(viper.GetString("output"))
	if err != nil {
		return fmt.Errorf("unknown output format %q: available formats are %v",
			viper.GetString("output"), output.Available())
	}

	mode := config.ModeDelta
	if full, _ := cmd.Flags().GetBool("full"); full {
		mode = config.ModeFull
	}
	profileName, _ := cmd.Flags().GetString("profile")
	workers, _ := cmd.Flags().GetInt("workers")
	noResume, _ := cmd.Flags().GetBool("no-resume")

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		printInfo("\nInterrupted, finishing current batch...")
		cancel()
	}()

	if !getQuiet() {
		printInfo("Cataloging %s (%s mode)...", absPath, mode)
	}

	controller := session.New(cfg, "")
	summary, err := controller.Run(ctx, session.Request{
		Root:    absPath,
		Mode:    mode,
		Profile: profileName,
		Workers: workers,
		Resume:  !noResume,
	})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	result := &output.Result{
		Summary:        *summary,
		CatalogRecords: -1,
		CatalogBytes:   -1,
	}
	if stats := collectShardStats(summary.Root); stats != nil {
		result.CatalogRecords = stats.Records
		result.CatalogBytes = stats.TotalSize
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, result); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Print(buf.String())

	return nil
}

// collectShardStats reads catalog totals after a session. Failures are
// not fatal; the summary still prints without them.
func collectShardStats(root string) *shard.Stats {
	store, err := shard.Open(shard.DirFor(config.ShardDir(), root))
	if err != nil {
		return nil
	}
	defer store.Close()

	stats, err := store.CollectStats()
	if err != nil {
		return nil
	}
	return stats
}

// initLogging wires the config file's logging section into the logging
// package, honoring --verbose.
func initLogging(cfg *config.Config) error {
	level := cfg.Logging.Level
	if getVerbose() {
		level = "debug"
	}

	if err := config.EnsureStateDir(); err != nil {
		return err
	}

	maxSize, err := types.ParseSize(cfg.Logging.Rotation.MaxSize)
	if err != nil {
		maxSize = 10 * types.MiB
	}

	logCfg := logging.Config{
		Level:      level,
		Path:       cfg.Logging.Path,
		Components: cfg.Logging.Components,
		Rotation: logging.RotationConfig{
			MaxSize:    maxSize,
			MaxAge:     cfg.Logging.Rotation.MaxAge,
			MaxBackups: cfg.Logging.Rotation.MaxBackups,
			Daily:      cfg.Logging.Rotation.Daily,
		},
	}
	if getVerbose() {
		logCfg.ConsoleLevel = "debug"
	}

	return logging.Init(logCfg)
}
