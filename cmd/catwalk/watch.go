package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fairweather/catwalk/pkg/catwalk/config"
	"github.com/fairweather/catwalk/pkg/catwalk/logging"
	"github.com/fairweather/catwalk/pkg/catwalk/session"
	"github.com/fairweather/catwalk/pkg/catwalk/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <path>",
	Short: "Keep a catalog current as files change",
	Long: `Run an initial delta scan, then observe the tree and fold changes in
with incremental delta scans. Bursts of filesystem activity collapse
into a single rescan after a quiet period.

Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Duration("debounce", watch.DefaultDebounce, "quiet period before rescanning")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	expanded, err := config.ExpandPath(args[0])
	if err != nil {
		return err
	}
	absPath, err := filepath.Abs(expanded)
	if err != nil {
		return err
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

	debounce, _ := cmd.Flags().GetDuration("debounce")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		printInfo("\nStopping watch...")
		cancel()
	}()

	controller := session.New(cfg, "")

	printInfo("Initial scan of %s...", absPath)
	summary, err := controller.Run(ctx, session.Request{
		Root:   absPath,
		Mode:   config.ModeDelta,
		Resume: true,
	})
	if err != nil {
		return fmt.Errorf("initial scan failed: %w", err)
	}
	printInfo("Catalog ready: %d committed, watching for changes", summary.Committed)
	if summary.Cancelled {
		return nil
	}

	w, err := watch.New(debounce)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(absPath); err != nil {
		return fmt.Errorf("watching %s: %w", absPath, err)
	}

	logger := logging.Get("watch")
	w.Run(ctx, func(dirs []string) {
		start := time.Now()
		s, err := controller.Run(ctx, session.Request{
			Root:   absPath,
			Mode:   config.ModeDelta,
			Resume: false,
		})
		if err != nil {
			logger.Error("rescan failed", "error", err)
			return
		}
		logger.Info("rescan after changes",
			"dirty_dirs", len(dirs),
			"new", s.New, "modified", s.Modified, "missing", s.Missing,
			"elapsed", time.Since(start).Round(time.Millisecond))
		if s.New+s.Modified+s.Missing > 0 {
			printInfo("[%s] %d new, %d modified, %d missing",
				time.Now().Format("15:04:05"), s.New, s.Modified, s.Missing)
		}
	})

	return nil
}
