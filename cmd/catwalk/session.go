package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fairweather/catwalk/pkg/catwalk/config"
	"github.com/fairweather/catwalk/pkg/catwalk/shard"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect session checkpoints",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "Show the stored checkpoint for a root",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShow,
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear <path>",
	Short: "Discard the stored checkpoint for a root",
	Long: `Remove the checkpoint so the next scan starts from the top of the
tree. Catalog records are untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionClear,
}

func init() {
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionClearCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	root, err := resolveShardRoot(args[0])
	if err != nil {
		return err
	}

	store, err := shard.Open(shard.DirFor(config.ShardDir(), root))
	if err != nil {
		return err
	}
	defer store.Close()

	cp, err := store.GetCheckpoint()
	if errors.Is(err, shard.ErrNotFound) {
		printInfo("No checkpoint stored for %s", root)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Session:    %s\n", cp.SessionID)
	fmt.Printf("Root:       %s\n", cp.Root)
	fmt.Printf("Mode:       %s\n", cp.Mode)
	fmt.Printf("Completed:  %t\n", cp.Completed)
	fmt.Printf("Processed:  %d\n", cp.Processed)
	fmt.Printf("Skipped:    %d\n", cp.Skipped.Total())
	fmt.Printf("In flight:  %d\n", cp.PendingRetries)
	fmt.Printf("Updated:    %s\n", cp.UpdatedAt.Format("2006-01-02 15:04:05"))
	if !cp.Completed && cp.LastCompletedPath != "" {
		fmt.Printf("Resume at:  %s\n", cp.LastCompletedPath)
	}

	return nil
}

func runSessionClear(cmd *cobra.Command, args []string) error {
	root, err := resolveShardRoot(args[0])
	if err != nil {
		return err
	}

	store, err := shard.Open(shard.DirFor(config.ShardDir(), root))
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteCheckpoint(); err != nil {
		return err
	}

	printInfo("Checkpoint cleared for %s", root)
	return nil
}
