package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fairweather/catwalk/pkg/catwalk/config"
	"github.com/fairweather/catwalk/pkg/catwalk/shard"
	"github.com/fairweather/catwalk/pkg/catwalk/types"
)

var shardCmd = &cobra.Command{
	Use:   "shard",
	Short: "Inspect and maintain per-volume catalog shards",
	Long: `Each cataloged root has its own shard under the data directory,
keyed by a hash of the root path. These commands operate on a shard
without running a scan.`,
}

var shardStatsCmd = &cobra.Command{
	Use:   "stats <path>",
	Short: "Show record counts for a root's shard",
	Args:  cobra.ExactArgs(1),
	RunE:  runShardStats,
}

var shardPathCmd = &cobra.Command{
	Use:   "path <path>",
	Short: "Print the shard directory for a root",
	Args:  cobra.ExactArgs(1),
	RunE:  runShardPath,
}

var shardClearCmd = &cobra.Command{
	Use:   "clear <path>",
	Short: "Delete all records from a root's shard",
	Long: `Remove every content record from the shard, forcing the next scan to
see the whole tree as new. The checkpoint is cleared too.`,
	Args: cobra.ExactArgs(1),
	RunE: runShardClear,
}

func init() {
	shardCmd.AddCommand(shardStatsCmd)
	shardCmd.AddCommand(shardPathCmd)
	shardCmd.AddCommand(shardClearCmd)
	rootCmd.AddCommand(shardCmd)
}

// resolveShardRoot normalizes a CLI path argument to the absolute root
// that keys the shard.
func resolveShardRoot(arg string) (string, error) {
	expanded, err := config.ExpandPath(arg)
	if err != nil {
		return "", err
	}
	return filepath.Abs(expanded)
}

func runShardStats(cmd *cobra.Command, args []string) error {
	root, err := resolveShardRoot(args[0])
	if err != nil {
		return err
	}

	store, err := shard.Open(shard.DirFor(config.ShardDir(), root))
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.CollectStats()
	if err != nil {
		return err
	}

	fmt.Printf("Shard:    %s\n", shard.ID(root))
	fmt.Printf("Root:     %s\n", root)
	fmt.Printf("Records:  %d\n", stats.Records)
	fmt.Printf("Size:     %s\n", types.FormatSize(stats.TotalSize))
	for _, status := range []string{"new", "modified", "unchanged", "missing"} {
		if n := stats.ByStatus[status]; n > 0 {
			fmt.Printf("  %-10s %d\n", status, n)
		}
	}

	return nil
}

func runShardPath(cmd *cobra.Command, args []string) error {
	root, err := resolveShardRoot(args[0])
	if err != nil {
		return err
	}

	fmt.Println(shard.DirFor(config.ShardDir(), root))
	return nil
}

func runShardClear(cmd *cobra.Command, args []string) error {
	root, err := resolveShardRoot(args[0])
	if err != nil {
		return err
	}

	store, err := shard.Open(shard.DirFor(config.ShardDir(), root))
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		return err
	}
	if err := store.DeleteCheckpoint(); err != nil {
		return err
	}

	printInfo("Cleared shard for %s", root)
	return nil
}
