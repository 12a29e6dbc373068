// Package config provides configuration management for the catwalk volume
// cataloger.
package config

// Default configuration values for catwalk.
const (
	// DefaultPath is the default path to catalog when none is specified.
	DefaultPath = "."

	// DefaultQueueCapacity is the capacity of the backpressure queue
	// between the enumerator and the worker pool.
	DefaultQueueCapacity = 10000

	// DefaultBatchSize is the commit writer's record count flush threshold.
	DefaultBatchSize = 1000

	// DefaultBatchIntervalSeconds is the commit writer's time flush
	// threshold in seconds.
	DefaultBatchIntervalSeconds = 2

	// DefaultRetryAttempts is the maximum attempt count for transient
	// filesystem failures.
	DefaultRetryAttempts = 4

	// DefaultRetryBackoffMillis is the initial retry backoff in
	// milliseconds. Backoff doubles per attempt up to the cap.
	DefaultRetryBackoffMillis = 50

	// DefaultOpTimeoutSeconds is the per-operation timeout in seconds.
	DefaultOpTimeoutSeconds = 30

	// DefaultCheckpointRecords is the checkpoint cadence in committed
	// records.
	DefaultCheckpointRecords = 500

	// DefaultCheckpointSeconds is the checkpoint cadence in elapsed
	// seconds.
	DefaultCheckpointSeconds = 5
)

// DefaultIgnoreGlobs contains glob patterns excluded from cataloging by
// default.
var DefaultIgnoreGlobs = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/*.tmp",
	"**/.DS_Store",
}

// DefaultExcludePaths contains absolute paths never entered by the
// enumerator.
var DefaultExcludePaths = []string{
	"/proc",
	"/sys",
	"/dev",
}

// Symlink policies.
const (
	SymlinkIgnore = "ignore"
	SymlinkFollow = "follow"
)

// Long-path policies.
const (
	LongPathNever = "never"
	LongPathAuto  = "auto"
	LongPathForce = "force"
)

// Rescan modes.
const (
	ModeDelta = "delta"
	ModeFull  = "full"
)
