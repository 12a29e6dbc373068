// Package types provides core data types for the catwalk volume cataloger.
// It includes the entry and record structures that flow through the scan
// pipeline, status and category enumerations, and utility functions for
// parsing and formatting file sizes.
package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// FileEntry is an entry produced by the enumerator and consumed by the
// worker pool. It is ephemeral and never persisted directly.
type FileEntry struct {
	// Path is the absolute path to the file.
	Path string `json:"path"`

	// Size is the file size in bytes as reported by the filesystem.
	Size int64 `json:"size"`

	// ModTime is the last modification time of the file.
	ModTime time.Time `json:"mod_time"`

	// Device and Inode identify the underlying object for symlink-cycle
	// detection. Zero on platforms where they cannot be determined.
	Device uint64 `json:"device"`
	Inode  uint64 `json:"inode"`

	// IsSymlink reports whether the entry itself is a symbolic link.
	IsSymlink bool `json:"is_symlink"`

	// Depth is the directory depth below the scan root (root children are 1).
	Depth int `json:"depth"`
}

// Status classifies a record against the prior catalog state.
type Status int

// Record statuses.
const (
	StatusNew Status = iota
	StatusModified
	StatusUnchanged
	StatusMissing
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusModified:
		return "modified"
	case StatusUnchanged:
		return "unchanged"
	case StatusMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// Category is a coarse content classification derived from extension and,
// when the extension is unknown, a small header sniff. It is computed once
// per entry and passed as data.
type Category int

// Content categories.
const (
	CategoryOther Category = iota
	CategoryImage
	CategoryVideo
	CategoryAudio
	CategoryDocument
	CategoryArchive
	CategoryCode
)

// String returns the string representation of the category.
func (c Category) String() string {
	switch c {
	case CategoryImage:
		return "image"
	case CategoryVideo:
		return "video"
	case CategoryAudio:
		return "audio"
	case CategoryDocument:
		return "document"
	case CategoryArchive:
		return "archive"
	case CategoryCode:
		return "code"
	default:
		return "other"
	}
}

// ContentRecord is the durable catalog record for one path in one session.
// It is produced by the worker pool and delta classifier and owned
// exclusively by the commit writer until flushed.
type ContentRecord struct {
	// Path is the absolute path to the file.
	Path string `json:"path"`

	// ContentHash is the chunked content hash, hex encoded. Empty for
	// missing soft-marks and for entries whose read failed.
	ContentHash string `json:"content_hash,omitempty"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// ModTime is the filesystem-reported modification time.
	ModTime time.Time `json:"mod_time"`

	// Category is the coarse content classification.
	Category Category `json:"category"`

	// Status is the delta classification for this session.
	Status Status `json:"status"`
}

// SkipCounters aggregates the non-fatal skip tallies from all pipeline
// stages. Each stage owns its own instance; the session controller merges
// them once at session end.
type SkipCounters struct {
	Permission int64 `json:"permission"`
	LongPath   int64 `json:"long_path"`
	Ignored    int64 `json:"ignored"`
	Cycles     int64 `json:"cycles"`
	ReadFailed int64 `json:"read_failed"`
}

// Add merges other into c.
func (c *SkipCounters) Add(other SkipCounters) {
	c.Permission += other.Permission
	c.LongPath += other.LongPath
	c.Ignored += other.Ignored
	c.Cycles += other.Cycles
	c.ReadFailed += other.ReadFailed
}

// Total returns the sum of all skip counters.
func (c *SkipCounters) Total() int64 {
	return c.Permission + c.LongPath + c.Ignored + c.Cycles + c.ReadFailed
}

// Checkpoint is the durable progress marker enabling resume after
// interruption. LastCompletedPath always refers to a path whose record is
// durably committed, never to a path merely dequeued.
type Checkpoint struct {
	// SessionID identifies the session that wrote the checkpoint.
	SessionID string `json:"session_id"`

	// Root is the scan root the checkpoint belongs to.
	Root string `json:"root"`

	// Mode is the rescan mode of the session ("delta" or "full").
	// A checkpoint only offers resume to a session with the same mode.
	Mode string `json:"mode"`

	// LastCompletedPath is the ordering key under the deterministic
	// traversal order; resume skips paths sorting at or before it.
	LastCompletedPath string `json:"last_completed_path"`

	// Processed counts records committed so far.
	Processed int64 `json:"processed"`

	// Skipped carries the skip counters at checkpoint time.
	Skipped SkipCounters `json:"skipped"`

	// PendingRetries counts entries whose transient failures were still
	// being retried when the checkpoint was taken.
	PendingRetries int64 `json:"pending_retries"`

	// Completed marks a session that ran to the end; completed
	// checkpoints never offer resume.
	Completed bool `json:"completed"`

	// UpdatedAt is when the checkpoint was last persisted.
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is returned by the session controller on completion or
// cancellation.
type Summary struct {
	// SessionID identifies the session.
	SessionID string `json:"session_id"`

	// Root is the scanned mount point or directory.
	Root string `json:"root"`

	// VolumeClass is the profile selected for the volume.
	VolumeClass string `json:"volume_class"`

	// New, Modified, Unchanged and Missing count committed records by status.
	New       int64 `json:"new"`
	Modified  int64 `json:"modified"`
	Unchanged int64 `json:"unchanged"`
	Missing   int64 `json:"missing"`

	// Skipped aggregates the non-fatal skip tallies.
	Skipped SkipCounters `json:"skipped"`

	// Committed is the total number of records durably committed.
	Committed int64 `json:"committed"`

	// Elapsed is the wall-clock session duration.
	Elapsed time.Duration `json:"elapsed"`

	// Cancelled reports whether the session ended by cancellation.
	Cancelled bool `json:"cancelled"`

	// LastCheckpoint is the final committed checkpoint path, empty when the
	// session completed and the checkpoint was cleared.
	LastCheckpoint string `json:"last_checkpoint,omitempty"`
}

// PathCompare returns -1, 0 or 1 comparing a and b under the traversal
// total order: path components are compared byte-wise, with the separator
// sorting before every other byte so that a directory's subtree is
// contiguous. This matches a depth-first walk that sorts each directory's
// children byte-wise, which is exactly how the enumerator visits entries.
// Resume correctness depends on every component using this single
// collation, so no locale or case folding is ever applied.
func PathCompare(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ca, cb := pathByte(a[i]), pathByte(b[i])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// pathByte maps the path separator below every other byte for comparison.
func pathByte(c byte) byte {
	if c == '/' {
		return 0
	}
	return c
}

// PathLess reports whether a sorts before b under the traversal total order.
func PathLess(a, b string) bool {
	return PathCompare(a, b) < 0
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string and returns the size in
// bytes. It supports plain bytes ("1024"), and K/M/G/T suffixes with
// optional B/iB ("100K", "50MiB", "2GB"). Decimal values are truncated to
// the nearest byte.
//
// Returns ErrInvalidSize if the format is not recognized.
// Returns ErrNegativeSize if the value is negative.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units for consistency with common filesystem tools.
func FormatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}
