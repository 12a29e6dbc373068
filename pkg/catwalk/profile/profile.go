// Package profile probes a mount point's I/O characteristics and selects
// the performance profile that parameterizes the rest of the pipeline:
// worker count, hash chunk size, and pacing for slow or shared media.
package profile

import (
	"context"
	"runtime"
	"strings"
	"time"
)

// Class identifies the kind of volume backing a mount point.
type Class int

// Volume classes from fastest to most fragile.
const (
	ClassSSD Class = iota
	ClassHDD
	ClassUSB
	ClassNetwork
)

// String returns the string representation of the class.
func (c Class) String() string {
	switch c {
	case ClassSSD:
		return "ssd"
	case ClassHDD:
		return "hdd"
	case ClassUSB:
		return "usb"
	case ClassNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// ParseClass parses a class name. Empty and "auto" return ok=false,
// meaning the caller should probe.
func ParseClass(s string) (Class, bool) {
	switch strings.ToLower(s) {
	case "ssd":
		return ClassSSD, true
	case "hdd":
		return ClassHDD, true
	case "usb":
		return ClassUSB, true
	case "network":
		return ClassNetwork, true
	default:
		return ClassNetwork, false
	}
}

// Worker limits.
const (
	maxWorkers = 64
	minWorkers = 2

	// networkWorkers is fixed for network shares: parallelism beyond this
	// mostly multiplies latency stalls on the server side.
	networkWorkers = 6
)

// Chunk sizes per class.
const (
	chunkSSD     = 1024 * 1024
	chunkHDD     = 512 * 1024
	chunkUSB     = 256 * 1024
	chunkNetwork = 256 * 1024
)

// networkPerFilePause is the mandatory small pause between files on
// network shares.
const networkPerFilePause = 10 * time.Millisecond

// Profile parameterizes the scan pipeline for one volume.
type Profile struct {
	// Class is the detected or requested volume class.
	Class Class

	// Workers is the hash worker pool size.
	Workers int

	// ChunkSize is the hash read chunk size in bytes.
	ChunkSize int64

	// GentleIO enables pacing between chunk reads to avoid overloading
	// slow or shared media.
	GentleIO bool

	// PerFilePause is an additional pause after each file, nonzero only
	// for network shares.
	PerFilePause time.Duration
}

// ForClass returns the default profile for a volume class.
//
// Policy table:
//   - SSD: up to 2x logical CPUs, 1 MiB chunks, no pacing
//   - HDD: up to 16 workers, 512 KiB chunks
//   - USB: up to 8 workers, 256 KiB chunks, gentle pacing
//   - Network: fixed 6 workers, 256 KiB chunks, gentle pacing and a
//     per-file pause
func ForClass(class Class) Profile {
	cpus := runtime.NumCPU()

	switch class {
	case ClassSSD:
		return Profile{
			Class:     ClassSSD,
			Workers:   clamp(cpus*2, minWorkers, maxWorkers),
			ChunkSize: chunkSSD,
		}
	case ClassHDD:
		return Profile{
			Class:     ClassHDD,
			Workers:   clamp(cpus, minWorkers, 16),
			ChunkSize: chunkHDD,
		}
	case ClassUSB:
		return Profile{
			Class:     ClassUSB,
			Workers:   clamp(cpus, minWorkers, 8),
			ChunkSize: chunkUSB,
			GentleIO:  true,
		}
	default:
		return Profile{
			Class:        ClassNetwork,
			Workers:      networkWorkers,
			ChunkSize:    chunkNetwork,
			GentleIO:     true,
			PerFilePause: networkPerFilePause,
		}
	}
}

// WithWorkerOverride returns a copy of p with the worker count replaced.
// Non-positive overrides leave the profiled count in place; the maximum
// cap still applies.
func (p Profile) WithWorkerOverride(workers int) Profile {
	if workers > 0 {
		p.Workers = min(workers, maxWorkers)
	}
	return p
}

// Detect selects a profile for the volume mounted at root. It never fails:
// when probing itself errors (unreadable mount, vanished share), the most
// conservative profile is returned so the scan still runs, just slowly.
func Detect(ctx context.Context, root string) Profile {
	if class, ok := detectFilesystem(root); ok && class == ClassNetwork {
		return ForClass(ClassNetwork)
	}

	m, err := probe(ctx, root)
	if err != nil {
		return ForClass(ClassNetwork)
	}

	return ForClass(classify(m))
}

// classify maps probe measurements to a volume class.
func classify(m measurements) Class {
	// Listing a directory on local SSDs is tens of microseconds; spinning
	// disks sit under a few milliseconds; anything slower behaves like
	// removable or remote media.
	switch {
	case m.listLatency < 500*time.Microsecond && m.readThroughput >= 200*1024*1024:
		return ClassSSD
	case m.listLatency < 5*time.Millisecond:
		return ClassHDD
	case m.listLatency < 50*time.Millisecond:
		return ClassUSB
	default:
		return ClassNetwork
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
