package profile

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/charlievieth/fastwalk"
)

// Probe bounds. The probe must finish quickly even on dead shares, so the
// sample walk stops after a fixed entry count and the read sample is small.
const (
	probeSampleEntries = 256
	probeReadBytes     = 4 * 1024 * 1024
	probeTimeout       = 5 * time.Second
)

// measurements holds the raw probe results.
type measurements struct {
	// listLatency is the mean wall time per directory listed.
	listLatency time.Duration

	// readThroughput is bytes per second over the small-read sample.
	// Zero when no regular file was found to sample.
	readThroughput int64
}

// errProbeEmpty is returned when the sample walk saw nothing at all.
var errProbeEmpty = errors.New("probe walk found no entries")

// probe measures directory-listing latency and small-read throughput over
// a bounded sample of the tree at root.
func probe(ctx context.Context, root string) (measurements, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var (
		dirs     int
		entries  int
		sample   string
		errLimit = errors.New("probe sample complete")
	)

	conf := fastwalk.Config{Follow: false}

	listStart := time.Now()
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return errLimit
		}
		if err != nil {
			return nil // unreadable branches don't fail the probe
		}

		entries++
		if d.IsDir() {
			dirs++
		} else if sample == "" && d.Type().IsRegular() {
			sample = path
		}

		if entries >= probeSampleEntries {
			return errLimit
		}
		return nil
	})
	listElapsed := time.Since(listStart)

	if err != nil && !errors.Is(err, errLimit) {
		return measurements{}, err
	}
	if entries == 0 {
		return measurements{}, errProbeEmpty
	}
	if dirs == 0 {
		dirs = 1
	}

	m := measurements{
		listLatency: listElapsed / time.Duration(dirs),
	}

	if sample != "" {
		m.readThroughput = sampleRead(ctx, sample)
	}

	return m, nil
}

// sampleRead reads up to probeReadBytes from path and returns the observed
// throughput in bytes per second. Returns 0 on any failure; the probe
// treats missing throughput as inconclusive rather than fatal.
func sampleRead(ctx context.Context, path string) int64 {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	buf := make([]byte, 64*1024)
	var total int64

	start := time.Now()
	for total < probeReadBytes {
		if ctx.Err() != nil {
			break
		}
		n, err := f.Read(buf)
		total += int64(n)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0
		}
	}

	elapsed := time.Since(start)
	if elapsed <= 0 || total == 0 {
		return 0
	}

	return int64(float64(total) / elapsed.Seconds())
}
