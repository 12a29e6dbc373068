// Package hasher runs the worker pool that turns enumerated entries into
// content records. Each worker pops from the bounded queue, consults the
// delta classifier, and hashes file content in profile-sized chunks with
// every read going through the transient-fault executor.
package hasher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/fairweather/catwalk/pkg/catwalk/classify"
	"github.com/fairweather/catwalk/pkg/catwalk/enumerate"
	"github.com/fairweather/catwalk/pkg/catwalk/fault"
	"github.com/fairweather/catwalk/pkg/catwalk/logging"
	"github.com/fairweather/catwalk/pkg/catwalk/profile"
	"github.com/fairweather/catwalk/pkg/catwalk/types"
)

// gentlePause is the inter-chunk pause when the profile asks for gentle
// I/O. Long enough to leave slow media breathing room between reads,
// short enough not to dominate scan time.
const gentlePause = 2 * time.Millisecond

// Pool is the hash worker pool. Workers share the classifier snapshot
// and the executor; each owns its chunk buffer.
type Pool struct {
	prof       profile.Profile
	exec       *fault.Executor
	classifier *classify.Classifier
	logger     *logging.Logger
	onSkip     func(path string)

	mu       sync.Mutex
	counters types.SkipCounters
}

// SetOnSkip registers a callback fired for every entry dropped without a
// record. The checkpoint manager needs it so skipped paths do not pin the
// durable frontier forever. Must be set before Run.
func (p *Pool) SetOnSkip(fn func(path string)) {
	p.onSkip = fn
}

// NewPool creates a worker pool parameterized by the volume profile.
func NewPool(prof profile.Profile, exec *fault.Executor, classifier *classify.Classifier) *Pool {
	return &Pool{
		prof:       prof,
		exec:       exec,
		classifier: classifier,
		logger:     logging.Get("hasher"),
	}
}

// Run starts the workers and blocks until the queue is closed and
// drained, or the context is cancelled. Completed records are sent to
// out; Run never closes out. Entries whose reads fail after retries are
// counted and dropped, not fatal.
func (p *Pool) Run(ctx context.Context, queue *enumerate.Queue, out chan<- types.ContentRecord) error {
	var wg sync.WaitGroup
	for i := 0; i < p.prof.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, queue, out)
		}()
	}
	wg.Wait()

	return ctx.Err()
}

// Counters returns the skip tallies accumulated so far.
func (p *Pool) Counters() types.SkipCounters {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counters
}

func (p *Pool) worker(ctx context.Context, queue *enumerate.Queue, out chan<- types.ContentRecord) {
	buf := make([]byte, p.prof.ChunkSize)

	for {
		entry, ok, err := queue.Pop(ctx)
		if err != nil || !ok {
			return
		}

		record, ok := p.process(ctx, entry, buf)
		if !ok {
			continue
		}

		select {
		case out <- record:
		case <-ctx.Done():
			return
		}

		if p.prof.PerFilePause > 0 {
			pause(ctx, p.prof.PerFilePause)
		}
	}
}

// process turns one entry into a record. ok is false when the entry was
// skipped (read failure after retries) or the context was cancelled.
func (p *Pool) process(ctx context.Context, entry types.FileEntry, buf []byte) (types.ContentRecord, bool) {
	decision := p.classifier.Decide(entry)

	if !decision.NeedHash {
		// Metadata unchanged in delta mode: reuse the stored hash and
		// category without touching file content.
		return types.ContentRecord{
			Path:        entry.Path,
			ContentHash: decision.Prior.ContentHash,
			Size:        entry.Size,
			ModTime:     entry.ModTime,
			Category:    decision.Prior.Category,
			Status:      types.StatusUnchanged,
		}, true
	}

	hash, header, err := p.hashFile(ctx, entry.Path, buf)
	if err != nil {
		if ctx.Err() != nil {
			return types.ContentRecord{}, false
		}
		p.countFailure(entry.Path, err)
		return types.ContentRecord{}, false
	}

	return types.ContentRecord{
		Path:        entry.Path,
		ContentHash: hash,
		Size:        entry.Size,
		ModTime:     entry.ModTime,
		Category:    CategoryFor(entry.Path, header),
		Status:      p.classifier.Finalize(decision, hash),
	}, true
}

// hashFile computes the chunked content hash of one file. Every open and
// read goes through the executor so transient stalls on fragile media are
// retried instead of poisoning the record. The first bytes are returned
// for header sniffing.
func (p *Pool) hashFile(ctx context.Context, path string, buf []byte) (string, []byte, error) {
	f, err := p.exec.Open(ctx, path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	digest := xxhash.New()
	var header []byte

	for {
		n, err := p.exec.Read(ctx, f, buf)
		if n > 0 {
			if header == nil {
				limit := n
				if limit > sniffLen {
					limit = sniffLen
				}
				header = append([]byte(nil), buf[:limit]...)
			}
			if _, werr := digest.Write(buf[:n]); werr != nil {
				return "", nil, werr
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, err
		}

		if p.prof.GentleIO {
			if perr := pause(ctx, gentlePause); perr != nil {
				return "", nil, perr
			}
		}
	}

	return fmt.Sprintf("%016x", digest.Sum64()), header, nil
}

// countFailure buckets a terminal per-file failure into the skip tallies.
func (p *Pool) countFailure(path string, err error) {
	class := fault.Classify(err)

	p.mu.Lock()
	switch class {
	case fault.ClassPermission:
		p.counters.Permission++
	default:
		p.counters.ReadFailed++
	}
	p.mu.Unlock()

	p.logger.Warn("skipping unreadable file", "path", path, "class", class.String(), "error", err)

	if p.onSkip != nil {
		p.onSkip(path)
	}
}

// pause sleeps for d or until ctx is cancelled.
func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
