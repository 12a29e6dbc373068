// Package session orchestrates one catalog run over one volume: profile
// selection, shard and snapshot loading, resume decision, then the
// enumerator, worker pool, commit writer and checkpoint manager running
// concurrently until the tree is exhausted or the context is cancelled.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/fairweather/catwalk/pkg/catwalk/broadcast"
	"github.com/fairweather/catwalk/pkg/catwalk/checkpoint"
	"github.com/fairweather/catwalk/pkg/catwalk/classify"
	"github.com/fairweather/catwalk/pkg/catwalk/config"
	"github.com/fairweather/catwalk/pkg/catwalk/enumerate"
	"github.com/fairweather/catwalk/pkg/catwalk/fault"
	"github.com/fairweather/catwalk/pkg/catwalk/hasher"
	"github.com/fairweather/catwalk/pkg/catwalk/logging"
	"github.com/fairweather/catwalk/pkg/catwalk/profile"
	"github.com/fairweather/catwalk/pkg/catwalk/shard"
	"github.com/fairweather/catwalk/pkg/catwalk/types"
	"github.com/fairweather/catwalk/pkg/catwalk/writer"
)

// Request describes one catalog run.
type Request struct {
	// Root is the mount point or directory to catalog.
	Root string

	// Mode is config.ModeDelta or config.ModeFull. Empty means delta.
	Mode string

	// Profile forces a volume class ("ssd", "hdd", "usb", "network").
	// Empty or "auto" probes the volume.
	Profile string

	// Workers overrides the profiled worker count when positive.
	Workers int

	// Resume allows picking up from a stored checkpoint. When false any
	// stored checkpoint is ignored and the walk starts from the top.
	Resume bool

	// Broadcaster receives progress events when non-nil.
	Broadcaster *broadcast.Broadcaster
}

// Controller runs catalog sessions against the configured shard
// directory.
type Controller struct {
	cfg      *config.Config
	shardDir string
	logger   *logging.Logger
}

// New creates a controller. shardDir overrides the configured shard
// location when nonempty.
func New(cfg *config.Config, shardDir string) *Controller {
	if shardDir == "" {
		shardDir = config.ShardDir()
	}
	return &Controller{
		cfg:      cfg,
		shardDir: shardDir,
		logger:   logging.Get("session"),
	}
}

// Run executes one session. On completion and on cancellation it returns
// a summary; unrecoverable failures (unreadable root, shard open, commit
// or checkpoint write errors) return an error, with the last durable
// checkpoint left as the recovery point.
func (c *Controller) Run(ctx context.Context, req Request) (*types.Summary, error) {
	start := time.Now()

	root, err := filepath.Abs(req.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	mode := req.Mode
	if mode == "" {
		mode = config.ModeDelta
	}

	prof := c.selectProfile(ctx, req, root)
	sessionID := uuid.New().String()

	c.logger.Info("session starting",
		"session", sessionID, "root", root, "mode", mode,
		"class", prof.Class.String(), "workers", prof.Workers)

	store, err := shard.Open(shard.DirFor(c.shardDir, root))
	if err != nil {
		return nil, err
	}
	defer store.Close()

	snapshot, err := store.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("loading prior state: %w", err)
	}

	resumeAfter := ""
	if req.Resume {
		if cp, ok := checkpoint.ResumePoint(store, root, mode); ok {
			resumeAfter = cp.LastCompletedPath
			c.logger.Info("resuming from checkpoint",
				"after", resumeAfter, "prior_session", cp.SessionID)
		}
	}

	exec := fault.New(fault.Options{
		MaxAttempts:    c.cfg.Retry.Attempts,
		InitialBackoff: time.Duration(c.cfg.Retry.BackoffMillis) * time.Millisecond,
		Timeout:        time.Duration(c.cfg.Retry.TimeoutSeconds) * time.Second,
	})

	classifier := classify.New(snapshot, mode == config.ModeFull, resumeAfter)
	pool := hasher.NewPool(prof, exec, classifier)

	mgr := checkpoint.New(store, sessionID, root, mode,
		func() types.SkipCounters { return pool.Counters() },
		checkpoint.Options{
			EveryRecords: c.cfg.Checkpoint.Records,
			EveryElapsed: time.Duration(c.cfg.Checkpoint.Seconds) * time.Second,
		})
	// A write failure here is sticky; it surfaces at the next commit or
	// the post-pipeline check below.
	pool.SetOnSkip(func(path string) { _ = mgr.Done(path) })

	enum, err := enumerate.New(enumerate.Options{
		Root:         root,
		SkipHidden:   c.cfg.Filters.Hidden,
		IgnoreGlobs:  c.cfg.Filters.IgnoreGlobs,
		ExcludePaths: c.cfg.Filters.ExcludePaths,
		Symlinks:     c.cfg.Filters.Symlinks,
		LongPaths:    c.cfg.Filters.LongPaths,
		ResumeAfter:  resumeAfter,
		OnEmit:       mgr.Enumerated,
		Executor:     exec,
	})
	if err != nil {
		return nil, err
	}

	w := writer.New(store, writer.Options{
		BatchSize:     c.cfg.Writer.BatchSize,
		FlushInterval: time.Duration(c.cfg.Writer.IntervalSeconds) * time.Second,
	})

	if req.Broadcaster != nil {
		req.Broadcaster.Publish(&broadcast.Event{
			Kind:      broadcast.KindSessionStarted,
			SessionID: sessionID,
		})
	}

	onCommit := func(batch []types.ContentRecord) error {
		paths := make([]string, len(batch))
		for i := range batch {
			paths[i] = batch[i].Path
		}
		if err := mgr.Done(paths...); err != nil {
			return fmt.Errorf("checkpoint update: %w", err)
		}

		if req.Broadcaster != nil {
			records := make([]types.ContentRecord, len(batch))
			copy(records, batch)
			req.Broadcaster.Publish(&broadcast.Event{
				Kind:      broadcast.KindBatchCommitted,
				SessionID: sessionID,
				Records:   records,
			})
		}
		return nil
	}

	walkComplete, err := c.runPipeline(ctx, stages{
		enum:       enum,
		pool:       pool,
		writer:     w,
		mgr:        mgr,
		classifier: classifier,
		onCommit:   onCommit,
	})
	if err != nil {
		return nil, err
	}
	if err := mgr.Err(); err != nil {
		return nil, fmt.Errorf("checkpoint write failed: %w", err)
	}

	cancelled := !walkComplete
	if err := mgr.Persist(!cancelled); err != nil {
		return nil, fmt.Errorf("final checkpoint write failed: %w", err)
	}

	skipped := enum.Counters()
	skipped.Add(pool.Counters())
	summary := &types.Summary{
		SessionID:   sessionID,
		Root:        root,
		VolumeClass: prof.Class.String(),
		New:         w.CountByStatus(types.StatusNew),
		Modified:    w.CountByStatus(types.StatusModified),
		Unchanged:   w.CountByStatus(types.StatusUnchanged),
		Missing:     w.CountByStatus(types.StatusMissing),
		Skipped:     skipped,
		Committed:   w.Committed(),
		Elapsed:     time.Since(start),
		Cancelled:   cancelled,
	}
	if cancelled {
		summary.LastCheckpoint = mgr.Frontier()
	}

	if req.Broadcaster != nil {
		req.Broadcaster.Publish(&broadcast.Event{
			Kind:      broadcast.KindSessionFinished,
			SessionID: sessionID,
			Summary:   summary,
		})
	}

	c.logger.Info("session finished",
		"session", sessionID, "committed", summary.Committed,
		"new", summary.New, "modified", summary.Modified,
		"unchanged", summary.Unchanged, "missing", summary.Missing,
		"skipped", summary.Skipped.Total(), "cancelled", summary.Cancelled,
		"elapsed", summary.Elapsed.Round(time.Millisecond))

	return summary, nil
}

// stages bundles the concurrent parts of one session run.
type stages struct {
	enum       *enumerate.Enumerator
	pool       *hasher.Pool
	writer     *writer.Writer
	mgr        *checkpoint.Manager
	classifier *classify.Classifier
	onCommit   func([]types.ContentRecord) error
}

// runPipeline drives the enumerator, worker pool and commit writer until
// the tree is exhausted, the context is cancelled, or a stage fails. It
// reports whether the walk covered the whole tree; stage failures other
// than cancellation are returned as errors.
func (c *Controller) runPipeline(ctx context.Context, st stages) (bool, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := enumerate.NewQueue(c.cfg.QueueCapacity)

	capacity := c.cfg.Writer.BatchSize
	if capacity <= 0 {
		capacity = writer.DefaultBatchSize
	}
	records := make(chan types.ContentRecord, capacity)

	writerErr := make(chan error, 1)
	go func() {
		err := st.writer.Run(ctx, records, st.onCommit)
		if err != nil && !errors.Is(err, context.Canceled) {
			// A dead writer must not leave the producers blocked on a full
			// channel; tear the rest of the pipeline down with it.
			cancel()
		}
		writerErr <- err
	}()

	poolErr := make(chan error, 1)
	go func() {
		poolErr <- st.pool.Run(ctx, queue, records)
	}()

	enumErr := st.enum.Run(ctx, queue)
	queue.Close()
	perr := <-poolErr

	// Enumeration is done; its counters are stable now, so checkpoints can
	// carry the merged tallies.
	skipped := st.enum.Counters()
	st.mgr.SetSkips(func() types.SkipCounters {
		merged := skipped
		merged.Add(st.pool.Counters())
		return merged
	})

	// The missing pass needs full tree coverage; it only runs when the
	// walk and the workers finished cleanly.
	walkComplete := enumErr == nil && perr == nil && ctx.Err() == nil
	if walkComplete {
	missingPass:
		for _, rec := range st.classifier.Missing() {
			st.mgr.Enumerated(rec.Path)
			select {
			case records <- rec:
			case <-ctx.Done():
				walkComplete = false
				break missingPass
			}
		}
	}

	close(records)
	werr := <-writerErr
	if werr != nil && !errors.Is(werr, context.Canceled) {
		return false, werr
	}
	if enumErr != nil && !errors.Is(enumErr, context.Canceled) {
		return false, enumErr
	}
	return walkComplete, nil
}

// selectProfile honors an explicit class request, otherwise probes.
func (c *Controller) selectProfile(ctx context.Context, req Request, root string) profile.Profile {
	requested := req.Profile
	if requested == "" {
		requested = c.cfg.Profile
	}

	var prof profile.Profile
	if class, ok := profile.ParseClass(requested); ok {
		prof = profile.ForClass(class)
	} else {
		prof = profile.Detect(ctx, root)
	}

	workers := req.Workers
	if workers <= 0 {
		workers = c.cfg.Workers
	}
	return prof.WithWorkerOverride(workers)
}
