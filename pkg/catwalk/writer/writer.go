// Package writer owns all shard writes during a session. Records from the
// worker pool funnel into one goroutine that batches them and flushes each
// batch as a single transactional commit, so the store never sees partial
// batches and no other goroutine ever writes records.
package writer

import (
	"context"
	"fmt"
	"time"

	"github.com/fairweather/catwalk/pkg/catwalk/logging"
	"github.com/fairweather/catwalk/pkg/catwalk/types"
)

// Sink receives batch commits. *shard.Store is the production sink.
type Sink interface {
	PutRecords(records []types.ContentRecord) error
}

// Defaults for batch flushing.
const (
	DefaultBatchSize     = 1000
	DefaultFlushInterval = 2 * time.Second
)

// Options configures batching.
type Options struct {
	// BatchSize flushes a batch once it holds this many records.
	BatchSize int

	// FlushInterval flushes a non-empty batch this long after the previous
	// flush, bounding how stale the durable state can get on slow volumes.
	FlushInterval time.Duration
}

// Writer drains the record channel into the shard in transactional
// batches. A commit callback fires after every durable flush; the
// checkpoint manager and event broadcaster hang off it.
type Writer struct {
	sink   Sink
	opts   Options
	logger *logging.Logger

	committed int64
	byStatus  map[types.Status]int64
}

// New creates a writer committing to the given sink. Zero option fields
// use defaults.
func New(sink Sink, opts Options) *Writer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = DefaultFlushInterval
	}
	return &Writer{
		sink:     sink,
		opts:     opts,
		logger:   logging.Get("writer"),
		byStatus: make(map[types.Status]int64),
	}
}

// Run consumes records until in is closed, flushing on batch size and on
// the flush interval. onCommit runs after each durable flush with the
// records just committed; it must not block for long since the writer is
// single-threaded. A flush failure, or an error from onCommit, is fatal:
// the error is returned and no further records are consumed.
//
// On cancellation the buffered batch is still flushed so the durable
// frontier is as far along as possible, then ctx.Err() is returned.
func (w *Writer) Run(ctx context.Context, in <-chan types.ContentRecord, onCommit func([]types.ContentRecord) error) error {
	batch := make([]types.ContentRecord, 0, w.opts.BatchSize)

	ticker := time.NewTicker(w.opts.FlushInterval)
	defer ticker.Stop()

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.sink.PutRecords(batch); err != nil {
			return fmt.Errorf("committing batch of %d records: %w", len(batch), err)
		}

		w.committed += int64(len(batch))
		for i := range batch {
			w.byStatus[batch[i].Status]++
		}
		w.logger.Debug("batch committed", "records", len(batch), "total", w.committed)

		if onCommit != nil {
			if err := onCommit(batch); err != nil {
				return err
			}
		}
		batch = batch[:0]
		return nil
	}

	for {
		select {
		case record, ok := <-in:
			if !ok {
				return flush()
			}
			batch = append(batch, record)
			if len(batch) >= w.opts.BatchSize {
				if err := flush(); err != nil {
					return err
				}
				ticker.Reset(w.opts.FlushInterval)
			}

		case <-ticker.C:
			if err := flush(); err != nil {
				return err
			}

		case <-ctx.Done():
			if err := flush(); err != nil {
				return err
			}
			return ctx.Err()
		}
	}
}

// Committed returns the number of records durably committed so far.
func (w *Writer) Committed() int64 {
	return w.committed
}

// CountByStatus returns the committed-record tally for one status.
func (w *Writer) CountByStatus(s types.Status) int64 {
	return w.byStatus[s]
}
