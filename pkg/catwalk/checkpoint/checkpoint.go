// Package checkpoint maintains the durable resume marker for a session.
// Records commit out of order across the worker pool, so the manager
// tracks the enumeration sequence and only advances the marker over the
// contiguous prefix whose entries are all durable or skipped. Resuming
// from the marker therefore never skips an uncommitted path.
package checkpoint

import (
	"sync"
	"time"

	"github.com/fairweather/catwalk/pkg/catwalk/logging"
	"github.com/fairweather/catwalk/pkg/catwalk/shard"
	"github.com/fairweather/catwalk/pkg/catwalk/types"
)

// Cadence defaults: persist every N durable records or every interval,
// whichever comes first.
const (
	DefaultEveryRecords = 500
	DefaultEveryElapsed = 5 * time.Second
)

// Options configures checkpoint cadence.
type Options struct {
	EveryRecords int
	EveryElapsed time.Duration
}

// Manager tracks the committed frontier and persists it on cadence.
// Safe for concurrent use: the enumerator feeds Enumerated while the
// writer's commit callback feeds Done.
type Manager struct {
	store  *shard.Store
	opts   Options
	logger *logging.Logger

	sessionID string
	root      string
	mode      string

	mu         sync.Mutex
	order      []string            // enumerated paths at or past the frontier, in traversal order
	done       map[string]struct{} // durable or skipped, not yet folded into the frontier
	frontier   string              // last path with everything before it durable
	processed  int64
	skips      func() types.SkipCounters
	sinceFlush int
	lastFlush  time.Time
	persistErr error // first failed write; once set the manager stays failed
}

// New creates a manager for one session. skips supplies the current skip
// tallies at persist time; nil means none.
func New(store *shard.Store, sessionID, root, mode string, skips func() types.SkipCounters, opts Options) *Manager {
	if opts.EveryRecords <= 0 {
		opts.EveryRecords = DefaultEveryRecords
	}
	if opts.EveryElapsed <= 0 {
		opts.EveryElapsed = DefaultEveryElapsed
	}
	if skips == nil {
		skips = func() types.SkipCounters { return types.SkipCounters{} }
	}
	return &Manager{
		store:     store,
		opts:      opts,
		logger:    logging.Get("checkpoint"),
		sessionID: sessionID,
		root:      root,
		mode:      mode,
		skips:     skips,
		done:      make(map[string]struct{}),
		lastFlush: time.Now(),
	}
}

// SetSkips replaces the skip-counter supplier. The session controller
// swaps in a merged supplier once enumeration has finished and its
// counters are stable.
func (m *Manager) SetSkips(fn func() types.SkipCounters) {
	m.mu.Lock()
	m.skips = fn
	m.mu.Unlock()
}

// Enumerated records that path entered the pipeline. Paths must arrive in
// traversal order; the enumerator is the only caller.
func (m *Manager) Enumerated(path string) {
	m.mu.Lock()
	m.order = append(m.order, path)
	m.mu.Unlock()
}

// Done marks paths as settled: durably committed, or skipped with no
// record coming. The frontier advances over the settled prefix, and the
// checkpoint is persisted when the cadence says so. A failed write is
// fatal for the session: the error is returned here and from every later
// call, and the last durable checkpoint remains the recovery point.
func (m *Manager) Done(paths ...string) error {
	m.mu.Lock()
	if m.persistErr != nil {
		err := m.persistErr
		m.mu.Unlock()
		return err
	}
	for _, p := range paths {
		m.done[p] = struct{}{}
	}

	advanced := 0
	for len(m.order) > 0 {
		head := m.order[0]
		if _, ok := m.done[head]; !ok {
			break
		}
		delete(m.done, head)
		m.frontier = head
		m.order = m.order[1:]
		advanced++
	}
	m.processed += int64(len(paths))
	m.sinceFlush += len(paths)

	shouldFlush := advanced > 0 &&
		(m.sinceFlush >= m.opts.EveryRecords || time.Since(m.lastFlush) >= m.opts.EveryElapsed)
	m.mu.Unlock()

	if shouldFlush {
		if err := m.Persist(false); err != nil {
			m.logger.Error("checkpoint write failed", "error", err)
			m.mu.Lock()
			m.persistErr = err
			m.mu.Unlock()
			return err
		}
	}
	return nil
}

// Err returns the first checkpoint write failure, nil while writes are
// healthy.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persistErr
}

// Persist writes the current checkpoint. completed marks a session that
// ran to the end; completed checkpoints never offer resume.
func (m *Manager) Persist(completed bool) error {
	m.mu.Lock()
	cp := &types.Checkpoint{
		SessionID:         m.sessionID,
		Root:              m.root,
		Mode:              m.mode,
		LastCompletedPath: m.frontier,
		Processed:         m.processed,
		Skipped:           m.skips(),
		PendingRetries:    int64(len(m.order)),
		Completed:         completed,
		UpdatedAt:         time.Now(),
	}
	m.sinceFlush = 0
	m.lastFlush = time.Now()
	m.mu.Unlock()

	return m.store.PutCheckpoint(cp)
}

// Frontier returns the last path the durable frontier has reached.
func (m *Manager) Frontier() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frontier
}

// Processed returns the number of settled entries so far.
func (m *Manager) Processed() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processed
}

// ResumePoint inspects the stored checkpoint and decides whether a new
// session over root in the given mode can resume. A checkpoint resumes
// only when it belongs to the same root and mode, is not completed, and
// has a nonempty frontier. Anything else means start from scratch.
func ResumePoint(store *shard.Store, root, mode string) (*types.Checkpoint, bool) {
	cp, err := store.GetCheckpoint()
	if err != nil {
		return nil, false
	}
	if cp.Completed || cp.Root != root || cp.Mode != mode || cp.LastCompletedPath == "" {
		return nil, false
	}
	return cp, true
}
