// Package classify decides how each enumerated entry relates to the prior
// catalog state: new, modified, unchanged, or missing. The prior snapshot
// is loaded once per session and never mutated, so lookups are safely
// shared across all hash workers without locking; only the observed-path
// set needs synchronization.
package classify

import (
	"sync"

	"github.com/fairweather/catwalk/pkg/catwalk/shard"
	"github.com/fairweather/catwalk/pkg/catwalk/types"
)

// Decision tells a worker what to do with one entry.
type Decision struct {
	// Status is the provisional classification. In full-rescan mode it is
	// finalized only after hashing, via Finalize.
	Status types.Status

	// NeedHash reports whether the content hash must be computed. False
	// only for metadata-unchanged entries in delta mode, where the prior
	// hash is reused.
	NeedHash bool

	// Prior is the last known state, nil for new paths.
	Prior *shard.Prior
}

// Classifier classifies entries against a read-only prior snapshot.
type Classifier struct {
	prior       map[string]shard.Prior
	full        bool
	resumeAfter string

	mu       sync.Mutex
	observed map[string]struct{}
}

// New creates a classifier over the prior snapshot. full disables the
// metadata short-circuit entirely: every entry is hashed and reclassified
// on hash equality, used for integrity verification and shard rebuilds.
// resumeAfter is the resume cursor of the session, empty for a fresh
// walk; paths at or before it were covered by the interrupted run and are
// exempt from the missing pass.
func New(prior map[string]shard.Prior, full bool, resumeAfter string) *Classifier {
	return &Classifier{
		prior:       prior,
		full:        full,
		resumeAfter: resumeAfter,
		observed:    make(map[string]struct{}),
	}
}

// Decide classifies an entry against the prior state and records the path
// as observed for the missing pass. Safe for concurrent use.
//
// Rules, evaluated in order: absent from prior state means new; present
// with equal (size, mtime) means unchanged, skipping the hash in delta
// mode; present with differing metadata means modified, hash always
// recomputed.
func (c *Classifier) Decide(entry types.FileEntry) Decision {
	c.mu.Lock()
	c.observed[entry.Path] = struct{}{}
	c.mu.Unlock()

	prior, ok := c.prior[entry.Path]
	if !ok {
		return Decision{Status: types.StatusNew, NeedHash: true}
	}

	if prior.Size == entry.Size && prior.ModTime.Equal(entry.ModTime) {
		return Decision{
			Status:   types.StatusUnchanged,
			NeedHash: c.full,
			Prior:    &prior,
		}
	}

	return Decision{
		Status:   types.StatusModified,
		NeedHash: true,
		Prior:    &prior,
	}
}

// Finalize settles the status once the hash is known. Delta mode keeps
// the metadata-derived status: a touched file whose bytes happen to match
// is still modified, the fresh hash is stored alongside. Only full mode
// reclassifies on hash equality, which is how it spots rot under
// unchanged metadata.
func (c *Classifier) Finalize(d Decision, hash string) types.Status {
	if d.Prior == nil {
		return types.StatusNew
	}
	if !c.full {
		return d.Status
	}
	if hash == d.Prior.ContentHash {
		return types.StatusUnchanged
	}
	return types.StatusModified
}

// Missing returns soft-mark records for every path present in the prior
// state but not observed in this session's walk. Paths already marked
// missing in a previous session stay as they are; history is never
// deleted, only flagged.
func (c *Classifier) Missing() []types.ContentRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	var missing []types.ContentRecord
	for path, prior := range c.prior {
		if _, ok := c.observed[path]; ok {
			continue
		}
		if prior.Status == types.StatusMissing {
			continue
		}
		if c.resumeAfter != "" && types.PathCompare(path, c.resumeAfter) <= 0 {
			// Covered before the interruption; this session never walked it.
			continue
		}
		missing = append(missing, types.ContentRecord{
			Path:        path,
			ContentHash: prior.ContentHash,
			Size:        prior.Size,
			ModTime:     prior.ModTime,
			Category:    prior.Category,
			Status:      types.StatusMissing,
		})
	}

	return missing
}
