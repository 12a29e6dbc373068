// Package shard provides the Badger-backed per-volume record store. Each
// cataloged volume gets its own shard holding content records, the prior
// catalog snapshot read by the delta classifier, and the session
// checkpoint.
package shard

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"

	"github.com/fairweather/catwalk/pkg/catwalk/types"
)

// Key prefixes for different data types.
const (
	prefixRecord     = "r:" // Content records, keyed by path
	prefixCheckpoint = "k:" // Session checkpoint (single key)
	prefixMeta       = "m:" // Shard metadata
)

// ErrNotFound is returned when a key doesn't exist in the shard.
var ErrNotFound = errors.New("shard entry not found")

// Store is one volume's shard, backed by Badger.
type Store struct {
	db *badger.DB
}

// ID returns the stable shard identifier for a scan root: the xxhash of
// the absolute root path, hex encoded. It keys the shard directory so
// repeat sessions against the same root find the same store.
func ID(root string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(root))
}

// DirFor returns the shard directory for a root under baseDir.
func DirFor(baseDir, root string) string {
	return filepath.Join(baseDir, ID(root))
}

// Open opens or creates a shard at the given directory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Badger's own logging is too chatty for a CLI

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening shard at %s: %w", dir, err)
	}

	return &Store{db: db}, nil
}

// Close closes the shard.
func (s *Store) Close() error {
	return s.db.Close()
}

// recordKey builds the store key for a path's record.
func recordKey(path string) []byte {
	return []byte(prefixRecord + path)
}

// PutRecords stores a batch of records in one transactional flush.
// Either every record in the batch becomes durable or none does.
func (s *Store) PutRecords(records []types.ContentRecord) error {
	if len(records) == 0 {
		return nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range records {
		data, err := json.Marshal(&records[i])
		if err != nil {
			return fmt.Errorf("encoding record %s: %w", records[i].Path, err)
		}
		if err := wb.Set(recordKey(records[i].Path), data); err != nil {
			return err
		}
	}

	return wb.Flush()
}

// Get retrieves the record for a path.
func (s *Store) Get(path string) (*types.ContentRecord, error) {
	var record types.ContentRecord

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(path))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &record)
		})
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// Prior is one path's last known state, as loaded into the classifier's
// read-only snapshot.
type Prior struct {
	Size        int64
	ModTime     time.Time
	ContentHash string
	Category    types.Category
	Status      types.Status
}

// Snapshot loads the full catalog state as a read-only map from path to
// prior state. It is loaded once per session and safely shared across all
// workers without locking; new state is only ever written as new records.
func (s *Store) Snapshot() (map[string]Prior, error) {
	snapshot := make(map[string]Prior)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixRecord)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			path := string(item.Key()[len(prefixRecord):])

			err := item.Value(func(val []byte) error {
				var record types.ContentRecord
				if err := json.Unmarshal(val, &record); err != nil {
					return fmt.Errorf("decoding record %s: %w", path, err)
				}
				snapshot[path] = Prior{
					Size:        record.Size,
					ModTime:     record.ModTime,
					ContentHash: record.ContentHash,
					Category:    record.Category,
					Status:      record.Status,
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

// Walk streams every stored record to fn in key order. Used by downstream
// consumers reading the shard after a session.
func (s *Store) Walk(fn func(types.ContentRecord) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixRecord)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var record types.ContentRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &record)
			})
			if err != nil {
				return err
			}
			if err := fn(record); err != nil {
				return err
			}
		}
		return nil
	})
}

// Stats summarizes the shard contents for maintenance commands.
type Stats struct {
	Records   int64
	ByStatus  map[string]int64
	TotalSize int64
}

// CollectStats walks the shard and tallies record counts by status.
func (s *Store) CollectStats() (*Stats, error) {
	stats := &Stats{ByStatus: make(map[string]int64)}

	err := s.Walk(func(r types.ContentRecord) error {
		stats.Records++
		stats.ByStatus[r.Status.String()]++
		stats.TotalSize += r.Size
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// Clear removes every record from the shard, leaving checkpoints intact.
func (s *Store) Clear() error {
	return s.deletePrefix([]byte(prefixRecord))
}

func (s *Store) deletePrefix(prefix []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}
