package shard

import (
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/fairweather/catwalk/pkg/catwalk/types"
)

// checkpointKey is the single checkpoint slot per shard. A shard belongs
// to one root, and at most one session runs against a root at a time.
var checkpointKey = []byte(prefixCheckpoint + "session")

// PutCheckpoint durably persists the checkpoint.
func (s *Store) PutCheckpoint(cp *types.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(checkpointKey, data)
	})
}

// GetCheckpoint returns the stored checkpoint, or ErrNotFound.
func (s *Store) GetCheckpoint() (*types.Checkpoint, error) {
	var cp types.Checkpoint

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(checkpointKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cp)
		})
	})
	if err != nil {
		return nil, err
	}

	return &cp, nil
}

// DeleteCheckpoint removes the checkpoint slot.
func (s *Store) DeleteCheckpoint() error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(checkpointKey)
	})
}
