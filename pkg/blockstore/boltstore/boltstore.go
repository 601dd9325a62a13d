// Package boltstore is an embedded-KV blockstore.Store backed by
// go.etcd.io/bbolt, adapting the bucket-per-entity pattern of the
// reference cluster store to this module's four entities.
package boltstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	bolt "go.etcd.io/bbolt"

	"github.com/trustless-go/trustless/pkg/blockstore"
)

var (
	bucketRings      = []byte("rings")
	bucketIndices    = []byte("indices")
	bucketBlocks     = []byte("blocks")
	bucketChangeLogs = []byte("change_logs")
)

// Store is an embedded-KV blockstore.Store. Ring keys are
// "<ringID>/<version>" so every version persists and the highest can be
// found by scanning the ring's key prefix; change log values, keyed by
// node id, are that node's JSON-encoded change slice.
type Store struct {
	db     *bolt.DB
	nodeID string
}

// New opens (creating if absent) a bbolt database at dataDir/trustless.db
// and ensures all four buckets exist.
func New(dataDir, nodeID string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "trustless.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, blockstore.Wrap(blockstore.KindIO, "open %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketRings, bucketIndices, bucketBlocks, bucketChangeLogs} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, blockstore.Wrap(blockstore.KindIO, "initialize buckets: %w", err)
	}

	return &Store{db: db, nodeID: nodeID}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) NodeID() string { return s.nodeID }

func ringKey(ringID string, version uint64) []byte {
	return []byte(ringID + "/" + strconv.FormatUint(version, 10))
}

func (s *Store) ListRingIDs() ([]blockstore.RingSummary, error) {
	highest := make(map[string]uint64)

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRings)
		return b.ForEach(func(k, v []byte) error {
			ringID, version, err := splitRingKey(string(k))
			if err != nil {
				return err
			}
			if existing, ok := highest[ringID]; !ok || version > existing {
				highest[ringID] = version
			}
			return nil
		})
	})
	if err != nil {
		return nil, blockstore.Wrap(blockstore.KindIO, "list ring ids: %w", err)
	}

	out := make([]blockstore.RingSummary, 0, len(highest))
	for id, version := range highest {
		out = append(out, blockstore.RingSummary{RingID: id, Version: version})
	}
	return out, nil
}

func splitRingKey(key string) (ringID string, version uint64, err error) {
	idx := strings.LastIndex(key, "/")
	if idx < 0 {
		return "", 0, fmt.Errorf("malformed ring key %q", key)
	}
	version, err = strconv.ParseUint(key[idx+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed ring key %q: %w", key, err)
	}
	return key[:idx], version, nil
}

func (s *Store) GetRing(ringID string) (uint64, []byte, error) {
	var version uint64
	var data []byte
	found := false

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRings)
		prefix := []byte(ringID + "/")
		c := b.Cursor()
		for k, v := c.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = c.Next() {
			_, candidateVersion, err := splitRingKey(string(k))
			if err != nil {
				return err
			}
			if !found || candidateVersion > version {
				version = candidateVersion
				data = append([]byte(nil), v...)
				found = true
			}
		}
		return nil
	})
	if err != nil {
		return 0, nil, blockstore.Wrap(blockstore.KindIO, "get ring %s: %w", ringID, err)
	}
	if !found {
		return 0, nil, blockstore.Wrap(blockstore.KindInvalidBlock, "ring %q not found", ringID)
	}
	return version, data, nil
}

func (s *Store) StoreRing(ringID string, version uint64, data []byte) error {
	key := ringKey(ringID, version)
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRings)
		if b.Get(key) != nil {
			return blockstore.Wrap(blockstore.KindConflict, "ring %q already has version %d", ringID, version)
		}
		return b.Put(key, data)
	})
	if err != nil {
		if be, ok := err.(*blockstore.Error); ok {
			return be
		}
		return blockstore.Wrap(blockstore.KindIO, "store ring %s: %w", ringID, err)
	}
	return nil
}

func (s *Store) ChangeLogs() ([]blockstore.ChangeLog, error) {
	var logs []blockstore.ChangeLog

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketChangeLogs)
		return b.ForEach(func(k, v []byte) error {
			var changes []blockstore.Change
			if err := json.Unmarshal(v, &changes); err != nil {
				return fmt.Errorf("decode change log %s: %w", k, err)
			}
			logs = append(logs, blockstore.ChangeLog{NodeID: string(k), Changes: changes})
			return nil
		})
	})
	if err != nil {
		return nil, blockstore.Wrap(blockstore.KindIO, "change logs: %w", err)
	}
	return logs, nil
}

func (s *Store) GetIndex(indexID string) ([]byte, bool, error) {
	var data []byte
	found := false

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketIndices)
		v := b.Get([]byte(indexID))
		if v != nil {
			data = append([]byte(nil), v...)
			found = true
		}
		return nil
	})
	if err != nil {
		return nil, false, blockstore.Wrap(blockstore.KindIO, "get index %s: %w", indexID, err)
	}
	return data, found, nil
}

func (s *Store) StoreIndex(indexID string, data []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketIndices).Put([]byte(indexID), data)
	})
	if err != nil {
		return blockstore.Wrap(blockstore.KindIO, "store index %s: %w", indexID, err)
	}
	return nil
}

func (s *Store) AddBlock(data []byte) (string, error) {
	id := contentHash(data)
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlocks)
		if b.Get([]byte(id)) != nil {
			return nil
		}
		return b.Put([]byte(id), data)
	})
	if err != nil {
		return "", blockstore.Wrap(blockstore.KindIO, "add block: %w", err)
	}
	return id, nil
}

func (s *Store) GetBlock(blockID string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketBlocks).Get([]byte(blockID))
		if v == nil {
			return blockstore.Wrap(blockstore.KindInvalidBlock, "block %q not found", blockID)
		}
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		if be, ok := err.(*blockstore.Error); ok {
			return nil, be
		}
		return nil, blockstore.Wrap(blockstore.KindIO, "get block %s: %w", blockID, err)
	}
	return data, nil
}

func (s *Store) Commit(changes []blockstore.Change) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketChangeLogs)
		var existing []blockstore.Change
		if v := b.Get([]byte(s.nodeID)); v != nil {
			if err := json.Unmarshal(v, &existing); err != nil {
				return fmt.Errorf("decode change log: %w", err)
			}
		}
		seen := make(map[string]bool, len(existing))
		for _, c := range existing {
			seen[c.Op.String()+":"+c.BlockID] = true
		}
		for _, c := range changes {
			if seen[c.Op.String()+":"+c.BlockID] {
				return blockstore.Wrap(blockstore.KindConflict, "change %s %s already committed", c.Op, c.BlockID)
			}
		}
		updated, err := json.Marshal(append(existing, changes...))
		if err != nil {
			return fmt.Errorf("encode change log: %w", err)
		}
		return b.Put([]byte(s.nodeID), updated)
	})
	if err != nil {
		if be, ok := err.(*blockstore.Error); ok {
			return be
		}
		return blockstore.Wrap(blockstore.KindIO, "commit: %w", err)
	}
	return nil
}

func (s *Store) UpdateChangeLog(log blockstore.ChangeLog) error {
	data, err := json.Marshal(log.Changes)
	if err != nil {
		return blockstore.Wrap(blockstore.KindIO, "encode change log: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketChangeLogs).Put([]byte(log.NodeID), data)
	})
	if err != nil {
		return blockstore.Wrap(blockstore.KindIO, "update change log: %w", err)
	}
	return nil
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
