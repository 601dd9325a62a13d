// Package memstore is an in-memory blockstore.Store, used by tests and as
// a reference implementation of the content-addressing rules the
// content-addressed variants follow (localdir uses node:offset ids
// instead).
package memstore

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/trustless-go/trustless/pkg/blockstore"
)

// Store is a sync.RWMutex-guarded, map-backed blockstore.Store. Block ids
// are hex-encoded SHA-256 digests of the block's bytes.
type Store struct {
	mu         sync.RWMutex
	nodeID     string
	rings      map[string]map[uint64][]byte
	indices    map[string][]byte
	blocks     map[string][]byte
	changeLogs map[string][]blockstore.Change
}

func New(nodeID string) *Store {
	return &Store{
		nodeID:     nodeID,
		rings:      make(map[string]map[uint64][]byte),
		indices:    make(map[string][]byte),
		blocks:     make(map[string][]byte),
		changeLogs: make(map[string][]blockstore.Change),
	}
}

func (s *Store) NodeID() string { return s.nodeID }

func (s *Store) ListRingIDs() ([]blockstore.RingSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]blockstore.RingSummary, 0, len(s.rings))
	for id, versions := range s.rings {
		out = append(out, blockstore.RingSummary{RingID: id, Version: highestVersion(versions)})
	}
	return out, nil
}

func (s *Store) GetRing(ringID string) (uint64, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions, ok := s.rings[ringID]
	if !ok || len(versions) == 0 {
		return 0, nil, blockstore.Wrap(blockstore.KindInvalidBlock, "ring %q not found", ringID)
	}
	version := highestVersion(versions)
	data := make([]byte, len(versions[version]))
	copy(data, versions[version])
	return version, data, nil
}

func (s *Store) StoreRing(ringID string, version uint64, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions, ok := s.rings[ringID]
	if !ok {
		versions = make(map[uint64][]byte)
		s.rings[ringID] = versions
	}
	if _, exists := versions[version]; exists {
		return blockstore.Wrap(blockstore.KindConflict, "ring %q already has version %d", ringID, version)
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	versions[version] = stored
	return nil
}

func highestVersion(versions map[uint64][]byte) uint64 {
	var highest uint64
	first := true
	for v := range versions {
		if first || v > highest {
			highest = v
			first = false
		}
	}
	return highest
}

func (s *Store) ChangeLogs() ([]blockstore.ChangeLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]blockstore.ChangeLog, 0, len(s.changeLogs))
	for nodeID, changes := range s.changeLogs {
		cp := make([]blockstore.Change, len(changes))
		copy(cp, changes)
		out = append(out, blockstore.ChangeLog{NodeID: nodeID, Changes: cp})
	}
	return out, nil
}

func (s *Store) GetIndex(indexID string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.indices[indexID]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, true, nil
}

func (s *Store) StoreIndex(indexID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.indices[indexID] = stored
	return nil
}

func (s *Store) AddBlock(data []byte) (string, error) {
	id := contentHash(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.blocks[id]; exists {
		return id, nil
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	s.blocks[id] = stored
	return id, nil
}

func (s *Store) GetBlock(blockID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blocks[blockID]
	if !ok {
		return nil, blockstore.Wrap(blockstore.KindInvalidBlock, "block %q not found", blockID)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (s *Store) Commit(changes []blockstore.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.changeLogs[s.nodeID]
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[c.Op.String()+":"+c.BlockID] = true
	}
	for _, c := range changes {
		if seen[c.Op.String()+":"+c.BlockID] {
			return blockstore.Wrap(blockstore.KindConflict, "change %s %s already committed", c.Op, c.BlockID)
		}
	}
	s.changeLogs[s.nodeID] = append(existing, changes...)
	return nil
}

func (s *Store) UpdateChangeLog(log blockstore.ChangeLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]blockstore.Change, len(log.Changes))
	copy(cp, log.Changes)
	s.changeLogs[log.NodeID] = cp
	return nil
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
