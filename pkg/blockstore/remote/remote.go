// Package remote is a blockstore.Store reached through an opaque
// file-like Client, keeping the actual transport (HTTP, SFTP, cloud
// object storage, ...) outside this module's scope.
package remote

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/trustless-go/trustless/pkg/blockstore"
)

// Client is the minimal file-like capability this store needs from a
// transport. Get returns ok=false (not an error) for a missing path.
type Client interface {
	Get(path string) (data []byte, ok bool, err error)
	Put(path string, data []byte) error
	List(prefix string) ([]string, error)
}

// Store lays its four entities out as paths under a fixed directory
// scheme: "rings/<id>/<version>", "blocks/<hash>", "indices/<id>",
// "changelogs/<nodeID>".
type Store struct {
	client Client
	nodeID string
}

func New(client Client, nodeID string) *Store {
	return &Store{client: client, nodeID: nodeID}
}

func (s *Store) NodeID() string { return s.nodeID }

func ringPath(ringID string, version uint64) string {
	return fmt.Sprintf("rings/%s/%d", ringID, version)
}

func (s *Store) ListRingIDs() ([]blockstore.RingSummary, error) {
	paths, err := s.client.List("rings/")
	if err != nil {
		return nil, blockstore.Wrap(blockstore.KindIO, "list rings: %w", err)
	}

	highest := make(map[string]uint64)
	for _, path := range paths {
		trimmed := strings.TrimPrefix(path, "rings/")
		idx := strings.LastIndex(trimmed, "/")
		if idx < 0 {
			continue
		}
		ringID := trimmed[:idx]
		version, err := strconv.ParseUint(trimmed[idx+1:], 10, 64)
		if err != nil {
			continue
		}
		if existing, ok := highest[ringID]; !ok || version > existing {
			highest[ringID] = version
		}
	}

	out := make([]blockstore.RingSummary, 0, len(highest))
	for id, version := range highest {
		out = append(out, blockstore.RingSummary{RingID: id, Version: version})
	}
	return out, nil
}

func (s *Store) GetRing(ringID string) (uint64, []byte, error) {
	summaries, err := s.ListRingIDs()
	if err != nil {
		return 0, nil, err
	}
	var version uint64
	found := false
	for _, summary := range summaries {
		if summary.RingID == ringID {
			version = summary.Version
			found = true
			break
		}
	}
	if !found {
		return 0, nil, blockstore.Wrap(blockstore.KindInvalidBlock, "ring %q not found", ringID)
	}

	data, ok, err := s.client.Get(ringPath(ringID, version))
	if err != nil {
		return 0, nil, blockstore.Wrap(blockstore.KindIO, "get ring %s: %w", ringID, err)
	}
	if !ok {
		return 0, nil, blockstore.Wrap(blockstore.KindInvalidBlock, "ring %q not found", ringID)
	}
	return version, data, nil
}

func (s *Store) StoreRing(ringID string, version uint64, data []byte) error {
	path := ringPath(ringID, version)
	if _, ok, err := s.client.Get(path); err != nil {
		return blockstore.Wrap(blockstore.KindIO, "check ring %s: %w", ringID, err)
	} else if ok {
		return blockstore.Wrap(blockstore.KindConflict, "ring %q already has version %d", ringID, version)
	}
	if err := s.client.Put(path, data); err != nil {
		return blockstore.Wrap(blockstore.KindIO, "store ring %s: %w", ringID, err)
	}
	return nil
}

func (s *Store) ChangeLogs() ([]blockstore.ChangeLog, error) {
	paths, err := s.client.List("changelogs/")
	if err != nil {
		return nil, blockstore.Wrap(blockstore.KindIO, "list change logs: %w", err)
	}

	var logs []blockstore.ChangeLog
	for _, path := range paths {
		data, ok, err := s.client.Get(path)
		if err != nil {
			return nil, blockstore.Wrap(blockstore.KindIO, "get change log %s: %w", path, err)
		}
		if !ok {
			continue
		}
		var changes []blockstore.Change
		if err := json.Unmarshal(data, &changes); err != nil {
			return nil, blockstore.Wrap(blockstore.KindIO, "decode change log %s: %w", path, err)
		}
		logs = append(logs, blockstore.ChangeLog{
			NodeID:  strings.TrimPrefix(path, "changelogs/"),
			Changes: changes,
		})
	}
	return logs, nil
}

func (s *Store) GetIndex(indexID string) ([]byte, bool, error) {
	data, ok, err := s.client.Get("indices/" + indexID)
	if err != nil {
		return nil, false, blockstore.Wrap(blockstore.KindIO, "get index %s: %w", indexID, err)
	}
	return data, ok, nil
}

func (s *Store) StoreIndex(indexID string, data []byte) error {
	if err := s.client.Put("indices/"+indexID, data); err != nil {
		return blockstore.Wrap(blockstore.KindIO, "store index %s: %w", indexID, err)
	}
	return nil
}

func (s *Store) AddBlock(data []byte) (string, error) {
	id := contentHash(data)
	path := "blocks/" + id
	if _, ok, err := s.client.Get(path); err != nil {
		return "", blockstore.Wrap(blockstore.KindIO, "check block: %w", err)
	} else if ok {
		return id, nil
	}
	if err := s.client.Put(path, data); err != nil {
		return "", blockstore.Wrap(blockstore.KindIO, "store block: %w", err)
	}
	return id, nil
}

func (s *Store) GetBlock(blockID string) ([]byte, error) {
	data, ok, err := s.client.Get("blocks/" + blockID)
	if err != nil {
		return nil, blockstore.Wrap(blockstore.KindIO, "get block %s: %w", blockID, err)
	}
	if !ok {
		return nil, blockstore.Wrap(blockstore.KindInvalidBlock, "block %q not found", blockID)
	}
	return data, nil
}

func (s *Store) changeLogPath(nodeID string) string {
	return "changelogs/" + nodeID
}

func (s *Store) Commit(changes []blockstore.Change) error {
	path := s.changeLogPath(s.nodeID)
	var existing []blockstore.Change
	data, ok, err := s.client.Get(path)
	if err != nil {
		return blockstore.Wrap(blockstore.KindIO, "get own change log: %w", err)
	}
	if ok {
		if err := json.Unmarshal(data, &existing); err != nil {
			return blockstore.Wrap(blockstore.KindIO, "decode own change log: %w", err)
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
		return blockstore.Wrap(blockstore.KindIO, "encode change log: %w", err)
	}
	if err := s.client.Put(path, updated); err != nil {
		return blockstore.Wrap(blockstore.KindIO, "store own change log: %w", err)
	}
	return nil
}

func (s *Store) UpdateChangeLog(log blockstore.ChangeLog) error {
	data, err := json.Marshal(log.Changes)
	if err != nil {
		return blockstore.Wrap(blockstore.KindIO, "encode change log: %w", err)
	}
	if err := s.client.Put(s.changeLogPath(log.NodeID), data); err != nil {
		return blockstore.Wrap(blockstore.KindIO, "store change log %s: %w", log.NodeID, err)
	}
	return nil
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
