// Package localdir is a local-directory blockstore.Store: rings are
// individual files, blocks are appended to one growing file per node with
// an 8-byte little-endian length prefix per entry, commits are lines in a
// text file, and indices are one file per (node, index) pair.
package localdir

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/trustless-go/trustless/pkg/blockstore"
)

// Store is a directory-backed blockstore.Store. Block identity here is
// "<nodeID>:<offset>" — an append-only local sequence id, not a content
// hash; cross-store equality of content does not imply id equality.
type Store struct {
	dir    string
	nodeID string

	mu sync.Mutex
}

func New(dir, nodeID string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, blockstore.Wrap(blockstore.KindIO, "create store dir %s: %w", dir, err)
	}
	return &Store{dir: dir, nodeID: nodeID}, nil
}

func (s *Store) NodeID() string { return s.nodeID }

func (s *Store) ringPath(ringID string, version uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.%d.ring", ringID, version))
}

func (s *Store) blocksPath(nodeID string) string {
	return filepath.Join(s.dir, nodeID+".blocks")
}

func (s *Store) commitsPath(nodeID string) string {
	return filepath.Join(s.dir, nodeID+".commits")
}

func (s *Store) indexPath(nodeID, indexID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.%s.index", nodeID, indexID))
}

func (s *Store) ListRingIDs() ([]blockstore.RingSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, blockstore.Wrap(blockstore.KindIO, "read store dir: %w", err)
	}

	highest := make(map[string]uint64)
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".ring") {
			continue
		}
		ringID, version, ok := parseRingFilename(name)
		if !ok {
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

func parseRingFilename(name string) (ringID string, version uint64, ok bool) {
	trimmed := strings.TrimSuffix(name, ".ring")
	idx := strings.LastIndex(trimmed, ".")
	if idx < 0 {
		return "", 0, false
	}
	version, err := strconv.ParseUint(trimmed[idx+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return trimmed[:idx], version, true
}

func (s *Store) GetRing(ringID string) (uint64, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.listRingIDsLocked()
	if err != nil {
		return 0, nil, err
	}
	var version uint64
	found := false
	for _, summary := range ids {
		if summary.RingID == ringID {
			version = summary.Version
			found = true
			break
		}
	}
	if !found {
		return 0, nil, blockstore.Wrap(blockstore.KindInvalidBlock, "ring %q not found", ringID)
	}

	data, err := os.ReadFile(s.ringPath(ringID, version))
	if err != nil {
		return 0, nil, blockstore.Wrap(blockstore.KindIO, "read ring %s: %w", ringID, err)
	}
	return version, data, nil
}

func (s *Store) listRingIDsLocked() ([]blockstore.RingSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, blockstore.Wrap(blockstore.KindIO, "read store dir: %w", err)
	}
	highest := make(map[string]uint64)
	for _, entry := range entries {
		ringID, version, ok := parseRingFilename(entry.Name())
		if !ok {
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

func (s *Store) StoreRing(ringID string, version uint64, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.ringPath(ringID, version)
	if _, err := os.Stat(path); err == nil {
		return blockstore.Wrap(blockstore.KindConflict, "ring %q already has version %d", ringID, version)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return blockstore.Wrap(blockstore.KindIO, "write ring %s: %w", ringID, err)
	}
	return nil
}

func (s *Store) AddBlock(data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.blocksPath(s.nodeID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return "", blockstore.Wrap(blockstore.KindIO, "open blocks file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", blockstore.Wrap(blockstore.KindIO, "stat blocks file: %w", err)
	}
	offset := info.Size()

	header := make([]byte, 8)
	binary.LittleEndian.PutUint64(header, uint64(len(data)))
	if _, err := f.Write(header); err != nil {
		return "", blockstore.Wrap(blockstore.KindIO, "write block header: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		return "", blockstore.Wrap(blockstore.KindIO, "write block body: %w", err)
	}

	return fmt.Sprintf("%s:%d", s.nodeID, offset), nil
}

func (s *Store) GetBlock(blockID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodeID, offset, err := parseBlockID(blockID)
	if err != nil {
		return nil, blockstore.Wrap(blockstore.KindInvalidBlock, "%w", err)
	}

	f, err := os.Open(s.blocksPath(nodeID))
	if err != nil {
		return nil, blockstore.Wrap(blockstore.KindInvalidBlock, "block %q not found: %w", blockID, err)
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, blockstore.Wrap(blockstore.KindInvalidBlock, "seek to block %q: %w", blockID, err)
	}
	header := make([]byte, 8)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, blockstore.Wrap(blockstore.KindInvalidBlock, "read block %q header: %w", blockID, err)
	}
	length := binary.LittleEndian.Uint64(header)
	data := make([]byte, length)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, blockstore.Wrap(blockstore.KindInvalidBlock, "read block %q body: %w", blockID, err)
	}
	return data, nil
}

func parseBlockID(blockID string) (nodeID string, offset int64, err error) {
	idx := strings.LastIndex(blockID, ":")
	if idx < 0 {
		return "", 0, fmt.Errorf("malformed block id %q", blockID)
	}
	offset, err = strconv.ParseInt(blockID[idx+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed block id %q: %w", blockID, err)
	}
	return blockID[:idx], offset, nil
}

func (s *Store) Commit(changes []blockstore.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readCommitsLocked(s.nodeID)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[c.Op.String()+" "+c.BlockID] = true
	}
	for _, c := range changes {
		if seen[c.Op.String()+" "+c.BlockID] {
			return blockstore.Wrap(blockstore.KindConflict, "change %s %s already committed", c.Op, c.BlockID)
		}
	}

	f, err := os.OpenFile(s.commitsPath(s.nodeID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return blockstore.Wrap(blockstore.KindIO, "open commits file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, c := range changes {
		if _, err := fmt.Fprintf(w, "%s %s\n", c.Op, c.BlockID); err != nil {
			return blockstore.Wrap(blockstore.KindIO, "write commit: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return blockstore.Wrap(blockstore.KindIO, "flush commits file: %w", err)
	}
	return nil
}

func (s *Store) readCommitsLocked(nodeID string) ([]blockstore.Change, error) {
	f, err := os.Open(s.commitsPath(nodeID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, blockstore.Wrap(blockstore.KindIO, "open commits file: %w", err)
	}
	defer f.Close()

	var changes []blockstore.Change
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			continue
		}
		op := blockstore.Add
		if parts[0] == "D" {
			op = blockstore.Delete
		}
		changes = append(changes, blockstore.Change{Op: op, BlockID: parts[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, blockstore.Wrap(blockstore.KindIO, "scan commits file: %w", err)
	}
	return changes, nil
}

func (s *Store) ChangeLogs() ([]blockstore.ChangeLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, blockstore.Wrap(blockstore.KindIO, "read store dir: %w", err)
	}

	var logs []blockstore.ChangeLog
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".commits") {
			continue
		}
		nodeID := strings.TrimSuffix(name, ".commits")
		changes, err := s.readCommitsLocked(nodeID)
		if err != nil {
			return nil, err
		}
		logs = append(logs, blockstore.ChangeLog{NodeID: nodeID, Changes: changes})
	}
	return logs, nil
}

func (s *Store) UpdateChangeLog(log blockstore.ChangeLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.commitsPath(log.NodeID), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return blockstore.Wrap(blockstore.KindIO, "rewrite commits file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, c := range log.Changes {
		if _, err := fmt.Fprintf(w, "%s %s\n", c.Op, c.BlockID); err != nil {
			return blockstore.Wrap(blockstore.KindIO, "write commit: %w", err)
		}
	}
	return w.Flush()
}

func (s *Store) GetIndex(indexID string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.indexPath(s.nodeID, indexID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, blockstore.Wrap(blockstore.KindIO, "read index %s: %w", indexID, err)
	}
	return data, true, nil
}

func (s *Store) StoreIndex(indexID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.indexPath(s.nodeID, indexID), data, 0600); err != nil {
		return blockstore.Wrap(blockstore.KindIO, "write index %s: %w", indexID, err)
	}
	return nil
}
