// Package syncstore wraps a local and a remote blockstore.Store into a
// single blockstore.Store: every write lands on local only, but a read
// that misses locally falls through to remote, so a ring or block that
// exists on the other side of a synchronization link is still reachable
// before the next reconciliation pass pulls it in. It is the Store
// counterpart to pkg/syncer's out-of-band reconciliation: the two share
// the same Local/Remote pair, one serving reads transparently, the
// other periodically converging their contents.
package syncstore

import (
	"github.com/trustless-go/trustless/pkg/blockstore"
)

// Store delegates every call to Local except GetRing and GetBlock,
// which retry against Remote when Local reports InvalidBlock.
// UpdateChangeLog is a deliberate no-op: nothing synchronizes a
// sync-wrapped store into another sync-wrapped store, so there is no
// foreign change log for it to accept.
type Store struct {
	Local  blockstore.Store
	Remote blockstore.Store
}

// New wraps local and remote. local is the authoritative write target;
// remote is consulted only to satisfy a read local cannot.
func New(local, remote blockstore.Store) *Store {
	return &Store{Local: local, Remote: remote}
}

func (s *Store) NodeID() string { return s.Local.NodeID() }

func (s *Store) ListRingIDs() ([]blockstore.RingSummary, error) {
	return s.Local.ListRingIDs()
}

// GetRing tries Local first and falls back to Remote on InvalidBlock,
// so a ring created on another node is visible here before the next
// sync pass copies it down.
func (s *Store) GetRing(ringID string) (uint64, []byte, error) {
	version, data, err := s.Local.GetRing(ringID)
	if blockstore.IsInvalidBlock(err) {
		return s.Remote.GetRing(ringID)
	}
	return version, data, err
}

func (s *Store) StoreRing(ringID string, version uint64, data []byte) error {
	return s.Local.StoreRing(ringID, version, data)
}

func (s *Store) ChangeLogs() ([]blockstore.ChangeLog, error) {
	return s.Local.ChangeLogs()
}

func (s *Store) GetIndex(indexID string) ([]byte, bool, error) {
	return s.Local.GetIndex(indexID)
}

func (s *Store) StoreIndex(indexID string, data []byte) error {
	return s.Local.StoreIndex(indexID, data)
}

func (s *Store) AddBlock(data []byte) (string, error) {
	return s.Local.AddBlock(data)
}

// GetBlock tries Local first and falls back to Remote on InvalidBlock,
// the same way GetRing does.
func (s *Store) GetBlock(blockID string) ([]byte, error) {
	data, err := s.Local.GetBlock(blockID)
	if blockstore.IsInvalidBlock(err) {
		return s.Remote.GetBlock(blockID)
	}
	return data, err
}

func (s *Store) Commit(changes []blockstore.Change) error {
	return s.Local.Commit(changes)
}

func (s *Store) UpdateChangeLog(log blockstore.ChangeLog) error {
	return nil
}

var _ blockstore.Store = (*Store)(nil)
