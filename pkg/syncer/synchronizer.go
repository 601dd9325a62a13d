package syncer

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/trustless-go/trustless/pkg/blockstore"
	"github.com/trustless-go/trustless/pkg/log"
)

// Synchronizer reconciles Local against Remote on Interval, or on demand
// via SyncNow. Only one pass runs at a time; a background Run loop and a
// caller's SyncNow share the same mutex.
type Synchronizer struct {
	Local    blockstore.Store
	Remote   blockstore.Store
	Interval time.Duration

	mu     stdsync.Mutex
	logger zerolog.Logger
}

func New(local, remote blockstore.Store, interval time.Duration) *Synchronizer {
	return &Synchronizer{
		Local:    local,
		Remote:   remote,
		Interval: interval,
		logger:   log.WithNode(log.WithComponent("synchronizer"), local.NodeID()),
	}
}

// Run wakes on Interval until ctx is cancelled, taking the exclusive lock
// and running one pass per tick. Pass failures are logged, not returned;
// the loop keeps ticking.
func (s *Synchronizer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SyncNow(ctx); err != nil {
				s.logger.Error().Err(err).Msg("synchronization pass failed")
			}
		}
	}
}

// SyncNow runs one synchronization pass inline, under the same lock Run
// uses.
func (s *Synchronizer) SyncNow(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reconcileRings(); err != nil {
		return fmt.Errorf("syncer: reconcile rings: %w", err)
	}
	if err := s.reconcileBlocks(); err != nil {
		return fmt.Errorf("syncer: reconcile blocks: %w", err)
	}
	if err := s.reconcileChangeLogs(); err != nil {
		return fmt.Errorf("syncer: reconcile change logs: %w", err)
	}
	return nil
}

func (s *Synchronizer) reconcileRings() error {
	localRings, err := s.Local.ListRingIDs()
	if err != nil {
		return fmt.Errorf("list local rings: %w", err)
	}
	remoteRings, err := s.Remote.ListRingIDs()
	if err != nil {
		return fmt.Errorf("list remote rings: %w", err)
	}

	localVersions := make(map[string]uint64, len(localRings))
	for _, r := range localRings {
		localVersions[r.RingID] = r.Version
	}
	remoteVersions := make(map[string]uint64, len(remoteRings))
	for _, r := range remoteRings {
		remoteVersions[r.RingID] = r.Version
	}

	ids := make(map[string]bool, len(localVersions)+len(remoteVersions))
	for id := range localVersions {
		ids[id] = true
	}
	for id := range remoteVersions {
		ids[id] = true
	}

	for id := range ids {
		lv, lok := localVersions[id]
		rv, rok := remoteVersions[id]

		if rok && (!lok || rv > lv) {
			version, data, err := s.Remote.GetRing(id)
			if err != nil {
				return fmt.Errorf("get remote ring %s: %w", id, err)
			}
			if err := s.Local.StoreRing(id, version, data); err != nil && !blockstore.IsConflict(err) {
				return fmt.Errorf("store local ring %s: %w", id, err)
			}
		}
		if lok && (!rok || lv > rv) {
			version, data, err := s.Local.GetRing(id)
			if err != nil {
				return fmt.Errorf("get local ring %s: %w", id, err)
			}
			if err := s.Remote.StoreRing(id, version, data); err != nil && !blockstore.IsConflict(err) {
				return fmt.Errorf("store remote ring %s: %w", id, err)
			}
		}
	}
	return nil
}

type blockSets struct {
	added   map[string]bool
	removed map[string]bool
}

func partitionChanges(changes []blockstore.Change) blockSets {
	sets := blockSets{added: make(map[string]bool), removed: make(map[string]bool)}
	for _, c := range changes {
		switch c.Op {
		case blockstore.Add:
			sets.added[c.BlockID] = true
		case blockstore.Delete:
			sets.removed[c.BlockID] = true
		}
	}
	return sets
}

func (sets blockSets) existing() map[string]bool {
	existing := make(map[string]bool, len(sets.added))
	for id := range sets.added {
		if !sets.removed[id] {
			existing[id] = true
		}
	}
	return existing
}

func (s *Synchronizer) reconcileBlocks() error {
	localLogs, err := s.Local.ChangeLogs()
	if err != nil {
		return fmt.Errorf("list local change logs: %w", err)
	}
	var localChanges []blockstore.Change
	for _, l := range localLogs {
		if l.NodeID == s.Local.NodeID() {
			localChanges = l.Changes
			break
		}
	}
	localSets := partitionChanges(localChanges)
	localExisting := localSets.existing()

	remoteLogs, err := s.Remote.ChangeLogs()
	if err != nil {
		return fmt.Errorf("list remote change logs: %w", err)
	}
	var remoteChanges []blockstore.Change
	for _, l := range remoteLogs {
		remoteChanges = append(remoteChanges, l.Changes...)
	}
	remoteSets := partitionChanges(remoteChanges)
	remoteExisting := remoteSets.existing()

	for id := range remoteExisting {
		if localExisting[id] || localSets.removed[id] {
			continue
		}
		data, err := s.Remote.GetBlock(id)
		if err != nil {
			return fmt.Errorf("download block %s: %w", id, err)
		}
		if _, err := s.Local.AddBlock(data); err != nil {
			return fmt.Errorf("store downloaded block %s: %w", id, err)
		}
	}

	for id := range localExisting {
		if remoteExisting[id] || remoteSets.removed[id] {
			continue
		}
		data, err := s.Local.GetBlock(id)
		if err != nil {
			return fmt.Errorf("read local block %s: %w", id, err)
		}
		if _, err := s.Remote.AddBlock(data); err != nil {
			return fmt.Errorf("upload block %s: %w", id, err)
		}
	}
	return nil
}

func (s *Synchronizer) reconcileChangeLogs() error {
	remoteLogs, err := s.Remote.ChangeLogs()
	if err != nil {
		return fmt.Errorf("list remote change logs: %w", err)
	}
	for _, l := range remoteLogs {
		if l.NodeID == s.Local.NodeID() {
			continue
		}
		if err := s.Local.UpdateChangeLog(l); err != nil {
			return fmt.Errorf("mirror change log %s locally: %w", l.NodeID, err)
		}
	}

	localLogs, err := s.Local.ChangeLogs()
	if err != nil {
		return fmt.Errorf("list local change logs: %w", err)
	}
	for _, l := range localLogs {
		if l.NodeID != s.Local.NodeID() {
			continue
		}
		if err := s.Remote.UpdateChangeLog(l); err != nil {
			return fmt.Errorf("push local change log to remote: %w", err)
		}
	}
	return nil
}
