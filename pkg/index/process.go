package index

import (
	"sort"

	"github.com/trustless-go/trustless/pkg/blockstore"
	"github.com/trustless-go/trustless/pkg/vault"
)

// VersionAccessor decrypts and returns the SecretVersion stored at
// blockID, as the calling identity. A nil *vault.SecretVersion with a
// nil error means the block is unreadable by this identity (a
// different recipient's block sharing the same change log) and should
// be dropped from consideration rather than treated as an error.
type VersionAccessor func(blockID string) (*vault.SecretVersion, error)

// ProcessChangeLogs applies every change in logs that this index has
// not already incorporated (per log.heads), rebuilding affected
// entries. It reports changed=false without mutating the index if the
// effective change set (after removing added-then-deleted blocks) is
// empty.
func (e *Engine) ProcessChangeLogs(logs []blockstore.ChangeLog, accessor VersionAccessor) (changed bool, err error) {
	newHeads := make(map[string]blockstore.Change, len(logs))
	addedVersions := make(map[string]map[string]vault.SecretVersion)
	deletedBlocks := make(map[string]bool)
	addedBlocks := make(map[string]bool)

	for _, l := range logs {
		head, hasHead := e.Data.Heads[l.NodeID]
		var suffix []blockstore.Change
		if hasHead {
			suffix = changesSince(l, head)
		} else {
			suffix = l.Changes
		}

		for _, c := range suffix {
			switch c.Op {
			case blockstore.Add:
				addedBlocks[c.BlockID] = true
				version, err := accessor(c.BlockID)
				if err != nil {
					return false, err
				}
				if version == nil {
					continue
				}
				byBlock, ok := addedVersions[version.SecretID]
				if !ok {
					byBlock = make(map[string]vault.SecretVersion)
					addedVersions[version.SecretID] = byBlock
				}
				byBlock[c.BlockID] = *version
			case blockstore.Delete:
				deletedBlocks[c.BlockID] = true
			}
		}

		if len(l.Changes) > 0 {
			newHeads[l.NodeID] = l.Changes[len(l.Changes)-1]
		} else if hasHead {
			newHeads[l.NodeID] = head
		}
	}

	for blockID := range deletedBlocks {
		for _, byBlock := range addedVersions {
			delete(byBlock, blockID)
		}
		if !addedBlocks[blockID] {
			continue
		}
		referenced := false
		for _, entry := range e.Data.Entries {
			for _, id := range entry.BlockIDs {
				if id == blockID {
					referenced = true
				}
			}
		}
		if !referenced {
			delete(deletedBlocks, blockID)
		}
	}
	for secretID, byBlock := range addedVersions {
		if len(byBlock) == 0 {
			delete(addedVersions, secretID)
		}
	}

	if len(addedVersions) == 0 && len(deletedBlocks) == 0 {
		return false, nil
	}

	toKeep := e.collectEntriesToKeep(deletedBlocks)

	newEntries := make(map[string]Entry, len(toKeep)+len(addedVersions))

	for secretID, old := range e.Data.Entries {
		if !toKeep[secretID] {
			continue
		}
		added := addedVersions[secretID]
		merged := mergeBlockIDs(old.BlockIDs, added, deletedBlocks)

		var updated Entry
		if deletedBlocks[old.CurrentBlockID] {
			updated, err = recreateEntry(merged, added, accessor)
			if err != nil {
				return false, err
			}
		} else {
			updated = updateEntry(old, merged, added)
		}
		newEntries[secretID] = updated
	}

	for secretID, added := range addedVersions {
		if toKeep[secretID] {
			continue
		}
		ids := make([]string, 0, len(added))
		for id := range added {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		entry, err := recreateEntry(ids, added, accessor)
		if err != nil {
			return false, err
		}
		newEntries[secretID] = entry
	}

	e.Data.Entries = newEntries
	e.Data.Heads = newHeads
	return true, nil
}

// changesSince returns the suffix of log.Changes after head, or the
// whole log if head is not found in it (the log was rotated away from
// underneath this index, so it is reprocessed in full; applying an
// already-seen Add/Delete again is idempotent).
func changesSince(log blockstore.ChangeLog, head blockstore.Change) []blockstore.Change {
	for i, c := range log.Changes {
		if c == head {
			return log.Changes[i+1:]
		}
	}
	return log.Changes
}

func (e *Engine) collectEntriesToKeep(deletedBlocks map[string]bool) map[string]bool {
	toKeep := make(map[string]bool, len(e.Data.Entries))
	for secretID, old := range e.Data.Entries {
		for _, id := range old.BlockIDs {
			if !deletedBlocks[id] {
				toKeep[secretID] = true
				break
			}
		}
	}
	return toKeep
}

func mergeBlockIDs(oldIDs []string, added map[string]vault.SecretVersion, deleted map[string]bool) []string {
	set := make(map[string]bool, len(oldIDs)+len(added))
	for _, id := range oldIDs {
		if !deleted[id] {
			set[id] = true
		}
	}
	for id := range added {
		set[id] = true
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func applyVersion(e *Entry, v vault.SecretVersion) {
	e.Name = v.Name
	e.Type = v.Type
	e.Tags = v.Tags
	e.URLs = v.URLs
	e.Timestamp = v.Timestamp
	e.Deleted = v.Deleted
}

// updateEntry merges blockIDs into old and only moves "current" if a
// newly added version has a timestamp greater than the entry's current
// one (ties broken by the greater block id), per §4.H step 6.
func updateEntry(old Entry, mergedBlockIDs []string, added map[string]vault.SecretVersion) Entry {
	result := old
	result.BlockIDs = mergedBlockIDs

	currentBlockID := old.CurrentBlockID
	currentTimestamp := old.Timestamp

	addedIDs := make([]string, 0, len(added))
	for id := range added {
		addedIDs = append(addedIDs, id)
	}
	sort.Strings(addedIDs)

	for _, blockID := range addedIDs {
		v := added[blockID]
		if currentBlockID == "" ||
			currentTimestamp.Before(v.Timestamp) ||
			(currentTimestamp.Equal(v.Timestamp) && blockID > currentBlockID) {
			currentBlockID = blockID
			currentTimestamp = v.Timestamp
			applyVersion(&result, v)
		}
	}
	result.CurrentBlockID = currentBlockID
	result.Timestamp = currentTimestamp
	return result
}

// recreateEntry rebuilds an entry from scratch across blockIDs, used
// when the previous current block was deleted (or the secret_id is
// brand new). Blocks the accessor cannot resolve (garbage or
// inaccessible to this identity) are dropped from the kept id set.
func recreateEntry(blockIDs []string, added map[string]vault.SecretVersion, accessor VersionAccessor) (Entry, error) {
	var best *vault.SecretVersion
	bestBlockID := ""
	kept := make([]string, 0, len(blockIDs))

	for _, blockID := range blockIDs {
		var v *vault.SecretVersion
		if av, ok := added[blockID]; ok {
			cp := av
			v = &cp
		} else {
			got, err := accessor(blockID)
			if err != nil {
				return Entry{}, err
			}
			v = got
		}
		if v == nil {
			continue
		}
		kept = append(kept, blockID)
		if best == nil ||
			best.Timestamp.Before(v.Timestamp) ||
			(best.Timestamp.Equal(v.Timestamp) && blockID > bestBlockID) {
			best = v
			bestBlockID = blockID
		}
	}

	var entry Entry
	entry.BlockIDs = kept
	if best != nil {
		applyVersion(&entry, *best)
		entry.CurrentBlockID = bestBlockID
	}
	return entry, nil
}
