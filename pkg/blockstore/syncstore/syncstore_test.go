package syncstore

import (
	"testing"

	"github.com/trustless-go/trustless/pkg/blockstore"
	"github.com/trustless-go/trustless/pkg/blockstore/memstore"
)

func TestGetRingFallsBackToRemote(t *testing.T) {
	local := memstore.New("node-a")
	remote := memstore.New("node-b")
	store := New(local, remote)

	if err := remote.StoreRing("alice", 0, []byte("remote-v0")); err != nil {
		t.Fatalf("seed remote ring: %v", err)
	}

	version, data, err := store.GetRing("alice")
	if err != nil {
		t.Fatalf("GetRing: %v", err)
	}
	if version != 0 || string(data) != "remote-v0" {
		t.Fatalf("GetRing = (%d, %q), want (0, %q)", version, data, "remote-v0")
	}
}

func TestGetRingPrefersLocal(t *testing.T) {
	local := memstore.New("node-a")
	remote := memstore.New("node-b")
	store := New(local, remote)

	if err := local.StoreRing("alice", 0, []byte("local-v0")); err != nil {
		t.Fatalf("seed local ring: %v", err)
	}
	if err := remote.StoreRing("alice", 1, []byte("remote-v1")); err != nil {
		t.Fatalf("seed remote ring: %v", err)
	}

	_, data, err := store.GetRing("alice")
	if err != nil {
		t.Fatalf("GetRing: %v", err)
	}
	if string(data) != "local-v0" {
		t.Fatalf("GetRing = %q, want local value %q even though remote has a newer version", data, "local-v0")
	}
}

func TestGetRingUnknownEverywhere(t *testing.T) {
	store := New(memstore.New("node-a"), memstore.New("node-b"))
	if _, _, err := store.GetRing("nobody"); !blockstore.IsInvalidBlock(err) {
		t.Fatalf("expected InvalidBlock error, got %v", err)
	}
}

func TestGetBlockFallsBackToRemote(t *testing.T) {
	local := memstore.New("node-a")
	remote := memstore.New("node-b")
	store := New(local, remote)

	id, err := remote.AddBlock([]byte("payload"))
	if err != nil {
		t.Fatalf("seed remote block: %v", err)
	}

	got, err := store.GetBlock(id)
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("GetBlock = %q, want %q", got, "payload")
	}
}

func TestWritesOnlyTouchLocal(t *testing.T) {
	local := memstore.New("node-a")
	remote := memstore.New("node-b")
	store := New(local, remote)

	id, err := store.AddBlock([]byte("local-only"))
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if _, err := remote.GetBlock(id); !blockstore.IsInvalidBlock(err) {
		t.Fatalf("expected block to be absent from remote, got err=%v", err)
	}
	if _, err := local.GetBlock(id); err != nil {
		t.Fatalf("expected block present on local, got err=%v", err)
	}

	if err := store.Commit([]blockstore.Change{{Op: blockstore.Add, BlockID: id}}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	logs, err := remote.ChangeLogs()
	if err != nil {
		t.Fatalf("remote.ChangeLogs: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("expected Commit to leave remote's change logs untouched, got %v", logs)
	}
}

func TestUpdateChangeLogIsNoOp(t *testing.T) {
	store := New(memstore.New("node-a"), memstore.New("node-b"))
	err := store.UpdateChangeLog(blockstore.ChangeLog{NodeID: "node-c", Changes: []blockstore.Change{{Op: blockstore.Add, BlockID: "x"}}})
	if err != nil {
		t.Fatalf("UpdateChangeLog: %v", err)
	}
	logs, err := store.ChangeLogs()
	if err != nil {
		t.Fatalf("ChangeLogs: %v", err)
	}
	for _, l := range logs {
		if l.NodeID == "node-c" {
			t.Fatalf("UpdateChangeLog should be a no-op, but node-c's log was recorded: %v", l)
		}
	}
}
