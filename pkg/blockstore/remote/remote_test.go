package remote

import (
	"strings"
	"sync"
	"testing"

	"github.com/trustless-go/trustless/pkg/blockstore"
)

// fakeClient is an in-memory Client, standing in for a real file-like
// transport in tests.
type fakeClient struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeClient() *fakeClient {
	return &fakeClient{files: make(map[string][]byte)}
}

func (c *fakeClient) Get(path string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.files[path]
	return data, ok, nil
}

func (c *fakeClient) Put(path string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[path] = append([]byte(nil), data...)
	return nil
}

func (c *fakeClient) List(prefix string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for path := range c.files {
		if strings.HasPrefix(path, prefix) {
			out = append(out, path)
		}
	}
	return out, nil
}

func TestRemoteStoreRingVersioning(t *testing.T) {
	store := New(newFakeClient(), "node-a")

	if err := store.StoreRing("alice", 0, []byte("v0")); err != nil {
		t.Fatalf("StoreRing: %v", err)
	}
	if err := store.StoreRing("alice", 1, []byte("v1")); err != nil {
		t.Fatalf("StoreRing: %v", err)
	}
	if err := store.StoreRing("alice", 1, []byte("dup")); !blockstore.IsConflict(err) {
		t.Fatalf("expected Conflict, got %v", err)
	}

	version, data, err := store.GetRing("alice")
	if err != nil || version != 1 || string(data) != "v1" {
		t.Fatalf("GetRing = (%d, %q, %v), want (1, %q, nil)", version, data, err, "v1")
	}
}

func TestRemoteStoreBlockIdempotent(t *testing.T) {
	store := New(newFakeClient(), "node-a")

	id1, err := store.AddBlock([]byte("payload"))
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	id2, err := store.AddBlock([]byte("payload"))
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("AddBlock not idempotent: %s != %s", id1, id2)
	}

	data, err := store.GetBlock(id1)
	if err != nil || string(data) != "payload" {
		t.Fatalf("GetBlock = %q, %v, want %q", data, err, "payload")
	}
}

func TestRemoteStoreCommitConflict(t *testing.T) {
	store := New(newFakeClient(), "node-a")
	change := blockstore.Change{Op: blockstore.Add, BlockID: "b1"}

	if err := store.Commit([]blockstore.Change{change}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := store.Commit([]blockstore.Change{change}); !blockstore.IsConflict(err) {
		t.Fatalf("expected Conflict, got %v", err)
	}
}
