package secret

import (
	"testing"
	"time"

	"github.com/trustless-go/trustless/pkg/blockstore/memstore"
	"github.com/trustless-go/trustless/pkg/cipher"
	"github.com/trustless-go/trustless/pkg/guard"
	"github.com/trustless-go/trustless/pkg/ring"
	"github.com/trustless-go/trustless/pkg/vault"
)

func newIdentity(t *testing.T, m *ring.Manager, id string, pass string) *ring.Unlocked {
	t.Helper()
	p := guard.FromBytes([]byte(pass))
	defer p.Close()
	if err := m.CreateIdentity(vault.Identity{ID: id, Name: id}, p); err != nil {
		t.Fatalf("CreateIdentity(%s): %v", id, err)
	}
	u, err := m.Unlock(id, p)
	if err != nil {
		t.Fatalf("Unlock(%s): %v", id, err)
	}
	return u
}

func TestEncodeDecodeRoundtrip(t *testing.T) {
	pipeline := cipher.DefaultPipeline()
	m := ring.NewManager(memstore.New("node1"), pipeline, cipher.Argon2ID{})
	alice := newIdentity(t, m, "alice", "hunter2")
	defer alice.Close()

	version := vault.SecretVersion{
		SecretID:   "s1",
		Type:       vault.SecretTypeLogin,
		Timestamp:  time.Now(),
		Name:       "Mail",
		Properties: map[string]string{"username": "a@example.com", "password": "hunter2"},
		Recipients: []string{"alice"},
	}

	codec := Codec{Pipeline: pipeline}
	blockBytes, err := codec.Encode(m, version)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := codec.Decode("alice", alice, blockBytes)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Name != version.Name || got.Properties["password"] != "hunter2" {
		t.Fatalf("decoded version mismatch: %+v", got)
	}
}

func TestDecodeNonRecipientFails(t *testing.T) {
	pipeline := cipher.DefaultPipeline()
	m := ring.NewManager(memstore.New("node1"), pipeline, cipher.Argon2ID{})
	alice := newIdentity(t, m, "alice", "hunter2")
	defer alice.Close()
	bob := newIdentity(t, m, "bob", "swordfish")
	defer bob.Close()

	version := vault.SecretVersion{
		SecretID:   "s1",
		Type:       vault.SecretTypeLogin,
		Timestamp:  time.Now(),
		Name:       "Mail",
		Properties: map[string]string{"password": "hunter2"},
		Recipients: []string{"alice"},
	}

	codec := Codec{Pipeline: pipeline}
	blockBytes, err := codec.Encode(m, version)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if _, err := codec.Decode("bob", bob, blockBytes); err != cipher.ErrNoRecipient {
		t.Fatalf("Decode as non-recipient = %v, want ErrNoRecipient", err)
	}
}

func TestDecodeMalformedBlock(t *testing.T) {
	pipeline := cipher.DefaultPipeline()
	m := ring.NewManager(memstore.New("node1"), pipeline, cipher.Argon2ID{})
	alice := newIdentity(t, m, "alice", "hunter2")
	defer alice.Close()

	codec := Codec{Pipeline: pipeline}
	if _, err := codec.Decode("alice", alice, []byte("not json at all")); err == nil {
		t.Fatalf("expected error decoding malformed block")
	}
}

func TestEncodeBlockDecodeBlockRoundtrip(t *testing.T) {
	pipeline := cipher.DefaultPipeline()
	m := ring.NewManager(memstore.New("node1"), pipeline, cipher.Argon2ID{})
	alice := newIdentity(t, m, "alice", "hunter2")
	defer alice.Close()

	payload := []byte(`{"heads":{},"entries":{}}`)
	sealed, err := EncodeBlock(pipeline, m, []string{"alice"}, payload)
	if err != nil {
		t.Fatalf("EncodeBlock: %v", err)
	}
	got, err := DecodeBlock("alice", alice, pipeline, sealed)
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("DecodeBlock = %q, want %q", got, payload)
	}
}

func TestEncodeBlockWithNULHandlesRandomFrontBackPadding(t *testing.T) {
	pipeline := cipher.DefaultPipeline()
	m := ring.NewManager(memstore.New("node1"), pipeline, cipher.Argon2ID{})
	alice := newIdentity(t, m, "alice", "hunter2")
	defer alice.Close()

	payload := []byte{0x00, 0x01, 0x00, 0x02, 0x00}
	sealed, err := EncodeBlock(pipeline, m, []string{"alice"}, payload)
	if err != nil {
		t.Fatalf("EncodeBlock: %v", err)
	}
	got, err := DecodeBlock("alice", alice, pipeline, sealed)
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	if len(got) != len(payload) {
		t.Fatalf("DecodeBlock length = %d, want %d", len(got), len(payload))
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Fatalf("DecodeBlock mismatch at %d: got %v want %v", i, got, payload)
		}
	}
}
