package ring

import (
	"bytes"
	"testing"

	"github.com/trustless-go/trustless/pkg/blockstore/memstore"
	"github.com/trustless-go/trustless/pkg/cipher"
	"github.com/trustless-go/trustless/pkg/guard"
	"github.com/trustless-go/trustless/pkg/vault"
)

func testManager() *Manager {
	return NewManager(memstore.New("node1"), cipher.DefaultPipeline(), cipher.Argon2ID{})
}

func TestCreateIdentityAndUnlockRoundtrip(t *testing.T) {
	m := testManager()
	identity := vault.Identity{ID: "alice", Name: "Alice", Email: "alice@example.com"}
	pass := guard.FromBytes([]byte("hunter2"))
	defer pass.Close()

	if err := m.CreateIdentity(identity, pass); err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}

	unlocked, err := m.Unlock("alice", pass)
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	defer unlocked.Close()

	if unlocked.Identity != identity {
		t.Fatalf("unlocked identity = %+v, want %+v", unlocked.Identity, identity)
	}
	for _, suite := range m.Pipeline.Suites {
		if _, ok := unlocked.PrivateKey(suite.KeyType()); !ok {
			t.Errorf("missing private key for suite %s", suite.KeyType())
		}
	}
}

func TestCreateIdentityConflict(t *testing.T) {
	m := testManager()
	identity := vault.Identity{ID: "alice", Name: "Alice", Email: "alice@example.com"}
	pass := guard.FromBytes([]byte("hunter2"))
	defer pass.Close()

	if err := m.CreateIdentity(identity, pass); err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}
	if err := m.CreateIdentity(identity, pass); err != ErrConflict {
		t.Fatalf("second CreateIdentity returned %v, want ErrConflict", err)
	}
}

func TestUnlockWrongPassphraseFails(t *testing.T) {
	m := testManager()
	identity := vault.Identity{ID: "alice", Name: "Alice", Email: "alice@example.com"}
	pass := guard.FromBytes([]byte("hunter2"))
	defer pass.Close()
	if err := m.CreateIdentity(identity, pass); err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}

	wrong := guard.FromBytes([]byte("wrong password"))
	defer wrong.Close()
	if _, err := m.Unlock("alice", wrong); err != ErrInvalidPassphrase {
		t.Fatalf("Unlock with wrong passphrase = %v, want ErrInvalidPassphrase", err)
	}
}

func TestUnlockUnknownIdentity(t *testing.T) {
	m := testManager()
	pass := guard.FromBytes([]byte("whatever"))
	defer pass.Close()
	if _, err := m.Unlock("ghost", pass); err != ErrNotFound {
		t.Fatalf("Unlock unknown identity = %v, want ErrNotFound", err)
	}
}

func TestChangePassphraseThenUnlockWithNewOnly(t *testing.T) {
	m := testManager()
	identity := vault.Identity{ID: "alice", Name: "Alice", Email: "alice@example.com"}
	oldPass := guard.FromBytes([]byte("old-pass"))
	defer oldPass.Close()
	if err := m.CreateIdentity(identity, oldPass); err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}

	unlocked, err := m.Unlock("alice", oldPass)
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	newPass := guard.FromBytes([]byte("new-pass"))
	defer newPass.Close()
	if err := m.ChangePassphrase(unlocked, newPass); err != nil {
		t.Fatalf("ChangePassphrase: %v", err)
	}
	unlocked.Close()

	if _, err := m.Unlock("alice", oldPass); err != ErrInvalidPassphrase {
		t.Fatalf("Unlock with old passphrase after change = %v, want ErrInvalidPassphrase", err)
	}

	unlocked2, err := m.Unlock("alice", newPass)
	if err != nil {
		t.Fatalf("Unlock with new passphrase: %v", err)
	}
	defer unlocked2.Close()
}

func TestIdentitiesListsAllCreated(t *testing.T) {
	m := testManager()
	pass := guard.FromBytes([]byte("pw"))
	defer pass.Close()
	for _, name := range []string{"alice", "bob"} {
		if err := m.CreateIdentity(vault.Identity{ID: name, Name: name}, pass); err != nil {
			t.Fatalf("CreateIdentity(%s): %v", name, err)
		}
	}

	ids, err := m.Identities()
	if err != nil {
		t.Fatalf("Identities: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d identities, want 2", len(ids))
	}
}

func TestPublicKeyResolvesForKnownIdentity(t *testing.T) {
	m := testManager()
	pass := guard.FromBytes([]byte("pw"))
	defer pass.Close()
	if err := m.CreateIdentity(vault.Identity{ID: "alice"}, pass); err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}

	unlocked, err := m.Unlock("alice", pass)
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	defer unlocked.Close()

	for _, suite := range m.Pipeline.Suites {
		pub, err := m.PublicKey("alice", suite.KeyType())
		if err != nil {
			t.Fatalf("PublicKey(%s): %v", suite.KeyType(), err)
		}
		if !bytes.Equal(pub, unlocked.PublicKeys[suite.KeyType()]) {
			t.Errorf("PublicKey(%s) mismatch against Unlock result", suite.KeyType())
		}
	}
}

func TestPublicKeyUnknownIdentity(t *testing.T) {
	m := testManager()
	if _, err := m.PublicKey("ghost", cipher.KeyTypeRSAAESGCM); err != ErrNotFound {
		t.Fatalf("PublicKey(ghost) = %v, want ErrNotFound", err)
	}
}
