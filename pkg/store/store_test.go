package store

import (
	"testing"
	"time"

	"github.com/trustless-go/trustless/pkg/blockstore/memstore"
	"github.com/trustless-go/trustless/pkg/cipher"
	"github.com/trustless-go/trustless/pkg/events"
	"github.com/trustless-go/trustless/pkg/guard"
	"github.com/trustless-go/trustless/pkg/vault"
)

func newTestStore(t *testing.T) *SecretsStore {
	t.Helper()
	pipeline := cipher.DefaultPipeline()
	hub := events.NewHub(32)
	return New("test", memstore.New("node1"), pipeline, cipher.Argon2ID{}, hub)
}

func createAndUnlock(t *testing.T, s *SecretsStore, identityID, passphrase string) {
	t.Helper()
	pass := guard.FromBytes([]byte(passphrase))
	defer pass.Close()
	if err := s.AddIdentity(vault.Identity{ID: identityID, Name: identityID}, pass); err != nil {
		t.Fatalf("AddIdentity(%s): %v", identityID, err)
	}
	if err := s.Unlock(identityID, pass, time.Minute); err != nil {
		t.Fatalf("Unlock(%s): %v", identityID, err)
	}
}

func TestSingleIdentityRoundTrip(t *testing.T) {
	s := newTestStore(t)
	createAndUnlock(t, s, "alice", "pw")

	if err := s.Add(vault.SecretVersion{
		SecretID:   "s1",
		Type:       vault.SecretTypeLogin,
		Name:       "Mail",
		Properties: map[string]string{"username": "a@example.com", "password": "hunter2"},
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := s.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	pass := guard.FromBytes([]byte("pw"))
	defer pass.Close()
	if err := s.Unlock("alice", pass, time.Minute); err != nil {
		t.Fatalf("re-Unlock: %v", err)
	}

	list, err := listEntries(s)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Entries) != 1 || list.Entries[0].Entry.Name != "Mail" {
		t.Fatalf("list = %+v, want one entry named Mail", list.Entries)
	}

	secretOut, err := s.Get("s1", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if secretOut.Current.Properties["password"] != "hunter2" {
		t.Fatalf("Get returned wrong password: %+v", secretOut.Current.Properties)
	}
}

func listEntries(s *SecretsStore) (vault.SecretList, error) {
	if err := s.UpdateIndex(); err != nil {
		return vault.SecretList{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.index.List(vault.SecretListFilter{}), nil
}

func TestMultiRecipientBothCanRead(t *testing.T) {
	s := newTestStore(t)
	createAndUnlock(t, s, "alice", "alice-pw")
	s.Lock()
	createAndUnlock(t, s, "bob", "bob-pw")
	s.Lock()

	alicePass := guard.FromBytes([]byte("alice-pw"))
	defer alicePass.Close()
	if err := s.Unlock("alice", alicePass, time.Minute); err != nil {
		t.Fatalf("Unlock alice: %v", err)
	}
	if err := s.Add(vault.SecretVersion{
		SecretID:   "shared1",
		Type:       vault.SecretTypeLogin,
		Name:       "Shared Login",
		Properties: map[string]string{"password": "s3cr3t"},
		Recipients: []string{"alice", "bob"},
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	bobPass := guard.FromBytes([]byte("bob-pw"))
	defer bobPass.Close()
	if err := s.Unlock("bob", bobPass, time.Minute); err != nil {
		t.Fatalf("Unlock bob: %v", err)
	}

	secretOut, err := s.Get("shared1", nil)
	if err != nil {
		t.Fatalf("Get as bob: %v", err)
	}
	if secretOut.Current.Properties["password"] != "s3cr3t" {
		t.Fatalf("unexpected properties: %+v", secretOut.Current.Properties)
	}
}

func TestAddWhenLockedFails(t *testing.T) {
	s := newTestStore(t)
	if err := s.Add(vault.SecretVersion{SecretID: "s1"}); err == nil {
		t.Fatalf("expected error adding to a locked store")
	} else if e, ok := err.(*Error); !ok || e.Kind != KindLocked {
		t.Fatalf("Add on locked store = %v, want KindLocked", err)
	}
}

func TestUnlockWrongPassphraseReturnsInvalidPassphrase(t *testing.T) {
	s := newTestStore(t)
	createAndUnlock(t, s, "alice", "pw")
	s.Lock()

	wrong := guard.FromBytes([]byte("nope"))
	defer wrong.Close()
	err := s.Unlock("alice", wrong, time.Minute)
	e, ok := err.(*Error)
	if !ok || e.Kind != KindInvalidPassphrase {
		t.Fatalf("Unlock with wrong passphrase = %v, want KindInvalidPassphrase", err)
	}
	if !s.Status().Locked {
		t.Fatalf("store should remain locked after a failed unlock")
	}
}

func TestUnlockAlreadyUnlockedFails(t *testing.T) {
	s := newTestStore(t)
	createAndUnlock(t, s, "alice", "pw")

	pass := guard.FromBytes([]byte("pw"))
	defer pass.Close()
	err := s.Unlock("alice", pass, time.Minute)
	e, ok := err.(*Error)
	if !ok || e.Kind != KindAlreadyUnlocked {
		t.Fatalf("double Unlock = %v, want KindAlreadyUnlocked", err)
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	createAndUnlock(t, s, "alice", "pw")

	_, err := s.Get("ghost", nil)
	e, ok := err.(*Error)
	if !ok || e.Kind != KindNotFound {
		t.Fatalf("Get(ghost) = %v, want KindNotFound", err)
	}
}

func TestChangePassphraseThenRelockRequiresNewPassphrase(t *testing.T) {
	s := newTestStore(t)
	createAndUnlock(t, s, "alice", "old-pw")

	newPass := guard.FromBytes([]byte("new-pw"))
	defer newPass.Close()
	if err := s.ChangePassphrase(newPass); err != nil {
		t.Fatalf("ChangePassphrase: %v", err)
	}
	if err := s.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	oldPass := guard.FromBytes([]byte("old-pw"))
	defer oldPass.Close()
	if err := s.Unlock("alice", oldPass, time.Minute); err == nil {
		t.Fatalf("expected old passphrase to fail after ChangePassphrase")
	}

	if err := s.Unlock("alice", newPass, time.Minute); err != nil {
		t.Fatalf("Unlock with new passphrase: %v", err)
	}
}

func TestAddWithoutSecretIDCreatesDistinctEntries(t *testing.T) {
	s := newTestStore(t)
	createAndUnlock(t, s, "alice", "pw")

	for i := 0; i < 10; i++ {
		if err := s.Add(vault.SecretVersion{
			Name:       "Secret",
			Type:       vault.SecretTypeNote,
			Timestamp:  time.Now().Add(time.Duration(i) * time.Second),
			Properties: map[string]string{"note": "x"},
		}); err != nil {
			t.Fatalf("Add #%d: %v", i, err)
		}
	}

	target := vault.SecretVersion{
		SecretID:   "",
		Name:       "First",
		Type:       vault.SecretTypeNote,
		Timestamp:  time.Now(),
		Properties: map[string]string{"note": "v1"},
	}
	if err := s.Add(target); err != nil {
		t.Fatalf("Add target: %v", err)
	}

	list, err := listEntries(s)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list.Entries) != 11 {
		t.Fatalf("expected 11 entries, got %d", len(list.Entries))
	}
}

func TestStatusReportsFutureAutolockAtAfterUnlock(t *testing.T) {
	s := newTestStore(t)
	createAndUnlock(t, s, "alice", "pw")

	status := s.Status()
	if status.Locked {
		t.Fatalf("expected unlocked immediately after Unlock")
	}
	if status.AutolockAt == nil || status.AutolockAt.Before(time.Now()) {
		t.Fatalf("expected AutolockAt to be set in the future")
	}
}
