/*
Package store implements the secrets-store facade: the single type a
CLI or service binds to, composing a block store, a ring manager, a
cipher pipeline, and a per-identity index into unlock/lock, identity
management, and secret CRUD.
*/
package store

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trustless-go/trustless/pkg/blockstore"
	"github.com/trustless-go/trustless/pkg/cipher"
	"github.com/trustless-go/trustless/pkg/events"
	"github.com/trustless-go/trustless/pkg/guard"
	"github.com/trustless-go/trustless/pkg/index"
	"github.com/trustless-go/trustless/pkg/log"
	"github.com/trustless-go/trustless/pkg/ring"
	"github.com/trustless-go/trustless/pkg/secret"
	"github.com/trustless-go/trustless/pkg/vault"
)

// unlockedState holds everything only available while a store is
// unlocked. autolockAtNano is read and written with atomic operations
// so a reader holding only s.mu.RLock() can still refresh it: the read
// path must keep that lock for the full duration of any operation
// touching unlocked's guarded private keys, since a concurrent Lock()
// zeroes them the moment it acquires the write lock.
type unlockedState struct {
	unlocked        *ring.Unlocked
	index           *index.Engine
	autolockTimeout time.Duration
	autolockAtNano  int64
}

func newUnlockedState(unlocked *ring.Unlocked, idx *index.Engine, timeout time.Duration) *unlockedState {
	st := &unlockedState{unlocked: unlocked, index: idx, autolockTimeout: timeout}
	st.touch()
	return st
}

func (st *unlockedState) touch() {
	atomic.StoreInt64(&st.autolockAtNano, time.Now().Add(st.autolockTimeout).UnixNano())
}

func (st *unlockedState) autolockAt() time.Time {
	return time.Unix(0, atomic.LoadInt64(&st.autolockAtNano))
}

// SecretsStore is one named, openable secrets store.
type SecretsStore struct {
	Name     string
	Store    blockstore.Store
	Ring     *ring.Manager
	Codec    secret.Codec
	Pipeline cipher.Pipeline
	Hub      *events.Hub

	mu    sync.RWMutex
	state *unlockedState

	logger zerolog.Logger
}

// New wires a SecretsStore over an already-opened block store.
func New(name string, blocks blockstore.Store, pipeline cipher.Pipeline, kdf cipher.KeyDerivation, hub *events.Hub) *SecretsStore {
	return &SecretsStore{
		Name:     name,
		Store:    blocks,
		Ring:     ring.NewManager(blocks, pipeline, kdf),
		Codec:    secret.Codec{Pipeline: pipeline},
		Pipeline: pipeline,
		Hub:      hub,
		logger:   log.WithStore(log.WithComponent("store"), name),
	}
}

// Status reports whether this store is currently unlocked, and by
// whom.
func (s *SecretsStore) Status() vault.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return vault.Status{Locked: true}
	}
	identity := s.state.unlocked.Identity
	autolockAt := s.state.autolockAt()
	return vault.Status{
		Locked:          false,
		UnlockedBy:      &identity,
		AutolockAt:      &autolockAt,
		AutolockTimeout: s.state.autolockTimeout,
	}
}

// Lock discards the unlocked state, zeroing every private key held in
// guarded memory. A no-op if already locked.
func (s *SecretsStore) Lock() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return nil
	}
	s.state.unlocked.Close()
	s.state = nil
	s.logger.Info().Msg("store locked")
	s.Hub.Publish(events.StoreLocked{Store: s.Name})
	return nil
}

// Unlock opens identityID's ring under passphrase, loads its index and
// brings it up to date with the change logs, arming autolock for
// timeout.
func (s *SecretsStore) Unlock(identityID string, passphrase *guard.SecretBytes, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != nil {
		return newError(KindAlreadyUnlocked, nil)
	}

	unlocked, err := s.Ring.Unlock(identityID, passphrase)
	if err != nil {
		return classify(err)
	}

	idx, err := s.loadIndex(identityID, unlocked)
	if err != nil {
		unlocked.Close()
		return classify(err)
	}

	s.state = newUnlockedState(unlocked, idx, timeout)
	if err := s.updateIndexLocked(); err != nil {
		s.state.unlocked.Close()
		s.state = nil
		return err
	}
	log.WithIdentity(s.logger, identityID).Info().Msg("store unlocked")
	s.Hub.Publish(events.StoreUnlocked{Store: s.Name, IdentityID: identityID})
	return nil
}

func (s *SecretsStore) loadIndex(identityID string, unlocked *ring.Unlocked) (*index.Engine, error) {
	data, ok, err := s.Store.GetIndex(identityID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return index.New(), nil
	}
	raw, err := secret.DecodeBlock(identityID, unlocked, s.Pipeline, data)
	if err != nil {
		return nil, err
	}
	return index.Load(raw)
}

// UpdateIndex replays any change-log activity this store's index has
// not yet incorporated, and persists the result if anything changed.
func (s *SecretsStore) UpdateIndex() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return newError(KindLocked, nil)
	}
	s.state.touch()
	return s.updateIndexLocked()
}

func (s *SecretsStore) updateIndexLocked() error {
	logs, err := s.Store.ChangeLogs()
	if err != nil {
		return classify(err)
	}

	identity := s.state.unlocked.Identity
	changed, err := s.state.index.ProcessChangeLogs(logs, s.versionAccessor())
	if err != nil {
		return classify(err)
	}
	if !changed {
		return nil
	}

	raw, err := s.state.index.Bytes()
	if err != nil {
		return newError(KindIO, err)
	}
	sealed, err := secret.EncodeBlock(s.Pipeline, s.Ring, []string{identity.ID}, raw)
	if err != nil {
		return classify(err)
	}
	if err := s.Store.StoreIndex(identity.ID, sealed); err != nil {
		return classify(err)
	}
	return nil
}

// versionAccessor resolves a block id to the SecretVersion it holds,
// treating a block this identity is not a recipient of as absent
// rather than an error: the same change log carries blocks sealed for
// every identity sharing the store.
func (s *SecretsStore) versionAccessor() index.VersionAccessor {
	identityID := s.state.unlocked.Identity.ID
	unlocked := s.state.unlocked
	return func(blockID string) (*vault.SecretVersion, error) {
		data, err := s.Store.GetBlock(blockID)
		if err != nil {
			if blockstore.IsInvalidBlock(err) {
				return nil, nil
			}
			return nil, err
		}
		version, err := secret.Decode(identityID, unlocked, s.Pipeline, data)
		if err != nil {
			if errors.Is(err, cipher.ErrNoRecipient) {
				return nil, nil
			}
			return nil, err
		}
		return &version, nil
	}
}

// Identities lists every identity this store's block store holds a
// ring for, regardless of lock state.
func (s *SecretsStore) Identities() ([]vault.Identity, error) {
	identities, err := s.Ring.Identities()
	if err != nil {
		return nil, classify(err)
	}
	return identities, nil
}

// AddIdentity creates a new identity ring. It does not require the
// store to be unlocked.
func (s *SecretsStore) AddIdentity(identity vault.Identity, passphrase *guard.SecretBytes) error {
	if err := s.Ring.CreateIdentity(identity, passphrase); err != nil {
		return classify(err)
	}
	s.Hub.Publish(events.IdentityAdded{Store: s.Name, IdentityID: identity.ID})
	return nil
}

// ChangePassphrase reseals the unlocked identity's private keys under
// a new passphrase.
func (s *SecretsStore) ChangePassphrase(passphrase *guard.SecretBytes) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return newError(KindLocked, nil)
	}
	if err := s.Ring.ChangePassphrase(s.state.unlocked, passphrase); err != nil {
		return classify(err)
	}
	s.state.touch()
	return nil
}

// Add seals version for its recipients (the unlocked identity is
// always included) and commits it as a new block, updating the index
// in the same call.
func (s *SecretsStore) Add(version vault.SecretVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return newError(KindLocked, nil)
	}
	s.state.touch()

	identityID := s.state.unlocked.Identity.ID
	if version.SecretID == "" {
		version.SecretID = uuid.New().String()
	}
	if version.Timestamp.IsZero() {
		version.Timestamp = time.Now()
	}
	if !containsString(version.Recipients, identityID) {
		version.Recipients = append(append([]string(nil), version.Recipients...), identityID)
	}

	data, err := s.Codec.Encode(s.Ring, version)
	if err != nil {
		return classify(err)
	}
	blockID, err := s.Store.AddBlock(data)
	if err != nil {
		return classify(err)
	}
	if err := s.Store.Commit([]blockstore.Change{{Op: blockstore.Add, BlockID: blockID}}); err != nil {
		return classify(err)
	}

	if err := s.updateIndexLocked(); err != nil {
		return err
	}

	s.logger.Info().Str("secret_id", version.SecretID).Str("block_id", blockID).Msg("secret version added")
	s.Hub.Publish(events.SecretVersionAdded{Store: s.Name, SecretID: version.SecretID, BlockID: blockID})
	return nil
}

// Get returns secretID's current version and version history. estimator
// may be nil, in which case PasswordStrengths is left empty.
func (s *SecretsStore) Get(secretID string, estimator vault.PasswordEstimator) (vault.Secret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return vault.Secret{}, newError(KindLocked, nil)
	}
	s.state.touch()

	entry, ok := s.state.index.Entry(secretID)
	if !ok {
		return vault.Secret{}, newError(KindNotFound, nil)
	}

	identityID := s.state.unlocked.Identity.ID
	current, err := s.decodeBlock(identityID, entry.CurrentBlockID)
	if err != nil {
		return vault.Secret{}, err
	}

	versions := make([]vault.SecretVersionRef, 0, len(entry.BlockIDs))
	for _, blockID := range entry.BlockIDs {
		v, err := s.decodeBlock(identityID, blockID)
		if err != nil {
			return vault.Secret{}, err
		}
		versions = append(versions, vault.SecretVersionRef{BlockID: blockID, Timestamp: v.Timestamp})
	}
	sort.SliceStable(versions, func(i, j int) bool { return versions[i].Timestamp.After(versions[j].Timestamp) })

	secretOut := vault.Secret{
		ID:             secretID,
		Type:           current.Type,
		Current:        current,
		CurrentBlockID: entry.CurrentBlockID,
		Versions:       versions,
	}
	if estimator != nil {
		secretOut.PasswordStrengths = estimateStrengths(estimator, current)
	}

	s.Hub.Publish(events.SecretOpened{Store: s.Name, SecretID: secretID})
	return secretOut, nil
}

// List returns the unlocked identity's index entries matching filter.
func (s *SecretsStore) List(filter vault.SecretListFilter) (vault.SecretList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return vault.SecretList{}, newError(KindLocked, nil)
	}
	s.state.touch()
	return s.state.index.List(filter), nil
}

// GetVersion returns the SecretVersion stored at a specific blockID,
// bypassing the index entirely.
func (s *SecretsStore) GetVersion(blockID string) (vault.SecretVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return vault.SecretVersion{}, newError(KindLocked, nil)
	}
	s.state.touch()
	return s.decodeBlock(s.state.unlocked.Identity.ID, blockID)
}

func (s *SecretsStore) decodeBlock(identityID, blockID string) (vault.SecretVersion, error) {
	data, err := s.Store.GetBlock(blockID)
	if err != nil {
		return vault.SecretVersion{}, classify(err)
	}
	version, err := secret.Decode(identityID, s.state.unlocked, s.Pipeline, data)
	if err != nil {
		return vault.SecretVersion{}, classify(err)
	}
	return version, nil
}

func estimateStrengths(estimator vault.PasswordEstimator, version vault.SecretVersion) map[string]vault.PasswordStrength {
	props := version.Type.PasswordProperties()
	if len(props) == 0 {
		return nil
	}
	inputs := make([]string, 0, len(version.Properties))
	for _, v := range version.Properties {
		inputs = append(inputs, v)
	}
	strengths := make(map[string]vault.PasswordStrength, len(props))
	for _, prop := range props {
		password, ok := version.Properties[prop]
		if !ok {
			continue
		}
		strengths[prop] = estimator(vault.PasswordEstimate{Password: password, Inputs: inputs})
	}
	return strengths
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
