package ring

import (
	"crypto/rand"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/trustless-go/trustless/pkg/blockstore"
	"github.com/trustless-go/trustless/pkg/cipher"
	"github.com/trustless-go/trustless/pkg/guard"
	"github.com/trustless-go/trustless/pkg/log"
	"github.com/trustless-go/trustless/pkg/vault"
)

// Manager creates, unlocks, and reseals identity rings against a block
// store, using a fixed cipher pipeline and key derivation function. It
// implements cipher.RecipientKeySource so a Pipeline can resolve any
// identity's public keys without knowing they come from a ring.
type Manager struct {
	Store    blockstore.Store
	Pipeline cipher.Pipeline
	KDF      cipher.KeyDerivation

	logger zerolog.Logger
}

func NewManager(store blockstore.Store, pipeline cipher.Pipeline, kdf cipher.KeyDerivation) *Manager {
	return &Manager{
		Store:    store,
		Pipeline: pipeline,
		KDF:      kdf,
		logger:   log.WithComponent("ring"),
	}
}

// CreateIdentity generates a fresh keypair per configured cipher suite,
// seals each private key under passphrase, and stores the resulting
// ring at version 0. It fails with ErrConflict if a ring already exists
// for identity.ID.
func (m *Manager) CreateIdentity(identity vault.Identity, passphrase *guard.SecretBytes) error {
	if _, _, err := m.Store.GetRing(identity.ID); err == nil {
		return ErrConflict
	} else if !blockstore.IsInvalidBlock(err) {
		return fmt.Errorf("ring: check existing ring: %w", err)
	}

	r := Ring{ID: identity.ID, Name: identity.Name, Email: identity.Email, Hidden: identity.Hidden}

	passRef := passphrase.Borrow()
	defer passRef.Close()

	for _, suite := range m.Pipeline.Suites {
		pub, priv, err := suite.GenerateKeyPair()
		if err != nil {
			return fmt.Errorf("ring: generate %s keypair: %w", suite.KeyType(), err)
		}

		nonce := make([]byte, suite.SealMinNonceLength())
		if _, err := rand.Read(nonce); err != nil {
			return fmt.Errorf("ring: generate nonce: %w", err)
		}
		sealKey, err := m.KDF.Derive(passRef.Bytes(), nonce, m.KDF.DefaultPreset(), suite.SealKeyLength())
		if err != nil {
			return fmt.Errorf("ring: derive seal key: %w", err)
		}
		crypted, err := suite.SealPrivateKey(sealKey, nonce, priv)
		zero(priv)
		if err != nil {
			return fmt.Errorf("ring: seal %s private key: %w", suite.KeyType(), err)
		}

		r.PublicKeys = append(r.PublicKeys, PublicKey{Type: suite.KeyType(), Key: pub})
		r.PrivateKeys = append(r.PrivateKeys, PrivateKeyEntry{
			Type:    suite.KeyType(),
			KDFType: argon2IDName,
			Preset:  m.KDF.DefaultPreset(),
			Nonce:   nonce,
			Crypted: crypted,
		})
	}

	data, err := marshalRing(r)
	if err != nil {
		return fmt.Errorf("ring: marshal: %w", err)
	}
	if err := m.Store.StoreRing(identity.ID, 0, data); err != nil {
		return fmt.Errorf("ring: store: %w", err)
	}
	log.WithIdentity(m.logger, identity.ID).Info().Msg("identity created")
	return nil
}

// Identities lists every identity this manager's store holds a ring
// for.
func (m *Manager) Identities() ([]vault.Identity, error) {
	summaries, err := m.Store.ListRingIDs()
	if err != nil {
		return nil, fmt.Errorf("ring: list ring ids: %w", err)
	}
	identities := make([]vault.Identity, 0, len(summaries))
	for _, s := range summaries {
		_, data, err := m.Store.GetRing(s.RingID)
		if err != nil {
			return nil, fmt.Errorf("ring: get ring %s: %w", s.RingID, err)
		}
		r, err := unmarshalRing(data)
		if err != nil {
			return nil, fmt.Errorf("ring: unmarshal ring %s: %w", s.RingID, err)
		}
		identities = append(identities, vault.Identity{ID: r.ID, Name: r.Name, Email: r.Email, Hidden: r.Hidden})
	}
	return identities, nil
}

// PublicKey implements cipher.RecipientKeySource by resolving
// identityID's latest ring and returning its key for keyType.
func (m *Manager) PublicKey(identityID string, keyType cipher.KeyType) ([]byte, error) {
	_, data, err := m.Store.GetRing(identityID)
	if err != nil {
		if blockstore.IsInvalidBlock(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ring: get ring %s: %w", identityID, err)
	}
	r, err := unmarshalRing(data)
	if err != nil {
		return nil, fmt.Errorf("ring: unmarshal ring %s: %w", identityID, err)
	}
	for _, pk := range r.PublicKeys {
		if pk.Type == keyType {
			return pk.Key, nil
		}
	}
	return nil, cipher.ErrNoRecipient
}

// Unlock fetches identityID's latest ring and opens every sealed
// private key against passphrase. Any single opening failure fails the
// whole call with ErrInvalidPassphrase; no partial Unlocked is ever
// returned.
func (m *Manager) Unlock(identityID string, passphrase *guard.SecretBytes) (*Unlocked, error) {
	version, data, err := m.Store.GetRing(identityID)
	if err != nil {
		if blockstore.IsInvalidBlock(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ring: get ring %s: %w", identityID, err)
	}
	r, err := unmarshalRing(data)
	if err != nil {
		return nil, fmt.Errorf("ring: unmarshal ring %s: %w", identityID, err)
	}

	passRef := passphrase.Borrow()
	defer passRef.Close()

	publicKeys := make(map[cipher.KeyType][]byte, len(r.PublicKeys))
	for _, pk := range r.PublicKeys {
		publicKeys[pk.Type] = pk.Key
	}

	privateKeys := make(map[cipher.KeyType]*guard.SecretBytes, len(r.PrivateKeys))
	for _, pke := range r.PrivateKeys {
		suite := findSuite(m.Pipeline, pke.Type)
		if suite == nil {
			closeAll(privateKeys)
			return nil, fmt.Errorf("ring: ring %s references unknown cipher suite %q", identityID, pke.Type)
		}
		sealKey, err := m.KDF.Derive(passRef.Bytes(), pke.Nonce, pke.Preset, suite.SealKeyLength())
		if err != nil {
			closeAll(privateKeys)
			return nil, ErrInvalidPassphrase
		}
		opened, err := suite.OpenPrivateKey(sealKey, pke.Nonce, pke.Crypted)
		if err != nil {
			closeAll(privateKeys)
			return nil, ErrInvalidPassphrase
		}
		privateKeys[pke.Type] = guard.FromBytes(opened)
	}

	log.WithIdentity(m.logger, identityID).Info().Msg("identity unlocked")
	return &Unlocked{
		Identity:    vault.Identity{ID: r.ID, Name: r.Name, Email: r.Email, Hidden: r.Hidden},
		Version:     version,
		PublicKeys:  publicKeys,
		privateKeys: privateKeys,
	}, nil
}

// ChangePassphrase re-seals u's existing private keys under a fresh
// passphrase, with fresh nonces and the KDF's current default preset,
// and writes the result as the next ring version. Public keys are
// unchanged.
func (m *Manager) ChangePassphrase(u *Unlocked, passphrase *guard.SecretBytes) error {
	version, data, err := m.Store.GetRing(u.Identity.ID)
	if err != nil {
		return fmt.Errorf("ring: get ring %s: %w", u.Identity.ID, err)
	}
	r, err := unmarshalRing(data)
	if err != nil {
		return fmt.Errorf("ring: unmarshal ring %s: %w", u.Identity.ID, err)
	}

	passRef := passphrase.Borrow()
	defer passRef.Close()

	newPrivateKeys := make([]PrivateKeyEntry, 0, len(r.PrivateKeys))
	for _, pke := range r.PrivateKeys {
		suite := findSuite(m.Pipeline, pke.Type)
		if suite == nil {
			return fmt.Errorf("ring: ring %s references unknown cipher suite %q", u.Identity.ID, pke.Type)
		}
		priv, ok := u.PrivateKey(pke.Type)
		if !ok {
			return fmt.Errorf("ring: no unlocked private key for %q", pke.Type)
		}
		defer zero(priv)

		nonce := make([]byte, suite.SealMinNonceLength())
		if _, err := rand.Read(nonce); err != nil {
			return fmt.Errorf("ring: generate nonce: %w", err)
		}
		sealKey, err := m.KDF.Derive(passRef.Bytes(), nonce, m.KDF.DefaultPreset(), suite.SealKeyLength())
		if err != nil {
			return fmt.Errorf("ring: derive seal key: %w", err)
		}
		crypted, err := suite.SealPrivateKey(sealKey, nonce, priv)
		if err != nil {
			return fmt.Errorf("ring: seal %s private key: %w", suite.KeyType(), err)
		}
		newPrivateKeys = append(newPrivateKeys, PrivateKeyEntry{
			Type:    pke.Type,
			KDFType: pke.KDFType,
			Preset:  m.KDF.DefaultPreset(),
			Nonce:   nonce,
			Crypted: crypted,
		})
	}

	r.PrivateKeys = newPrivateKeys
	out, err := marshalRing(r)
	if err != nil {
		return fmt.Errorf("ring: marshal: %w", err)
	}
	if err := m.Store.StoreRing(u.Identity.ID, version+1, out); err != nil {
		return fmt.Errorf("ring: store new version: %w", err)
	}
	log.WithIdentity(m.logger, u.Identity.ID).Info().Msg("passphrase changed")
	return nil
}
