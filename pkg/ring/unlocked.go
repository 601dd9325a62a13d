package ring

import (
	"github.com/trustless-go/trustless/pkg/cipher"
	"github.com/trustless-go/trustless/pkg/guard"
	"github.com/trustless-go/trustless/pkg/vault"
)

// Unlocked is the in-memory result of a successful Unlock: the
// identity, its public keys, and its private keys held in guarded
// memory. It implements cipher.PrivateKeySource so a Pipeline can
// decrypt blocks directly against it.
type Unlocked struct {
	Identity    vault.Identity
	Version     uint64
	PublicKeys  map[cipher.KeyType][]byte
	privateKeys map[cipher.KeyType]*guard.SecretBytes
}

// PrivateKey implements cipher.PrivateKeySource. The returned slice is a
// throwaway copy taken under a read borrow; pkg/cipher's Suite
// interface takes plain []byte, so a copy is unavoidable at this
// boundary, but the guarded original is never handed out directly.
func (u *Unlocked) PrivateKey(keyType cipher.KeyType) ([]byte, bool) {
	sb, ok := u.privateKeys[keyType]
	if !ok {
		return nil, false
	}
	ref := sb.Borrow()
	defer ref.Close()
	return append([]byte(nil), ref.Bytes()...), true
}

// Close zeroes and releases every private key's guarded memory. Per
// §4.F's Lock semantics, this is the only way private key material
// leaves process memory.
func (u *Unlocked) Close() {
	for _, sb := range u.privateKeys {
		sb.Close()
	}
}

func closeAll(m map[cipher.KeyType]*guard.SecretBytes) {
	for _, sb := range m {
		sb.Close()
	}
}
