/*
Package ring manages per-identity key rings: generating keypairs for
every configured cipher suite, sealing their private halves under a
passphrase-derived key, and reopening them on unlock. A Ring's own
serialized form is plain JSON; the confidentiality of its private key
material comes entirely from the per-suite sealing, not from the ring
encoding itself.
*/
package ring

import "encoding/json"

import "github.com/trustless-go/trustless/pkg/cipher"

// PublicKey is one cipher suite's public half, stored unsealed since a
// public key carries no confidentiality requirement.
type PublicKey struct {
	Type cipher.KeyType `json:"type"`
	Key  []byte         `json:"key"`
}

// PrivateKeyEntry is one cipher suite's private half, sealed under a
// passphrase-derived key. KDFType and Preset record which key
// derivation produced the seal key, so Unlock can re-derive it without
// renegotiating cost parameters.
type PrivateKeyEntry struct {
	Type    cipher.KeyType `json:"type"`
	KDFType string         `json:"kdf_type"`
	Preset  int            `json:"preset"`
	Nonce   []byte         `json:"nonce"`
	Crypted []byte         `json:"crypted"`
}

// Ring is one identity's complete on-disk record.
type Ring struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Hidden      bool              `json:"hidden"`
	PublicKeys  []PublicKey       `json:"public_keys"`
	PrivateKeys []PrivateKeyEntry `json:"private_keys"`
}

// argon2IDName is the stored KDFType for every ring entry; pkg/cipher
// currently implements only Argon2id, but the field is persisted so a
// future second KDF can be told apart from existing rings.
const argon2IDName = "argon2id"

func marshalRing(r Ring) ([]byte, error) {
	return json.Marshal(r)
}

func unmarshalRing(data []byte) (Ring, error) {
	var r Ring
	if err := json.Unmarshal(data, &r); err != nil {
		return Ring{}, err
	}
	return r, nil
}

func findSuite(p cipher.Pipeline, t cipher.KeyType) cipher.Suite {
	for _, s := range p.Suites {
		if s.KeyType() == t {
			return s
		}
	}
	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
