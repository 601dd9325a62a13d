package cipher

import "golang.org/x/crypto/argon2"

// Preset is one entry in Argon2id's cost-parameter table. Presets are
// identified by index, not by value, so the index can be stored in a
// ring's header without re-serializing the parameters themselves.
type Preset struct {
	Lanes   uint8
	MemoryKB uint32
	Time    uint32
}

// Presets is the fixed table of Argon2id cost parameters this module
// supports. Entries are only ever appended; an existing index's meaning
// never changes, since it is persisted in ring headers on disk.
var Presets = []Preset{
	{Lanes: 4, MemoryKB: 64 * 1024, Time: 4},
}

// Argon2ID derives keys with the Argon2id variant, the password-hashing
// competition winner and the variant recommended for both side-channel
// and GPU-cracking resistance.
type Argon2ID struct{}

func (Argon2ID) DefaultPreset() int { return 0 }

// MinNonceLength is the shortest salt Argon2id should be called with.
func (Argon2ID) MinNonceLength() int { return 8 }

func (Argon2ID) Derive(passphrase, nonce []byte, preset, keyLen int) ([]byte, error) {
	if preset < 0 || preset >= len(Presets) {
		return nil, ErrUnknownPreset
	}
	p := Presets[preset]
	return argon2.IDKey(passphrase, nonce, p.Time, p.MemoryKB, p.Lanes, uint32(keyLen)), nil
}
