package cipher

// KeyType names a cipher suite's key algorithm. It is stored in a block's
// Header so a decoder knows which Suite to hand the header to.
type KeyType string

const (
	KeyTypeRSAAESGCM      KeyType = "rsa_aes_gcm"
	KeyTypeX25519ChaCha20 KeyType = "x25519_chacha20_poly1305"
)

// RecipientKey pairs a recipient identity with its public key, used when
// sealing a block for that recipient.
type RecipientKey struct {
	ID        string
	PublicKey []byte
}

// HeaderRecipient is the wrapped seal key a single recipient needs to open
// a block's Content, as stored in a Header.
type HeaderRecipient struct {
	ID         string
	CryptedKey []byte
}

// Header is the per-suite metadata attached to a sealed block: the nonce
// or IV the suite used plus one HeaderRecipient per recipient the block
// was sealed for.
type Header struct {
	Type       KeyType
	Nonce      []byte
	Recipients []HeaderRecipient
}

// Suite seals and opens blocks for a fixed set of recipients. Encrypt
// generates a fresh symmetric seal key per call and wraps it once per
// recipient; Decrypt looks up identityID among the header's recipients and
// unwraps only that entry.
type Suite interface {
	KeyType() KeyType

	// GenerateKeyPair creates a fresh identity keypair for this suite.
	GenerateKeyPair() (public, private []byte, err error)

	// SealKeyLength and SealMinNonceLength describe the symmetric key this
	// suite uses to protect a persisted private key at rest; ring uses
	// these to derive a suite-appropriate passphrase key.
	SealKeyLength() int
	SealMinNonceLength() int
	SealPrivateKey(sealKey, nonce, private []byte) ([]byte, error)
	OpenPrivateKey(sealKey, nonce, crypted []byte) ([]byte, error)

	Encrypt(recipients []RecipientKey, data []byte) (Header, []byte, error)
	Decrypt(identityID string, privateKey []byte, header Header, crypted []byte) ([]byte, error)
}

// KeyDerivation turns a passphrase into a symmetric key of the requested
// length. preset indexes into the implementation's own cost-parameter
// table; the index is stored alongside the derived key's nonce so a
// ring can be reopened without renegotiating cost parameters.
type KeyDerivation interface {
	DefaultPreset() int
	MinNonceLength() int
	Derive(passphrase, nonce []byte, preset, keyLen int) ([]byte, error)
}
