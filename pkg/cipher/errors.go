package cipher

import "errors"

var (
	// ErrNoRecipient is returned by Suite.Decrypt and Pipeline.Decrypt when
	// the given identity does not appear among a block's recipients. It is
	// not a corruption signal: most often it means the block belongs to a
	// different identity.
	ErrNoRecipient = errors.New("cipher: identity is not a recipient of this block")

	// ErrMissingPrivateKey is returned when a Pipeline needs a private key
	// for a suite that PrivateKeySource has none for.
	ErrMissingPrivateKey = errors.New("cipher: missing private key for cipher suite")

	// ErrUnknownPreset is returned by a KeyDerivation implementation when
	// asked for a preset index outside its table.
	ErrUnknownPreset = errors.New("cipher: unknown key derivation preset")
)
