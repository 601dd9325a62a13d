package store

import (
	"errors"
	"fmt"

	"github.com/trustless-go/trustless/pkg/blockstore"
	"github.com/trustless-go/trustless/pkg/cipher"
	"github.com/trustless-go/trustless/pkg/padding"
	"github.com/trustless-go/trustless/pkg/ring"
	"github.com/trustless-go/trustless/pkg/secret"
)

// Kind classifies a facade error, matching the SecretStore error
// taxonomy.
type Kind int

const (
	KindLocked Kind = iota
	KindForbidden
	KindInvalidPassphrase
	KindAlreadyUnlocked
	KindConflict
	KindKeyDerivation
	KindCipher
	KindIO
	KindNoRecipient
	KindPadding
	KindInvalidStoreURL
	KindInvalidRecipient
	KindMissingPrivateKey
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindLocked:
		return "Locked"
	case KindForbidden:
		return "Forbidden"
	case KindInvalidPassphrase:
		return "InvalidPassphrase"
	case KindAlreadyUnlocked:
		return "AlreadyUnlocked"
	case KindConflict:
		return "Conflict"
	case KindKeyDerivation:
		return "KeyDerivation"
	case KindCipher:
		return "Cipher"
	case KindIO:
		return "IO"
	case KindNoRecipient:
		return "NoRecipient"
	case KindPadding:
		return "Padding"
	case KindInvalidStoreURL:
		return "InvalidStoreUrl"
	case KindInvalidRecipient:
		return "InvalidRecipient"
	case KindMissingPrivateKey:
		return "MissingPrivateKey"
	case KindNotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

// Error is the error type every SecretsStore operation returns. It
// wraps a blockstore.Error when the underlying failure came from the
// block store, so errors.As still reaches it through Unwrap.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store: %s", e.Kind)
	}
	return fmt.Sprintf("store: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// classify maps an error from a lower layer (blockstore, ring, cipher,
// padding, secret) onto the facade's own error taxonomy, so callers
// never need to know which package underneath produced a failure.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var bsErr *blockstore.Error
	if errors.As(err, &bsErr) {
		switch bsErr.Kind {
		case blockstore.KindConflict:
			return newError(KindConflict, err)
		case blockstore.KindInvalidBlock:
			return newError(KindNotFound, err)
		case blockstore.KindInvalidStoreURL:
			return newError(KindInvalidStoreURL, err)
		default:
			return newError(KindIO, err)
		}
	}

	switch {
	case errors.Is(err, ring.ErrNotFound):
		return newError(KindNotFound, err)
	case errors.Is(err, ring.ErrInvalidPassphrase):
		return newError(KindInvalidPassphrase, err)
	case errors.Is(err, ring.ErrConflict):
		return newError(KindConflict, err)
	case errors.Is(err, cipher.ErrNoRecipient):
		return newError(KindNoRecipient, err)
	case errors.Is(err, cipher.ErrMissingPrivateKey):
		return newError(KindMissingPrivateKey, err)
	case errors.Is(err, cipher.ErrUnknownPreset):
		return newError(KindKeyDerivation, err)
	case errors.Is(err, padding.ErrPadding):
		return newError(KindPadding, err)
	case errors.Is(err, secret.ErrMalformedBlock):
		return newError(KindCipher, err)
	default:
		return newError(KindIO, err)
	}
}
