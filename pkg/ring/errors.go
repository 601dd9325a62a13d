package ring

import "errors"

var (
	// ErrNotFound is returned when no ring exists for the requested identity
	// id.
	ErrNotFound = errors.New("ring: identity not found")

	// ErrConflict is returned by CreateIdentity when a ring already exists
	// for the requested identity id.
	ErrConflict = errors.New("ring: identity already exists")

	// ErrInvalidPassphrase is returned by Unlock when any single private
	// key fails to open. It is deliberately indistinguishable from a
	// corrupted private-key record: unlock either succeeds in full or
	// fails in full, with no signal about which lane rejected it.
	ErrInvalidPassphrase = errors.New("ring: invalid passphrase")
)
