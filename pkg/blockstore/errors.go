package blockstore

import (
	"errors"
	"fmt"
)

// Kind classifies a Store error, matching the Store error taxonomy.
type Kind int

const (
	KindIO Kind = iota
	KindInvalidBlock
	KindConflict
	KindInvalidStoreURL
	KindMutex
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "IO"
	case KindInvalidBlock:
		return "InvalidBlock"
	case KindConflict:
		return "Conflict"
	case KindInvalidStoreURL:
		return "InvalidStoreUrl"
	case KindMutex:
		return "Mutex"
	default:
		return "Unknown"
	}
}

// Error is the error type every Store implementation returns, carrying a
// Kind so callers (chiefly pkg/store) can branch on failure category
// without string matching.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("blockstore: %s", e.Kind)
	}
	return fmt.Sprintf("blockstore: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func Wrap(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// IsConflict reports whether err is a blockstore.Error of kind Conflict.
func IsConflict(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindConflict
	}
	return false
}

// IsInvalidBlock reports whether err is a blockstore.Error of kind
// InvalidBlock.
func IsInvalidBlock(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindInvalidBlock
	}
	return false
}
