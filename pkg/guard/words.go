package guard

import (
	"encoding/binary"
	"sync/atomic"
)

const wordSize = 8 // bytes per machine word, fixed at 64 bits regardless of GOARCH

// SecretWords is a variable-length machine-word buffer backed by guarded
// memory, for plaintext where word alignment of the scratch buffer
// matters more than byte-level APIs.
type SecretWords struct {
	region   *region // capacity in bytes is capWords*wordSize
	words    int     // logical length in words
	capWords int
	locks    int32
}

// NewSecretWords allocates room for capacity words of guarded memory.
func NewSecretWords(capacity int) *SecretWords {
	return &SecretWords{region: allocate(capacity * wordSize), capWords: capacity}
}

func (s *SecretWords) Len() int      { return s.words }
func (s *SecretWords) Capacity() int { return s.capWords }

// Close wipes and releases the underlying memory.
func (s *SecretWords) Close() {
	if atomic.LoadInt32(&s.locks) != 0 {
		panic("guard: Close called with an outstanding borrow")
	}
	s.region.free()
}

// WordsRef is an outstanding read borrow over the word buffer.
type WordsRef struct{ parent *SecretWords }

func (s *SecretWords) Borrow() *WordsRef {
	n := atomic.AddInt32(&s.locks, 1)
	if n <= 0 {
		atomic.AddInt32(&s.locks, -1)
		panic("guard: read borrow while write borrow is outstanding")
	}
	if n == 1 {
		s.region.setReadOnly()
	}
	return &WordsRef{parent: s}
}

// Words decodes the borrowed region as big-endian uint64 words, bounded by
// the logical length.
func (r *WordsRef) Words() []uint64 {
	raw := r.parent.region.data()
	out := make([]uint64, r.parent.words)
	for i := range out {
		out[i] = binary.BigEndian.Uint64(raw[i*wordSize : (i+1)*wordSize])
	}
	return out
}

func (r *WordsRef) Close() {
	n := atomic.AddInt32(&r.parent.locks, -1)
	if n < 0 {
		panic("guard: read borrow lock accounting underflow")
	}
	if n == 0 {
		r.parent.region.setNoAccess()
	}
}

// WordsRefMut is the exclusive write borrow over the word buffer.
type WordsRefMut struct{ parent *SecretWords }

func (s *SecretWords) BorrowMut() *WordsRefMut {
	if !atomic.CompareAndSwapInt32(&s.locks, 0, -1) {
		panic("guard: write borrow while another borrow is outstanding")
	}
	s.region.setReadWrite()
	return &WordsRefMut{parent: s}
}

// SetWords writes words (big-endian) into the buffer, failing the
// invariant (panic) if it exceeds capacity.
func (m *WordsRefMut) SetWords(words []uint64) {
	if len(words) > m.parent.capWords {
		panic("guard: word buffer capacity exceeded")
	}
	raw := m.parent.region.data()
	for i, w := range words {
		binary.BigEndian.PutUint64(raw[i*wordSize:(i+1)*wordSize], w)
	}
	m.parent.words = len(words)
}

func (m *WordsRefMut) Close() {
	if !atomic.CompareAndSwapInt32(&m.parent.locks, -1, 0) {
		panic("guard: write borrow lock accounting corrupted")
	}
	m.parent.region.setNoAccess()
}
