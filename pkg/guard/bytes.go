package guard

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync/atomic"
	"unicode/utf8"
)

// SecretBytes is a variable-length byte buffer, up to a fixed capacity,
// backed by guarded memory. The buffer is only addressable while a read or
// write borrow is held; it is zeroed and unmapped on Close.
type SecretBytes struct {
	region *region
	length int
	locks  int32
}

// NewSecretBytes allocates capacity bytes of no-access guarded memory.
func NewSecretBytes(capacity int) *SecretBytes {
	return &SecretBytes{region: allocate(capacity)}
}

// Zeroed allocates a SecretBytes of the given length, already zero-filled.
func Zeroed(length int) *SecretBytes {
	sb := NewSecretBytes(length)
	m := sb.BorrowMut()
	defer m.Close()
	m.SetLen(length)
	return sb
}

// Random allocates a SecretBytes of the given length filled with CSPRNG
// output.
func Random(length int) *SecretBytes {
	sb := NewSecretBytes(length)
	m := sb.BorrowMut()
	defer m.Close()
	if _, err := io.ReadFull(rand.Reader, m.Bytes()[:length]); err != nil {
		panic(fmt.Sprintf("guard: failed to read random bytes: %v", err))
	}
	m.SetLen(length)
	return sb
}

// FromBytes copies src into a fresh SecretBytes and wipes src before
// returning, so the caller never retains an unguarded copy.
func FromBytes(src []byte) *SecretBytes {
	sb := NewSecretBytes(len(src))
	m := sb.BorrowMut()
	copy(m.Bytes(), src)
	m.SetLen(len(src))
	m.Close()
	zero(src)
	return sb
}

// Len returns the number of bytes currently in use.
func (s *SecretBytes) Len() int { return s.length }

// Capacity returns the fixed maximum length.
func (s *SecretBytes) Capacity() int { return s.region.capacity }

// Clone allocates a fresh guarded region and duplicates the content; it
// never shares underlying storage with the original.
func (s *SecretBytes) Clone() *SecretBytes {
	r := s.Borrow()
	defer r.Close()
	return FromBytes(append([]byte(nil), r.Bytes()...))
}

// Close wipes and releases the underlying memory. It is an invariant
// violation to Close a SecretBytes with an outstanding borrow.
func (s *SecretBytes) Close() {
	if atomic.LoadInt32(&s.locks) != 0 {
		panic("guard: Close called with an outstanding borrow")
	}
	s.region.free()
}

// Ref is an outstanding read borrow.
type Ref struct {
	parent *SecretBytes
}

// Borrow acquires a read borrow, transitioning the region to read-only on
// the 0->1 transition. Concurrent read borrows are allowed; a read borrow
// while a write borrow is outstanding is a programmer error and panics.
func (s *SecretBytes) Borrow() *Ref {
	n := atomic.AddInt32(&s.locks, 1)
	if n <= 0 {
		atomic.AddInt32(&s.locks, -1)
		panic("guard: read borrow while write borrow is outstanding")
	}
	if n == 1 {
		s.region.setReadOnly()
	}
	return &Ref{parent: s}
}

// Bytes returns the borrowed, length-bounded view. It is only valid until
// Close.
func (r *Ref) Bytes() []byte {
	return r.parent.region.data()[:r.parent.length]
}

// Close releases the read borrow, returning the region to no-access once
// the last reader releases.
func (r *Ref) Close() {
	n := atomic.AddInt32(&r.parent.locks, -1)
	if n < 0 {
		panic("guard: read borrow lock accounting underflow")
	}
	if n == 0 {
		r.parent.region.setNoAccess()
	}
}

// RefMut is the single outstanding write borrow.
type RefMut struct {
	parent *SecretBytes
}

// BorrowMut acquires the exclusive write borrow; it requires the lock
// counter to be zero and panics otherwise (programmer error, not
// recoverable).
func (s *SecretBytes) BorrowMut() *RefMut {
	if !atomic.CompareAndSwapInt32(&s.locks, 0, -1) {
		panic("guard: write borrow while another borrow is outstanding")
	}
	s.region.setReadWrite()
	return &RefMut{parent: s}
}

// Bytes returns the full-capacity mutable view (not bounded by length; use
// SetLen to adjust the logical length after writing).
func (m *RefMut) Bytes() []byte {
	return m.parent.region.data()
}

// SetLen adjusts the logical length. It does not zero or grow the
// underlying capacity.
func (m *RefMut) SetLen(n int) {
	if n < 0 || n > m.parent.region.capacity {
		panic("guard: SetLen out of capacity range")
	}
	m.parent.length = n
}

// AppendChar UTF-8 encodes r and appends it, failing if capacity would be
// exceeded.
func (m *RefMut) AppendChar(r rune) error {
	n := m.parent.length
	need := utf8.RuneLen(r)
	if need < 0 {
		return fmt.Errorf("guard: invalid rune %U", r)
	}
	if n+need > m.parent.region.capacity {
		return fmt.Errorf("guard: capacity exceeded appending rune")
	}
	buf := m.Bytes()
	utf8.EncodeRune(buf[n:n+need], r)
	m.parent.length = n + need
	return nil
}

// RemoveChar removes the last UTF-8 character, zeroing its bytes and
// shrinking the length. It is a no-op on an empty buffer.
func (m *RefMut) RemoveChar() {
	n := m.parent.length
	if n == 0 {
		return
	}
	buf := m.Bytes()
	size := 1
	for start := n - 1; start >= 0 && start > n-utf8.UTFMax; start-- {
		if utf8.RuneStart(buf[start]) {
			size = n - start
			break
		}
	}
	zero(buf[n-size : n])
	m.parent.length = n - size
}

// Close releases the write borrow, returning the region to no-access.
func (m *RefMut) Close() {
	if !atomic.CompareAndSwapInt32(&m.parent.locks, -1, 0) {
		panic("guard: write borrow lock accounting corrupted")
	}
	m.parent.region.setNoAccess()
}
