package guard

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/trustless-go/trustless/pkg/log"
)

const canarySize = 16

var (
	initOnce  sync.Once
	pageSize  int
	canary    []byte
	guardOnce = &initOnce
)

func ensureInit() {
	guardOnce.Do(func() {
		pageSize = unix.Getpagesize()
		canary = make([]byte, canarySize)
		if _, err := rand.Read(canary); err != nil {
			panic(fmt.Sprintf("guard: failed to seed canary: %v", err))
		}
	})
}

// region is one mmap'd allocation: a leading guard page, the user page(s)
// (canary followed by the caller's bytes), and a trailing guard page.
type region struct {
	mapping  []byte // the full mmap, guard pages included
	userOff  int    // offset of the canary within mapping
	dataOff  int    // offset of user data within mapping (userOff+canarySize)
	capacity int    // user-visible capacity in bytes
	locks    int32  // 0 = unborrowed, >0 = N read borrows, -1 = write borrow
}

// allocate reserves capacity bytes of guarded memory, no-access by default.
func allocate(capacity int) *region {
	ensureInit()

	userBytes := canarySize + capacity
	userPages := (userBytes + pageSize - 1) / pageSize
	if userPages == 0 {
		userPages = 1
	}
	total := pageSize + userPages*pageSize + pageSize

	mapping, err := unix.Mmap(-1, 0, total, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		panic(fmt.Sprintf("guard: mmap failed: %v", err))
	}

	userOff := pageSize
	dataOff := userOff + canarySize

	if err := unix.Mprotect(mapping[userOff:userOff+userPages*pageSize], unix.PROT_READ|unix.PROT_WRITE); err != nil {
		_ = unix.Munmap(mapping)
		panic(fmt.Sprintf("guard: mprotect(RW) failed: %v", err))
	}
	copy(mapping[userOff:userOff+canarySize], canary)
	if err := unix.Mlock(mapping[userOff : userOff+userPages*pageSize]); err != nil {
		log.WithComponent("guard").Warn().Err(err).Msg("mlock failed, continuing without swap protection")
	}
	if err := unix.Madvise(mapping[userOff:userOff+userPages*pageSize], unix.MADV_DONTDUMP); err != nil {
		log.WithComponent("guard").Warn().Err(err).Msg("madvise(DONTDUMP) failed, region may appear in core dumps")
	}
	if err := unix.Mprotect(mapping[userOff:userOff+userPages*pageSize], unix.PROT_NONE); err != nil {
		panic(fmt.Sprintf("guard: mprotect(NONE) failed: %v", err))
	}

	return &region{
		mapping:  mapping,
		userOff:  userOff,
		dataOff:  dataOff,
		capacity: capacity,
	}
}

func (r *region) userPageSpan() []byte {
	userPages := (canarySize + r.capacity + pageSize - 1) / pageSize
	if userPages == 0 {
		userPages = 1
	}
	return r.mapping[r.userOff : r.userOff+userPages*pageSize]
}

func (r *region) setNoAccess() {
	if err := unix.Mprotect(r.userPageSpan(), unix.PROT_NONE); err != nil {
		panic(fmt.Sprintf("guard: mprotect(NONE) failed: %v", err))
	}
}

func (r *region) setReadOnly() {
	if err := unix.Mprotect(r.userPageSpan(), unix.PROT_READ); err != nil {
		panic(fmt.Sprintf("guard: mprotect(RO) failed: %v", err))
	}
}

func (r *region) setReadWrite() {
	if err := unix.Mprotect(r.userPageSpan(), unix.PROT_READ|unix.PROT_WRITE); err != nil {
		panic(fmt.Sprintf("guard: mprotect(RW) failed: %v", err))
	}
}

// data returns the user-visible capacity bytes. Caller must hold a borrow
// (i.e. must have already set the page protection to something other than
// PROT_NONE) before touching the returned slice.
func (r *region) data() []byte {
	return r.mapping[r.dataOff : r.dataOff+r.capacity]
}

// free verifies the canary, wipes the user region, and releases the
// mapping. A canary mismatch is a programmer error (use-after-free or
// heap corruption) and aborts the process.
func (r *region) free() {
	r.setReadWrite()
	if subtle.ConstantTimeCompare(r.mapping[r.userOff:r.userOff+canarySize], canary) != 1 {
		panic("guard: canary mismatch on free, memory corruption detected")
	}
	zero(r.mapping[r.userOff : r.dataOff+r.capacity])
	_ = unix.Munlock(r.userPageSpan())
	if err := unix.Munmap(r.mapping); err != nil {
		panic(fmt.Sprintf("guard: munmap failed: %v", err))
	}
	r.mapping = nil
}

// zero overwrites b with zeroes using a store the compiler cannot elide,
// since b lives in memory the GC never scans (an mmap'd region outside the
// Go heap) this is just a defensive belt: nothing re-reads b afterwards.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
