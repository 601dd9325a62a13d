/*
Package guard implements mprotect-backed guarded memory: page-aligned
allocations that hold plaintext only while an explicit read or write borrow
is outstanding, bracketed by no-access guard pages and a canary, zeroed on
release.

	┌──────────────── GUARDED ALLOCATION ────────────────┐
	│ [ guard page: PROT_NONE ]                           │
	│ [ canary (16B) | user region (N bytes) ]  <- mlocked │
	│ [ guard page: PROT_NONE ]                           │
	└──────────────────────────────────────────────────────┘

The user region is PROT_NONE whenever no borrow is held, PROT_READ while a
read borrow is outstanding, and PROT_READ|PROT_WRITE while the single
allowed write borrow is outstanding. Canary mismatch, lock-accounting
underflow, and allocation failure are all programmer errors and panic
rather than return an error, matching the non-recoverable failure modes
this container is specified to have.
*/
package guard
