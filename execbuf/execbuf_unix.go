//go:build unix

// Package execbuf is the OS-backed executable memory region: a single
// mmap'd span that is readable, writable, and executable until Flip
// re-protects it read+execute, handing out disjoint sub-regions ("slots")
// to code buffers in allocation order. It is the concrete realization of the OS-level
// executable-buffer allocator as an injected collaborator — package jit
// never constructs a raw mmap itself.
//
// Grounded on the contract tetratelabs-wazero's internal/platform package
// exercises for its own JIT compiler (MmapCodeSegment/MunmapCodeSegment:
// page-rounded allocation), implemented here with golang.org/x/sys/unix
// directly against mmap(2)/mprotect(2)/munmap(2) rather than wazero's
// internal platform-abstraction layer. Unlike that contract, a
// non-positive capacity is not rejected (New maps one page instead) and a
// second Close is a no-op rather than a reported error.
package execbuf

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

const pageSize = 4096

// Slot is a disjoint sub-region of a Buffer, handed out once per compile.
// Slots are never reclaimed individually — the whole Buffer is released at
// once via Close.
type Slot struct {
	mem []byte
}

// Bytes returns the slot's backing memory. Writes are only well-defined
// before the owning Buffer's Flip call finalizes the region read+execute.
func (s Slot) Bytes() []byte { return s.mem }

// Addr returns the slot's entry address as a function pointer value,
// suitable for the cgo-free trampoline technique jit.Callable uses to
// invoke compiled code.
func (s Slot) Addr() uintptr {
	if len(s.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&s.mem[0]))
}

// Buffer owns one mmap'd region and hands out growth-only Slots from it in
// allocation order. Buffer is single-writer: a given Buffer must not be
// mutated concurrently; it hands out disjoint sub-regions.
type Buffer struct {
	region   []byte
	used     int
	flipped  bool
	capacity int
}

// New reserves capacity bytes (rounded up to a whole number of pages) as a
// PROT_READ|PROT_WRITE|PROT_EXEC anonymous mapping. The region is W|X for
// its writing lifetime; Flip later re-mprotects it to PROT_READ|PROT_EXEC
// once every slot is finalized, enforcing W^X rather than leaving the
// region permanently writable and executable.
func New(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		capacity = pageSize
	}
	rounded := ((capacity + pageSize - 1) / pageSize) * pageSize
	region, err := unix.Mmap(-1, 0, rounded,
		unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("execbuf: mmap %d bytes: %w", rounded, err)
	}
	return &Buffer{region: region, capacity: rounded}, nil
}

// Reserve hands out the next size-byte sub-region of the mapping, in
// allocation order. It fails with ErrBufferFull once the mapping is
// exhausted; Buffer never grows or compacts.
func (b *Buffer) Reserve(size int) (Slot, error) {
	if b.used+size > len(b.region) {
		return Slot{}, fmt.Errorf("execbuf: reserving %d bytes at offset %d (capacity %d): %w",
			size, b.used, len(b.region), ErrBufferFull)
	}
	slot := Slot{mem: b.region[b.used : b.used+size : b.used+size]}
	b.used += size
	return slot, nil
}

// Flip re-mprotects the whole mapping to PROT_READ|PROT_EXEC, dropping
// write permission once every emitted slot has been finalized. This is the
// flip-to-X step, in place of a permanently W|X region. Flip is
// idempotent; subsequent Reserve calls after Flip will
// still succeed at the byte-accounting level but the returned slot is no
// longer writable, so callers must finish emission before calling Flip.
func (b *Buffer) Flip() error {
	if b.flipped {
		return nil
	}
	if err := unix.Mprotect(b.region, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("execbuf: mprotect to R|X: %w", err)
	}
	b.flipped = true
	return nil
}

// Close unmaps the entire region. After Close, every Slot previously handed
// out by this Buffer is invalid and must not be dereferenced or invoked.
func (b *Buffer) Close() error {
	if b.region == nil {
		return nil
	}
	err := unix.Munmap(b.region)
	b.region = nil
	if err != nil {
		return fmt.Errorf("execbuf: munmap: %w", err)
	}
	return nil
}

// Cap reports the mapping's total capacity in bytes (page-rounded).
func (b *Buffer) Cap() int { return b.capacity }

// Used reports the number of bytes handed out to slots so far.
func (b *Buffer) Used() int { return b.used }
