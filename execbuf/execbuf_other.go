//go:build !unix

package execbuf

// Buffer is the non-unix stub: the executable-memory collaborator is only
// wired up for unix's mmap(2)/mprotect(2)/munmap(2) family; this build
// simply has no implementation of it.
type Buffer struct{}

// Slot is the non-unix stub counterpart of the unix Slot.
type Slot struct{}

func (Slot) Bytes() []byte { return nil }
func (Slot) Addr() uintptr { return 0 }

// New always fails on non-unix platforms.
func New(capacity int) (*Buffer, error) { return nil, ErrUnsupportedPlatform }

func (b *Buffer) Reserve(size int) (Slot, error) { return Slot{}, ErrUnsupportedPlatform }
func (b *Buffer) Flip() error                    { return ErrUnsupportedPlatform }
func (b *Buffer) Close() error                   { return nil }
func (b *Buffer) Cap() int                       { return 0 }
func (b *Buffer) Used() int                      { return 0 }
