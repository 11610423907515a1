// Package asm is the code buffer and x86-64 instruction encoder: an
// append-only byte sink with forward-reference label patching, plus the
// opcode-level Assembler built on top of it.
package asm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrCodeBufferFull is raised when byte emission would exceed the buffer's
// fixed capacity.
var ErrCodeBufferFull = errors.New("asm: code buffer full")

// ErrUnresolvedLabel is raised by Finalize when a patch references a label
// that was never placed — an internal-consistency bug, not a user error.
type ErrUnresolvedLabel struct {
	Label Label
}

func (e *ErrUnresolvedLabel) Error() string {
	return fmt.Sprintf("asm: label %d referenced by a patch but never placed", e.Label)
}

// Label is an opaque forward-reference id: unresolved until PlaceLabel
// binds it to a byte offset.
type Label uint32

const unresolved = -1

type patch struct {
	label      Label
	fieldStart int // byte offset of the rel32 field to rewrite
}

// Buffer is the append-only code buffer: a fixed-capacity byte vector, a
// label table, and a patch list. Buffer is not safe for concurrent
// mutation; it is single-writer for the lifetime of one compile.
type Buffer struct {
	code    []byte
	labels  []int // label id -> byte offset, or unresolved
	patches []patch

	listing io.Writer
}

// NewBuffer allocates a code buffer with the given fixed byte capacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 4096
	}
	return &Buffer{code: make([]byte, 0, capacity)}
}

// SetListing enables a line-oriented diagnostic text stream: every
// Assembler emit call additionally writes one "<hex>  MNEMONIC operands"
// line to w. Passing nil disables it (the zero value).
func (b *Buffer) SetListing(w io.Writer) { b.listing = w }

func (b *Buffer) reserve(n int) error {
	if len(b.code)+n > cap(b.code) {
		return fmt.Errorf("asm: emitting %d bytes at offset %d (capacity %d): %w", n, len(b.code), cap(b.code), ErrCodeBufferFull)
	}
	return nil
}

// Emit8 appends a single byte.
func (b *Buffer) Emit8(v byte) error {
	if err := b.reserve(1); err != nil {
		return err
	}
	b.code = append(b.code, v)
	return nil
}

// Emit16 appends v little-endian.
func (b *Buffer) Emit16(v uint16) error {
	if err := b.reserve(2); err != nil {
		return err
	}
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.code = append(b.code, tmp[:]...)
	return nil
}

// Emit32 appends v little-endian.
func (b *Buffer) Emit32(v uint32) error {
	if err := b.reserve(4); err != nil {
		return err
	}
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.code = append(b.code, tmp[:]...)
	return nil
}

// Emit64 appends v little-endian.
func (b *Buffer) Emit64(v uint64) error {
	if err := b.reserve(8); err != nil {
		return err
	}
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.code = append(b.code, tmp[:]...)
	return nil
}

// AllocateLabel reserves a fresh label id, initially unresolved.
func (b *Buffer) AllocateLabel() Label {
	id := Label(len(b.labels))
	b.labels = append(b.labels, unresolved)
	return id
}

// PlaceLabel binds label to the current byte offset. It fails if the label
// is already bound — labels in this scheme are placed exactly once.
func (b *Buffer) PlaceLabel(label Label) error {
	if int(label) >= len(b.labels) {
		return fmt.Errorf("asm: placing unknown label %d", label)
	}
	if b.labels[label] != unresolved {
		return fmt.Errorf("asm: label %d already placed at offset %d", label, b.labels[label])
	}
	b.labels[label] = len(b.code)
	return nil
}

// emitRel32Placeholder appends a 4-byte zero placeholder and records a
// patch so Finalize can later rewrite it to target - (fieldOffset+4).
func (b *Buffer) emitRel32Placeholder(label Label) error {
	if int(label) >= len(b.labels) {
		return fmt.Errorf("asm: referencing unknown label %d", label)
	}
	fieldStart := len(b.code)
	if err := b.Emit32(0); err != nil {
		return err
	}
	b.patches = append(b.patches, patch{label: label, fieldStart: fieldStart})
	return nil
}

// Finalize walks the patch list and writes each rel32 field as
// target - (fieldOffset + 4). It fails if any referenced label was never
// placed.
func (b *Buffer) Finalize() error {
	for _, p := range b.patches {
		target := b.labels[p.label]
		if target == unresolved {
			return &ErrUnresolvedLabel{Label: p.label}
		}
		rel := int32(target - (p.fieldStart + 4))
		binary.LittleEndian.PutUint32(b.code[p.fieldStart:p.fieldStart+4], uint32(rel))
	}
	return nil
}

// CurrentOffset returns the buffer's current length in bytes.
func (b *Buffer) CurrentOffset() int { return len(b.code) }

// ByteSlice returns a read-only view of code[start:end], for diagnostics.
func (b *Buffer) ByteSlice(start, end int) []byte { return b.code[start:end] }

// Bytes returns the full emitted byte stream. Valid after Finalize.
func (b *Buffer) Bytes() []byte { return b.code }
