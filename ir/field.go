package ir

import (
	"unsafe"

	"github.com/arc-language/exprjit/types"
)

// FieldDescriptor carries the statically-known shape of a struct field —
// {offset, size, signedness} — derived at build time from the outer/field
// Go types.
type FieldDescriptor struct {
	Offset uint32
	Size   uint8
	Signed bool
}

// Field builds a FieldDescriptor for a scalar field F at the given byte
// offset within its enclosing struct. offset is ordinarily
// unsafe.Offsetof(outer.field) computed by the caller at the call site,
// where Go's compiler resolves it to a constant.
func Field[F types.Scalar](offset uintptr) FieldDescriptor {
	d := types.Of[F]()
	return FieldDescriptor{Offset: uint32(offset), Size: d.Size, Signed: d.Signed}
}

// FieldAggregate builds a FieldDescriptor for a non-scalar (struct) field,
// used when chaining FieldPtr into an embedded struct rather than loading
// a scalar directly. Size/Signed are irrelevant for an aggregate field
// pointer (Deref never targets it directly), so Size is derived from
// unsafe.Sizeof purely for diagnostic/listing purposes.
func FieldAggregate[F any](offset uintptr) FieldDescriptor {
	var zero F
	size := unsafe.Sizeof(zero)
	if size > 255 {
		size = 255
	}
	return FieldDescriptor{Offset: uint32(offset), Size: uint8(size)}
}
