// Package types describes the scalar type system the expression-tree IR is
// built over: a closed set of integer/pointer kinds carried through node
// construction instead of a runtime type tag.
package types

import "fmt"

// Kind identifies the broad category of a Descriptor. Float is carried for
// ABI classification and future-extension symmetry with the teacher's
// SizeOf/AlignOf switch, but no node constructor in package ir ever
// produces a Float-kind value (floating-point arithmetic is a non-goal).
type Kind uint8

const (
	Int Kind = iota
	Pointer
	Float
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Pointer:
		return "ptr"
	case Float:
		return "float"
	default:
		return "invalid"
	}
}

// Descriptor is the type description every node reports through Type(): a
// field descriptor's {offset, size, signedness} minus the offset, since a
// Descriptor describes a value's own representation rather than its
// position within some aggregate.
type Descriptor struct {
	Kind   Kind
	Size   uint8 // bytes: 1, 2, 4, or 8
	Signed bool
}

func (d Descriptor) String() string {
	sign := "u"
	if d.Signed {
		sign = "i"
	}
	if d.Kind == Pointer {
		return "ptr"
	}
	return fmt.Sprintf("%s%d", sign, d.Size*8)
}

// Equal reports whether two descriptors describe the same physical
// representation (kind, size and signedness all match).
func (d Descriptor) Equal(o Descriptor) bool {
	return d.Kind == o.Kind && d.Size == o.Size && d.Signed == o.Signed
}

// IsFloat reports whether d is a floating-point descriptor.
func (d Descriptor) IsFloat() bool { return d.Kind == Float }

// Scalar is the closed set of Go types a Value[T] may be parameterized by.
// Each underlying type carries its size and signedness statically, so a
// Value[T]'s Descriptor can always be derived from T alone; there is no
// floating-point member in this set (float nodes are a non-goal — see
// Descriptor.Kind).
type Scalar interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~uintptr
}

// Of derives the Descriptor for a Go Scalar type parameter.
func Of[T Scalar]() Descriptor {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Descriptor{Int, 1, true}
	case uint8:
		return Descriptor{Int, 1, false}
	case int16:
		return Descriptor{Int, 2, true}
	case uint16:
		return Descriptor{Int, 2, false}
	case int32:
		return Descriptor{Int, 4, true}
	case uint32:
		return Descriptor{Int, 4, false}
	case int64:
		return Descriptor{Int, 8, true}
	case uint64:
		return Descriptor{Int, 8, false}
	case uintptr:
		return Descriptor{Pointer, 8, false}
	default:
		panic(fmt.Sprintf("types: unsupported scalar type %T", zero))
	}
}

// Pointee is the descriptor carried by a value of pointer kind: it always
// has Size 8 and Kind Pointer, regardless of what it points to (the
// pointed-to type lives in FieldDescriptor / Deref's type parameter).
var Pointee = Descriptor{Kind: Pointer, Size: 8, Signed: false}
