package ir

import (
	"unsafe"

	"github.com/arc-language/exprjit/types"
)

// Node is the closed capability set every node kind implements: emit
// itself against a Context to produce a Storage, and report its static
// type. The sealed method prevents any package outside ir from
// implementing Node — the set of node kinds is closed by construction —
// while Emit and Type remain exported so package jit (the function
// builder) can drive compilation.
type Node interface {
	Emit(ctx *Context, want Placement) (Storage, error)
	Type() types.Descriptor
	eval(env *evalEnv) (uint64, error)
	sealed()
}

// Value[T] is a typed handle to a Node that produces a scalar result of Go
// type T. It is the typed-builder currency: each node constructor
// preserves T through composition so element type and size survive
// without any runtime type tag.
type Value[T types.Scalar] struct {
	node Node
}

// Node exposes the underlying untyped Node, for package jit's compile
// entry point.
func (v Value[T]) Node() Node { return v.node }

// Type returns the statically-known descriptor for T.
func (v Value[T]) Type() types.Descriptor { return types.Of[T]() }

func newValue[T types.Scalar](n Node) Value[T] { return Value[T]{node: n} }

// Ptr[T] is a typed handle to a Node producing a pointer result, statically
// typed as "pointer to T" where T may itself be a scalar (the eventual
// Deref target) or another Go struct type (an intermediate aggregate,
// chained through further FieldPtr calls). T is unconstrained: a field
// pointer is statically typed as *Field for any Field, not just scalars.
type Ptr[T any] struct {
	node Node
}

// Node exposes the underlying untyped Node.
func (p Ptr[T]) Node() Node { return p.node }

// Type returns the pointer descriptor (types.Pointee): pointers are always
// 8 bytes regardless of what T describes.
func (p Ptr[T]) Type() types.Descriptor { return types.Pointee }

// ElemSize reports sizeof(T) as the pointee's static element size, used by
// PtrAdd for index scaling.
func (p Ptr[T]) ElemSize() uintptr {
	var zero T
	return unsafe.Sizeof(zero)
}

func newPtr[T any](n Node) Ptr[T] { return Ptr[T]{node: n} }
