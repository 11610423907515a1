package ir

import (
	"fmt"

	"github.com/arc-language/exprjit/types"
)

// ErrTypeMismatch describes a build-time type check failure: a child node's
// type does not match what its parent expected. No constructor in this
// package returns it: the Value[T]/Ptr[T] type parameters already reject a
// mismatched child when the Go program itself is compiled.
type ErrTypeMismatch struct {
	Want, Got types.Descriptor
}

func (e *ErrTypeMismatch) Error() string {
	return fmt.Sprintf("ir: type mismatch: want %s, got %s", e.Want, e.Got)
}

// ErrOutOfRegisters reports that the allocator had no free register left
// to satisfy a node's Emit, enriched with a descriptor of the failing
// node so the caller can see which part of the tree overflowed.
type ErrOutOfRegisters struct {
	NodeKind string
	Err      error
}

func (e *ErrOutOfRegisters) Error() string {
	return fmt.Sprintf("ir: out of registers while emitting %s: %v", e.NodeKind, e.Err)
}

func (e *ErrOutOfRegisters) Unwrap() error { return e.Err }

// ErrUnscalablePointerStride is raised when pointer-index arithmetic
// (ir.PtrAdd) needs to scale an integer index by an element size that is
// neither 1 nor a power of two. This JIT never implements a general
// multiply, so only power-of-two strides can be synthesized with repeated
// addition; anything else is rejected when the PtrAdd node is emitted (the
// PtrAdd constructor itself accepts it) rather than silently truncated or
// routed through an unsupported multiply.
type ErrUnscalablePointerStride struct {
	ElemSize uintptr
}

func (e *ErrUnscalablePointerStride) Error() string {
	return fmt.Sprintf("ir: pointer stride %d is not 1 or a power of two, and Mul is not implemented", e.ElemSize)
}

// ErrParameterIndex is raised at build time when a Param/ParamPtr index
// exceeds the host calling convention's integer argument register count:
// stack-passed parameters are out of scope, so an index beyond the
// register budget can never be satisfied.
type ErrParameterIndex struct {
	Index, Max int
}

func (e *ErrParameterIndex) Error() string {
	return fmt.Sprintf("ir: parameter index %d exceeds the maximum of %d supported without stack-passed arguments", e.Index, e.Max)
}
