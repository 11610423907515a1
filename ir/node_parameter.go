package ir

import (
	"github.com/arc-language/exprjit/abi"
	"github.com/arc-language/exprjit/arena"
	"github.com/arc-language/exprjit/regalloc"
	"github.com/arc-language/exprjit/types"
)

// parameterNode is Parameter<T>: a reference to the N-th input, bound to
// the ABI's input register for that slot and type. The slot's register is
// reserved for the whole compile by package jit at binding time (before
// the root node is emitted) rather than released after a computed last
// use — see DESIGN.md for why this repository simplifies that step.
type parameterNode[T types.Scalar] struct {
	reg   regalloc.Reg
	index int
}

func (n *parameterNode[T]) sealed() {}

func (n *parameterNode[T]) Type() types.Descriptor { return types.Of[T]() }

func (n *parameterNode[T]) Emit(ctx *Context, want Placement) (Storage, error) {
	s := RegStorage(n.reg)
	if !want.Fixed || (want.Reg.ID == n.reg.ID && want.Reg.Float == n.reg.Float) {
		return s, nil
	}
	r, err := ctx.Materialize(s, n.Type().Size, n.Type().Signed, want)
	if err != nil {
		return Storage{}, err
	}
	return RegStorage(r), nil
}

func (n *parameterNode[T]) eval(env *evalEnv) (uint64, error) {
	return env.arg(n.index)
}

// Param constructs an arena-backed Parameter<T> node bound to the index-th
// integer/pointer argument register of the host calling convention
// (abi.Host).
func Param[T types.Scalar](a *arena.Arena, index int) (Value[T], error) {
	conv := abi.Host()
	if index < 0 || index >= len(conv.IntArgRegs) {
		return Value[T]{}, &ErrParameterIndex{Index: index, Max: len(conv.IntArgRegs) - 1}
	}
	n, err := arena.Alloc1[parameterNode[T]](a)
	if err != nil {
		return Value[T]{}, err
	}
	n.reg = conv.IntArgRegs[index].WithSize(types.Of[T]().Size)
	n.index = index
	return newValue[T](n), nil
}

// parameterPtrNode is the pointer-typed counterpart of parameterNode,
// backing Ptr[T] parameters.
type parameterPtrNode[T any] struct {
	reg   regalloc.Reg
	index int
}

func (n *parameterPtrNode[T]) sealed() {}

func (n *parameterPtrNode[T]) Type() types.Descriptor { return types.Pointee }

func (n *parameterPtrNode[T]) Emit(ctx *Context, want Placement) (Storage, error) {
	s := RegStorage(n.reg)
	if !want.Fixed || (want.Reg.ID == n.reg.ID && want.Reg.Float == n.reg.Float) {
		return s, nil
	}
	r, err := ctx.Materialize(s, 8, false, want)
	if err != nil {
		return Storage{}, err
	}
	return RegStorage(r), nil
}

func (n *parameterPtrNode[T]) eval(env *evalEnv) (uint64, error) {
	return env.arg(n.index)
}

// ParamPtr constructs an arena-backed Parameter<*T> node bound to the
// index-th integer/pointer argument register.
func ParamPtr[T any](a *arena.Arena, index int) (Ptr[T], error) {
	conv := abi.Host()
	if index < 0 || index >= len(conv.IntArgRegs) {
		return Ptr[T]{}, &ErrParameterIndex{Index: index, Max: len(conv.IntArgRegs) - 1}
	}
	n, err := arena.Alloc1[parameterPtrNode[T]](a)
	if err != nil {
		return Ptr[T]{}, err
	}
	n.reg = conv.IntArgRegs[index].WithSize(8)
	n.index = index
	return newPtr[T](n), nil
}
