package ir

import (
	"github.com/arc-language/exprjit/arena"
	"github.com/arc-language/exprjit/types"
)

// immediateNode is Immediate<T>: a compile-time constant of scalar type T.
// Its result is deferred (Storage::Immediate) until a parent forces
// materialization — it becomes a register only when the parent cannot
// consume an immediate directly.
type immediateNode[T types.Scalar] struct {
	value T
}

func (n *immediateNode[T]) sealed() {}

func (n *immediateNode[T]) Type() types.Descriptor { return types.Of[T]() }

func (n *immediateNode[T]) Emit(ctx *Context, want Placement) (Storage, error) {
	imm := scalarToInt64(n.value)
	if !want.Fixed {
		return ImmStorage(imm), nil
	}
	if err := ctx.Asm.MovImm(want.Reg.WithSize(n.Type().Size), imm); err != nil {
		return Storage{}, err
	}
	return RegStorage(want.Reg), nil
}

func (n *immediateNode[T]) eval(env *evalEnv) (uint64, error) {
	return uint64(scalarToInt64(n.value)), nil
}

// Imm constructs an arena-backed Immediate<T> node holding the compile-time
// constant v.
func Imm[T types.Scalar](a *arena.Arena, v T) (Value[T], error) {
	n, err := arena.Alloc1[immediateNode[T]](a)
	if err != nil {
		return Value[T]{}, err
	}
	n.value = v
	return newValue[T](n), nil
}

// scalarToInt64 reinterprets any types.Scalar value as its raw bit pattern
// in an int64, which is how Storage and the asm package carry immediates
// regardless of signedness (the encoder's operand size governs truncation).
func scalarToInt64[T types.Scalar](v T) int64 {
	switch x := any(v).(type) {
	case int8:
		return int64(x)
	case uint8:
		return int64(x)
	case int16:
		return int64(x)
	case uint16:
		return int64(x)
	case int32:
		return int64(x)
	case uint32:
		return int64(x)
	case int64:
		return x
	case uint64:
		return int64(x)
	case uintptr:
		return int64(x)
	default:
		panic("ir: unreachable scalar kind")
	}
}
