package ir

import (
	"unsafe"

	"github.com/arc-language/exprjit/arena"
	"github.com/arc-language/exprjit/asm"
	"github.com/arc-language/exprjit/regalloc"
	"github.com/arc-language/exprjit/types"
)

// derefNode is Deref<T>(ptr): a load of size sizeof(T) from a
// pointer-typed operand. If ptr is already in a register, this returns a
// deferred memory Storage at offset 0 without emitting anything — the
// eventual consumer issues the MOV. Only when the consumer requires a
// pure register value does Emit issue the load directly, with
// zero/sign-extension following the x86-64 MOVZX/MOVSX rules.
type derefNode[T types.Scalar] struct {
	ptr Node
}

func (n *derefNode[T]) sealed() {}

func (n *derefNode[T]) Type() types.Descriptor { return types.Of[T]() }

func (n *derefNode[T]) Emit(ctx *Context, want Placement) (Storage, error) {
	desc := types.Of[T]()

	ptrStorage, err := n.ptr.Emit(ctx, Any())
	if err != nil {
		return Storage{}, err
	}

	var base regalloc.Reg
	var offset int32
	switch ptrStorage.Kind {
	case InReg:
		base, offset = ptrStorage.Reg, 0
	case InAddress:
		base, offset = ptrStorage.Base, ptrStorage.Offset
	default:
		panic("ir: Deref operand did not produce a pointer Storage")
	}

	deferred := MemStorage(base, offset, desc.Size, desc.Signed)
	if !want.Fixed {
		return deferred, nil
	}

	dst := want.Reg.WithSize(desc.Size)
	if err := ctx.Asm.MovLoad(dst, asm.Mem{Base: base, Disp: offset}, desc.Signed); err != nil {
		return Storage{}, err
	}
	if base.ID != dst.ID || base.Float != dst.Float {
		ctx.Regs.Release(base)
	}
	return RegStorage(dst), nil
}

// eval reads sizeof(T) bytes from the real address n.ptr evaluates to —
// the same live memory the compiled load instruction would read, not a
// simulated heap. This is what lets Interpret serve as a true differential
// oracle for any tree that dereferences a pointer the caller populated.
func (n *derefNode[T]) eval(env *evalEnv) (uint64, error) {
	addr, err := n.ptr.eval(env)
	if err != nil {
		return 0, err
	}
	desc := types.Of[T]()
	p := unsafe.Pointer(uintptr(addr))
	var raw uint64
	switch desc.Size {
	case 1:
		raw = uint64(*(*uint8)(p))
	case 2:
		raw = uint64(*(*uint16)(p))
	case 4:
		raw = uint64(*(*uint32)(p))
	default:
		raw = *(*uint64)(p)
	}
	if desc.Signed {
		return truncate(signExtend(raw, desc.Size), desc.Size), nil
	}
	return raw, nil
}

// Deref constructs an arena-backed Deref<T> node loading sizeof(T) bytes
// from ptr.
func Deref[T types.Scalar](a *arena.Arena, ptr Ptr[T]) (Value[T], error) {
	n, err := arena.Alloc1[derefNode[T]](a)
	if err != nil {
		return Value[T]{}, err
	}
	n.ptr = ptr.Node()
	return newValue[T](n), nil
}
