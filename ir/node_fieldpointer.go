package ir

import (
	"math/bits"

	"github.com/arc-language/exprjit/arena"
	"github.com/arc-language/exprjit/asm"
	"github.com/arc-language/exprjit/regalloc"
	"github.com/arc-language/exprjit/types"
)

// fieldPointerNode is FieldPointer(base, offset): pointer arithmetic by a
// build-time-known constant offset, statically typed as *Field. Its result
// defers to Storage::InAddress whenever the parent can accept that,
// folding into a following Deref or store without ever emitting a LEA;
// chained FieldPointers fold their offsets together across multiple calls
// without ever materializing an intermediate LEA either.
type fieldPointerNode[Outer, Field any] struct {
	base   Node
	offset int32
}

func (n *fieldPointerNode[Outer, Field]) sealed() {}

func (n *fieldPointerNode[Outer, Field]) Type() types.Descriptor { return types.Pointee }

func (n *fieldPointerNode[Outer, Field]) Emit(ctx *Context, want Placement) (Storage, error) {
	baseStorage, err := n.base.Emit(ctx, Any())
	if err != nil {
		return Storage{}, err
	}

	var base regalloc.Reg
	var totalOffset int32
	switch baseStorage.Kind {
	case InAddress:
		base, totalOffset = baseStorage.Base, baseStorage.Offset+n.offset
	case InReg:
		base, totalOffset = baseStorage.Reg, n.offset
	default:
		panic("ir: FieldPointer base did not produce a pointer Storage")
	}

	if !want.Fixed {
		return AddressStorage(base, totalOffset), nil
	}
	dst, err := ctx.AddressToReg(AddressStorage(base, totalOffset), want)
	if err != nil {
		return Storage{}, err
	}
	return RegStorage(dst), nil
}

func (n *fieldPointerNode[Outer, Field]) eval(env *evalEnv) (uint64, error) {
	base, err := n.base.eval(env)
	if err != nil {
		return 0, err
	}
	return base + uint64(n.offset), nil
}

// FieldPtr constructs an arena-backed FieldPointer node: base + desc.Offset,
// statically typed as a pointer to Field.
func FieldPtr[Outer, Field any](a *arena.Arena, base Ptr[Outer], desc FieldDescriptor) (Ptr[Field], error) {
	n, err := arena.Alloc1[fieldPointerNode[Outer, Field]](a)
	if err != nil {
		return Ptr[Field]{}, err
	}
	n.base, n.offset = base.Node(), int32(desc.Offset)
	return newPtr[Field](n), nil
}

// ptrAddNode is the pointer-plus-scaled-integer-index node the front end
// builds for `add(ptr, idx)`: pointer arithmetic scales the index by the
// pointee's element size. Because this JIT never implements a general
// multiply, the index is scaled with repeated addition instead of a
// shift, which only works when ElemSize is 1 or a power of two — see
// ErrUnscalablePointerStride.
type ptrAddNode[T any] struct {
	base     Node
	idx      Node
	elemSize uintptr
}

func (n *ptrAddNode[T]) sealed() {}

func (n *ptrAddNode[T]) Type() types.Descriptor { return types.Pointee }

func (n *ptrAddNode[T]) Emit(ctx *Context, want Placement) (Storage, error) {
	baseStorage, err := n.base.Emit(ctx, Any())
	if err != nil {
		return Storage{}, err
	}
	baseReg, err := ctx.AddressToReg(baseStorage, Any())
	if err != nil {
		return Storage{}, err
	}

	idxStorage, err := n.idx.Emit(ctx, Any())
	if err != nil {
		return Storage{}, err
	}
	idxReg, err := ctx.Materialize(idxStorage, 8, false, Any())
	if err != nil {
		return Storage{}, err
	}

	if n.elemSize > 1 {
		if !isPowerOfTwo(n.elemSize) {
			return Storage{}, &ErrUnscalablePointerStride{ElemSize: n.elemSize}
		}
		// Scale by a power-of-two stride via repeated self-addition
		// (idx += idx, log2(elemSize) times) rather than a shift opcode:
			// this encoder has no SHL, and ADD r,r is exactly doubling.
		shift := bits.TrailingZeros64(uint64(n.elemSize))
		for i := 0; i < shift; i++ {
			if err := ctx.Asm.AluRR(asm.Add, idxReg, idxReg); err != nil {
				return Storage{}, err
			}
		}
	}

	if err := ctx.Asm.AluRR(asm.Add, baseReg, idxReg); err != nil {
		return Storage{}, err
	}
	ctx.Regs.Release(idxReg)

	if want.Fixed && (baseReg.ID != want.Reg.ID || baseReg.Float != want.Reg.Float) {
		dst := want.Reg.WithSize(8)
		if err := ctx.Asm.MovRR(dst, baseReg); err != nil {
			return Storage{}, err
		}
		ctx.Regs.Release(baseReg)
		return RegStorage(dst), nil
	}
	return RegStorage(baseReg), nil
}

func (n *ptrAddNode[T]) eval(env *evalEnv) (uint64, error) {
	base, err := n.base.eval(env)
	if err != nil {
		return 0, err
	}
	idx, err := n.idx.eval(env)
	if err != nil {
		return 0, err
	}
	return base + idx*uint64(n.elemSize), nil
}

// PtrAdd constructs an arena-backed pointer-plus-scaled-index node:
// base + idx*sizeof(T).
func PtrAdd[T any, U types.Scalar](a *arena.Arena, base Ptr[T], idx Value[U]) (Ptr[T], error) {
	n, err := arena.Alloc1[ptrAddNode[T]](a)
	if err != nil {
		return Ptr[T]{}, err
	}
	n.base, n.idx, n.elemSize = base.Node(), idx.Node(), base.ElemSize()
	return newPtr[T](n), nil
}

func isPowerOfTwo(v uintptr) bool { return v != 0 && v&(v-1) == 0 }
