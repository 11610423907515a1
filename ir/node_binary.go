package ir

import (
	"github.com/arc-language/exprjit/arena"
	"github.com/arc-language/exprjit/asm"
	"github.com/arc-language/exprjit/types"
)

// BinOp identifies the commutative-or-not Group-1 ALU operations this IR's
// Binary node supports. Mul has no general encoding in this assembler and
// Cmp is its own node kind (see Compare), so Binary only carries Add, Sub,
// and Or.
type BinOp uint8

const (
	OpAdd BinOp = iota
	OpSub
	OpOr
)

func (op BinOp) commutative() bool { return op == OpAdd || op == OpOr }

func (op BinOp) aluOp() asm.AluOp {
	switch op {
	case OpAdd:
		return asm.Add
	case OpSub:
		return asm.Sub
	default:
		return asm.Or
	}
}

// binaryNode is Binary<Op,T>(lhs, rhs): code selection dispatches on the
// combination of (lhs storage, rhs storage).
type binaryNode[T types.Scalar] struct {
	op       BinOp
	lhs, rhs Node
}

func (n *binaryNode[T]) sealed() {}

func (n *binaryNode[T]) Type() types.Descriptor { return types.Of[T]() }

func (n *binaryNode[T]) Emit(ctx *Context, want Placement) (Storage, error) {
	desc := types.Of[T]()

	sl, err := n.lhs.Emit(ctx, Any())
	if err != nil {
		return Storage{}, err
	}
	sr, err := n.rhs.Emit(ctx, Any())
	if err != nil {
		return Storage{}, err
	}

	// (Imm, Imm): constant-fold at build time is handled by the
	// constructor (newBinary, behind Add/Sub/Or, replaces two Immediate
	// operands with one folded Immediate node); this emit-time fold is a
	// fallback for any pair of children that both leave an unmaterialized
	// immediate.
	if sl.Kind == InImmediate && sr.Kind == InImmediate {
		folded := foldBinary(n.op, sl.Imm, sr.Imm)
		if !want.Fixed {
			return ImmStorage(folded), nil
		}
		dst := want.Reg.WithSize(desc.Size)
		if err := ctx.Asm.MovImm(dst, folded); err != nil {
			return Storage{}, err
		}
		return RegStorage(dst), nil
	}

	// (Imm, Reg) for a commutative op: swap into (Reg, Imm) form.
	if sl.Kind == InImmediate && sr.Kind == InReg && n.op.commutative() {
		sl, sr = sr, sl
	}
	// (Imm, Reg) for non-commutative ops (Sub): materialize lhs first.
	if sl.Kind == InImmediate && sr.Kind != InImmediate {
		r, err := ctx.Materialize(sl, desc.Size, desc.Signed, Any())
		if err != nil {
			return Storage{}, err
		}
		sl = RegStorage(r)
	}

	dst, err := ctx.Materialize(sl, desc.Size, desc.Signed, want)
	if err != nil {
		return Storage{}, &ErrOutOfRegisters{NodeKind: "Binary", Err: err}
	}

	switch sr.Kind {
	case InReg:
		if err := ctx.Asm.AluRR(n.op.aluOp(), dst, sr.Reg.WithSize(desc.Size)); err != nil {
			return Storage{}, err
		}
		ctx.Regs.Release(sr.Reg)
	case InImmediate:
		if sr.Imm < -(1<<31) || sr.Imm > (1<<32)-1 {
			r, err := ctx.Regs.AllocateGPR(desc.Size)
			if err != nil {
				return Storage{}, &ErrOutOfRegisters{NodeKind: "Binary", Err: err}
			}
			if err := ctx.Asm.MovImm(r, sr.Imm); err != nil {
				return Storage{}, err
			}
			if err := ctx.Asm.AluRR(n.op.aluOp(), dst, r); err != nil {
				return Storage{}, err
			}
			ctx.Regs.Release(r)
		} else if err := ctx.Asm.AluImm(n.op.aluOp(), dst, sr.Imm); err != nil {
			return Storage{}, err
		}
	case InMemory:
		if err := ctx.Asm.AluRM(n.op.aluOp(), dst, asm.Mem{Base: sr.Base, Disp: sr.Offset}); err != nil {
			return Storage{}, err
		}
		if sr.Base.ID != dst.ID || sr.Base.Float != dst.Float {
			ctx.Regs.Release(sr.Base)
		}
	}

	return RegStorage(dst), nil
}

func (n *binaryNode[T]) eval(env *evalEnv) (uint64, error) {
	desc := types.Of[T]()
	lraw, err := n.lhs.eval(env)
	if err != nil {
		return 0, err
	}
	rraw, err := n.rhs.eval(env)
	if err != nil {
		return 0, err
	}
	result := foldBinary(n.op, numericValue(lraw, desc), numericValue(rraw, desc))
	return truncate(result, desc.Size), nil
}

func foldBinary(op BinOp, a, b int64) int64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	default:
		return a | b
	}
}

func newBinary[T types.Scalar](a *arena.Arena, op BinOp, lhs, rhs Value[T]) (Value[T], error) {
	if l, ok := lhs.Node().(*immediateNode[T]); ok {
		if r, ok := rhs.Node().(*immediateNode[T]); ok {
			desc := types.Of[T]()
			folded := foldBinary(op,
				numericValue(uint64(scalarToInt64(l.value)), desc),
				numericValue(uint64(scalarToInt64(r.value)), desc))
			return Imm[T](a, FromRaw[T](truncate(folded, desc.Size)))
		}
	}
	n, err := arena.Alloc1[binaryNode[T]](a)
	if err != nil {
		return Value[T]{}, err
	}
	n.op, n.lhs, n.rhs = op, lhs.Node(), rhs.Node()
	return newValue[T](n), nil
}

// Add constructs Binary<Add,T>(lhs, rhs).
func Add[T types.Scalar](a *arena.Arena, lhs, rhs Value[T]) (Value[T], error) {
	return newBinary(a, OpAdd, lhs, rhs)
}

// Sub constructs Binary<Sub,T>(lhs, rhs).
func Sub[T types.Scalar](a *arena.Arena, lhs, rhs Value[T]) (Value[T], error) {
	return newBinary(a, OpSub, lhs, rhs)
}

// Or constructs Binary<Or,T>(lhs, rhs).
func Or[T types.Scalar](a *arena.Arena, lhs, rhs Value[T]) (Value[T], error) {
	return newBinary(a, OpOr, lhs, rhs)
}
