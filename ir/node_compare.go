package ir

import (
	"fmt"

	"github.com/arc-language/exprjit/arena"
	"github.com/arc-language/exprjit/asm"
	"github.com/arc-language/exprjit/types"
)

// compareNode is Compare<CC,T>(l, r): it emits CMP l, r and produces a
// flag-valued Storage carrying the condition code — no register is
// allocated for the flag itself. Only Conditional consumes a compareNode;
// emitting one outside of that context (want.Fixed) still needs to
// produce *some* scalar value, so Emit below materializes the flag as a
// 0/1 byte via the Jcc/label idiom.
type compareNode[T types.Scalar] struct {
	cc       asm.CC
	lhs, rhs Node
}

func (n *compareNode[T]) sealed() {}

// Type reports the uint8 descriptor of the 0/1 byte Emit materializes, not
// the operand type T — this IR has no boolean Descriptor; Compare is
// flag-valued, consumed structurally by Conditional.
func (n *compareNode[T]) Type() types.Descriptor { return types.Of[uint8]() }

// EmitFlags emits `CMP lhs, rhs` and returns the condition code to branch
// on, without allocating a result register. Conditional calls this
// directly instead of going through Emit.
func (n *compareNode[T]) EmitFlags(ctx *Context) (asm.CC, error) {
	desc := types.Of[T]()

	sl, err := n.lhs.Emit(ctx, Any())
	if err != nil {
		return 0, err
	}
	sr, err := n.rhs.Emit(ctx, Any())
	if err != nil {
		return 0, err
	}

	// CMP's left operand must be a register; materialize if the lhs
	// deferred to memory or an immediate.
	dl, err := ctx.Materialize(sl, desc.Size, desc.Signed, Any())
	if err != nil {
		return 0, &ErrOutOfRegisters{NodeKind: "Compare", Err: err}
	}

	switch sr.Kind {
	case InReg:
		if err := ctx.Asm.AluRR(asm.Cmp, dl, sr.Reg.WithSize(desc.Size)); err != nil {
			return 0, err
		}
		ctx.Regs.Release(sr.Reg)
	case InMemory:
		if err := ctx.Asm.AluRM(asm.Cmp, dl, asm.Mem{Base: sr.Base, Disp: sr.Offset}); err != nil {
			return 0, err
		}
		if sr.Base.ID != dl.ID || sr.Base.Float != dl.Float {
			ctx.Regs.Release(sr.Base)
		}
	case InImmediate:
		if sr.Imm < -(1<<31) || sr.Imm > (1<<32)-1 {
			r, err := ctx.Regs.AllocateGPR(desc.Size)
			if err != nil {
				return 0, &ErrOutOfRegisters{NodeKind: "Compare", Err: err}
			}
			if err := ctx.Asm.MovImm(r, sr.Imm); err != nil {
				return 0, err
			}
			if err := ctx.Asm.AluRR(asm.Cmp, dl, r); err != nil {
				return 0, err
			}
			ctx.Regs.Release(r)
		} else if err := ctx.Asm.AluImm(asm.Cmp, dl, sr.Imm); err != nil {
			return 0, err
		}
	}
	ctx.Regs.Release(dl)
	return n.cc, nil
}

// Emit materializes the comparison's flag as a 0/1 byte. A bare Compare is
// ordinarily a Conditional's cond operand, consumed via EmitFlags instead,
// but Compare still must satisfy the closed Node interface on its own.
// Rather than add a dedicated SETcc opcode, this reuses the same Jcc/label
// machinery Conditional uses: jump over a MOV of 1 when the condition is
// false.
func (n *compareNode[T]) Emit(ctx *Context, want Placement) (Storage, error) {
	cc, err := n.EmitFlags(ctx)
	if err != nil {
		return Storage{}, err
	}
	dst, err := ctx.destFor(1, want)
	if err != nil {
		return Storage{}, &ErrOutOfRegisters{NodeKind: "Compare", Err: err}
	}
	falseLabel := ctx.Asm.Buffer().AllocateLabel()
	endLabel := ctx.Asm.Buffer().AllocateLabel()
	if err := ctx.Asm.Jcc(cc.Negate(), falseLabel); err != nil {
		return Storage{}, err
	}
	if err := ctx.Asm.MovImm(dst.WithSize(1), 1); err != nil {
		return Storage{}, err
	}
	if err := ctx.Asm.Jmp(endLabel); err != nil {
		return Storage{}, err
	}
	if err := ctx.Asm.Buffer().PlaceLabel(falseLabel); err != nil {
		return Storage{}, err
	}
	if err := ctx.Asm.MovImm(dst.WithSize(1), 0); err != nil {
		return Storage{}, err
	}
	if err := ctx.Asm.Buffer().PlaceLabel(endLabel); err != nil {
		return Storage{}, err
	}
	return RegStorage(dst.WithSize(1)), nil
}

// evalFlag is the interpreter counterpart of EmitFlags: it evaluates both
// operands and reports whether the condition holds, without materializing
// a 0/1 value. conditionalNode.eval uses this directly, mirroring how
// Conditional.Emit uses EmitFlags directly instead of going through Emit.
func (n *compareNode[T]) evalFlag(env *evalEnv) (bool, error) {
	desc := types.Of[T]()
	lraw, err := n.lhs.eval(env)
	if err != nil {
		return false, err
	}
	rraw, err := n.rhs.eval(env)
	if err != nil {
		return false, err
	}
	switch n.cc {
	case asm.JG:
		return compareSigned(lraw, desc.Size) > compareSigned(rraw, desc.Size), nil
	case asm.JNG:
		return compareSigned(lraw, desc.Size) <= compareSigned(rraw, desc.Size), nil
	case asm.JL:
		return compareSigned(lraw, desc.Size) < compareSigned(rraw, desc.Size), nil
	case asm.JNL:
		return compareSigned(lraw, desc.Size) >= compareSigned(rraw, desc.Size), nil
	case asm.JA:
		return compareUnsigned(lraw, desc.Size) > compareUnsigned(rraw, desc.Size), nil
	case asm.JNA:
		return compareUnsigned(lraw, desc.Size) <= compareUnsigned(rraw, desc.Size), nil
	case asm.JB:
		return compareUnsigned(lraw, desc.Size) < compareUnsigned(rraw, desc.Size), nil
	case asm.JNB:
		return compareUnsigned(lraw, desc.Size) >= compareUnsigned(rraw, desc.Size), nil
	case asm.JZ:
		return zeroExtend(lraw, desc.Size) == zeroExtend(rraw, desc.Size), nil
	case asm.JNZ:
		return zeroExtend(lraw, desc.Size) != zeroExtend(rraw, desc.Size), nil
	default:
		return false, fmt.Errorf("ir: interpret: unknown condition code %v", n.cc)
	}
}

func (n *compareNode[T]) eval(env *evalEnv) (uint64, error) {
	ok, err := n.evalFlag(env)
	if err != nil {
		return 0, err
	}
	if ok {
		return 1, nil
	}
	return 0, nil
}

func newCompare[T types.Scalar](a *arena.Arena, cc asm.CC, lhs, rhs Value[T]) (Value[T], error) {
	n, err := arena.Alloc1[compareNode[T]](a)
	if err != nil {
		return Value[T]{}, err
	}
	n.cc, n.lhs, n.rhs = cc, lhs.Node(), rhs.Node()
	return newValue[T](n), nil
}

// Gt constructs Compare<JG,T>(l, r) for signed T, Compare<JA,T> for
// unsigned T, picking the signedness-correct condition code from the
// operand type rather than exposing two builder methods.
func Gt[T types.Scalar](a *arena.Arena, lhs, rhs Value[T]) (Value[T], error) {
	return newCompare(a, signedAwareCC(types.Of[T](), asm.JG, asm.JA), lhs, rhs)
}

// Lt constructs Compare<JL,T>(l, r) for signed T, Compare<JB,T> for
// unsigned T.
func Lt[T types.Scalar](a *arena.Arena, lhs, rhs Value[T]) (Value[T], error) {
	return newCompare(a, signedAwareCC(types.Of[T](), asm.JL, asm.JB), lhs, rhs)
}

// Eq constructs Compare<JZ,T>(l, r). Equality has no signed/unsigned
// distinction at the flag level.
func Eq[T types.Scalar](a *arena.Arena, lhs, rhs Value[T]) (Value[T], error) {
	return newCompare(a, asm.JZ, lhs, rhs)
}

func signedAwareCC(d types.Descriptor, signedCC, unsignedCC asm.CC) asm.CC {
	if d.Signed {
		return signedCC
	}
	return unsignedCC
}
