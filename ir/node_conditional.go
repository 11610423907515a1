package ir

import (
	"github.com/arc-language/exprjit/arena"
	"github.com/arc-language/exprjit/asm"
	"github.com/arc-language/exprjit/regalloc"
	"github.com/arc-language/exprjit/types"
)

// flaggedNode is implemented by any Node that can emit itself as a
// condition-code-valued comparison instead of a materialized 0/1 value.
// Only *compareNode[T] (for every scalar T) implements it; Conditional type
// switches through this interface rather than a concrete generic type so it
// stays independent of Compare's own type parameter.
type flaggedNode interface {
	EmitFlags(ctx *Context) (asm.CC, error)
}

// conditionalNode is Conditional<T>(cond, then_val, else_val): a scalar
// select using real conditional jumps rather than CMOVcc — both branches
// are live and tested, not just one.
type conditionalNode[T types.Scalar] struct {
	cond         Node
	thenV, elseV Node
}

func (n *conditionalNode[T]) sealed() {}

func (n *conditionalNode[T]) Type() types.Descriptor { return types.Of[T]() }

// Emit emits the comparison, places an else label and an end label, jumps
// to else on the negated condition, emits then_v into the result register,
// jumps to end, places else_label, emits else_v into the same result
// register, places end_label.
func (n *conditionalNode[T]) Emit(ctx *Context, want Placement) (Storage, error) {
	desc := types.Of[T]()

	dst, err := ctx.destFor(desc.Size, want)
	if err != nil {
		return Storage{}, &ErrOutOfRegisters{NodeKind: "Conditional", Err: err}
	}

	fc, ok := n.cond.(flaggedNode)
	if !ok {
		panic("ir: Conditional's cond operand is not a Compare node")
	}
	cc, err := fc.EmitFlags(ctx)
	if err != nil {
		return Storage{}, err
	}

	buf := ctx.Asm.Buffer()
	elseLabel := buf.AllocateLabel()
	endLabel := buf.AllocateLabel()

	if err := ctx.Asm.Jcc(cc.Negate(), elseLabel); err != nil {
		return Storage{}, err
	}

	if err := n.emitBranch(ctx, n.thenV, dst, desc); err != nil {
		return Storage{}, err
	}
	if err := ctx.Asm.Jmp(endLabel); err != nil {
		return Storage{}, err
	}

	if err := buf.PlaceLabel(elseLabel); err != nil {
		return Storage{}, err
	}
	if err := n.emitBranch(ctx, n.elseV, dst, desc); err != nil {
		return Storage{}, err
	}

	if err := buf.PlaceLabel(endLabel); err != nil {
		return Storage{}, err
	}

	return RegStorage(dst), nil
}

// emitBranch emits one arm of the select, forcing its result into dst. Both
// arms target the same physical register so the value is well-defined
// regardless of which branch the jump took.
func (n *conditionalNode[T]) emitBranch(ctx *Context, arm Node, dst regalloc.Reg, desc types.Descriptor) error {
	s, err := arm.Emit(ctx, In(dst))
	if err != nil {
		return err
	}
	if s.Kind == InReg && (s.Reg.ID != dst.ID || s.Reg.Float != dst.Float) {
		if err := ctx.Asm.MovRR(dst, s.Reg.WithSize(desc.Size)); err != nil {
			return err
		}
		ctx.Regs.Release(s.Reg)
	}
	return nil
}

// flagEval is the interpreter counterpart of flaggedNode: only
// *compareNode[T] implements it, for every scalar T.
type flagEval interface {
	evalFlag(env *evalEnv) (bool, error)
}

func (n *conditionalNode[T]) eval(env *evalEnv) (uint64, error) {
	fc, ok := n.cond.(flagEval)
	if !ok {
		panic("ir: Conditional's cond operand is not a Compare node")
	}
	branchTrue, err := fc.evalFlag(env)
	if err != nil {
		return 0, err
	}
	desc := types.Of[T]()
	if branchTrue {
		raw, err := n.thenV.eval(env)
		if err != nil {
			return 0, err
		}
		return truncate(numericValue(raw, desc), desc.Size), nil
	}
	raw, err := n.elseV.eval(env)
	if err != nil {
		return 0, err
	}
	return truncate(numericValue(raw, desc), desc.Size), nil
}

func newConditional[T types.Scalar](a *arena.Arena, cond Node, thenV, elseV Value[T]) (Value[T], error) {
	n, err := arena.Alloc1[conditionalNode[T]](a)
	if err != nil {
		return Value[T]{}, err
	}
	n.cond, n.thenV, n.elseV = cond, thenV.Node(), elseV.Node()
	return newValue[T](n), nil
}

// Cond constructs Conditional<T>(cond, thenV, elseV). cond must be a value
// produced by Gt/Lt/Eq (a Compare node): the condition operand must be
// flag-valued, not an arbitrary boolean scalar.
func Cond[C, T types.Scalar](a *arena.Arena, cond Value[C], thenV, elseV Value[T]) (Value[T], error) {
	return newConditional(a, cond.Node(), thenV, elseV)
}
