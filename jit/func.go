package jit

import (
	"github.com/arc-language/exprjit/arena"
	"github.com/arc-language/exprjit/ir"
	"github.com/arc-language/exprjit/types"
)

// Func0..Func4 are the arity-specialized function builders, one per
// `(ReturnType, Param1, …, ParamN)` shape Go's lack of variadic generics
// forces apart. Each wraps the shared
// *builder (arena, calling convention, capacities) and adds exactly the
// Param1()..ParamN() accessor methods its arity needs, typed by its own
// generic parameters.
type (
	Func0[R types.Scalar]                struct{ *builder }
	Func1[R, P1 types.Scalar]            struct{ *builder }
	Func2[R, P1, P2 types.Scalar]        struct{ *builder }
	Func3[R, P1, P2, P3 types.Scalar]    struct{ *builder }
	Func4[R, P1, P2, P3, P4 types.Scalar] struct{ *builder }
)

// New0 constructs a zero-argument function builder returning R.
func New0[R types.Scalar](opts ...Option) *Func0[R] { return &Func0[R]{newBuilder(0, opts...)} }

// New1 constructs a one-argument function builder: P1 -> R.
func New1[R, P1 types.Scalar](opts ...Option) *Func1[R, P1] {
	return &Func1[R, P1]{newBuilder(1, opts...)}
}

// New2 constructs a two-argument function builder: (P1, P2) -> R.
func New2[R, P1, P2 types.Scalar](opts ...Option) *Func2[R, P1, P2] {
	return &Func2[R, P1, P2]{newBuilder(2, opts...)}
}

// New3 constructs a three-argument function builder: (P1, P2, P3) -> R.
func New3[R, P1, P2, P3 types.Scalar](opts ...Option) *Func3[R, P1, P2, P3] {
	return &Func3[R, P1, P2, P3]{newBuilder(3, opts...)}
}

// New4 constructs a four-argument function builder: (P1, P2, P3, P4) -> R.
func New4[R, P1, P2, P3, P4 types.Scalar](opts ...Option) *Func4[R, P1, P2, P3, P4] {
	return &Func4[R, P1, P2, P3, P4]{newBuilder(4, opts...)}
}

// Param1 returns Parameter<P1>(0).
func (f *Func1[R, P1]) Param1() (ir.Value[P1], error) { return ir.Param[P1](f.Arena(), 0) }

// Param1 returns Parameter<P1>(0).
func (f *Func2[R, P1, P2]) Param1() (ir.Value[P1], error) { return ir.Param[P1](f.Arena(), 0) }

// Param2 returns Parameter<P2>(1).
func (f *Func2[R, P1, P2]) Param2() (ir.Value[P2], error) { return ir.Param[P2](f.Arena(), 1) }

// Param1 returns Parameter<P1>(0).
func (f *Func3[R, P1, P2, P3]) Param1() (ir.Value[P1], error) { return ir.Param[P1](f.Arena(), 0) }

// Param2 returns Parameter<P2>(1).
func (f *Func3[R, P1, P2, P3]) Param2() (ir.Value[P2], error) { return ir.Param[P2](f.Arena(), 1) }

// Param3 returns Parameter<P3>(2).
func (f *Func3[R, P1, P2, P3]) Param3() (ir.Value[P3], error) { return ir.Param[P3](f.Arena(), 2) }

// Param1 returns Parameter<P1>(0).
func (f *Func4[R, P1, P2, P3, P4]) Param1() (ir.Value[P1], error) {
	return ir.Param[P1](f.Arena(), 0)
}

// Param2 returns Parameter<P2>(1).
func (f *Func4[R, P1, P2, P3, P4]) Param2() (ir.Value[P2], error) {
	return ir.Param[P2](f.Arena(), 1)
}

// Param3 returns Parameter<P3>(2).
func (f *Func4[R, P1, P2, P3, P4]) Param3() (ir.Value[P3], error) {
	return ir.Param[P3](f.Arena(), 2)
}

// Param4 returns Parameter<P4>(3).
func (f *Func4[R, P1, P2, P3, P4]) Param4() (ir.Value[P4], error) {
	return ir.Param[P4](f.Arena(), 3)
}

// arenaHolder is satisfied by every Func0..Func4 through the embedded
// *builder's promoted Arena method.
type arenaHolder interface {
	Arena() *arena.Arena
}

// ParamPtr returns Parameter<*F>(index): a pointer-typed parameter
// accessor usable against any arity. It is a free function rather than a
// method
// because Ptr[F]'s F is constrained by `any`, not types.Scalar — a type
// parameter a Func[R,P1,...] receiver's existing type parameters can't
// supply, and Go methods cannot introduce new ones. The declared Pi at
// that slot (ordinarily uintptr, the pointer-sized scalar) is otherwise
// unused; only the slot's register binding matters.
func ParamPtr[F any](f arenaHolder, index int) (ir.Ptr[F], error) {
	return ir.ParamPtr[F](f.Arena(), index)
}
