// Package interp is the reference evaluator: a pure Go tree walk over the
// same ir.Node tree package jit compiles, used for differential testing.
// It imports only ir and types and never asm or execbuf. The tree walk
// itself is the eval half of package ir's node types (ir.Interpret), kept
// separate from their Emit half; the ir.ToRaw/ir.FromRaw value
// conversions are shared with package jit's Callable.Invoke.
package interp

import (
	"github.com/arc-language/exprjit/ir"
	"github.com/arc-language/exprjit/types"
)

// Run interprets root against args, the parameter values in index order,
// and returns the tree's result as the Go type T. Pointer-typed parameters
// are passed as their raw address (ir.ToRaw / unsafe.Pointer(p)); Deref
// reads through that address against real memory, exactly as compiled code
// would, so Run is safe to call concurrently with nothing else mutating
// the pointee.
func Run[T types.Scalar](root ir.Value[T], args ...uint64) (T, error) {
	raw, err := ir.Interpret(root.Node(), args...)
	if err != nil {
		var zero T
		return zero, err
	}
	return ir.FromRaw[T](raw), nil
}
