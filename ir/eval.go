package ir

import (
	"fmt"

	"github.com/arc-language/exprjit/types"
)

// evalEnv carries the raw argument bit patterns for one interpretation run,
// one uint64 per parameter slot regardless of the parameter's declared
// width or signedness (narrower values are sign/zero-extended on read,
// mirroring how the compiled code's ABI registers hold them). This backs
// the reference evaluator that compiled output is checked against:
// compile(tree)(args) == interpret(tree, args).
type evalEnv struct {
	args []uint64
}

// arg returns the raw value bound to parameter index, or an error if the
// tree references a slot the caller didn't supply.
func (e *evalEnv) arg(index int) (uint64, error) {
	if index < 0 || index >= len(e.args) {
		return 0, fmt.Errorf("ir: interpret: parameter index %d out of range (%d args supplied)", index, len(e.args))
	}
	return e.args[index], nil
}

// signExtend reinterprets the low `size` bytes of raw as a signed value of
// that width and returns it sign-extended to a full int64. Used whenever a
// node's arithmetic needs the operand's numeric value respecting
// signedness (comparisons, the add/sub/or fold), not just its bit pattern.
func signExtend(raw uint64, size uint8) int64 {
	switch size {
	case 1:
		return int64(int8(raw))
	case 2:
		return int64(int16(raw))
	case 4:
		return int64(int32(raw))
	default:
		return int64(raw)
	}
}

func zeroExtend(raw uint64, size uint8) uint64 {
	switch size {
	case 1:
		return uint64(uint8(raw))
	case 2:
		return uint64(uint16(raw))
	case 4:
		return uint64(uint32(raw))
	default:
		return raw
	}
}

// truncate masks a 64-bit arithmetic result down to the low `size` bytes,
// the same wraparound every sub-64-bit x86-64 ALU op performs.
func truncate(v int64, size uint8) uint64 {
	switch size {
	case 1:
		return uint64(uint8(v))
	case 2:
		return uint64(uint16(v))
	case 4:
		return uint64(uint32(v))
	default:
		return uint64(v)
	}
}

// numericValue reads a node's operand as a 64-bit quantity per desc,
// suitable for Add/Sub/Or: those ops are representation-invariant at the
// bit level in two's complement, so a signed int64 view is fine even when
// desc is unsigned (truncate masks the result back to the right width
// afterward either way).
func numericValue(raw uint64, desc types.Descriptor) int64 {
	if desc.Signed {
		return signExtend(raw, desc.Size)
	}
	return int64(zeroExtend(raw, desc.Size))
}

// compareSigned and compareUnsigned read an operand for an *ordering*
// comparison, where signed vs. unsigned representation genuinely changes
// the answer (unlike Add/Sub/Or) — e.g. a raw uint64 with the top bit set
// is negative as signed but large as unsigned.
func compareSigned(raw uint64, size uint8) int64   { return signExtend(raw, size) }
func compareUnsigned(raw uint64, size uint8) uint64 { return zeroExtend(raw, size) }

// Interpret walks root against args, the raw argument bit patterns in
// parameter-index order, and returns the tree's raw uint64 result — a
// reference evaluator used for differential testing against compiled
// output. It never touches package asm or execbuf: purely a tree walk
// plus (for Deref) real memory reads
// through the pointer values the caller supplied, exactly as the compiled
// code would read them.
func Interpret(root Node, args ...uint64) (uint64, error) {
	return root.eval(&evalEnv{args: args})
}

// FromRaw reinterprets a finalized raw uint64 result (as Interpret or a
// compiled Callable's return register would produce) as the Go value of
// scalar type T.
func FromRaw[T types.Scalar](raw uint64) T {
	var zero T
	switch any(zero).(type) {
	case int8:
		return any(int8(raw)).(T)
	case uint8:
		return any(uint8(raw)).(T)
	case int16:
		return any(int16(raw)).(T)
	case uint16:
		return any(uint16(raw)).(T)
	case int32:
		return any(int32(raw)).(T)
	case uint32:
		return any(uint32(raw)).(T)
	case int64:
		return any(int64(raw)).(T)
	case uint64:
		return any(raw).(T)
	case uintptr:
		return any(uintptr(raw)).(T)
	default:
		panic(fmt.Sprintf("ir: unreachable scalar kind %T", zero))
	}
}

// ToRaw is FromRaw's inverse: the bit pattern of a scalar argument, ready
// to pass to Interpret.
func ToRaw[T types.Scalar](v T) uint64 {
	return uint64(scalarToInt64(v))
}
