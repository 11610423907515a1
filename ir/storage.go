package ir

import "github.com/arc-language/exprjit/regalloc"

// StorageKind discriminates the variants a node's result can be left in.
type StorageKind uint8

const (
	// InReg means the value currently resides in a physical register.
	InReg StorageKind = iota
	// InMemory means the value is at [Base + Offset], not yet loaded.
	InMemory
	// InImmediate means the value is a compile-time constant, not yet
	// materialized into a register or memory.
	InImmediate
	// InAddress means the result is a pointer value computable as
	// [Base + Offset] — i.e. what LEA would load — but the LEA has not
	// been emitted yet. This is FieldPointer's deferred form, folding
	// into a following Deref/store as an Indirect storage without
	// emitting LEA; it is distinct from InMemory, which means "dereference
	// [Base+Offset] to read the pointee," not "the address itself is the
	// result."
	InAddress
)

// Storage is the result location of an emitted node: the currency of code
// selection. Operators inspect a child's Storage to pick the cheapest
// encoding rather than always forcing a register.
type Storage struct {
	Kind StorageKind

	Reg regalloc.Reg // valid when Kind == InReg

	Base   regalloc.Reg // valid when Kind == InMemory
	Offset int32        // valid when Kind == InMemory
	Size   uint8        // valid when Kind == InMemory
	Signed bool         // valid when Kind == InMemory (governs MOVZX vs MOVSX)

	Imm int64 // valid when Kind == InImmediate
}

// RegStorage wraps a register result.
func RegStorage(r regalloc.Reg) Storage { return Storage{Kind: InReg, Reg: r} }

// MemStorage wraps an unmaterialized [base+offset] memory result.
func MemStorage(base regalloc.Reg, offset int32, size uint8, signed bool) Storage {
	return Storage{Kind: InMemory, Base: base, Offset: offset, Size: size, Signed: signed}
}

// ImmStorage wraps a compile-time constant not yet materialized.
func ImmStorage(v int64) Storage { return Storage{Kind: InImmediate, Imm: v} }

// AddressStorage wraps a not-yet-materialized [base+offset] pointer value.
func AddressStorage(base regalloc.Reg, offset int32) Storage {
	return Storage{Kind: InAddress, Base: base, Offset: offset}
}
