// Package ir is the expression node IR: a small, closed set of typed node
// kinds (Immediate, Parameter, Binary, FieldPointer, PtrAdd, Deref, Compare,
// Conditional) forming a DAG-free tree. Each node knows how
// to emit its own code into an asm.Assembler and report the physical
// register/memory location (Storage) its result ends up in.
//
// Deeply polymorphic nodes behind a class hierarchy would mean a vtable
// call per node; instead node kinds are plain Go structs behind one small,
// sealed Node interface, which removes the vtables and lets the compiler
// inline — there is no virtual dispatch beyond the one interface call this
// design already requires, and no external package can add a new node
// kind (the set is closed by construction).
//
// Node constructors are generic over types.Scalar — Go generics standing
// in for the operand size/signedness a template parameter would carry —
// and are arena-backed: every constructor takes the *arena.Arena the
// node's storage comes from, so node lifetime tracks exactly one compile.
package ir
