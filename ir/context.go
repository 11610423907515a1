package ir

import (
	"github.com/arc-language/exprjit/asm"
	"github.com/arc-language/exprjit/regalloc"
)

// Context bundles the encoder and register file that a node's Emit needs;
// the parent-requested result placement is passed to Emit alongside it.
type Context struct {
	Asm  *asm.Assembler
	Regs *regalloc.File
}

// Placement is the parent-requested result location: the parent may
// request a particular register, typically to satisfy the ABI return
// slot. A zero-value Placement means "anywhere is fine."
type Placement struct {
	Reg   regalloc.Reg
	Fixed bool
}

// Any is the unconstrained placement: the node may leave its result
// wherever is cheapest.
func Any() Placement { return Placement{} }

// In requests that the node's result end up specifically in r — used for
// the root node, which must land in the ABI return register.
func In(r regalloc.Reg) Placement { return Placement{Reg: r, Fixed: true} }

// Materialize turns any Storage into a concrete register, honoring want
// when it is Fixed (moving the value into want.Reg if it isn't already
// there) and otherwise allocating a fresh register of the given size/
// signedness only when the storage isn't already a register.
func (ctx *Context) Materialize(s Storage, size uint8, signed bool, want Placement) (regalloc.Reg, error) {
	switch s.Kind {
	case InReg:
		if want.Fixed && (s.Reg.ID != want.Reg.ID || s.Reg.Float != want.Reg.Float) {
			dst := want.Reg.WithSize(size)
			if err := ctx.Asm.MovRR(dst, s.Reg.WithSize(size)); err != nil {
				return regalloc.Reg{}, err
			}
			ctx.Regs.Release(s.Reg)
			return dst, nil
		}
		return s.Reg.WithSize(size), nil
	case InMemory:
		dst, err := ctx.destFor(size, want)
		if err != nil {
			return regalloc.Reg{}, err
		}
		if err := ctx.Asm.MovLoad(dst, asm.Mem{Base: s.Base, Disp: s.Offset}, signed); err != nil {
			return regalloc.Reg{}, err
		}
		return dst, nil
	default: // InImmediate
		dst, err := ctx.destFor(size, want)
		if err != nil {
			return regalloc.Reg{}, err
		}
		if err := ctx.Asm.MovImm(dst, s.Imm); err != nil {
			return regalloc.Reg{}, err
		}
		return dst, nil
	}
}

// destFor picks the destination register for a materialization: want.Reg if
// Fixed, otherwise a freshly allocated GPR of the given size.
func (ctx *Context) destFor(size uint8, want Placement) (regalloc.Reg, error) {
	if want.Fixed {
		return want.Reg.WithSize(size), nil
	}
	return ctx.Regs.AllocateGPR(size)
}

// AddressToReg turns a pointer Storage (InReg or InAddress) into a concrete
// 8-byte register holding the address, emitting LEA only when the storage
// was still deferred. Used by FieldPtr and PtrAdd, whose operands are
// always pointer-valued (never InMemory/InImmediate).
func (ctx *Context) AddressToReg(s Storage, want Placement) (regalloc.Reg, error) {
	switch s.Kind {
	case InReg:
		if want.Fixed && (s.Reg.ID != want.Reg.ID || s.Reg.Float != want.Reg.Float) {
			dst := want.Reg.WithSize(8)
			if err := ctx.Asm.MovRR(dst, s.Reg.WithSize(8)); err != nil {
				return regalloc.Reg{}, err
			}
			ctx.Regs.Release(s.Reg)
			return dst, nil
		}
		return s.Reg.WithSize(8), nil
	case InAddress:
		dst, err := ctx.destFor(8, want)
		if err != nil {
			return regalloc.Reg{}, err
		}
		if err := ctx.Asm.Lea(dst, asm.Mem{Base: s.Base, Disp: s.Offset}); err != nil {
			return regalloc.Reg{}, err
		}
		if s.Base.ID != dst.ID || s.Base.Float != dst.Float {
			ctx.Regs.Release(s.Base)
		}
		return dst, nil
	default:
		panic("ir: AddressToReg called on a non-pointer Storage")
	}
}
