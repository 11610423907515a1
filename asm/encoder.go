package asm

import (
	"errors"
	"fmt"

	"github.com/arc-language/exprjit/regalloc"
)

// ErrImmediateTooLarge is raised when a Group-1 ALU immediate does not fit
// in 32 bits — larger immediates must be materialized via MOV by the
// caller first.
type ErrImmediateTooLarge struct {
	Value int64
}

func (e *ErrImmediateTooLarge) Error() string {
	return fmt.Sprintf("asm: immediate %d does not fit in 32 bits for a Group-1 ALU op", e.Value)
}

// Mem is a base-register-plus-displacement memory operand: [base + disp].
// This specification never needs an index/scale (memory operands are
// always base+constant-offset, per FieldPointer; PtrAdd computes its scaled
// index with ADD instead), so Mem deliberately omits them.
type Mem struct {
	Base regalloc.Reg
	Disp int32
}

// Assembler is the opcode-level emitter, built on top of a Buffer. Every
// method takes typed register/memory operands with operand size carried
// statically, so REX.W and opcode-size selection never need runtime
// dispatch.
type Assembler struct {
	buf *Buffer
}

// NewAssembler wraps buf with the x86-64 instruction-level encoder.
func NewAssembler(buf *Buffer) *Assembler { return &Assembler{buf: buf} }

// Buffer exposes the underlying code buffer (for label allocation/placement
// and Finalize, which are Buffer-level operations).
func (a *Assembler) Buffer() *Buffer { return a.buf }

// listingFrom writes one diagnostic line covering every byte emitted since
// start, if a listing sink is attached (SetListing). start must be the
// buffer offset captured before the first prefix byte of the instruction.
func (a *Assembler) listingFrom(start int, mnemonic, operands string) {
	if a.buf.listing == nil {
		return
	}
	bytes := a.buf.ByteSlice(start, a.buf.CurrentOffset())
	hex := make([]byte, 0, len(bytes)*3)
	for i, b := range bytes {
		if i > 0 {
			hex = append(hex, ' ')
		}
		hex = append(hex, fmt.Sprintf("%02X", b)...)
	}
	fmt.Fprintf(a.buf.listing, "%-24s %s %s\n", string(hex), mnemonic, operands)
}

// byteRegForcesRex reports whether a byte-sized (operand-size 1) access to
// register id requires a REX prefix purely to select SPL/BPL/SIL/DIL
// instead of AH/CH/DH/BH.
func byteRegForcesRex(id uint8) bool {
	return id >= 4 && id < 8
}

// needsSIB reports whether id (RSP or R12) requires a SIB byte as the base
// of a memory operand.
func needsSIB(id uint8) bool {
	return id&7 == 4
}

// rexByte builds the REX prefix byte: 0100 WRXB.
func rexByte(w, r, x, b bool) byte {
	v := byte(0x40)
	if w {
		v |= 0x08
	}
	if r {
		v |= 0x04
	}
	if x {
		v |= 0x02
	}
	if b {
		v |= 0x01
	}
	return v
}

// emitRexIfNeeded emits a REX prefix if any of: size is 8 (W), reg's id
// >= 8 (R), base's id >= 8 (B), or force is set (a byte-register access
// into id 4..7, which must select SPL.. over AH..). There is no index
// register in this specification's memory operands, so X is always 0.
func (a *Assembler) emitRexIfNeeded(size uint8, reg, base uint8, force bool) error {
	w := size == 8
	r := reg >= 8
	b := base >= 8
	if !w && !r && !b && !force {
		return nil
	}
	return a.buf.Emit8(rexByte(w, r, false, b))
}

func modrmRegReg(reg, rm uint8) byte {
	return 0xC0 | ((reg & 7) << 3) | (rm & 7)
}

// emitMemOperand encodes the ModR/M (and SIB, if the base is RSP/R12) plus
// displacement for [mem.Base + mem.Disp], with regField as the ModR/M.reg
// bits. This always emits a displacement (disp8 if it fits, else disp32 —
// never the displacement-less mod=00 form), which sidesteps the RBP/R13-
// as-base "no base" special case entirely.
func (a *Assembler) emitMemOperand(regField uint8, mem Mem) error {
	disp8 := mem.Disp >= -128 && mem.Disp <= 127
	mod := byte(0x80) // mod=10, disp32
	if disp8 {
		mod = 0x40 // mod=01, disp8
	}
	baseLow3 := mem.Base.ID & 7

	if needsSIB(mem.Base.ID) {
		if err := a.buf.Emit8(mod | ((regField & 7) << 3) | 4); err != nil {
			return err
		}
		// SIB: scale=00, index=100 (none), base=100 (RSP/R12).
		if err := a.buf.Emit8(0x24); err != nil {
			return err
		}
	} else {
		if err := a.buf.Emit8(mod | ((regField & 7) << 3) | baseLow3); err != nil {
			return err
		}
	}

	if disp8 {
		return a.buf.Emit8(byte(int8(mem.Disp)))
	}
	return a.buf.Emit32(uint32(mem.Disp))
}

// ---- Group-1 ALU (ADD/OR/SUB/CMP) ----

// AluRR emits `OP dst, src` with both operands registers (dst is both an
// input and the destination, except for Cmp where dst is only read).
func (a *Assembler) AluRR(op AluOp, dst, src regalloc.Reg) error {
	start := a.buf.CurrentOffset()
	size := dst.Size
	if size == 2 {
		if err := a.buf.Emit8(0x66); err != nil {
			return err
		}
	}
	force := size == 1 && (byteRegForcesRex(dst.ID) || byteRegForcesRex(src.ID))
	if err := a.emitRexIfNeeded(size, dst.ID, src.ID, force); err != nil {
		return err
	}
	opcode := group1Base[op]
	if size == 1 {
		opcode += 2
	} else {
		opcode += 3
	}
	if err := a.buf.Emit8(opcode); err != nil {
		return err
	}
	if err := a.buf.Emit8(modrmRegReg(dst.ID, src.ID)); err != nil {
		return err
	}
	a.listingFrom(start, op.String(), fmt.Sprintf("%s, %s", dst, src))
	return nil
}

// AluRM emits `OP dst, [mem]`: dst is combined with the memory operand.
func (a *Assembler) AluRM(op AluOp, dst regalloc.Reg, mem Mem) error {
	start := a.buf.CurrentOffset()
	size := dst.Size
	if size == 2 {
		if err := a.buf.Emit8(0x66); err != nil {
			return err
		}
	}
	force := size == 1 && byteRegForcesRex(dst.ID)
	if err := a.emitRexIfNeeded(size, dst.ID, mem.Base.ID, force); err != nil {
		return err
	}
	opcode := group1Base[op]
	if size == 1 {
		opcode += 2
	} else {
		opcode += 3
	}
	if err := a.buf.Emit8(opcode); err != nil {
		return err
	}
	if err := a.emitMemOperand(dst.ID, mem); err != nil {
		return err
	}
	a.listingFrom(start, op.String(), fmt.Sprintf("%s, [%s+%d]", dst, mem.Base, mem.Disp))
	return nil
}

// AluImm emits `OP dst, imm`. When dst is AL/AX/EAX/RAX it uses the short
// accumulator form; otherwise 0x80 (8-bit operand, imm8), 0x83 (wider
// operand, sign-extended imm8 when imm fits in int8) or 0x81 (wider
// operand, imm16/imm32) with the opcode extension in ModR/M.reg. Immediates that don't fit in 32 bits are
// rejected with ErrImmediateTooLarge: the caller must materialize them via
// MOV first.
func (a *Assembler) AluImm(op AluOp, dst regalloc.Reg, imm int64) error {
	if imm < -(1<<31) || imm > (1<<32)-1 {
		return &ErrImmediateTooLarge{Value: imm}
	}
	start := a.buf.CurrentOffset()
	size := dst.Size
	if size == 2 {
		if err := a.buf.Emit8(0x66); err != nil {
			return err
		}
	}
	force := size == 1 && byteRegForcesRex(dst.ID)
	if err := a.emitRexIfNeeded(size, 0, dst.ID, force); err != nil {
		return err
	}

	fitsInt8 := imm >= -128 && imm <= 127
	isAccumulator := dst.ID == regalloc.RAX

	switch {
	case isAccumulator && size == 1:
		if err := a.buf.Emit8(group1Base[op] + 4); err != nil {
			return err
		}
		if err := a.buf.Emit8(byte(imm)); err != nil {
			return err
		}
	case isAccumulator && size != 1:
		if err := a.buf.Emit8(group1Base[op] + 5); err != nil {
			return err
		}
		if err := a.emitSizedImm(size, imm); err != nil {
			return err
		}
	case size == 1:
		if err := a.buf.Emit8(0x80); err != nil {
			return err
		}
		if err := a.buf.Emit8(0xC0 | (group1Extension[op] << 3) | (dst.ID & 7)); err != nil {
			return err
		}
		if err := a.buf.Emit8(byte(imm)); err != nil {
			return err
		}
	case fitsInt8:
		if err := a.buf.Emit8(0x83); err != nil {
			return err
		}
		if err := a.buf.Emit8(0xC0 | (group1Extension[op] << 3) | (dst.ID & 7)); err != nil {
			return err
		}
		if err := a.buf.Emit8(byte(imm)); err != nil {
			return err
		}
	default:
		if err := a.buf.Emit8(0x81); err != nil {
			return err
		}
		if err := a.buf.Emit8(0xC0 | (group1Extension[op] << 3) | (dst.ID & 7)); err != nil {
			return err
		}
		if err := a.emitSizedImm(size, imm); err != nil {
			return err
		}
	}
	a.listingFrom(start, op.String(), fmt.Sprintf("%s, %d", dst, imm))
	return nil
}

// emitSizedImm writes imm as a 2-byte (operand size 2) or 4-byte (operand
// size 4 or 8 — a 64-bit ALU immediate is always sign-extended from 32
// bits) little-endian field.
func (a *Assembler) emitSizedImm(size uint8, imm int64) error {
	if size == 2 {
		return a.buf.Emit16(uint16(imm))
	}
	return a.buf.Emit32(uint32(imm))
}

// ---- MOV / LEA ----

// MovRR emits `MOV dst, src`, both registers.
func (a *Assembler) MovRR(dst, src regalloc.Reg) error {
	start := a.buf.CurrentOffset()
	size := dst.Size
	if size == 2 {
		if err := a.buf.Emit8(0x66); err != nil {
			return err
		}
	}
	force := size == 1 && (byteRegForcesRex(dst.ID) || byteRegForcesRex(src.ID))
	if err := a.emitRexIfNeeded(size, src.ID, dst.ID, force); err != nil {
		return err
	}
	opcode := byte(0x89) // MOV Ev, Gv (dst is the r/m, src is reg)
	if size == 1 {
		opcode = 0x88
	}
	if err := a.buf.Emit8(opcode); err != nil {
		return err
	}
	if err := a.buf.Emit8(modrmRegReg(src.ID, dst.ID)); err != nil {
		return err
	}
	a.listingFrom(start, "MOV", fmt.Sprintf("%s, %s", dst, src))
	return nil
}

// MovLoad emits `MOV dst, [mem]` (register <- memory). For operand sizes 1
// and 2 it uses MOVZX/MOVSX depending on signed, so the resulting register
// always holds a well-defined value outside of dst's declared width. 32-bit
// loads naturally zero-extend to 64 bits under the x86-64 architecture;
// 64-bit loads are a plain MOV.
func (a *Assembler) MovLoad(dst regalloc.Reg, mem Mem, signed bool) error {
	start := a.buf.CurrentOffset()
	mnemonic := "MOV"
	switch dst.Size {
	case 1, 2:
		if err := a.emitRexIfNeeded(8, dst.ID, mem.Base.ID, false); err != nil {
			return err
		}
		if err := a.buf.Emit8(0x0F); err != nil {
			return err
		}
		var opcode byte
		switch {
		case dst.Size == 1 && !signed:
			opcode, mnemonic = 0xB6, "MOVZX"
		case dst.Size == 1 && signed:
			opcode, mnemonic = 0xBE, "MOVSX"
		case dst.Size == 2 && !signed:
			opcode, mnemonic = 0xB7, "MOVZX"
		default:
			opcode, mnemonic = 0xBF, "MOVSX"
		}
		if err := a.buf.Emit8(opcode); err != nil {
			return err
		}
		if err := a.emitMemOperand(dst.ID, mem); err != nil {
			return err
		}
	default: // 4 or 8
		if err := a.emitRexIfNeeded(dst.Size, dst.ID, mem.Base.ID, false); err != nil {
			return err
		}
		if err := a.buf.Emit8(0x8B); err != nil {
			return err
		}
		if err := a.emitMemOperand(dst.ID, mem); err != nil {
			return err
		}
	}
	a.listingFrom(start, mnemonic, fmt.Sprintf("%s, [%s+%d]", dst, mem.Base, mem.Disp))
	return nil
}

// MovStore emits `MOV [mem], src` (memory <- register).
func (a *Assembler) MovStore(mem Mem, src regalloc.Reg) error {
	start := a.buf.CurrentOffset()
	if src.Size == 2 {
		if err := a.buf.Emit8(0x66); err != nil {
			return err
		}
	}
	if err := a.emitRexIfNeeded(src.Size, src.ID, mem.Base.ID, src.Size == 1 && byteRegForcesRex(src.ID)); err != nil {
		return err
	}
	opcode := byte(0x89)
	if src.Size == 1 {
		opcode = 0x88
	}
	if err := a.buf.Emit8(opcode); err != nil {
		return err
	}
	if err := a.emitMemOperand(src.ID, mem); err != nil {
		return err
	}
	a.listingFrom(start, "MOV", fmt.Sprintf("[%s+%d], %s", mem.Base, mem.Disp, src))
	return nil
}

// MovImm materializes an arbitrary constant into dst. A zero value is
// synthesized with `XOR dst, dst` (one byte shorter and avoids a 64-bit
// immediate for the common case), matching the idiom the teacher's
// loadConstInt uses.
func (a *Assembler) MovImm(dst regalloc.Reg, imm int64) error {
	if imm == 0 {
		return a.xorSelf(dst)
	}
	start := a.buf.CurrentOffset()
	switch dst.Size {
	case 8:
		if err := a.emitRexIfNeeded(8, 0, dst.ID, false); err != nil {
			return err
		}
		if err := a.buf.Emit8(0xB8 + (dst.ID & 7)); err != nil {
			return err
		}
		if err := a.buf.Emit64(uint64(imm)); err != nil {
			return err
		}
	case 1:
		if err := a.emitRexIfNeeded(1, 0, dst.ID, byteRegForcesRex(dst.ID)); err != nil {
			return err
		}
		if err := a.buf.Emit8(0xB0 + (dst.ID & 7)); err != nil {
			return err
		}
		if err := a.buf.Emit8(byte(imm)); err != nil {
			return err
		}
	default:
		if dst.Size == 2 {
			if err := a.buf.Emit8(0x66); err != nil {
				return err
			}
		}
		if err := a.emitRexIfNeeded(0, 0, dst.ID, false); err != nil {
			return err
		}
		if err := a.buf.Emit8(0xB8 + (dst.ID & 7)); err != nil {
			return err
		}
		if dst.Size == 2 {
			if err := a.buf.Emit16(uint16(imm)); err != nil {
				return err
			}
		} else {
			if err := a.buf.Emit32(uint32(imm)); err != nil {
				return err
			}
		}
	}
	a.listingFrom(start, "MOV", fmt.Sprintf("%s, %d", dst, imm))
	return nil
}

func (a *Assembler) xorSelf(r regalloc.Reg) error {
	start := a.buf.CurrentOffset()
	size := r.Size
	if size == 8 {
		size = 4 // XOR r32, r32 also zeroes the upper 32 bits; cheapest zeroing idiom.
	}
	force := size == 1 && byteRegForcesRex(r.ID)
	if err := a.emitRexIfNeeded(size, r.ID, r.ID, force); err != nil {
		return err
	}
	opcode := byte(0x31)
	if err := a.buf.Emit8(opcode); err != nil {
		return err
	}
	if err := a.buf.Emit8(modrmRegReg(r.ID, r.ID)); err != nil {
		return err
	}
	a.listingFrom(start, "XOR", fmt.Sprintf("%s, %s", r, r))
	return nil
}

// Lea emits `LEA dst, [mem]`.
func (a *Assembler) Lea(dst regalloc.Reg, mem Mem) error {
	start := a.buf.CurrentOffset()
	if err := a.emitRexIfNeeded(dst.Size, dst.ID, mem.Base.ID, false); err != nil {
		return err
	}
	if err := a.buf.Emit8(0x8D); err != nil {
		return err
	}
	if err := a.emitMemOperand(dst.ID, mem); err != nil {
		return err
	}
	a.listingFrom(start, "LEA", fmt.Sprintf("%s, [%s+%d]", dst, mem.Base, mem.Disp))
	return nil
}

// ---- Stack / control transfer ----

// Push emits `PUSH r64`.
func (a *Assembler) Push(r regalloc.Reg) error {
	start := a.buf.CurrentOffset()
	if r.ID >= 8 {
		if err := a.buf.Emit8(rexByte(false, false, false, true)); err != nil {
			return err
		}
	}
	if err := a.buf.Emit8(0x50 + (r.ID & 7)); err != nil {
		return err
	}
	a.listingFrom(start, "PUSH", r.String())
	return nil
}

// Pop emits `POP r64`.
func (a *Assembler) Pop(r regalloc.Reg) error {
	start := a.buf.CurrentOffset()
	if r.ID >= 8 {
		if err := a.buf.Emit8(rexByte(false, false, false, true)); err != nil {
			return err
		}
	}
	if err := a.buf.Emit8(0x58 + (r.ID & 7)); err != nil {
		return err
	}
	a.listingFrom(start, "POP", r.String())
	return nil
}

// Ret emits `RET`.
func (a *Assembler) Ret() error {
	start := a.buf.CurrentOffset()
	if err := a.buf.Emit8(0xC3); err != nil {
		return err
	}
	a.listingFrom(start, "RET", "")
	return nil
}

// Jmp emits an unconditional `JMP rel32` to label, recording a forward
// patch in the underlying Buffer.
func (a *Assembler) Jmp(label Label) error {
	start := a.buf.CurrentOffset()
	if err := a.buf.Emit8(0xE9); err != nil {
		return err
	}
	if err := a.buf.emitRel32Placeholder(label); err != nil {
		return err
	}
	a.listingFrom(start, "JMP", fmt.Sprintf("L%d", label))
	return nil
}

// Jcc emits a conditional `0F 8x rel32` to label.
func (a *Assembler) Jcc(cc CC, label Label) error {
	start := a.buf.CurrentOffset()
	if err := a.buf.Emit8(0x0F); err != nil {
		return err
	}
	if err := a.buf.Emit8(0x80 | tttn[cc]); err != nil {
		return err
	}
	if err := a.buf.emitRel32Placeholder(label); err != nil {
		return err
	}
	a.listingFrom(start, cc.String(), fmt.Sprintf("L%d", label))
	return nil
}

// ErrAlreadyFinalized names the error for encoding after Finalize has run.
// No Buffer or Assembler method returns it: emitting after Finalize is not
// detected.
var ErrAlreadyFinalized = errors.New("asm: buffer already finalized")
