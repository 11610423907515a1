package asm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arc-language/exprjit/asm"
	"github.com/arc-language/exprjit/regalloc"
)

func newEncoder(capacity int) (*asm.Buffer, *asm.Assembler) {
	b := asm.NewBuffer(capacity)
	return b, asm.NewAssembler(b)
}

func TestAluRRTwoLowRegisters(t *testing.T) {
	b, a := newEncoder(16)
	rax := regalloc.GPR(regalloc.RAX, 8)
	rcx := regalloc.GPR(regalloc.RCX, 8)
	require.NoError(t, a.AluRR(asm.Add, rax, rcx))
	// REX.W (0x48), opcode 0x01+2=0x03 (ADD Gv,Ev, reg=dst,rm=src), ModRM 11 000 001.
	require.Equal(t, []byte{0x48, 0x03, 0xC1}, b.Bytes())
}

func TestAluRRHighRegistersSetRexBits(t *testing.T) {
	b, a := newEncoder(16)
	r8 := regalloc.GPR(regalloc.R8, 8)
	r9 := regalloc.GPR(regalloc.R9, 8)
	require.NoError(t, a.AluRR(asm.Sub, r8, r9))
	// REX.W+R+B = 0x4D, opcode 0x2B, ModRM 11 000 001 (reg=r8&7=0, rm=r9&7=1).
	require.Equal(t, []byte{0x4D, 0x2B, 0xC1}, b.Bytes())
}

func TestAluRRByteRegistersNeedNoForceBelowId4(t *testing.T) {
	b, a := newEncoder(16)
	al := regalloc.GPR(regalloc.RAX, 1)
	cl := regalloc.GPR(regalloc.RCX, 1)
	require.NoError(t, a.AluRR(asm.Add, al, cl))
	// No REX needed: opcode base+2=0x02, ModRM 11 000 001.
	require.Equal(t, []byte{0x02, 0xC1}, b.Bytes())
}

func TestAluRRByteRegisterInSPLRangeForcesRex(t *testing.T) {
	b, a := newEncoder(16)
	spl := regalloc.GPR(regalloc.RSP, 1) // would be AH without REX
	al := regalloc.GPR(regalloc.RAX, 1)
	require.NoError(t, a.AluRR(asm.Add, spl, al))
	// forced REX (0x40, all-zero bits) so ModR/M.reg=4 selects SPL rather than AH.
	require.Equal(t, []byte{0x40, 0x02, 0xE0}, b.Bytes())
}

func TestAluRM16BitEmitsOperandSizePrefixBeforeRex(t *testing.T) {
	b, a := newEncoder(16)
	dst := regalloc.GPR(regalloc.R9, 2)
	mem := asm.Mem{Base: regalloc.GPR(regalloc.RDI, 8), Disp: 4}
	require.NoError(t, a.AluRM(asm.Or, dst, mem))
	// 0x66 must precede REX (0x44 = W0,R1,X0,B0), per x86 prefix ordering.
	require.Equal(t, byte(0x66), b.Bytes()[0])
	require.Equal(t, byte(0x44), b.Bytes()[1])
}

func TestAluImmShortAccumulatorForm(t *testing.T) {
	b, a := newEncoder(16)
	rax := regalloc.GPR(regalloc.RAX, 8)
	require.NoError(t, a.AluImm(asm.Add, rax, 1000))
	// REX.W, opcode 0x05 (ADD RAX, imm32), little-endian imm32.
	require.Equal(t, []byte{0x48, 0x05, 0xE8, 0x03, 0x00, 0x00}, b.Bytes())
}

func TestAluImmNonAccumulatorImm8Form(t *testing.T) {
	b, a := newEncoder(16)
	rcx := regalloc.GPR(regalloc.RCX, 8)
	require.NoError(t, a.AluImm(asm.Sub, rcx, 5))
	// REX.W, 0x83, ModRM 11 101 001 (ext=5 for Sub, rm=RCX=1), imm8.
	require.Equal(t, []byte{0x48, 0x83, 0xE9, 0x05}, b.Bytes())
}

func TestAluImmTooLargeRejected(t *testing.T) {
	_, a := newEncoder(16)
	rcx := regalloc.GPR(regalloc.RCX, 8)
	err := a.AluImm(asm.Cmp, rcx, int64(1)<<40)
	var tooLarge *asm.ErrImmediateTooLarge
	require.ErrorAs(t, err, &tooLarge)
}

func TestMemOperandRSPNeedsSIB(t *testing.T) {
	b, a := newEncoder(16)
	dst := regalloc.GPR(regalloc.RAX, 8)
	mem := asm.Mem{Base: regalloc.GPR(regalloc.RSP, 8), Disp: 0}
	require.NoError(t, a.MovLoad(dst, mem, false))
	// REX.W, 0x8B, ModRM 01 000 100 (mod=01 disp8, reg=0, rm=100->SIB), SIB 0x24, disp8 0x00.
	require.Equal(t, []byte{0x48, 0x8B, 0x44, 0x24, 0x00}, b.Bytes())
}

func TestMemOperandR12NeedsSIB(t *testing.T) {
	b, a := newEncoder(16)
	dst := regalloc.GPR(regalloc.RAX, 8)
	mem := asm.Mem{Base: regalloc.GPR(regalloc.R12, 8), Disp: 16}
	require.NoError(t, a.MovLoad(dst, mem, false))
	// REX.WB (0x49), 0x8B, ModRM 01 000 100, SIB 0x24, disp8 0x10.
	require.Equal(t, []byte{0x49, 0x8B, 0x44, 0x24, 0x10}, b.Bytes())
}

func TestMemOperandLargeDisplacementUsesDisp32(t *testing.T) {
	b, a := newEncoder(16)
	dst := regalloc.GPR(regalloc.RAX, 8)
	mem := asm.Mem{Base: regalloc.GPR(regalloc.RBX, 8), Disp: 1000}
	require.NoError(t, a.MovLoad(dst, mem, false))
	require.Equal(t, byte(0x80), b.Bytes()[2]&0xC0) // mod=10
	require.Len(t, b.Bytes(), 2+1+4)                // REX+opcode+modrm+disp32
}

func TestMovLoadByteUsesMovzxWhenUnsigned(t *testing.T) {
	b, a := newEncoder(16)
	dst := regalloc.GPR(regalloc.RAX, 1)
	mem := asm.Mem{Base: regalloc.GPR(regalloc.RDI, 8), Disp: 0}
	require.NoError(t, a.MovLoad(dst, mem, false))
	require.Equal(t, []byte{0x48, 0x0F, 0xB6, 0x47, 0x00}, b.Bytes())
}

func TestMovLoadByteUsesMovsxWhenSigned(t *testing.T) {
	b, a := newEncoder(16)
	dst := regalloc.GPR(regalloc.RAX, 1)
	mem := asm.Mem{Base: regalloc.GPR(regalloc.RDI, 8), Disp: 0}
	require.NoError(t, a.MovLoad(dst, mem, true))
	require.Equal(t, []byte{0x48, 0x0F, 0xBE, 0x47, 0x00}, b.Bytes())
}

func TestMovImmZeroUsesXorIdiom(t *testing.T) {
	b, a := newEncoder(16)
	rax := regalloc.GPR(regalloc.RAX, 8)
	require.NoError(t, a.MovImm(rax, 0))
	// XOR r32,r32 (no REX needed, size clamped to 4): opcode 0x31, ModRM 11 000 000.
	require.Equal(t, []byte{0x31, 0xC0}, b.Bytes())
}

func TestMovImm64MaterializesFullImmediate(t *testing.T) {
	b, a := newEncoder(16)
	rax := regalloc.GPR(regalloc.RAX, 8)
	require.NoError(t, a.MovImm(rax, 42))
	require.Equal(t, byte(0x48), b.Bytes()[0])
	require.Equal(t, byte(0xB8), b.Bytes()[1])
	require.Len(t, b.Bytes(), 2+8)
}

func TestLeaEncodesFieldPointerOffset(t *testing.T) {
	b, a := newEncoder(16)
	dst := regalloc.GPR(regalloc.RCX, 8)
	mem := asm.Mem{Base: regalloc.GPR(regalloc.RDI, 8), Disp: 24}
	require.NoError(t, a.Lea(dst, mem))
	require.Equal(t, []byte{0x48, 0x8D, 0x4F, 0x18}, b.Bytes())
}

func TestPushPopHighRegisterEmitsRexB(t *testing.T) {
	b, a := newEncoder(16)
	r15 := regalloc.GPR(regalloc.R15, 8)
	require.NoError(t, a.Push(r15))
	require.NoError(t, a.Pop(r15))
	require.Equal(t, []byte{0x41, 0x57, 0x41, 0x5F}, b.Bytes())
}

func TestJccEncodesConditionNibble(t *testing.T) {
	b, a := newEncoder(16)
	label := b.AllocateLabel()
	require.NoError(t, a.Jcc(asm.JL, label))
	require.NoError(t, b.PlaceLabel(label))
	require.NoError(t, b.Finalize())
	require.Equal(t, []byte{0x0F, 0x8C, 0x00, 0x00, 0x00, 0x00}, b.Bytes())
}

func TestRetIsSingleByte(t *testing.T) {
	b, a := newEncoder(16)
	require.NoError(t, a.Ret())
	require.Equal(t, []byte{0xC3}, b.Bytes())
}
