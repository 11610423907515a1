package asm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arc-language/exprjit/asm"
)

func TestEmitGrowsAndReportsOffset(t *testing.T) {
	b := asm.NewBuffer(16)
	require.NoError(t, b.Emit8(0x90))
	require.Equal(t, 1, b.CurrentOffset())
	require.NoError(t, b.Emit32(0xAABBCCDD))
	require.Equal(t, 5, b.CurrentOffset())
	require.Equal(t, []byte{0xDD, 0xCC, 0xBB, 0xAA}, b.ByteSlice(1, 5))
}

func TestEmitBeyondCapacityFails(t *testing.T) {
	b := asm.NewBuffer(2)
	require.NoError(t, b.Emit8(0x01))
	require.NoError(t, b.Emit8(0x02))
	err := b.Emit8(0x03)
	require.ErrorIs(t, err, asm.ErrCodeBufferFull)
}

func TestLabelPatchResolvesForwardReference(t *testing.T) {
	b := asm.NewBuffer(32)
	a := asm.NewAssembler(b)
	label := b.AllocateLabel()

	jmpFieldStart := b.CurrentOffset() + 1 // JMP opcode byte, then the rel32 field
	require.NoError(t, a.Jmp(label))

	require.NoError(t, b.Emit8(0x90)) // filler NOP
	require.NoError(t, b.PlaceLabel(label))
	target := b.CurrentOffset()

	require.NoError(t, b.Finalize())

	bytes := b.Bytes()
	got := int32(bytes[jmpFieldStart]) | int32(bytes[jmpFieldStart+1])<<8 |
		int32(bytes[jmpFieldStart+2])<<16 | int32(bytes[jmpFieldStart+3])<<24
	require.Equal(t, int32(target-(jmpFieldStart+4)), got)
}

func TestFinalizeFailsOnUnplacedLabel(t *testing.T) {
	b := asm.NewBuffer(32)
	a := asm.NewAssembler(b)
	label := b.AllocateLabel()
	require.NoError(t, a.Jmp(label))

	err := b.Finalize()
	var unresolved *asm.ErrUnresolvedLabel
	require.ErrorAs(t, err, &unresolved)
	require.Equal(t, label, unresolved.Label)
}

func TestPlaceLabelTwiceFails(t *testing.T) {
	b := asm.NewBuffer(32)
	label := b.AllocateLabel()
	require.NoError(t, b.PlaceLabel(label))
	require.Error(t, b.PlaceLabel(label))
}
