package regalloc_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arc-language/exprjit/regalloc"
)

func TestAllocatePrefersCallerSave(t *testing.T) {
	f := regalloc.NewFile()

	r, err := f.AllocateGPR(8)
	require.NoError(t, err)
	require.False(t, r.Float)
	require.Equal(t, uint8(regalloc.RAX), r.ID)
}

func TestReserveThenReleaseRoundTrips(t *testing.T) {
	f := regalloc.NewFile()
	rdi := regalloc.GPR(regalloc.RDI, 8)

	f.Reserve(rdi)
	require.False(t, f.IsFree(rdi))

	f.Release(rdi)
	require.True(t, f.IsFree(rdi))
}

func TestOutOfRegisters(t *testing.T) {
	f := regalloc.NewFile()
	for i := 0; i < 14; i++ {
		_, err := f.AllocateGPR(8)
		require.NoError(t, err)
	}

	_, err := f.AllocateGPR(8)
	require.Error(t, err)
	var oor *regalloc.ErrOutOfRegisters
	require.True(t, errors.As(err, &oor))
	require.False(t, oor.Float)
}

func TestCalleeSaveTrackedOnlyWhenAllocated(t *testing.T) {
	f := regalloc.NewFile()
	require.Empty(t, f.CalleeSaveUsed())

	// Exhaust the caller-save registers so the next allocation must dip
	// into callee-save territory (RBX first per callerSaveOrder).
	for i := 0; i < 9; i++ {
		_, err := f.AllocateGPR(8)
		require.NoError(t, err)
	}
	rbx, err := f.AllocateGPR(8)
	require.NoError(t, err)
	require.Equal(t, uint8(regalloc.RBX), rbx.ID)
	require.Equal(t, []uint8{regalloc.RBX}, f.CalleeSaveUsed())
}

func TestAllocateXMMLowestIDFirst(t *testing.T) {
	f := regalloc.NewFile()
	x0, err := f.AllocateXMM()
	require.NoError(t, err)
	require.True(t, x0.Float)
	require.Equal(t, uint8(0), x0.ID)
}
