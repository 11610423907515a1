//go:build unix

package execbuf_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arc-language/exprjit/execbuf"
)

func TestReserveHandsOutDisjointSlots(t *testing.T) {
	b, err := execbuf.New(8192)
	require.NoError(t, err)
	defer b.Close()

	s1, err := b.Reserve(64)
	require.NoError(t, err)
	s2, err := b.Reserve(64)
	require.NoError(t, err)

	require.NotEqual(t, s1.Addr(), s2.Addr())
	require.Equal(t, s2.Addr(), s1.Addr()+64)
}

func TestReserveBeyondCapacityFails(t *testing.T) {
	b, err := execbuf.New(4096)
	require.NoError(t, err)
	defer b.Close()

	_, err = b.Reserve(4096)
	require.NoError(t, err)
	_, err = b.Reserve(1)
	require.ErrorIs(t, err, execbuf.ErrBufferFull)
}

func TestFlipIsIdempotent(t *testing.T) {
	b, err := execbuf.New(4096)
	require.NoError(t, err)
	defer b.Close()

	slot, err := b.Reserve(8)
	require.NoError(t, err)
	copy(slot.Bytes(), []byte{0xB8, 0x2A, 0x00, 0x00, 0x00, 0xC3}) // mov eax, 42; ret

	require.NoError(t, b.Flip())
	require.NoError(t, b.Flip())
}

func TestCloseAfterReserveSucceeds(t *testing.T) {
	b, err := execbuf.New(4096)
	require.NoError(t, err)
	_, err = b.Reserve(64)
	require.NoError(t, err)
	require.NoError(t, b.Close())
}
