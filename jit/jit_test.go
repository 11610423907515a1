package jit_test

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/arc-language/exprjit/ir"
	"github.com/arc-language/exprjit/jit"
)

// skipUnlessNativeInvocationSupported guards every test that actually runs
// compiled machine code: the encoder only ever targets x86-64, and execbuf
// only backs unix, so anywhere else there is nothing to execute.
func skipUnlessNativeInvocationSupported(t *testing.T) {
	t.Helper()
	if runtime.GOARCH != "amd64" || (runtime.GOOS != "linux" && runtime.GOOS != "darwin") {
		t.Skip("native invocation requires unix/amd64")
	}
}

func TestCompileImmediate(t *testing.T) {
	skipUnlessNativeInvocationSupported(t)

	f := jit.New0[int64]()
	v, err := ir.Imm[int64](f.Arena(), 42)
	require.NoError(t, err)
	c, err := f.Compile(v)
	require.NoError(t, err)
	defer c.Close()

	got, err := c.Invoke()
	require.NoError(t, err)
	require.Equal(t, int64(42), got)
}

func TestCompileSingleParameter(t *testing.T) {
	skipUnlessNativeInvocationSupported(t)

	f := jit.New1[int64, int64]()
	p1, err := f.Param1()
	require.NoError(t, err)
	c, err := f.Compile(p1)
	require.NoError(t, err)
	defer c.Close()

	got, err := c.Invoke(7)
	require.NoError(t, err)
	require.Equal(t, int64(7), got)
}

func TestCompileAddOfTwoParameters(t *testing.T) {
	skipUnlessNativeInvocationSupported(t)

	f := jit.New2[int32, int32, int32]()
	p1, err := f.Param1()
	require.NoError(t, err)
	p2, err := f.Param2()
	require.NoError(t, err)
	sum, err := ir.Add(f.Arena(), p1, p2)
	require.NoError(t, err)
	c, err := f.Compile(sum)
	require.NoError(t, err)
	defer c.Close()

	got, err := c.Invoke(19, 23)
	require.NoError(t, err)
	require.Equal(t, int32(42), got)
}

type rect struct {
	width, height int32
}

func TestCompileFieldDeref(t *testing.T) {
	skipUnlessNativeInvocationSupported(t)

	f := jit.New1[int32, uintptr]()
	ptr, err := jit.ParamPtr[rect](f, 0)
	require.NoError(t, err)
	heightPtr, err := ir.FieldPtr[rect, int32](f.Arena(), ptr, ir.Field[int32](unsafe.Offsetof(rect{}.height)))
	require.NoError(t, err)
	height, err := ir.Deref(f.Arena(), heightPtr)
	require.NoError(t, err)
	c, err := f.Compile(height)
	require.NoError(t, err)
	defer c.Close()

	r := rect{width: 3, height: 9}
	got, err := c.Invoke(uintptr(unsafe.Pointer(&r)))
	require.NoError(t, err)
	require.Equal(t, int32(9), got)
}

type point struct {
	x, y int32
}

type segment struct {
	start, end point
}

func TestCompileFieldPointerChainedThroughEmbeddedStruct(t *testing.T) {
	skipUnlessNativeInvocationSupported(t)

	f := jit.New1[int32, uintptr]()
	ptr, err := jit.ParamPtr[segment](f, 0)
	require.NoError(t, err)
	endPtr, err := ir.FieldPtr[segment, point](f.Arena(), ptr, ir.FieldAggregate[point](unsafe.Offsetof(segment{}.end)))
	require.NoError(t, err)
	endXPtr, err := ir.FieldPtr[point, int32](f.Arena(), endPtr, ir.Field[int32](unsafe.Offsetof(point{}.x)))
	require.NoError(t, err)
	endX, err := ir.Deref(f.Arena(), endXPtr)
	require.NoError(t, err)
	c, err := f.Compile(endX)
	require.NoError(t, err)
	defer c.Close()

	s := segment{start: point{x: 1, y: 2}, end: point{x: 30, y: 40}}
	got, err := c.Invoke(uintptr(unsafe.Pointer(&s)))
	require.NoError(t, err)
	require.Equal(t, int32(30), got)
}

func TestCompilePtrAddScalesByElementSize(t *testing.T) {
	skipUnlessNativeInvocationSupported(t)

	f := jit.New2[int64, uintptr, uintptr]()
	base, err := jit.ParamPtr[int64](f, 0)
	require.NoError(t, err)
	idx, err := f.Param2()
	require.NoError(t, err)
	elem, err := ir.PtrAdd(f.Arena(), base, idx)
	require.NoError(t, err)
	val, err := ir.Deref(f.Arena(), elem)
	require.NoError(t, err)
	c, err := f.Compile(val)
	require.NoError(t, err)
	defer c.Close()

	arr := [4]int64{100, 200, 300, 400}
	got, err := c.Invoke(uintptr(unsafe.Pointer(&arr[0])), uintptr(2))
	require.NoError(t, err)
	require.Equal(t, int64(300), got)
}

func TestCompileConditionalBothBranchesTaken(t *testing.T) {
	skipUnlessNativeInvocationSupported(t)

	f := jit.New2[int32, int32, int32]()
	p1, err := f.Param1()
	require.NoError(t, err)
	p2, err := f.Param2()
	require.NoError(t, err)
	cmp, err := ir.Gt(f.Arena(), p1, p2)
	require.NoError(t, err)
	cond, err := ir.Cond(f.Arena(), cmp, p1, p2)
	require.NoError(t, err)
	c, err := f.Compile(cond)
	require.NoError(t, err)
	defer c.Close()

	got, err := c.Invoke(5, 3)
	require.NoError(t, err)
	require.Equal(t, int32(5), got)

	got, err = c.Invoke(1, 9)
	require.NoError(t, err)
	require.Equal(t, int32(9), got)
}

func TestCompileReusesBuilderAfterSuccess(t *testing.T) {
	skipUnlessNativeInvocationSupported(t)

	f := jit.New0[int64]()
	v1, err := ir.Imm[int64](f.Arena(), 1)
	require.NoError(t, err)
	c1, err := f.Compile(v1)
	require.NoError(t, err)
	defer c1.Close()

	v2, err := ir.Imm[int64](f.Arena(), 2)
	require.NoError(t, err)
	c2, err := f.Compile(v2)
	require.NoError(t, err)
	defer c2.Close()

	got1, err := c1.Invoke()
	require.NoError(t, err)
	require.Equal(t, int64(1), got1)

	got2, err := c2.Invoke()
	require.NoError(t, err)
	require.Equal(t, int64(2), got2)
}
