package ir_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/arc-language/exprjit/arena"
	"github.com/arc-language/exprjit/asm"
	"github.com/arc-language/exprjit/ir"
	"github.com/arc-language/exprjit/regalloc"
)

type point struct {
	x, y int32
}

type segment struct {
	start, end point
}

func TestFieldPointerSingleLevel(t *testing.T) {
	a := arena.New(1024)
	p := point{x: 10, y: 20}

	ptr, err := ir.ParamPtr[point](a, 0)
	require.NoError(t, err)
	yPtr, err := ir.FieldPtr[point, int32](a, ptr, ir.Field[int32](unsafe.Offsetof(p.y)))
	require.NoError(t, err)
	yVal, err := ir.Deref(a, yPtr)
	require.NoError(t, err)

	raw, err := ir.Interpret(yVal.Node(), ir.ToRaw(uintptr(unsafe.Pointer(&p))))
	require.NoError(t, err)
	require.Equal(t, int32(20), ir.FromRaw[int32](raw))
}

func TestFieldPointerChainedThroughEmbeddedStruct(t *testing.T) {
	a := arena.New(1024)
	s := segment{start: point{x: 1, y: 2}, end: point{x: 30, y: 40}}

	ptr, err := ir.ParamPtr[segment](a, 0)
	require.NoError(t, err)
	endPtr, err := ir.FieldPtr[segment, point](a, ptr, ir.FieldAggregate[point](unsafe.Offsetof(s.end)))
	require.NoError(t, err)
	endXPtr, err := ir.FieldPtr[point, int32](a, endPtr, ir.Field[int32](unsafe.Offsetof(s.end.x)))
	require.NoError(t, err)
	endX, err := ir.Deref(a, endXPtr)
	require.NoError(t, err)

	raw, err := ir.Interpret(endX.Node(), ir.ToRaw(uintptr(unsafe.Pointer(&s))))
	require.NoError(t, err)
	require.Equal(t, int32(30), ir.FromRaw[int32](raw))
}

func TestPtrAddScalesByElementSize(t *testing.T) {
	a := arena.New(1024)
	arr := [4]int64{100, 200, 300, 400}

	base, err := ir.ParamPtr[int64](a, 0)
	require.NoError(t, err)
	idx, err := ir.Param[uintptr](a, 1)
	require.NoError(t, err)
	elem, err := ir.PtrAdd(a, base, idx)
	require.NoError(t, err)
	val, err := ir.Deref(a, elem)
	require.NoError(t, err)

	raw, err := ir.Interpret(val.Node(),
		ir.ToRaw(uintptr(unsafe.Pointer(&arr[0]))),
		ir.ToRaw(uintptr(2)),
	)
	require.NoError(t, err)
	require.Equal(t, int64(300), ir.FromRaw[int64](raw))
}

func TestPtrAddRejectsNonPowerOfTwoStride(t *testing.T) {
	a := arena.New(1024)
	type triple struct{ a, b, c int8 }

	base, err := ir.ParamPtr[triple](a, 0)
	require.NoError(t, err)
	idx, err := ir.Param[uintptr](a, 1)
	require.NoError(t, err)
	elem, err := ir.PtrAdd(a, base, idx)
	require.NoError(t, err)

	ctx := &ir.Context{Asm: asm.NewAssembler(asm.NewBuffer(256)), Regs: regalloc.NewFile()}
	_, err = elem.Node().Emit(ctx, ir.Any())
	var strideErr *ir.ErrUnscalablePointerStride
	require.ErrorAs(t, err, &strideErr)
}

func TestParamIndexBeyondConventionRejected(t *testing.T) {
	a := arena.New(1024)
	_, err := ir.Param[int64](a, 64)
	var idxErr *ir.ErrParameterIndex
	require.ErrorAs(t, err, &idxErr)
}

func TestConditionalBothBranches(t *testing.T) {
	a := arena.New(1024)
	p1, err := ir.Param[int32](a, 0)
	require.NoError(t, err)
	p2, err := ir.Param[int32](a, 1)
	require.NoError(t, err)
	cmp, err := ir.Gt(a, p1, p2)
	require.NoError(t, err)
	cond, err := ir.Cond(a, cmp, p1, p2)
	require.NoError(t, err)

	raw, err := ir.Interpret(cond.Node(), ir.ToRaw(int32(5)), ir.ToRaw(int32(3)))
	require.NoError(t, err)
	require.Equal(t, int32(5), ir.FromRaw[int32](raw))

	raw, err = ir.Interpret(cond.Node(), ir.ToRaw(int32(1)), ir.ToRaw(int32(9)))
	require.NoError(t, err)
	require.Equal(t, int32(9), ir.FromRaw[int32](raw))
}
