package jit

import (
	"github.com/arc-language/exprjit/execbuf"
	"github.com/arc-language/exprjit/ir"
	"github.com/arc-language/exprjit/types"
)

// Callable0..Callable4 wrap one Compile call's result: the executable
// memory backing it and the entry slot within that memory. Each Invoke is
// typed per arity, converting Go values to and from the raw uint64 lanes
// the native calling convention passes, via ir.ToRaw/ir.FromRaw — the same
// conversions package interp's Run uses, so a compiled Callable and its
// interpreted reference give directly comparable results.
type Callable0[R types.Scalar] struct {
	region *execbuf.Buffer
	slot   execbuf.Slot
}

// Addr returns the callable's entry address.
func (c *Callable0[R]) Addr() uintptr { return c.slot.Addr() }

// Bytes returns the compiled machine code, for disassembly or golden tests.
func (c *Callable0[R]) Bytes() []byte { return c.slot.Bytes() }

// Close releases the executable memory region this Callable's Compile call
// mapped; every Compile call maps its own region, so other Callables from
// the same Func are unaffected. Safe to call once this Callable will not be
// invoked again.
func (c *Callable0[R]) Close() error { return c.region.Close() }

// Invoke calls the compiled function and returns its result as R.
func (c *Callable0[R]) Invoke() (R, error) {
	raw, err := invoke(c.Addr())
	if err != nil {
		var zero R
		return zero, err
	}
	return ir.FromRaw[R](raw), nil
}

// Callable1 is the one-argument counterpart of Callable0.
type Callable1[R, P1 types.Scalar] struct {
	region *execbuf.Buffer
	slot   execbuf.Slot
}

func (c *Callable1[R, P1]) Addr() uintptr { return c.slot.Addr() }
func (c *Callable1[R, P1]) Bytes() []byte { return c.slot.Bytes() }
func (c *Callable1[R, P1]) Close() error  { return c.region.Close() }

// Invoke calls the compiled function with p1 and returns its result as R.
func (c *Callable1[R, P1]) Invoke(p1 P1) (R, error) {
	raw, err := invoke(c.Addr(), ir.ToRaw(p1))
	if err != nil {
		var zero R
		return zero, err
	}
	return ir.FromRaw[R](raw), nil
}

// Callable2 is the two-argument counterpart of Callable0.
type Callable2[R, P1, P2 types.Scalar] struct {
	region *execbuf.Buffer
	slot   execbuf.Slot
}

func (c *Callable2[R, P1, P2]) Addr() uintptr { return c.slot.Addr() }
func (c *Callable2[R, P1, P2]) Bytes() []byte { return c.slot.Bytes() }
func (c *Callable2[R, P1, P2]) Close() error  { return c.region.Close() }

// Invoke calls the compiled function with (p1, p2) and returns its result.
func (c *Callable2[R, P1, P2]) Invoke(p1 P1, p2 P2) (R, error) {
	raw, err := invoke(c.Addr(), ir.ToRaw(p1), ir.ToRaw(p2))
	if err != nil {
		var zero R
		return zero, err
	}
	return ir.FromRaw[R](raw), nil
}

// Callable3 is the three-argument counterpart of Callable0.
type Callable3[R, P1, P2, P3 types.Scalar] struct {
	region *execbuf.Buffer
	slot   execbuf.Slot
}

func (c *Callable3[R, P1, P2, P3]) Addr() uintptr { return c.slot.Addr() }
func (c *Callable3[R, P1, P2, P3]) Bytes() []byte { return c.slot.Bytes() }
func (c *Callable3[R, P1, P2, P3]) Close() error  { return c.region.Close() }

// Invoke calls the compiled function with (p1, p2, p3) and returns its result.
func (c *Callable3[R, P1, P2, P3]) Invoke(p1 P1, p2 P2, p3 P3) (R, error) {
	raw, err := invoke(c.Addr(), ir.ToRaw(p1), ir.ToRaw(p2), ir.ToRaw(p3))
	if err != nil {
		var zero R
		return zero, err
	}
	return ir.FromRaw[R](raw), nil
}

// Callable4 is the four-argument counterpart of Callable0.
type Callable4[R, P1, P2, P3, P4 types.Scalar] struct {
	region *execbuf.Buffer
	slot   execbuf.Slot
}

func (c *Callable4[R, P1, P2, P3, P4]) Addr() uintptr { return c.slot.Addr() }
func (c *Callable4[R, P1, P2, P3, P4]) Bytes() []byte { return c.slot.Bytes() }
func (c *Callable4[R, P1, P2, P3, P4]) Close() error  { return c.region.Close() }

// Invoke calls the compiled function with (p1, p2, p3, p4) and returns its result.
func (c *Callable4[R, P1, P2, P3, P4]) Invoke(p1 P1, p2 P2, p3 P3, p4 P4) (R, error) {
	raw, err := invoke(c.Addr(), ir.ToRaw(p1), ir.ToRaw(p2), ir.ToRaw(p3), ir.ToRaw(p4))
	if err != nil {
		var zero R
		return zero, err
	}
	return ir.FromRaw[R](raw), nil
}
