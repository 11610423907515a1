package jit

import (
	"go.uber.org/zap"

	"github.com/arc-language/exprjit/abi"
	"github.com/arc-language/exprjit/asm"
	"github.com/arc-language/exprjit/execbuf"
	"github.com/arc-language/exprjit/ir"
	"github.com/arc-language/exprjit/regalloc"
)

// compile walks root and produces one native function, reserving the
// host's first `arity` integer argument registers before emission so
// Parameter nodes (already bound to those registers at construction) are
// never handed out by the allocator for anything else.
//
// Which callee-save GPRs end up used is only known after the tree has been
// walked, but the prologue that pushes them must be the first bytes in the
// buffer. compile resolves this the way a two-pass assembler resolves any
// forward reference: emit once into a throwaway buffer purely to observe
// regalloc.File.CalleeSaveUsed, then emit for real with the prologue sized
// correctly up front. Node emission has no side effects beyond the buffer
// and register file it's handed, so the two passes produce byte-identical
// bodies.
func compile(b *builder, root ir.Node, arity int) (*execbuf.Buffer, execbuf.Slot, error) {
	conv := b.conv
	paramRegs := conv.IntArgRegs[:arity]

	saved, err := discoverCalleeSaved(conv, paramRegs, root, b.cfg.codeCap)
	if err != nil {
		return nil, execbuf.Slot{}, err
	}

	buf := asm.NewBuffer(b.cfg.codeCap)
	a := asm.NewAssembler(buf)
	regs := reservedFile(conv, paramRegs)

	if err := emitPrologue(a, saved); err != nil {
		return nil, execbuf.Slot{}, err
	}

	ctx := &ir.Context{Asm: a, Regs: regs}
	if _, err := root.Emit(ctx, ir.In(conv.ReturnInt)); err != nil {
		return nil, execbuf.Slot{}, err
	}

	if err := emitEpilogue(a, saved); err != nil {
		return nil, execbuf.Slot{}, err
	}
	if err := buf.Finalize(); err != nil {
		return nil, execbuf.Slot{}, err
	}

	region, err := execbuf.New(b.cfg.execCap)
	if err != nil {
		return nil, execbuf.Slot{}, err
	}
	slot, err := region.Reserve(buf.CurrentOffset())
	if err != nil {
		region.Close()
		return nil, execbuf.Slot{}, err
	}
	copy(slot.Bytes(), buf.Bytes())
	if err := region.Flip(); err != nil {
		region.Close()
		return nil, execbuf.Slot{}, err
	}
	b.cfg.logger.Debug("compiled native function",
		zap.Int("arity", arity),
		zap.Int("code_bytes", buf.CurrentOffset()),
		zap.Int("callee_saved", len(saved)),
		zap.String("abi", conv.Name),
	)
	return region, slot, nil
}

// reservedFile builds a register file with paramRegs and the ABI return
// register already marked busy, so the allocator never hands either out to
// an intermediate value.
func reservedFile(conv abi.Convention, paramRegs []regalloc.Reg) *regalloc.File {
	regs := regalloc.NewFile()
	for _, r := range paramRegs {
		regs.Reserve(r)
	}
	regs.Reserve(conv.ReturnInt)
	return regs
}

// discoverCalleeSaved emits root into a scratch buffer, purely to learn
// which callee-save GPRs regalloc.File ends up allocating, then discards
// the emitted bytes.
func discoverCalleeSaved(conv abi.Convention, paramRegs []regalloc.Reg, root ir.Node, codeCap int) ([]regalloc.Reg, error) {
	scratch := asm.NewAssembler(asm.NewBuffer(codeCap))
	regs := reservedFile(conv, paramRegs)
	ctx := &ir.Context{Asm: scratch, Regs: regs}
	if _, err := root.Emit(ctx, ir.In(conv.ReturnInt)); err != nil {
		return nil, err
	}
	ids := regs.CalleeSaveUsed()
	saved := make([]regalloc.Reg, len(ids))
	for i, id := range ids {
		saved[i] = regalloc.GPR(id, 8)
	}
	return saved, nil
}

func emitPrologue(a *asm.Assembler, saved []regalloc.Reg) error {
	for _, r := range saved {
		if err := a.Push(r); err != nil {
			return err
		}
	}
	return nil
}

func emitEpilogue(a *asm.Assembler, saved []regalloc.Reg) error {
	for i := len(saved) - 1; i >= 0; i-- {
		if err := a.Pop(saved[i]); err != nil {
			return err
		}
	}
	return a.Ret()
}

// Compile builds the zero-argument function rooted at root and returns a
// callable pointer to its native code.
func (f *Func0[R]) Compile(root ir.Value[R]) (*Callable0[R], error) {
	region, slot, err := compile(f.builder, root.Node(), 0)
	if err != nil {
		return nil, err
	}
	f.Reset()
	return &Callable0[R]{region: region, slot: slot}, nil
}

// Compile builds the one-argument function rooted at root.
func (f *Func1[R, P1]) Compile(root ir.Value[R]) (*Callable1[R, P1], error) {
	region, slot, err := compile(f.builder, root.Node(), 1)
	if err != nil {
		return nil, err
	}
	f.Reset()
	return &Callable1[R, P1]{region: region, slot: slot}, nil
}

// Compile builds the two-argument function rooted at root.
func (f *Func2[R, P1, P2]) Compile(root ir.Value[R]) (*Callable2[R, P1, P2], error) {
	region, slot, err := compile(f.builder, root.Node(), 2)
	if err != nil {
		return nil, err
	}
	f.Reset()
	return &Callable2[R, P1, P2]{region: region, slot: slot}, nil
}

// Compile builds the three-argument function rooted at root.
func (f *Func3[R, P1, P2, P3]) Compile(root ir.Value[R]) (*Callable3[R, P1, P2, P3], error) {
	region, slot, err := compile(f.builder, root.Node(), 3)
	if err != nil {
		return nil, err
	}
	f.Reset()
	return &Callable3[R, P1, P2, P3]{region: region, slot: slot}, nil
}

// Compile builds the four-argument function rooted at root.
func (f *Func4[R, P1, P2, P3, P4]) Compile(root ir.Value[R]) (*Callable4[R, P1, P2, P3, P4], error) {
	region, slot, err := compile(f.builder, root.Node(), 4)
	if err != nil {
		return nil, err
	}
	f.Reset()
	return &Callable4[R, P1, P2, P3, P4]{region: region, slot: slot}, nil
}
