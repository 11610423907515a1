// Package abi selects the host's x86-64 calling convention: which physical
// registers carry integer/pointer and floating-point arguments, which
// register carries the return value, and which registers are callee-save.
// Selection happens once, at build time, per runtime.GOOS — there is no
// per-call dispatch.
package abi

import (
	"runtime"

	"github.com/arc-language/exprjit/regalloc"
)

// Convention describes one platform's integer/float argument registers,
// return registers, and callee-save set. The teacher's ABI package
// (arch/amd64/abi.go) classified arbitrary aggregate types across a full
// LLVM-style type system (structs, arrays, vectors); this specification's
// type domain is a closed set of scalars and pointers (types.Scalar), so
// Convention only needs flat register lists, not a classifier.
type Convention struct {
	Name string

	// IntArgRegs are, in order, the GPRs that carry the 1st, 2nd, ...
	// integer/pointer parameter.
	IntArgRegs []regalloc.Reg

	// FloatArgRegs are, in order, the XMM registers that carry float
	// parameters. No node in this IR ever targets a float parameter
	// (floating-point arithmetic is out of scope), but the register list is
	// carried anyway so the ABI description stays complete even though
	// unexercised.
	FloatArgRegs []regalloc.Reg

	// ReturnInt is the register an integer/pointer result is returned in.
	ReturnInt regalloc.Reg

	// ReturnFloat is the register a float result would be returned in.
	ReturnFloat regalloc.Reg

	// CalleeSaved lists the GPRs this convention requires the callee to
	// preserve across a call. regalloc.File does not read this list: it
	// decides what the prologue/epilogue must push/pop from its own set
	// (regalloc.calleeSaved: RBX, R12-R15 only), which omits RBP from both
	// conventions and RDI/RSI from Windows.
	CalleeSaved []regalloc.Reg
}

func gpr64(id uint8) regalloc.Reg { return regalloc.GPR(id, 8) }

// SystemV is the calling convention used by Linux, macOS, and other
// System V AMD64 ABI platforms: integer args in RDI, RSI, RDX, RCX, R8, R9.
var SystemV = Convention{
	Name: "sysv",
	IntArgRegs: []regalloc.Reg{
		gpr64(regalloc.RDI), gpr64(regalloc.RSI), gpr64(regalloc.RDX),
		gpr64(regalloc.RCX), gpr64(regalloc.R8), gpr64(regalloc.R9),
	},
	FloatArgRegs: []regalloc.Reg{
		regalloc.XMM(0), regalloc.XMM(1), regalloc.XMM(2), regalloc.XMM(3),
		regalloc.XMM(4), regalloc.XMM(5), regalloc.XMM(6), regalloc.XMM(7),
	},
	ReturnInt:   gpr64(regalloc.RAX),
	ReturnFloat: regalloc.XMM(0),
	CalleeSaved: []regalloc.Reg{
		gpr64(regalloc.RBX), gpr64(regalloc.R12), gpr64(regalloc.R13),
		gpr64(regalloc.R14), gpr64(regalloc.R15), gpr64(regalloc.RBP),
	},
}

// Windows is the Microsoft x64 calling convention: integer args in RCX,
// RDX, R8, R9, with the first four argument slots shared (not packed)
// between integer and float registers.
var Windows = Convention{
	Name: "win64",
	IntArgRegs: []regalloc.Reg{
		gpr64(regalloc.RCX), gpr64(regalloc.RDX), gpr64(regalloc.R8), gpr64(regalloc.R9),
	},
	FloatArgRegs: []regalloc.Reg{
		regalloc.XMM(0), regalloc.XMM(1), regalloc.XMM(2), regalloc.XMM(3),
	},
	ReturnInt:   gpr64(regalloc.RAX),
	ReturnFloat: regalloc.XMM(0),
	CalleeSaved: []regalloc.Reg{
		gpr64(regalloc.RBX), gpr64(regalloc.RBP), gpr64(regalloc.RDI), gpr64(regalloc.RSI),
		gpr64(regalloc.R12), gpr64(regalloc.R13), gpr64(regalloc.R14), gpr64(regalloc.R15),
	},
}

// Host returns the calling convention matching runtime.GOOS, selected once
// at build/package-init time rather than per compile. Non-Windows platforms
// (Linux, Darwin, BSDs) all use the System V convention for this purpose.
func Host() Convention {
	if runtime.GOOS == "windows" {
		return Windows
	}
	return SystemV
}
