// Package jit is the function builder: a typed façade over package ir that
// exposes parameter accessors, the shared node constructors (via package
// ir directly — see builder.Arena), and Compile, which walks a root ir.Node and
// returns a callable pointer to native code.
//
// Go has no variadic generics, so a single "(ReturnType, Param1, …,
// ParamN)" template becomes the small arity family Func0[R] through
// Func4[R, P1, P2, P3, P4]: four integer/pointer parameter slots cover the
// System V/Win64 integer argument register budget without spilling to the
// stack, which stays out of scope.
package jit

import (
	"go.uber.org/zap"

	"github.com/arc-language/exprjit/abi"
	"github.com/arc-language/exprjit/arena"
)

// config collects the capacities and diagnostics knobs every arity shares.
// There is no persisted or environment-sourced configuration in this
// library — no files, env vars, or CLI; call sites supply capacities
// directly as functional Options, the same pattern other JIT-adjacent
// projects use for their compiler construction options.
type config struct {
	arenaCap int
	codeCap  int
	execCap  int
	logger   *zap.Logger
}

func defaultConfig() config {
	return config{arenaCap: 4096, codeCap: 256, execCap: 4096, logger: zap.NewNop()}
}

// Option configures a Func builder at construction time.
type Option func(*config)

// WithArenaCapacity sets the node arena's fixed byte capacity (default
// 4096).
func WithArenaCapacity(n int) Option { return func(c *config) { c.arenaCap = n } }

// WithCodeCapacity sets the code buffer's fixed byte capacity (default
// 256). Trees deep enough to overflow it fail Compile with
// asm.ErrCodeBufferFull rather than silently growing.
func WithCodeCapacity(n int) Option { return func(c *config) { c.codeCap = n } }

// WithExecutableCapacity sets the backing executable-memory region's size
// (default 4096, one page).
func WithExecutableCapacity(n int) Option { return func(c *config) { c.execCap = n } }

// WithLogger attaches compile-time diagnostics to a *zap.Logger: one Debug
// entry per successful Compile with the arity, code size in bytes,
// callee-save register count and ABI name. Logging defaults to
// zap.NewNop() and stays off the hot path — Compile is still expected to
// run in microseconds to milliseconds.
func WithLogger(l *zap.Logger) Option { return func(c *config) { c.logger = l } }

// builder is the shared state every Func0..Func4 arity embeds: one arena
// for the whole builder's lifetime (one compile per arena generation,
// under a scoped-acquisition resource model), the host calling
// convention, and the capacities from Option. It is unexported — callers
// only ever see it through the arity-specific Func0..Func4 wrappers that
// embed it, which is what gives each wrapper its Param1()..Param4()
// accessor methods without repeating the field set five times.
type builder struct {
	arenaV *arena.Arena
	conv   abi.Convention
	cfg    config
	arity  int
}

func newBuilder(arity int, opts ...Option) *builder {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &builder{
		arenaV: arena.New(cfg.arenaCap),
		conv:   abi.Host(),
		cfg:    cfg,
		arity:  arity,
	}
}

// Arena exposes the builder's node arena, for constructing tree nodes via
// package ir's generic constructors directly: `ir.Add(f.Arena(), a, b)`,
// `ir.Gt(f.Arena(), a, b)`, and so on. Node construction stays in package
// ir rather than being re-wrapped as generic methods here because Go
// methods cannot introduce new type parameters beyond the receiver's —
// Imm[T], Add[T], FieldPtr[Outer,Field] all need a type parameter the
// receiver (Func1[R,P1], say) doesn't carry, so they remain free functions
// taking an *arena.Arena instead.
func (b *builder) Arena() *arena.Arena { return b.arenaV }

// Reset discards every node built against this builder's arena and frees
// it for the next expression tree: the arena is created, nodes are
// allocated into it for one compilation, the compilation ends, and the
// arena is reset for the next. Compile calls this automatically after
// building the callable; exposed here so a builder whose Compile failed
// (e.g. ErrOutOfRegisters) can still be reused from a clean arena.
func (b *builder) Reset() { b.arenaV.Reset() }
