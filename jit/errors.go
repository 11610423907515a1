package jit

import (
	"errors"

	"github.com/arc-language/exprjit/execbuf"
)

// ErrUnsupportedPlatform reports that this platform has no native
// invocation path: package execbuf only backs unix, and the trampoline
// only targets amd64, so Invoke has nothing to call into anywhere else.
var ErrUnsupportedPlatform = execbuf.ErrUnsupportedPlatform

// ErrNotCompiled is returned by Invoke on the zero Callable (one never
// produced by a successful Compile call).
var ErrNotCompiled = errors.New("jit: callable has no compiled code")
