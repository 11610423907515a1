package execbuf

import "errors"

// ErrUnsupportedPlatform is returned by New on platforms without an mmap(2)
// equivalent wired up (anything outside the unix build-tag family).
var ErrUnsupportedPlatform = errors.New("execbuf: unsupported platform")

// ErrBufferFull is returned by Reserve when the region has no space left
// for another slot of the requested size.
var ErrBufferFull = errors.New("execbuf: region exhausted")
