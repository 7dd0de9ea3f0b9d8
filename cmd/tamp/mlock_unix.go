//go:build unix

package main

import (
	"log/slog"

	"golang.org/x/sys/unix"
)

// mlockWindow locks buf into physical memory for the duration of the run,
// a direct echo of the "severely memory-constrained target" framing this
// codec is built for: on the desktop it is a demonstration/test aid, but
// it exercises the same syscall an embedded port's host-side simulator
// would reach for. It returns the unlock func to defer; failures are
// logged, never fatal, since --mlock is a best-effort flag.
func mlockWindow(buf []byte) func() {
	if len(buf) == 0 {
		return func() {}
	}
	if err := unix.Mlock(buf); err != nil {
		slog.Warn("mlock", "err", err)
		return func() {}
	}
	return func() {
		if err := unix.Munlock(buf); err != nil {
			slog.Warn("munlock", "err", err)
		}
	}
}
