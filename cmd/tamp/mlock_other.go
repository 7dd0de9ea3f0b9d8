//go:build !unix

package main

// mlockWindow is a no-op on platforms without an unix.Mlock equivalent
// wired up here; --mlock is best-effort everywhere.
func mlockWindow(buf []byte) func() {
	return func() {}
}
