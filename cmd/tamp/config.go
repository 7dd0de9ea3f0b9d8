package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/tampcodec/tamp"
)

// defaultWindowBits and defaultLiteralBits seed the command-line flags;
// they can be overridden per-invocation with -w/-l or, for scripts that
// shell out to tamp repeatedly, by environment variables, so a batch job
// does not have to thread the flags through every call site.
const (
	defaultWindowBits  = 10
	defaultLiteralBits = 8
)

func confFromFlags(windowBits, literalBits uint8, customDict bool) (tamp.Conf, error) {
	if e := os.Getenv("TAMP_WINDOW_BITS"); e != "" {
		v, err := strconv.ParseUint(e, 10, 8)
		if err != nil {
			return tamp.Conf{}, fmt.Errorf("tamp: malformed TAMP_WINDOW_BITS environment variable: %w", err)
		}
		windowBits = uint8(v)
	}
	if e := os.Getenv("TAMP_LITERAL_BITS"); e != "" {
		v, err := strconv.ParseUint(e, 10, 8)
		if err != nil {
			return tamp.Conf{}, fmt.Errorf("tamp: malformed TAMP_LITERAL_BITS environment variable: %w", err)
		}
		literalBits = uint8(v)
	}
	c := tamp.Conf{Window: windowBits, Literal: literalBits, UseCustomDictionary: customDict}
	if err := c.Validate(); err != nil {
		return tamp.Conf{}, fmt.Errorf("tamp: %w (window=%d literal=%d)", err, c.Window, c.Literal)
	}
	return c, nil
}
