package tamp

import "errors"

// Error kinds returned by the codec core. The core never retries and never
// recovers from a hard error internally: InvalidConf, ExcessBits, and Oob
// leave the instance in a defined but unusable state, and the caller must
// discard it. InputExhausted and OutputFull are expected control-flow
// returns in streaming use and are not logged as errors by this package.
var (
	// ErrInvalidConf is returned when a header byte has reserved bits set,
	// when a Conf's fields are out of their supported ranges, or when a
	// decompressor's configured window is larger than window_bits_max.
	ErrInvalidConf = errors.New("tamp: invalid configuration")

	// ErrExcessBits is returned by the compressor when a literal byte has
	// bits set above position literal-1. This is always a caller bug: the
	// input does not fit in the configured literal width.
	ErrExcessBits = errors.New("tamp: literal byte exceeds configured width")

	// ErrInputExhausted is returned by the decompressor when the buffered
	// input bits do not form a complete token. No partial decode is ever
	// committed by the failed attempt.
	ErrInputExhausted = errors.New("tamp: insufficient input")

	// ErrOutputFull is returned when there is not enough room in the
	// caller's output buffer to make progress. State reflects whatever was
	// already emitted, plus an internal skip count on the decompressor
	// side so a subsequent call resumes mid-token.
	ErrOutputFull = errors.New("tamp: output buffer full")

	// ErrOob is returned by the decompressor when a back-reference token
	// names an offset or length that would read outside the window
	// buffer. This is fatal for the instance: the stream is corrupt or
	// hostile.
	ErrOob = errors.New("tamp: back-reference out of window bounds")
)
