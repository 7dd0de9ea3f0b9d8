package tamp

import "fmt"

// Compressor is a streaming LZSS+Huffman encoder. It never allocates after
// construction and holds no resources beyond the caller-supplied window: the
// zero value is not usable, construct one with [NewCompressor].
//
// A Compressor is not safe for concurrent use; the caller owns serialising
// access to a single instance, exactly as it owns the window buffer Sink and
// Poll read and write through.
type Compressor struct {
	conf           Conf
	window         []byte
	windowPos      int
	minPatternSize int

	ring inputRing

	bitBuf uint32
	bitPos int

	lazyValid bool
	lazyIndex int
	lazySize  int
}

// NewCompressor validates conf, wraps window (which must be exactly
// conf.WindowSize() bytes), fills it with the deterministic dictionary
// unless conf.UseCustomDictionary is set, and primes the internal bit
// buffer with the stream's single header byte.
func NewCompressor(conf Conf, window []byte) (*Compressor, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if len(window) != conf.WindowSize() {
		return nil, fmt.Errorf("tamp: window buffer is %d bytes, want %d: %w", len(window), conf.WindowSize(), ErrInvalidConf)
	}
	c := &Compressor{
		conf:           conf,
		window:         window,
		minPatternSize: conf.MinPatternSize(),
	}
	if !conf.UseCustomDictionary {
		InitializeDictionary(window)
	}
	bitBufferPush(&c.bitBuf, &c.bitPos, uint32(WriteHeader(conf)), 8)
	return c, nil
}

// Sink appends as much of p as fits in the 16-byte input ring, returning the
// number of bytes consumed. The caller must keep calling Poll (or Compress)
// to make room for more.
func (c *Compressor) Sink(p []byte) int {
	return c.ring.push(p)
}

// Poll emits at most one literal or back-reference token into the internal
// bit buffer, then drains whole bytes of that buffer into out. It returns
// [ErrOutputFull] if out has no room left for bytes the bit buffer is
// already holding, and [ErrExcessBits] if the next literal byte does not fit
// in conf.Literal bits (the compressor's state is left exactly as it was
// before the offending literal was discovered).
func (c *Compressor) Poll(out []byte) (written int, err error) {
	written = partialFlushWide(&c.bitBuf, &c.bitPos, out)
	if c.bitPos >= 8 && written == len(out) {
		return written, ErrOutputFull
	}
	if c.ring.size == 0 {
		return written, nil
	}
	if err := c.emitOneToken(); err != nil {
		return written, err
	}
	written += partialFlushWide(&c.bitBuf, &c.bitPos, out[written:])
	return written, nil
}

// emitOneToken runs the match search (and, if enabled, the lazy-matching
// lookahead of one extra byte) and appends exactly one token's worth of
// bits to the bit buffer, advancing the input ring and the window to match.
func (c *Compressor) emitOneToken() error {
	var matchIndex, matchSize int
	if c.lazyValid {
		matchIndex, matchSize = c.lazyIndex, c.lazySize
		c.lazyValid = false
	} else {
		matchIndex, matchSize = c.findMatch(0)
		if c.conf.LazyMatching && matchSize >= c.minPatternSize && matchSize <= 8 && c.ring.size >= matchSize+2 {
			altIndex, altSize := c.findMatch(1)
			if altSize > matchSize && !c.rangeCoversWindowPos(altIndex, altSize) {
				if err := c.emitLiteral(c.ring.at(0)); err != nil {
					return err
				}
				c.commitRing(1)
				c.lazyValid = true
				c.lazyIndex, c.lazySize = altIndex, altSize
				return nil
			}
		}
	}

	if matchSize < c.minPatternSize {
		if err := c.emitLiteral(c.ring.at(0)); err != nil {
			return err
		}
		c.commitRing(1)
		return nil
	}
	c.emitBackReference(matchIndex, matchSize)
	c.commitRing(matchSize)
	return nil
}

// rangeCoversWindowPos reports whether the half-open window range
// [index, index+size) contains the position the next literal byte would be
// written to. Lazy matching must not defer to an alternative match whose
// source bytes the deferred literal is about to overwrite.
func (c *Compressor) rangeCoversWindowPos(index, size int) bool {
	return c.windowPos >= index && c.windowPos < index+size
}

// findMatch returns the longest run starting skip bytes into the pending
// input ring that also occurs somewhere in the window, preferring the
// smallest window index on ties. It never considers a candidate that would
// wrap past the end of the window buffer. size is 0 if the ring has no
// bytes left past skip.
func (c *Compressor) findMatch(skip int) (index, size int) {
	avail := c.ring.size - skip
	if avail <= 0 {
		return 0, 0
	}
	maxLen := c.minPatternSize + 13
	if avail < maxLen {
		maxLen = avail
	}
	w := c.window
	bestLen, bestIndex := 0, 0
	for start := 0; start < len(w); start++ {
		limit := maxLen
		if start+limit > len(w) {
			limit = len(w) - start
		}
		if limit <= bestLen {
			continue
		}
		l := 0
		for l < limit && w[start+l] == c.ring.at(skip+l) {
			l++
		}
		if l > bestLen {
			bestLen = l
			bestIndex = start
		}
	}
	return bestIndex, bestLen
}

// emitLiteral appends a literal token (a 1 bit followed by conf.Literal
// bits of b) to the bit buffer.
func (c *Compressor) emitLiteral(b byte) error {
	if !c.conf.LiteralFits(b) {
		return fmt.Errorf("tamp: literal byte %#x exceeds %d-bit width: %w", b, c.conf.Literal, ErrExcessBits)
	}
	bitBufferPush(&c.bitBuf, &c.bitPos, 1, 1)
	bitBufferPush(&c.bitBuf, &c.bitPos, uint32(b), int(c.conf.Literal))
	return nil
}

// emitBackReference appends a back-reference token (the Huffman-coded
// match-length symbol, already including its leading is-pattern 0 bit,
// followed by conf.Window bits of the absolute window offset) to the bit
// buffer.
func (c *Compressor) emitBackReference(index, size int) {
	hc := huffmanCodes[size-c.minPatternSize]
	bitBufferPush(&c.bitBuf, &c.bitPos, uint32(hc.code), hc.bits)
	bitBufferPush(&c.bitBuf, &c.bitPos, uint32(index), int(c.conf.Window))
}

// commitRing moves the oldest n bytes of the input ring into the window
// (advancing and wrapping windowPos) and drops them from the ring.
func (c *Compressor) commitRing(n int) {
	for i := 0; i < n; i++ {
		c.window[c.windowPos] = c.ring.at(i)
		c.windowPos++
		if c.windowPos == len(c.window) {
			c.windowPos = 0
		}
	}
	c.ring.advance(n)
}

// Compress feeds in into the input ring and drains tokens into out until the
// input is consumed or out fills. It returns the number of input bytes
// consumed, the number of output bytes written, and any error from
// [Compressor.Poll].
//
// Compress polls only while the input ring is full (plus once more after the
// last byte is sunk), so tokens are always chosen with the longest lookahead
// available. Up to 15 trailing bytes therefore stay buffered in the ring when
// Compress returns; [Compressor.Flush] drains them.
func (c *Compressor) Compress(in, out []byte) (consumed, written int, err error) {
	for len(in) > 0 {
		n := c.ring.push(in)
		consumed += n
		in = in[n:]
		if c.ring.size == inputRingSize {
			w, perr := c.Poll(out[written:])
			written += w
			if perr != nil {
				return consumed, written, perr
			}
		}
	}
	w, perr := c.Poll(out[written:])
	written += w
	return consumed, written, perr
}

// Flush drains the input ring completely, optionally emits a FLUSH token
// (if writeToken is true and the bit buffer holds a partial byte), and pads
// any remaining bits to a full byte. After Flush(writeToken=false), the
// stream is complete. After Flush(writeToken=true), the Compressor remains
// usable for further Sink/Compress calls.
func (c *Compressor) Flush(out []byte, writeToken bool) (written int, err error) {
	for {
		w, perr := c.Poll(out[written:])
		written += w
		if perr != nil {
			return written, perr
		}
		if c.ring.size == 0 {
			break
		}
	}

	if writeToken && c.bitPos > 0 {
		if len(out)-written < 2 {
			return written, ErrOutputFull
		}
		hc := huffmanCodes[symFlush]
		bitBufferPush(&c.bitBuf, &c.bitPos, uint32(hc.code), hc.bits)
	}

	written += partialFlushWide(&c.bitBuf, &c.bitPos, out[written:])

	if c.bitPos > 0 {
		if written >= len(out) {
			return written, ErrOutputFull
		}
		pad := (8 - c.bitPos%8) % 8
		if pad > 0 {
			bitBufferPush(&c.bitBuf, &c.bitPos, 0, pad)
		}
		written += partialFlushWide(&c.bitBuf, &c.bitPos, out[written:])
	}
	return written, nil
}

// CompressorState is the serialisable subset of a Compressor's state that
// is not already implied by the contents of its window buffer: the Conf,
// the window position, the bit buffer, and the 16-byte input ring. A
// caller that wants to persist a Compressor mid-stream (see
// internal/snapshotstore) takes a CompressorState via [Compressor.State]
// and separately snapshots the window buffer it already owns.
type CompressorState struct {
	Conf      Conf
	WindowPos int
	BitBuf    uint32
	BitPos    int
	Ring      [16]byte
	RingPos   int
	RingSize  int
}

// State returns a snapshot of c's fields described by [CompressorState].
// It does not include the lazy-matching lookahead cache: a restored
// Compressor re-evaluates lazy matching from scratch at the resume point,
// which is always safe (it can only produce a valid, decodable stream)
// even though it is not guaranteed to be bit-identical to an
// uninterrupted run.
func (c *Compressor) State() CompressorState {
	return CompressorState{
		Conf:      c.conf,
		WindowPos: c.windowPos,
		BitBuf:    c.bitBuf,
		BitPos:    c.bitPos,
		Ring:      c.ring.data,
		RingPos:   c.ring.pos,
		RingSize:  c.ring.size,
	}
}

// RestoreCompressor reconstructs a Compressor from a previously captured
// CompressorState and the window buffer contents that went with it; the
// caller is responsible for having restored window itself (see
// internal/snapshotstore for one way to do that durably).
func RestoreCompressor(state CompressorState, window []byte) (*Compressor, error) {
	if err := state.Conf.Validate(); err != nil {
		return nil, err
	}
	if len(window) != state.Conf.WindowSize() {
		return nil, fmt.Errorf("tamp: window buffer is %d bytes, want %d: %w", len(window), state.Conf.WindowSize(), ErrInvalidConf)
	}
	return &Compressor{
		conf:           state.Conf,
		window:         window,
		windowPos:      state.WindowPos,
		minPatternSize: state.Conf.MinPatternSize(),
		ring:           inputRing{data: state.Ring, pos: state.RingPos, size: state.RingSize},
		bitBuf:         state.BitBuf,
		bitPos:         state.BitPos,
	}, nil
}

// CompressAndFlush is a convenience wrapper that calls Compress followed by
// Flush. It is equivalent to, but saves a round trip compared to, calling
// the two separately.
func (c *Compressor) CompressAndFlush(in, out []byte, writeToken bool) (consumed, written int, err error) {
	consumed, written, err = c.Compress(in, out)
	if err != nil {
		return consumed, written, err
	}
	w, err := c.Flush(out[written:], writeToken)
	written += w
	return consumed, written, err
}
