package tamp

import "fmt"

// Decompressor is a streaming decoder for the wire format [Compressor]
// produces. It never allocates after construction. The zero value is not
// usable; construct one with [NewDecompressor].
//
// A Decompressor is not safe for concurrent use.
type Decompressor struct {
	window        []byte
	windowBitsMax uint8

	conf           Conf
	configured     bool
	windowSize     int
	windowPos      int
	minPatternSize int

	bitBuf uint32
	bitPos int

	// In-flight back-reference copy, resumable across OutputFull returns.
	// pending holds the match's source bytes, read from the window once
	// (before any window mutation) so that a copy interrupted mid-way
	// never has to re-read a region the copy's own completion may have
	// since overwritten.
	midPattern  bool
	pending     [16]byte
	pendingSize int
	skipBytes   int
}

// NewDecompressor validates windowBitsMax (the physical capacity of
// window, in log2 bytes) and wraps window for use as the sliding-window
// buffer. If conf is non-nil, the Decompressor is fully configured
// immediately (conf is validated, and window is filled with the
// deterministic dictionary unless conf.UseCustomDictionary is set). If
// conf is nil, the first call to [Decompressor.Decompress] reads and
// validates the header byte itself.
func NewDecompressor(conf *Conf, window []byte, windowBitsMax uint8) (*Decompressor, error) {
	if windowBitsMax < 8 || windowBitsMax > 15 {
		return nil, ErrInvalidConf
	}
	if len(window) != 1<<windowBitsMax {
		return nil, fmt.Errorf("tamp: window buffer is %d bytes, want %d: %w", len(window), 1<<windowBitsMax, ErrInvalidConf)
	}
	d := &Decompressor{window: window, windowBitsMax: windowBitsMax}
	if conf != nil {
		if err := d.configure(*conf); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Decompressor) configure(conf Conf) error {
	if err := conf.Validate(); err != nil {
		return err
	}
	if conf.Window > d.windowBitsMax {
		return ErrInvalidConf
	}
	d.conf = conf
	d.windowSize = conf.WindowSize()
	d.minPatternSize = conf.MinPatternSize()
	if !conf.UseCustomDictionary {
		InitializeDictionary(d.window[:d.windowSize])
	}
	d.configured = true
	return nil
}

// DecompressorState is the serialisable subset of a Decompressor's state,
// analogous to [CompressorState] on the encode side: everything needed to
// resume decoding against a separately-persisted window buffer, including
// the in-flight back-reference copy (mid_pattern/pending/skip_bytes) a
// snapshot taken between an OutputFull return and its resuming call would
// otherwise lose.
type DecompressorState struct {
	Conf        Conf
	Configured  bool
	WindowPos   int
	BitBuf      uint32
	BitPos      int
	MidPattern  bool
	Pending     [16]byte
	PendingSize int
	SkipBytes   int
}

// State returns a snapshot of d's fields described by [DecompressorState].
func (d *Decompressor) State() DecompressorState {
	return DecompressorState{
		Conf:        d.conf,
		Configured:  d.configured,
		WindowPos:   d.windowPos,
		BitBuf:      d.bitBuf,
		BitPos:      d.bitPos,
		MidPattern:  d.midPattern,
		Pending:     d.pending,
		PendingSize: d.pendingSize,
		SkipBytes:   d.skipBytes,
	}
}

// RestoreDecompressor reconstructs a Decompressor from a previously
// captured DecompressorState, a window buffer of windowBitsMax capacity
// already restored to match, and windowBitsMax itself (the buffer's
// declared physical capacity, which State does not carry since it is a
// property of the buffer, not the stream).
func RestoreDecompressor(state DecompressorState, window []byte, windowBitsMax uint8) (*Decompressor, error) {
	if windowBitsMax < 8 || windowBitsMax > 15 {
		return nil, ErrInvalidConf
	}
	if len(window) != 1<<windowBitsMax {
		return nil, fmt.Errorf("tamp: window buffer is %d bytes, want %d: %w", len(window), 1<<windowBitsMax, ErrInvalidConf)
	}
	d := &Decompressor{
		window:        window,
		windowBitsMax: windowBitsMax,
		configured:    state.Configured,
		windowPos:     state.WindowPos,
		bitBuf:        state.BitBuf,
		bitPos:        state.BitPos,
		midPattern:    state.MidPattern,
		pending:       state.Pending,
		pendingSize:   state.PendingSize,
		skipBytes:     state.SkipBytes,
	}
	if state.Configured {
		if err := state.Conf.Validate(); err != nil {
			return nil, err
		}
		if state.Conf.Window > windowBitsMax {
			return nil, ErrInvalidConf
		}
		d.conf = state.Conf
		d.windowSize = state.Conf.WindowSize()
		d.minPatternSize = state.Conf.MinPatternSize()
	}
	return d, nil
}

func (d *Decompressor) refill(in *[]byte) {
	for d.bitPos <= 24 && len(*in) > 0 {
		d.bitBuf |= uint32((*in)[0]) << uint(24-d.bitPos)
		*in = (*in)[1:]
		d.bitPos += 8
	}
}

func (d *Decompressor) appendWindow(b byte) {
	d.window[d.windowPos] = b
	d.windowPos++
	if d.windowPos == d.windowSize {
		d.windowPos = 0
	}
}

// Decompress writes as much plaintext as possible from in to out. On a
// first call against a Decompressor constructed with a nil Conf, it reads
// the header byte from in before decoding any tokens.
//
// A nil error means in was consumed entirely and the bit buffer is empty:
// every provided bit has been decoded. [ErrInputExhausted] means in was
// consumed but the buffered bits do not form a complete token (no partial
// decode is committed; at the end of a stream these are the final byte's
// zero padding). [ErrOutputFull] means out ran out of room (an in-flight
// back-reference copy resumes on the next call via internal skip-byte
// bookkeeping). [ErrOob] and [ErrInvalidConf] are fatal: the instance must
// be discarded.
func (d *Decompressor) Decompress(in []byte, out []byte) (consumed, written int, err error) {
	inLen := len(in)
	defer func() { consumed = inLen - len(in) }()

	if !d.configured {
		if len(in) < 1 {
			return 0, 0, ErrInputExhausted
		}
		conf, herr := ReadHeader(in[0])
		if herr != nil {
			return 0, 0, herr
		}
		if err := d.configure(conf); err != nil {
			return 0, 0, err
		}
		in = in[1:]
	}

	for {
		if d.midPattern {
			room := len(out) - written
			n := d.pendingSize - d.skipBytes
			if n > room {
				n = room
			}
			if n > 0 {
				copy(out[written:written+n], d.pending[d.skipBytes:d.skipBytes+n])
				written += n
				d.skipBytes += n
			}
			if d.skipBytes < d.pendingSize {
				return 0, written, ErrOutputFull
			}
			for i := 0; i < d.pendingSize; i++ {
				d.appendWindow(d.pending[i])
			}
			d.midPattern = false
			d.skipBytes = 0
			continue
		}

		d.refill(&in)
		if d.bitPos == 0 {
			return 0, written, nil
		}
		if written == len(out) {
			return 0, written, ErrOutputFull
		}

		if d.bitBuf>>31 == 1 {
			need := 1 + int(d.conf.Literal)
			if d.bitPos < need {
				return 0, written, ErrInputExhausted
			}
			v := byte((d.bitBuf << 1) >> uint(32-int(d.conf.Literal)))
			d.bitBuf <<= uint(need)
			d.bitPos -= need
			out[written] = v
			written++
			d.appendWindow(v)
			continue
		}

		avail := d.bitPos
		if avail > maxHuffmanBits {
			avail = maxHuffmanBits
		}
		sym, symBits, ok := decodeMatchLength(d.bitBuf, avail)
		if !ok {
			return 0, written, ErrInputExhausted
		}

		if sym == symFlush {
			d.bitBuf <<= uint(symBits)
			d.bitPos -= symBits
			drop := d.bitPos % 8
			d.bitBuf <<= uint(drop)
			d.bitPos -= drop
			continue
		}

		matchSize := sym + d.minPatternSize
		need := symBits + int(d.conf.Window)
		if d.bitPos < need {
			return 0, written, ErrInputExhausted
		}
		offsetBits := int(d.conf.Window)
		offset := int((d.bitBuf << uint(symBits)) >> uint(32-offsetBits))
		if offset >= d.windowSize || offset+matchSize > d.windowSize {
			return 0, written, ErrOob
		}
		d.bitBuf <<= uint(need)
		d.bitPos -= need

		copy(d.pending[:matchSize], d.window[offset:offset+matchSize])
		d.pendingSize = matchSize
		d.skipBytes = 0
		d.midPattern = true
	}
}
