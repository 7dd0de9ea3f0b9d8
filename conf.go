package tamp

// Conf is the 8-bit packed configuration shared by a compressor and a
// decompressor. Both sides of a stream must agree on Conf, either because
// the caller configures both directly, or because the decompressor reads
// Conf from the single header byte the compressor writes (see
// [WriteHeader] and [ReadHeader]).
type Conf struct {
	// Window is log2(window size in bytes). Valid range [8, 15], giving a
	// window of 256 to 32768 bytes.
	Window uint8

	// Literal is the number of bits per literal symbol. A literal byte v
	// is valid under this Conf iff v < 1<<Literal. Valid range [5, 8].
	Literal uint8

	// UseCustomDictionary, if true, tells both sides that the caller has
	// already initialised the window buffer and that neither side should
	// touch it before the first byte is processed. The codec does not
	// police that a custom dictionary's bytes fit within Literal bits;
	// that is the caller's responsibility.
	UseCustomDictionary bool

	// LazyMatching enables the compressor's one-byte lookahead: before
	// committing to a match, it speculatively searches one input byte
	// later and prefers the longer result when doing so is safe (see
	// [Compressor.Poll]). It is purely an encoder-side choice, never
	// transmitted on the wire and never needed by a decompressor: two
	// compressors that differ only in this field can still produce
	// streams that differ byte-for-byte, but either one decodes with
	// any decompressor configured with the same Window/Literal.
	LazyMatching bool
}

// DefaultConf is a reasonable general-purpose configuration: a 1KiB
// window and full 8-bit literals.
var DefaultConf = Conf{Window: 10, Literal: 8}

// Validate checks that c's fields are within their supported ranges. It
// does not and cannot check the reserved "more_headers" wire bit; that
// check only applies to bytes read off the wire (see [ReadHeader]).
func (c Conf) Validate() error {
	if c.Window < 8 || c.Window > 15 {
		return ErrInvalidConf
	}
	if c.Literal < 5 || c.Literal > 8 {
		return ErrInvalidConf
	}
	return nil
}

// WindowSize returns W = 2^Window, the required size in bytes of the
// window buffer this Conf demands.
func (c Conf) WindowSize() int {
	return 1 << c.Window
}

// LiteralFits reports whether v is representable as a literal symbol
// under c, i.e. v < 2^Literal.
func (c Conf) LiteralFits(v byte) bool {
	return uint16(v) < uint16(1)<<c.Literal
}

// MinPatternSize returns the smallest match length k >= 2 for which a
// back-reference token costs no more bits than k consecutive literal
// tokens, given c's Window and Literal widths: a back-reference
// costs len(huffman code) + Window bits, a literal costs 1 + Literal
// bits, and the comparison uses the cheapest Huffman code (2 bits,
// index 0, leading is-pattern bit included). The maximum match length a
// stream under c can encode is MinPatternSize()+13.
func (c Conf) MinPatternSize() int {
	// Encoding "min_pattern_size" itself always uses the shortest Huffman
	// code (2 bits total, including the leading is-pattern bit). Compare
	// that fixed cost against k*(1+Literal) for k=2; if two literals are
	// cheaper, the answer is 3.
	patternBitsAtMin := huffmanCodes[0].bits + int(c.Window)
	if patternBitsAtMin <= 2*(1+int(c.Literal)) {
		return 2
	}
	return 3
}
