package tamp

// bitBufferPush appends the low nbits bits of v (MSB-first) to buf, which
// holds pos meaningful bits left-aligned at its high end (bit 31 down to
// bit 32-pos); unused low bits are always zero. The caller must ensure
// pos+nbits <= 32; the compressor guarantees this by partial-flushing
// whole bytes out of the buffer before emitting every token.
func bitBufferPush(buf *uint32, pos *int, v uint32, nbits int) {
	if nbits == 0 {
		return
	}
	v &= (1 << uint(nbits)) - 1
	*buf |= v << uint(32-*pos-nbits)
	*pos += nbits
}

// partialFlushNarrow removes whole bytes from the high end of buf into
// out, one byte at a time. This is the size-optimised variant: minimal
// code, no lookahead. It writes no more bytes than fit in out; when out
// has room for every whole byte, at most 7 bits stay buffered.
func partialFlushNarrow(buf *uint32, pos *int, out []byte) int {
	n := 0
	for *pos >= 8 && n < len(out) {
		out[n] = byte(*buf >> 24)
		*buf <<= 8
		*pos -= 8
		n++
	}
	return n
}

// partialFlushWide removes whole bytes from the high end of buf into
// out, computing how many whole bytes are available up front and
// copying them in one pass instead of shifting one byte at a time. This
// is the speed-optimised variant used on the compressor's steady-state
// path; it must always agree with [partialFlushNarrow] byte for byte
// (pinned by TestPartialFlushVariantsAgree).
func partialFlushWide(buf *uint32, pos *int, out []byte) int {
	avail := *pos / 8
	if avail > len(out) {
		avail = len(out)
	}
	if avail == 0 {
		return 0
	}
	var tmp [4]byte
	tmp[0] = byte(*buf >> 24)
	tmp[1] = byte(*buf >> 16)
	tmp[2] = byte(*buf >> 8)
	tmp[3] = byte(*buf)
	copy(out, tmp[:avail])
	*buf <<= uint(8 * avail)
	*pos -= 8 * avail
	return avail
}
