package tamp

// inputRingSize is the fixed capacity of the compressor's staging ring. The
// match search needs at most min_pattern_size+13 bytes of lookahead (15 with
// the smallest min_pattern_size), so 16 always leaves room for the extra
// byte the lazy-match lookahead peeks at.
const inputRingSize = 16

// inputRing is the compressor's caller-to-codec staging buffer: Sink
// appends to it, Poll consumes from the front. Indexing wraps modulo
// inputRingSize so no data ever needs to be memmove'd to make room.
type inputRing struct {
	data [inputRingSize]byte
	pos  int // index of the oldest buffered byte
	size int // number of buffered bytes, 0..inputRingSize
}

// free reports how many more bytes sink can accept right now.
func (r *inputRing) free() int {
	return inputRingSize - r.size
}

// push appends as many bytes of p as fit, returning the count consumed.
func (r *inputRing) push(p []byte) int {
	n := len(p)
	if f := r.free(); n > f {
		n = f
	}
	for i := 0; i < n; i++ {
		r.data[(r.pos+r.size+i)%inputRingSize] = p[i]
	}
	r.size += n
	return n
}

// at returns the i-th pending byte, 0-indexed from the oldest.
func (r *inputRing) at(i int) byte {
	return r.data[(r.pos+i)%inputRingSize]
}

// advance drops the oldest n buffered bytes (they have been consumed
// into a literal or pattern token and appended to the window already).
func (r *inputRing) advance(n int) {
	r.pos = (r.pos + n) % inputRingSize
	r.size -= n
}
