package tamp

// dictionaryAlphabet is the fixed 16-byte alphabet the deterministic
// dictionary initialiser draws from, indexed by a 4-bit nibble. Order is
// part of the wire format: changing it would desynchronise every encoder
// and decoder built against this package.
var dictionaryAlphabet = [16]byte{
	' ', '\x00', '0', 'e', 'i', '>', 't', 'o', '<', 'a', 'n', 's', '\n', 'r', '/', '.',
}

// dictionarySeed is the fixed xorshift32 seed, 3758097560 decimal.
const dictionarySeed uint32 = 3758097560

// xorshift32 advances the xorshift32 generator by one step. The three
// shift amounts and their order are part of the wire format: the
// compressor and decompressor must reconstruct bit-identical dictionary
// content from the same Conf.
func xorshift32(s uint32) uint32 {
	s ^= s << 13
	s ^= s >> 17
	s ^= s << 5
	return s
}

// InitializeDictionary fills window with the deterministic pseudo-random
// sequence described by the wire format: an xorshift32 generator seeded
// at a fixed constant, each 32-bit output consumed as eight 4-bit
// nibbles (low nibble first), each nibble mapped through
// [dictionaryAlphabet].
//
// len(window) must be a multiple of 8 (true for every W = 2^n, n in
// [8, 15]); InitializeDictionary panics otherwise, since a caller that
// got the window size wrong has a bug that corrupting its buffer
// silently would only hide. A zero-length window is left as it is.
//
// [NewCompressor], and [Decompressor] when it is configured (in
// [NewDecompressor] or on the first [Decompressor.Decompress] call), call
// this for the caller unless Conf.UseCustomDictionary is set, in which case the
// caller is responsible for the window's initial contents and this
// function is never called.
func InitializeDictionary(window []byte) {
	if len(window) == 0 {
		return
	}
	if len(window)%8 != 0 {
		panic("tamp: window length must be a multiple of 8")
	}

	s := dictionarySeed
	for i := 0; i < len(window); i += 8 {
		s = xorshift32(s)
		v := s
		for j := 0; j < 8; j++ {
			window[i+j] = dictionaryAlphabet[v&0xF]
			v >>= 4
		}
	}
}
