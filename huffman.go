package tamp

// The match-length code is a small, fixed, prefix-free Huffman table,
// indexed by (match_size - min_pattern_size). Index 14 is reserved for
// the FLUSH sentinel, which can appear at any token boundary instead of
// a literal or a back-reference. Every code listed here already includes
// the leading "0" is-pattern bit from the wire format: writing a
// back-reference or FLUSH token never needs a separate "write the
// pattern flag" step, the code itself starts with it.
const (
	maxMatchLengthIndex = 13
	symFlush            = 14
	numHuffmanSymbols   = 15
)

type huffmanCode struct {
	code uint16 // occupies the low `bits` bits, MSB-first
	bits int
}

// huffmanCodes[i] is the code for match-length index i (match_size =
// min_pattern_size + i). huffmanCodes[symFlush] is the FLUSH code.
var huffmanCodes = [numHuffmanSymbols]huffmanCode{
	0:  {0b00, 2},
	1:  {0b011, 3},
	2:  {0b01000, 5},
	3:  {0b01011, 5},
	4:  {0b010100, 6},
	5:  {0b0100100, 7},
	6:  {0b0100110, 7},
	7:  {0b0101011, 7},
	8:  {0b01001011, 8},
	9:  {0b01010100, 8},
	10: {0b010010100, 9},
	11: {0b010010101, 9},
	12: {0b010101010, 9},
	13: {0b0100111, 7},

	symFlush: {0b010101011, 9},
}

// maxHuffmanBits is the longest code in huffmanCodes; no decode ever
// needs to peek more bits than this.
const maxHuffmanBits = 9

// huffmanDecodeTable is a flat lookup from the next maxHuffmanBits bits
// of the bit buffer (MSB-first, left-aligned in the low maxHuffmanBits
// bits of the index) to the symbol those bits begin with and how many
// bits that symbol's code actually occupies. Since the code set is
// prefix-free, every possible suffix completion of a valid code maps to
// the same symbol, so the table can simply be fanned out once at
// package init and then used as an O(1) lookup forever after: the
// pattern mirrors the static binary-tree walk used to decode adaptive
// Huffman codes elsewhere in this codebase's lineage, just flattened
// into an array instead of pointer-chasing a tree.
var huffmanDecodeTable [1 << maxHuffmanBits]struct {
	symbol int8
	bits   int8
}

func init() {
	for sym, hc := range huffmanCodes {
		if hc.bits == 0 {
			continue
		}
		pad := maxHuffmanBits - hc.bits
		base := int(hc.code) << pad
		for fill := 0; fill < 1<<pad; fill++ {
			huffmanDecodeTable[base|fill] = struct {
				symbol int8
				bits   int8
			}{int8(sym), int8(hc.bits)}
		}
	}
}

// decodeMatchLength looks up the match-length symbol (or symFlush)
// encoded by the top of bits, a 32-bit left-aligned bit buffer (valid
// bits occupy bit 31 downward, same layout as Compressor/Decompressor's
// bit_buffer), given that nbits of bits are actually known-good. It
// returns ok=false if nbits is too small to disambiguate the code that
// bits' available prefix begins; the caller must then treat this as
// "need more input" without consuming anything, so that running dry in
// the middle of a token never commits a partial decode.
func decodeMatchLength(bits uint32, nbits int) (symbol int, consumed int, ok bool) {
	if nbits > maxHuffmanBits {
		nbits = maxHuffmanBits
	}
	index := int(bits >> uint(32-maxHuffmanBits))
	entry := huffmanDecodeTable[index]
	if int(entry.bits) > nbits {
		return 0, 0, false
	}
	return int(entry.symbol), int(entry.bits), true
}
