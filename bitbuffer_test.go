package tamp

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestBitBufferPushAndFlush(t *testing.T) {
	var buf uint32
	var pos int
	bitBufferPush(&buf, &pos, 0b1, 1)
	bitBufferPush(&buf, &pos, 0b1010, 4)
	bitBufferPush(&buf, &pos, 0b1, 1)
	bitBufferPush(&buf, &pos, 0b10, 2)
	// bits so far: 1 1010 1 10 = 11010110, pos=8
	out := make([]byte, 1)
	n := partialFlushNarrow(&buf, &pos, out)
	if n != 1 || out[0] != 0b11010110 {
		t.Fatalf("got n=%d out=%#08b, want 1, 0b11010110", n, out[0])
	}
	if pos != 0 {
		t.Fatalf("pos = %d, want 0", pos)
	}
}

// TestPartialFlushVariantsAgree pins the size-optimised and
// speed-optimised partial-flush implementations as behaviourally
// identical over 2000 random bit buffer contents (0-31 bits) and output
// capacities (0-5 bytes).
func TestPartialFlushVariantsAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 2000; trial++ {
		var bufA, bufB uint32
		var posA, posB int
		nbits := rng.Intn(32)
		var v uint32
		for i := 0; i < nbits; i++ {
			v = v<<1 | uint32(rng.Intn(2))
		}
		bitBufferPush(&bufA, &posA, v, nbits)
		bitBufferPush(&bufB, &posB, v, nbits)

		capacity := rng.Intn(6)
		outA := make([]byte, capacity)
		outB := make([]byte, capacity)

		nA := partialFlushNarrow(&bufA, &posA, outA)
		nB := partialFlushWide(&bufB, &posB, outB)

		if nA != nB || !bytes.Equal(outA[:nA], outB[:nB]) || bufA != bufB || posA != posB {
			t.Fatalf("trial %d: narrow(n=%d,out=%v,buf=%#x,pos=%d) != wide(n=%d,out=%v,buf=%#x,pos=%d)",
				trial, nA, outA[:nA], bufA, posA, nB, outB[:nB], bufB, posB)
		}
	}
}

func TestPartialFlushLeavesFewerThan8Bits(t *testing.T) {
	var buf uint32
	var pos int
	bitBufferPush(&buf, &pos, 0x1FF, 9)
	out := make([]byte, 4)
	partialFlushWide(&buf, &pos, out)
	if pos >= 8 {
		t.Fatalf("pos = %d after flush, want < 8", pos)
	}
}
