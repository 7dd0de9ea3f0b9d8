// Package windowpool caches pre-initialised tamp dictionary windows keyed
// by window size, so a process that opens many short-lived compressor or
// decompressor instances against the same configuration does not re-run
// the deterministic xorshift32 fill every time.
package windowpool

import (
	"hash/maphash"
	"sync"
	"unsafe"

	"github.com/dgryski/go-tinylfu"

	"github.com/tampcodec/tamp"
)

// Pool is safe for concurrent use by multiple goroutines. Each leased
// buffer belongs to exactly one caller at a time; the caller must not hand
// the same buffer to two codec instances concurrently (tamp itself assumes
// "one instance, one thread, one window").
type Pool struct {
	mu       sync.Mutex
	bufpools map[uint8]*sync.Pool
	template *tinylfu.T[uint8, []byte]
}

// New creates a Pool whose dictionary-template cache admits up to
// cacheSize distinct window sizes (there are at most 8, [8,15], so a small
// cacheSize already covers every Conf.Window value in practice).
func New(cacheSize int) *Pool {
	return &Pool{
		bufpools: make(map[uint8]*sync.Pool),
		template: tinylfu.New[uint8, []byte](cacheSize, cacheSize*10, windowBitsHasher, tinylfu.OnEvict(func(uint8, []byte) {})),
	}
}

var seed = maphash.MakeSeed()

func windowBitsHasher(k uint8) uint64 {
	return maphash.Comparable(seed, k)
}

// Lease returns a 1<<windowBits buffer already filled with the default
// dictionary, ready to pass to [tamp.NewCompressor] or
// [tamp.NewDecompressor] with Conf.UseCustomDictionary left false. The
// underlying dictionary fill is computed at most once per window size
// while it stays admitted in the cache; the returned buffer itself may
// come from a per-size free list rather than a fresh allocation.
func (p *Pool) Lease(windowBits uint8) []byte {
	size := 1 << windowBits
	buf := p.getBuf(windowBits, size)
	copy(buf, p.templateFor(windowBits, size))
	return buf
}

// Return gives a leased buffer back to the pool for reuse. Only buffers
// from a default-dictionary Lease should be returned here: a custom
// dictionary's contents are caller data, not derivable from the window
// size alone, so pooling them would leak one caller's dictionary into
// another caller's stream.
func (p *Pool) Return(windowBits uint8, buf []byte) {
	if len(buf) != 1<<windowBits {
		return
	}
	p.mu.Lock()
	bp := p.bufpools[windowBits]
	p.mu.Unlock()
	if bp == nil {
		return
	}
	bp.Put(unsafe.SliceData(buf))
}

func (p *Pool) getBuf(windowBits uint8, size int) []byte {
	p.mu.Lock()
	bp, ok := p.bufpools[windowBits]
	if !ok {
		bp = &sync.Pool{New: func() any { return unsafe.SliceData(make([]byte, size)) }}
		p.bufpools[windowBits] = bp
	}
	p.mu.Unlock()
	return unsafe.Slice(bp.Get().(*byte), size)
}

func (p *Pool) templateFor(windowBits uint8, size int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if tpl, ok := p.template.Get(windowBits); ok {
		return tpl
	}
	tpl := make([]byte, size)
	tamp.InitializeDictionary(tpl)
	p.template.Add(windowBits, tpl)
	return tpl
}
