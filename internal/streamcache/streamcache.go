// Package streamcache provides pseudo-random access to the plaintext of a
// tamp-compressed stream. Tamp itself deliberately has no framing and no
// random access, so re-entering the plaintext at an arbitrary offset
// normally means decoding from byte zero. This package avoids that by
// persisting full decoder snapshots (state plus window, via
// internal/snapshotstore) at fixed plaintext intervals while it decodes
// forward; a read behind the live decoder restores the nearest snapshot
// at or before the requested offset and decodes only the remainder.
package streamcache

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cockroachdb/pebble/v2"

	"github.com/tampcodec/tamp"
	"github.com/tampcodec/tamp/internal/snapshotstore"
)

// ErrCheckpointLost is returned when a decoder snapshot this reader
// previously persisted can no longer be restored. This should never
// happen while the snapshot store stays intact; it guards against the
// store being cleared or corrupted underneath a live reader.
var ErrCheckpointLost = errors.New("tamp: streamcache: decoder checkpoint lost")

// checkpointEvery is the plaintext distance between persisted decoder
// snapshots. Smaller values cut the worst-case re-decode distance at the
// cost of more window-sized records in the store.
const checkpointEvery = 64 * 1024

// mark locates one persisted snapshot: the plaintext offset the restored
// decoder resumes at, and where in the compressed stream its next input
// byte lives.
type mark struct {
	plainOff int64
	compOff  int64
}

// ReaderAt is a random-access reader over the plaintext of a single tamp
// stream. It is safe for concurrent use; reads are serialised internally
// because they all share one live decoder and one window buffer.
type ReaderAt struct {
	mu   sync.Mutex
	src  io.ReaderAt
	db   *pebble.DB
	name string
	conf tamp.Conf
	size int64

	// marks is ascending by plainOff; marks[0] is the stream start.
	marks []mark

	// Live decoder, reused as long as reads keep moving forward.
	dec      *tamp.Decompressor
	window   []byte
	plainOff int64
	compOff  int64

	inBuf   [4096]byte
	scratch [4096]byte
}

// New wraps compressed, a tamp stream whose header occupies the first
// headerLen bytes (normally 1, see [tamp.WriteHeader]), as a
// random-access plaintext reader. Decoder snapshots are persisted in db
// under keys derived from name, so distinct streams sharing one store
// must use distinct names. plaintextSize must be supplied by the caller:
// tamp carries no length field, so this is exactly the same information
// an HTTP range-request server already tracks as its own Content-Length.
func New(compressed io.ReaderAt, headerLen int64, conf tamp.Conf, plaintextSize int64, db *pebble.DB, name string) (*ReaderAt, error) {
	window := make([]byte, conf.WindowSize())
	dec, err := tamp.NewDecompressor(&conf, window, conf.Window)
	if err != nil {
		return nil, err
	}
	r := &ReaderAt{
		src:      compressed,
		db:       db,
		name:     name,
		conf:     conf,
		size:     plaintextSize,
		dec:      dec,
		window:   window,
		compOff:  headerLen,
	}
	if err := snapshotstore.SaveDecompressor(db, r.key(0), dec, window, conf.Window); err != nil {
		return nil, fmt.Errorf("tamp: streamcache: persisting start snapshot: %w", err)
	}
	r.marks = []mark{{plainOff: 0, compOff: headerLen}}
	return r, nil
}

// Size returns the plaintext size supplied to New.
func (r *ReaderAt) Size() int64 {
	return r.size
}

func (r *ReaderAt) key(plainOff int64) []byte {
	return fmt.Appendf(nil, "%s/ckpt/%d", r.name, plainOff)
}

// ReadAt implements io.ReaderAt. A read at or past the live decoder's
// position decodes forward from where the decoder already is; a read
// behind it restores the nearest persisted snapshot at or before off
// first. Either way the decoder drops a fresh snapshot into the store
// each time it crosses another checkpointEvery bytes of plaintext, so
// the re-decode distance for any later backward read stays bounded.
func (r *ReaderAt) ReadAt(p []byte, off int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if off >= r.size {
		return 0, io.EOF
	}
	if off+int64(len(p)) > r.size {
		p = p[:r.size-off]
	}

	if off < r.plainOff {
		if err := r.rewind(off); err != nil {
			return 0, err
		}
	}

	written := 0
	for written < len(p) {
		// While still behind off, decode into scratch and discard;
		// afterwards decode straight into the caller's buffer.
		skip := off - r.plainOff
		var dst []byte
		if skip > 0 {
			dst = r.scratch[:min(skip, int64(len(r.scratch)))]
		} else {
			dst = p[written:]
		}

		n, rerr := r.src.ReadAt(r.inBuf[:], r.compOff)
		consumed, w, derr := r.dec.Decompress(r.inBuf[:n], dst)
		r.compOff += int64(consumed)
		r.plainOff += int64(w)
		if skip <= 0 {
			written += w
		}
		r.maybeCheckpoint()

		switch {
		case errors.Is(derr, tamp.ErrOutputFull):
			// dst filled; loop to hand the decoder a fresh one.
		case derr == nil, errors.Is(derr, tamp.ErrInputExhausted):
			if n == 0 {
				if rerr != nil && !errors.Is(rerr, io.EOF) {
					return written, rerr
				}
				return written, io.EOF
			}
		default:
			return written, derr
		}
	}
	return written, nil
}

// rewind replaces the live decoder with the most recent persisted
// snapshot at or before off.
func (r *ReaderAt) rewind(off int64) error {
	i := len(r.marks) - 1
	for i > 0 && r.marks[i].plainOff > off {
		i--
	}
	m := r.marks[i]
	dec, err := snapshotstore.LoadDecompressor(r.db, r.key(m.plainOff), r.window)
	if err != nil {
		return fmt.Errorf("tamp: streamcache: restoring snapshot at %d: %w: %w", m.plainOff, err, ErrCheckpointLost)
	}
	r.dec = dec
	r.plainOff = m.plainOff
	r.compOff = m.compOff
	return nil
}

// maybeCheckpoint persists the live decoder once it has moved another
// checkpointEvery bytes past the newest mark. A failed write is dropped
// rather than surfaced: the stream still reads correctly, later backward
// reads just resume from an older snapshot.
func (r *ReaderAt) maybeCheckpoint() {
	last := r.marks[len(r.marks)-1]
	if r.plainOff-last.plainOff < checkpointEvery {
		return
	}
	if err := snapshotstore.SaveDecompressor(r.db, r.key(r.plainOff), r.dec, r.window, r.conf.Window); err != nil {
		return
	}
	r.marks = append(r.marks, mark{plainOff: r.plainOff, compOff: r.compOff})
}
