// Package snapshotstore persists mid-stream compressor and decompressor
// state durably. The codec defines what a resumable snapshot must contain
// but no canonical on-disk form for it; this package supplies one, backed
// by an embedded ordered key-value store keyed by caller-supplied stream
// ID.
package snapshotstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/pebble/v2"

	"github.com/tampcodec/tamp"
)

// ErrSnapshotCorrupt is returned when a loaded snapshot's window checksum
// does not match its contents. The wire format itself carries no
// checksum (framing and integrity are the caller's problem), but a
// durable store is exactly the kind of caller that is allowed to add
// one.
var ErrSnapshotCorrupt = errors.New("tamp: snapshotstore: window checksum mismatch")

// SaveCompressor persists c's state and window contents under id,
// overwriting any existing snapshot for that ID.
func SaveCompressor(db *pebble.DB, id []byte, c *tamp.Compressor, window []byte) error {
	state := c.State()
	if len(window) != state.Conf.WindowSize() {
		return fmt.Errorf("tamp: snapshotstore: window is %d bytes, want %d", len(window), state.Conf.WindowSize())
	}
	var buf bytes.Buffer
	buf.WriteByte(tamp.WriteHeader(state.Conf))
	writeUvarint(&buf, uint64(state.WindowPos))
	writeUint32(&buf, state.BitBuf)
	writeUvarint(&buf, uint64(state.BitPos))
	buf.Write(state.Ring[:])
	writeUvarint(&buf, uint64(state.RingPos))
	writeUvarint(&buf, uint64(state.RingSize))
	writeUint64(&buf, xxhash.Sum64(window))
	buf.Write(window)
	return db.Set(id, buf.Bytes(), pebble.Sync)
}

// LoadCompressor restores a Compressor previously saved by SaveCompressor,
// writing its window contents into window (which must be the correct size
// for the snapshot's Conf). It returns [ErrSnapshotCorrupt] if the stored
// window checksum does not match the bytes read back.
func LoadCompressor(db *pebble.DB, id []byte, window []byte) (*tamp.Compressor, error) {
	value, closer, err := db.Get(id)
	if err != nil {
		return nil, fmt.Errorf("tamp: snapshotstore: get %x: %w", id, err)
	}
	defer closer.Close()

	r := bytes.NewReader(value)
	headerByte, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("tamp: snapshotstore: truncated snapshot: %w", err)
	}
	conf, err := tamp.ReadHeader(headerByte)
	if err != nil {
		return nil, err
	}
	windowPos, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("tamp: snapshotstore: truncated snapshot: %w", err)
	}
	bitBuf, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	bitPos, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("tamp: snapshotstore: truncated snapshot: %w", err)
	}
	var ring [16]byte
	if _, err := io.ReadFull(r, ring[:]); err != nil {
		return nil, fmt.Errorf("tamp: snapshotstore: truncated snapshot: %w", err)
	}
	ringPos, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("tamp: snapshotstore: truncated snapshot: %w", err)
	}
	ringSize, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("tamp: snapshotstore: truncated snapshot: %w", err)
	}
	wantSum, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	if len(window) != conf.WindowSize() {
		return nil, fmt.Errorf("tamp: snapshotstore: window is %d bytes, want %d", len(window), conf.WindowSize())
	}
	if _, err := io.ReadFull(r, window); err != nil {
		return nil, fmt.Errorf("tamp: snapshotstore: truncated snapshot: %w", err)
	}
	if xxhash.Sum64(window) != wantSum {
		return nil, ErrSnapshotCorrupt
	}

	state := tamp.CompressorState{
		Conf:      conf,
		WindowPos: int(windowPos),
		BitBuf:    bitBuf,
		BitPos:    int(bitPos),
		Ring:      ring,
		RingPos:   int(ringPos),
		RingSize:  int(ringSize),
	}
	return tamp.RestoreCompressor(state, window)
}

// SaveDecompressor persists d's state and window contents under id,
// overwriting any existing snapshot for that ID. windowBitsMax is the
// buffer's declared physical capacity, the same value originally passed
// to [tamp.NewDecompressor]; it is stored alongside the state because,
// unlike a Compressor's window, a Decompressor's window size is not
// always equal to its configured Conf.WindowSize() (an unconfigured
// Decompressor has no Conf yet at all).
func SaveDecompressor(db *pebble.DB, id []byte, d *tamp.Decompressor, window []byte, windowBitsMax uint8) error {
	state := d.State()
	if len(window) != 1<<windowBitsMax {
		return fmt.Errorf("tamp: snapshotstore: window is %d bytes, want %d", len(window), 1<<windowBitsMax)
	}
	var buf bytes.Buffer
	buf.WriteByte(windowBitsMax)
	buf.WriteByte(boolByte(state.Configured))
	buf.WriteByte(tamp.WriteHeader(state.Conf))
	writeUvarint(&buf, uint64(state.WindowPos))
	writeUint32(&buf, state.BitBuf)
	writeUvarint(&buf, uint64(state.BitPos))
	buf.WriteByte(boolByte(state.MidPattern))
	buf.Write(state.Pending[:])
	writeUvarint(&buf, uint64(state.PendingSize))
	writeUvarint(&buf, uint64(state.SkipBytes))
	writeUint64(&buf, xxhash.Sum64(window))
	buf.Write(window)
	return db.Set(id, buf.Bytes(), pebble.Sync)
}

// LoadDecompressor restores a Decompressor previously saved by
// SaveDecompressor, writing its window contents into window (which must
// match the snapshot's declared windowBitsMax capacity). It returns
// [ErrSnapshotCorrupt] if the stored window checksum does not match the
// bytes read back.
func LoadDecompressor(db *pebble.DB, id []byte, window []byte) (*tamp.Decompressor, error) {
	value, closer, err := db.Get(id)
	if err != nil {
		return nil, fmt.Errorf("tamp: snapshotstore: get %x: %w", id, err)
	}
	defer closer.Close()

	r := bytes.NewReader(value)
	windowBitsMax, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("tamp: snapshotstore: truncated snapshot: %w", err)
	}
	configuredByte, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("tamp: snapshotstore: truncated snapshot: %w", err)
	}
	headerByte, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("tamp: snapshotstore: truncated snapshot: %w", err)
	}
	var conf tamp.Conf
	if configuredByte != 0 {
		conf, err = tamp.ReadHeader(headerByte)
		if err != nil {
			return nil, err
		}
	}
	windowPos, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("tamp: snapshotstore: truncated snapshot: %w", err)
	}
	bitBuf, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	bitPos, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("tamp: snapshotstore: truncated snapshot: %w", err)
	}
	midPatternByte, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("tamp: snapshotstore: truncated snapshot: %w", err)
	}
	var pending [16]byte
	if _, err := io.ReadFull(r, pending[:]); err != nil {
		return nil, fmt.Errorf("tamp: snapshotstore: truncated snapshot: %w", err)
	}
	pendingSize, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("tamp: snapshotstore: truncated snapshot: %w", err)
	}
	skipBytes, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("tamp: snapshotstore: truncated snapshot: %w", err)
	}
	wantSum, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	if len(window) != 1<<windowBitsMax {
		return nil, fmt.Errorf("tamp: snapshotstore: window is %d bytes, want %d", len(window), 1<<windowBitsMax)
	}
	if _, err := io.ReadFull(r, window); err != nil {
		return nil, fmt.Errorf("tamp: snapshotstore: truncated snapshot: %w", err)
	}
	if xxhash.Sum64(window) != wantSum {
		return nil, ErrSnapshotCorrupt
	}

	state := tamp.DecompressorState{
		Conf:        conf,
		Configured:  configuredByte != 0,
		WindowPos:   int(windowPos),
		BitBuf:      bitBuf,
		BitPos:      int(bitPos),
		MidPattern:  midPatternByte != 0,
		Pending:     pending,
		PendingSize: int(pendingSize),
		SkipBytes:   int(skipBytes),
	}
	return tamp.RestoreDecompressor(state, window, windowBitsMax)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func readUint32(r io.Reader) (uint32, error) {
	var tmp [4]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, fmt.Errorf("tamp: snapshotstore: truncated snapshot: %w", err)
	}
	return binary.BigEndian.Uint32(tmp[:]), nil
}

func readUint64(r io.Reader) (uint64, error) {
	var tmp [8]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, fmt.Errorf("tamp: snapshotstore: truncated snapshot: %w", err)
	}
	return binary.BigEndian.Uint64(tmp[:]), nil
}
