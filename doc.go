// Copyright (c) tamp-go contributors
// Licensed under the MIT license

// Package tamp implements the Tamp compression codec: a lossless,
// byte-oriented LZSS-plus-static-Huffman codec designed for targets with a
// few KB of RAM.
//
// The codec core never allocates on the heap. Callers supply a sliding
// window buffer (256 to 32768 bytes) that lives for the lifetime of a
// [Compressor] or [Decompressor], and drive the state machines with plain
// byte slices: [Compressor.Sink], [Compressor.Poll], [Compressor.Compress]
// and [Compressor.Flush] on the encode side; [ReadHeader] and
// [Decompressor.Decompress] on the decode side. Neither side allocates,
// retries, rewinds, or touches a clock, a file, or a lock: everything
// happens synchronously on the calling goroutine, and a single instance
// must never be used from more than one goroutine at a time.
//
// The package does not implement random access, framing, checksumming, or
// concurrency: those are the caller's problem, because the wire format
// has no room for them. A complete application built on top of this
// package (CLI tooling, a snapshot store, a seekable stream cache) lives
// in sibling packages under cmd/ and internal/, and talks to this package
// exclusively through the operations above.
package tamp
