// Package binsink writes flow rows as length-prefixed, lz4-compressed
// binary records matching the declared schema tree (§6 "Binary rows").
// The compression codec is grounded on the teacher's own native
// (non-cgo) lz4 encoder (pkg/goDB/encoder/lz4/lz4_native.go), which
// compresses whole blocks with pierrec/lz4/v4's CompressBlockHC /
// UncompressBlock rather than the streaming frame format.
package binsink

import (
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// dependency note: Compress uses CompressBlockHC, matching the teacher's
// lz4_native.go exactly (CompressBlockHC over the plain CompressBlock),
// since rows are written once and read rarely, favoring ratio over the
// extra compression-side CPU.

const defaultCompressionLevel = 4

// Encoder compresses/decompresses one row's serialized bytes at a time.
// Mirrors the teacher's lz4.Encoder: a reusable scratch buffer avoids an
// allocation per row in the common case.
type Encoder struct {
	level lz4.CompressionLevel
	buf   []byte
}

// NewEncoder creates an Encoder at the teacher's default compression
// level (chosen there for compression speed over ratio).
func NewEncoder() *Encoder {
	return &Encoder{level: lz4.CompressionLevel(defaultCompressionLevel)}
}

// Compress compresses data into e's reused scratch buffer and returns the
// compressed bytes. The returned slice is only valid until the next call
// to Compress.
func (e *Encoder) Compress(data []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(data))
	if cap(e.buf) < bound {
		e.buf = make([]byte, bound)
	}
	e.buf = e.buf[:bound]

	n, err := lz4.CompressBlockHC(data, e.buf, e.level, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("binsink: lz4 compression failed: %w", err)
	}
	if n == 0 {
		// incompressible input: lz4.CompressBlock returns n == 0 rather
		// than expanding it, so the row is stored as a raw (uncompressed)
		// block with n == len(data) recorded by the caller.
		return data, nil
	}
	return e.buf[:n], nil
}

// Decompress decompresses src (compressedLen bytes) into a buffer of
// exactly decompressedLen bytes.
func Decompress(src []byte, decompressedLen int) ([]byte, error) {
	out := make([]byte, decompressedLen)
	n, err := lz4.UncompressBlock(src, out)
	if err != nil {
		return nil, fmt.Errorf("binsink: lz4 decompression failed: %w", err)
	}
	if n != decompressedLen {
		return nil, errors.New("binsink: decompressed length mismatch")
	}
	return out, nil
}
