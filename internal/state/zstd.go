package state

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// blockEncoder/blockDecoder wrap klauspost/compress's zstd codec for
// whole-blob compression, grounded on goDB/encoder/zstd/zstd_native.go's
// lazily-initialized *zstd.Encoder/*zstd.Decoder pair.
type blockEncoder struct {
	enc *zstd.Encoder
}

func newBlockEncoder() *blockEncoder { return &blockEncoder{} }

func (e *blockEncoder) compress(data []byte) ([]byte, error) {
	if e.enc == nil {
		var err error
		if e.enc, err = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1)); err != nil {
			return nil, fmt.Errorf("state: zstd encoder init failed: %w", err)
		}
	}
	return e.enc.EncodeAll(data, nil), nil
}

func (e *blockEncoder) Close() error {
	if e.enc == nil {
		return nil
	}
	return e.enc.Close()
}

type blockDecoder struct {
	dec *zstd.Decoder
}

func newBlockDecoder() *blockDecoder { return &blockDecoder{} }

func (d *blockDecoder) decompress(src []byte, decompressedLen int) ([]byte, error) {
	if d.dec == nil {
		var err error
		if d.dec, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1)); err != nil {
			return nil, fmt.Errorf("state: zstd decoder init failed: %w", err)
		}
	}
	out, err := d.dec.DecodeAll(src, make([]byte, 0, decompressedLen))
	if err != nil {
		return nil, fmt.Errorf("state: zstd decompression failed: %w", err)
	}
	if len(out) != decompressedLen {
		return nil, errors.New("state: decompressed length mismatch")
	}
	return out, nil
}

func (d *blockDecoder) Close() {
	if d.dec != nil {
		d.dec.Close()
	}
}