package binsink

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/lavanyaayna9/flowmeter/internal/sink/schema"
)

// frameMagic tags the start of every on-wire record so a reader can
// resynchronize after a corrupted frame instead of silently
// misinterpreting the next bytes as a length prefix.
const frameMagic = 0x464c4d31 // "FLM1"

// Sink writes one length-prefixed, lz4-compressed record per flow
// (§6 "Binary rows": "length-prefixed records matching the declared
// schema"). Each record's on-wire shape is:
//
//	magic uint32 | decompressedLen uint32 | compressedLen uint32 | compressed bytes
type Sink struct {
	w   *bufio.Writer
	enc *Encoder
	row []byte // reused row-serialization scratch buffer
}

// New wraps w.
func New(w io.Writer) *Sink {
	return &Sink{w: bufio.NewWriter(w), enc: NewEncoder()}
}

// WriteRow serializes buf's values in order and writes the compressed,
// framed record.
func (s *Sink) WriteRow(buf *schema.Buffer) error {
	s.row = appendBuffer(s.row[:0], buf)

	compressed, err := s.enc.Compress(s.row)
	if err != nil {
		return err
	}

	var hdr [12]byte
	binary.BigEndian.PutUint32(hdr[0:4], frameMagic)
	binary.BigEndian.PutUint32(hdr[4:8], uint32(len(s.row)))
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(compressed)))
	if _, err := s.w.Write(hdr[:]); err != nil {
		return err
	}
	_, err = s.w.Write(compressed)
	return err
}

// Flush pushes buffered output to the underlying writer.
func (s *Sink) Flush() error { return s.w.Flush() }

// ReadRow reads and decompresses the next record from r, appending its
// decoded values into names-ordered column slots is the caller's job;
// ReadRow only returns the flat value list in the order the schema was
// declared (§6 "Rows may be consumed by a separate binary-to-text
// converter").
func ReadRow(r io.Reader) ([]schema.Value, error) {
	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	magic := binary.BigEndian.Uint32(hdr[0:4])
	if magic != frameMagic {
		return nil, fmt.Errorf("binsink: bad frame magic %#x", magic)
	}
	decompLen := binary.BigEndian.Uint32(hdr[4:8])
	compLen := binary.BigEndian.Uint32(hdr[8:12])

	compressed := make([]byte, compLen)
	if _, err := io.ReadFull(r, compressed); err != nil {
		return nil, err
	}

	var raw []byte
	var err error
	if compLen == decompLen {
		raw = compressed
	} else {
		raw, err = Decompress(compressed, int(decompLen))
		if err != nil {
			return nil, err
		}
	}
	values, _, err := parseBuffer(raw)
	return values, err
}

// appendBuffer serializes buf's values onto dst, self-describing each
// value with a one-byte Kind tag so the binary-to-text converter needs no
// prior knowledge of the schema.
func appendBuffer(dst []byte, buf *schema.Buffer) []byte {
	dst = appendUvarint(dst, uint64(len(buf.Values)))
	for _, v := range buf.Values {
		dst = appendValue(dst, v)
	}
	return dst
}

func appendValue(dst []byte, v schema.Value) []byte {
	dst = append(dst, byte(v.Kind))
	switch v.Kind {
	case schema.KindInt64:
		dst = appendUvarint(dst, uint64(v.Int))
	case schema.KindUint64:
		dst = appendUvarint(dst, v.Uint)
	case schema.KindFloat64:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], float64bits(v.Float))
		dst = append(dst, b[:]...)
	case schema.KindString:
		dst = appendUvarint(dst, uint64(len(v.Str)))
		dst = append(dst, v.Str...)
	case schema.KindTimestamp:
		dst = appendUvarint(dst, uint64(v.TS))
	case schema.KindMAC:
		dst = appendUvarint(dst, uint64(len(v.MAC)))
		dst = append(dst, v.MAC...)
	case schema.KindIP:
		raw := []byte(v.IP)
		dst = appendUvarint(dst, uint64(len(raw)))
		dst = append(dst, raw...)
	case schema.KindGroup:
		dst = appendUvarint(dst, uint64(len(v.Group)))
		for i := range v.Group {
			dst = appendBuffer(dst, &v.Group[i])
		}
	}
	return dst
}

func parseBuffer(src []byte) ([]schema.Value, []byte, error) {
	n, rest, err := takeUvarint(src)
	if err != nil {
		return nil, nil, err
	}
	values := make([]schema.Value, 0, n)
	for i := uint64(0); i < n; i++ {
		var v schema.Value
		v, rest, err = parseValue(rest)
		if err != nil {
			return nil, nil, err
		}
		values = append(values, v)
	}
	return values, rest, nil
}

func parseValue(src []byte) (schema.Value, []byte, error) {
	if len(src) < 1 {
		return schema.Value{}, nil, fmt.Errorf("binsink: truncated value")
	}
	kind := schema.Kind(src[0])
	rest := src[1:]

	switch kind {
	case schema.KindInt64:
		u, r, err := takeUvarint(rest)
		return schema.Value{Kind: kind, Int: int64(u)}, r, err
	case schema.KindUint64:
		u, r, err := takeUvarint(rest)
		return schema.Value{Kind: kind, Uint: u}, r, err
	case schema.KindFloat64:
		if len(rest) < 8 {
			return schema.Value{}, nil, fmt.Errorf("binsink: truncated float64")
		}
		f := float64frombits(binary.BigEndian.Uint64(rest[:8]))
		return schema.Value{Kind: kind, Float: f}, rest[8:], nil
	case schema.KindString:
		n, r, err := takeUvarint(rest)
		if err != nil {
			return schema.Value{}, nil, err
		}
		if uint64(len(r)) < n {
			return schema.Value{}, nil, fmt.Errorf("binsink: truncated string")
		}
		return schema.Value{Kind: kind, Str: string(r[:n])}, r[n:], nil
	case schema.KindTimestamp:
		u, r, err := takeUvarint(rest)
		return schema.Value{Kind: kind, TS: int64(u)}, r, err
	case schema.KindMAC:
		n, r, err := takeUvarint(rest)
		if err != nil {
			return schema.Value{}, nil, err
		}
		if uint64(len(r)) < n {
			return schema.Value{}, nil, fmt.Errorf("binsink: truncated MAC")
		}
		mac := append(net.HardwareAddr(nil), r[:n]...)
		return schema.Value{Kind: kind, MAC: mac}, r[n:], nil
	case schema.KindIP:
		n, r, err := takeUvarint(rest)
		if err != nil {
			return schema.Value{}, nil, err
		}
		if uint64(len(r)) < n {
			return schema.Value{}, nil, fmt.Errorf("binsink: truncated IP")
		}
		ip := append(net.IP(nil), r[:n]...)
		return schema.Value{Kind: kind, IP: ip}, r[n:], nil
	case schema.KindGroup:
		n, r, err := takeUvarint(rest)
		if err != nil {
			return schema.Value{}, nil, err
		}
		group := make([]schema.Buffer, n)
		for i := uint64(0); i < n; i++ {
			var vals []schema.Value
			vals, r, err = parseBuffer(r)
			if err != nil {
				return schema.Value{}, nil, err
			}
			group[i] = schema.Buffer{Values: vals}
		}
		return schema.Value{Kind: kind, Group: group}, r, nil
	default:
		return schema.Value{}, nil, fmt.Errorf("binsink: unknown kind %d", kind)
	}
}
