// Package state implements §6's "State history": an optional checkpoint
// holding counters, time anchors, and per-plugin restorable state so a
// resumed run continues reporting diffs relative to the previous
// session. The compact counters/time-anchor header is grounded on
// goDB/storage/gpfile/metadata.go's Metadata.MarshalString/
// UnmarshalString (dash-delimited, bitpack-compressed uint64 fields);
// per-plugin blobs are framed and zstd-compressed the way
// goDB/encoder/zstd/zstd_native.go's Encoder does for block data.
package state

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/fako1024/gotools/bitpack"

	"github.com/lavanyaayna9/flowmeter/internal/engine"
	"github.com/lavanyaayna9/flowmeter/internal/plugin"
)

const headerFieldCount = 10
const delimDash = "-"

// Checkpoint is the full resumable snapshot of a run.
type Checkpoint struct {
	Counters engine.Counters

	// WallClockNS and StartTimeNS are the engine's time anchors (§2
	// "Timekeeping & counters"), restored so a resumed run's flow
	// timeouts and reported durations remain continuous.
	WallClockNS int64
	StartTimeNS int64

	// PluginStates holds each StateSaver plugin's opaque blob, keyed by
	// plugin name.
	PluginStates map[string][]byte
}

// maxEncodedUint64Len bounds bitpack.EncodeUint64ToByteBuf's output per
// field (a worst-case compressed uint64), per metadata.go's own
// maxDirnameLength comment.
const maxEncodedUint64Len = 10

// marshalHeader renders the counters and time anchors as a compact
// dash-delimited string of bitpack-compressed uint64 fields, mirroring
// Metadata.MarshalString's field-by-field encoding.
func marshalHeader(cp Checkpoint) string {
	fields := headerFields(cp)
	parts := make([]string, len(fields))
	var scratch [maxEncodedUint64Len]byte
	for i, f := range fields {
		n := bitpack.EncodeUint64ToByteBuf(f, scratch[:])
		parts[i] = string(scratch[:n])
	}
	return strings.Join(parts, delimDash)
}

func unmarshalHeader(s string, cp *Checkpoint) error {
	parts := strings.Split(s, delimDash)
	if len(parts) != headerFieldCount {
		return fmt.Errorf("state: invalid header field count %d", len(parts))
	}
	values := make([]uint64, headerFieldCount)
	for i, p := range parts {
		values[i] = bitpack.DecodeUint64FromString(p)
	}
	cp.Counters = engine.Counters{
		PacketsTotal:  values[0],
		BytesTotal:    values[1],
		PacketsNoFlow: values[2],
		PacketsIPv4:   values[3],
		PacketsIPv6:   values[4],
		PacketsTCP:    values[5],
		PacketsUDP:    values[6],
		PacketsOther:  values[7],
	}
	cp.WallClockNS = int64(values[8])
	cp.StartTimeNS = int64(values[9])
	return nil
}

func headerFields(cp Checkpoint) []uint64 {
	return []uint64{
		cp.Counters.PacketsTotal,
		cp.Counters.BytesTotal,
		cp.Counters.PacketsNoFlow,
		cp.Counters.PacketsIPv4,
		cp.Counters.PacketsIPv6,
		cp.Counters.PacketsTCP,
		cp.Counters.PacketsUDP,
		cp.Counters.PacketsOther,
		uint64(cp.WallClockNS),
		uint64(cp.StartTimeNS),
	}
}

// Save writes cp to w: a newline-terminated header line, followed by one
// length-prefixed, zstd-compressed block per plugin state, in
// unspecified order.
func Save(w io.Writer, cp Checkpoint) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(marshalHeader(cp)); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(cp.PluginStates)))
	if _, err := bw.Write(lenBuf[:]); err != nil {
		return err
	}

	enc := newBlockEncoder()
	defer enc.Close()

	for name, blob := range cp.PluginStates {
		if err := writePluginBlock(bw, enc, name, blob); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writePluginBlock(bw *bufio.Writer, enc *blockEncoder, name string, blob []byte) error {
	var nameLen [2]byte
	binary.BigEndian.PutUint16(nameLen[:], uint16(len(name)))
	if _, err := bw.Write(nameLen[:]); err != nil {
		return err
	}
	if _, err := bw.WriteString(name); err != nil {
		return err
	}

	compressed, err := enc.compress(blob)
	if err != nil {
		return fmt.Errorf("state: compressing state for plugin %q: %w", name, err)
	}

	var lens [8]byte
	binary.BigEndian.PutUint32(lens[0:4], uint32(len(blob)))
	binary.BigEndian.PutUint32(lens[4:8], uint32(len(compressed)))
	if _, err := bw.Write(lens[:]); err != nil {
		return err
	}
	_, err = bw.Write(compressed)
	return err
}

// Load reads a checkpoint previously written by Save.
func Load(r io.Reader) (Checkpoint, error) {
	br := bufio.NewReader(r)

	headerLine, err := br.ReadString('\n')
	if err != nil {
		return Checkpoint{}, fmt.Errorf("state: reading header: %w", err)
	}
	var cp Checkpoint
	if err := unmarshalHeader(strings.TrimSuffix(headerLine, "\n"), &cp); err != nil {
		return Checkpoint{}, err
	}

	var countBuf [4]byte
	if _, err := io.ReadFull(br, countBuf[:]); err != nil {
		return Checkpoint{}, fmt.Errorf("state: reading plugin count: %w", err)
	}
	count := binary.BigEndian.Uint32(countBuf[:])

	cp.PluginStates = make(map[string][]byte, count)
	dec := newBlockDecoder()
	defer dec.Close()

	for i := uint32(0); i < count; i++ {
		name, blob, err := readPluginBlock(br, dec)
		if err != nil {
			return Checkpoint{}, err
		}
		cp.PluginStates[name] = blob
	}
	return cp, nil
}

func readPluginBlock(br *bufio.Reader, dec *blockDecoder) (string, []byte, error) {
	var nameLen [2]byte
	if _, err := io.ReadFull(br, nameLen[:]); err != nil {
		return "", nil, fmt.Errorf("state: reading plugin name length: %w", err)
	}
	nameBuf := make([]byte, binary.BigEndian.Uint16(nameLen[:]))
	if _, err := io.ReadFull(br, nameBuf); err != nil {
		return "", nil, fmt.Errorf("state: reading plugin name: %w", err)
	}

	var lens [8]byte
	if _, err := io.ReadFull(br, lens[:]); err != nil {
		return "", nil, fmt.Errorf("state: reading plugin block lengths: %w", err)
	}
	rawLen := binary.BigEndian.Uint32(lens[0:4])
	compLen := binary.BigEndian.Uint32(lens[4:8])

	compressed := make([]byte, compLen)
	if _, err := io.ReadFull(br, compressed); err != nil {
		return "", nil, fmt.Errorf("state: reading plugin block: %w", err)
	}

	blob, err := dec.decompress(compressed, int(rawLen))
	if err != nil {
		return "", nil, fmt.Errorf("state: decompressing state for plugin %q: %w", string(nameBuf), err)
	}
	return string(nameBuf), blob, nil
}

// Collect gathers SaveState() output from every registered plugin that
// implements StateSaver, in resolved dispatch order.
func Collect(reg *plugin.Registry) (map[string][]byte, error) {
	states := make(map[string][]byte)
	for _, p := range reg.Ordered() {
		saver, ok := p.(plugin.StateSaver)
		if !ok {
			continue
		}
		blob, err := saver.SaveState()
		if err != nil {
			return nil, fmt.Errorf("state: SaveState for plugin %q: %w", p.Name(), err)
		}
		states[p.Name()] = blob
	}
	return states, nil
}

// Restore hands each plugin its blob from states, if it implements
// StateSaver and a blob with its name is present. Plugins with no saved
// state (a new plugin added since the checkpoint was written) are left
// at their zero-value state; that is not an error.
func Restore(reg *plugin.Registry, states map[string][]byte) error {
	for _, p := range reg.Ordered() {
		saver, ok := p.(plugin.StateSaver)
		if !ok {
			continue
		}
		blob, ok := states[p.Name()]
		if !ok {
			continue
		}
		if err := saver.RestoreState(blob); err != nil {
			return fmt.Errorf("state: RestoreState for plugin %q: %w", p.Name(), err)
		}
	}
	return nil
}
