package schema

import "net"

// Value is a single typed leaf value appended to a Buffer. Exactly one of
// the fields is meaningful, selected by Kind.
type Value struct {
	Kind  Kind
	Int   int64
	Uint  uint64
	Float float64
	Str   string
	MAC   net.HardwareAddr
	IP    net.IP
	TS    int64 // unix nanoseconds, for KindTimestamp
	Group []Buffer
}

// Buffer is the shared output buffer onFlowTerm hooks append to, in
// Schema() order (§4.4 "Output buffer contract"); it is reset once per
// emitted row, i.e. once per flow-table slot, so a paired conversation's A
// and B sides become two separate rows emitted A first (§4.2 termination
// procedure).
type Buffer struct {
	Values []Value
}

// Reset empties the buffer for reuse on the next flow (§4.2 termination
// procedure: "reset the output buffer").
func (b *Buffer) Reset() { b.Values = b.Values[:0] }

func (b *Buffer) AppendInt64(v int64)     { b.Values = append(b.Values, Value{Kind: KindInt64, Int: v}) }
func (b *Buffer) AppendUint64(v uint64)   { b.Values = append(b.Values, Value{Kind: KindUint64, Uint: v}) }
func (b *Buffer) AppendFloat64(v float64) { b.Values = append(b.Values, Value{Kind: KindFloat64, Float: v}) }
func (b *Buffer) AppendString(v string)   { b.Values = append(b.Values, Value{Kind: KindString, Str: v}) }
func (b *Buffer) AppendTimestamp(nanos int64) {
	b.Values = append(b.Values, Value{Kind: KindTimestamp, TS: nanos})
}
func (b *Buffer) AppendMAC(v net.HardwareAddr) {
	b.Values = append(b.Values, Value{Kind: KindMAC, MAC: v})
}
func (b *Buffer) AppendIP(v net.IP) { b.Values = append(b.Values, Value{Kind: KindIP, IP: v}) }

// AppendGroup appends a repeated group; rows holds one Buffer per group
// instance, each populated according to the group's own Fields. The binary
// sink prefixes a group with its instance count as an unsigned varint, not
// as a fixed-width uint32.
func (b *Buffer) AppendGroup(rows []Buffer) {
	b.Values = append(b.Values, Value{Kind: KindGroup, Group: rows})
}
