// Package capinfo holds small, stable, exported views of the per-packet
// descriptor and per-flow record, meant to be shared with plugin code
// without pulling in internal/dissect or internal/engine/flowtable
// directly. The builtin plugins live inside this module and could import
// those internal packages directly, but a plugin ABI tied to internal/
// layout would change out from under any plugin the moment the engine's
// internals do; capinfo is the seam that keeps that from happening.
package capinfo

import (
	"net"
	"time"
)

// Packet is a read-only snapshot of a dissected frame's identifying
// fields, independent of dissect.Descriptor's internal layout.
type Packet struct {
	Timestamp        time.Time
	CapLen, WireLen  int
	SrcIP, DstIP     net.IP
	SrcPort, DstPort uint16
	Proto            uint8
	VLAN             uint16
	IsFragment       bool
}

// Flow is a read-only snapshot of a flow record's accumulated state.
type Flow struct {
	Index           uint64
	FirstSeen, LastSeen time.Time
	Bytes, Packets  uint64
	Timeout         time.Duration
}

// DescriptorView is the minimal surface capinfo needs from a dissected
// packet to build a Packet snapshot; internal/dissect.Descriptor
// satisfies it without capinfo importing that package. The packet's
// capture timestamp lives on the engine (the wall-clock reference, §4.7
// step 1), not the descriptor, so FromDescriptor takes it separately.
type DescriptorView interface {
	Lengths() (capLen, wireLen int)
	Endpoints() (src, dst net.IP, srcPort, dstPort uint16, proto uint8)
	VLANTag() uint16
	Fragment() bool
}

// RecordView is the minimal surface capinfo needs from a flow record.
type RecordView interface {
	FlowIndex() uint64
	Seen() (first, last int64)
	Totals() (bytes, packets uint64)
	TimeoutSeconds() int64
}

// FromDescriptor builds a Packet snapshot from anything satisfying
// DescriptorView. tsNS is the frame's capture timestamp, unix nanoseconds.
func FromDescriptor(d DescriptorView, tsNS int64) Packet {
	capLen, wireLen := d.Lengths()
	src, dst, srcPort, dstPort, proto := d.Endpoints()
	return Packet{
		Timestamp:  time.Unix(0, tsNS).UTC(),
		CapLen:     capLen,
		WireLen:    wireLen,
		SrcIP:      src,
		DstIP:      dst,
		SrcPort:    srcPort,
		DstPort:    dstPort,
		Proto:      proto,
		VLAN:       d.VLANTag(),
		IsFragment: d.Fragment(),
	}
}

// FromRecord builds a Flow snapshot from anything satisfying RecordView.
func FromRecord(r RecordView) Flow {
	first, last := r.Seen()
	bytes, packets := r.Totals()
	return Flow{
		Index:     r.FlowIndex(),
		FirstSeen: time.Unix(0, first).UTC(),
		LastSeen:  time.Unix(0, last).UTC(),
		Bytes:     bytes,
		Packets:   packets,
		Timeout:   time.Duration(r.TimeoutSeconds()) * time.Second,
	}
}
