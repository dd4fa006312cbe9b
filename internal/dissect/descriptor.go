// Package dissect implements the multi-protocol dissection chain (§4.3):
// link layer -> L2.5 (VLAN/MPLS/SNAP) -> L3 (IPv4/IPv6) -> L4
// (TCP/UDP/SCTP/ICMP/tunnels), with bounded recursion into tunneled IP
// payloads.
package dissect

import (
	"net"
	"strings"

	"github.com/lavanyaayna9/flowmeter/internal/engine/status"
)

// MaxTunnelDepth bounds recursive decode of nested IP-in-IP encapsulation
// (§4.3 "A hard recursion bound (>=3 nesting levels) prevents pathological
// chains").
const MaxTunnelDepth = 3

// MaxVLANTags bounds how many 802.1Q/ad tags the L2.5 walker will peel
// before giving up (§4.3 "up to an implementation-chosen bound").
const MaxVLANTags = 4

// Descriptor is the per-packet descriptor (§3 "Packet descriptor"). It is
// created fresh for each frame and discarded at the end of dispatch; Raw
// and the header offsets refer to the caller-owned raw frame, while the
// source and destination addresses are copied out of it.
type Descriptor struct {
	Raw       []byte
	CapLen    int
	WireLen   int
	L2Off     int
	L3Off     int
	L4Off     int
	L7Off     int

	SrcIP, DstIP     net.IP
	SrcPort, DstPort uint16
	Proto            uint8

	EtherTypeInner uint16
	EtherTypeOuter uint16
	VLAN           uint16

	TCPFlags uint8

	IsFragment   bool
	FragFirst    bool
	FragMore     bool
	FragOffset   uint16
	FragID       uint32

	// IPID is the IPv4 header's 16-bit Identification field, read
	// unconditionally from every IPv4 packet (not just fragments), so the
	// engine's duplicate-IPID check (DUPIPID) can compare it across every
	// packet of a flow the way packetCapture.c's unconditional ip_id read
	// does. Left zero for IPv6, which carries no equivalent field outside
	// its fragment extension header.
	IPID uint16

	SCTPStreamID uint16
	HasSCTPData  bool

	headerDesc []string
	Status     status.Bits
}

// NewDescriptor allocates a fresh descriptor over raw, whose first capLen
// bytes were actually captured out of a wireLen-byte frame on the wire.
func NewDescriptor(raw []byte, capLen, wireLen int) *Descriptor {
	return &Descriptor{
		Raw:     raw,
		CapLen:  capLen,
		WireLen: wireLen,
		L2Off:   0,
		L3Off:   -1,
		L4Off:   -1,
		L7Off:   -1,
	}
}

// pushHeader appends a token to the header description trail (§3
// "headers-description buffer accumulating a colon-separated protocol
// list").
func (d *Descriptor) pushHeader(tok string) { d.headerDesc = append(d.headerDesc, tok) }

// HeaderDescription renders the accumulated protocol trail, e.g.
// "eth:vlan:ipv4:udp:vxlan:eth:ipv4:tcp" (§3, Testable property: "a
// prefix-free dot-or-colon path whose first token matches the chosen link
// layer").
func (d *Descriptor) HeaderDescription() string { return strings.Join(d.headerDesc, ":") }

// IsIPv4 reports whether the attributed flow key is an IPv4 tuple.
func (d *Descriptor) IsIPv4() bool { return d.SrcIP != nil && d.SrcIP.To4() != nil }

// Lengths satisfies pkg/capinfo.DescriptorView.
func (d *Descriptor) Lengths() (capLen, wireLen int) { return d.CapLen, d.WireLen }

// Endpoints satisfies pkg/capinfo.DescriptorView.
func (d *Descriptor) Endpoints() (src, dst net.IP, srcPort, dstPort uint16, proto uint8) {
	return d.SrcIP, d.DstIP, d.SrcPort, d.DstPort, d.Proto
}

// VLANTag satisfies pkg/capinfo.DescriptorView.
func (d *Descriptor) VLANTag() uint16 { return d.VLAN }

// Fragment satisfies pkg/capinfo.DescriptorView.
func (d *Descriptor) Fragment() bool { return d.IsFragment }
