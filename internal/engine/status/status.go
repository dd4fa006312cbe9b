// Package status implements the packet/flow status bitset shared by the
// dissector, the flow lifecycle, and every plugin hook. The bitset has
// identical semantics whether it is attached to a single packet descriptor
// or accumulated across a flow's lifetime (§3, §4.3, §7 of the flow
// engine specification).
package status

// Bits is a 64-bit status/warning bitset. It is packed the way
// fako1024/gotools/bitpack stores fixed-width counters: a plain uint64
// with named bit positions, no allocation, cheap to copy and merge.
type Bits uint64

// Named status bits. Each anomaly or classification outcome the dissector,
// flow lifecycle, or plugin dispatch can observe gets one bit.
const (
	// Link layer / L2.5
	L2Vlan Bits = 1 << iota
	L2VlanPriorityTag
	L2Mpls
	L2MplsUcast
	L2Snap
	L2Gre
	L2Ersp
	L2Unsupported

	// L3
	IPv4Frag
	IPv4FragPending
	IPv4FragFirstMissing
	IPv6Frag
	IPv6FragPending
	IPv6ExtHdr
	IPPayloadLenMismatch
	IPDuplicateIPID
	IPHeaderTruncated

	// L4 / tunnels
	L3TCP
	L3UDP
	L3SCTP
	L3ICMP
	L3Teredo
	L3AYIYA
	L3GTP
	L3VXLAN
	L3GENEVE
	L3CAPWAP
	L3LWAPP
	L3ESP
	L3AH
	L3DTLSTagged

	// Capture / truncation
	SnaplenTruncated
	ShortHeader
	SequenceGapFrag

	// Flow lifecycle
	FlowA
	FlowB
	Terminating
	TimedOut
	ForcedByPlugin
	EvictedAutopilot
	RMFlow
	FDLSIdx
	LandAttack
	Overflow
	L3FlowInvert
	DirectionConfidenceHigh
	Drained

	// Warnings surfaced at end-of-run
	WarnTimejump

	// Alarm marks a flow a plugin considers anomalous enough to dump to
	// the forensic record even when the run isn't otherwise recording
	// every packet (flow.h's FL_ALARM: "pcapd dumps packets from this
	// flow to new pcap").
	Alarm

	// SubnetFlagged marks a flow whose source or destination address
	// fell inside a configured named subnet range (flow.c's TORADD,
	// generalized from a Tor-exit-node list to an arbitrary range file).
	SubnetFlagged
)

// Set returns b with all bits in add set
func (b Bits) Set(add Bits) Bits { return b | add }

// Clear returns b with all bits in rm cleared
func (b Bits) Clear(rm Bits) Bits { return b &^ rm }

// Has reports whether all bits in test are set in b
func (b Bits) Has(test Bits) bool { return b&test == test }

// Merge folds the per-packet status bits into a flow's accumulated status.
// Packet-level transient bits (e.g. SnaplenTruncated on a single frame) are
// additive across the flow's lifetime, never cleared by a later packet that
// doesn't repeat the condition.
func (b Bits) Merge(packet Bits) Bits { return b.Set(packet) }
