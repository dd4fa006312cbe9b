// Package stpbpdu decodes IEEE 802.1D Spanning Tree BPDUs riding on
// Ethernet/LLC frames, grounded on plugins/stpDecode/src/stpDecode.c.
// STP BPDUs carry no L3/L4 identity, so they never attribute to a flow
// in the flow-indexed hash table (§3); this package instead aggregates
// them the way stpDecode.c itself does, via an end-of-run summary
// (stpDecode.c's own T2_FPLOG "Aggregated BPDU stpType=.../stpFlags=...").
package stpbpdu

import (
	"encoding/binary"
	"fmt"

	"github.com/lavanyaayna9/flowmeter/internal/dissect/linklayer"
)

const (
	llcDSAP    = 0x42
	llcSSAP    = 0x42
	etherLenMax = 0x05dc // 1500; a 12:14 field at or above 0x0600 is an ethertype, not an 802.3 length

	bpduTypeConfig = 0x00
	bpduTypeTCN    = 0x80
	bpduTypeRST    = 0x02
)

// Monitor aggregates BPDU counts across a run the way stpDecode.c's
// plugin state aggregates stpType/stpFlags bitmasks rather than emitting
// one row per BPDU.
type Monitor struct {
	total      uint64
	typeCounts map[uint8]uint64
	flagsSeen  uint8 // OR of every Flags byte seen, mirroring stpFlags

	minRootPriority   uint16
	minBridgePriority uint16
	sawPriority       bool

	lastMaxAge, lastHello, lastForward uint16
}

// NewMonitor returns an empty aggregator.
func NewMonitor() *Monitor {
	return &Monitor{typeCounts: make(map[uint8]uint64)}
}

// Observe inspects one captured frame for an STP BPDU and, if recognized,
// folds it into the running aggregate. It reports whether the frame was
// STP so a caller can track the unattributed-but-recognized fraction
// separately from truly unknown traffic. VLAN-tagged STP frames are not
// recognized, the same bound the rest of the dissector's L2.5 walk draws
// before reaching an IP ethertype.
func (m *Monitor) Observe(raw []byte, lt linklayer.Type) bool {
	if lt != linklayer.Ethernet || len(raw) < 14+3+4 {
		return false
	}
	lengthOrType := binary.BigEndian.Uint16(raw[12:14])
	if lengthOrType >= etherLenMax {
		return false
	}
	if raw[14] != llcDSAP || raw[15] != llcSSAP {
		return false
	}
	bpdu := raw[17:]
	if len(bpdu) < 4 {
		return false
	}
	bpduType := bpdu[3]

	m.total++
	m.typeCounts[bpduType]++

	if bpduType == bpduTypeConfig || bpduType == bpduTypeRST {
		if len(bpdu) < 35 {
			return true
		}
		flags := bpdu[4]
		m.flagsSeen |= flags

		rootPriority := binary.BigEndian.Uint16(bpdu[5:7])
		bridgePriority := binary.BigEndian.Uint16(bpdu[17:19])
		if !m.sawPriority || rootPriority < m.minRootPriority {
			m.minRootPriority = rootPriority
		}
		if !m.sawPriority || bridgePriority < m.minBridgePriority {
			m.minBridgePriority = bridgePriority
		}
		m.sawPriority = true

		m.lastMaxAge = binary.BigEndian.Uint16(bpdu[29:31])
		m.lastHello = binary.BigEndian.Uint16(bpdu[31:33])
		m.lastForward = binary.BigEndian.Uint16(bpdu[33:35])
	}
	return true
}

// Total reports how many BPDUs were observed.
func (m *Monitor) Total() uint64 { return m.total }

// Report renders a one-line end-of-run summary, the Go analogue of
// stpDecode.c's "Aggregated BPDU stpType=.../stpFlags=..." log lines.
func (m *Monitor) Report() string {
	if m.total == 0 {
		return "stp: no BPDUs observed"
	}
	return fmt.Sprintf(
		"stp: %d bpdus (config=%d tcn=%d rst=%d) flags=0x%02x min_root_priority=%d min_bridge_priority=%d max_age=%d hello=%d forward_delay=%d (1/256s units)",
		m.total, m.typeCounts[bpduTypeConfig], m.typeCounts[bpduTypeTCN], m.typeCounts[bpduTypeRST],
		m.flagsSeen, m.minRootPriority, m.minBridgePriority, m.lastMaxAge, m.lastHello, m.lastForward,
	)
}
