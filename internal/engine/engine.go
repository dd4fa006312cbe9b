// Package engine wires the hash table, flow table, fragment index,
// timeout manager, dissector and plugin registry into the per-packet
// pipeline described by §4.7. It is the "explicit engine context passed
// by reference" §9 calls for in place of global mutable state.
package engine

import (
	"github.com/lavanyaayna9/flowmeter/internal/dissect"
	"github.com/lavanyaayna9/flowmeter/internal/dissect/linklayer"
	"github.com/lavanyaayna9/flowmeter/internal/engine/flowtable"
	"github.com/lavanyaayna9/flowmeter/internal/engine/fragindex"
	"github.com/lavanyaayna9/flowmeter/internal/engine/status"
	"github.com/lavanyaayna9/flowmeter/internal/engine/timeout"
	"github.com/lavanyaayna9/flowmeter/internal/plugin"
	"github.com/lavanyaayna9/flowmeter/internal/sink/schema"
)

// Config holds the tuning parameters §6 exposes on the CLI that the
// engine itself needs (as opposed to ones the capture/sink layers own).
type Config struct {
	// Capacity is the main flow table's fixed size (base x hash scale
	// factor, -f, §6 Tuning).
	Capacity int
	// FragCapacity sizes the fragment index.
	FragCapacity int
	// IncludeVLAN decides whether VLAN is part of the identification
	// tuple (Open Question 2, SPEC_FULL.md §12).
	IncludeVLAN bool
	// DefaultTimeoutSeconds is the timeout class assigned to newly
	// created flows absent any more specific policy.
	DefaultTimeoutSeconds int64
	// FDurLimitSeconds is FDURLIMIT (§4.2, §4.7 step 9); 0 disables
	// forced-duration rollover.
	FDurLimitSeconds int64
	// FDLSameIndex controls whether rollover sub-flows share a flow index
	// (Testable property, §8 Boundary behaviors; GLOSSARY "Forced-duration
	// rollover").
	FDLSameIndex bool
	// AutopilotN is the number of oldest flows evicted when the main
	// table is full (§4.6, default 1).
	AutopilotN int
	// AcceptCraftedFragments enables flow creation on a fragment-index
	// miss (§4.3 Fragmentation: "on miss and if 'crafted-fragment
	// acceptance' is enabled, create a flow and flag 'missing first
	// fragment'").
	AcceptCraftedFragments bool
}

// OnFlowTerm is invoked once per terminated flow, after every plugin's
// onFlowTerm has appended into buf, so the caller can hand the rendered
// buffer to a sink (§4.4 "bufToSink is called ... once per terminated
// flow").
type OnFlowTerm func(slot int32, rec *flowtable.Record, buf *schema.Buffer)

// OnPacket is invoked once per attributed packet, after the full
// per-packet pipeline has run, letting a forensic sink (internal/sink/
// forensic) observe the dissected descriptor (§6 "Packet forensic
// file"). It is optional; a nil OnPacket disables the hook entirely.
type OnPacket func(slot int32, d *dissect.Descriptor)

// OnUnattributed is invoked once per frame that Dissect could not
// attribute to an IP flow (no L3/L4 identification tuple), letting a
// non-IP observer such as internal/dissect/stpbpdu inspect traffic the
// flow-indexed hash table has no key for (§10 "STP BPDU decoding": the
// original plugin attributes BPDUs to their own protocol counters, not
// to a 5-tuple flow). It is optional; a nil OnUnattributed disables the
// hook entirely.
type OnUnattributed func(raw []byte, lt linklayer.Type)

// Engine is the explicit context threaded through the per-packet pipeline.
type Engine struct {
	cfg Config

	ft       *flowtable.Table
	frag     *fragindex.Index
	tm       *timeout.Manager
	registry *plugin.Registry

	buf schema.Buffer

	wallClockNS int64
	startTimeNS int64
	firstPacket bool

	onTerm         OnFlowTerm
	onPacket       OnPacket
	onUnattributed OnUnattributed

	fragKeyBuf [64]byte

	Counters Counters
}

// Counters are the global byte/packet tallies by L2/L3 protocol (§2
// "Timekeeping & counters"); rendering them as prometheus metrics is
// internal/metrics's job, this struct just holds the raw numbers the
// pipeline increments without locking (§5 "owned exclusively by the
// capture thread").
type Counters struct {
	PacketsTotal  uint64
	BytesTotal    uint64
	PacketsNoFlow uint64
	PacketsIPv4   uint64
	PacketsIPv6   uint64
	PacketsTCP    uint64
	PacketsUDP    uint64
	PacketsOther  uint64
}

// New builds an Engine. reg must already have Resolve called on it.
func New(cfg Config, reg *plugin.Registry, onTerm OnFlowTerm) *Engine {
	if cfg.AutopilotN <= 0 {
		cfg.AutopilotN = 1
	}
	ft := flowtable.New(cfg.Capacity)
	e := &Engine{
		cfg:      cfg,
		ft:       ft,
		frag:     fragindex.New(cfg.FragCapacity),
		registry: reg,
		onTerm:   onTerm,
		firstPacket: true,
	}
	e.tm = timeout.New(ft)
	return e
}

// FlowTable exposes the underlying table for sinks/tests that need direct
// read access (e.g. an end-of-run report walking all live flows).
func (e *Engine) FlowTable() *flowtable.Table { return e.ft }

// SetOnPacket installs (or clears, with nil) the per-packet forensic hook.
func (e *Engine) SetOnPacket(fn OnPacket) { e.onPacket = fn }

// SetOnUnattributed installs (or clears, with nil) the non-IP observer hook.
func (e *Engine) SetOnUnattributed(fn OnUnattributed) { e.onUnattributed = fn }

// FragPending reports how many fragment-index entries are currently
// awaiting their last fragment (internal/metrics.FragmentsPending).
func (e *Engine) FragPending() int { return e.frag.Len() }

// WallClockNS and StartTimeNS expose the engine's time anchors (§2
// "Timekeeping & counters") for a state checkpoint (internal/state) to
// persist.
func (e *Engine) WallClockNS() int64 { return e.wallClockNS }
func (e *Engine) StartTimeNS() int64 { return e.startTimeNS }

// RestoreTimeAnchors seeds the engine's time anchors from a loaded
// checkpoint so a resumed run's flow timeouts and reported durations
// stay continuous with the previous session.
func (e *Engine) RestoreTimeAnchors(wallClockNS, startTimeNS int64) {
	e.wallClockNS = wallClockNS
	e.startTimeNS = startTimeNS
	e.firstPacket = false
}

// Drain terminates every live, non-sentinel flow through the normal
// termination procedure, flagged status.Drained (§5 Cancellation level 2:
// "remove all flows then exit"). It is safe to call with an empty table.
func (e *Engine) Drain() {
	root := e.ft.List().Root()
	cur := e.ft.List().Tail()
	for cur != root {
		prev := e.ft.List().Prev(cur)
		rec := e.ft.Record(cur)
		if rec != nil && rec.InUse && !rec.IsSentinel {
			e.terminateFlow(cur, status.Drained)
		}
		cur = prev
	}
}

// LinkType re-exports linklayer.Type so callers of Dispatch don't need a
// second import for the common case.
type LinkType = linklayer.Type
