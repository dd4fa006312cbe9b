package engine

import (
	"github.com/lavanyaayna9/flowmeter/internal/dissect"
	"github.com/lavanyaayna9/flowmeter/internal/engine/flowtable"
	"github.com/lavanyaayna9/flowmeter/internal/engine/fragindex"
	"github.com/lavanyaayna9/flowmeter/internal/engine/status"
)

const (
	tcpFlagFIN = 0x01
	tcpFlagSYN = 0x02
	tcpFlagACK = 0x10

	protoTCP = 0x06
)

// classifyDirection decides whether the flow just created at slot plays
// the "A" (initiator) or "B" (responder) role, per §4.2 steps (e)-(f). It
// is called exactly once per flow, at that flow's creation, whether or not
// a reverse flow already exists; an existing opposite keeps the role it
// was given at its own creation (SPEC_FULL.md §12, Open Question 1).
//
// A flow is "B" if its source port is a well-known port reached from an
// ephemeral one (srcPort <= 1024 and srcPort < dstPort), or its source
// port is 8080/8081, or it is a TCP segment with SYN and ACK both set.
// Everything else is "A".
func classifyDirection(d *dissect.Descriptor) bool {
	if d.SrcPort <= 1024 && d.SrcPort < d.DstPort {
		return true
	}
	if d.SrcPort == 8080 || d.SrcPort == 8081 {
		return true
	}
	if d.Proto == protoTCP && d.TCPFlags&(tcpFlagSYN|tcpFlagACK) == (tcpFlagSYN|tcpFlagACK) {
		return true
	}
	return false
}

// createFlow runs §4.2 steps (a)-(f). Steps (a)-(d) are flowtable.Table's
// job; this wires in the reverse-key opposite pairing and direction
// heuristic, then runs OnFlowGen for every plugin in registry order.
func (e *Engine) createFlow(key flowtable.Key, ts int64, d *dissect.Descriptor) (int32, *flowtable.Record, error) {
	slot, rec, err := e.ft.Create(key, ts, e.autopilotEvict)
	if err != nil {
		return flowtable.NoSlot, nil, err
	}

	if oppSlot, opp, ok := e.ft.Lookup(key.Reverse()); ok && oppSlot != slot {
		rec.Opposite = oppSlot
		opp.Opposite = slot
		rec.Index = opp.Index
	} else {
		rec.Index = e.ft.NextIndex()
	}
	if classifyDirection(d) {
		rec.Status = rec.Status.Set(status.FlowB)
	} else {
		rec.Status = rec.Status.Set(status.FlowA)
	}

	rec.Timeout = e.cfg.DefaultTimeoutSeconds
	_ = e.tm.Register(e.cfg.DefaultTimeoutSeconds)

	for _, p := range e.registry.Ordered() {
		p.OnFlowGen(rec, d)
	}
	return slot, rec, nil
}

// terminateFlow runs the flow termination procedure: compute duration,
// mark terminating, fan the flow (and its opposite, A before B) through
// every plugin's OnFlowTerm into the shared buffer, hand the buffer to
// the sink, then remove the flow from the LRU, the hash table and, if
// pending-fragment state is set, the fragment index.
func (e *Engine) terminateFlow(slot int32, reason status.Bits) {
	rec := e.ft.Record(slot)
	if rec == nil || !rec.InUse {
		return
	}
	rec.Status = rec.Status.Set(status.Terminating).Merge(reason)
	rec.Duration = rec.LastSeen - rec.FirstSeen

	order := []int32{slot}
	if rec.Opposite != flowtable.NoSlot {
		opp := e.ft.Record(rec.Opposite)
		if opp != nil && opp.InUse {
			if rec.Status.Has(status.FlowB) {
				order = []int32{rec.Opposite, slot}
			} else {
				order = append(order, rec.Opposite)
			}
		}
	}

	for _, s := range order {
		r := e.ft.Record(s)
		if r == nil {
			continue
		}
		if s != slot {
			r.Status = r.Status.Set(status.Terminating).Merge(reason)
			r.Duration = r.LastSeen - r.FirstSeen
		}
		e.buf.Reset()
		for _, p := range e.registry.Ordered() {
			p.OnFlowTerm(s, r, &e.buf)
		}
		if e.onTerm != nil {
			e.onTerm(s, r, &e.buf)
		}
	}

	// A paired flow terminates as a unit: both sides are removed together,
	// since timeout.Manager only fires once each side is equally idle
	// (§4.5 "its opposite, if any, is equally old").
	for _, s := range order {
		r := e.ft.Record(s)
		if r != nil && r.FragPending {
			e.frag.Remove(fragIndexKey(e.fragKeyBuf[:0], r))
		}
		e.ft.Remove(s)
	}
}

// autopilotEvict implements §4.6: when the main table is full, evict the
// AutopilotN oldest non-sentinel flows through the normal termination
// procedure, flagged as evicted for space. It is handed to
// flowtable.Table.Create as the evict callback and returns whether it
// freed at least one slot.
func (e *Engine) autopilotEvict() bool {
	freed := 0
	idx := e.ft.List().Tail()
	for idx != e.ft.List().Root() && freed < e.cfg.AutopilotN {
		rec := e.ft.Record(idx)
		prev := e.ft.List().Prev(idx)
		if rec != nil && rec.InUse && !rec.IsSentinel {
			e.terminateFlow(idx, status.EvictedAutopilot)
			freed++
		}
		idx = prev
	}
	return freed > 0
}

// fragIndexKey rebuilds the fragment-index key for a flow flagged
// FragPending, reusing the supplied scratch buffer.
func fragIndexKey(buf []byte, rec *flowtable.Record) []byte {
	src, dst, _, _, _, vlan, _ := rec.Key.Decode()
	return fragindex.Key(src, dst, vlan, uint32(rec.LastFragIPID), buf)
}
