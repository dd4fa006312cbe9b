package engine

import (
	"github.com/lavanyaayna9/flowmeter/internal/dissect"
	"github.com/lavanyaayna9/flowmeter/internal/dissect/linklayer"
	"github.com/lavanyaayna9/flowmeter/internal/engine/flowtable"
	"github.com/lavanyaayna9/flowmeter/internal/engine/fragindex"
	"github.com/lavanyaayna9/flowmeter/internal/engine/status"
)

// Dispatch runs the per-packet pipeline (§4.7) for one captured frame with
// timestamp ts (nanoseconds since the Unix epoch). raw is the captured
// bytes (capLen of them out of wireLen on the wire); it must not be
// retained by the caller past this call returning, since Descriptor views
// point directly into it.
func (e *Engine) Dispatch(raw []byte, capLen, wireLen int, lt linklayer.Type, ts int64) {
	// Step 1: wall-clock and run start-time.
	e.wallClockNS = ts
	if e.firstPacket {
		e.startTimeNS = ts
		e.firstPacket = false
	}

	// Step 2: cycle the timeout manager.
	e.tm.Tick(ts, e.terminateFlow)

	// Step 3-4: descriptor + dissection.
	d := dissect.NewDescriptor(raw, capLen, wireLen)
	attributed := dissect.Dissect(d, lt)

	e.Counters.PacketsTotal++
	e.Counters.BytesTotal += uint64(wireLen)

	if !attributed {
		e.Counters.PacketsNoFlow++
		if d.HeaderDescription() != "" { // link layer recognized
			for _, p := range e.registry.Ordered() {
				p.OnLayer2(flowtable.NoSlot, nil, d)
			}
		}
		if e.onUnattributed != nil {
			e.onUnattributed(raw, lt)
		}
		return
	}

	// Step 5: global protocol counters.
	if d.IsIPv4() {
		e.Counters.PacketsIPv4++
	} else {
		e.Counters.PacketsIPv6++
	}
	switch {
	case d.Status.Has(status.L3TCP):
		e.Counters.PacketsTCP++
	case d.Status.Has(status.L3UDP):
		e.Counters.PacketsUDP++
	default:
		e.Counters.PacketsOther++
	}

	// Fragmentation bookkeeping (§4.3) ahead of flow lookup: a first
	// fragment (offset 0, MF=1) registers the train; later fragments
	// resolve it before anything else can attribute the packet.
	var fragSlot int32 = flowtable.NoSlot
	if d.IsFragment {
		var ok bool
		fragSlot, ok = e.handleFragment(d)
		if !ok {
			e.Counters.PacketsNoFlow++
			return
		}
	}

	key := e.buildKey(d)

	// Step 6: acquire or create.
	var slot int32
	var rec *flowtable.Record
	if fragSlot != flowtable.NoSlot {
		slot, rec = fragSlot, e.ft.Record(fragSlot)
	} else if s, r, ok := e.ft.Lookup(key); ok {
		slot, rec = s, r
	} else {
		var err error
		slot, rec, err = e.createFlow(key, ts, d)
		if err != nil {
			e.Counters.PacketsNoFlow++
			return
		}
	}
	e.ft.Touch(slot, ts)

	if d.IsFragment && d.FragFirst {
		rec.FragPending = true
		rec.LastFragIPID = uint16(d.FragID)
		if err := e.frag.Insert(fragindexKey(e, d), slot); err != nil {
			rec.Status = rec.Status.Set(status.Overflow)
		}
	}

	// Step 7: plugin fan-out.
	for _, p := range e.registry.Ordered() {
		p.OnLayer2(slot, rec, d)
	}
	for _, p := range e.registry.Ordered() {
		p.OnLayer4(slot, rec, d)
	}

	// Step 8: merge status, direction-indexed counters.
	rec.Status = rec.Status.Merge(d.Status)
	// DUPIPID (packetCapture.c:1541-1550): ip_id is read from every IPv4
	// packet of the flow, fragmented or not, not just from fragments.
	if d.IsIPv4() {
		if rec.LastIPID != 0 && rec.LastIPID == d.IPID {
			rec.Status = rec.Status.Set(status.IPDuplicateIPID)
		}
		rec.LastIPID = d.IPID
	}

	rec.Bytes += uint64(wireLen)
	rec.Packets++

	// Step 9: forced-duration rollover.
	if e.cfg.FDurLimitSeconds > 0 {
		durationSeconds := (ts - rec.FirstSeen) / 1e9
		if durationSeconds >= e.cfg.FDurLimitSeconds {
			e.rollover(slot, rec, ts, d)
		}
	}

	if e.onPacket != nil {
		e.onPacket(slot, d)
	}
}

// buildKey assembles this packet's identification tuple.
func (e *Engine) buildKey(d *dissect.Descriptor) flowtable.Key {
	if d.IsIPv4() {
		return flowtable.BuildV4(d.SrcIP, d.DstIP, d.SrcPort, d.DstPort, d.Proto, d.VLAN, e.cfg.IncludeVLAN)
	}
	return flowtable.BuildV6(d.SrcIP, d.DstIP, d.SrcPort, d.DstPort, d.Proto, d.VLAN, e.cfg.IncludeVLAN)
}

// handleFragment implements §4.3's fragmentation state machine. It returns
// the flow slot already attributable to this fragment train (ok == true)
// so the caller skips its own hash-table lookup, or ok == false when the
// packet must be dropped (non-first-fragment miss with crafted-fragment
// acceptance disabled).
func (e *Engine) handleFragment(d *dissect.Descriptor) (int32, bool) {
	key := fragindexKey(e, d)

	if d.FragFirst {
		return flowtable.NoSlot, true
	}

	slot, ok := e.frag.Lookup(key)
	if ok {
		if !d.FragMore {
			e.frag.Remove(key)
			rec := e.ft.Record(slot)
			rec.FragPending = false
			rec.Status = rec.Status.Clear(status.IPv4FragPending | status.IPv6FragPending)
		}
		return slot, true
	}

	if !e.cfg.AcceptCraftedFragments {
		return flowtable.NoSlot, false
	}
	d.Status = d.Status.Set(status.IPv4FragFirstMissing)
	return flowtable.NoSlot, true
}

// fragindexKey builds the fragment-index key for the current packet.
func fragindexKey(e *Engine, d *dissect.Descriptor) []byte {
	var src, dst []byte
	if d.IsIPv4() {
		src, dst = d.SrcIP.To4(), d.DstIP.To4()
	} else {
		src, dst = d.SrcIP.To16(), d.DstIP.To16()
	}
	return fragindex.Key(src, dst, d.VLAN, d.FragID, e.fragKeyBuf[:0])
}

// rollover implements §4.7 step 9 / §4.2 "forced-duration rollover":
// terminate the current flow and immediately re-create an equivalent one
// for the same key, optionally sharing the flow index (FDLSIdx).
func (e *Engine) rollover(slot int32, rec *flowtable.Record, ts int64, d *dissect.Descriptor) {
	key := rec.Key
	sharedIndex := rec.Index
	e.terminateFlow(slot, status.RMFlow)

	_, newRec, err := e.createFlow(key, ts, d)
	if err != nil {
		return
	}
	if e.cfg.FDLSameIndex {
		newRec.Index = sharedIndex
		newRec.Status = newRec.Status.Set(status.FDLSIdx)
	}
}
