// Package builtin holds the two reference plugins used to exercise the
// plugin ABI end to end: basicflow (the always-present flow writer) and
// httpsniff (an optional L7 content inspector).
package builtin

import (
	"github.com/lavanyaayna9/flowmeter/internal/dissect"
	"github.com/lavanyaayna9/flowmeter/internal/dissect/protoname"
	"github.com/lavanyaayna9/flowmeter/internal/dissect/subnetrange"
	"github.com/lavanyaayna9/flowmeter/internal/engine/flowtable"
	"github.com/lavanyaayna9/flowmeter/internal/engine/status"
	"github.com/lavanyaayna9/flowmeter/internal/sink/schema"
)

// BasicFlow emits the columns every flow record carries regardless of
// protocol: endpoints, ports, protocol name, timestamps, duration, byte
// and packet counters, and accumulated status. It has no dependencies and
// is always loaded first by virtue of plugin number 0.
type BasicFlow struct {
	// subnets flags a newly created flow whose source or destination
	// address falls in a loaded range (flow.c's TORADD); nil disables
	// the check entirely.
	subnets *subnetrange.Table
}

// NewBasicFlow constructs the flow writer. subnets may be nil.
func NewBasicFlow(subnets *subnetrange.Table) *BasicFlow { return &BasicFlow{subnets: subnets} }

func (*BasicFlow) Name() string    { return "basicflow" }
func (*BasicFlow) Version() string { return "1.0.0" }
func (*BasicFlow) Number() int     { return 0 }
func (*BasicFlow) Deps() []string  { return nil }

func (*BasicFlow) Schema() schema.Fields {
	return schema.Fields{
		{Name: "sip", Kind: schema.KindIP},
		{Name: "dip", Kind: schema.KindIP},
		{Name: "sport", Kind: schema.KindUint64},
		{Name: "dport", Kind: schema.KindUint64},
		{Name: "proto", Kind: schema.KindString},
		{Name: "first", Kind: schema.KindTimestamp},
		{Name: "last", Kind: schema.KindTimestamp},
		{Name: "duration", Kind: schema.KindInt64},
		{Name: "isB", Kind: schema.KindUint64},
		{Name: "bytes", Kind: schema.KindUint64},
		{Name: "packets", Kind: schema.KindUint64},
		{Name: "status", Kind: schema.KindUint64},
	}
}

func (b *BasicFlow) OnFlowGen(rec *flowtable.Record, d *dissect.Descriptor) {
	if b.subnets == nil {
		return
	}
	if b.subnets.Match(d.SrcIP) || b.subnets.Match(d.DstIP) {
		rec.Status = rec.Status.Set(status.SubnetFlagged)
	}
}

func (*BasicFlow) OnLayer2(slot int32, rec *flowtable.Record, d *dissect.Descriptor) {}

func (*BasicFlow) OnLayer4(slot int32, rec *flowtable.Record, d *dissect.Descriptor) {}

func (*BasicFlow) OnFlowTerm(slot int32, rec *flowtable.Record, buf *schema.Buffer) {
	src, dst, sport, dport, proto, _, _ := rec.Key.Decode()
	buf.AppendIP(src)
	buf.AppendIP(dst)
	buf.AppendUint64(uint64(sport))
	buf.AppendUint64(uint64(dport))
	buf.AppendString(protoname.Name(proto))
	buf.AppendTimestamp(rec.FirstSeen)
	buf.AppendTimestamp(rec.LastSeen)
	buf.AppendInt64(rec.Duration)
	isB := uint64(0)
	if rec.Status.Has(status.FlowB) {
		isB = 1
	}
	buf.AppendUint64(isB)
	buf.AppendUint64(rec.Bytes)
	buf.AppendUint64(rec.Packets)
	buf.AppendUint64(uint64(rec.Status))
}
