package flowtable

import "github.com/lavanyaayna9/flowmeter/internal/engine/status"

// NoSlot is the sentinel "none" value for opposite-flow / subnet-test
// references (§3 "Flow record": "opposite-flow slot (or a sentinel 'none'
// value)").
const NoSlot int32 = -1

// Record is the persistent flow record (§3 "Flow record"). Its identity in
// the engine is its slot index, which is simultaneously its hashtable.Table
// chain-pool index and its lru.List node index.
type Record struct {
	Key Key

	Index  uint64
	Status status.Bits

	FirstSeen int64 // unix nanoseconds
	LastSeen  int64
	Duration  int64 // set only on termination

	Opposite int32 // NoSlot if unpaired
	Timeout  int64 // seconds, the timeout class this flow was registered under

	LastIPID     uint16
	FragPending  bool
	LastFragIPID uint16

	SubnetSrc int32 // NoSlot if unset
	SubnetDst int32

	PaddingBytes uint64

	// Bytes/Packets accumulate only the traffic matching this record's own
	// key direction (§4.7 step 8); the conversation's other direction, if
	// seen, lives on the paired record at Opposite. A sink wanting both
	// sides of a conversation reads this record plus its opposite.
	Bytes   uint64
	Packets uint64

	IsSentinel bool
	InUse      bool
}

// FlowIndex satisfies pkg/capinfo.RecordView.
func (r *Record) FlowIndex() uint64 { return r.Index }

// Seen satisfies pkg/capinfo.RecordView.
func (r *Record) Seen() (first, last int64) { return r.FirstSeen, r.LastSeen }

// Totals satisfies pkg/capinfo.RecordView.
func (r *Record) Totals() (bytes, packets uint64) { return r.Bytes, r.Packets }

// TimeoutSeconds satisfies pkg/capinfo.RecordView.
func (r *Record) TimeoutSeconds() int64 { return r.Timeout }

// reset clears a record to its zero value while preserving the IsSentinel
// flag, which is set once at sentinel-allocation time and never revisited.
func (r *Record) reset() {
	sentinel := r.IsSentinel
	*r = Record{Opposite: NoSlot, SubnetSrc: NoSlot, SubnetDst: NoSlot, IsSentinel: sentinel}
}
