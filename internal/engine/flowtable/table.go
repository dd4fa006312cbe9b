// Package flowtable implements the fixed-capacity flow table and the LRU
// list threaded through it (§3 "Flow record", "LRU"; §4.2 Flow lifecycle).
// A flow's slot index is simultaneously its hashtable chain-pool index and
// its LRU arena index, so no translation is needed between the two.
package flowtable

import (
	"errors"

	"github.com/lavanyaayna9/flowmeter/internal/engine/hashtable"
	"github.com/lavanyaayna9/flowmeter/internal/engine/lru"
)

// ErrFull is returned by Create when the hash table has no free chain
// entries and autopilot eviction (if configured) could not make room.
var ErrFull = hashtable.ErrFull

// MaxTimeoutClasses bounds the number of distinct timeout values the
// timeout manager may register sentinels for (§4.5). Generous: real
// deployments register a handful (TCP, UDP, ICMP, default, ...).
const MaxTimeoutClasses = 16

// Table owns the hash table, the LRU list and the flow record arena.
type Table struct {
	ht      *hashtable.Table
	list    *lru.List
	records []Record

	capacity     int
	nextSentinel int32
	nextIndex    uint64
}

// New builds a table with room for capacity concurrently tracked flows.
func New(capacity int) *Table {
	ht := hashtable.New(capacity)
	list := lru.New(capacity + MaxTimeoutClasses)

	t := &Table{
		ht:           ht,
		list:         list,
		records:      make([]Record, capacity+MaxTimeoutClasses),
		capacity:     capacity,
		nextSentinel: int32(capacity),
	}
	for i := range t.records {
		t.records[i] = Record{Opposite: NoSlot, SubnetSrc: NoSlot, SubnetDst: NoSlot}
	}
	return t
}

// Cap returns the main table's flow capacity (excludes sentinel reserve).
func (t *Table) Cap() int { return t.capacity }

// Len returns the number of live (non-sentinel) flows.
func (t *Table) Len() int { return t.ht.Len() }

// Lookup finds the slot owning key.
func (t *Table) Lookup(key Key) (int32, *Record, bool) {
	slot, ok := t.ht.Lookup(key)
	if !ok {
		return NoSlot, nil, false
	}
	return slot, &t.records[slot], true
}

// Record returns the record at slot without validation; callers must only
// pass slots previously returned by Lookup/Create/AllocSentinel.
func (t *Table) Record(slot int32) *Record { return &t.records[slot] }

// Create inserts key into the hash table, placing the new flow at the LRU
// head with firstSeen == lastSeen == ts (§4.2 steps a-d). evict is the
// autopilot hook (§4.1, §4.6); nil disables autopilot for this table.
func (t *Table) Create(key Key, ts int64, evict func() bool) (int32, *Record, error) {
	slot, err := t.ht.Insert(key, evict)
	if err != nil {
		return NoSlot, nil, err
	}
	r := &t.records[slot]
	r.reset()
	r.InUse = true
	r.Key = key
	r.FirstSeen = ts
	r.LastSeen = ts
	t.list.PushFront(slot)
	return slot, r, nil
}

// NextIndex returns a fresh monotonically increasing flow index (§3
// "monotonically assigned flow index").
func (t *Table) NextIndex() uint64 {
	t.nextIndex++
	return t.nextIndex
}

// Touch moves slot to the LRU head and bumps lastSeen (§4.7 step 6).
func (t *Table) Touch(slot int32, ts int64) {
	t.list.MoveToFront(slot)
	t.records[slot].LastSeen = ts
}

// Remove unlinks slot from the LRU and from the hash table, returning its
// chain entry to hashtable's free list (§4.2 termination procedure).
func (t *Table) Remove(slot int32) bool {
	r := &t.records[slot]
	if !r.InUse {
		return false
	}
	ok := t.ht.Remove(r.Key, slot)
	if ok {
		t.list.Remove(slot)
		r.InUse = false
	}
	return ok
}

var errSentinelsExhausted = errors.New("flowtable: timeout sentinel pool exhausted")

// AllocSentinel reserves a fresh sentinel slot for a newly registered
// timeout class and places it at the LRU tail (§4.5 "Registration inserts
// a sentinel flow ... at the tail").
func (t *Table) AllocSentinel(timeout int64) (int32, error) {
	if int(t.nextSentinel) >= len(t.records) {
		return NoSlot, errSentinelsExhausted
	}
	slot := t.nextSentinel
	t.nextSentinel++
	r := &t.records[slot]
	*r = Record{Opposite: NoSlot, SubnetSrc: NoSlot, SubnetDst: NoSlot, IsSentinel: true, Timeout: timeout, LastSeen: 0}
	t.list.PushBack(slot)
	return slot, nil
}

// List exposes the LRU for the timeout manager, which needs to walk it
// directly (Root/Prev/Next/InsertBefore) rather than through flow-specific
// operations.
func (t *Table) List() *lru.List { return t.list }
