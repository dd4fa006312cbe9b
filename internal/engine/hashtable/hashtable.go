// Package hashtable implements the flow-indexed hash table (§3 "Hash
// table", §4.1). Unlike the teacher's growable hashmap.Map, capacity here
// is fixed at construction time: every inserted key occupies exactly one
// entry drawn from a pre-allocated chain pool, and the entry's pool index
// doubles as the flow-table slot the caller associates with the key. This
// is what lets the flow table and the LRU list address flows by a single
// stable integer for the lifetime of the insertion.
package hashtable

import (
	"errors"
	"math/rand/v2"

	"github.com/zeebo/xxh3"
)

// ErrFull is returned by Insert when the chain pool has no free entries.
var ErrFull = errors.New("hashtable: chain pool exhausted")

// ErrKeyTooLong is returned when a key exceeds MaxKeyLen.
var ErrKeyTooLong = errors.New("hashtable: key exceeds maximum length")

// MaxKeyLen bounds the identification tuple copied into a chain entry
// (enough for a IPv6+VLAN+MPLS+ports tuple with headroom).
const MaxKeyLen = 48

type entry struct {
	inUse  bool
	keyLen uint8
	key    [MaxKeyLen]byte
	hash   uint64
	next   int32 // next entry in this bucket's chain, -1 terminates
}

// Table is a fixed-capacity, separately-chained hash table. Bucket chains
// link entries drawn from a single pre-allocated pool by index rather than
// by pointer, and a free list recycles vacated entries in O(1).
type Table struct {
	buckets []int32 // bucket head -> pool index, -1 if empty
	pool    []entry
	free    []int32 // stack of free pool indices
	seed    uint64
	count   int
}

// New allocates a table with room for exactly capacity keys. The bucket
// array is sized to the next power of two at or above capacity so the
// modulo reduces to a mask.
func New(capacity int) *Table {
	if capacity <= 0 {
		capacity = 1
	}
	nb := 1
	for nb < capacity {
		nb <<= 1
	}

	t := &Table{
		buckets: make([]int32, nb),
		pool:    make([]entry, capacity),
		free:    make([]int32, capacity),
		seed:    generateSeed(),
	}
	for i := range t.buckets {
		t.buckets[i] = -1
	}
	for i := 0; i < capacity; i++ {
		t.free[i] = int32(capacity - 1 - i)
	}
	return t
}

// Cap returns the number of chain entries the table was built with.
func (t *Table) Cap() int { return len(t.pool) }

// Len returns the number of keys currently present.
func (t *Table) Len() int { return t.count }

// Free returns the number of unused chain entries.
func (t *Table) Free() int { return len(t.free) }

func (t *Table) mask() uint64 { return uint64(len(t.buckets) - 1) }

// Lookup returns the pool/flow-table slot for key, or (-1, false) on a miss.
func (t *Table) Lookup(key []byte) (slot int32, ok bool) {
	h := xxh3.HashSeed(key, t.seed)
	for i := t.buckets[h&t.mask()]; i != -1; i = t.pool[i].next {
		e := &t.pool[i]
		if e.hash == h && int(e.keyLen) == len(key) && string(e.key[:e.keyLen]) == string(key) {
			return i, true
		}
	}
	return -1, false
}

// Insert adds key and returns its slot. Insert never deduplicates: callers
// must Lookup first (§4.1 invariant (i), one chain entry per key). Returns
// ErrFull if the pool has no free entries and the caller-supplied evict
// callback (if any) could not make room.
func (t *Table) Insert(key []byte, evict func() bool) (int32, error) {
	if len(key) > MaxKeyLen {
		return -1, ErrKeyTooLong
	}
	if len(t.free) == 0 {
		if evict == nil || !evict() || len(t.free) == 0 {
			return -1, ErrFull
		}
	}

	slot := t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]

	h := xxh3.HashSeed(key, t.seed)
	b := h & t.mask()

	e := &t.pool[slot]
	e.inUse = true
	e.keyLen = uint8(len(key))
	copy(e.key[:], key)
	e.hash = h
	e.next = t.buckets[b]
	t.buckets[b] = slot

	t.count++
	return slot, nil
}

// Remove drops the entry at slot from its bucket chain and returns it to
// the free list. The caller must already know the slot (typically via
// Lookup); Remove does not itself search by key.
func (t *Table) Remove(key []byte, slot int32) bool {
	h := xxh3.HashSeed(key, t.seed)
	b := h & t.mask()

	prev := int32(-1)
	for i := t.buckets[b]; i != -1; i = t.pool[i].next {
		if i == slot {
			if prev == -1 {
				t.buckets[b] = t.pool[i].next
			} else {
				t.pool[prev].next = t.pool[i].next
			}
			t.pool[i] = entry{next: -1}
			t.free = append(t.free, slot)
			t.count--
			return true
		}
		prev = i
	}
	return false
}

// generateSeed mirrors the teacher's non-zero random seed requirement
// (xxh3.HashSeed treats a zero seed as "no seed", degrading distribution).
func generateSeed() uint64 {
	for {
		if s := rand.Uint64(); s != 0 {
			return s
		}
	}
}
