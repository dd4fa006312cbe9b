// Package fragindex implements the fragment reassembly index (§3
// "Fragment index", §4.3 "Fragmentation"). It is structurally the hash
// table's twin — same chain-pool/free-list shape, same xxh3 mixer — but
// maps a (endpoints, fragment-id) key to a flow-table slot value rather
// than to its own pool index, since the owning flow's slot already lives
// in the main flow table.
package fragindex

import (
	"errors"
	"math/rand/v2"

	"github.com/zeebo/xxh3"
)

// ErrFull is returned by Insert when the pool has no free entries. The
// fragment index never runs autopilot (§4.6: "If the table in question is
// not the main one, no autopilot runs and insertion fails (fatal)").
var ErrFull = errors.New("fragindex: pool exhausted")

// MaxKeyLen bounds a (srcIP, dstIP, vlan, fragID) key: two IPv6 addresses,
// a VLAN tag and a 32-bit fragment identifier.
const MaxKeyLen = 38

type entry struct {
	inUse  bool
	keyLen uint8
	key    [MaxKeyLen]byte
	hash   uint64
	value  int32 // flow-table slot owning this fragment train
	next   int32
}

// Index is a fixed-capacity chained hash table mapping fragment-train keys
// to flow-table slots.
type Index struct {
	buckets []int32
	pool    []entry
	free    []int32
	seed    uint64
	count   int
}

// New allocates an index with room for exactly capacity in-flight
// fragment trains.
func New(capacity int) *Index {
	if capacity <= 0 {
		capacity = 1
	}
	nb := 1
	for nb < capacity {
		nb <<= 1
	}
	ix := &Index{
		buckets: make([]int32, nb),
		pool:    make([]entry, capacity),
		free:    make([]int32, capacity),
		seed:    generateSeed(),
	}
	for i := range ix.buckets {
		ix.buckets[i] = -1
	}
	for i := 0; i < capacity; i++ {
		ix.free[i] = int32(capacity - 1 - i)
	}
	return ix
}

func (ix *Index) mask() uint64 { return uint64(len(ix.buckets) - 1) }

// Len returns the number of in-flight fragment trains tracked.
func (ix *Index) Len() int { return ix.count }

// Key builds a fragment-index key from endpoints, an optional VLAN tag and
// the IP fragment identifier. addrLen is 4 for IPv4, 16 for IPv6.
func Key(src, dst []byte, vlan uint16, fragID uint32, buf []byte) []byte {
	buf = buf[:0]
	buf = append(buf, src...)
	buf = append(buf, dst...)
	buf = append(buf, byte(vlan>>8), byte(vlan))
	buf = append(buf, byte(fragID>>24), byte(fragID>>16), byte(fragID>>8), byte(fragID))
	return buf
}

// Lookup returns the flow-table slot owning the fragment train for key.
func (ix *Index) Lookup(key []byte) (int32, bool) {
	h := xxh3.HashSeed(key, ix.seed)
	for i := ix.buckets[h&ix.mask()]; i != -1; i = ix.pool[i].next {
		e := &ix.pool[i]
		if e.hash == h && int(e.keyLen) == len(key) && string(e.key[:e.keyLen]) == string(key) {
			return e.value, true
		}
	}
	return -1, false
}

// Insert records that slot owns the fragment train identified by key.
// Insertion is rejected outright on a full pool: the fragment index never
// runs autopilot (§4.6).
func (ix *Index) Insert(key []byte, slot int32) error {
	if len(key) > MaxKeyLen {
		return errors.New("fragindex: key exceeds maximum length")
	}
	if len(ix.free) == 0 {
		return ErrFull
	}
	poolIdx := ix.free[len(ix.free)-1]
	ix.free = ix.free[:len(ix.free)-1]

	h := xxh3.HashSeed(key, ix.seed)
	b := h & ix.mask()

	e := &ix.pool[poolIdx]
	e.inUse = true
	e.keyLen = uint8(len(key))
	copy(e.key[:], key)
	e.hash = h
	e.value = slot
	e.next = ix.buckets[b]
	ix.buckets[b] = poolIdx

	ix.count++
	return nil
}

// Remove drops the fragment train identified by key, e.g. on receipt of
// the last fragment (MF=0) or when the owning flow is evicted while
// fragmentation is pending (§3 Fragment index invariant (iii)).
func (ix *Index) Remove(key []byte) bool {
	h := xxh3.HashSeed(key, ix.seed)
	b := h & ix.mask()

	prev := int32(-1)
	for i := ix.buckets[b]; i != -1; i = ix.pool[i].next {
		e := &ix.pool[i]
		if e.hash == h && int(e.keyLen) == len(key) && string(e.key[:e.keyLen]) == string(key) {
			if prev == -1 {
				ix.buckets[b] = e.next
			} else {
				ix.pool[prev].next = e.next
			}
			ix.pool[i] = entry{next: -1}
			ix.free = append(ix.free, i)
			ix.count--
			return true
		}
		prev = i
	}
	return false
}

func generateSeed() uint64 {
	for {
		if s := rand.Uint64(); s != 0 {
			return s
		}
	}
}
