// Package lru implements the process-wide doubly-linked list threaded
// through the flow table (§3 "LRU", §9 Design Notes). Rather than owning
// pointers, the list is represented as parallel prev/next arrays indexed by
// flow-table slot ("arena + index"), which avoids cyclic ownership and
// keeps flow records contiguous for cache locality.
package lru

// node holds the prev/next slot indices for one list element. Index -1 is
// never a valid slot; the dedicated root sentinel terminates both ends.
type node struct {
	prev, next int32
}

// List is a circular doubly-linked list over an index space of size n.
// Index `root` is a reserved, content-less sentinel: root.next is the
// most-recently-used element (the "head"), root.prev is the
// least-recently-used element (the "tail").
type List struct {
	nodes []node
	root  int32
}

// New creates a List over n indices plus one implicit root sentinel at
// index n. Callers must reserve index n (and any additional sentinel
// indices beyond it) themselves; New only sizes the prev/next arena.
func New(n int) *List {
	l := &List{
		nodes: make([]node, n+1),
		root:  int32(n),
	}
	l.nodes[l.root] = node{prev: l.root, next: l.root}
	return l
}

// Root returns the sentinel index that divides head from tail.
func (l *List) Root() int32 { return l.root }

// Head returns the most-recently-used slot index, or Root() if the list is empty.
func (l *List) Head() int32 { return l.nodes[l.root].next }

// Tail returns the least-recently-used slot index, or Root() if the list is empty.
func (l *List) Tail() int32 { return l.nodes[l.root].prev }

// Next returns the slot index that is older than idx (towards the tail).
func (l *List) Next(idx int32) int32 { return l.nodes[idx].next }

// Prev returns the slot index that is younger than idx (towards the head).
func (l *List) Prev(idx int32) int32 { return l.nodes[idx].prev }

// Remove unlinks idx from wherever it currently sits in the list.
func (l *List) Remove(idx int32) {
	n := l.nodes[idx]
	l.nodes[n.prev].next = n.next
	l.nodes[n.next].prev = n.prev
}

// PushFront links idx in at the head (most-recently-used position).
func (l *List) PushFront(idx int32) {
	head := l.nodes[l.root].next
	l.nodes[idx] = node{prev: l.root, next: head}
	l.nodes[head].prev = idx
	l.nodes[l.root].next = idx
}

// PushBack links idx in at the tail (least-recently-used position). Used to
// register a fresh timeout-class sentinel, which must start out older than
// every currently tracked flow (§4.5).
func (l *List) PushBack(idx int32) {
	tail := l.nodes[l.root].prev
	l.nodes[idx] = node{prev: tail, next: l.root}
	l.nodes[tail].next = idx
	l.nodes[l.root].prev = idx
}

// MoveToFront unlinks idx and reinserts it at the head. This is the
// operation driven by every packet dispatch (§4.7 step 6).
func (l *List) MoveToFront(idx int32) {
	l.Remove(idx)
	l.PushFront(idx)
}

// InsertBefore links idx in immediately in front of target (on target's
// tail side), without disturbing target's other neighbor. Used to migrate
// a timeout sentinel to just behind the last flow it inspected (§4.5).
func (l *List) InsertBefore(target, idx int32) {
	n := l.nodes[target].next
	l.nodes[idx] = node{prev: target, next: n}
	l.nodes[n].prev = idx
	l.nodes[target].next = idx
}
