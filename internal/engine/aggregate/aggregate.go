// Package aggregate implements the rotation-interval aggregation view
// (SPEC_FULL.md §10, supplemented feature): a compact map of terminated-
// flow counters keyed by the same identification tuple, snapshotted
// periodically so a monitoring sink can report interval deltas without
// re-reading the full flow table. Grounded on els0r-goProbe's
// pkg/capture/flow.go transferAndAggregate / hashmap.Map.Merge pattern.
package aggregate

import "sync"

// Counters holds the byte/packet tallies accumulated for one key since
// the last rotation.
type Counters struct {
	BytesRcvd, BytesSent     uint64
	PacketsRcvd, PacketsSent uint64
}

// Map is a rotation-interval aggregation map. Unlike the main flow table
// it has no fixed capacity or eviction policy: entries live only between
// rotations.
type Map struct {
	mu      sync.Mutex
	entries map[string]*Counters
}

// New creates an empty aggregation map.
func New() *Map { return &Map{entries: make(map[string]*Counters)} }

// Add merges one terminated flow's counters into the map, the way
// transferAndAggregate folds a retiring Flow into the rotation's
// AggFlowMap.
func (m *Map) Add(key string, bytesRcvd, bytesSent, packetsRcvd, packetsSent uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.entries[key]
	if !ok {
		c = &Counters{}
		m.entries[key] = c
	}
	c.BytesRcvd += bytesRcvd
	c.BytesSent += bytesSent
	c.PacketsRcvd += packetsRcvd
	c.PacketsSent += packetsSent
}

// Rotate drains and returns the current snapshot, resetting the map for
// the next interval (mirrors FlowLog.Rotate's "merge and clear" semantics).
func (m *Map) Rotate() map[string]Counters {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Counters, len(m.entries))
	for k, v := range m.entries {
		out[k] = *v
	}
	m.entries = make(map[string]*Counters)
	return out
}

// Len reports how many distinct keys are pending in the current interval.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
