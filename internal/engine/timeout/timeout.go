// Package timeout implements the timeout manager (§4.5). Each distinct
// timeout value in use gets its own sentinel flow threaded into the
// process-wide LRU; ticking a class walks backward from its sentinel
// towards the head, evicting flows that have aged past the class's
// timeout, then migrates the sentinel to sit just behind the last flow it
// looked at so the next tick resumes from there instead of rescanning.
package timeout

import (
	"time"

	"github.com/lavanyaayna9/flowmeter/internal/engine/flowtable"
	"github.com/lavanyaayna9/flowmeter/internal/engine/status"
)

// Terminate is invoked once per flow the manager decides to evict. reason
// is status.TimedOut; the caller (the engine's lifecycle code) performs the
// actual termination procedure (§4.2).
type Terminate func(slot int32, reason status.Bits)

type class struct {
	timeoutNS int64
	sentinel  int32
}

// Manager owns the ordered (descending timeout) list of classes.
type Manager struct {
	ft      *flowtable.Table
	classes []*class
	byValue map[int64]*class
}

// New creates a manager bound to ft. Classes are registered lazily via
// Register the first time a flow requests a given timeout value.
func New(ft *flowtable.Table) *Manager {
	return &Manager{ft: ft, byValue: make(map[int64]*class)}
}

// Register ensures a sentinel exists for timeoutSeconds, inserting it into
// the descending-order class list if this is the first flow to request it.
func (m *Manager) Register(timeoutSeconds int64) error {
	if _, ok := m.byValue[timeoutSeconds]; ok {
		return nil
	}
	ns := timeoutSeconds * int64(time.Second)
	sentinel, err := m.ft.AllocSentinel(timeoutSeconds)
	if err != nil {
		return err
	}
	c := &class{timeoutNS: ns, sentinel: sentinel}
	m.byValue[timeoutSeconds] = c

	i := 0
	for ; i < len(m.classes); i++ {
		if m.classes[i].timeoutNS < ns {
			break
		}
	}
	m.classes = append(m.classes, nil)
	copy(m.classes[i+1:], m.classes[i:])
	m.classes[i] = c
	return nil
}

// Tick walks every class from its sentinel towards the head, evicting
// flows that are at least class.timeout seconds older than now (and whose
// opposite, if any, is equally old), then repositions the sentinel.
func (m *Manager) Tick(nowNS int64, terminate Terminate) {
	root := m.ft.List().Root()
	for _, c := range m.classes {
		cur := m.ft.List().Prev(c.sentinel)
		for cur != root {
			rec := m.ft.Record(cur)
			if rec.IsSentinel {
				cur = m.ft.List().Prev(cur)
				continue
			}

			age := nowNS - rec.LastSeen
			if age < c.timeoutNS {
				break
			}
			if rec.Opposite != flowtable.NoSlot {
				opp := m.ft.Record(rec.Opposite)
				if nowNS-opp.LastSeen < c.timeoutNS {
					break
				}
			}

			next := m.ft.List().Prev(cur)
			terminate(cur, status.TimedOut)
			cur = next
		}

		m.ft.List().Remove(c.sentinel)
		if cur == root {
			m.ft.List().PushFront(c.sentinel)
		} else {
			m.ft.List().InsertBefore(cur, c.sentinel)
		}
	}
}
