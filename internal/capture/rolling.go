package capture

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lavanyaayna9/flowmeter/internal/dissect/linklayer"
)

// RollingSpec is a parsed `-D EXPR[:SEP][,STOP]` argument (§6 "watch a
// rolling numeric-suffixed capture series with optional upper bound"):
// EXPR is the path prefix shared by every file in the series, SEP is the
// separator placed before the numeric suffix (default "."), and an
// optional STOP caps the highest suffix the watcher will wait for before
// reporting the series exhausted instead of polling forever.
type RollingSpec struct {
	Base    string
	Sep     string
	Stop    int
	HasStop bool
}

// ParseRollingSpec parses the `-D` argument. Examples: "/cap/trace",
// "/cap/trace:_", "/cap/trace:_,99".
func ParseRollingSpec(spec string) (RollingSpec, error) {
	rs := RollingSpec{Sep: "."}

	rest := spec
	if i := strings.LastIndex(rest, ","); i >= 0 {
		stopStr := rest[i+1:]
		rest = rest[:i]
		n, err := strconv.Atoi(stopStr)
		if err != nil {
			return RollingSpec{}, fmt.Errorf("capture: invalid -D stop suffix %q: %w", stopStr, err)
		}
		rs.Stop, rs.HasStop = n, true
	}
	if i := strings.LastIndex(rest, ":"); i >= 0 {
		rs.Sep = rest[i+1:]
		rest = rest[:i]
	}
	if rest == "" {
		return RollingSpec{}, fmt.Errorf("capture: -D expression must name a path prefix")
	}
	rs.Base = rest
	return rs, nil
}

func (rs RollingSpec) pathFor(n int) string {
	return rs.Base + rs.Sep + strconv.Itoa(n)
}

const (
	rollingPollInitial = 50 * time.Millisecond
	rollingPollMax     = 5 * time.Second
)

// RollingSource watches a numeric-suffixed series of capture files,
// replaying them in ascending order and, when the next file in sequence
// does not yet exist, polling for it with bounded exponential backoff
// (§4.5 "Recoverable I/O: capture source transiently closed (rolling-file
// case) -> poll with bounded backoff").
type RollingSource struct {
	spec RollingSpec
	next int
	cur  *FileSource
	// sleep is overridable by tests so backoff does not slow down the
	// suite.
	sleep func(time.Duration)
}

// OpenRolling starts watching the series described by spec, opening the
// first file immediately if it exists and otherwise polling for it.
func OpenRolling(spec RollingSpec) (*RollingSource, error) {
	rs := &RollingSource{spec: spec, sleep: time.Sleep}
	if err := rs.openNext(); err != nil {
		return nil, err
	}
	return rs, nil
}

func (r *RollingSource) openNext() error {
	if r.cur != nil {
		_ = r.cur.Close()
		r.cur = nil
	}
	if r.spec.HasStop && r.next > r.spec.Stop {
		return ErrCaptureStopped
	}

	backoff := rollingPollInitial
	for {
		src, err := OpenFile(r.spec.pathFor(r.next))
		if err == nil {
			r.cur = src
			r.next++
			return nil
		}
		r.sleep(backoff)
		backoff *= 2
		if backoff > rollingPollMax {
			backoff = rollingPollMax
		}
	}
}

func (r *RollingSource) NextPacket(buf *Packet) (*Packet, error) {
	for {
		if r.cur == nil {
			return nil, ErrCaptureStopped
		}
		pkt, err := r.cur.NextPacket(buf)
		if err == nil {
			return pkt, nil
		}
		if err != ErrCaptureStopped {
			return nil, err
		}
		if advErr := r.openNext(); advErr != nil {
			return nil, advErr
		}
	}
}

func (r *RollingSource) Stats() (Stats, error) {
	if r.cur == nil {
		return Stats{}, nil
	}
	return r.cur.Stats()
}

func (r *RollingSource) LinkType() linklayer.Type {
	if r.cur == nil {
		return linklayer.Ethernet
	}
	return r.cur.LinkType()
}

func (r *RollingSource) Unblock() error { return nil }

func (r *RollingSource) Close() error {
	if r.cur != nil {
		return r.cur.Close()
	}
	return nil
}
