// Package capture abstracts over the ways a frame stream can reach the
// dispatch loop (§6 "Input selection"): a live interface, a single capture
// file (including stdin), a list of capture files, or a rolling
// numeric-suffixed series. Every concrete source satisfies the same
// Source contract so Dispatch never needs to know which one is active.
package capture

import (
	"errors"

	"github.com/lavanyaayna9/flowmeter/internal/dissect/linklayer"
)

// ErrCaptureStopped is returned by NextPacket once the source has been
// closed, either directly or because the underlying file/series is
// exhausted.
var ErrCaptureStopped = errors.New("capture: source stopped")

// ErrCaptureUnblock is returned by NextPacket when a blocking read was
// interrupted by Unblock, without the source itself being closed (used to
// let a live capture's processing goroutine notice a pending rotation or
// shutdown request without losing its place).
var ErrCaptureUnblock = errors.New("capture: read unblocked")

// Direction records which way a packet crossed the capturing interface,
// when the source can tell. Live captures generally can; replayed files
// generally cannot and report DirectionUnknown.
type Direction uint8

const (
	DirectionUnknown Direction = iota
	DirectionIncoming
	DirectionOutgoing
)

// Packet is one captured frame as handed from a Source to Dispatch. Data
// holds exactly CapLen captured bytes; WireLen may exceed CapLen when the
// source truncated the frame to a snap length.
type Packet struct {
	Data      []byte
	CapLen    int
	WireLen   int
	TimestampNS int64
	Dir       Direction
}

// Stats mirrors slimcap's capture.Stats: packets seen and dropped by the
// kernel ring (or, for a file source, always zero drops).
type Stats struct {
	PacketsReceived uint64
	PacketsDropped  uint64
}

// Source is the minimal capture surface the engine's run loop needs. It
// mirrors slimcap's capture.Source / capture.SourceZeroCopy contract
// (github.com/fako1024/slimcap/capture): NextPacket blocks until a frame
// is available, the source is closed, or Unblock is called from another
// goroutine to interrupt a pending read (used to let rotation or signal
// handling preempt a live capture sitting in a kernel poll).
type Source interface {
	// NextPacket blocks until the next frame is available. buf, when
	// non-nil and large enough, may be reused to avoid an allocation; the
	// returned Packet's Data may alias buf's backing array and is only
	// valid until the next call to NextPacket.
	NextPacket(buf *Packet) (*Packet, error)
	Stats() (Stats, error)
	LinkType() linklayer.Type
	Unblock() error
	Close() error
}
