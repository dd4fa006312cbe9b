package dissect

import (
	"net"

	"github.com/lavanyaayna9/flowmeter/internal/engine/status"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// decodeIPv4 parses an IPv4 header at offset off in d.Raw, handling
// fragmentation detection and the payload-length-mismatch anomaly (§4.3
// "L3"), then hands off to L4.
func decodeIPv4(d *Descriptor, off, depth int) bool {
	if off+ipv4.HeaderLen > len(d.Raw) {
		d.Status = d.Status.Set(status.ShortHeader)
		return false
	}
	b := d.Raw[off:]

	ihl := int(b[0]&0x0f) * 4
	if ihl < ipv4.HeaderLen || off+ihl > len(d.Raw) {
		d.Status = d.Status.Set(status.IPHeaderTruncated)
		return false
	}
	totalLen := int(be16(b[2:]))
	proto := b[9]

	flags := b[6] >> 5
	fragOffset := (uint16(b[6]&0x1f) << 8) | uint16(b[7])
	mf := flags&0x1 != 0

	// packetCapture.c reads ip_id unconditionally from every IPv4 header of
	// an existing flow's packets, fragmented or not, to drive DUPIPID.
	d.IPID = be16(b[4:6])

	if fragOffset != 0 || mf {
		d.Status = d.Status.Set(status.IPv4Frag)
		d.IsFragment = true
		d.FragMore = mf
		d.FragFirst = fragOffset == 0
		d.FragOffset = fragOffset
		d.FragID = uint32(d.IPID)
		if d.FragFirst && mf {
			d.Status = d.Status.Set(status.IPv4FragPending)
		}
	}

	// §3 "payload length != frame length" anomaly: compare the declared
	// total length against what was actually captured/on the wire,
	// replicated faithfully including the degenerate zero/zero case
	// (SPEC_FULL.md §12 decision 3).
	if totalLen != d.CapLen-off && totalLen != d.WireLen-off {
		d.Status = d.Status.Set(status.IPPayloadLenMismatch)
	}

	src := net.IP(append(net.IP{}, b[12:16]...))
	dst := net.IP(append(net.IP{}, b[16:20]...))
	d.pushHeader("ipv4")

	if d.IsFragment && !d.FragFirst {
		// Non-first fragments carry no L4 header; attribution happens via
		// the fragment index in the engine layer, not here.
		d.SrcIP, d.DstIP, d.Proto = src, dst, proto
		return true
	}

	return decodeL4(d, proto, off+ihl, src, dst, depth)
}

// decodeIPv6 parses an IPv6 header and any extension header chain (§4.3
// "L3": "hop-by-hop, destination, routing, fragment, AH").
func decodeIPv6(d *Descriptor, off, depth int) bool {
	if off+ipv6.HeaderLen > len(d.Raw) {
		d.Status = d.Status.Set(status.ShortHeader)
		return false
	}
	b := d.Raw[off:]
	nextHdr := b[6]
	src := net.IP(append(net.IP{}, b[8:24]...))
	dst := net.IP(append(net.IP{}, b[24:40]...))
	d.pushHeader("ipv6")

	cursor := off + ipv6.HeaderLen
	for i := 0; i < 8; i++ {
		switch nextHdr {
		case 0, 60, 43: // hop-by-hop, destination options, routing
			if cursor+2 > len(d.Raw) {
				d.Status = d.Status.Set(status.ShortHeader)
				return false
			}
			d.Status = d.Status.Set(status.IPv6ExtHdr)
			d.pushHeader("ipv6ext")
			extLen := (int(d.Raw[cursor+1]) + 1) * 8
			nextHdr = d.Raw[cursor]
			cursor += extLen
			continue
		case 44: // fragment
			if cursor+8 > len(d.Raw) {
				d.Status = d.Status.Set(status.ShortHeader)
				return false
			}
			d.Status = d.Status.Set(status.IPv6Frag)
			d.pushHeader("ipv6frag")
			fragOffset := be16(d.Raw[cursor+2:]) >> 3
			mf := d.Raw[cursor+3]&0x1 != 0
			d.IsFragment = true
			d.FragMore = mf
			d.FragFirst = fragOffset == 0
			d.FragOffset = fragOffset
			d.FragID = be32(d.Raw[cursor+4:])
			if d.FragFirst && mf {
				d.Status = d.Status.Set(status.IPv6FragPending)
			}
			nextHdr = d.Raw[cursor]
			cursor += 8
			if !d.FragFirst {
				d.SrcIP, d.DstIP, d.Proto = src, dst, nextHdr
				return true
			}
			continue
		case 51: // AH
			if cursor+2 > len(d.Raw) {
				d.Status = d.Status.Set(status.ShortHeader)
				return false
			}
			d.pushHeader("ah")
			extLen := (int(d.Raw[cursor+1]) + 2) * 4
			nextHdr = d.Raw[cursor]
			cursor += extLen
			continue
		}
		break
	}

	return decodeL4(d, nextHdr, cursor, src, dst, depth)
}
