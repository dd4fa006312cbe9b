package dissect

import (
	"github.com/lavanyaayna9/flowmeter/internal/dissect/linklayer"
	"github.com/lavanyaayna9/flowmeter/internal/engine/status"
)

// Dissect runs the full link -> L2.5 -> L3 -> L4 chain over raw, filling
// in d's identification tuple, header description and status bits (§4.3).
// It returns false if the frame could not be attributed to any flow (e.g.
// unsupported link type, truncated header) — the caller then only bumps
// global counters (§4.7 step 4).
func Dissect(d *Descriptor, lt linklayer.Type) bool {
	hdr, ok := linklayer.Lookup(lt)
	if !ok {
		d.Status = d.Status.Set(status.L2Unsupported)
		return false
	}
	d.pushHeader(hdr.Token)

	if len(d.Raw) < hdr.Skip {
		d.Status = d.Status.Set(status.ShortHeader)
		return false
	}

	var ethertype uint16
	if hdr.EtherTypeOffset >= 0 && hdr.EtherTypeOffset+2 <= len(d.Raw) {
		ethertype = be16(d.Raw[hdr.EtherTypeOffset:])
	} else if hdr.EtherTypeOffset < 0 && hdr.Skip < len(d.Raw) {
		// no ethertype field: take the family from the IP version nibble
		switch d.Raw[hdr.Skip] >> 4 {
		case 4:
			ethertype = linklayer.EtherTypeIPv4
		case 6:
			ethertype = linklayer.EtherTypeIPv6
		}
	}
	off := hdr.Skip

	// Walk VLAN / MPLS / SNAP (§4.3 "L2.5 / bridging") when the link layer
	// exposed an ethertype to inspect (Ethernet, Linux cooked, Cisco HDLC).
	if hdr.EtherTypeOffset >= 0 {
		var stop bool
		off, ethertype, stop = walkL2Point5(d, off, ethertype)
		if stop {
			return false
		}
	}
	d.EtherTypeOuter = ethertype
	d.EtherTypeInner = ethertype

	return dispatchEtherType(d, off, ethertype, 0)
}

// walkL2Point5 peels VLAN tags, MPLS label stacks and SNAP/LLC headers
// until it reaches an IP ethertype or exhausts its bound.
func walkL2Point5(d *Descriptor, off int, ethertype uint16) (int, uint16, bool) {
	for tags := 0; tags < MaxVLANTags; tags++ {
		switch ethertype {
		case linklayer.EtherTypeVLAN, linklayer.EtherTypeVLANAd:
			if off+4 > len(d.Raw) {
				d.Status = d.Status.Set(status.ShortHeader)
				return off, ethertype, true
			}
			tci := be16(d.Raw[off:])
			d.VLAN = tci & 0x0fff
			if tci&0xe000 != 0 {
				d.Status = d.Status.Set(status.L2VlanPriorityTag)
			}
			d.Status = d.Status.Set(status.L2Vlan)
			d.pushHeader("vlan")
			ethertype = be16(d.Raw[off+2:])
			off += 4
			continue
		case linklayer.EtherTypeMPLSUC, linklayer.EtherTypeMPLSMC:
			d.Status = d.Status.Set(status.L2Mpls)
			if ethertype == linklayer.EtherTypeMPLSUC {
				d.Status = d.Status.Set(status.L2MplsUcast)
			}
			d.pushHeader("mpls")
			bos := false
			for !bos {
				if off+4 > len(d.Raw) {
					d.Status = d.Status.Set(status.ShortHeader)
					return off, ethertype, true
				}
				label := be32(d.Raw[off:])
				bos = label&0x100 != 0
				off += 4
			}
			// Heuristically assume an IPv4 payload follows the label stack;
			// the dispatch step below falls back gracefully if that's wrong.
			ethertype = linklayer.EtherTypeIPv4
			continue
		}
		break
	}

	// SNAP/LLC: a 3-byte 0xAA 0xAA 0x03 DSAP/SSAP/control prefix followed
	// by a 3-byte OUI and a 2-byte ethertype (§4.3 "handle SNAP/LLC").
	if off+8 <= len(d.Raw) && d.Raw[off] == 0xaa && d.Raw[off+1] == 0xaa && d.Raw[off+2] == 0x03 {
		d.Status = d.Status.Set(status.L2Snap)
		d.pushHeader("snap")
		ethertype = be16(d.Raw[off+6:])
		off += 8
	}

	return off, ethertype, false
}

func dispatchEtherType(d *Descriptor, off int, ethertype uint16, depth int) bool {
	switch ethertype {
	case linklayer.EtherTypeIPv4:
		return decodeIPv4(d, off, depth)
	case linklayer.EtherTypeIPv6:
		return decodeIPv6(d, off, depth)
	default:
		d.Status = d.Status.Set(status.L2Unsupported)
		return false
	}
}

func be16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
