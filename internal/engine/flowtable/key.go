package flowtable

import "net"

// Key is a flow identification tuple, laid out the way the teacher's
// EPHashV4/EPHashV6 are (§3 "Flow record", identification tuple): a fixed
// header byte selecting the IP version and VLAN presence, an optional
// 2-byte VLAN tag, source/destination address, source/destination port,
// and protocol number. It is built once per packet and handed to
// hashtable.Table.Lookup/Insert as the raw key bytes.
type Key []byte

const (
	verV4    byte = 0x04
	verV6    byte = 0x06
	vlanFlag byte = 0x80
)

// BuildV4 assembles an IPv4 identification tuple. vlan is included in the
// key only when includeVLAN is set (Open Question 2, SPEC_FULL.md §12).
func BuildV4(src, dst net.IP, srcPort, dstPort uint16, proto uint8, vlan uint16, includeVLAN bool) Key {
	tag := verV4
	hdr := 1
	if includeVLAN {
		tag |= vlanFlag
		hdr += 2
	}
	k := make(Key, hdr+13)
	k[0] = tag
	o := hdr
	if includeVLAN {
		k[1] = byte(vlan >> 8)
		k[2] = byte(vlan)
	}
	copy(k[o:o+4], src.To4())
	k[o+4] = byte(srcPort >> 8)
	k[o+5] = byte(srcPort)
	copy(k[o+6:o+10], dst.To4())
	k[o+10] = byte(dstPort >> 8)
	k[o+11] = byte(dstPort)
	k[o+12] = proto
	return k
}

// BuildV6 assembles an IPv6 identification tuple, analogous to BuildV4.
func BuildV6(src, dst net.IP, srcPort, dstPort uint16, proto uint8, vlan uint16, includeVLAN bool) Key {
	tag := verV6
	hdr := 1
	if includeVLAN {
		tag |= vlanFlag
		hdr += 2
	}
	k := make(Key, hdr+37)
	k[0] = tag
	o := hdr
	if includeVLAN {
		k[1] = byte(vlan >> 8)
		k[2] = byte(vlan)
	}
	copy(k[o:o+16], src.To16())
	k[o+16] = byte(srcPort >> 8)
	k[o+17] = byte(srcPort)
	copy(k[o+18:o+34], dst.To16())
	k[o+34] = byte(dstPort >> 8)
	k[o+35] = byte(dstPort)
	k[o+36] = proto
	return k
}

// header returns the layout offsets for this key's address family.
func (k Key) header() (hdr, addrLen int) {
	if k[0]&vlanFlag != 0 {
		hdr = 3
	} else {
		hdr = 1
	}
	if k[0]&^vlanFlag == verV6 {
		addrLen = 16
	} else {
		addrLen = 4
	}
	return
}

// Reverse returns the key with source/destination swapped, leaving the
// version/VLAN header and protocol byte untouched (mirrors EPHashV4.Reverse).
func (k Key) Reverse() Key {
	hdr, al := k.header()
	rev := make(Key, len(k))
	copy(rev[:hdr], k[:hdr])
	half := al + 2
	copy(rev[hdr:hdr+half], k[hdr+half:hdr+2*half])
	copy(rev[hdr+half:hdr+2*half], k[hdr:hdr+half])
	rev[len(rev)-1] = k[len(k)-1]
	return rev
}

// Decode splits a Key back into its source fields, for plugins that need
// to render the identification tuple (e.g. the basicflow writer).
func (k Key) Decode() (src, dst net.IP, srcPort, dstPort uint16, proto uint8, vlan uint16, hasVLAN bool) {
	hdr, al := k.header()
	hasVLAN = k[0]&vlanFlag != 0
	if hasVLAN {
		vlan = uint16(k[1])<<8 | uint16(k[2])
	}
	src = net.IP(k[hdr : hdr+al])
	dst = net.IP(k[hdr+al+2 : hdr+2*al+2])
	srcPort = uint16(k[hdr+al])<<8 | uint16(k[hdr+al+1])
	dstPort = uint16(k[hdr+2*al+2])<<8 | uint16(k[hdr+2*al+3])
	proto = k[len(k)-1]
	return
}

// IsProbablyReverse applies the teacher's cheap port-ordering heuristic
// (EPHashV4.IsProbablyReverse) to decide, without a table lookup, whether
// a packet most likely belongs to the reverse direction of an existing flow.
func (k Key) IsProbablyReverse() bool {
	hdr, al := k.header()
	srcPortOff := hdr + al
	dstPortOff := hdr + al + 2 + al

	sp0, sp1 := k[srcPortOff], k[srcPortOff+1]
	dp0, dp1 := k[dstPortOff], k[dstPortOff+1]

	if sp0 == 0 && sp1 == 0 {
		return false
	}
	if dp0 == 0 && dp1 == 0 {
		return true
	}
	if sp0 < dp0 {
		return true
	}
	if sp0 == dp0 {
		return sp1 < dp1
	}
	return false
}
