package dissect

import (
	"net"

	"github.com/lavanyaayna9/flowmeter/internal/dissect/linklayer"
	"github.com/lavanyaayna9/flowmeter/internal/engine/status"
)

// IP protocol numbers relevant at L4 (§4.3 "L4").
const (
	protoICMP   = 0x01
	protoIGMP   = 0x02
	protoTCP    = 0x06
	protoUDP    = 0x11
	protoGRE    = 0x2f
	protoESP    = 0x32
	protoAH     = 0x33
	protoICMPv6 = 0x3a
	protoOSPF   = 0x59
	protoPIM    = 0x67
	protoL2TPv3 = 0x73
	protoSCTP   = 0x84
	protoUDPLite = 0x88
)

// Well-known UDP ports identifying tunneled payloads by port (§4.3
// "identifying known tunneled payloads ... by port or signature").
const (
	portTeredo = 3544
	portVXLAN  = 4789
	portGENEVE = 6081
	portCAPWAP = 5247
	portL2TP   = 1701
	portGTP    = 2152
	portAYIYA  = 5072
)

func decodeL4(d *Descriptor, proto uint8, off int, src, dst net.IP, depth int) bool {
	d.SrcIP, d.DstIP, d.Proto = src, dst, proto
	d.L4Off = off

	switch proto {
	case protoTCP:
		return decodeTCP(d, off)
	case protoUDP, protoUDPLite:
		return decodeUDP(d, off, depth)
	case protoSCTP:
		return decodeSCTP(d, off)
	case protoICMP:
		d.Status = d.Status.Set(status.L3ICMP)
		d.pushHeader("icmp")
		if off < len(d.Raw) {
			d.TCPFlags = d.Raw[off]
		}
		return true
	case protoICMPv6:
		d.Status = d.Status.Set(status.L3ICMP)
		d.pushHeader("icmpv6")
		if off < len(d.Raw) {
			d.TCPFlags = d.Raw[off]
		}
		return true
	case protoIGMP:
		d.pushHeader("igmp")
		return true
	case protoOSPF:
		d.pushHeader("ospf")
		return true
	case protoPIM:
		d.pushHeader("pim")
		return true
	case protoGRE:
		return decodeGRE(d, off, depth)
	case protoL2TPv3:
		d.pushHeader("l2tp")
		return true
	case protoESP:
		d.Status = d.Status.Set(status.L3ESP)
		d.pushHeader("esp")
		return true
	case protoAH:
		d.Status = d.Status.Set(status.L3AH)
		d.pushHeader("ah")
		return true
	default:
		d.pushHeader("ip")
		return true
	}
}

func decodeTCP(d *Descriptor, off int) bool {
	if off+20 > len(d.Raw) {
		d.Status = d.Status.Set(status.ShortHeader)
		return false
	}
	b := d.Raw[off:]
	d.Status = d.Status.Set(status.L3TCP)
	d.pushHeader("tcp")
	d.SrcPort = be16(b)
	d.DstPort = be16(b[2:])
	d.TCPFlags = b[13]
	if d.SrcIP.Equal(d.DstIP) && d.SrcPort == d.DstPort {
		d.Status = d.Status.Set(status.LandAttack)
	}
	dataOff := int(b[12]>>4) * 4
	d.L7Off = off + dataOff
	return true
}

func decodeUDP(d *Descriptor, off, depth int) bool {
	if off+8 > len(d.Raw) {
		d.Status = d.Status.Set(status.ShortHeader)
		return false
	}
	b := d.Raw[off:]
	d.Status = d.Status.Set(status.L3UDP)
	d.pushHeader("udp")
	d.SrcPort = be16(b)
	d.DstPort = be16(b[2:])
	d.L7Off = off + 8

	if depth >= MaxTunnelDepth {
		return true
	}

	payload := off + 8
	switch {
	case d.SrcPort == portTeredo || d.DstPort == portTeredo:
		d.Status = d.Status.Set(status.L3Teredo)
		d.pushHeader("teredo")
		return decodeIPv6(d, payload, depth+1)
	case d.SrcPort == portVXLAN || d.DstPort == portVXLAN:
		d.Status = d.Status.Set(status.L3VXLAN)
		d.pushHeader("vxlan")
		return decodeInnerEthernet(d, payload+8, depth+1)
	case d.SrcPort == portGENEVE || d.DstPort == portGENEVE:
		d.Status = d.Status.Set(status.L3GENEVE)
		d.pushHeader("geneve")
		return decodeInnerEthernet(d, payload+8, depth+1)
	case d.SrcPort == portCAPWAP || d.DstPort == portCAPWAP:
		d.Status = d.Status.Set(status.L3CAPWAP)
		d.pushHeader("capwap")
		return decodeInnerEthernet(d, payload+8, depth+1)
	case d.SrcPort == portL2TP || d.DstPort == portL2TP:
		d.pushHeader("l2tp")
		return true
	case d.SrcPort == portGTP || d.DstPort == portGTP:
		d.Status = d.Status.Set(status.L3GTP)
		d.pushHeader("gtp")
		return decodeIPv4(d, payload+8, depth+1)
	case d.SrcPort == portAYIYA || d.DstPort == portAYIYA:
		d.Status = d.Status.Set(status.L3AYIYA)
		d.pushHeader("ayiya")
		return true
	}
	return true
}

// decodeGRE strips a (possibly checksummed) GRE header and recurses into
// the inner IP payload (§4.3 "Tunnel recursion").
func decodeGRE(d *Descriptor, off, depth int) bool {
	d.Status = d.Status.Set(status.L2Gre)
	d.pushHeader("gre")
	if off+4 > len(d.Raw) {
		d.Status = d.Status.Set(status.ShortHeader)
		return false
	}
	flags := be16(d.Raw[off:])
	proto := be16(d.Raw[off+2:])
	hdrLen := 4
	if flags&0x8000 != 0 { // checksum present
		hdrLen += 4
	}
	if flags&0x2000 != 0 { // key present
		hdrLen += 4
	}
	if flags&0x1000 != 0 { // sequence present
		hdrLen += 4
	}
	if depth >= MaxTunnelDepth {
		return true
	}
	switch proto {
	case linklayer.EtherTypeIPv4:
		return decodeIPv4(d, off+hdrLen, depth+1)
	case linklayer.EtherTypeIPv6:
		return decodeIPv6(d, off+hdrLen, depth+1)
	default:
		return true
	}
}

// decodeInnerEthernet parses a minimal Ethernet header (dst/src MAC +
// ethertype) for tunnels that encapsulate a full L2 frame (VXLAN, GENEVE,
// CAPWAP data channel), then resumes L3 decode.
func decodeInnerEthernet(d *Descriptor, off, depth int) bool {
	if off+14 > len(d.Raw) {
		d.Status = d.Status.Set(status.ShortHeader)
		return false
	}
	d.pushHeader("eth")
	ethertype := be16(d.Raw[off+12:])
	switch ethertype {
	case linklayer.EtherTypeIPv4:
		return decodeIPv4(d, off+14, depth)
	case linklayer.EtherTypeIPv6:
		return decodeIPv6(d, off+14, depth)
	default:
		return true
	}
}

// decodeSCTP reads the SCTP ports and walks the chunks of a single packet,
// stepping over each chunk's padding, until the first DATA chunk, whose
// stream identifier it records in SCTPStreamID. The engine's flow key
// holds addresses, ports and protocol only, so neither the stream
// identifier nor the verification tag separates SCTP flows, and DATA
// chunks after the first are not examined.
func decodeSCTP(d *Descriptor, off int) bool {
	if off+12 > len(d.Raw) {
		d.Status = d.Status.Set(status.ShortHeader)
		return false
	}
	b := d.Raw[off:]
	d.Status = d.Status.Set(status.L3SCTP)
	d.pushHeader("sctp")
	d.SrcPort = be16(b)
	d.DstPort = be16(b[2:])

	cursor := off + 12
	for cursor+4 <= len(d.Raw) {
		chunkType := d.Raw[cursor]
		chunkLen := int(be16(d.Raw[cursor+2:]))
		if chunkLen < 4 {
			break
		}
		if chunkType == 0 { // DATA
			if cursor+8 <= len(d.Raw) {
				d.SCTPStreamID = be16(d.Raw[cursor+4:])
				d.HasSCTPData = true
			}
			break
		}
		padded := chunkLen + (4-chunkLen%4)%4
		cursor += padded
	}
	return true
}
