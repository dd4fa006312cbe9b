// Package linklayer selects dissection behavior by capture link type
// (§4.3 "Link layer"). The dispatch table is keyed the way
// fako1024/gotools/link enumerates interfaces (a Link carries a Name;
// here the same flat, data-driven table style picks a header-stripping
// strategy by numeric link type instead of by interface name).
package linklayer

// Type is a capture link-layer type, numbered the way libpcap's DLT_*
// constants are, since that is the wire-visible identifier capture
// sources (live or file-replayed) hand the dissector.
type Type uint32

// Recognized link types (§4.3 enumerates these explicitly). Types with an
// EtherTypeOffset are dispatched on that field; the others on the IP
// version nibble right after their fixed-size header, so a frame that does
// not carry bare IPv4/IPv6 there (such as an 802.11 LLC/SNAP payload) is
// left unattributed.
const (
	Null            Type = 0
	Ethernet        Type = 1
	Raw             Type = 101
	FrameRelay      Type = 107
	Loop            Type = 108
	LinuxCooked     Type = 113
	IEEE80211       Type = 105
	PPP             Type = 9
	CiscoHDLC       Type = 104
	IEEE80211Prism  Type = 119
	IEEE80211Radio  Type = 127
	LAPD            Type = 177
	PPI             Type = 192
	JuniperEthernet Type = 178
	SymantecFirewall Type = 99
	MPacket         Type = 198
)

// Header describes how many bytes a link-layer frame reserves before its
// L2.5/L3 payload begins, and the token recorded in the header description.
type Header struct {
	Skip  int
	Token string
	// EtherTypeOffset, when >= 0, is the byte offset (from frame start) of
	// a 2-byte big-endian ethertype/protocol field consumed as part of Skip.
	EtherTypeOffset int
}

var table = map[Type]Header{
	Null:             {Skip: 4, Token: "null", EtherTypeOffset: -1},
	Ethernet:         {Skip: 14, Token: "eth", EtherTypeOffset: 12},
	Raw:              {Skip: 0, Token: "raw", EtherTypeOffset: -1},
	Loop:             {Skip: 4, Token: "loop", EtherTypeOffset: -1},
	LinuxCooked:      {Skip: 16, Token: "sll", EtherTypeOffset: 14},
	PPP:              {Skip: 2, Token: "ppp", EtherTypeOffset: -1},
	CiscoHDLC:        {Skip: 4, Token: "chdlc", EtherTypeOffset: 2},
	FrameRelay:       {Skip: 4, Token: "fr", EtherTypeOffset: -1},
	IEEE80211:        {Skip: 24, Token: "ieee80211", EtherTypeOffset: -1},
	IEEE80211Prism:   {Skip: 144, Token: "prism", EtherTypeOffset: -1},
	IEEE80211Radio:   {Skip: 8, Token: "radiotap", EtherTypeOffset: -1},
	LAPD:             {Skip: 3, Token: "lapd", EtherTypeOffset: -1},
	PPI:              {Skip: 8, Token: "ppi", EtherTypeOffset: -1},
	JuniperEthernet:  {Skip: 4, Token: "juniper", EtherTypeOffset: -1},
	SymantecFirewall: {Skip: 6, Token: "firewall", EtherTypeOffset: -1},
	MPacket:          {Skip: 0, Token: "mpacket", EtherTypeOffset: -1},
}

// Lookup returns the header-stripping strategy for t, and false for any
// link type the dissector does not recognize (§4.3: "unsupported types
// produce a warning and skip the frame").
func Lookup(t Type) (Header, bool) {
	h, ok := table[t]
	return h, ok
}

// EtherType well-known values consulted after stripping the link header
// (and after walking any VLAN/MPLS/SNAP stack, §4.3 "L2.5 / bridging").
const (
	EtherTypeIPv4    = 0x0800
	EtherTypeARP     = 0x0806
	EtherTypeVLAN    = 0x8100
	EtherTypeVLANAd  = 0x88a8
	EtherTypeIPv6    = 0x86dd
	EtherTypeMPLSUC  = 0x8847
	EtherTypeMPLSMC  = 0x8848
	EtherTypePPPoE   = 0x8864
)
