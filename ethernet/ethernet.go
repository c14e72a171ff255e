// Package ethernet holds the handful of link-layer constants the address
// resolution core needs to speak of: EtherType values used to tag ARP and
// IP payloads, and the broadcast hardware address. Full Ethernet frame
// encoding/decoding (VLAN tags, FCS) is owned by the L2 demux layer, which
// is an external collaborator of this module (see package arp).
package ethernet

import "strconv"

// Type is an EtherType, the 16-bit field identifying the payload protocol
// carried by an Ethernet frame.
type Type uint16

// IsSize reports whether et is actually the size of an 802.3 payload rather
// than an EtherType; values <= 1500 are reserved for that purpose.
func (et Type) IsSize() bool { return et <= 1500 }

func (et Type) String() string {
	switch et {
	case TypeIPv4:
		return "IPv4"
	case TypeARP:
		return "ARP"
	case TypeIPv6:
		return "IPv6"
	default:
		return "0x" + strconv.FormatUint(uint64(et), 16)
	}
}

const (
	TypeIPv4 Type = 0x0800
	TypeARP  Type = 0x0806
	TypeIPv6 Type = 0x86DD
)

// HWLen is the length in octets of an Ethernet hardware address.
const HWLen = 6

// BroadcastAddr returns the all-ones Ethernet broadcast hardware address.
func BroadcastAddr() [HWLen]byte {
	return [HWLen]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
}

// AppendAddr appends the colon-separated hex text representation of hwAddr to dst.
func AppendAddr(dst []byte, hwAddr [HWLen]byte) []byte {
	for i, b := range hwAddr {
		if i != 0 {
			dst = append(dst, ':')
		}
		if b < 16 {
			dst = append(dst, '0')
		}
		dst = strconv.AppendUint(dst, uint64(b), 16)
	}
	return dst
}

// IsZero reports whether hwAddr is the all-zeroes (invalid) hardware address.
func IsZero(hwAddr [HWLen]byte) bool {
	return hwAddr == [HWLen]byte{}
}
