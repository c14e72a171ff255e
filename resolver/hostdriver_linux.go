//go:build linux

package resolver

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/soypat/netcache/netiface"
)

// HostDriver is a netiface.Driver backed by a Linux AF_PACKET raw socket
// bound to one network interface, filtered to ETH_P_ARP. It lets the ARP
// engine run against a real NIC instead of an embedded stack's own
// descriptor rings.
type HostDriver struct {
	fd     int
	ifidx  int
	hwAddr [6]byte
	mtu    int
}

// NewHostDriver opens a raw ARP socket on ifaceName and binds it to the
// link, following the raw-socket setup used throughout this corpus's
// networking tools (unix.Socket, then Bind to a link-layer sockaddr).
func NewHostDriver(ifaceName string) (*HostDriver, error) {
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, err
	}
	if len(iface.HardwareAddr) != 6 {
		return nil, fmt.Errorf("resolver: interface %q has no Ethernet hardware address", ifaceName)
	}
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ARP)))
	if err != nil {
		return nil, fmt.Errorf("resolver: opening AF_PACKET socket: %w", err)
	}
	sa := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ARP),
		Ifindex:  iface.Index,
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("resolver: binding to interface %q: %w", ifaceName, err)
	}
	d := &HostDriver{fd: fd, ifidx: iface.Index, mtu: iface.MTU}
	copy(d.hwAddr[:], iface.HardwareAddr)
	return d, nil
}

// Close releases the underlying raw socket.
func (d *HostDriver) Close() error { return unix.Close(d.fd) }

// Transmit implements netiface.Driver. buf's L2 header, including the
// destination hardware address in its first six bytes, is already filled
// in by the caller.
func (d *HostDriver) Transmit(buf netiface.Buffer) netiface.TxResult {
	data := buf.Data()
	dst := &unix.SockaddrLinklayer{Ifindex: d.ifidx, Halen: 6}
	if len(data) >= 6 {
		copy(dst.Addr[:6], data[:6])
	}
	if err := unix.Sendto(d.fd, data, 0, dst); err != nil {
		if err == unix.ENETDOWN {
			return netiface.TxLinkDown
		}
		return netiface.TxTransientError
	}
	return netiface.TxOK
}

// Receive reads one raw ARP frame into buf, returning the number of bytes
// read and whether it arrived via the link broadcast address.
func (d *HostDriver) Receive(buf []byte) (n int, broadcast bool, err error) {
	n, from, err := unix.Recvfrom(d.fd, buf, 0)
	if err != nil {
		return 0, false, err
	}
	if ll, ok := from.(*unix.SockaddrLinklayer); ok {
		broadcast = ll.Pkttype == unix.PACKET_BROADCAST
	}
	return n, broadcast, nil
}

// HWAddr implements netiface.Driver.
func (d *HostDriver) HWAddr() [6]byte { return d.hwAddr }

// IsValidHWAddr implements netiface.Driver: reject our own address and the
// all-zero address, accept everything else.
func (d *HostDriver) IsValidHWAddr(hw [6]byte) bool {
	return hw != d.hwAddr && hw != [6]byte{}
}

// MulticastHWAddr implements netiface.Driver: an IPv4 multicast address
// (224.0.0.0/4) maps to 01:00:5E followed by the low 23 bits of the
// address; any other address has no mapping.
func (d *HostDriver) MulticastHWAddr(protoAddr []byte) (hw [6]byte, ok bool) {
	if len(protoAddr) != 4 || protoAddr[0]&0xf0 != 0xe0 {
		return hw, false
	}
	return [6]byte{0x01, 0x00, 0x5e, protoAddr[1] & 0x7f, protoAddr[2], protoAddr[3]}, true
}

// MTU implements netiface.Driver.
func (d *HostDriver) MTU(etherType uint16) int { return d.mtu }

func htons(v uint16) uint16 { return v<<8 | v>>8 }
