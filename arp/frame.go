package arp

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"

	"github.com/soypat/netcache/ethernet"
)

// NewFrame returns a Frame with data set to buf. An error is returned if
// the buffer cannot hold even the smallest (IPv4) ARP header; callers
// should still call Frame.Validate before trusting payload/address slices.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeaderv4 {
		return Frame{}, errShortARP
	}
	return Frame{buf: buf}, nil
}

// Frame encapsulates the raw data of an ARP packet and provides methods for
// manipulating, validating and retrieving its fields. See RFC 826.
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice the frame was constructed over.
func (afrm Frame) RawData() []byte { return afrm.buf }

// Hardware returns the hardware type and hardware address length fields.
func (afrm Frame) Hardware() (typ uint16, length uint8) {
	return binary.BigEndian.Uint16(afrm.buf[0:2]), afrm.hwlen()
}

func (afrm Frame) hwlen() uint8 { return afrm.buf[4] }

// SetHardware sets the hardware type and hardware address length fields.
func (afrm Frame) SetHardware(typ uint16, length uint8) {
	binary.BigEndian.PutUint16(afrm.buf[0:2], typ)
	afrm.buf[4] = length
}

// Protocol returns the protocol type and protocol address length fields.
func (afrm Frame) Protocol() (typ ethernet.Type, length uint8) {
	return ethernet.Type(binary.BigEndian.Uint16(afrm.buf[2:4])), afrm.protolen()
}

func (afrm Frame) protolen() uint8 { return afrm.buf[5] }

// SetProtocol sets the protocol type and protocol address length fields.
func (afrm Frame) SetProtocol(typ ethernet.Type, length uint8) {
	binary.BigEndian.PutUint16(afrm.buf[2:4], uint16(typ))
	afrm.buf[5] = length
}

// Operation returns the ARP operation code.
func (afrm Frame) Operation() Operation { return Operation(binary.BigEndian.Uint16(afrm.buf[6:8])) }

// SetOperation sets the ARP operation code.
func (afrm Frame) SetOperation(op Operation) { binary.BigEndian.PutUint16(afrm.buf[6:8], uint16(op)) }

// Sender returns the hardware and protocol addresses of the packet sender.
func (afrm Frame) Sender() (hardwareAddr []byte, proto []byte) {
	_, hlen := afrm.Hardware()
	_, plen := afrm.Protocol()
	return afrm.buf[8 : 8+hlen], afrm.buf[8+hlen : 8+hlen+plen]
}

// Target returns the hardware and protocol addresses of the packet target.
func (afrm Frame) Target() (hardwareAddr []byte, proto []byte) {
	_, hlen := afrm.Hardware()
	_, plen := afrm.Protocol()
	toff := 8 + hlen + plen
	return afrm.buf[toff : toff+hlen], afrm.buf[toff+hlen : toff+hlen+plen]
}

// Sender4 returns the IPv4 sender addresses as fixed-width arrays.
func (afrm Frame) Sender4() (hardwareAddr *[6]byte, proto *[4]byte) {
	return (*[6]byte)(afrm.buf[8:14]), (*[4]byte)(afrm.buf[14:18])
}

// Target4 returns the IPv4 target addresses as fixed-width arrays.
func (afrm Frame) Target4() (hardwareAddr *[6]byte, proto *[4]byte) {
	return (*[6]byte)(afrm.buf[18:24]), (*[4]byte)(afrm.buf[24:28])
}

// ClearHeader zeros the fixed (non-variable) header octets.
func (afrm Frame) ClearHeader() {
	for i := range afrm.buf[:8] {
		afrm.buf[i] = 0
	}
}

// Clip returns afrm re-sliced to its declared size, dropping L2 padding.
func (afrm Frame) Clip() Frame {
	return Frame{buf: afrm.buf[:sizeHeader+2*int(afrm.hwlen())+2*int(afrm.protolen())]}
}

// SwapTargetSender exchanges sender and target fields in place, the core
// step of turning a received request into the matching reply.
func (afrm Frame) SwapTargetSender() {
	hwTarget, protoTarget := afrm.Target()
	hwSender, protoSender := afrm.Sender()
	for i := range hwTarget {
		hwTarget[i], hwSender[i] = hwSender[i], hwTarget[i]
	}
	for i := range protoTarget {
		protoTarget[i], protoSender[i] = protoSender[i], protoTarget[i]
	}
}

// Validate checks the frame's declared size fields against both protocol
// policy and the actual buffer length.
func (afrm Frame) Validate(v *Validator) {
	if len(afrm.buf) < sizeHeader {
		v.AddError(errShortARP)
		return
	}
	htype, hlen := afrm.Hardware()
	if htype != hwTypeEthernet {
		v.AddError(errBadHWType)
	}
	if hlen != hwLen {
		v.AddError(errBadHWLen)
	}
	ptype, plen := afrm.Protocol()
	if ptype != ethernet.TypeIPv4 {
		v.AddError(errBadProtoType)
	}
	if plen != protoLenIPv4 {
		v.AddError(errBadProtoLen)
	}
	minLen := int(sizeHeader) + 2*int(hlen) + 2*int(plen)
	if len(afrm.buf) < minLen {
		v.AddError(errShortARP)
		return
	}
	switch afrm.Operation() {
	case OpRequest, OpReply:
	default:
		v.AddError(errBadOperation)
	}
}

func (afrm Frame) String() string {
	opstr := afrm.Operation().String()
	hwt, _ := afrm.Hardware()
	ptt, _ := afrm.Protocol()
	sndhw, sndpt := afrm.Sender()
	tgthw, tgtpt := afrm.Target()
	var sndstr, tgtstr string
	if ptt == ethernet.TypeIPv4 {
		sender, _ := netip.AddrFromSlice(sndpt)
		target, _ := netip.AddrFromSlice(tgtpt)
		sndstr, tgtstr = sender.String(), target.String()
	} else {
		sndstr = net.HardwareAddr(sndpt).String()
		tgtstr = net.HardwareAddr(tgtpt).String()
	}
	return fmt.Sprintf("ARP %s HW=(%d,SENDER=%s,TARGET=%s) PROTO=(%s,SENDER=%s,TARGET=%s)",
		opstr, hwt, net.HardwareAddr(sndhw).String(), net.HardwareAddr(tgthw).String(),
		ptt.String(), sndstr, tgtstr)
}
