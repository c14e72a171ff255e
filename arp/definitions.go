// Package arp implements the ARP (RFC 826/1122/3927) protocol engine: wire
// encoding, receive-path validation and cache update, request/reply/probe
// generation, and the per-entry retry/renew timer callbacks. The shared
// entry pool and active-list bookkeeping it drives live in package
// neighcache; the driver, buffer pool and timer wheel it drives are the
// narrow collaborator interfaces in package netiface.
package arp

import (
	"errors"

	"github.com/soypat/netcache/netiface"
)

const (
	sizeHeader   = 8
	sizeHeaderv4 = sizeHeader + 6*2 + 4*2
	sizeHeaderv6 = sizeHeader + 6*2 + 16*2

	hwTypeEthernet = 1
	hwLen          = 6
	protoLenIPv4   = 4
)

var (
	errShortARP        = errors.New("arp: packet too short")
	errBadHWType        = errors.New("arp: unsupported hardware type")
	errBadHWLen         = errors.New("arp: bad hardware address length")
	errBadSenderHW      = errors.New("arp: invalid sender hardware address")
	errBadProtoType     = errors.New("arp: unsupported protocol type")
	errBadProtoLen      = errors.New("arp: bad protocol address length")
	errBadSenderProto   = errors.New("arp: implausible sender protocol address")
	errBadOperation     = errors.New("arp: unsupported operation code")
	errTargetMismatch   = errors.New("arp: request not targeted at this host")
	errBroadcastReply   = errors.New("arp: reply received via broadcast")
	errNoAddrConfigured = errors.New("arp: no protocol address configured on interface")
	errWrongCacheKind   = errors.New("arp: cache must be of neighcache.KindARP")
)

// rxCounterFor maps a receive-path validation error to the counter that
// names the specific field it came from, so a multi-error frame still
// reports which check actually rejected it instead of one generic bucket.
func rxCounterFor(err error) netiface.ErrCounter {
	switch {
	case errors.Is(err, errShortARP):
		return netiface.CounterRxShortFrame
	case errors.Is(err, errBadHWType):
		return netiface.CounterRxBadHWType
	case errors.Is(err, errBadHWLen):
		return netiface.CounterRxBadHWLen
	case errors.Is(err, errBadProtoType):
		return netiface.CounterRxBadProtoType
	case errors.Is(err, errBadProtoLen):
		return netiface.CounterRxBadProtoLen
	case errors.Is(err, errBadOperation):
		return netiface.CounterRxBadOperation
	default:
		return netiface.CounterRxShortFrame
	}
}

// Operation is the ARP header's operation code.
type Operation uint16

const (
	OpRequest Operation = 1
	OpReply   Operation = 2
)

func (op Operation) String() string {
	switch op {
	case OpRequest:
		return "request"
	case OpReply:
		return "reply"
	default:
		return "invalid"
	}
}
