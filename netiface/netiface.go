// Package netiface declares the narrow interfaces the address-resolution
// core consumes from the rest of an embedded dual-stack TCP/IP suite: the
// network driver, the buffer pool, the timer wheel and a statistics
// counter sink. All four are external collaborators per the scope of this
// module (see package arp and package neighcache) and are implemented by
// the surrounding stack, not by this module.
//
// The interfaces here replace the void* callback-object casts of the
// original C source (see the "Callback pointer conversion" design note)
// with typed closures: timer callbacks receive a *neighcache.Entry
// wrapped in an interface{} the core itself controls, never an untyped
// pointer handed back across a module boundary.
package netiface

import "time"

// TxResult reports the outcome of handing a buffer to the driver transmit
// entry point.
type TxResult uint8

const (
	TxOK TxResult = iota
	TxLinkDown
	TxLoopbackDisabled
	TxTransientError
)

func (r TxResult) String() string {
	switch r {
	case TxOK:
		return "ok"
	case TxLinkDown:
		return "link-down"
	case TxLoopbackDisabled:
		return "loopback-disabled"
	case TxTransientError:
		return "transient-error"
	default:
		return "unknown"
	}
}

// Driver is the network driver/interface collaborator. Implementations own
// descriptor rings, MII/PHY access and L2 demultiplexing; none of that is
// in scope here.
type Driver interface {
	// Transmit hands buf, whose L2 header is already filled in, to the driver.
	Transmit(buf Buffer) TxResult
	// HWAddr returns this interface's own hardware address.
	HWAddr() [6]byte
	// IsValidHWAddr reports whether hw is an acceptable sender hardware
	// address per interface policy (not our own address, not a reserved form).
	IsValidHWAddr(hw [6]byte) bool
	// MulticastHWAddr returns the well-known hardware mapping for a
	// multicast protocol address, if this link type supports one.
	MulticastHWAddr(protoAddr []byte) (hw [6]byte, ok bool)
	// MTU bounds outbound message length for the given EtherType.
	MTU(etherType uint16) int
}

// Buffer is a transmit or receive buffer handle as exposed by the buffer
// pool collaborator. The resolution dispatcher reads the destination
// protocol address through DstProtoAddr and writes the resolved hardware
// address through SetHWAddr.
type Buffer interface {
	// Data returns the raw buffer contents.
	Data() []byte
	// SetUnlink records the callback the buffer pool must invoke if the
	// buffer is freed while still enqueued on a cache entry's pending FIFO.
	// obj is always the *neighcache.Entry that queued it.
	SetUnlink(cb UnlinkFunc, obj any)
	// ClearUnlink detaches any previously set unlink callback, used when the
	// buffer leaves the pending FIFO through normal draining rather than
	// through pool-initiated reclamation.
	ClearUnlink()
	// Broadcast reports whether a received buffer arrived via the interface
	// broadcast address.
	Broadcast() bool
	// DstProtoAddr returns the protocol address the resolution dispatcher
	// must resolve for this buffer.
	DstProtoAddr() []byte
	// SetHWAddr writes the resolved hardware address into the buffer's
	// destination hardware-address slot.
	SetHWAddr(hw [6]byte)
}

// UnlinkFunc is invoked by the buffer pool on a buffer it is about to
// reclaim while the buffer is still linked into obj's pending FIFO.
type UnlinkFunc func(obj any, buf Buffer)

// ErrCounter identifies a named failure counter covering buffer-pool
// discards and receive-path validation/resource-exhaustion events.
type ErrCounter uint8

const (
	CounterNone ErrCounter = iota
	CounterTxDiscarded
	// CounterRxShortFrame counts frames too short to hold even the
	// declared header.
	CounterRxShortFrame
	// CounterRxBadHWType counts frames whose hardware type field isn't Ethernet.
	CounterRxBadHWType
	// CounterRxBadHWLen counts frames whose hardware address length is wrong.
	CounterRxBadHWLen
	// CounterRxBadProtoType counts frames whose protocol type isn't IPv4.
	CounterRxBadProtoType
	// CounterRxBadProtoLen counts frames whose protocol address length is wrong.
	CounterRxBadProtoLen
	// CounterRxBadOperation counts frames with an operation code other than
	// request or reply.
	CounterRxBadOperation
	// CounterRxBadSenderHW counts frames whose sender hardware address is
	// our own or otherwise rejected by the driver.
	CounterRxBadSenderHW
	// CounterRxBadSenderProto counts frames whose sender protocol address
	// fails the plausible-unicast-source check.
	CounterRxBadSenderProto
	// CounterRxTargetMismatch counts unicast requests not addressed to us
	// while the address filter is enabled.
	CounterRxTargetMismatch
	// CounterRxBroadcastReply counts replies that arrived via broadcast,
	// which is never valid.
	CounterRxBroadcastReply
	CounterNoCacheEntry
	CounterNoTimer
	CounterCorruption
)

// BufferPool is the buffer allocator collaborator.
type BufferPool interface {
	// Get acquires a transmit buffer of at least size bytes for ifaceID.
	Get(ifaceID int, size int) (Buffer, error)
	// Free discards buf, optionally bumping counter.
	Free(buf Buffer, counter ErrCounter)
	// FreeQueue discards every buffer in a pending FIFO snapshot, bumping
	// counter once per buffer.
	FreeQueue(bufs []Buffer, counter ErrCounter)
}

// TimerHandle is a non-owning, opaque handle into the external timer
// wheel.
type TimerHandle interface{}

// TimerCallback fires when a registered timer expires. obj is the value
// passed to Get/Set, always a *neighcache.Entry for this module.
type TimerCallback func(obj any)

// TimerWheel is the timer scheduler collaborator.
type TimerWheel interface {
	// Get registers a new one-shot callback, firing after d.
	Get(cb TimerCallback, obj any, d time.Duration) (TimerHandle, error)
	// Set reuses an existing handle with a new callback/duration.
	Set(h TimerHandle, cb TimerCallback, d time.Duration)
	// Free releases h without firing it.
	Free(h TimerHandle)
}

// Counters is the statistics counter container collaborator.
type Counters interface {
	Inc(counter ErrCounter)
	Add(counter ErrCounter, n uint32)
}

// NopCounters discards every increment; useful for tests and callers that
// do not care about statistics.
type NopCounters struct{}

func (NopCounters) Inc(ErrCounter)        {}
func (NopCounters) Add(ErrCounter, uint32) {}
