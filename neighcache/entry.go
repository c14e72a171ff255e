package neighcache

import "github.com/soypat/netcache/netiface"

// Kind tags which protocol family an Entry belongs to. ARP and NDP share
// every operation in this package; only the protocol address width and
// the wire engine differ.
type Kind uint8

const (
	KindARP Kind = iota
	KindNDP
)

func (k Kind) String() string {
	switch k {
	case KindARP:
		return "ARP"
	case KindNDP:
		return "NDP"
	default:
		return "unknown"
	}
}

// State is the lifecycle state of a cache Entry.
type State uint8

const (
	StateFree State = iota
	StatePending
	StateResolved
	StateRenew
)

func (s State) String() string {
	switch s {
	case StateFree:
		return "free"
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateRenew:
		return "renew"
	default:
		return "invalid"
	}
}

// Flags is a bitset carried on every Entry.
type Flags uint8

const (
	// FlagInUse distinguishes active-list membership from free-pool
	// membership.
	FlagInUse Flags = 1 << iota
)

// maxProtoAddr is the widest protocol address this cache stores inline:
// 16 octets covers IPv6/NDP, which also covers the 4-octet IPv4/ARP case.
const maxProtoAddr = 16

// Entry is the authoritative per-destination address record: control
// fields and address fields live on one struct rather than split across
// a parent/child pair joined by a back-pointer.
type Entry struct {
	kind     Kind
	ifaceID  int
	protoLen uint8
	protoAddr [maxProtoAddr]byte
	hwAddr    [6]byte
	hwValid   bool
	protoValid bool

	// senderProtoSet is the sentinel the renew callback checks before
	// confirming a binding: an entry learned passively never had a sender
	// address recorded for it.
	senderProtoSet bool
	senderProto    [maxProtoAddr]byte

	pending          []netiface.Buffer
	pendingThreshold int

	accessed uint32
	attempts uint8

	state State
	flags Flags

	prev, next *Entry // active list links
	freeNext   *Entry // free-pool stack link

	timer    netiface.TimerHandle
	hasTimer bool
}

// Kind returns the entry's protocol family.
func (e *Entry) Kind() Kind { return e.kind }

// InterfaceID returns the owning network interface identifier.
func (e *Entry) InterfaceID() int { return e.ifaceID }

// State returns the current lifecycle state.
func (e *Entry) State() State { return e.state }

// ProtoAddr returns the protocol address in wire byte order.
func (e *Entry) ProtoAddr() []byte { return e.protoAddr[:e.protoLen] }

// HWAddr returns the resolved hardware address and whether it is valid.
func (e *Entry) HWAddr() (addr [6]byte, valid bool) { return e.hwAddr, e.hwValid }

// SenderProtoAddr returns the source address to use when emitting requests
// for this entry, and whether one has been set.
func (e *Entry) SenderProtoAddr() ([]byte, bool) {
	if !e.senderProtoSet {
		return nil, false
	}
	return e.senderProto[:e.protoLen], true
}

// SetSenderProtoAddr sets the sender-protocol address.
func (e *Entry) SetSenderProtoAddr(addr []byte) {
	copy(e.senderProto[:], addr)
	e.senderProtoSet = true
}

// Attempts returns the request-attempts counter for the current episode.
func (e *Entry) Attempts() uint8 { return e.attempts }

// IncAttempts increments and returns the request-attempts counter.
func (e *Entry) IncAttempts() uint8 {
	e.attempts++
	return e.attempts
}

// ResetAttempts zeroes the request-attempts counter, done whenever an
// entry confirms a binding.
func (e *Entry) ResetAttempts() { e.attempts = 0 }

// SetState transitions e to s. It performs no validation of the
// transition itself; callers (the ARP engine, timer callbacks) are
// responsible for only making legal transitions.
func (e *Entry) SetState(s State) { e.state = s }

// SetHWAddr records a resolved hardware address, required before any
// transition into Resolved/Renew.
func (e *Entry) SetHWAddr(hw [6]byte) {
	e.hwAddr = hw
	e.hwValid = true
}

// TakeTimer removes and returns e's timer handle. A timer callback must
// take the handle out of the entry before deciding whether to arm a
// replacement or free the entry: the entry never owns a handle that has
// already fired.
func (e *Entry) TakeTimer() (netiface.TimerHandle, bool) {
	if !e.hasTimer {
		return nil, false
	}
	h := e.timer
	e.timer = nil
	e.hasTimer = false
	return h, true
}

// SetTimer records a newly-armed timer handle.
func (e *Entry) SetTimer(h netiface.TimerHandle) {
	e.timer = h
	e.hasTimer = true
}

// HasTimer reports whether e currently owns a timer handle.
func (e *Entry) HasTimer() bool { return e.hasTimer }

// PendingLen returns the number of buffers currently queued on this entry.
func (e *Entry) PendingLen() int { return len(e.pending) }

// inUse reports the in-use bit.
func (e *Entry) inUse() bool { return e.flags&FlagInUse != 0 }

// matches reports whether e belongs to ifaceID and carries protoAddr.
func (e *Entry) matches(ifaceID int, protoAddr []byte) bool {
	if e.ifaceID != ifaceID || int(e.protoLen) != len(protoAddr) {
		return false
	}
	for i, b := range protoAddr {
		if e.protoAddr[i] != b {
			return false
		}
	}
	return true
}

// reset clears e to its zero Free state. Callers must have already
// unlinked e from the active list (prev/next nil) before calling this.
func (e *Entry) reset() {
	pending := e.pending[:0]
	*e = Entry{pending: pending}
}
