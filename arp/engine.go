package arp

import (
	"log/slog"

	"github.com/soypat/netcache/internal"
	"github.com/soypat/netcache/neighcache"
	"github.com/soypat/netcache/netiface"
)

// Engine is the ARP protocol engine for one network interface: it
// validates and answers received ARP frames, updates the shared cache,
// and emits requests, replies, gratuitous announcements and probes. It
// drives a *neighcache.Cache of KindARP; the cache itself is unaware of
// the wire format.
type Engine struct {
	ifaceID  int
	driver   netiface.Driver
	bufPool  netiface.BufferPool
	timers   netiface.TimerWheel
	counters netiface.Counters
	cache    *neighcache.Cache

	ourAddrs    [][4]byte
	probeAddr   [4]byte
	hasProbe    bool
	conflict    bool

	log *slog.Logger
}

// NewEngine constructs an Engine bound to ifaceID and cache, which must be
// of neighcache.KindARP. ourAddrs lists the interface's configured IPv4
// addresses used for the receive-path target check; at least one is
// required.
func NewEngine(ifaceID int, driver netiface.Driver, bufPool netiface.BufferPool, timers netiface.TimerWheel, counters netiface.Counters, cache *neighcache.Cache, ourAddrs [][4]byte) (*Engine, error) {
	if cache.Kind() != neighcache.KindARP {
		return nil, errWrongCacheKind
	}
	if len(ourAddrs) == 0 {
		return nil, errNoAddrConfigured
	}
	if counters == nil {
		counters = netiface.NopCounters{}
	}
	e := &Engine{
		ifaceID:  ifaceID,
		driver:   driver,
		bufPool:  bufPool,
		timers:   timers,
		counters: counters,
		cache:    cache,
	}
	e.ourAddrs = append(e.ourAddrs, ourAddrs...)
	return e, nil
}

// SetLogger attaches a structured logger; nil disables logging.
func (e *Engine) SetLogger(log *slog.Logger) { e.log = log }

// SetProbeAddr records an in-progress address-initialization probe so the
// receive-path target check also accepts messages addressed to it (RFC
// 3927 §2.1).
func (e *Engine) SetProbeAddr(addr [4]byte) {
	e.probeAddr = addr
	e.hasProbe = true
}

// ClearProbeAddr ends address-initialization probing.
func (e *Engine) ClearProbeAddr() { e.hasProbe = false }

// Conflict reports whether a protocol-address conflict has been observed
// since the last ClearConflict (RFC 3927 §2.5).
func (e *Engine) Conflict() bool { return e.conflict }

// ClearConflict resets the conflict flag after the application has acted on it.
func (e *Engine) ClearConflict() { e.conflict = false }

func (e *Engine) ourHW() [6]byte { return e.driver.HWAddr() }

func (e *Engine) addrIsOurs(addr [4]byte) bool {
	for _, a := range e.ourAddrs {
		if a == addr {
			return true
		}
	}
	return e.hasProbe && addr == e.probeAddr
}

// Receive validates buf as an ARP message, updates the cache and emits a
// reply if warranted. buf.Data() must already be trimmed to the ARP
// message's L2 payload by the (out of scope) L2 demultiplexer.
func (e *Engine) Receive(buf netiface.Buffer) error {
	frm, err := NewFrame(buf.Data())
	if err != nil {
		e.counters.Inc(rxCounterFor(err))
		return err
	}
	var v Validator
	frm.Validate(&v)
	if v.HasError() {
		err := v.ErrPop()
		e.counters.Inc(rxCounterFor(err))
		return err
	}
	frm = frm.Clip() // truncate to declared ARP length.

	senderHW, senderProto4 := frm.Sender4()
	if *senderHW == e.ourHW() || !e.driver.IsValidHWAddr(*senderHW) {
		e.counters.Inc(netiface.CounterRxBadSenderHW)
		return errBadSenderHW
	}
	if !isPlausibleUnicastSource(senderProto4) {
		e.counters.Inc(netiface.CounterRxBadSenderProto)
		return errBadSenderProto
	}
	op := frm.Operation()
	broadcast := buf.Broadcast()
	targetHW, targetProto4 := frm.Target4()
	if op == OpRequest {
		cfg := e.cache.Config()
		if cfg.AddressFilterEnabled && !broadcast && *targetHW != e.ourHW() {
			e.counters.Inc(netiface.CounterRxTargetMismatch)
			return errTargetMismatch
		}
	} else if broadcast { // a reply must never arrive via broadcast.
		e.counters.Inc(netiface.CounterRxBroadcastReply)
		return errBroadcastReply
	}

	// Target check + RFC 3927 conflict detection.
	targetedAtUs := e.addrIsOurs(*targetProto4)
	if op == OpReply {
		targetedAtUs = targetedAtUs && *targetHW == e.ourHW()
	}
	if *senderHW != e.ourHW() && e.addrIsOurs(*senderProto4) {
		e.conflict = true
		e.logTrace("arp:conflict", slog.Int("iface", e.ifaceID),
			internal.SlogAddr4("proto", senderProto4), internal.SlogAddr6("hw", senderHW))
	}

	// Cache update (RFC 826 "Packet Reception").
	cfg := e.cache.Config()
	e.cache.Transact(func(tx *neighcache.Tx) {
		ent, status := tx.Lookup(e.ifaceID, senderProto4[:])
		switch {
		case status == neighcache.FoundPending:
			ent.SetHWAddr(*senderHW)
			ent.ResetAttempts()
			e.rearmRenew(ent, cfg)
			bufs := tx.TakePending(ent)
			ent.SetState(neighcache.StateResolved)
			e.flushPending(bufs, *senderHW)
		case status == neighcache.FoundResolved:
			ent.SetHWAddr(*senderHW) // overwrite: sender may legitimately re-map.
			wasRenew := ent.State() == neighcache.StateRenew
			e.rearmRenew(ent, cfg)
			if wasRenew {
				ent.SetState(neighcache.StateResolved)
				ent.ResetAttempts()
			}
		// A request always gets learned so a reply can go back to the asker.
		// An unsolicited reply naming us as target is only learned with the
		// address filter disabled; with it enabled an unrequested reply is
		// exactly the unsolicited-binding case the filter exists to reject.
		case status == neighcache.NotFound && (op == OpRequest || (targetedAtUs && !cfg.AddressFilterEnabled)):
			newEnt, err := tx.Allocate(e.ifaceID, senderProto4[:])
			if err != nil {
				e.logTrace("arp:no-entry-on-learn")
				return
			}
			newEnt.SetHWAddr(*senderHW)
			newEnt.SetState(neighcache.StateResolved)
			tx.Insert(newEnt)
			e.rearmRenew(newEnt, cfg)
		default:
			// Misdirected ARP with no existing entry: discard to avoid pollution.
		}
	})

	if op == OpRequest && targetedAtUs {
		if err := e.sendReply(*senderHW, *senderProto4, *targetProto4); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) rearmRenew(ent *neighcache.Entry, cfg neighcache.Config) {
	if h, ok := ent.TakeTimer(); ok {
		e.timers.Free(h)
	}
	h, err := e.timers.Get(e.renewCallback, ent, cfg.CacheTimeout)
	if err != nil {
		e.counters.Inc(netiface.CounterNoTimer)
		return
	}
	ent.SetTimer(h)
}

func (e *Engine) flushPending(bufs []netiface.Buffer, hw [6]byte) {
	for _, b := range bufs {
		b.SetHWAddr(hw)
		if res := e.driver.Transmit(b); res != netiface.TxOK {
			e.logTrace("arp:flush-transmit-failed")
		}
	}
}

func (e *Engine) logTrace(msg string, attrs ...slog.Attr) {
	if !internal.LogEnabled(e.log, internal.LevelTrace) {
		return
	}
	internal.LogAttrs(e.log, internal.LevelTrace, msg, attrs...)
}

// isPlausibleUnicastSource rejects the zero address, the limited
// broadcast address and class-D/E addresses as a sender protocol address.
func isPlausibleUnicastSource(addr *[4]byte) bool {
	if *addr == ([4]byte{}) || *addr == ([4]byte{255, 255, 255, 255}) {
		return false
	}
	return addr[0] < 224
}
