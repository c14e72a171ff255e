package arp

import (
	"time"

	"github.com/soypat/netcache/ethernet"
	"github.com/soypat/netcache/neighcache"
	"github.com/soypat/netcache/netiface"
)

// transmitARP acquires a fresh transmit buffer, lets fill populate the ARP
// header, addresses the buffer to dstHW and hands it to the driver. A
// buffer allocation failure is returned to the caller without touching
// any entry state; a transmit-level failure is logged at trace level and
// otherwise ignored, left for the retry timer to recover from. No counter
// is incremented for it.
func (e *Engine) transmitARP(dstHW [6]byte, fill func(Frame)) error {
	buf, err := e.bufPool.Get(e.ifaceID, sizeHeaderv4)
	if err != nil {
		return err
	}
	frm, err := NewFrame(buf.Data())
	if err != nil {
		e.bufPool.Free(buf, netiface.CounterTxDiscarded)
		return err
	}
	frm.ClearHeader()
	frm.SetHardware(hwTypeEthernet, hwLen)
	frm.SetProtocol(ethernet.TypeIPv4, protoLenIPv4)
	fill(frm)
	buf.SetHWAddr(dstHW)
	if res := e.driver.Transmit(buf); res != netiface.TxOK {
		e.logTrace("arp:transmit-failed")
	}
	return nil
}

// SendRequest implements RequestSender: construct and emit an ARP request
// for ent. Broadcasts when ent has no cached hardware address; unicasts to
// the cached address when ent is in Renew, confirming an existing
// binding. On success increments ent's request-attempts counter.
func (e *Engine) SendRequest(tx *neighcache.Tx, ent *neighcache.Entry) error {
	senderProto, ok := ent.SenderProtoAddr()
	if !ok {
		senderProto = e.ourAddrs[0][:]
		ent.SetSenderProtoAddr(senderProto)
	}
	var targetHW [6]byte
	dstHW := ethernet.BroadcastAddr()
	if ent.State() == neighcache.StateRenew {
		hw, _ := ent.HWAddr()
		targetHW, dstHW = hw, hw
	}
	targetProto := ent.ProtoAddr()
	err := e.transmitARP(dstHW, func(frm Frame) {
		frm.SetOperation(OpRequest)
		shw, sproto := frm.Sender4()
		*shw = e.ourHW()
		copy(sproto[:], senderProto)
		thw, tproto := frm.Target4()
		*thw = targetHW
		copy(tproto[:], targetProto)
	})
	if err != nil {
		return err
	}
	ent.IncAttempts()
	return nil
}

// sendReply emits a unicast reply to a validated, target-confirmed request.
func (e *Engine) sendReply(senderHW [6]byte, senderProto, targetProto [4]byte) error {
	return e.transmitARP(senderHW, func(frm Frame) {
		frm.SetOperation(OpReply)
		shw, sproto := frm.Sender4()
		*shw = e.ourHW()
		*sproto = targetProto
		thw, tproto := frm.Target4()
		*thw = senderHW
		*tproto = senderProto
	})
}

// SendGratuitous broadcasts an announce/probe for protoAddr. It performs
// no cache mutation; any conflicting reply is picked up by the normal
// Receive path.
func (e *Engine) SendGratuitous(protoAddr [4]byte) error {
	return e.transmitARP(ethernet.BroadcastAddr(), func(frm Frame) {
		frm.SetOperation(OpRequest)
		shw, sproto := frm.Sender4()
		*shw = e.ourHW()
		*sproto = protoAddr
		thw, tproto := frm.Target4()
		*thw = [6]byte{}
		*tproto = protoAddr
	})
}

// ArmRetry registers the Pending-retry timer for ent at the configured
// retry interval.
func (e *Engine) ArmRetry(tx *neighcache.Tx, ent *neighcache.Entry) error {
	h, err := e.timers.Get(e.pendingRetryCallback, ent, tx.Config().RequestRetryTimeout)
	if err != nil {
		return err
	}
	ent.SetTimer(h)
	return nil
}

// Probe resolves protoAddr from scratch, discarding any existing entry:
// used by address-conflict detection to actively re-check a claim.
func (e *Engine) Probe(protoAddr [4]byte) error {
	var probeErr error
	e.cache.Transact(func(tx *neighcache.Tx) {
		if ent, status := tx.Lookup(e.ifaceID, protoAddr[:]); status != neighcache.NotFound {
			tx.Remove(ent, true)
		}
		ent, err := tx.Allocate(e.ifaceID, protoAddr[:])
		if err != nil {
			probeErr = err
			return
		}
		ent.SetState(neighcache.StatePending)
		ent.SetSenderProtoAddr(e.ourAddrs[0][:])
		tx.Insert(ent)
		if err := e.ArmRetry(tx, ent); err != nil {
			tx.Remove(ent, true)
			probeErr = err
			return
		}
		probeErr = e.SendRequest(tx, ent)
	})
	return probeErr
}

// pendingMaxAttempts is one more than the configured retry count: the
// configured knob is "max retries", i.e. retries after the initial send.
func pendingMaxAttempts(cfg neighcache.Config) uint8 { return cfg.RequestMaxRetries + 1 }

// pendingRetryCallback is the Pending-retry callback, registered by both
// the resolution dispatcher (initial miss) and by itself on each resend.
func (e *Engine) pendingRetryCallback(obj any) {
	ent, ok := obj.(*neighcache.Entry)
	if !ok {
		e.counters.Inc(netiface.CounterCorruption)
		return
	}
	e.cache.Transact(func(tx *neighcache.Tx) {
		ent.TakeTimer()
		cfg := tx.Config()
		max := pendingMaxAttempts(cfg)
		if ent.State() == neighcache.StateRenew {
			max = cfg.RenewMaxRetries
		}
		if ent.Attempts() >= max {
			tx.Remove(ent, false)
			return
		}
		h, err := e.timers.Get(e.pendingRetryCallback, ent, cfg.RequestRetryTimeout)
		if err != nil {
			tx.Remove(ent, false)
			return
		}
		ent.SetTimer(h)
		e.SendRequest(tx, ent)
	})
}

// renewCallback is the Renew callback, armed by rearmRenew whenever an
// entry enters or refreshes Resolved.
func (e *Engine) renewCallback(obj any) {
	ent, ok := obj.(*neighcache.Entry)
	if !ok {
		e.counters.Inc(netiface.CounterCorruption)
		return
	}
	e.cache.Transact(func(tx *neighcache.Tx) {
		ent.TakeTimer()
		if _, ok := ent.SenderProtoAddr(); !ok {
			tx.Remove(ent, false)
			return
		}
		ent.SetState(neighcache.StateRenew)
		cfg := tx.Config()
		if ent.Attempts() >= cfg.RenewMaxRetries {
			h, err := e.timers.Get(e.pendingRetryCallback, ent, time.Duration(0))
			if err != nil {
				tx.Remove(ent, false)
				return
			}
			ent.SetTimer(h)
			return
		}
		h, err := e.timers.Get(e.pendingRetryCallback, ent, cfg.RequestRetryTimeout)
		if err != nil {
			tx.Remove(ent, false)
			return
		}
		ent.SetTimer(h)
		e.SendRequest(tx, ent)
	})
}
