// Package resolver implements the outbound hook the IP layer calls to map
// a protocol address to a hardware address, backed by a neighcache.Cache
// and a wire engine (package arp satisfies RequestSender) reached only
// through the narrow RequestSender seam, so the dispatcher itself stays
// protocol-agnostic.
package resolver

import (
	"github.com/soypat/netcache/neighcache"
	"github.com/soypat/netcache/netiface"
)

// RequestSender is the wire-protocol seam the dispatcher drives on a
// cache miss: arm the retry timer and emit the first request. *arp.Engine
// satisfies this interface.
type RequestSender interface {
	// ArmRetry registers the Pending-retry timer for e.
	ArmRetry(tx *neighcache.Tx, e *neighcache.Entry) error
	// SendRequest emits a request for e and increments its attempts counter.
	SendRequest(tx *neighcache.Tx, e *neighcache.Entry) error
}

// Status is the outcome of a Resolve call.
type Status uint8

const (
	Resolved Status = iota
	Pending
	Unresolved
	NoCache
)

func (s Status) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Pending:
		return "pending"
	case Unresolved:
		return "unresolved"
	case NoCache:
		return "no-cache-available"
	default:
		return "unknown"
	}
}

// Dispatcher is the per-interface Resolution Dispatcher.
type Dispatcher struct {
	ifaceID int
	cache   *neighcache.Cache
	driver  netiface.Driver
	sender  RequestSender
}

// NewDispatcher constructs a Dispatcher over cache, consulting driver for
// the multicast short-circuit and sender to drive the wire protocol on a
// miss.
func NewDispatcher(ifaceID int, cache *neighcache.Cache, driver netiface.Driver, sender RequestSender) *Dispatcher {
	return &Dispatcher{ifaceID: ifaceID, cache: cache, driver: driver, sender: sender}
}

// Resolve is the outbound hook: buf must already carry the destination
// protocol address (Buffer.DstProtoAddr) and expose the hardware-address
// slot to fill (Buffer.SetHWAddr).
func (d *Dispatcher) Resolve(buf netiface.Buffer) (Status, error) {
	dst := buf.DstProtoAddr()
	var status Status
	var outErr error
	d.cache.Transact(func(tx *neighcache.Tx) {
		ent, lookup := tx.Lookup(d.ifaceID, dst)
		switch lookup {
		case neighcache.FoundResolved:
			hw, _ := ent.HWAddr()
			buf.SetHWAddr(hw)
			status = Resolved

		case neighcache.FoundPending:
			if tx.EnqueuePending(ent, buf) {
				status = Pending
			} else {
				status = Unresolved
			}

		default: // NotFound
			if hw, ok := d.driver.MulticastHWAddr(dst); ok {
				buf.SetHWAddr(hw)
				if newEnt, err := tx.Allocate(d.ifaceID, dst); err == nil {
					newEnt.SetHWAddr(hw)
					newEnt.SetState(neighcache.StateResolved)
					tx.Insert(newEnt)
				}
				status = Resolved
				return
			}
			newEnt, err := tx.Allocate(d.ifaceID, dst)
			if err != nil {
				status, outErr = NoCache, err
				return
			}
			newEnt.SetState(neighcache.StatePending)
			tx.Insert(newEnt)
			tx.EnqueuePending(newEnt, buf)
			if err := d.sender.ArmRetry(tx, newEnt); err != nil {
				tx.Remove(newEnt, true)
				status, outErr = NoCache, err
				return
			}
			d.sender.SendRequest(tx, newEnt)
			status = Pending
		}
	})
	return status, outErr
}
