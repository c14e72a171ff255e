// Package neighcache implements the address-record pool and active list
// shared by ARP (IPv4) and NDP (IPv6): a fixed-capacity pool of address
// records, an MRU-ordered active list per kind, per-entry pending
// transmit FIFOs, and the per-entry timer-handle slots. The renewal and
// expiry timer callbacks themselves belong to the wire engine (package
// arp), not to this package.
//
// There is no package-level mutable state: every active-list head/tail
// and free-pool head lives on a *Cache value that callers construct
// explicitly, and the single coarse-grained lock guarding them is this
// Cache's own mutex rather than a process-wide one.
package neighcache

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/soypat/netcache/internal"
	"github.com/soypat/netcache/netiface"
)

var errReconfigureCapacity = errors.New("neighcache: Reconfigure cannot change Capacity, recreate the Cache instead")

// LookupStatus is the result of a Tx.Lookup call.
type LookupStatus uint8

const (
	NotFound LookupStatus = iota
	FoundResolved
	FoundPending
)

func (s LookupStatus) String() string {
	switch s {
	case FoundResolved:
		return "resolved"
	case FoundPending:
		return "pending"
	default:
		return "not-found"
	}
}

// Stats is a read-only snapshot of pool occupancy; Free+Active always
// equals Capacity.
type Stats struct {
	Capacity        int
	Free            int
	Active          int
	HighWaterActive int
}

// Cache is one kind's (ARP or NDP) address-record pool plus active list,
// guarded by a single mutex standing in for the implementation's global
// network lock.
type Cache struct {
	mu       sync.Mutex
	kind     Kind
	cfg      Config
	st       store
	head     *Entry
	tail     *Entry
	hiActive int

	bufPool  netiface.BufferPool
	timers   netiface.TimerWheel
	counters netiface.Counters
	log      *slog.Logger
}

// New constructs a Cache for kind with the given configuration and
// collaborators. cfg is validated; an invalid Config is rejected rather
// than clamped.
func New(kind Kind, cfg Config, bufPool netiface.BufferPool, timers netiface.TimerWheel, counters netiface.Counters) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if counters == nil {
		counters = netiface.NopCounters{}
	}
	c := &Cache{
		kind:     kind,
		cfg:      cfg,
		st:       newStore(cfg.Capacity),
		bufPool:  bufPool,
		timers:   timers,
		counters: counters,
	}
	c.st.initFreeStack(kind)
	return c, nil
}

// SetLogger attaches a structured logger; nil disables logging.
func (c *Cache) SetLogger(log *slog.Logger) { c.log = log }

// Kind returns the protocol family this cache instance serves.
func (c *Cache) Kind() Kind { return c.kind }

// Config returns a copy of the active configuration.
func (c *Cache) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Reconfigure validates and swaps in a new configuration. Existing
// entries are left untouched; only future allocate/lookup/enqueue
// decisions observe the new knobs.
func (c *Cache) Reconfigure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Capacity != c.cfg.Capacity {
		return errReconfigureCapacity
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	return nil
}

// Stats returns a snapshot of pool occupancy.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	active := 0
	for e := c.head; e != nil; e = e.next {
		active++
	}
	return Stats{
		Capacity:        len(c.st.entries),
		Free:            c.st.freeCount(),
		Active:          active,
		HighWaterActive: c.hiActive,
	}
}

// Tx is a view onto a Cache valid only for the duration of the function
// passed to Transact; it exposes the entry store and active-list
// primitives as a single atomic unit, standing in for the global network
// lock.
type Tx struct {
	c *Cache
}

// Transact runs fn with the cache's lock held: the network task holds
// the lock for the duration of any cache mutation. API callers and
// timer callbacks alike use this as their single critical section.
func (c *Cache) Transact(fn func(tx *Tx)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&Tx{c})
}

// Config returns a copy of the active configuration. Unlike Cache.Config
// it does not take the lock, which the enclosing Transact already holds.
func (tx *Tx) Config() Config { return tx.c.cfg }

// Lookup walks the active list head to tail matching (ifaceID, protoAddr).
// On a hit it increments the accessed counter and promotes
// the entry to the head once the counter exceeds the configured threshold
// (MRU promotion), resetting the counter.
func (tx *Tx) Lookup(ifaceID int, protoAddr []byte) (*Entry, LookupStatus) {
	c := tx.c
	for e := c.head; e != nil; e = e.next {
		if !e.matches(ifaceID, protoAddr) {
			continue
		}
		e.accessed++
		if e.accessed > c.cfg.AccessedPromotionThreshold {
			listPromote(&c.head, &c.tail, e)
			e.accessed = 0
		}
		switch e.state {
		case StateResolved, StateRenew:
			return e, FoundResolved
		default:
			return e, FoundPending
		}
	}
	c.logTrace("neighcache:lookup-miss", slog.Int("iface", ifaceID))
	return nil, NotFound
}

// Allocate draws a fresh entry for (ifaceID, protoAddr) out of the free
// pool, evicting the least-recently-used Resolved/Renew entry if the pool
// is exhausted. It never evicts a Pending entry: ErrNoEntryAvailable is
// returned instead. The returned entry starts in
// StateFree with protoAddr/ifaceID stamped; the caller transitions it and
// calls Insert.
func (tx *Tx) Allocate(ifaceID int, protoAddr []byte) (*Entry, error) {
	c := tx.c
	e := c.st.popFree()
	if e == nil {
		e = tx.evictResolved()
		if e == nil {
			return nil, ErrNoEntryAvailable
		}
	}
	e.kind = c.kind
	e.ifaceID = ifaceID
	e.protoLen = uint8(len(protoAddr))
	copy(e.protoAddr[:], protoAddr)
	e.protoValid = true
	e.flags |= FlagInUse
	e.pendingThreshold = c.cfg.PendingThreshold
	return e, nil
}

// evictResolved scans the active list tail-to-head for the first entry
// with a valid hardware address (always Resolved or Renew) and reclaims
// it directly for reuse, bypassing the free stack since the caller
// (Allocate) is about to re-stamp it immediately. Pending entries are
// never considered.
func (tx *Tx) evictResolved() *Entry {
	c := tx.c
	for e := c.tail; e != nil; e = e.prev {
		if e.hwValid {
			listUnlink(&c.head, &c.tail, e)
			tx.drain(e, true)
			e.reset()
			return e
		}
	}
	return nil
}

// Insert links e at the head of the active list.
func (tx *Tx) Insert(e *Entry) {
	listInsert(&tx.c.head, &tx.c.tail, e)
	active := 0
	for n := tx.c.head; n != nil; n = n.next {
		active++
	}
	if active > tx.c.hiActive {
		tx.c.hiActive = active
	}
}

// Unlink removes e from the active list without releasing it back to the
// free pool.
func (tx *Tx) Unlink(e *Entry) {
	listUnlink(&tx.c.head, &tx.c.tail, e)
}

// Remove composes Unlink and release.
func (tx *Tx) Remove(e *Entry, freeTimer bool) {
	tx.Unlink(e)
	tx.release(e, freeTimer)
}

// release drains e's pending FIFO through the buffer pool with the
// "transmit discarded" counter, frees its timer if requested, clears e
// and pushes it back onto the free stack. A release on an already-free
// entry is a no-op (double-free guard).
func (tx *Tx) release(e *Entry, freeTimer bool) {
	if !e.inUse() {
		return
	}
	tx.drain(e, freeTimer)
	e.reset()
	tx.c.st.pushFree(e)
}

// drain gives back e's held external resources (timer, pending FIFO)
// without touching free-pool membership; shared by release, which cycles
// e through the free stack, and evictResolved, which reuses e immediately.
func (tx *Tx) drain(e *Entry, freeTimer bool) {
	c := tx.c
	if e.hasTimer {
		if freeTimer && c.timers != nil {
			c.timers.Free(e.timer)
		}
		e.timer = nil
		e.hasTimer = false
	}
	if len(e.pending) > 0 && c.bufPool != nil {
		bufs := tx.takePendingLocked(e)
		c.bufPool.FreeQueue(bufs, netiface.CounterTxDiscarded)
	}
}

// EnqueuePending appends buf to e's pending FIFO and arranges for the
// buffer pool to notify this cache if buf is reclaimed out of band. It
// returns false without mutating e if the FIFO is already at the
// configured threshold.
func (tx *Tx) EnqueuePending(e *Entry, buf netiface.Buffer) bool {
	if len(e.pending) >= e.pendingThreshold {
		return false
	}
	buf.SetUnlink(tx.c.unlinkPendingBuffer, e)
	e.pending = append(e.pending, buf)
	return true
}

// TakePending detaches and returns e's whole pending FIFO in original
// enqueue order, clearing each buffer's unlink callback. Used both to
// flush a just-resolved entry to the driver and, via release, to
// discard a freed entry's queue.
func (tx *Tx) TakePending(e *Entry) []netiface.Buffer {
	return tx.takePendingLocked(e)
}

func (tx *Tx) takePendingLocked(e *Entry) []netiface.Buffer {
	bufs := e.pending
	for _, b := range bufs {
		b.ClearUnlink()
	}
	e.pending = nil
	return bufs
}

// unlinkPendingBuffer is registered as the unlink callback on every
// buffer enqueued via EnqueuePending. It is invoked by the buffer pool,
// out of band from any Tx, so it takes the lock itself.
func (c *Cache) unlinkPendingBuffer(obj any, buf netiface.Buffer) {
	e, ok := obj.(*Entry)
	if !ok || e == nil {
		c.counters.Inc(netiface.CounterCorruption)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, b := range e.pending {
		if b == buf {
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			return
		}
	}
}

// RemoveInterface releases every entry owned by ifaceID: used when an
// owning interface goes down or its address changes, so cache entries
// are drained through the normal release path instead of being silently
// dropped.
func (c *Cache) RemoveInterface(ifaceID int) {
	c.Transact(func(tx *Tx) {
		e := c.head
		for e != nil {
			next := e.next
			if e.ifaceID == ifaceID {
				tx.Remove(e, true)
			}
			e = next
		}
	})
}

// logTrace is a light convenience wrapper kept deliberately tiny: it
// returns before logging unless a logger is set and enabled at trace
// level. Attrs passed to it are still built by the caller.
func (c *Cache) logTrace(msg string, attrs ...slog.Attr) {
	if !internal.LogEnabled(c.log, internal.LevelTrace) {
		return
	}
	internal.LogAttrs(c.log, internal.LevelTrace, msg, attrs...)
}

