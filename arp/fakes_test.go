package arp

import (
	"errors"
	"time"

	"github.com/soypat/netcache/netiface"
)

// fakeDriver is a minimal netiface.Driver double: a single hardware
// address, a sender policy that rejects only our own and the all-zero
// address, and the standard IPv4 multicast mapping for 224.0.0.0/8,
// enough to drive deterministic scenarios.
type fakeDriver struct {
	hw        [6]byte
	transmits []fakeTx
}

type fakeTx struct {
	dst  [6]byte
	data []byte
}

func (d *fakeDriver) Transmit(buf netiface.Buffer) netiface.TxResult {
	fb := buf.(*fakeBuffer)
	cp := make([]byte, len(fb.data))
	copy(cp, fb.data)
	d.transmits = append(d.transmits, fakeTx{dst: fb.dstHW, data: cp})
	return netiface.TxOK
}
func (d *fakeDriver) HWAddr() [6]byte                  { return d.hw }
func (d *fakeDriver) IsValidHWAddr(hw [6]byte) bool    { return hw != d.hw && hw != [6]byte{} }
func (d *fakeDriver) MTU(etherType uint16) int         { return 1500 }
func (d *fakeDriver) MulticastHWAddr(proto []byte) (hw [6]byte, ok bool) {
	if len(proto) == 4 && proto[0] == 224 {
		return [6]byte{0x01, 0x00, 0x5E, proto[1] & 0x7f, proto[2], proto[3]}, true
	}
	return hw, false
}

// fakeBuffer is a minimal netiface.Buffer double over a plain byte slice.
type fakeBuffer struct {
	data       []byte
	broadcast  bool
	dstProto   []byte
	dstHW      [6]byte
	unlinkCB   netiface.UnlinkFunc
	unlinkObj  any
}

func newFakeBuffer(size int) *fakeBuffer { return &fakeBuffer{data: make([]byte, size)} }

func (b *fakeBuffer) Data() []byte      { return b.data }
func (b *fakeBuffer) Broadcast() bool   { return b.broadcast }
func (b *fakeBuffer) DstProtoAddr() []byte { return b.dstProto }
func (b *fakeBuffer) SetHWAddr(hw [6]byte) { b.dstHW = hw }
func (b *fakeBuffer) SetUnlink(cb netiface.UnlinkFunc, obj any) { b.unlinkCB, b.unlinkObj = cb, obj }
func (b *fakeBuffer) ClearUnlink()                              { b.unlinkCB, b.unlinkObj = nil, nil }

// fakeBufferPool hands out fresh fakeBuffers and records frees.
type fakeBufferPool struct {
	freed []netiface.Buffer
}

func (p *fakeBufferPool) Get(ifaceID int, size int) (netiface.Buffer, error) {
	return newFakeBuffer(size), nil
}
func (p *fakeBufferPool) Free(buf netiface.Buffer, counter netiface.ErrCounter) {
	p.freed = append(p.freed, buf)
}
func (p *fakeBufferPool) FreeQueue(bufs []netiface.Buffer, counter netiface.ErrCounter) {
	p.freed = append(p.freed, bufs...)
}

// fakeTimerWheel never fires on its own; tests invoke Fire explicitly to
// drive retry/renew callbacks deterministically.
type fakeTimerWheel struct {
	handles   int
	fail      bool
	armed     map[int]fakeTimer
}

type fakeTimer struct {
	cb  netiface.TimerCallback
	obj any
	d   time.Duration
}

func newFakeTimerWheel() *fakeTimerWheel { return &fakeTimerWheel{armed: map[int]fakeTimer{}} }

func (w *fakeTimerWheel) Get(cb netiface.TimerCallback, obj any, d time.Duration) (netiface.TimerHandle, error) {
	if w.fail {
		return nil, errors.New("no free timer slots")
	}
	w.handles++
	h := w.handles
	w.armed[h] = fakeTimer{cb: cb, obj: obj, d: d}
	return h, nil
}
func (w *fakeTimerWheel) Set(h netiface.TimerHandle, cb netiface.TimerCallback, d time.Duration) {
	w.armed[h.(int)] = fakeTimer{cb: cb, obj: w.armed[h.(int)].obj, d: d}
}
func (w *fakeTimerWheel) Free(h netiface.TimerHandle) { delete(w.armed, h.(int)) }

// Fire invokes and removes the callback registered under h, mimicking a
// one-shot timer expiring.
func (w *fakeTimerWheel) Fire(h netiface.TimerHandle) {
	t, ok := w.armed[h.(int)]
	if !ok {
		return
	}
	delete(w.armed, h.(int))
	t.cb(t.obj)
}

type fakeCounters struct {
	counts map[netiface.ErrCounter]uint32
}

func newFakeCounters() *fakeCounters { return &fakeCounters{counts: map[netiface.ErrCounter]uint32{}} }
func (c *fakeCounters) Inc(counter netiface.ErrCounter)            { c.counts[counter]++ }
func (c *fakeCounters) Add(counter netiface.ErrCounter, n uint32)  { c.counts[counter] += n }
