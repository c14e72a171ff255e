package neighcache

import (
	"time"

	"github.com/soypat/netcache/netiface"
)

type fakeBuffer struct {
	data      []byte
	dstHW     [6]byte
	unlinkCB  netiface.UnlinkFunc
	unlinkObj any
}

func newFakeBuffer() *fakeBuffer { return &fakeBuffer{data: make([]byte, 16)} }

func (b *fakeBuffer) Data() []byte         { return b.data }
func (b *fakeBuffer) Broadcast() bool      { return false }
func (b *fakeBuffer) DstProtoAddr() []byte { return nil }
func (b *fakeBuffer) SetHWAddr(hw [6]byte) { b.dstHW = hw }
func (b *fakeBuffer) SetUnlink(cb netiface.UnlinkFunc, obj any) {
	b.unlinkCB, b.unlinkObj = cb, obj
}
func (b *fakeBuffer) ClearUnlink() { b.unlinkCB, b.unlinkObj = nil, nil }

type fakeBufferPool struct {
	freed int
}

func (p *fakeBufferPool) Get(ifaceID int, size int) (netiface.Buffer, error) {
	return newFakeBuffer(), nil
}
func (p *fakeBufferPool) Free(buf netiface.Buffer, counter netiface.ErrCounter) { p.freed++ }
func (p *fakeBufferPool) FreeQueue(bufs []netiface.Buffer, counter netiface.ErrCounter) {
	p.freed += len(bufs)
}

type fakeTimerWheel struct {
	freed int
	next  int
}

func (w *fakeTimerWheel) Get(cb netiface.TimerCallback, obj any, d time.Duration) (netiface.TimerHandle, error) {
	w.next++
	return w.next, nil
}
func (w *fakeTimerWheel) Set(h netiface.TimerHandle, cb netiface.TimerCallback, d time.Duration) {}
func (w *fakeTimerWheel) Free(h netiface.TimerHandle)                                            { w.freed++ }
