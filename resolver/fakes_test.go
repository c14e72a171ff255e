package resolver

import (
	"errors"

	"github.com/soypat/netcache/neighcache"
	"github.com/soypat/netcache/netiface"
)

type fakeDriver struct {
	mcast map[byte][6]byte
}

func (d *fakeDriver) Transmit(buf netiface.Buffer) netiface.TxResult { return netiface.TxOK }
func (d *fakeDriver) HWAddr() [6]byte                                { return [6]byte{0xAA} }
func (d *fakeDriver) IsValidHWAddr(hw [6]byte) bool                  { return true }
func (d *fakeDriver) MTU(etherType uint16) int                       { return 1500 }
func (d *fakeDriver) MulticastHWAddr(proto []byte) (hw [6]byte, ok bool) {
	if len(proto) != 4 || d.mcast == nil {
		return hw, false
	}
	hw, ok = d.mcast[proto[3]]
	return hw, ok
}

type fakeBuffer struct {
	dst   []byte
	dstHW [6]byte
}

func (b *fakeBuffer) Data() []byte                              { return nil }
func (b *fakeBuffer) Broadcast() bool                           { return false }
func (b *fakeBuffer) DstProtoAddr() []byte                      { return b.dst }
func (b *fakeBuffer) SetHWAddr(hw [6]byte)                      { b.dstHW = hw }
func (b *fakeBuffer) SetUnlink(cb netiface.UnlinkFunc, obj any) {}
func (b *fakeBuffer) ClearUnlink()                              {}

// fakeSender is a RequestSender double that records calls instead of
// emitting wire traffic; tests drive its failure modes by setting the
// armErr/sendErr fields directly.
type fakeSender struct {
	armed    int
	sent     int
	armErr   error
	sendErr  error
}

func (s *fakeSender) ArmRetry(tx *neighcache.Tx, e *neighcache.Entry) error {
	s.armed++
	return s.armErr
}
func (s *fakeSender) SendRequest(tx *neighcache.Tx, e *neighcache.Entry) error {
	s.sent++
	return s.sendErr
}

var errArmFailed = errors.New("arm failed")
