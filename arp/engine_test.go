package arp

import (
	"bytes"
	"testing"

	"github.com/soypat/netcache/ethernet"
	"github.com/soypat/netcache/neighcache"
	"github.com/soypat/netcache/netiface"
)

func (e *Engine) lookupForTest(protoAddr []byte) (*neighcache.Entry, neighcache.LookupStatus) {
	var ent *neighcache.Entry
	var status neighcache.LookupStatus
	e.cache.Transact(func(tx *neighcache.Tx) { ent, status = tx.Lookup(e.ifaceID, protoAddr) })
	return ent, status
}

var (
	ourHW  = [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	ourIP  = [4]byte{192, 0, 2, 10}
	peerHW = [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
	peerIP = [4]byte{192, 0, 2, 20}
)

func newTestEngine(t *testing.T) (*Engine, *fakeDriver, *fakeBufferPool, *fakeTimerWheel) {
	t.Helper()
	drv := &fakeDriver{hw: ourHW}
	pool := &fakeBufferPool{}
	timers := newFakeTimerWheel()
	cache, err := neighcache.New(neighcache.KindARP, neighcache.DefaultConfig(), pool, timers, nil)
	if err != nil {
		t.Fatal(err)
	}
	e, err := NewEngine(0, drv, pool, timers, newFakeCounters(), cache, [][4]byte{ourIP})
	if err != nil {
		t.Fatal(err)
	}
	return e, drv, pool, timers
}

func makeARPFrame(op Operation, senderHW [6]byte, senderProto [4]byte, targetHW [6]byte, targetProto [4]byte) []byte {
	buf := make([]byte, sizeHeaderv4)
	frm, _ := NewFrame(buf)
	frm.SetHardware(hwTypeEthernet, hwLen)
	frm.SetProtocol(ethernet.TypeIPv4, protoLenIPv4)
	frm.SetOperation(op)
	shw, sproto := frm.Sender4()
	*shw, *sproto = senderHW, senderProto
	thw, tproto := frm.Target4()
	*thw, *tproto = targetHW, targetProto
	return buf
}

// A fresh Pending entry emits a correctly-formed broadcast request.
func TestSendRequestBroadcast(t *testing.T) {
	e, drv, _, _ := newTestEngine(t)
	var ent *neighcache.Entry
	e.cache.Transact(func(tx *neighcache.Tx) {
		var err error
		ent, err = tx.Allocate(0, peerIP[:])
		if err != nil {
			t.Fatal(err)
		}
		ent.SetState(neighcache.StatePending)
		ent.SetSenderProtoAddr(ourIP[:])
		tx.Insert(ent)
		if err := e.SendRequest(tx, ent); err != nil {
			t.Fatal(err)
		}
	})
	if len(drv.transmits) != 1 {
		t.Fatalf("expected 1 transmit, got %d", len(drv.transmits))
	}
	tx := drv.transmits[0]
	if tx.dst != ethernet.BroadcastAddr() {
		t.Fatalf("expected broadcast dst, got %x", tx.dst)
	}
	frm, err := NewFrame(tx.data)
	if err != nil {
		t.Fatal(err)
	}
	if frm.Operation() != OpRequest {
		t.Fatalf("expected request, got %s", frm.Operation())
	}
	shw, sproto := frm.Sender4()
	if *shw != ourHW || *sproto != ourIP {
		t.Fatalf("bad sender fields: %x %v", shw, sproto)
	}
	thw, tproto := frm.Target4()
	if *thw != ([6]byte{}) || *tproto != peerIP {
		t.Fatalf("bad target fields: %x %v", thw, tproto)
	}
	if ent.Attempts() != 1 {
		t.Fatalf("expected attempts=1, got %d", ent.Attempts())
	}
}

// A matching reply resolves a Pending entry and flushes its FIFO.
func TestReceiveResolvesPendingAndFlushes(t *testing.T) {
	e, drv, pool, _ := newTestEngine(t)
	var queued *fakeBuffer
	e.cache.Transact(func(tx *neighcache.Tx) {
		ent, err := tx.Allocate(0, peerIP[:])
		if err != nil {
			t.Fatal(err)
		}
		ent.SetState(neighcache.StatePending)
		ent.SetSenderProtoAddr(ourIP[:])
		tx.Insert(ent)
		queued = newFakeBuffer(64)
		if !tx.EnqueuePending(ent, queued) {
			t.Fatal("expected enqueue to succeed")
		}
	})

	reply := makeARPFrame(OpReply, peerHW, peerIP, ourHW, ourIP)
	buf := &fakeBuffer{data: reply}
	if err := e.Receive(buf); err != nil {
		t.Fatal(err)
	}

	ent, status := e.lookupForTest(peerIP[:])
	if status != neighcache.FoundResolved {
		t.Fatalf("expected resolved, got %s", status)
	}
	if hw, ok := ent.HWAddr(); !ok || hw != peerHW {
		t.Fatalf("bad resolved hw: %x ok=%v", hw, ok)
	}
	if ent.Attempts() != 0 {
		t.Fatalf("expected attempts reset, got %d", ent.Attempts())
	}
	if len(drv.transmits) != 1 || drv.transmits[0].dst != peerHW {
		t.Fatalf("expected flushed transmit to peer, got %+v", drv.transmits)
	}
	_ = pool
}

// Unsolicited request targeted at us both learns the sender and replies.
func TestReceiveRequestLearnsAndReplies(t *testing.T) {
	e, drv, _, _ := newTestEngine(t)
	req := makeARPFrame(OpRequest, peerHW, peerIP, [6]byte{}, ourIP)
	buf := &fakeBuffer{data: req, broadcast: true}
	if err := e.Receive(buf); err != nil {
		t.Fatal(err)
	}
	_, status := e.lookupForTest(peerIP[:])
	if status != neighcache.FoundResolved {
		t.Fatalf("expected learned entry, got %s", status)
	}
	if len(drv.transmits) != 1 {
		t.Fatalf("expected one reply, got %d", len(drv.transmits))
	}
	frm, _ := NewFrame(drv.transmits[0].data)
	if frm.Operation() != OpReply {
		t.Fatalf("expected reply, got %s", frm.Operation())
	}
	shw, sproto := frm.Sender4()
	if *shw != ourHW || *sproto != ourIP {
		t.Fatalf("bad reply sender: %x %v", shw, sproto)
	}
}

// A reply received via the broadcast flag is always rejected.
func TestReceiveRejectsBroadcastReply(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	reply := makeARPFrame(OpReply, peerHW, peerIP, ourHW, ourIP)
	buf := &fakeBuffer{data: reply, broadcast: true}
	if err := e.Receive(buf); err == nil {
		t.Fatal("expected rejection of broadcast reply")
	}
}

// Gratuitous announce carries sender=target=addr and target hw zero.
func TestSendGratuitous(t *testing.T) {
	e, drv, _, _ := newTestEngine(t)
	if err := e.SendGratuitous(ourIP); err != nil {
		t.Fatal(err)
	}
	if len(drv.transmits) != 1 {
		t.Fatalf("expected 1 transmit, got %d", len(drv.transmits))
	}
	frm, _ := NewFrame(drv.transmits[0].data)
	shw, sproto := frm.Sender4()
	thw, tproto := frm.Target4()
	if *shw != ourHW || *sproto != ourIP || *thw != ([6]byte{}) || *tproto != ourIP {
		t.Fatalf("bad gratuitous fields: s=%x/%v t=%x/%v", shw, sproto, thw, tproto)
	}
}

// RFC 3927 conflict detection: someone else claims our address.
func TestReceiveDetectsConflict(t *testing.T) {
	e, _, _, _ := newTestEngine(t)
	conflictFrame := makeARPFrame(OpRequest, peerHW, ourIP, [6]byte{}, ourIP)
	buf := &fakeBuffer{data: conflictFrame, broadcast: true}
	e.Receive(buf)
	if !e.Conflict() {
		t.Fatal("expected conflict flag set")
	}
}

// Exhausting the Pending retry count frees the entry.
func TestPendingRetryExhaustionFreesEntry(t *testing.T) {
	e, _, _, timers := newTestEngine(t)
	cfg := e.cache.Config()
	cfg.RequestMaxRetries = 1 // max attempts = 2
	if err := e.cache.Reconfigure(cfg); err != nil {
		t.Fatal(err)
	}
	var h netiface.TimerHandle
	e.cache.Transact(func(tx *neighcache.Tx) {
		ent, err := tx.Allocate(0, peerIP[:])
		if err != nil {
			t.Fatal(err)
		}
		ent.SetState(neighcache.StatePending)
		ent.SetSenderProtoAddr(ourIP[:])
		tx.Insert(ent)
		if err := e.ArmRetry(tx, ent); err != nil {
			t.Fatal(err)
		}
		e.SendRequest(tx, ent) // attempts=1
		h, _ = ent.TakeTimer()
		ent.SetTimer(h)
	})

	timers.Fire(h) // attempts 1 < 2: resend, attempts=2, rearm
	_, status := e.lookupForTest(peerIP[:])
	if status == neighcache.NotFound {
		t.Fatal("entry freed too early")
	}

	var h2 netiface.TimerHandle
	e.cache.Transact(func(tx *neighcache.Tx) {
		ent, _ := tx.Lookup(0, peerIP[:])
		h2, _ = ent.TakeTimer()
		ent.SetTimer(h2)
	})
	timers.Fire(h2) // attempts 2 >= 2: free
	_, status = e.lookupForTest(peerIP[:])
	if status != neighcache.NotFound {
		t.Fatal("expected entry freed after retry exhaustion")
	}
}

func TestPlausibleUnicastSource(t *testing.T) {
	cases := []struct {
		addr [4]byte
		ok   bool
	}{
		{[4]byte{0, 0, 0, 0}, false},
		{[4]byte{255, 255, 255, 255}, false},
		{[4]byte{224, 0, 0, 1}, false},
		{[4]byte{192, 0, 2, 1}, true},
	}
	for _, c := range cases {
		if got := isPlausibleUnicastSource(&c.addr); got != c.ok {
			t.Errorf("isPlausibleUnicastSource(%v) = %v, want %v", c.addr, got, c.ok)
		}
	}
}

func TestFrameRoundTrip(t *testing.T) {
	buf := makeARPFrame(OpRequest, peerHW, peerIP, ourHW, ourIP)
	frm, err := NewFrame(buf)
	if err != nil {
		t.Fatal(err)
	}
	shw, sproto := frm.Sender4()
	thw, tproto := frm.Target4()
	if !bytes.Equal(shw[:], peerHW[:]) || !bytes.Equal(sproto[:], peerIP[:]) ||
		!bytes.Equal(thw[:], ourHW[:]) || !bytes.Equal(tproto[:], ourIP[:]) {
		t.Fatal("round-trip mismatch")
	}
	var v Validator
	frm.Validate(&v)
	if v.HasError() {
		t.Fatal(v.ErrPop())
	}
}
