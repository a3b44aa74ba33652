package testutils

import (
	"encoding/binary"
	"net"
	"sync"
	"testing"

	"github.com/anthonyraymond/joal-udptracker/pkg/udptracker/wire"
)

// TrackerHandler is called by the FakeTracker for every request datagram it reads.
type TrackerHandler func(tracker *FakeTracker, request []byte, from net.Addr)

// FakeTracker is a loopback UDP tracker driven by a TrackerHandler.
type FakeTracker struct {
	conn     net.PacketConn
	handler  TrackerHandler
	received map[wire.Action]int
	lock     *sync.Mutex
	done     chan struct{}
}

func NewFakeTracker(t *testing.T, handler TrackerHandler) *FakeTracker {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	tracker := &FakeTracker{
		conn:     conn,
		handler:  handler,
		received: make(map[wire.Action]int),
		lock:     &sync.Mutex{},
		done:     make(chan struct{}),
	}
	go tracker.serve()
	t.Cleanup(tracker.Close)
	return tracker
}

func (f *FakeTracker) serve() {
	defer close(f.done)
	buf := make([]byte, 2048)
	for {
		n, from, err := f.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		request := append([]byte(nil), buf[:n]...)
		if action, ok := ActionOf(request); ok {
			f.lock.Lock()
			f.received[action]++
			f.lock.Unlock()
		}
		if f.handler != nil {
			f.handler(f, request, from)
		}
	}
}

// ActionOf reads the action of a request datagram.
func ActionOf(request []byte) (wire.Action, bool) {
	if len(request) < 16 {
		return 0, false
	}
	return wire.Action(binary.BigEndian.Uint32(request[8:12])), true
}

func (f *FakeTracker) Addr() *net.UDPAddr {
	return f.conn.LocalAddr().(*net.UDPAddr)
}

// Received returns how many requests of the given action reached the tracker, retransmissions included.
func (f *FakeTracker) Received(action wire.Action) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.received[action]
}

func (f *FakeTracker) Reply(to net.Addr, m wire.Message) {
	buf, err := wire.Encode(m)
	if err != nil {
		panic(err)
	}
	f.ReplyRaw(to, buf)
}

func (f *FakeTracker) ReplyRaw(to net.Addr, buf []byte) {
	_, _ = f.conn.WriteTo(buf, to)
}

func (f *FakeTracker) Close() {
	_ = f.conn.Close()
	<-f.done
}

// SwarmTracker answers Connect with connectionID and Announce with the given swarm figures.
// An Announce carrying any other connection id is refused the way opentracker does.
func SwarmTracker(connectionID uint64, interval, leechers, seeders uint32) TrackerHandler {
	return func(tracker *FakeTracker, request []byte, from net.Addr) {
		action, ok := ActionOf(request)
		if !ok {
			return
		}
		switch action {
		case wire.Connect:
			req, err := wire.DecodeRequest(request, wire.Connect)
			if err != nil {
				return
			}
			tracker.Reply(from, &wire.ConnectResponse{TransactionID: req.GetTransactionID(), ConnectionID: connectionID})
		case wire.Announce:
			m, err := wire.DecodeRequest(request, wire.Announce)
			if err != nil {
				return
			}
			req := m.(*wire.AnnounceRequest)
			if req.ConnectionID != connectionID {
				tracker.Reply(from, &wire.ErrorResponse{TransactionID: req.TransactionID, Message: "Connection ID missmatch."})
				return
			}
			tracker.Reply(from, &wire.AnnounceResponse{TransactionID: req.TransactionID, Interval: interval, Leechers: leechers, Seeders: seeders})
		}
	}
}
