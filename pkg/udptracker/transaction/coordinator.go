package transaction

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/anthonyraymond/joal-udptracker/pkg/randutils"
	"github.com/anthonyraymond/joal-udptracker/pkg/udptracker/wire"
	"github.com/elliotchance/orderedmap"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type Config struct {
	Retry             *Schedule `yaml:"retry" validate:"required"`
	ReceiveBufferSize int       `yaml:"receiveBufferSize" validate:"min=20"`
}

func (c Config) Default() *Config {
	return &Config{
		Retry:             Schedule{}.Default(),
		ReceiveBufferSize: 2048,
	}
}

// timerFunc returns a channel firing after d and a function releasing the timer.
type timerFunc func(d time.Duration) (<-chan time.Time, func())

func realTimer(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTimer(d)
	return t.C, func() { t.Stop() }
}

type Stats struct {
	Sent          int64
	Retransmitted int64
	Matched       int64
	Dropped       int64
}

// Coordinator correlates requests written to a shared UDP socket with the datagrams read back from it.
// It is the only reader of the socket.
type Coordinator struct {
	conn       net.PacketConn
	schedule   Schedule
	bufferSize int
	log        *zap.Logger

	timer timerFunc
	newID func() uint32
	now   func() time.Time

	inFlight *orderedmap.OrderedMap // uint32 -> *Transaction, in dispatch order
	closed   bool
	lock     *sync.Mutex
	loopDone chan struct{}

	sent          *atomic.Int64
	retransmitted *atomic.Int64
	matched       *atomic.Int64
	dropped       *atomic.Int64
}

// NewCoordinator takes ownership of conn and starts reading from it.
func NewCoordinator(conn net.PacketConn, conf *Config, log *zap.Logger) *Coordinator {
	c := newCoordinator(conn, conf, log)
	go c.receiveLoop()
	return c
}

func newCoordinator(conn net.PacketConn, conf *Config, log *zap.Logger) *Coordinator {
	return &Coordinator{
		conn:          conn,
		schedule:      *conf.Retry,
		bufferSize:    conf.ReceiveBufferSize,
		log:           log,
		timer:         realTimer,
		newID:         randutils.Uint32,
		now:           time.Now,
		inFlight:      orderedmap.NewOrderedMap(),
		closed:        false,
		lock:          &sync.Mutex{},
		loopDone:      make(chan struct{}),
		sent:          atomic.NewInt64(0),
		retransmitted: atomic.NewInt64(0),
		matched:       atomic.NewInt64(0),
		dropped:       atomic.NewInt64(0),
	}
}

// Send stamps req with a transaction id unique among the in-flight ones, transmits it and blocks until the
// tracker answers, the retry schedule is exhausted or ctx is done.
// The returned bytes are the whole response datagram. An Error action is returned as *RejectedError.
func (c *Coordinator) Send(ctx context.Context, endpoint net.Addr, req wire.Request) ([]byte, error) {
	trx, err := c.register(endpoint, req)
	if err != nil {
		return nil, err
	}
	log := c.log.With(zap.Uint32("transaction", trx.ID), zap.Stringer("action", trx.Action))

	for {
		if err := c.transmit(trx); err != nil {
			if c.remove(trx.ID) {
				return nil, err
			}
			return trx.wait()
		}

		timeout, stopTimer := c.timer(c.schedule.Timeout(trx.Attempt))
		select {
		case res := <-trx.done:
			stopTimer()
			return res.data, res.err
		case <-timeout:
			if trx.Attempt+1 >= c.schedule.MaxAttempts {
				if c.remove(trx.ID) {
					log.Debug("transaction coordinator: retry schedule exhausted", zap.Int("attempts", trx.Attempt+1))
					return nil, errors.Wrapf(ErrTrackerTimeout, "%s to %s: no response after %d attempts", trx.Action, endpoint, trx.Attempt+1)
				}
				return trx.wait()
			}
			c.lock.Lock()
			trx.Attempt++
			c.lock.Unlock()
			c.retransmitted.Inc()
			log.Debug("transaction coordinator: no response, retransmitting", zap.Int("attempt", trx.Attempt))
		case <-ctx.Done():
			stopTimer()
			if c.remove(trx.ID) {
				return nil, errors.WithMessage(ErrCancelled, ctx.Err().Error())
			}
			return trx.wait()
		}
	}
}

func (t *Transaction) wait() ([]byte, error) {
	res := <-t.done
	return res.data, res.err
}

func (c *Coordinator) register(endpoint net.Addr, req wire.Request) (*Transaction, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return nil, errors.WithMessage(ErrCancelled, "coordinator closed")
	}

	id := c.newID()
	for {
		if _, taken := c.inFlight.Get(id); !taken {
			break
		}
		id = c.newID()
	}

	req.SetTransactionID(id)
	buf, err := wire.Encode(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s request", req.Action())
	}

	trx := newTransaction(id, endpoint, req.Action(), buf)
	c.inFlight.Set(id, trx)
	return trx, nil
}

func (c *Coordinator) transmit(trx *Transaction) error {
	c.lock.Lock()
	trx.SentAt = c.now()
	c.lock.Unlock()

	n, err := c.conn.WriteTo(trx.request, trx.Endpoint)
	if err != nil {
		return errors.Wrapf(err, "failed to send %s datagram to %s", trx.Action, trx.Endpoint)
	}
	if n != len(trx.request) {
		return errors.Errorf("failed to send %s datagram to %s: wrote %d bytes out of %d", trx.Action, trx.Endpoint, n, len(trx.request))
	}
	if trx.Attempt == 0 {
		c.sent.Inc()
	}
	return nil
}

// remove returns true if the caller took the transaction out of the table, and with it the duty to resolve it.
func (c *Coordinator) remove(id uint32) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.inFlight.Delete(id)
}

// Cancel releases the caller waiting on the transaction with ErrCancelled. No further retransmission happens.
func (c *Coordinator) Cancel(id uint32) bool {
	c.lock.Lock()
	v, ok := c.inFlight.Get(id)
	if ok {
		c.inFlight.Delete(id)
	}
	c.lock.Unlock()
	if !ok {
		return false
	}
	v.(*Transaction).resolve(nil, errors.WithMessage(ErrCancelled, "cancelled by owner"))
	return true
}

func (c *Coordinator) receiveLoop() {
	defer close(c.loopDone)
	buf := make([]byte, c.bufferSize)
	for {
		n, from, err := c.conn.ReadFrom(buf)
		if err != nil {
			if c.isClosed() || errors.Is(err, net.ErrClosed) {
				return
			}
			c.log.Warn("transaction coordinator: failed to read datagram", zap.Error(err))
			continue
		}
		c.dispatch(append([]byte(nil), buf[:n]...), from)
	}
}

func (c *Coordinator) dispatch(datagram []byte, from net.Addr) {
	hdr, err := wire.DecodeHeader(datagram)
	if err != nil {
		c.drop("unreadable header", from, zap.Int("length", len(datagram)))
		return
	}

	c.lock.Lock()
	v, ok := c.inFlight.Get(hdr.TransactionID)
	if !ok {
		c.lock.Unlock()
		c.drop("no transaction in flight", from, zap.Uint32("transaction", hdr.TransactionID))
		return
	}
	trx := v.(*Transaction)
	if !trx.acceptsFrom(from) || (hdr.Action != trx.Action && hdr.Action != wire.Error) {
		c.lock.Unlock()
		c.drop("response does not match transaction", from, zap.Uint32("transaction", hdr.TransactionID), zap.Stringer("action", hdr.Action))
		return
	}
	c.inFlight.Delete(hdr.TransactionID)
	c.lock.Unlock()
	c.matched.Inc()

	if hdr.Action != wire.Error {
		trx.resolve(datagram, nil)
		return
	}
	res := &wire.ErrorResponse{}
	if err := res.UnmarshalBinary(datagram); err != nil {
		trx.resolve(nil, err)
		return
	}
	trx.resolve(nil, &RejectedError{Action: trx.Action, Message: res.Message})
}

func (c *Coordinator) drop(reason string, from net.Addr, fields ...zap.Field) {
	c.dropped.Inc()
	c.log.Debug("transaction coordinator: datagram dropped", append(fields, zap.String("reason", reason), zap.Stringer("from", from))...)
}

func (c *Coordinator) isClosed() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.closed
}

// InFlight is the number of transactions waiting for a response.
func (c *Coordinator) InFlight() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.inFlight.Len()
}

func (c *Coordinator) Stats() Stats {
	return Stats{
		Sent:          c.sent.Load(),
		Retransmitted: c.retransmitted.Load(),
		Matched:       c.matched.Load(),
		Dropped:       c.dropped.Load(),
	}
}

// Close cancels every pending transaction, closes the socket and waits for the receive loop to return.
func (c *Coordinator) Close() error {
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return nil
	}
	c.closed = true
	pending := make([]*Transaction, 0, c.inFlight.Len())
	for el := c.inFlight.Front(); el != nil; el = el.Next() {
		pending = append(pending, el.Value.(*Transaction))
	}
	for _, trx := range pending {
		c.inFlight.Delete(trx.ID)
	}
	c.lock.Unlock()

	for _, trx := range pending {
		trx.resolve(nil, errors.WithMessage(ErrCancelled, "coordinator closed"))
	}
	c.log.Debug("transaction coordinator: closed", zap.Int("cancelled", len(pending)))

	err := c.conn.Close()
	<-c.loopDone
	if err != nil {
		return errors.Wrap(err, "failed to close socket")
	}
	return nil
}
