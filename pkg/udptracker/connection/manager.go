package connection

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/anthonyraymond/joal-udptracker/pkg/duration"
	"github.com/anthonyraymond/joal-udptracker/pkg/udptracker/transaction"
	"github.com/anthonyraymond/joal-udptracker/pkg/udptracker/wire"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultValidity is how long BEP 15 lets a client reuse a connection id.
const DefaultValidity = 60 * time.Second

var ErrConnectFailed = errors.New("connect failed")

// ConnectError wraps the transaction failure of a Connect exchange.
type ConnectError struct {
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s failed: %v", e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

func (e *ConnectError) Is(target error) bool { return target == ErrConnectFailed }

// Sender is the part of the transaction Coordinator the Manager drives Connect exchanges through.
type Sender interface {
	Send(ctx context.Context, endpoint net.Addr, req wire.Request) ([]byte, error)
}

// Lease is a connection id handed out by the Manager, along with the window the Manager trusts it for.
type Lease struct {
	ID            uint64
	EstablishedAt time.Time
	ExpiresAt     time.Time
}

func (l Lease) Remaining(now time.Time) time.Duration {
	return duration.Max(0, l.ExpiresAt.Sub(now))
}

type state struct {
	id            uint64
	establishedAt time.Time
}

type renewal struct {
	done  chan struct{}
	lease Lease
	err   error
}

// Manager caches one connection id per tracker endpoint and renews it when it expires.
type Manager struct {
	sender   Sender
	validity time.Duration
	log      *zap.Logger
	now      func() time.Time

	states   map[string]state
	renewals map[string]*renewal
	lock     *sync.Mutex
}

func NewManager(sender Sender, validity time.Duration, log *zap.Logger) *Manager {
	return &Manager{
		sender:   sender,
		validity: validity,
		log:      log,
		now:      time.Now,
		states:   make(map[string]state),
		renewals: make(map[string]*renewal),
		lock:     &sync.Mutex{},
	}
}

// ConnectionID returns a connection id valid for endpoint. A cached id still inside its validity window is
// returned without any network I/O, otherwise a Connect exchange is performed, or joined if one is already running.
func (m *Manager) ConnectionID(ctx context.Context, endpoint net.Addr) (Lease, error) {
	key := endpoint.String()

	m.lock.Lock()
	if lease, ok := m.validLease(key); ok {
		m.lock.Unlock()
		return lease, nil
	}
	r := m.renewalFor(endpoint, key)
	m.lock.Unlock()

	return m.await(ctx, r)
}

// Renew forgets the connection id stale and obtains a fresh one. If stale has already been replaced by another
// caller the replacement is returned as is.
func (m *Manager) Renew(ctx context.Context, endpoint net.Addr, stale uint64) (Lease, error) {
	key := endpoint.String()

	m.lock.Lock()
	if st, ok := m.states[key]; ok && st.id == stale {
		delete(m.states, key)
	}
	if lease, ok := m.validLease(key); ok {
		m.lock.Unlock()
		return lease, nil
	}
	r := m.renewalFor(endpoint, key)
	m.lock.Unlock()

	return m.await(ctx, r)
}

// must be called with the lock held
func (m *Manager) validLease(key string) (Lease, bool) {
	st, ok := m.states[key]
	if !ok {
		return Lease{}, false
	}
	if m.now().Sub(st.establishedAt) >= m.validity {
		delete(m.states, key)
		return Lease{}, false
	}
	return m.leaseOf(st), true
}

func (m *Manager) leaseOf(st state) Lease {
	return Lease{
		ID:            st.id,
		EstablishedAt: st.establishedAt,
		ExpiresAt:     st.establishedAt.Add(m.validity),
	}
}

// must be called with the lock held
func (m *Manager) renewalFor(endpoint net.Addr, key string) *renewal {
	if r, ok := m.renewals[key]; ok {
		return r
	}
	r := &renewal{done: make(chan struct{})}
	m.renewals[key] = r
	go m.connect(endpoint, key, r)
	return r
}

// connect runs detached from the callers so that a waiter giving up does not abort the exchange for the others.
// It ends when the Coordinator answers, times out or gets closed.
func (m *Manager) connect(endpoint net.Addr, key string, r *renewal) {
	log := m.log.With(zap.String("tracker", key))
	log.Debug("connection manager: connecting")

	req := wire.NewConnectRequest()
	var res *wire.ConnectResponse
	data, err := m.sender.Send(context.Background(), endpoint, req)
	if err == nil {
		res, err = decodeConnectResponse(data, req.TransactionID)
	}

	m.lock.Lock()
	delete(m.renewals, key)
	if err == nil {
		st := state{id: res.ConnectionID, establishedAt: m.now()}
		m.states[key] = st
		r.lease = m.leaseOf(st)
	} else {
		r.err = &ConnectError{Endpoint: key, Err: err}
	}
	m.lock.Unlock()
	close(r.done)

	if err != nil {
		log.Warn("connection manager: connect failed", zap.Error(err))
		return
	}
	log.Info("connection manager: connected", zap.Uint64("connection", r.lease.ID), zap.Time("expires", r.lease.ExpiresAt))
}

func decodeConnectResponse(data []byte, transactionID uint32) (*wire.ConnectResponse, error) {
	m, err := wire.Decode(data, wire.Connect)
	if err != nil {
		return nil, err
	}
	res, ok := m.(*wire.ConnectResponse)
	if !ok {
		return nil, errors.Errorf("unexpected %s response to connect", m.Action())
	}
	if res.TransactionID != transactionID {
		return nil, errors.Errorf("connect response transaction %d does not match request %d", res.TransactionID, transactionID)
	}
	return res, nil
}

func (m *Manager) await(ctx context.Context, r *renewal) (Lease, error) {
	select {
	case <-r.done:
		return r.lease, r.err
	case <-ctx.Done():
		return Lease{}, errors.WithMessage(transaction.ErrCancelled, ctx.Err().Error())
	}
}
