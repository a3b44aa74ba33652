package transaction

import (
	"net"
	"time"

	"github.com/anthonyraymond/joal-udptracker/pkg/udptracker/wire"
)

// Transaction is one logical request, owned by the Coordinator until it is answered, times out or gets cancelled.
type Transaction struct {
	ID       uint32
	Action   wire.Action
	Endpoint net.Addr
	SentAt   time.Time
	Attempt  int

	// request is transmitted verbatim on every attempt.
	request []byte
	// done receives exactly one result, written by whoever removed the transaction from the table.
	done chan result
}

type result struct {
	data []byte
	err  error
}

func newTransaction(id uint32, endpoint net.Addr, action wire.Action, request []byte) *Transaction {
	return &Transaction{
		ID:       id,
		Action:   action,
		Endpoint: endpoint,
		request:  request,
		done:     make(chan result, 1),
	}
}

func (t *Transaction) resolve(data []byte, err error) {
	t.done <- result{data: data, err: err}
}

func (t *Transaction) acceptsFrom(addr net.Addr) bool {
	want, ok := t.Endpoint.(*net.UDPAddr)
	if !ok {
		return true
	}
	got, ok := addr.(*net.UDPAddr)
	if !ok {
		return true
	}
	return want.Port == got.Port && want.IP.Equal(got.IP)
}
