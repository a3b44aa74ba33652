package wire

import (
	"encoding/binary"
)

const (
	ConnectRequestLength  = 16
	ConnectResponseLength = 16
)

type ConnectRequest struct {
	ConnectionID  uint64
	TransactionID uint32
}

// NewConnectRequest returns a Connect request carrying the protocol magic as connection id.
func NewConnectRequest() *ConnectRequest {
	return &ConnectRequest{ConnectionID: ProtocolID}
}

func (r *ConnectRequest) Action() Action             { return Connect }
func (r *ConnectRequest) GetTransactionID() uint32   { return r.TransactionID }
func (r *ConnectRequest) SetTransactionID(id uint32) { r.TransactionID = id }

func (r *ConnectRequest) MarshalBinary() ([]byte, error) {
	buf := make([]byte, ConnectRequestLength)
	putRequestHeader(buf, r.ConnectionID, Connect, r.TransactionID)
	return buf, nil
}

func (r *ConnectRequest) UnmarshalBinary(buf []byte) error {
	if err := exactLength(Connect, buf, ConnectRequestLength); err != nil {
		return err
	}
	connectionID, action, transactionID := readRequestHeader(buf)
	if action != Connect {
		return unexpectedAction(Connect, action)
	}
	r.ConnectionID = connectionID
	r.TransactionID = transactionID
	return nil
}

type ConnectResponse struct {
	TransactionID uint32
	ConnectionID  uint64
}

func (r *ConnectResponse) Action() Action           { return Connect }
func (r *ConnectResponse) GetTransactionID() uint32 { return r.TransactionID }

func (r *ConnectResponse) MarshalBinary() ([]byte, error) {
	buf := make([]byte, ConnectResponseLength)
	putResponseHeader(buf, Connect, r.TransactionID)
	binary.BigEndian.PutUint64(buf[8:16], r.ConnectionID)
	return buf, nil
}

func (r *ConnectResponse) UnmarshalBinary(buf []byte) error {
	if err := exactLength(Connect, buf, ConnectResponseLength); err != nil {
		return err
	}
	hdr, _ := DecodeHeader(buf)
	if hdr.Action != Connect {
		return unexpectedAction(Connect, hdr.Action)
	}
	r.TransactionID = hdr.TransactionID
	r.ConnectionID = binary.BigEndian.Uint64(buf[8:16])
	return nil
}
