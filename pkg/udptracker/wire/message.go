package wire

import (
	"encoding"
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	requestHeaderLength  = 16
	responseHeaderLength = 8
)

// Message is implemented by every frame the codec knows about.
type Message interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	Action() Action
	GetTransactionID() uint32
}

// Request is a client originated Message. The transaction id is stamped by whoever dispatches it.
type Request interface {
	Message
	SetTransactionID(id uint32)
}

// Header is the part shared by every tracker response.
type Header struct {
	Action        Action
	TransactionID uint32
}

// DecodeHeader reads the action and transaction id of a response datagram.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < responseHeaderLength {
		return Header{}, errors.Wrapf(ErrLengthMismatch, "header: got %d bytes, want at least %d", len(buf), responseHeaderLength)
	}
	return Header{
		Action:        Action(binary.BigEndian.Uint32(buf[0:4])),
		TransactionID: binary.BigEndian.Uint32(buf[4:8]),
	}, nil
}

func putRequestHeader(buf []byte, connectionID uint64, action Action, transactionID uint32) {
	binary.BigEndian.PutUint64(buf[0:8], connectionID)
	binary.BigEndian.PutUint32(buf[8:12], uint32(action))
	binary.BigEndian.PutUint32(buf[12:16], transactionID)
}

func putResponseHeader(buf []byte, action Action, transactionID uint32) {
	binary.BigEndian.PutUint32(buf[0:4], uint32(action))
	binary.BigEndian.PutUint32(buf[4:8], transactionID)
}

func readRequestHeader(buf []byte) (connectionID uint64, action Action, transactionID uint32) {
	return binary.BigEndian.Uint64(buf[0:8]), Action(binary.BigEndian.Uint32(buf[8:12])), binary.BigEndian.Uint32(buf[12:16])
}

// Encode produces the wire layout of m.
func Encode(m Message) ([]byte, error) {
	return m.MarshalBinary()
}

// Decode parses a tracker response. An Error response is returned as *ErrorResponse whatever the expected action is.
func Decode(buf []byte, expected Action) (Message, error) {
	hdr, err := DecodeHeader(buf)
	if err != nil {
		return nil, err
	}
	if hdr.Action == Error {
		m := &ErrorResponse{}
		return m, m.UnmarshalBinary(buf)
	}
	if hdr.Action != expected {
		return nil, unexpectedAction(expected, hdr.Action)
	}

	var m Message
	switch expected {
	case Connect:
		m = &ConnectResponse{}
	case Announce:
		m = &AnnounceResponse{}
	case Scrape:
		m = &ScrapeResponse{}
	default:
		return nil, unexpectedAction(expected, hdr.Action)
	}
	if err := m.UnmarshalBinary(buf); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeRequest parses a client request, the tracker side of Decode.
func DecodeRequest(buf []byte, expected Action) (Request, error) {
	if err := minLength(expected, buf, requestHeaderLength); err != nil {
		return nil, err
	}
	if _, action, _ := readRequestHeader(buf); action != expected {
		return nil, unexpectedAction(expected, action)
	}

	var r Request
	switch expected {
	case Connect:
		r = &ConnectRequest{}
	case Announce:
		r = &AnnounceRequest{}
	case Scrape:
		r = &ScrapeRequest{}
	default:
		return nil, unexpectedAction(expected, expected)
	}
	if err := r.UnmarshalBinary(buf); err != nil {
		return nil, err
	}
	return r, nil
}
