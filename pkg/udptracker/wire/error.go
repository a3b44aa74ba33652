package wire

import (
	"strings"
)

const ErrorResponseMinLength = 8

// ErrorResponse is what a tracker sends back when it refuses a request.
type ErrorResponse struct {
	TransactionID uint32
	Message       string
}

func (r *ErrorResponse) Action() Action           { return Error }
func (r *ErrorResponse) GetTransactionID() uint32 { return r.TransactionID }

func (r *ErrorResponse) MarshalBinary() ([]byte, error) {
	buf := make([]byte, ErrorResponseMinLength+len(r.Message))
	putResponseHeader(buf, Error, r.TransactionID)
	copy(buf[ErrorResponseMinLength:], r.Message)
	return buf, nil
}

func (r *ErrorResponse) UnmarshalBinary(buf []byte) error {
	if err := minLength(Error, buf, ErrorResponseMinLength); err != nil {
		return err
	}
	hdr, _ := DecodeHeader(buf)
	if hdr.Action != Error {
		return unexpectedAction(Error, hdr.Action)
	}
	// some trackers NUL terminate the message or send latin-1
	msg := strings.TrimRight(string(buf[ErrorResponseMinLength:]), "\x00")
	r.TransactionID = hdr.TransactionID
	r.Message = strings.ToValidUTF8(msg, "\uFFFD")
	return nil
}
