package wire

import (
	"github.com/pkg/errors"
)

var (
	// ErrLengthMismatch is returned when a buffer does not have the exact (or minimum) length of its action.
	ErrLengthMismatch = errors.New("length mismatch")
	// ErrMalformedField is returned when a variable sized field can not be parsed.
	ErrMalformedField = errors.New("malformed field")
	// ErrUnexpectedAction is returned by Decode when the header carries another action than the expected one.
	ErrUnexpectedAction = errors.New("unexpected action")
)

func exactLength(action Action, buf []byte, want int) error {
	if len(buf) != want {
		return errors.Wrapf(ErrLengthMismatch, "%s: got %d bytes, want %d", action, len(buf), want)
	}
	return nil
}

func minLength(action Action, buf []byte, want int) error {
	if len(buf) < want {
		return errors.Wrapf(ErrLengthMismatch, "%s: got %d bytes, want at least %d", action, len(buf), want)
	}
	return nil
}

func unexpectedAction(expected Action, got Action) error {
	return errors.Wrapf(ErrUnexpectedAction, "expected %s, got %s", expected, got)
}
