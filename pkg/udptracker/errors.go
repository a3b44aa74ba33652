package udptracker

import (
	"github.com/anthonyraymond/joal-udptracker/pkg/udptracker/connection"
	"github.com/anthonyraymond/joal-udptracker/pkg/udptracker/transaction"
	"github.com/anthonyraymond/joal-udptracker/pkg/udptracker/wire"
)

var (
	ErrConnectFailed  = connection.ErrConnectFailed
	ErrTrackerTimeout = transaction.ErrTrackerTimeout
	ErrCancelled      = transaction.ErrCancelled
	ErrLengthMismatch = wire.ErrLengthMismatch
	ErrMalformedField = wire.ErrMalformedField
)

// RejectedError is returned when the tracker answers with an Error action.
type RejectedError = transaction.RejectedError
