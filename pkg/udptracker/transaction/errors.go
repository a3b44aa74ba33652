package transaction

import (
	"fmt"

	"github.com/anthonyraymond/joal-udptracker/pkg/udptracker/wire"
	"github.com/pkg/errors"
)

var (
	// ErrTrackerTimeout is returned once every attempt of the retry schedule went unanswered.
	ErrTrackerTimeout = errors.New("tracker timeout")
	// ErrCancelled is returned to the caller of a transaction removed before any response came in.
	ErrCancelled = errors.New("transaction cancelled")
)

// RejectedError carries the message of an Error action sent back by the tracker.
type RejectedError struct {
	Action  wire.Action
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("tracker rejected %s request: %s", e.Action, e.Message)
}
