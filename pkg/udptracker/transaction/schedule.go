package transaction

import (
	"time"

	"github.com/anthonyraymond/joal-udptracker/pkg/duration"
)

// Schedule is the retransmission policy: attempt n waits BaseTimeout * 2^n for a reply.
type Schedule struct {
	BaseTimeout time.Duration `yaml:"baseTimeout" validate:"gt=0"`
	MaxAttempts int           `yaml:"maxAttempts" validate:"min=1"`
}

// Default is the BEP 15 schedule, 15s doubling up to the 9th transmission.
func (s Schedule) Default() *Schedule {
	return &Schedule{
		BaseTimeout: 15 * time.Second,
		MaxAttempts: 9,
	}
}

func (s Schedule) Timeout(attempt int) time.Duration {
	return duration.Doubled(s.BaseTimeout, attempt)
}

// SentAfter is the time elapsed between the first transmission and the given attempt.
func (s Schedule) SentAfter(attempt int) time.Duration {
	var elapsed time.Duration
	for n := 0; n < attempt; n++ {
		elapsed += s.Timeout(n)
	}
	return elapsed
}

// GivesUpAfter is the total time a transaction can wait before failing with ErrTrackerTimeout.
func (s Schedule) GivesUpAfter() time.Duration {
	return s.SentAfter(s.MaxAttempts)
}
