package duration

import (
	"math"
	"time"
)

func Max(d1 time.Duration, d2 time.Duration) time.Duration {
	if d2 > d1 {
		return d2
	}
	return d1
}

// Seconds converts a second count read from the wire.
func Seconds(s uint32) time.Duration {
	return time.Duration(s) * time.Second
}

// Doubled returns base * 2^n, saturating instead of overflowing.
func Doubled(base time.Duration, n int) time.Duration {
	if base <= 0 || n <= 0 {
		return base
	}
	if n >= 63 || base > time.Duration(math.MaxInt64>>uint(n)) {
		return time.Duration(math.MaxInt64)
	}
	return base << uint(n)
}
