package domain

import (
	"math"
	"time"
)

// MaxDelayMillis is the largest millisecond count that fits in a time.Duration.
const MaxDelayMillis = math.MaxInt64 / int64(time.Millisecond)

// DelayFromMillis converts a configured delay in milliseconds.
func DelayFromMillis(ms int64) (time.Duration, error) {
	if ms < 0 || ms > MaxDelayMillis {
		return 0, ErrInvalidDelay
	}
	return time.Duration(ms) * time.Millisecond, nil
}
