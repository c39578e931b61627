package queue

import (
	"time"

	"golang.org/x/time/rate"
)

// NewRateLimiter returns a token-bucket limiter spaced so that releases are
// window/maxEvents apart, keeping any rolling window of length window
// close to maxEvents releases (at most one extra at a window boundary, the
// usual token-bucket-vs-sliding-window edge effect). The burst is fixed at
// 1: a burst equal to maxEvents would let a caller drain a full bucket at
// t=0 and another full window's refill by t=window, admitting close to
// 2*maxEvents across that window instead. maxEvents of 0 disables the
// limit (NewRunner treats a nil limiter the same way; this helper returns
// nil directly so callers can pass the result straight through).
func NewRateLimiter(maxEvents int, window time.Duration) *rate.Limiter {
	if maxEvents <= 0 || window <= 0 {
		return nil
	}
	perEvent := window / time.Duration(maxEvents)
	return rate.NewLimiter(rate.Every(perEvent), 1)
}
