package http

import "golang.org/x/time/rate"

// talkLimiter throttles how fast one session may speak. A nil limiter or a
// non-positive rate allows everything.
type talkLimiter struct {
	lim *rate.Limiter
}

func newTalkLimiter(perSec float64, burst int) *talkLimiter {
	if perSec <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &talkLimiter{lim: rate.NewLimiter(rate.Limit(perSec), burst)}
}

func (l *talkLimiter) allow() bool {
	if l == nil {
		return true
	}
	return l.lim.Allow()
}
