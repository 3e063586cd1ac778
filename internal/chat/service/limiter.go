package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// SendLimiter is a per-user token bucket. A non-positive rate disables it.
type SendLimiter struct {
	mu       sync.Mutex
	limiters map[string]*userLimiter
	limit    rate.Limit
	burst    int
	lastGC   time.Time
}

func NewSendLimiter(perMinute int) *SendLimiter {
	l := &SendLimiter{limiters: make(map[string]*userLimiter)}
	if perMinute > 0 {
		l.limit = rate.Limit(float64(perMinute) / 60.0)
		l.burst = max(perMinute/4, 1)
	}
	return l
}

func (l *SendLimiter) Allow(uid string, now time.Time) bool {
	if l == nil || l.limit == 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastGC) > limiterIdleTTL {
		for id, ul := range l.limiters {
			if now.Sub(ul.lastAccess) > limiterIdleTTL {
				delete(l.limiters, id)
			}
		}
		l.lastGC = now
	}

	ul, ok := l.limiters[uid]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[uid] = ul
	}
	ul.lastAccess = now
	return ul.limiter.AllowN(now, 1)
}
