// Package ratelimit keeps one token bucket per caller key.
package ratelimit

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Limiter allows Requests calls per Window for each key, refilling evenly.
// Idle buckets are evicted after two windows.
type Limiter struct {
	mu       sync.Mutex
	buckets  *cache.Cache
	requests int
	window   time.Duration
}

func New(requests int, window time.Duration) *Limiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		buckets:  cache.New(2*window, window),
		requests: requests,
		window:   window,
	}
}

func (l *Limiter) Allow(key string) (bool, time.Duration) {
	return l.AllowAt(key, time.Now())
}

// AllowAt consumes one token for key at now. When refused it returns how long
// until a token is available.
func (l *Limiter) AllowAt(key string, now time.Time) (bool, time.Duration) {
	bucket := l.bucket(key)

	r := bucket.ReserveN(now, 1)
	if !r.OK() {
		return false, l.window
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, found := l.buckets.Get(key); found {
		l.buckets.SetDefault(key, v)
		return v.(*rate.Limiter)
	}
	every := l.window / time.Duration(l.requests)
	bucket := rate.NewLimiter(rate.Every(every), l.requests)
	l.buckets.SetDefault(key, bucket)
	return bucket
}

func (l *Limiter) Requests() int         { return l.requests }
func (l *Limiter) Window() time.Duration { return l.window }
