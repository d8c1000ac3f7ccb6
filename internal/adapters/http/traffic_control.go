package httpadapter

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// rateLimited gates AI-backed endpoints per client IP. The default budget
// mirrors the upstream vision quota of 50 requests per 15 minutes.
func (rt *Router) rateLimited(next http.Handler) http.Handler {
	if rt.deps.RateLimitRPS <= 0 {
		return next
	}
	limiters := newLimiterPool(rate.Limit(rt.deps.RateLimitRPS), rt.deps.RateLimitBurst)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiters.get(clientIP(r)).Allow() {
			if rt.deps.Metrics != nil {
				rt.deps.Metrics.RecordRateLimited(rt.deps.Service, r.URL.Path)
			}
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests,
				map[string]string{"error": "rate limit exceeded, retry later"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type limiterPool struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	byClient map[string]*rate.Limiter
	lastSeen map[string]time.Time
}

func newLimiterPool(limit rate.Limit, burst int) *limiterPool {
	if burst <= 0 {
		burst = 1
	}
	return &limiterPool{
		limit:    limit,
		burst:    burst,
		byClient: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
	}
}

func (p *limiterPool) get(client string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.evictStale()

	limiter, ok := p.byClient[client]
	if !ok {
		limiter = rate.NewLimiter(p.limit, p.burst)
		p.byClient[client] = limiter
	}
	p.lastSeen[client] = time.Now()
	return limiter
}

// evictStale drops limiters idle for an hour so the pool does not grow with
// every client ever seen. Called under p.mu.
func (p *limiterPool) evictStale() {
	cutoff := time.Now().Add(-time.Hour)
	for client, seen := range p.lastSeen {
		if seen.Before(cutoff) {
			delete(p.byClient, client)
			delete(p.lastSeen, client)
		}
	}
}

// backpressureMiddleware bounds concurrent requests. A request that cannot
// take a slot within wait gets a 503 instead of queueing unboundedly.
func backpressureMiddleware(next http.Handler, maxInFlight int, wait time.Duration) http.Handler {
	slots := make(chan struct{}, maxInFlight)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case slots <- struct{}{}:
			defer func() { <-slots }()
			next.ServeHTTP(w, r)
		case <-timer.C:
			writeJSON(w, http.StatusServiceUnavailable,
				map[string]string{"error": "server is at capacity, retry later"})
		case <-r.Context().Done():
		}
	})
}
