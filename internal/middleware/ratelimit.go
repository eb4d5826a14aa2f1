package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a per-client-IP request budget on the API.
type RateLimiter struct {
	mu      sync.Mutex
	perIP   map[string]*ipLimiter
	ipRate  rate.Limit
	ipBurst int
	cleanup *time.Ticker
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter builds a limiter allowing ipRate requests per second with
// the given burst per client IP.
func NewRateLimiter(ipRate float64, ipBurst int) *RateLimiter {
	rl := &RateLimiter{
		perIP:   make(map[string]*ipLimiter),
		ipRate:  rate.Limit(ipRate),
		ipBurst: ipBurst,
		cleanup: time.NewTicker(time.Minute),
	}
	go rl.cleanupStale()
	return rl
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if l, ok := rl.perIP[ip]; ok {
		l.lastSeen = time.Now()
		return l.limiter
	}
	l := &ipLimiter{limiter: rate.NewLimiter(rl.ipRate, rl.ipBurst), lastSeen: time.Now()}
	rl.perIP[ip] = l
	return l.limiter
}

// cleanupStale drops IP entries idle for more than 3 minutes.
func (rl *RateLimiter) cleanupStale() {
	for range rl.cleanup.C {
		rl.mu.Lock()
		for ip, l := range rl.perIP {
			if time.Since(l.lastSeen) > 3*time.Minute {
				delete(rl.perIP, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Stop ends the cleanup loop.
func (rl *RateLimiter) Stop() {
	rl.cleanup.Stop()
}

// Limit rejects over-budget clients with 429.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.getLimiter(clientIP(r)).Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the caller's address, honoring common proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == ':' {
			return ip[:i]
		}
	}
	return ip
}
