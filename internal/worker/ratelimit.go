package worker

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientLimiter is one client's token bucket plus counters.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	requests int64
	rejected int64
}

// PerClientRateLimiter implements per-client rate limiting.
type PerClientRateLimiter struct {
	lastCleanup     time.Time
	clients         map[string]*clientLimiter
	now             func() time.Time
	rate            rate.Limit
	burst           int
	cleanupInterval time.Duration
	maxIdleTime     time.Duration
	mu              sync.Mutex
}

// NewPerClientRateLimiter creates a new per-client rate limiter.
// rps is the sustained requests per second; burst the bucket size.
func NewPerClientRateLimiter(rps float64, burst int) *PerClientRateLimiter {
	return &PerClientRateLimiter{
		rate:            rate.Limit(rps),
		burst:           burst,
		clients:         make(map[string]*clientLimiter),
		now:             time.Now,
		cleanupInterval: 5 * time.Minute,
		maxIdleTime:     10 * time.Minute,
		lastCleanup:     time.Now(),
	}
}

// Allow checks if a request from the given client should be allowed.
func (pcrl *PerClientRateLimiter) Allow(clientKey string) bool {
	pcrl.mu.Lock()
	defer pcrl.mu.Unlock()

	now := pcrl.now()
	if now.Sub(pcrl.lastCleanup) > pcrl.cleanupInterval {
		pcrl.cleanupLocked(now)
	}

	cl, exists := pcrl.clients[clientKey]
	if !exists {
		cl = &clientLimiter{limiter: rate.NewLimiter(pcrl.rate, pcrl.burst)}
		pcrl.clients[clientKey] = cl
	}
	cl.lastSeen = now
	cl.requests++

	if cl.limiter.AllowN(now, 1) {
		return true
	}
	cl.rejected++
	return false
}

// cleanupLocked removes idle limiters. Must be called with lock held.
func (pcrl *PerClientRateLimiter) cleanupLocked(now time.Time) {
	for key, cl := range pcrl.clients {
		if now.Sub(cl.lastSeen) > pcrl.maxIdleTime {
			delete(pcrl.clients, key)
		}
	}
	pcrl.lastCleanup = now
}

// Stats returns aggregate statistics.
func (pcrl *PerClientRateLimiter) Stats() map[string]any {
	pcrl.mu.Lock()
	defer pcrl.mu.Unlock()

	var totalRequests, totalRejected int64
	for _, cl := range pcrl.clients {
		totalRequests += cl.requests
		totalRejected += cl.rejected
	}

	return map[string]any{
		"rate":           float64(pcrl.rate),
		"burst":          pcrl.burst,
		"active_clients": len(pcrl.clients),
		"total_requests": totalRequests,
		"total_rejected": totalRejected,
	}
}

// PerClientRateLimitMiddleware creates middleware that applies per-client
// rate limiting. Identified callers are limited per user, anonymous ones
// per address (RealIP has already rewritten RemoteAddr).
func PerClientRateLimitMiddleware(limiter *PerClientRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientKey(r)) {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if owner, ok := OwnerFromContext(r.Context()); ok && owner.UserID != "" {
		return "user:" + owner.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = strings.Trim(r.RemoteAddr, "[]")
	}
	return "ip:" + host
}
