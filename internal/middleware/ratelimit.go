package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JacLaoky/SogniPet-miniapp/pkg/logger"
)

// RateLimiter throttles requests per caller. Generation and mint endpoints
// burn real provider credit and real gas, so the limit is per wallet when
// the request names one and per IP otherwise.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	paths    map[string]struct{}
	logger   *logger.Logger
}

// NewRateLimiter creates a rate limiter throttling the given paths. With no
// paths it throttles every request.
func NewRateLimiter(requestsPerSecond float64, burst int, log *logger.Logger, paths ...string) *RateLimiter {
	if log == nil {
		log = logger.NewDefault("ratelimit")
	}
	var limited map[string]struct{}
	if len(paths) > 0 {
		limited = make(map[string]struct{}, len(paths))
		for _, p := range paths {
			limited[p] = struct{}{}
		}
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		paths:    limited,
		logger:   log,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Handler returns the rate limiting middleware handler
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.paths != nil {
			if _, limited := rl.paths[r.URL.Path]; !limited {
				next.ServeHTTP(w, r)
				return
			}
		}

		key := r.Header.Get("X-Wallet-Address")
		if key == "" {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			key = host
		}

		if !rl.getLimiter(key).Allow() {
			rl.logger.
				WithField("key", key).
				WithField("path", r.URL.Path).
				Warn("rate limit exceeded")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Cleanup drops accumulated limiters. Called periodically so one-off
// callers do not pin memory forever.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.limiters) > 10000 {
		rl.limiters = make(map[string]*rate.Limiter)
	}
}

// StartCleanup starts a background goroutine to periodically cleanup old limiters
func (rl *RateLimiter) StartCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			rl.Cleanup()
		}
	}()
}
