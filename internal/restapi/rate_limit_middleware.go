package restapi

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/subwaytime/mtapi/internal/app"
)

const anonymousKey = "__no_key__"

// RateLimitMiddleware provides per-API-key rate limiting
type RateLimitMiddleware struct {
	limiters  map[string]*rate.Limiter
	mu        sync.Mutex
	rateLimit rate.Limit
	burstSize int
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewRateLimitMiddleware allows ratePerSecond requests per interval for
// each API key, with bursts of the same size. Zero disables limiting.
func NewRateLimitMiddleware(ratePerSecond int, interval time.Duration) *RateLimitMiddleware {
	rl := &RateLimitMiddleware{
		limiters:  make(map[string]*rate.Limiter),
		rateLimit: rate.Inf,
		burstSize: ratePerSecond,
		stop:      make(chan struct{}),
	}
	if ratePerSecond > 0 {
		rl.rateLimit = rate.Every(interval / time.Duration(ratePerSecond))
	}

	go rl.cleanup(5 * time.Minute)
	return rl
}

func (rl *RateLimitMiddleware) getLimiter(apiKey string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.limiters[apiKey]
	if !ok {
		limiter = rate.NewLimiter(rl.rateLimit, rl.burstSize)
		rl.limiters[apiKey] = limiter
	}
	return limiter
}

// Handler wraps next with the limiter.
func (rl *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.rateLimit == rate.Inf {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := app.APIKeyFromRequest(r)
		if apiKey == "" {
			apiKey = anonymousKey
		}

		if !rl.getLimiter(apiKey).Allow() {
			rl.sendRateLimitExceeded(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// sendRateLimitExceeded sends a 429 Too Many Requests response
func (rl *RateLimitMiddleware) sendRateLimitExceeded(w http.ResponseWriter) {
	retryAfter := 1
	if per := time.Duration(float64(time.Second) / float64(rl.rateLimit)); per > time.Second {
		retryAfter = int(per.Seconds())
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.burstSize))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"code":429,"text":"Rate limit exceeded. Please try again later.","version":2}` + "\n"))
}

// cleanup drops limiters that are back to a full bucket, which means they
// have been idle for at least a second.
func (rl *RateLimitMiddleware) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for key, limiter := range rl.limiters {
				if limiter.Tokens() >= float64(rl.burstSize) {
					delete(rl.limiters, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stop:
			return
		}
	}
}

// Stop stops the cleanup goroutine
func (rl *RateLimitMiddleware) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}
