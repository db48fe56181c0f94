package httputil

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimit answers 429 to requests above the limiter's rate. A nil
// limiter passes everything through.
func RateLimit(limiter *rate.Limiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			RespError(r.Context(), w, http.StatusTooManyRequests, `{"error": "rate limit exceeded"}`)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewLimiter returns nil, no limit, when perSecond is not positive.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
