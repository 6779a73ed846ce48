// Package middleware contains HTTP middleware specific to the inference API.
package middleware

import (
	"errors"
	"net/http"

	"github.com/phrazzld/ausonia-api/internal/api/shared"
	"golang.org/x/time/rate"
)

// ErrRateLimited is logged when a request is rejected by RateLimit
var ErrRateLimited = errors.New("submission rate limit exceeded")

// RateLimit returns middleware that admits requests through a token bucket
// of perSecond sustained requests and the given burst. A non-positive
// perSecond disables limiting.
func RateLimit(perSecond float64, burst int) func(http.Handler) http.Handler {
	if perSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				shared.RespondWithErrorAndLog(w, r, http.StatusTooManyRequests,
					"Too many requests, try again later", ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
