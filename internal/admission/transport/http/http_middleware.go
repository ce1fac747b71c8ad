// Package httptransport provides the admission middleware for protected
// services.
package httptransport

import (
	"net/http"

	"github.com/Luka-md19/Food-Delivery-App-sub002/internal/admission/core"
)

// MiddlewareOption configures the admission middleware.
type MiddlewareOption func(*middlewareOptions)

type middlewareOptions struct {
	trustFunc  func(*http.Request) core.TrustLevel
	callerFunc func(*http.Request) (id string, ip string)
	skipFunc   func(*http.Request) bool
}

// WithTrustFunc supplies the caller trust classification. The subsystem
// never derives trust itself; the host service resolves it (from the
// authenticated session) and hands it over here.
func WithTrustFunc(fn func(*http.Request) core.TrustLevel) MiddlewareOption {
	return func(o *middlewareOptions) {
		if fn != nil {
			o.trustFunc = fn
		}
	}
}

// WithCallerFunc supplies the caller identity. The default uses the
// client IP only.
func WithCallerFunc(fn func(*http.Request) (string, string)) MiddlewareOption {
	return func(o *middlewareOptions) {
		if fn != nil {
			o.callerFunc = fn
		}
	}
}

// WithSkipFunc marks requests that bypass admission control entirely,
// such as health checks. Skipped requests are admitted without touching
// any counter.
func WithSkipFunc(fn func(*http.Request) bool) MiddlewareOption {
	return func(o *middlewareOptions) {
		if fn != nil {
			o.skipFunc = fn
		}
	}
}

// Middleware wraps a handler with admission control. Every response
// carries the rate limit headers; rejected requests receive a 429 with
// the standard error body and a Retry-After hint.
func Middleware(guard *core.Guard, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	options := &middlewareOptions{
		trustFunc:  func(*http.Request) core.TrustLevel { return core.TrustStandard },
		callerFunc: func(r *http.Request) (string, string) { return "", clientIP(r) },
		skipFunc:   func(*http.Request) bool { return false },
	}
	for _, opt := range opts {
		opt(options)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			callerID, callerIP := options.callerFunc(r)
			result, err := guard.CheckAdmission(r.Context(), &core.CheckRequest{
				RequestID: requestID(r),
				Path:      r.URL.Path,
				Method:    r.Method,
				CallerID:  callerID,
				CallerIP:  callerIP,
				Trust:     options.trustFunc(r),
				Skip:      options.skipFunc(r),
			})
			if err != nil {
				// An invalid check must not take the request down with it.
				next.ServeHTTP(w, r)
				return
			}
			writeRateLimitHeaders(w, result)
			if !result.Admitted {
				rejection := core.NewRejection(result)
				writeJSON(w, http.StatusTooManyRequests, errorResponseBody{
					Error:             rejection.Error(),
					Code:              rejection.Code,
					RetryAfterSeconds: rejection.RetryAfterSeconds(),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
