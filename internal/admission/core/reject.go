// Package core maps rejected admissions to the caller-visible error.
package core

import (
	"fmt"
	"time"
)

// CodeTooManyRequests is the machine-readable rejection reason.
const CodeTooManyRequests = "TOO_MANY_REQUESTS"

// RejectionError is the single caller-visible failure this subsystem
// produces. Transport layers map it to their "too many requests" shape
// (HTTP 429 with Retry-After, gRPC ResourceExhausted).
type RejectionError struct {
	Code       string
	Limit      int64
	RetryAfter time.Duration
}

// NewRejection builds a RejectionError from a rejected result.
func NewRejection(result *AdmissionResult) *RejectionError {
	if result == nil {
		return &RejectionError{Code: CodeTooManyRequests}
	}
	return &RejectionError{
		Code:       CodeTooManyRequests,
		Limit:      result.Limit,
		RetryAfter: result.RetryAfter,
	}
}

// Error implements error.
func (e *RejectionError) Error() string {
	if e == nil {
		return CodeTooManyRequests
	}
	return fmt.Sprintf("%s: retry after %ds", e.Code, e.RetryAfterSeconds())
}

// RetryAfterSeconds returns the retry hint in whole seconds, rounded up
// and never below 1.
func (e *RejectionError) RetryAfterSeconds() int64 {
	if e == nil || e.RetryAfter <= 0 {
		return 1
	}
	seconds := int64((e.RetryAfter + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
