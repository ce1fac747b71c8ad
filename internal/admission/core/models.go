// Package core defines admission request and result models.
package core

import "time"

// CheckRequest captures a single admission decision request.
//
// Either Service+Endpoint or Path+Method identifies the protected
// operation; the former wins when both are present. CallerID is the
// authenticated identity when available, CallerIP the remote address
// otherwise.
type CheckRequest struct {
	RequestID string
	Service   string
	Endpoint  string
	Path      string
	Method    string
	CallerID  string
	CallerIP  string
	Trust     TrustLevel
	Skip      bool
}

// AdmissionResult reports the outcome of an admission decision.
type AdmissionResult struct {
	Admitted   bool
	Limit      int64
	Remaining  int64
	ResetAfter time.Duration
	RetryAfter time.Duration
	Degraded   bool
}
