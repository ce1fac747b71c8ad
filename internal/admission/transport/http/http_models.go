// Package httptransport provides request and response models.
package httptransport

import (
	"github.com/Luka-md19/Food-Delivery-App-sub002/internal/admission/core"
)

// Rate limit metadata headers emitted on every checked request. These
// names are part of the subsystem's stable surface.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
	HeaderRequestID  = "X-Request-ID"
)

type checkRequestBody struct {
	Service  string `json:"service"`
	Endpoint string `json:"endpoint"`
	Path     string `json:"path"`
	Method   string `json:"method"`
	CallerID string `json:"callerId"`
	CallerIP string `json:"callerIp"`
	Trust    string `json:"trust"`
	Skip     bool   `json:"skip"`
}

type admissionResponseBody struct {
	Admitted          bool  `json:"admitted"`
	Limit             int64 `json:"limit"`
	Remaining         int64 `json:"remaining"`
	ResetAfterSeconds int64 `json:"resetAfterSeconds"`
	RetryAfterSeconds int64 `json:"retryAfterSeconds,omitempty"`
	Degraded          bool  `json:"degraded,omitempty"`
}

type errorResponseBody struct {
	Error             string `json:"error"`
	Code              string `json:"code,omitempty"`
	RetryAfterSeconds int64  `json:"retryAfterSeconds,omitempty"`
}

type resetRequestBody struct {
	Key string `json:"key"`
}

type resetResponseBody struct {
	Removed bool `json:"removed"`
}

type bypassRequestBody struct {
	Enabled bool `json:"enabled"`
}

type loadRequestBody struct {
	Factor float64 `json:"factor"`
}

type statusResponseBody struct {
	Service      string  `json:"service"`
	BreakerState string  `json:"breakerState"`
	Bypassed     bool    `json:"bypassed"`
	LoadFactor   float64 `json:"loadFactor"`
}

func toCheckRequest(body *checkRequestBody) *core.CheckRequest {
	trust, _ := core.ParseTrustLevel(body.Trust)
	return &core.CheckRequest{
		Service:  body.Service,
		Endpoint: body.Endpoint,
		Path:     body.Path,
		Method:   body.Method,
		CallerID: body.CallerID,
		CallerIP: body.CallerIP,
		Trust:    trust,
		Skip:     body.Skip,
	}
}

func fromAdmissionResult(result *core.AdmissionResult) *admissionResponseBody {
	body := &admissionResponseBody{
		Admitted:          result.Admitted,
		Limit:             result.Limit,
		Remaining:         result.Remaining,
		ResetAfterSeconds: int64(result.ResetAfter.Seconds()),
		Degraded:          result.Degraded,
	}
	if !result.Admitted {
		body.RetryAfterSeconds = core.NewRejection(result).RetryAfterSeconds()
	}
	return body
}
