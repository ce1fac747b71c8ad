// Package httptransport provides HTTP handlers.
package httptransport

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Luka-md19/Food-Delivery-App-sub002/internal/admission/core"
)

func (t *Transport) handleCheck(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		t.metrics.ObserveLatency("http_check", time.Since(start))
	}()
	var body checkRequestBody
	if err := t.decodeJSON(w, r, &body); err != nil {
		t.writeError(w, http.StatusBadRequest, err)
		return
	}
	req := toCheckRequest(&body)
	req.RequestID = requestID(r)
	if req.CallerIP == "" {
		req.CallerIP = clientIP(r)
	}
	result, err := t.guard.CheckAdmission(r.Context(), req)
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			t.writeError(w, http.StatusBadRequest, err)
			return
		}
		t.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeRateLimitHeaders(w, result)
	writeJSON(w, http.StatusOK, fromAdmissionResult(result))
}

func (t *Transport) handleReset(w http.ResponseWriter, r *http.Request) {
	var body resetRequestBody
	if err := t.decodeJSON(w, r, &body); err != nil {
		t.writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.Key == "" {
		t.writeError(w, http.StatusBadRequest, core.ErrInvalidInput)
		return
	}
	removed, err := t.guard.ResetKey(r.Context(), body.Key)
	if err != nil {
		t.writeError(w, http.StatusInternalServerError, err)
		return
	}
	t.logger.Info("counter reset", map[string]any{"key": body.Key, "removed": removed})
	writeJSON(w, http.StatusOK, resetResponseBody{Removed: removed})
}

func (t *Transport) handleBypass(w http.ResponseWriter, r *http.Request) {
	var body bypassRequestBody
	if err := t.decodeJSON(w, r, &body); err != nil {
		t.writeError(w, http.StatusBadRequest, err)
		return
	}
	t.guard.SetBypass(body.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": body.Enabled})
}

func (t *Transport) handleLoad(w http.ResponseWriter, r *http.Request) {
	var body loadRequestBody
	if err := t.decodeJSON(w, r, &body); err != nil {
		t.writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.Factor < 0 || body.Factor > 1 {
		t.writeError(w, http.StatusBadRequest, errors.New("factor must be in [0,1]"))
		return
	}
	t.load.Update(body.Factor)
	t.metrics.SetServerLoad(body.Factor)
	writeJSON(w, http.StatusOK, map[string]float64{"factor": body.Factor})
}

func (t *Transport) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponseBody{
		Service:      t.service,
		BreakerState: t.guard.Breaker().State().String(),
		Bypassed:     t.guard.Bypassed(),
		LoadFactor:   t.load.Factor(),
	})
}

func (t *Transport) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (t *Transport) handleReady(w http.ResponseWriter, r *http.Request) {
	if t.ready() {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
}

func (t *Transport) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(HeaderRequestID) == "" {
			r.Header.Set(HeaderRequestID, uuid.NewString())
		}
		w.Header().Set(HeaderRequestID, r.Header.Get(HeaderRequestID))
		next.ServeHTTP(w, r)
	})
}

func (t *Transport) adminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if t.authEnabled {
			expected := "Bearer " + t.adminToken
			if r.Header.Get("Authorization") != expected {
				t.writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (t *Transport) decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	body := http.MaxBytesReader(w, r.Body, t.maxBodyBytes)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
		_ = body.Close()
	}()
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func (t *Transport) writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponseBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeRateLimitHeaders(w http.ResponseWriter, result *core.AdmissionResult) {
	w.Header().Set(HeaderLimit, strconv.FormatInt(result.Limit, 10))
	w.Header().Set(HeaderRemaining, strconv.FormatInt(result.Remaining, 10))
	w.Header().Set(HeaderReset, strconv.FormatInt(int64(result.ResetAfter.Seconds()), 10))
	if !result.Admitted {
		w.Header().Set(HeaderRetryAfter, strconv.FormatInt(core.NewRejection(result).RetryAfterSeconds(), 10))
	}
}

func requestID(r *http.Request) string {
	return r.Header.Get(HeaderRequestID)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
