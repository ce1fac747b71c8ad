// Package core provides dynamic limit adjustment.
package core

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"
)

// TrustLevel classifies the caller for limit scaling.
type TrustLevel int32

const (
	TrustNew TrustLevel = iota
	TrustStandard
	TrustTrusted
	TrustAutomated
)

// Multiplier returns the limit multiplier for the trust level.
func (t TrustLevel) Multiplier() float64 {
	switch t {
	case TrustTrusted:
		return 2.0
	case TrustAutomated:
		return 5.0
	default:
		return 1.0
	}
}

// String returns the lowercase trust level name.
func (t TrustLevel) String() string {
	switch t {
	case TrustNew:
		return "new"
	case TrustStandard:
		return "standard"
	case TrustTrusted:
		return "trusted"
	case TrustAutomated:
		return "automated"
	default:
		return "standard"
	}
}

// ParseTrustLevel converts a trust level name. Unknown or empty values
// resolve to standard.
func ParseTrustLevel(s string) (TrustLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return TrustStandard, nil
	case "new":
		return TrustNew, nil
	case "trusted":
		return TrustTrusted, nil
	case "automated":
		return TrustAutomated, nil
	default:
		return TrustStandard, fmt.Errorf("%w: unknown trust level %q", ErrInvalidInput, s)
	}
}

// ServerLoad is a process-wide load cell written by a single external
// reporter and read by every request. Stale reads by a few hundred
// milliseconds are acceptable, so a bare atomic is enough.
type ServerLoad struct {
	bits atomic.Uint64
}

// Update stores a load factor, clamped to [0, 1].
func (l *ServerLoad) Update(factor float64) {
	if l == nil {
		return
	}
	if math.IsNaN(factor) || factor < 0 {
		factor = 0
	}
	if factor > 1 {
		factor = 1
	}
	l.bits.Store(math.Float64bits(factor))
}

// Factor returns the current load factor in [0, 1].
func (l *ServerLoad) Factor() float64 {
	if l == nil {
		return 0
	}
	return math.Float64frombits(l.bits.Load())
}

// Multiplier maps the load factor to a limit multiplier clamped to
// [0.1, 1.5].
func (l *ServerLoad) Multiplier() float64 {
	m := 1.5 - l.Factor()
	if m < 0.1 {
		m = 0.1
	}
	if m > 1.5 {
		m = 1.5
	}
	return m
}

// LimitCalculator derives effective policies from base policies using
// caller trust, server load, and time of day. Deterministic given its
// inputs and the injected clock.
type LimitCalculator struct {
	load *ServerLoad
	now  func() time.Time
}

// NewLimitCalculator constructs a calculator. A nil clock defaults to
// time.Now.
func NewLimitCalculator(load *ServerLoad, now func() time.Time) *LimitCalculator {
	if load == nil {
		load = &ServerLoad{}
	}
	if now == nil {
		now = time.Now
	}
	return &LimitCalculator{load: load, now: now}
}

// Adjust returns the effective policy for a base policy and trust level.
// The window stays unchanged; the limit scales by trust, load, and time
// of day, floored at 1.
func (c *LimitCalculator) Adjust(base Policy, trust TrustLevel) Policy {
	if c == nil {
		return base
	}
	scaled := float64(base.Limit) * trust.Multiplier() * c.load.Multiplier() * timeOfDayMultiplier(c.now().Hour())
	limit := int64(math.Floor(scaled))
	if limit < 1 {
		limit = 1
	}
	return Policy{Window: base.Window, Limit: limit}
}

// timeOfDayMultiplier scales limits by hour of day: lunch and dinner
// peaks run at the base rate, the overnight maintenance window is halved,
// and off-peak hours get headroom.
func timeOfDayMultiplier(hour int) float64 {
	switch {
	case hour >= 11 && hour <= 14:
		return 1.0
	case hour >= 18 && hour <= 21:
		return 1.0
	case hour >= 3 && hour <= 4:
		return 0.5
	default:
		return 1.5
	}
}
