package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedHour(hour int) func() time.Time {
	return func() time.Time {
		return time.Date(2025, 6, 1, hour, 30, 0, 0, time.UTC)
	}
}

func TestServerLoad_MultiplierClamps(t *testing.T) {
	t.Parallel()

	load := &ServerLoad{}
	assert.InDelta(t, 1.5, load.Multiplier(), 1e-9, "zero load gives the max multiplier")

	load.Update(0.5)
	assert.InDelta(t, 1.0, load.Multiplier(), 1e-9)

	load.Update(1)
	assert.InDelta(t, 0.5, load.Multiplier(), 1e-9)

	load.Update(7)
	assert.InDelta(t, 1.0, load.Factor(), 1e-9, "factor clamps to [0,1]")
	load.Update(-3)
	assert.InDelta(t, 0.0, load.Factor(), 1e-9)
}

func TestLimitCalculator_TrustMonotonic(t *testing.T) {
	t.Parallel()

	load := &ServerLoad{}
	load.Update(0.5)
	calc := NewLimitCalculator(load, fixedHour(12))
	base := Policy{Window: time.Minute, Limit: 100}

	levels := []TrustLevel{TrustNew, TrustStandard, TrustTrusted, TrustAutomated}
	previous := int64(0)
	for _, level := range levels {
		effective := calc.Adjust(base, level)
		require.GreaterOrEqual(t, effective.Limit, previous, "limit must not shrink as trust grows")
		require.Equal(t, base.Window, effective.Window, "window is never adjusted")
		previous = effective.Limit
	}
	require.EqualValues(t, 100, calc.Adjust(base, TrustStandard).Limit)
	require.EqualValues(t, 200, calc.Adjust(base, TrustTrusted).Limit)
	require.EqualValues(t, 500, calc.Adjust(base, TrustAutomated).Limit)
}

func TestLimitCalculator_TimeOfDay(t *testing.T) {
	t.Parallel()

	load := &ServerLoad{}
	load.Update(0.5)
	base := Policy{Window: time.Minute, Limit: 100}

	cases := []struct {
		hour int
		want int64
	}{
		{12, 100}, // lunch peak
		{19, 100}, // dinner peak
		{3, 50},   // maintenance window
		{9, 150},  // off-peak headroom
	}
	for _, tc := range cases {
		calc := NewLimitCalculator(load, fixedHour(tc.hour))
		assert.EqualValues(t, tc.want, calc.Adjust(base, TrustStandard).Limit, "hour %d", tc.hour)
	}
}

func TestLimitCalculator_FloorsAtOne(t *testing.T) {
	t.Parallel()

	load := &ServerLoad{}
	load.Update(1) // multiplier 0.5
	calc := NewLimitCalculator(load, fixedHour(3))
	effective := calc.Adjust(Policy{Window: time.Minute, Limit: 1}, TrustNew)
	require.EqualValues(t, 1, effective.Limit)
}

func TestParseTrustLevel(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]TrustLevel{
		"new": TrustNew, "standard": TrustStandard, "TRUSTED": TrustTrusted,
		"Automated": TrustAutomated, "": TrustStandard,
	} {
		got, err := ParseTrustLevel(name)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	got, err := ParseTrustLevel("vip")
	require.Error(t, err)
	require.Equal(t, TrustStandard, got, "unknown levels degrade to standard")
}
