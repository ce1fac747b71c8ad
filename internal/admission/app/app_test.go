package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luka-md19/Food-Delivery-App-sub002/internal/admission/config"
	"github.com/Luka-md19/Food-Delivery-App-sub002/internal/admission/core"
)

func TestNewApplication_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := NewApplication(nil)
	require.Error(t, err)

	cfg := config.Default()
	cfg.Store.Backend = "etcd"
	_, err = NewApplication(cfg)
	require.Error(t, err)

	cfg = config.Default()
	cfg.Limits.Policies = []config.PolicyConfig{{Service: "a", Endpoint: "b", TTLSeconds: 0, Limit: 1}}
	_, err = NewApplication(cfg)
	require.Error(t, err)
}

func TestNewApplication_WiresMemoryBackend(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.HTTP.Enabled = false
	application, err := NewApplication(cfg)
	require.NoError(t, err)
	defer func() { _ = application.Store.Close() }()

	require.IsType(t, &core.MemoryStore{}, application.Store)
	require.NotNil(t, application.Guard)
	assert.False(t, application.Guard.Bypassed())

	result, err := application.Guard.CheckAdmission(context.Background(), &core.CheckRequest{
		Path: "/v1/menus", Method: "GET", CallerIP: "10.0.0.1",
	})
	require.NoError(t, err)
	assert.True(t, result.Admitted)
}

func TestNewApplication_BypassFromConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.HTTP.Enabled = false
	cfg.Limits.Bypass = true
	application, err := NewApplication(cfg)
	require.NoError(t, err)
	defer func() { _ = application.Store.Close() }()
	assert.True(t, application.Guard.Bypassed())
}

func TestApplication_StartAndDrain(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.HTTP.Addr = "127.0.0.1:0"
	application, err := NewApplication(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	application.UpdateServerLoad(0.4)
	assert.InDelta(t, 0.4, application.Load.Factor(), 1e-9)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("application did not drain in time")
	}
}
