package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/newthinker/risklab/internal/config"
	"github.com/newthinker/risklab/internal/core"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Defaults()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = freePort(t)
	cfg.Archive.Enabled = true
	cfg.Archive.Path = t.TempDir()
	return cfg
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Database.Driver = "oracle"

	_, err := New(context.Background(), cfg, "test", zap.NewNop())
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestNew_InvalidEditorOverride(t *testing.T) {
	cfg := testConfig(t)
	cfg.Editor.Languages = []string{"cobol"}

	_, err := New(context.Background(), cfg, "test", zap.NewNop())
	assert.Error(t, err)
}

func TestNew_WiresOptionalComponents(t *testing.T) {
	cfg := testConfig(t)
	cfg.Notifier.Enabled = true
	cfg.Notifier.URL = "http://127.0.0.1:1/hook"

	a, err := New(context.Background(), cfg, "test", nil)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.archive)
	assert.NotNil(t, a.metrics)
	assert.Equal(t, 1, a.notifiers.Len())
	assert.NotNil(t, a.Server())
	assert.NotNil(t, a.Executor())
}

func TestApp_RunAndShutdown(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, "test", zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	url := fmt.Sprintf("http://%s:%d/api/health", cfg.Server.Host, cfg.Server.Port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	assert.Error(t, a.Run(ctx), "second Run must be rejected")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout):
		t.Fatal("Run did not return after cancel")
	}
}

func TestApp_CloseIsIdempotent(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), "test", nil)
	require.NoError(t, err)

	a.Close()
	a.Close()
	assert.Error(t, a.Run(context.Background()))
}
