package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/MeKo-Tech/imgforge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerConfigFromFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Port = 9000
	cfg.Processing.Format = "png"

	t.Run("config values without flags", func(t *testing.T) {
		cmd := newServeCommand(&cliState{})
		require.NoError(t, cmd.ParseFlags(nil))

		sc, shutdown, err := serverConfigFromFlags(cmd, &cfg)
		require.NoError(t, err)
		assert.Equal(t, 9000, sc.Port)
		assert.Equal(t, "localhost", sc.Host)
		assert.Equal(t, int64(50), sc.MaxUploadMB)
		assert.Equal(t, 10, shutdown)
		assert.Equal(t, "png", string(sc.Defaults.OutputFormat))
		assert.Nil(t, sc.RateLimit)
	})

	t.Run("flags override config", func(t *testing.T) {
		cmd := newServeCommand(&cliState{})
		require.NoError(t, cmd.ParseFlags([]string{
			"--port", "9090", "--host", "0.0.0.0", "--rate-limit-enabled",
			"--requests-per-minute", "5", "--max-data-per-day", "2",
		}))

		sc, _, err := serverConfigFromFlags(cmd, &cfg)
		require.NoError(t, err)
		assert.Equal(t, 9090, sc.Port)
		assert.Equal(t, "0.0.0.0", sc.Host)
		require.NotNil(t, sc.RateLimit)
		assert.Equal(t, 5, sc.RateLimit.RequestsPerMinute)
		assert.Equal(t, 1000, sc.RateLimit.RequestsPerHour)
		assert.Equal(t, int64(2<<20), sc.RateLimit.MaxDataPerDay)
	})

	t.Run("invalid port", func(t *testing.T) {
		cmd := newServeCommand(&cliState{})
		require.NoError(t, cmd.ParseFlags([]string{"--port", "70000"}))

		_, _, err := serverConfigFromFlags(cmd, &cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid port number")
	})
}

func freePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestServeCommand_GracefulShutdown(t *testing.T) {
	isolate(t)
	port := freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	root := NewRootCommand()
	root.SetArgs([]string{"serve", "--host", "127.0.0.1", "--port", fmt.Sprint(port), "--shutdown-timeout", "2"})
	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not shut down")
	}
}
