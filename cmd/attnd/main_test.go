package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestMainIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	port := freePort(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ATTND_SERVER_PORT", strconv.Itoa(port))
	t.Setenv("ATTND_LOGGING_FORMAT", "console")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, "")
	}()

	url := "http://127.0.0.1:" + strconv.Itoa(port) + "/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shutdown in time")
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ATTND_SERVER_PORT", "70000")

	err := run(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func TestRun_RejectsUnknownLogLevel(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ATTND_LOGGING_LEVEL", "loud")

	err := run(context.Background(), "")
	require.Error(t, err)
}

func TestBootstrap_Stdio(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	t.Setenv("ATTND_WORKSPACE_ALLOWED_ROOTS", root)

	a, err := bootstrap(context.Background(), "", true)
	require.NoError(t, err)
	defer a.close()

	assert.Equal(t, []string{root}, a.cfg.Workspace.AllowedRoots)
	_, err = a.folders.OpenRoot(context.Background(), t.TempDir())
	assert.Error(t, err, "roots outside the allowed list are rejected")
	_, err = a.folders.OpenRoot(context.Background(), root)
	assert.NoError(t, err)
}

func TestRunMCP_StopsCleanlyOnCancel(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	// Keep stdin open so the transport only stops through ctx.
	stdinR, stdinW, err := os.Pipe()
	require.NoError(t, err)
	stdin := os.Stdin
	os.Stdin = stdinR
	t.Cleanup(func() {
		os.Stdin = stdin
		_ = stdinW.Close()
		_ = stdinR.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- runMCP(ctx, "")
	}()

	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("mcp server did not stop in time")
	}
}
