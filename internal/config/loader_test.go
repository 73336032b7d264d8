package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestHome points HOME at a temp dir and returns the attnd config dir in it.
func setupTestHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	dir := filepath.Join(home, ".config", "attnd")
	require.NoError(t, os.MkdirAll(dir, 0700))
	return dir
}

func writeConfig(t *testing.T, dir, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	require.NoError(t, os.Chmod(path, perm))
	return path
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	setupTestHome(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_ValidYAML(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, `server:
  host: 0.0.0.0
  port: 8088
  shutdown_timeout: 3s
workspace:
  allowed_roots:
    - /srv
  max_file_size: 2MiB
  respect_gitignore: true
logging:
  level: debug
`, 0600)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, []string{"/srv"}, cfg.Workspace.AllowedRoots)
	assert.Equal(t, int64(2<<20), cfg.Workspace.MaxFileSize.Int64())
	assert.True(t, cfg.Workspace.RespectGitignore)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, 64, cfg.Workspace.MaxDepth)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "attnd", cfg.Telemetry.ServiceName)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "server:\n  port: 8088\n", 0600)

	t.Setenv("ATTND_SERVER_PORT", "9999")
	t.Setenv("ATTND_WORKSPACE_MAX_DEPTH", "8")
	t.Setenv("ATTND_WORKSPACE_ALLOWED_ROOTS", "/a,/b")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Workspace.MaxDepth)
	assert.Equal(t, []string{"/a", "/b"}, cfg.Workspace.AllowedRoots)
}

func TestLoad_DotEnv(t *testing.T) {
	setupTestHome(t)
	require.NoError(t, os.WriteFile(".env", []byte("ATTND_LOGGING_FORMAT=console\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("ATTND_LOGGING_FORMAT") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, dir string) string
		wantErr string
	}{
		{
			name: "outside allowed dirs",
			setup: func(t *testing.T, _ string) string {
				return filepath.Join(t.TempDir(), "config.yaml")
			},
			wantErr: "config path validation failed",
		},
		{
			name: "too large",
			setup: func(t *testing.T, dir string) string {
				big := make([]byte, maxConfigFileSize+1)
				for i := range big {
					big[i] = '#'
				}
				return writeConfig(t, dir, string(big), 0600)
			},
			wantErr: "too large",
		},
		{
			name: "invalid value",
			setup: func(t *testing.T, dir string) string {
				return writeConfig(t, dir, "logging:\n  format: xml\n", 0600)
			},
			wantErr: "config validation failed",
		},
		{
			name: "relative allowed root",
			setup: func(t *testing.T, dir string) string {
				return writeConfig(t, dir, "workspace:\n  allowed_roots: [srv]\n", 0600)
			},
			wantErr: "must be an absolute path",
		},
		{
			name: "bad yaml",
			setup: func(t *testing.T, dir string) string {
				return writeConfig(t, dir, "server: [\n", 0600)
			},
			wantErr: "failed to load config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := setupTestHome(t)
			_, err := Load(tt.setup(t, dir))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_InsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission model differs on windows")
	}
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "server:\n  port: 8088\n", 0644)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"ATTND_SERVER_PORT":              "server.port",
		"ATTND_SERVER_SHUTDOWN_TIMEOUT":  "server.shutdown_timeout",
		"ATTND_WORKSPACE_ALLOWED_ROOTS":  "workspace.allowed_roots",
		"ATTND_TELEMETRY_SAMPLING_RATE":  "telemetry.sampling_rate",
		"ATTND_DEBUG":                    "debug",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "attnd", "config.yaml"), p)
	assert.NoError(t, validateConfigPath(p), "the default path is always allowed")
}
