package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix is stripped from environment variable names before mapping.
	EnvPrefix = "ATTND_"
)

// Load loads configuration from defaults, an optional YAML file and the
// environment.
//
// Configuration precedence (highest to lowest):
//  1. ATTND_* environment variables (ATTND_SERVER_PORT, ATTND_WORKSPACE_MAX_DEPTH, ...)
//  2. Variables from ./.env, which never override the real environment
//  3. YAML config file (~/.config/attnd/config.yaml by default)
//  4. Hardcoded defaults
//
// A missing config file is not an error. An existing one must have 0600 or
// 0400 permissions, be at most 1MB, and live under ~/.config/attnd/ or
// /etc/attnd/.
//
// Environment variables map by splitting on the first underscore after the
// prefix:
//
//	ATTND_SERVER_SHUTDOWN_TIMEOUT -> server.shutdown_timeout
//	ATTND_WORKSPACE_ALLOWED_ROOTS -> workspace.allowed_roots (comma separated)
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	if configPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	k := koanf.New(".")
	if err := loadFile(k, configPath); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// DefaultPath is ~/.config/attnd/config.yaml.
func DefaultPath() (string, error) {
	dirs, err := configDirs()
	if err != nil {
		return "", err
	}
	return filepath.Join(dirs[0], "config.yaml"), nil
}

// configDirs lists the directories a config file may live in, the user's
// own first.
func configDirs() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return []string{filepath.Join(home, ".config", "attnd"), "/etc/attnd"}, nil
}

// loadFile merges the YAML file at path into k. A missing file is skipped.
func loadFile(k *koanf.Koanf, path string) error {
	if err := validateConfigPath(path); err != nil {
		return fmt.Errorf("config path validation failed: %w", err)
	}
	content, err := readConfigFile(path)
	if err != nil || content == nil {
		return err
	}
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return nil
}

// envKey maps ATTND_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// loadDotEnv seeds the process environment from a dotenv file if present.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// readConfigFile returns nil content when the file does not exist.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	// Validate through the open descriptor to avoid a TOCTOU race.
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// validateConfigPath checks if path is in allowed directories.
// This validation runs even if the file doesn't exist yet.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolvedPath = absPath
	}

	allowedDirs, err := configDirs()
	if err != nil {
		return err
	}
	for _, dir := range allowedDirs {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			dir = resolved
		}
		if resolvedPath == dir || strings.HasPrefix(resolvedPath, dir+string(filepath.Separator)) {
			return nil
		}
	}

	return fmt.Errorf("config file must be in ~/.config/attnd/ or /etc/attnd/")
}

// validateConfigFileProperties checks file permissions and size.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}

	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	return nil
}
