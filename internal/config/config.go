// Package config provides configuration loading for attnd.
//
// Configuration is layered: hardcoded defaults, then an optional YAML file,
// then ATTND_-prefixed environment variables (optionally seeded from a .env
// file). The result is validated with struct tags.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the complete attnd configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Workspace WorkspaceConfig `koanf:"workspace"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host" validate:"required"`
	Port            int      `koanf:"port" validate:"min=1,max=65535"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	// RateLimit is requests per second per client IP; zero disables it.
	RateLimit       float64  `koanf:"rate_limit" validate:"gte=0"`
	RateBurst       int      `koanf:"rate_burst" validate:"gte=0"`
}

// WorkspaceConfig limits which folders can be opened and how they are walked.
type WorkspaceConfig struct {
	// AllowedRoots restricts folder roots to these directories and their
	// descendants. Empty means any directory may be opened.
	AllowedRoots     []string `koanf:"allowed_roots" validate:"dive,required"`
	MaxFileSize      ByteSize `koanf:"max_file_size" validate:"gt=0"`
	RespectGitignore bool     `koanf:"respect_gitignore"`
	MaxDepth         int      `koanf:"max_depth" validate:"min=1,max=1024"`
}

// LoggingConfig holds the subset of logging settings exposed in config files.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint" validate:"required_if=Enabled true"`
	Protocol     string  `koanf:"protocol" validate:"oneof=grpc http/protobuf"`
	Insecure     bool    `koanf:"insecure"`
	ServiceName  string  `koanf:"service_name" validate:"required"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"gte=0,lte=1"`
	ExportLogs   bool    `koanf:"export_logs"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            7420,
			ShutdownTimeout: Duration(10 * time.Second),
			RateLimit:       50,
			RateBurst:       100,
		},
		Workspace: WorkspaceConfig{
			MaxFileSize: 5 << 20,
			MaxDepth:    64,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Endpoint:     "localhost:4317",
			Protocol:     "grpc",
			Insecure:     true,
			ServiceName:  "attnd",
			SamplingRate: 1.0,
		},
	}
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

var validate = validator.New()

// Validate validates the configuration using struct tags and custom rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	for i, root := range c.Workspace.AllowedRoots {
		if !filepath.IsAbs(root) {
			return fmt.Errorf("workspace.allowed_roots[%d]: %q must be an absolute path", i, root)
		}
	}
	return nil
}

// formatValidationError reports the first failing field.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
