// Package mcp exposes the folder service as Model Context Protocol tools.
//
// This implementation uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp)
// and calls the folder service directly. Tools mirror the HTTP API: folder
// analysis, the file tree, file contents and per-file metadata.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/attnd/internal/folder"
)

// Server is an MCP server backed by a folder service.
type Server struct {
	mcp     *mcp.Server
	folders *folder.Service
	metrics *Metrics
	logger  *zap.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "attnd")
	Name string

	// Version is the server version (default: "dev")
	Version string

	// Logger for structured logging
	Logger *zap.Logger

	// MeterProvider receives tool metrics. Nil uses the global provider.
	MeterProvider metric.MeterProvider
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "attnd",
		Version: "dev",
		Logger:  zap.NewNop(),
	}
}

// NewServer creates an MCP server for folders.
func NewServer(cfg *Config, folders *folder.Service) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if folders == nil {
		return nil, fmt.Errorf("folder service is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Server{
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    cfg.Name,
				Version: cfg.Version,
			},
			nil,
		),
		folders: folders,
		metrics: NewMetrics(cfg.MeterProvider, cfg.Logger),
		logger:  cfg.Logger,
	}

	s.registerTools()

	return s, nil
}

// Run serves MCP on the stdio transport until ctx is done or the client
// disconnects. Stopping through ctx is not an error.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		s.logger.Info("MCP server stopped", zap.Error(err))
		return nil
	}
	if err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
