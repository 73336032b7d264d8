// Attnd is the folder analysis daemon.
//
// It serves folder profiles, file trees, file contents and per-file metadata
// over an HTTP API bound to localhost by default.
//
// Configuration is layered from defaults, ~/.config/attnd/config.yaml and
// ATTND_* environment variables. See internal/config for details.
//
// Usage:
//
//	# Start the daemon with defaults
//	attnd
//
//	# Restrict the folders clients may open
//	ATTND_WORKSPACE_ALLOWED_ROOTS=/home/me/src attnd
//
//	# Use an explicit config file
//	attnd -config /etc/attnd/config.yaml
//
//	# Serve the same operations as MCP tools on stdin/stdout
//	attnd mcp
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/attnd/internal/config"
	"github.com/fyrsmithlabs/attnd/internal/folder"
	attnhttp "github.com/fyrsmithlabs/attnd/internal/http"
	"github.com/fyrsmithlabs/attnd/internal/logging"
	"github.com/fyrsmithlabs/attnd/internal/mcp"
	"github.com/fyrsmithlabs/attnd/internal/metadata"
	"github.com/fyrsmithlabs/attnd/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath = flag.String("config", os.Getenv("ATTND_CONFIG"), "path to the YAML config file")

func main() {
	flag.Parse()
	args := flag.Args()

	runner := run
	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		case "mcp":
			runner = runMCP
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  attnd [-config path]       Start the attnd daemon\n")
			fmt.Fprintf(os.Stderr, "  attnd [-config path] mcp   Serve MCP tools on stdio\n")
			fmt.Fprintf(os.Stderr, "  attnd version              Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := runner(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("attnd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// app holds the services shared by both transports.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	tel     *telemetry.Telemetry
	folders *folder.Service
	close   func()
}

// bootstrap loads configuration and builds telemetry, the logger and the
// folder service. stdio moves log output to stderr.
func bootstrap(ctx context.Context, configPath string, stdio bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Telemetry))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	shutdownTelemetry := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}

	logger, err := initLogger(cfg, tel, stdio)
	if err != nil {
		shutdownTelemetry()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	folders, err := folder.NewService(
		folder.ConfigFromWorkspace(cfg.Workspace),
		folder.WithLogger(logger),
		folder.WithTelemetry(tel),
		folder.WithStore(metadata.NewStore(logger)),
	)
	if err != nil {
		shutdownTelemetry()
		return nil, fmt.Errorf("failed to initialize folder service: %w", err)
	}

	logger.Info(ctx, "Starting attnd",
		zap.Bool("stdio", stdio),
		zap.Strings("allowed_roots", cfg.Workspace.AllowedRoots),
		zap.Bool("telemetry_enabled", tel.IsEnabled()))

	return &app{
		cfg:     cfg,
		logger:  logger,
		tel:     tel,
		folders: folders,
		close: func() {
			_ = logger.Sync() // Best-effort sync on shutdown
			shutdownTelemetry()
		},
	}, nil
}

// run starts the HTTP daemon and blocks until ctx is cancelled.
//
// A graceful shutdown returns nil.
func run(ctx context.Context, configPath string) error {
	a, err := bootstrap(ctx, configPath, false)
	if err != nil {
		return err
	}
	defer a.close()

	srv, err := attnhttp.NewServer(a.folders, a.logger.Underlying(), &attnhttp.Config{
		Host:          a.cfg.Server.Host,
		Port:          a.cfg.Server.Port,
		RateLimit:     a.cfg.Server.RateLimit,
		RateBurst:     a.cfg.Server.RateBurst,
		MeterProvider: a.tel.MeterProvider(),
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// runMCP serves the folder tools over MCP on stdin/stdout until the client
// disconnects or ctx is cancelled.
func runMCP(ctx context.Context, configPath string) error {
	a, err := bootstrap(ctx, configPath, true)
	if err != nil {
		return err
	}
	defer a.close()

	srv, err := mcp.NewServer(&mcp.Config{
		Name:          "attnd",
		Version:       version,
		Logger:        a.logger.Underlying(),
		MeterProvider: a.tel.MeterProvider(),
	}, a.folders)
	if err != nil {
		return fmt.Errorf("failed to create mcp server: %w", err)
	}
	return srv.Run(ctx)
}

// initLogger maps the logging section onto the logger config. OTEL output
// follows telemetry.export_logs.
func initLogger(cfg *config.Config, tel *telemetry.Telemetry, stdio bool) (*logging.Logger, error) {
	logCfg := logging.NewDefaultConfig()
	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logCfg.Level = level
	logCfg.Format = cfg.Logging.Format
	logCfg.Output.Stdout = !stdio
	logCfg.Output.Stderr = stdio
	logCfg.Output.OTEL = cfg.Telemetry.Enabled && cfg.Telemetry.ExportLogs
	logCfg.Fields["version"] = version

	return logging.NewLogger(logCfg, tel.LoggerProvider())
}
