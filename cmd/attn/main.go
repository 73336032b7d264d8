// Package main implements the attn CLI for local folder analysis and for
// checking the attnd daemon.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/fyrsmithlabs/attnd/internal/folder"
	"github.com/fyrsmithlabs/attnd/internal/logging"
	"github.com/fyrsmithlabs/attnd/internal/tree"
)

var (
	// serverURL is the base URL for the attnd HTTP server
	serverURL string
	// jsonOutput forces JSON even on a terminal
	jsonOutput bool
	// respectGitignore prunes .gitignore matches from trees
	respectGitignore bool
	// debug logs service activity to stderr
	debug bool
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "attn",
	Short: "Analyze folders and manage their attention metadata",
	Long: `attn is a command-line interface for folder analysis.

Analysis, tree and metadata commands run locally against the folder given
as an argument (the current directory by default). The health command talks
to a running attnd daemon.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:7420", "attnd server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON even when stdout is a terminal")
	rootCmd.PersistentFlags().BoolVar(&respectGitignore, "gitignore", false, "skip entries matched by the folder's .gitignore")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log service activity to stderr")
	rootCmd.AddCommand(healthCmd)
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check attnd server health",
	Long: `Check the health status of the attnd HTTP server.

Examples:
  # Check health
  attn health

  # Check health on a different server
  attn health --server http://127.0.0.1:8080`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

// HealthResponse matches internal/http HealthResponse
type HealthResponse struct {
	Status string `json:"status"`
}

// runHealth handles the health command
func runHealth(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/health", serverURL)

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var healthResp HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Server Status: %s\n", healthResp.Status)
	fmt.Fprintf(out, "Server URL: %s\n", serverURL)
	return nil
}

// newFolders builds an unrestricted local folder service.
func newFolders() (*folder.Service, error) {
	logger := logging.NewNop()
	if debug {
		z, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		logger = logging.FromZap(z)
	}

	return folder.NewService(folder.Config{
		MaxFileSize: folder.DefaultMaxFileSize,
		Tree:        tree.Options{RespectGitignore: respectGitignore},
	}, folder.WithLogger(logger))
}

// openRoot resolves the folder argument, defaulting to the working directory.
func openRoot(cmd *cobra.Command, svc *folder.Service, args []string) (folder.Root, error) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	return svc.OpenRoot(cmd.Context(), path)
}

// styled reports whether w should get human-oriented output.
func styled(w io.Writer) bool {
	if jsonOutput {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
