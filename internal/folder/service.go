package folder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/attnd/internal/config"
	"github.com/fyrsmithlabs/attnd/internal/logging"
	"github.com/fyrsmithlabs/attnd/internal/metadata"
	"github.com/fyrsmithlabs/attnd/internal/profile"
	"github.com/fyrsmithlabs/attnd/internal/sanitize"
	"github.com/fyrsmithlabs/attnd/internal/telemetry"
	"github.com/fyrsmithlabs/attnd/internal/tree"
	"github.com/fyrsmithlabs/attnd/pkg/git"
)

// DefaultMaxFileSize caps content reads when Config.MaxFileSize is unset.
const DefaultMaxFileSize int64 = 5 << 20

// Config holds Service limits.
type Config struct {
	// AllowedRoots restricts OpenRoot to these directories and their
	// descendants. Empty allows any directory.
	AllowedRoots []string
	MaxFileSize  int64
	Tree         tree.Options
}

// ConfigFromWorkspace maps the workspace section of the app config.
func ConfigFromWorkspace(ws config.WorkspaceConfig) Config {
	return Config{
		AllowedRoots: ws.AllowedRoots,
		MaxFileSize:  ws.MaxFileSize.Int64(),
		Tree: tree.Options{
			RespectGitignore: ws.RespectGitignore,
			MaxDepth:         ws.MaxDepth,
		},
	}
}

// Root is a canonical folder root accepted by OpenRoot.
type Root struct {
	path string
}

// Path returns the canonical absolute path.
func (r Root) Path() string { return r.path }

func (r Root) String() string { return r.path }

// Service exposes the request-level folder operations. Every path argument is
// checked against its Root before any filesystem access.
type Service struct {
	cfg      Config
	logger   *logging.Logger
	tracer   trace.Tracer
	metrics  *Metrics
	vcs      profile.VCSProvider
	store    *metadata.Store
	profiler *profile.Profiler
	trees    *tree.Builder
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithTelemetry takes the tracer and meter from tel.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(s *Service) {
		s.tracer = tel.Tracer(InstrumentationName)
		s.metrics, _ = NewMetrics(tel.Meter(InstrumentationName))
	}
}

// WithVCSProvider replaces the go-git provider.
func WithVCSProvider(vcs profile.VCSProvider) Option {
	return func(s *Service) { s.vcs = vcs }
}

// WithStore replaces the metadata store.
func WithStore(store *metadata.Store) Option {
	return func(s *Service) { s.store = store }
}

// NewService creates a Service.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	for i, r := range cfg.AllowedRoots {
		if !filepath.IsAbs(r) {
			return nil, fmt.Errorf("%w: allowed root %d is not absolute: %s", ErrInvalidInput, i, r)
		}
	}

	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	s.logger = s.logger.Named("folder")
	if s.tracer == nil {
		s.tracer = otel.Tracer(InstrumentationName)
	}
	if s.metrics == nil {
		m, err := NewMetrics(nil)
		if err != nil {
			return nil, fmt.Errorf("creating metrics: %w", err)
		}
		s.metrics = m
	}
	if s.store == nil {
		s.store = metadata.NewStore(s.logger)
	}

	if s.vcs == nil {
		s.vcs = git.NewProvider()
	}
	s.profiler = profile.NewProfiler(&tracedVCS{inner: s.vcs, tracer: s.tracer}, s.logger)
	s.trees = tree.NewBuilder(s.logger, cfg.Tree)

	return s, nil
}

// OpenRoot validates path as a folder root and returns its canonical form.
func (s *Service) OpenRoot(ctx context.Context, path string) (Root, error) {
	ctx, op := s.start(ctx, "OpenRoot", attribute.String("folder.path", path))

	if strings.TrimSpace(path) == "" {
		return Root{}, op.end(ctx, fmt.Errorf("OpenRoot: %w: folder path is required", ErrInvalidInput))
	}

	canonical, err := sanitize.CanonicalRoot(path)
	if err != nil {
		return Root{}, op.end(ctx, classify("OpenRoot", err))
	}

	if !s.allowed(canonical) {
		s.logger.Warn(ctx, "folder root outside allowed roots", zap.String("root", canonical))
		return Root{}, op.end(ctx, fmt.Errorf("OpenRoot: %w: %s is outside the allowed roots", ErrAccessDenied, path))
	}

	return Root{path: canonical}, op.end(ctx, nil)
}

func (s *Service) allowed(root string) bool {
	if len(s.cfg.AllowedRoots) == 0 {
		return true
	}
	for _, a := range s.cfg.AllowedRoots {
		base, err := sanitize.CanonicalRoot(a)
		if err != nil {
			continue
		}
		if _, err := sanitize.Within(base, root); err == nil {
			return true
		}
	}
	return false
}

// Analyze profiles the folder.
func (s *Service) Analyze(ctx context.Context, root Root) (*profile.Profile, error) {
	ctx, op := s.start(ctx, "Analyze", attribute.String("folder.root", root.path))
	ctx = logging.WithFolderRoot(ctx, root.path)

	if err := ctx.Err(); err != nil {
		return nil, op.end(ctx, classify("Analyze", err))
	}

	p := s.profiler.Analyze(ctx, root.path)
	op.span.SetAttributes(
		attribute.Bool("folder.has_git", p.Git.HasGit),
		attribute.Bool("folder.has_metadata", p.Metadata.HasMetadata || p.Metadata.HasMetadataDump),
	)
	s.logger.Info(ctx, "folder analyzed", zap.Bool("has_git", p.Git.HasGit))
	return p, op.end(ctx, nil)
}

// TreeResult is a built tree with the subtrees that could not be read.
type TreeResult struct {
	Tree     *tree.Node     `json:"tree"`
	Warnings []tree.Warning `json:"warnings"`
}

// Tree builds the folder tree.
func (s *Service) Tree(ctx context.Context, root Root) (*TreeResult, error) {
	ctx, op := s.start(ctx, "Tree", attribute.String("folder.root", root.path))
	ctx = logging.WithFolderRoot(ctx, root.path)

	node, warnings, err := s.trees.Build(ctx, root.path)
	if err != nil {
		return nil, op.end(ctx, classify("Tree", err))
	}
	if node == nil {
		return nil, op.end(ctx, fmt.Errorf("Tree: %w: %s is no longer a directory", ErrNotFound, root.path))
	}
	if warnings == nil {
		warnings = []tree.Warning{}
	}

	op.span.SetAttributes(
		attribute.Int("tree.nodes", node.Count()),
		attribute.Int("tree.warnings", len(warnings)),
	)
	return &TreeResult{Tree: node, Warnings: warnings}, op.end(ctx, nil)
}

// FileContent is a file's content and stat data.
type FileContent struct {
	FilePath   string    `json:"file_path"`
	Content    string    `json:"content"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// FileContent reads a regular file under root.
func (s *Service) FileContent(ctx context.Context, root Root, path string) (*FileContent, error) {
	ctx, op := s.start(ctx, "FileContent", attribute.String("folder.root", root.path))
	ctx = logging.WithFolderRoot(ctx, root.path)

	target, info, err := s.existingFile(root, path)
	if err != nil {
		return nil, op.end(ctx, classify("FileContent", err))
	}
	if info.Size() > s.cfg.MaxFileSize {
		return nil, op.end(ctx, fmt.Errorf("FileContent: %w: %s is %d bytes, limit %d",
			ErrTooLarge, path, info.Size(), s.cfg.MaxFileSize))
	}

	content, err := os.ReadFile(target)
	if err != nil {
		return nil, op.end(ctx, classify("FileContent", err))
	}

	op.span.SetAttributes(attribute.Int64("file.size", info.Size()))
	return &FileContent{
		FilePath:   target,
		Content:    string(content),
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}, op.end(ctx, nil)
}

// UpdateFileContent replaces the content of an existing file and returns its
// new modification time.
func (s *Service) UpdateFileContent(ctx context.Context, root Root, path, content string) (time.Time, error) {
	ctx, op := s.start(ctx, "UpdateFileContent", attribute.String("folder.root", root.path))
	ctx = logging.WithFolderRoot(ctx, root.path)

	target, info, err := s.existingFile(root, path)
	if err != nil {
		return time.Time{}, op.end(ctx, classify("UpdateFileContent", err))
	}
	if int64(len(content)) > s.cfg.MaxFileSize {
		return time.Time{}, op.end(ctx, fmt.Errorf("UpdateFileContent: %w: %d bytes, limit %d",
			ErrTooLarge, len(content), s.cfg.MaxFileSize))
	}

	if err := os.WriteFile(target, []byte(content), info.Mode().Perm()); err != nil {
		return time.Time{}, op.end(ctx, classify("UpdateFileContent", err))
	}
	updated, err := os.Stat(target)
	if err != nil {
		return time.Time{}, op.end(ctx, classify("UpdateFileContent", err))
	}

	s.logger.Info(ctx, "file updated",
		zap.String("file", sanitize.Relative(root.path, target)),
		zap.Int("bytes", len(content)),
	)
	return updated.ModTime(), op.end(ctx, nil)
}

// existingFile resolves path under root and requires a regular file there.
func (s *Service) existingFile(root Root, path string) (string, os.FileInfo, error) {
	target, err := s.within(root, path)
	if err != nil {
		return "", nil, err
	}
	info, err := os.Stat(target)
	if err != nil {
		return "", nil, err
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("%w: %s is a directory", ErrInvalidInput, path)
	}
	return target, info, nil
}

func (s *Service) within(root Root, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: file path is required", ErrInvalidInput)
	}
	if root.path == "" {
		return "", fmt.Errorf("%w: no folder root", ErrInvalidInput)
	}
	return sanitize.Within(root.path, path)
}

// FileMetadata returns the merged metadata of path.
func (s *Service) FileMetadata(ctx context.Context, root Root, path string) (*metadata.FileMetadata, error) {
	ctx, op := s.start(ctx, "FileMetadata", attribute.String("folder.root", root.path))
	ctx = logging.WithFolderRoot(ctx, root.path)

	target, err := s.within(root, path)
	if err != nil {
		return nil, op.end(ctx, classify("FileMetadata", err))
	}

	md, err := s.store.ReadFileMetadata(ctx, root.path, target)
	if err != nil {
		return nil, op.end(ctx, classify("FileMetadata", err))
	}
	op.span.SetAttributes(attribute.Bool("metadata.present", md.HasMetadata))
	return md, op.end(ctx, nil)
}

// UpdateMetadata stores entry for path in the folder's active format.
func (s *Service) UpdateMetadata(ctx context.Context, root Root, path string, entry metadata.Entry) error {
	ctx, op := s.start(ctx, "UpdateMetadata", attribute.String("folder.root", root.path))
	ctx = logging.WithFolderRoot(ctx, root.path)

	target, err := s.within(root, path)
	if err != nil {
		return op.end(ctx, classify("UpdateMetadata", err))
	}
	if err := s.store.WriteFileMetadata(ctx, root.path, target, entry); err != nil {
		return op.end(ctx, classify("UpdateMetadata", err))
	}
	return op.end(ctx, nil)
}

// AllMetadata returns the folder's whole metadata document.
func (s *Service) AllMetadata(ctx context.Context, root Root) (*metadata.Snapshot, error) {
	ctx, op := s.start(ctx, "AllMetadata", attribute.String("folder.root", root.path))
	ctx = logging.WithFolderRoot(ctx, root.path)

	snap, err := s.store.ReadAllMetadata(ctx, root.path)
	if err != nil {
		return nil, op.end(ctx, classify("AllMetadata", err))
	}
	op.span.SetAttributes(attribute.String("metadata.source", string(snap.Source)))
	return snap, op.end(ctx, nil)
}

// ReplaceAllMetadata overwrites the dump with data.
func (s *Service) ReplaceAllMetadata(ctx context.Context, root Root, data interface{}) error {
	ctx, op := s.start(ctx, "ReplaceAllMetadata", attribute.String("folder.root", root.path))
	ctx = logging.WithFolderRoot(ctx, root.path)

	if data == nil {
		return op.end(ctx, fmt.Errorf("ReplaceAllMetadata: %w: data is required", ErrInvalidInput))
	}
	if err := s.store.WriteAllMetadata(ctx, root.path, data); err != nil {
		return op.end(ctx, classify("ReplaceAllMetadata", err))
	}
	return op.end(ctx, nil)
}
