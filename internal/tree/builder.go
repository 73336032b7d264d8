// Package tree builds ordered, noise-pruned directory trees for a folder root.
package tree

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/attnd/internal/ignore"
	"github.com/fyrsmithlabs/attnd/internal/logging"
	"github.com/fyrsmithlabs/attnd/internal/sanitize"
)

// skipNames are entry names never included in a tree.
var skipNames = map[string]bool{
	".git":         true,
	"node_modules": true,
	"tmp":          true,
	"log":          true,
	"coverage":     true,
	".bundle":      true,
}

// skipRelPaths are root-relative paths never included in a tree.
var skipRelPaths = map[string]bool{
	"vendor/bundle": true,
}

// Builder produces Node trees.
type Builder struct {
	logger   *logging.Logger
	opts     Options
	names    map[string]bool
	relPaths map[string]bool
}

// NewBuilder creates a tree builder. A nil logger discards output.
func NewBuilder(logger *logging.Logger, opts Options) *Builder {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}

	names := make(map[string]bool, len(skipNames)+len(opts.ExtraSkip))
	for k := range skipNames {
		names[k] = true
	}
	relPaths := make(map[string]bool, len(skipRelPaths))
	for k := range skipRelPaths {
		relPaths[k] = true
	}
	for _, extra := range opts.ExtraSkip {
		extra = strings.Trim(filepath.ToSlash(extra), "/")
		if extra == "" {
			continue
		}
		if strings.Contains(extra, "/") {
			relPaths[extra] = true
		} else {
			names[extra] = true
		}
	}

	return &Builder{
		logger:   logger.Named("tree"),
		opts:     opts,
		names:    names,
		relPaths: relPaths,
	}
}

// walk carries per-build state.
type walk struct {
	root     string
	matcher  *ignore.Matcher
	warnings []Warning
}

// Build returns the tree rooted at root. It returns a nil node and no error
// when root is not a directory. Unlistable directories become childless nodes
// and are reported as warnings. The only error is ctx cancellation.
func (b *Builder) Build(ctx context.Context, root string) (*Node, []Warning, error) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, nil, nil
	}

	w := &walk{root: root}
	if b.opts.RespectGitignore {
		matcher, err := ignore.NewParser(nil, nil).Load(root)
		if err != nil {
			w.warn(root, fmt.Errorf("reading ignore rules: %w", err))
		} else {
			w.matcher = matcher
		}
	}

	node := &Node{
		Name:         filepath.Base(root),
		Path:         root,
		RelativePath: ".",
		Type:         KindDirectory,
		Children:     []*Node{},
	}
	if err := b.fill(ctx, w, node, 0); err != nil {
		return nil, nil, err
	}

	for _, warning := range w.warnings {
		b.logger.Warn(ctx, "directory skipped",
			zap.String("path", warning.Path),
			zap.String("reason", warning.Reason),
		)
	}

	return node, w.warnings, nil
}

// fill lists dir.Path and attaches its children.
func (b *Builder) fill(ctx context.Context, w *walk, dir *Node, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth >= b.opts.MaxDepth {
		w.warn(dir.Path, fmt.Errorf("maximum depth %d reached", b.opts.MaxDepth))
		return nil
	}

	entries, err := os.ReadDir(dir.Path)
	if err != nil {
		w.warn(dir.Path, err)
		return nil
	}
	b.logger.Trace(ctx, "listing directory", zap.String("path", dir.Path), zap.Int("entries", len(entries)))

	kept := make([]fs.DirEntry, 0, len(entries))
	for _, entry := range entries {
		if b.skip(w, filepath.Join(dir.Path, entry.Name()), entry) {
			continue
		}
		kept = append(kept, entry)
	}
	sortEntries(kept)

	dir.Children = make([]*Node, 0, len(kept))
	for _, entry := range kept {
		path := filepath.Join(dir.Path, entry.Name())
		child := &Node{
			Name:         entry.Name(),
			Path:         path,
			RelativePath: sanitize.Relative(w.root, path),
			Type:         KindFile,
			Children:     []*Node{},
		}
		// Symlinks are leaves and are never followed.
		if entry.IsDir() {
			child.Type = KindDirectory
			if err := b.fill(ctx, w, child, depth+1); err != nil {
				return err
			}
		}
		dir.Children = append(dir.Children, child)
	}
	return nil
}

func (b *Builder) skip(w *walk, path string, entry fs.DirEntry) bool {
	if b.names[entry.Name()] {
		return true
	}
	rel := sanitize.Relative(w.root, path)
	if b.relPaths[rel] {
		return true
	}
	return w.matcher.Match(rel, entry.IsDir())
}

func (w *walk) warn(path string, err error) {
	w.warnings = append(w.warnings, Warning{Path: path, Reason: err.Error(), Err: err})
}

// sortEntries orders directories before files, each group case-insensitively
// with the raw name as tie breaker.
func sortEntries(entries []fs.DirEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}
		la, lb := strings.ToLower(a.Name()), strings.ToLower(b.Name())
		if la != lb {
			return la < lb
		}
		return a.Name() < b.Name()
	})
}
