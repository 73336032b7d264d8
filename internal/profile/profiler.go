// Package profile inspects a folder for ecosystem marker files, metadata
// stores and version-control state.
package profile

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/attnd/internal/logging"
	"github.com/fyrsmithlabs/attnd/internal/metadata"
	"github.com/fyrsmithlabs/attnd/pkg/git"
)

// VCSProvider reports repository facts for a folder that contains .git.
type VCSProvider interface {
	Facts(ctx context.Context, root string) (*git.Facts, error)
}

// Profiler builds Profiles. It holds no per-folder state.
type Profiler struct {
	vcs    VCSProvider
	logger *logging.Logger
}

// NewProfiler creates a Profiler. A nil vcs uses the go-git provider.
func NewProfiler(vcs VCSProvider, logger *logging.Logger) *Profiler {
	if vcs == nil {
		vcs = git.NewProvider()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Profiler{vcs: vcs, logger: logger.Named("profile")}
}

// Analyze profiles root. Missing markers are false flags, never errors, and
// a failing VCS provider degrades to the empty git profile.
func (p *Profiler) Analyze(ctx context.Context, root string) *Profile {
	return &Profile{
		Git:       p.analyzeGit(ctx, root),
		Framework: analyzeFramework(root),
		Metadata:  analyzeMetadata(root),
	}
}

func (p *Profiler) analyzeGit(ctx context.Context, root string) GitProfile {
	profile := defaultGitProfile()
	if !isDir(filepath.Join(root, ".git")) {
		return profile
	}

	facts, err := p.vcs.Facts(ctx, root)
	if err != nil {
		p.logger.Error(ctx, "git analysis failed", zap.String("root", root), zap.Error(err))
		return profile
	}

	profile.HasGit = true
	if facts.Branches != nil {
		profile.Branches = facts.Branches
	}
	profile.HasBranches = len(profile.Branches) > 0
	profile.CurrentBranch = facts.CurrentBranch
	profile.CommitCount = facts.CommitCount
	profile.HasCommits = facts.CommitCount > 0
	return profile
}

func analyzeMetadata(root string) MetadataProfile {
	var p MetadataProfile

	asDir := filepath.Join(root, metadata.IniDirName)
	if isDir(asDir) {
		p.HasMetadata = true
		p.AsDirectoryPath = &asDir
	}

	dump := filepath.Join(root, metadata.DumpFileName)
	if exists(dump) {
		p.HasMetadataDump = true
		p.DumpFilePath = &dump
	}
	return p
}
