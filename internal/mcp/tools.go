package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/attnd/internal/folder"
	"github.com/fyrsmithlabs/attnd/internal/metadata"
	"github.com/fyrsmithlabs/attnd/internal/profile"
	"github.com/fyrsmithlabs/attnd/internal/tree"
)

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	s.registerFolderTools()
	s.registerFileTools()
	s.registerMetadataTools()
}

// instrument wraps a tool body with invocation metrics and error shaping.
// The body returns the structured output and a one-line text summary.
func instrument[In, Out any](s *Server, name string, body func(context.Context, In) (Out, string, error)) mcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *mcp.CallToolRequest, args In) (*mcp.CallToolResult, Out, error) {
		done := s.metrics.track(ctx, name)
		out, summary, err := body(ctx, args)
		done(err)

		if err != nil {
			s.logger.Warn("tool failed", zap.String("tool", name), zap.Error(err))
			var zero Out
			return nil, zero, toolError(err)
		}
		return &mcp.CallToolResult{
			Content:           []mcp.Content{&mcp.TextContent{Text: summary}},
			StructuredContent: out,
		}, out, nil
	}
}

// toolError keeps client-side failures descriptive and reduces server-side
// ones to their kind.
func toolError(err error) error {
	switch folder.Kind(err) {
	case folder.ErrInvalidInput, folder.ErrNotFound, folder.ErrAccessDenied, folder.ErrTooLarge:
		return err
	case nil:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return errors.New("internal error")
	default:
		return folder.Kind(err)
	}
}

// ===== FOLDER TOOLS =====

type folderInput struct {
	FolderPath string `json:"folder_path" jsonschema:"Absolute path of the folder root"`
}

type analyzeOutput struct {
	FolderPath string           `json:"folder_path" jsonschema:"Canonical folder root"`
	Analysis   *profile.Profile `json:"analysis" jsonschema:"Git, framework and metadata profile"`
}

type treeEntry struct {
	Path  string `json:"path" jsonschema:"Path relative to the folder root; the root is ."`
	Type  string `json:"type" jsonschema:"file or directory"`
	Depth int    `json:"depth" jsonschema:"Nesting depth; the root is 0"`
}

type treeWarning struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

type treeOutput struct {
	Root     string        `json:"root" jsonschema:"Canonical folder root"`
	Count    int           `json:"count" jsonschema:"Number of entries, root included"`
	Entries  []treeEntry   `json:"entries" jsonschema:"Entries in depth-first order"`
	Warnings []treeWarning `json:"warnings" jsonschema:"Directories that could not be listed"`
}

func (s *Server) registerFolderTools() {
	// analyze_folder
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "analyze_folder",
		Description: "Profile a folder: git branches and commit count, language and framework manifests, and which attention metadata formats are present.",
	}, instrument(s, "analyze_folder", func(ctx context.Context, args folderInput) (analyzeOutput, string, error) {
		root, err := s.folders.OpenRoot(ctx, args.FolderPath)
		if err != nil {
			return analyzeOutput{}, "", err
		}
		p, err := s.folders.Analyze(ctx, root)
		if err != nil {
			return analyzeOutput{}, "", err
		}
		return analyzeOutput{FolderPath: root.Path(), Analysis: p},
			fmt.Sprintf("Analyzed %s (git: %t, metadata: %t)", root.Path(), p.Git.HasGit, p.Metadata.HasMetadata), nil
	}))

	// folder_tree
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "folder_tree",
		Description: "List a folder's files and directories depth-first, directories before files. Dependency and build directories such as .git and node_modules are skipped.",
	}, instrument(s, "folder_tree", func(ctx context.Context, args folderInput) (treeOutput, string, error) {
		root, err := s.folders.OpenRoot(ctx, args.FolderPath)
		if err != nil {
			return treeOutput{}, "", err
		}
		res, err := s.folders.Tree(ctx, root)
		if err != nil {
			return treeOutput{}, "", err
		}

		out := treeOutput{
			Root:     root.Path(),
			Entries:  flatten(res.Tree),
			Warnings: make([]treeWarning, 0, len(res.Warnings)),
		}
		out.Count = len(out.Entries)
		for _, w := range res.Warnings {
			out.Warnings = append(out.Warnings, treeWarning{Path: w.Path, Reason: w.Reason})
		}
		return out, fmt.Sprintf("Listed %d entries under %s", out.Count, root.Path()), nil
	}))
}

// flatten lists the tree depth-first with per-entry depth.
func flatten(root *tree.Node) []treeEntry {
	entries := make([]treeEntry, 0, root.Count())
	var visit func(n *tree.Node, depth int)
	visit = func(n *tree.Node, depth int) {
		entries = append(entries, treeEntry{Path: n.RelativePath, Type: string(n.Type), Depth: depth})
		for _, child := range n.Children {
			visit(child, depth+1)
		}
	}
	visit(root, 0)
	return entries
}

// ===== FILE TOOLS =====

type fileInput struct {
	FolderPath string `json:"folder_path" jsonschema:"Absolute path of the folder root"`
	FilePath   string `json:"file_path" jsonschema:"File path relative to the folder root, or absolute inside it"`
}

type fileOutput struct {
	FilePath   string `json:"file_path"`
	Content    string `json:"content"`
	Size       int64  `json:"size" jsonschema:"Size in bytes"`
	ModifiedAt string `json:"modified_at" jsonschema:"RFC 3339 modification time"`
}

type writeFileInput struct {
	FolderPath string `json:"folder_path" jsonschema:"Absolute path of the folder root"`
	FilePath   string `json:"file_path" jsonschema:"Existing file, relative to the folder root or absolute inside it"`
	Content    string `json:"content" jsonschema:"New file content"`
}

type writeFileOutput struct {
	Success    bool   `json:"success"`
	ModifiedAt string `json:"modified_at" jsonschema:"RFC 3339 modification time after the write"`
}

func (s *Server) registerFileTools() {
	// read_file
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "read_file",
		Description: "Read a file inside a folder root. Paths that escape the root are rejected.",
	}, instrument(s, "read_file", func(ctx context.Context, args fileInput) (fileOutput, string, error) {
		root, err := s.folders.OpenRoot(ctx, args.FolderPath)
		if err != nil {
			return fileOutput{}, "", err
		}
		fc, err := s.folders.FileContent(ctx, root, args.FilePath)
		if err != nil {
			return fileOutput{}, "", err
		}
		return fileOutput{
			FilePath:   fc.FilePath,
			Content:    fc.Content,
			Size:       fc.Size,
			ModifiedAt: fc.ModifiedAt.Format(time.RFC3339Nano),
		}, fmt.Sprintf("Read %d bytes from %s", fc.Size, fc.FilePath), nil
	}))

	// write_file
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "write_file",
		Description: "Replace the content of an existing file inside a folder root. New files are never created.",
	}, instrument(s, "write_file", func(ctx context.Context, args writeFileInput) (writeFileOutput, string, error) {
		root, err := s.folders.OpenRoot(ctx, args.FolderPath)
		if err != nil {
			return writeFileOutput{}, "", err
		}
		modified, err := s.folders.UpdateFileContent(ctx, root, args.FilePath, args.Content)
		if err != nil {
			return writeFileOutput{}, "", err
		}
		return writeFileOutput{Success: true, ModifiedAt: modified.Format(time.RFC3339Nano)},
			fmt.Sprintf("Wrote %d bytes to %s", len(args.Content), args.FilePath), nil
	}))
}

// ===== METADATA TOOLS =====

type setMetadataInput struct {
	FolderPath string            `json:"folder_path" jsonschema:"Absolute path of the folder root"`
	FilePath   string            `json:"file_path" jsonschema:"File path relative to the folder root, or absolute inside it"`
	Attributes map[string]string `json:"attributes,omitempty" jsonschema:"Attribute values to store"`
	Priorities map[string]string `json:"priorities,omitempty" jsonschema:"Priority values to store"`
	Facets     []string          `json:"facets,omitempty" jsonschema:"Facets to store (kept only in the JSON dump format)"`
}

type replaceAllInput struct {
	FolderPath string                 `json:"folder_path" jsonschema:"Absolute path of the folder root"`
	Data       map[string]interface{} `json:"data" jsonschema:"Complete metadata document, usually {version, files}"`
}

type successOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) registerMetadataTools() {
	// get_file_metadata
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_file_metadata",
		Description: "Read one file's attention metadata (attributes, priorities, facets), merged from the JSON dump and the .as directory.",
	}, instrument(s, "get_file_metadata", func(ctx context.Context, args fileInput) (metadata.FileMetadata, string, error) {
		root, err := s.folders.OpenRoot(ctx, args.FolderPath)
		if err != nil {
			return metadata.FileMetadata{}, "", err
		}
		md, err := s.folders.FileMetadata(ctx, root, args.FilePath)
		if err != nil {
			return metadata.FileMetadata{}, "", err
		}
		return *md, fmt.Sprintf("Metadata for %s (present: %t)", args.FilePath, md.HasMetadata), nil
	}))

	// set_file_metadata
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "set_file_metadata",
		Description: "Replace one file's attention metadata in the folder's active format. Creates attention_dump.json when no metadata exists yet.",
	}, instrument(s, "set_file_metadata", func(ctx context.Context, args setMetadataInput) (successOutput, string, error) {
		root, err := s.folders.OpenRoot(ctx, args.FolderPath)
		if err != nil {
			return successOutput{}, "", err
		}
		entry := metadata.Entry{Attributes: args.Attributes, Priorities: args.Priorities, Facets: args.Facets}
		if err := s.folders.UpdateMetadata(ctx, root, args.FilePath, entry); err != nil {
			return successOutput{}, "", err
		}
		msg := "Metadata updated successfully"
		return successOutput{Success: true, Message: msg}, msg, nil
	}))

	// get_all_metadata
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_all_metadata",
		Description: "Read the folder's whole attention metadata document and the format it came from.",
	}, instrument(s, "get_all_metadata", func(ctx context.Context, args folderInput) (metadata.Snapshot, string, error) {
		root, err := s.folders.OpenRoot(ctx, args.FolderPath)
		if err != nil {
			return metadata.Snapshot{}, "", err
		}
		snap, err := s.folders.AllMetadata(ctx, root)
		if err != nil {
			return metadata.Snapshot{}, "", err
		}
		return *snap, fmt.Sprintf("Metadata source: %s", snap.Source), nil
	}))

	// replace_all_metadata
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "replace_all_metadata",
		Description: "Overwrite the folder's attention_dump.json with a complete document. The .as directory is left untouched.",
	}, instrument(s, "replace_all_metadata", func(ctx context.Context, args replaceAllInput) (successOutput, string, error) {
		root, err := s.folders.OpenRoot(ctx, args.FolderPath)
		if err != nil {
			return successOutput{}, "", err
		}
		var data interface{}
		if args.Data != nil {
			data = args.Data
		}
		if err := s.folders.ReplaceAllMetadata(ctx, root, data); err != nil {
			return successOutput{}, "", err
		}
		msg := "Metadata replaced successfully"
		return successOutput{Success: true, Message: msg}, msg, nil
	}))
}
