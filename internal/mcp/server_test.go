package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/attnd/internal/folder"
	"github.com/fyrsmithlabs/attnd/internal/metadata"
	"github.com/fyrsmithlabs/attnd/pkg/git"
)

type stubVCS struct{}

func (stubVCS) Facts(context.Context, string) (*git.Facts, error) {
	return &git.Facts{Branches: []string{}}, nil
}

// connect starts s on an in-memory transport and returns a client session.
func connect(t *testing.T, cfg folder.Config) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	folders, err := folder.NewService(cfg, folder.WithVCSProvider(stubVCS{}))
	require.NoError(t, err)
	s, err := NewServer(nil, folders)
	require.NoError(t, err)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := s.mcp.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

// call invokes a tool and decodes its structured output into out.
func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]interface{}, out interface{}) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if out != nil && !res.IsError {
		raw, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return res
}

func errorText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.True(t, res.IsError, "expected a tool error")
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func canonicalTempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewServer_RequiresFolders(t *testing.T) {
	_, err := NewServer(nil, nil)
	require.Error(t, err)
}

func TestListTools(t *testing.T) {
	cs := connect(t, folder.Config{})

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"analyze_folder", "folder_tree", "read_file", "write_file",
		"get_file_metadata", "set_file_metadata", "get_all_metadata", "replace_all_metadata",
	}, names)
}

func TestAnalyzeFolder(t *testing.T) {
	cs := connect(t, folder.Config{})
	root := canonicalTempDir(t)
	writeFile(t, root, "Gemfile", "source 'https://rubygems.org'\n")

	var out analyzeOutput
	res := call(t, cs, "analyze_folder", map[string]interface{}{"folder_path": root}, &out)
	require.False(t, res.IsError)

	assert.Equal(t, root, out.FolderPath)
	require.NotNil(t, out.Analysis)
	assert.False(t, out.Analysis.Git.HasGit)
	assert.True(t, out.Analysis.Framework.Ruby.GemfileExists)
	assert.False(t, out.Analysis.Framework.Ruby.IsGem)
}

func TestFolderTree(t *testing.T) {
	cs := connect(t, folder.Config{})
	root := canonicalTempDir(t)
	writeFile(t, root, "b.txt", "")
	writeFile(t, root, "a.txt", "")
	writeFile(t, root, "A/inner.txt", "")
	writeFile(t, root, "node_modules/x/index.js", "")

	var out treeOutput
	res := call(t, cs, "folder_tree", map[string]interface{}{"folder_path": root}, &out)
	require.False(t, res.IsError)

	assert.Equal(t, root, out.Root)
	assert.Equal(t, []treeEntry{
		{Path: ".", Type: "directory", Depth: 0},
		{Path: "A", Type: "directory", Depth: 1},
		{Path: "A/inner.txt", Type: "file", Depth: 2},
		{Path: "a.txt", Type: "file", Depth: 1},
		{Path: "b.txt", Type: "file", Depth: 1},
	}, out.Entries)
	assert.Equal(t, 5, out.Count)
	assert.Empty(t, out.Warnings)
}

func TestFileTools(t *testing.T) {
	cs := connect(t, folder.Config{})
	root := canonicalTempDir(t)
	writeFile(t, root, "notes.md", "hello")

	var read fileOutput
	res := call(t, cs, "read_file", map[string]interface{}{"folder_path": root, "file_path": "notes.md"}, &read)
	require.False(t, res.IsError)
	assert.Equal(t, "hello", read.Content)
	assert.Equal(t, int64(5), read.Size)
	assert.NotEmpty(t, read.ModifiedAt)

	var wrote writeFileOutput
	res = call(t, cs, "write_file", map[string]interface{}{
		"folder_path": root, "file_path": "notes.md", "content": "updated",
	}, &wrote)
	require.False(t, res.IsError)
	assert.True(t, wrote.Success)

	got, err := os.ReadFile(filepath.Join(root, "notes.md"))
	require.NoError(t, err)
	assert.Equal(t, "updated", string(got))
}

func TestFileTools_Errors(t *testing.T) {
	outside := canonicalTempDir(t)
	allowed := canonicalTempDir(t)
	cs := connect(t, folder.Config{AllowedRoots: []string{allowed}, MaxFileSize: 4})
	writeFile(t, allowed, "big.txt", "too large")

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
		want string
	}{
		{"root outside allowed roots", "read_file", map[string]interface{}{"folder_path": outside, "file_path": "x"}, "access denied"},
		{"traversal", "read_file", map[string]interface{}{"folder_path": allowed, "file_path": "../x"}, "access denied"},
		{"missing file", "read_file", map[string]interface{}{"folder_path": allowed, "file_path": "nope.txt"}, "not found"},
		{"too large", "read_file", map[string]interface{}{"folder_path": allowed, "file_path": "big.txt"}, "file too large"},
		{"write never creates", "write_file", map[string]interface{}{"folder_path": allowed, "file_path": "new.txt", "content": ""}, "not found"},
		{"blank folder", "analyze_folder", map[string]interface{}{"folder_path": " "}, "invalid input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, cs, tt.tool, tt.args, nil)
			assert.Contains(t, errorText(t, res), tt.want)
		})
	}

	_, err := os.Stat(filepath.Join(allowed, "new.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestMetadataTools(t *testing.T) {
	cs := connect(t, folder.Config{})
	root := canonicalTempDir(t)
	writeFile(t, root, "foo/bar.rb", "")

	var ok successOutput
	res := call(t, cs, "set_file_metadata", map[string]interface{}{
		"folder_path": root,
		"file_path":   "foo/bar.rb",
		"attributes":  map[string]string{"owner": "core"},
		"facets":      []string{"model"},
	}, &ok)
	require.False(t, res.IsError)
	assert.True(t, ok.Success)

	var md metadata.FileMetadata
	res = call(t, cs, "get_file_metadata", map[string]interface{}{"folder_path": root, "file_path": "foo/bar.rb"}, &md)
	require.False(t, res.IsError)
	assert.True(t, md.HasMetadata)
	assert.Equal(t, map[string]string{"owner": "core"}, md.Attributes)
	assert.Empty(t, md.Priorities)
	assert.Equal(t, []string{"model"}, md.Facets)

	var snap metadata.Snapshot
	res = call(t, cs, "get_all_metadata", map[string]interface{}{"folder_path": root}, &snap)
	require.False(t, res.IsError)
	assert.Equal(t, metadata.SourceDump, snap.Source)
	data, isMap := snap.Data.(map[string]interface{})
	require.True(t, isMap)
	assert.Equal(t, metadata.DumpVersion, data["version"])

	res = call(t, cs, "replace_all_metadata", map[string]interface{}{
		"folder_path": root,
		"data":        map[string]interface{}{"version": "9", "files": map[string]interface{}{}},
	}, &ok)
	require.False(t, res.IsError)

	raw, err := os.ReadFile(filepath.Join(root, metadata.DumpFileName))
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"9","files":{}}`, string(raw))
}

func TestMetadataTools_MalformedDumpHidesDetail(t *testing.T) {
	cs := connect(t, folder.Config{})
	root := canonicalTempDir(t)
	writeFile(t, root, metadata.DumpFileName, "{not json")

	res := call(t, cs, "set_file_metadata", map[string]interface{}{
		"folder_path": root, "file_path": "a.txt", "attributes": map[string]string{"k": "v"},
	}, nil)
	text := errorText(t, res)
	assert.Contains(t, text, folder.ErrMalformedData.Error())
	assert.NotContains(t, text, root)
}
