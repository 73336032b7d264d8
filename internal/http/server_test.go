package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/attnd/internal/folder"
	"github.com/fyrsmithlabs/attnd/internal/metadata"
	"github.com/fyrsmithlabs/attnd/pkg/git"
)

type stubVCS struct{}

func (stubVCS) Facts(context.Context, string) (*git.Facts, error) {
	return &git.Facts{}, nil
}

func TestNewServer(t *testing.T) {
	folders := newFolders(t, folder.Config{})

	t.Run("creates server with valid config", func(t *testing.T) {
		cfg := &Config{Host: "localhost", Port: 7420}

		server, err := NewServer(folders, zap.NewNop(), cfg)
		require.NoError(t, err)
		assert.NotNil(t, server.echo)
		assert.Equal(t, cfg, server.config)
		assert.Equal(t, "8M", server.config.BodyLimit)
	})

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, err := NewServer(folders, zap.NewNop(), nil)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", server.config.Host)
		assert.Equal(t, 7420, server.config.Port)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(folders, nil, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when folder service is nil", func(t *testing.T) {
		_, err := NewServer(nil, zap.NewNop(), nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "folder service cannot be nil")
	})
}

func TestHandleHealth(t *testing.T) {
	server, _ := setupTestServer(t)

	rec := serve(t, server, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestRequestLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	server, err := NewServer(newFolders(t, folder.Config{}), zap.New(core), nil)
	require.NoError(t, err)

	rec := serve(t, server, http.MethodGet, "/api/v1/tree?folder_path=", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(http.StatusBadRequest), fields["status"])
	assert.Equal(t, rec.Header().Get(echo.HeaderXRequestID), fields["request_id"])
}

func TestHandleAnalyze(t *testing.T) {
	server, root := setupTestServer(t)
	writeFile(t, root, "Cargo.toml", "[package]\n")

	t.Run("profiles folder", func(t *testing.T) {
		rec := serve(t, server, http.MethodPost, "/api/v1/analyze", FolderRequest{FolderPath: root})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			FolderPath string                            `json:"folder_path"`
			Analysis   map[string]map[string]interface{} `json:"analysis"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, root, resp.FolderPath)
		assert.Equal(t, false, resp.Analysis["git_profile"]["has_git"])
		rust := resp.Analysis["framework_profile"]["rust"].(map[string]interface{})
		assert.Equal(t, true, rust["cargo_toml_exists"])
	})

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"blank folder", FolderRequest{}, http.StatusBadRequest},
		{"missing folder", FolderRequest{FolderPath: filepath.Join(root, "nope")}, http.StatusNotFound},
		{"malformed body", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, server, http.MethodPost, "/api/v1/analyze", tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestHandleTree(t *testing.T) {
	server, root := setupTestServer(t)
	writeFile(t, root, "b.txt", "")
	writeFile(t, root, "a.txt", "")
	writeFile(t, root, "A/x.go", "")
	writeFile(t, root, ".git/HEAD", "")

	rec := serve(t, server, http.MethodGet, "/api/v1/tree?folder_path="+url.QueryEscape(root), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Tree struct {
			RelativePath string `json:"relative_path"`
			Children     []struct {
				Name string `json:"name"`
				Type string `json:"type"`
			} `json:"children"`
		} `json:"tree"`
		Warnings []interface{} `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ".", resp.Tree.RelativePath)
	require.Len(t, resp.Tree.Children, 3)
	assert.Equal(t, "A", resp.Tree.Children[0].Name)
	assert.Equal(t, "directory", resp.Tree.Children[0].Type)
	assert.Equal(t, "a.txt", resp.Tree.Children[1].Name)
	assert.Equal(t, "b.txt", resp.Tree.Children[2].Name)
	assert.Empty(t, resp.Warnings)
}

func TestHandleFileContent(t *testing.T) {
	server, root := setupTestServer(t)
	writeFile(t, root, "lib/app.rb", "puts 1\n")
	outside := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0644))

	tests := []struct {
		name   string
		file   string
		status int
	}{
		{"reads file", "lib/app.rb", http.StatusOK},
		{"missing file", "lib/none.rb", http.StatusNotFound},
		{"outside root", outside, http.StatusForbidden},
		{"traversal", "../../etc/passwd", http.StatusForbidden},
		{"blank", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := url.Values{"folder_path": {root}, "file_path": {tt.file}}
			rec := serve(t, server, http.MethodGet, "/api/v1/file?"+q.Encode(), nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			if tt.status == http.StatusOK {
				var resp folder.FileContent
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, "puts 1\n", resp.Content)
				assert.Equal(t, int64(7), resp.Size)
			}
		})
	}
}

func TestHandleFileContent_TooLarge(t *testing.T) {
	folders := newFolders(t, folder.Config{MaxFileSize: 4})
	server, err := NewServer(folders, zap.NewNop(), nil)
	require.NoError(t, err)

	root := canonicalTempDir(t)
	writeFile(t, root, "big.txt", "12345")

	q := url.Values{"folder_path": {root}, "file_path": {"big.txt"}}
	rec := serve(t, server, http.MethodGet, "/api/v1/file?"+q.Encode(), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHandleUpdateFile(t *testing.T) {
	server, root := setupTestServer(t)
	writeFile(t, root, "README.md", "old")

	content := "new"
	rec := serve(t, server, http.MethodPut, "/api/v1/file", UpdateFileRequest{
		FolderPath: root, FilePath: "README.md", Content: &content,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp UpdateFileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.False(t, resp.ModifiedAt.IsZero())

	got, err := os.ReadFile(filepath.Join(root, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	rec = serve(t, server, http.MethodPut, "/api/v1/file", UpdateFileRequest{FolderPath: root, FilePath: "README.md"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, server, http.MethodPut, "/api/v1/file", UpdateFileRequest{
		FolderPath: root, FilePath: "new.md", Content: &content,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetadataEndpoints(t *testing.T) {
	server, root := setupTestServer(t)

	rec := serve(t, server, http.MethodPut, "/api/v1/metadata", map[string]interface{}{
		"folder_path": root,
		"file_path":   "foo/bar.rb",
		"metadata": map[string]interface{}{
			"attributes": map[string]interface{}{"lang": "ruby"},
			"facets":     []string{"core"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	q := url.Values{"folder_path": {root}, "file_path": {"foo/bar.rb"}}
	rec = serve(t, server, http.MethodGet, "/api/v1/metadata?"+q.Encode(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var one struct {
		Metadata metadata.FileMetadata `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &one))
	assert.True(t, one.Metadata.HasMetadata)
	assert.Equal(t, map[string]string{"lang": "ruby"}, one.Metadata.Attributes)
	assert.Equal(t, []string{"core"}, one.Metadata.Facets)

	rec = serve(t, server, http.MethodGet, "/api/v1/metadata/all?folder_path="+url.QueryEscape(root), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var all struct {
		Metadata struct {
			HasMetadata bool                   `json:"has_metadata"`
			Source      string                 `json:"source"`
			Data        map[string]interface{} `json:"data"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.True(t, all.Metadata.HasMetadata)
	assert.Equal(t, "dump", all.Metadata.Source)
	assert.Equal(t, "1.0", all.Metadata.Data["version"])

	rec = serve(t, server, http.MethodPut, "/api/v1/metadata/all", ReplaceAllMetadataRequest{
		FolderPath: root,
		Data:       map[string]interface{}{"version": "1.0", "files": map[string]interface{}{}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(t, server, http.MethodGet, "/api/v1/metadata?"+q.Encode(), nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &one))
	assert.False(t, one.Metadata.HasMetadata)
}

func TestMetadataEndpoints_Errors(t *testing.T) {
	server, root := setupTestServer(t)

	tests := []struct {
		name   string
		method string
		target string
		body   interface{}
		status int
	}{
		{
			name:   "missing metadata",
			method: http.MethodPut, target: "/api/v1/metadata",
			body:   map[string]interface{}{"folder_path": root, "file_path": "a.rb"},
			status: http.StatusBadRequest,
		},
		{
			name:   "outside root",
			method: http.MethodPut, target: "/api/v1/metadata",
			body: map[string]interface{}{
				"folder_path": root, "file_path": "/etc/hosts",
				"metadata": map[string]interface{}{},
			},
			status: http.StatusForbidden,
		},
		{
			name:   "missing data",
			method: http.MethodPut, target: "/api/v1/metadata/all",
			body:   map[string]interface{}{"folder_path": root},
			status: http.StatusBadRequest,
		},
		{
			name:   "unknown folder",
			method: http.MethodGet, target: "/api/v1/metadata/all?folder_path=" + url.QueryEscape(filepath.Join(root, "gone")),
			status: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, server, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
	assert.NoFileExists(t, filepath.Join(root, metadata.DumpFileName))
}

func TestMetadataEndpoints_IniInjection(t *testing.T) {
	server, root := setupTestServer(t)
	attrs := filepath.Join(root, metadata.IniDirName, metadata.AttributesFileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(attrs), 0755))
	require.NoError(t, os.WriteFile(attrs, []byte("[File:other.rb]\nowner=alice\n"), 0644))

	rec := serve(t, server, http.MethodPut, "/api/v1/metadata", map[string]interface{}{
		"folder_path": root,
		"file_path":   "bar.rb",
		"metadata": map[string]interface{}{
			"attributes": map[string]interface{}{"note": "x\n[File:other.rb]\nowner=mallory"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	content, err := os.ReadFile(attrs)
	require.NoError(t, err)
	assert.Equal(t, "[File:other.rb]\nowner=alice\n", string(content))
}

func TestMetadataEndpoints_MalformedDump(t *testing.T) {
	server, root := setupTestServer(t)
	writeFile(t, root, metadata.DumpFileName, "{")

	rec := serve(t, server, http.MethodGet, "/api/v1/metadata/all?folder_path="+url.QueryEscape(root), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"has_metadata":false`)

	rec = serve(t, server, http.MethodPut, "/api/v1/metadata", map[string]interface{}{
		"folder_path": root, "file_path": "a.rb",
		"metadata": map[string]interface{}{"attributes": map[string]string{"k": "v"}},
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, folder.ErrMalformedData.Error(), resp.Error)
	assert.NotContains(t, resp.Error, root)
}

func TestMetricsEndpoint(t *testing.T) {
	server, root := setupTestServer(t)
	serve(t, server, http.MethodGet, "/api/v1/metadata/all?folder_path="+url.QueryEscape(root), nil)

	rec := serve(t, server, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "attnd_metadata_reads_total")
}

func TestBodyLimit(t *testing.T) {
	folders := newFolders(t, folder.Config{})
	server, err := NewServer(folders, zap.NewNop(), &Config{Host: "127.0.0.1", Port: 7420, BodyLimit: "1K"})
	require.NoError(t, err)

	root := canonicalTempDir(t)
	writeFile(t, root, "a.txt", "")
	content := strings.Repeat("x", 2048)

	rec := serve(t, server, http.MethodPut, "/api/v1/file", UpdateFileRequest{
		FolderPath: root, FilePath: "a.txt", Content: &content,
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRateLimit(t *testing.T) {
	folders := newFolders(t, folder.Config{})
	server, err := NewServer(folders, zap.NewNop(), &Config{Host: "127.0.0.1", Port: 7420, RateLimit: 0.01, RateBurst: 2})
	require.NoError(t, err)

	root := canonicalTempDir(t)
	target := "/api/v1/tree?folder_path=" + url.QueryEscape(root)

	assert.Equal(t, http.StatusOK, serve(t, server, http.MethodGet, target, nil).Code)
	assert.Equal(t, http.StatusOK, serve(t, server, http.MethodGet, target, nil).Code)

	rec := serve(t, server, http.MethodGet, target, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(t, server, http.MethodGet, "/health", nil).Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{folder.ErrInvalidInput, http.StatusBadRequest},
		{folder.ErrNotFound, http.StatusNotFound},
		{folder.ErrAccessDenied, http.StatusForbidden},
		{folder.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{folder.ErrMalformedData, http.StatusInternalServerError},
		{folder.ErrIO, http.StatusInternalServerError},
		{folder.ErrUpstream, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

// setupTestServer creates a test server and a canonical folder root.
func setupTestServer(t *testing.T) (*Server, string) {
	t.Helper()

	cfg := &Config{
		Host: "localhost",
		Port: 7420,
	}

	server, err := NewServer(newFolders(t, folder.Config{}), zap.NewNop(), cfg)
	require.NoError(t, err)

	return server, canonicalTempDir(t)
}

func newFolders(t *testing.T, cfg folder.Config) *folder.Service {
	t.Helper()
	folders, err := folder.NewService(cfg, folder.WithVCSProvider(stubVCS{}))
	require.NoError(t, err)
	return folders
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
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func serve(t *testing.T, server *Server, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)
	return rec
}
