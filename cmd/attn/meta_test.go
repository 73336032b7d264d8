package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/attnd/internal/metadata"
)

func readDump(t *testing.T, root string) map[string]interface{} {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(root, metadata.DumpFileName))
	require.NoError(t, err)
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	return doc
}

func TestMetaSetThenGet(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/main.go", "package main")

	out, _, err := execute(t, "meta", "set", "-C", root, "src/main.go",
		"--attr", "owner=core", "--attr", "note=a=b", "--priority", "review=high", "--facet", "entry,cli")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated metadata for src/main.go")

	out, _, err = execute(t, "meta", "get", "-C", root, "src/main.go")
	require.NoError(t, err)

	var md metadata.FileMetadata
	require.NoError(t, json.Unmarshal([]byte(out), &md))
	assert.True(t, md.HasMetadata)
	assert.Equal(t, map[string]string{"owner": "core", "note": "a=b"}, md.Attributes)
	assert.Equal(t, map[string]string{"review": "high"}, md.Priorities)
	assert.Equal(t, []string{"entry", "cli"}, md.Facets)
}

func TestMetaSet_MergesWithExisting(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "a")

	_, _, err := execute(t, "meta", "set", "-C", root, "a.txt", "--attr", "owner=docs", "--facet", "keep")
	require.NoError(t, err)
	_, _, err = execute(t, "meta", "set", "-C", root, "a.txt", "--priority", "p=1")
	require.NoError(t, err)

	doc := readDump(t, root)
	files := doc["files"].(map[string]interface{})
	entry := files["a.txt"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"owner": "docs"}, entry["attributes"])
	assert.Equal(t, map[string]interface{}{"p": "1"}, entry["priorities"])
	assert.Equal(t, []interface{}{"keep"}, entry["facets"])
}

func TestMetaSet_Errors(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"nothing to set", []string{"meta", "set", "-C", root, "a.txt"}, "nothing to set"},
		{"bad pair", []string{"meta", "set", "-C", root, "a.txt", "--attr", "novalue"}, "want key=value"},
		{"empty key", []string{"meta", "set", "-C", root, "a.txt", "--priority", "=x"}, "want key=value"},
		{"traversal", []string{"meta", "set", "-C", root, "../escape.txt", "--attr", "k=v"}, "access denied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := os.Stat(filepath.Join(root, metadata.DumpFileName))
	assert.True(t, os.IsNotExist(err), "failed commands must not create a dump")
}

func TestMetaDump(t *testing.T) {
	root := t.TempDir()

	out, _, err := execute(t, "meta", "dump", "-C", root)
	require.NoError(t, err)
	var snap metadata.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.False(t, snap.HasMetadata)
	assert.Equal(t, metadata.SourceNone, snap.Source)

	writeFile(t, root, metadata.DumpFileName, `{"version":"1.0","files":{"x.md":{"attributes":{"k":"v"}}}}`)
	out, _, err = execute(t, "meta", "dump", "-C", root)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.True(t, snap.HasMetadata)
	assert.Equal(t, metadata.SourceDump, snap.Source)
}

func TestMetaImport(t *testing.T) {
	root := t.TempDir()
	doc := `{"version":"2.0","files":{"b.md":{"attributes":{"x":"y"},"priorities":{},"facets":[]}}}`

	t.Run("from file", func(t *testing.T) {
		src := writeFile(t, t.TempDir(), "import.json", doc)
		out, _, err := execute(t, "meta", "import", "-C", root, src)
		require.NoError(t, err)
		assert.Contains(t, out, "Replaced metadata")
		assert.Equal(t, "2.0", readDump(t, root)["version"])
	})

	t.Run("from stdin", func(t *testing.T) {
		_, _, err := executeWithInput(t, `{"version":"3.0","files":{}}`, "meta", "import", "-C", root, "-")
		require.NoError(t, err)
		assert.Equal(t, "3.0", readDump(t, root)["version"])
	})

	t.Run("invalid json", func(t *testing.T) {
		src := writeFile(t, t.TempDir(), "bad.json", "{")
		_, _, err := execute(t, "meta", "import", "-C", root, src)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid JSON document")
	})
}

func TestRenderFileMetadata(t *testing.T) {
	md := &metadata.FileMetadata{
		FilePath:    "/work/a.go",
		HasMetadata: true,
		Attributes:  map[string]string{"z": "last", "a": "first"},
		Priorities:  map[string]string{},
		Facets:      []string{"core", "api"},
		Warnings:    []string{"section shared by base name"},
	}

	got := renderFileMetadata(md)
	assert.Contains(t, got, "Attributes")
	assert.NotContains(t, got, "Priorities")
	assert.Contains(t, got, "core, api")
	assert.Contains(t, got, "warning: section shared by base name")
	assert.Less(t, strings.Index(got, "first"), strings.Index(got, "last"))

	empty := renderFileMetadata(&metadata.FileMetadata{FilePath: "/work/b.go"})
	assert.Contains(t, empty, "no metadata")
}
