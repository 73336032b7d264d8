package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DumpBackend stores all metadata in <root>/attention_dump.json.
type DumpBackend struct {
	path string
	now  func() time.Time
}

// Dump is the layout of a newly created dump file.
type Dump struct {
	Version   string           `json:"version"`
	CreatedAt time.Time        `json:"created_at"`
	Files     map[string]Entry `json:"files"`
}

// NewDumpBackend binds the dump format to root. now stamps new dumps.
func NewDumpBackend(root string, now func() time.Time) *DumpBackend {
	if now == nil {
		now = time.Now
	}
	return &DumpBackend{path: filepath.Join(root, DumpFileName), now: now}
}

func (d *DumpBackend) Name() string { return formatDump }

// Path returns the dump file location.
func (d *DumpBackend) Path() string { return d.path }

// Exists reports whether anything exists at the dump path.
func (d *DumpBackend) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

func (d *DumpBackend) read() ([]byte, error) {
	content, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrIO, d.path, err)
	}
	return content, nil
}

// document decodes the dump top level, keeping every key verbatim.
func (d *DumpBackend) document() (map[string]json.RawMessage, error) {
	content, err := d.read()
	if err != nil {
		return nil, err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedData, d.path, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s: top level is not an object", ErrMalformedData, d.path)
	}
	return doc, nil
}

// files decodes the "files" member. Missing or null yields an empty map.
func (d *DumpBackend) files(doc map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	files := map[string]json.RawMessage{}
	raw, ok := doc["files"]
	if !ok || isNull(raw) {
		return files, nil
	}
	if err := json.Unmarshal(raw, &files); err != nil {
		return nil, fmt.Errorf("%w: %s: files: %v", ErrMalformedData, d.path, err)
	}
	if files == nil {
		files = map[string]json.RawMessage{}
	}
	return files, nil
}

func (d *DumpBackend) ReadFile(rel, _ string) (Entry, bool, error) {
	doc, err := d.document()
	if err != nil {
		return Entry{}, false, err
	}
	files, err := d.files(doc)
	if err != nil {
		return Entry{}, false, err
	}
	raw, ok := files[rel]
	if !ok || isNull(raw) {
		return Entry{}, false, nil
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, false, fmt.Errorf("%w: %s: files[%q]: %v", ErrMalformedData, d.path, rel, err)
	}
	return entry, true, nil
}

// WriteFile replaces files[rel] wholesale. Other top-level keys and other
// file entries are preserved. A missing dump is created.
func (d *DumpBackend) WriteFile(rel, _ string, entry Entry) error {
	if !d.Exists() {
		return d.create(rel, entry)
	}

	doc, err := d.document()
	if err != nil {
		return err
	}
	files, err := d.files(doc)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(entry.normalized())
	if err != nil {
		return fmt.Errorf("encoding entry: %w", err)
	}
	files[rel] = encoded

	encodedFiles, err := json.Marshal(files)
	if err != nil {
		return fmt.Errorf("encoding files: %w", err)
	}
	doc["files"] = encodedFiles

	return d.write(doc)
}

func (d *DumpBackend) create(rel string, entry Entry) error {
	return d.write(Dump{
		Version:   DumpVersion,
		CreatedAt: d.now().UTC().Truncate(time.Second),
		Files:     map[string]Entry{rel: entry.normalized()},
	})
}

// ReadAll decodes the whole dump without interpreting it.
func (d *DumpBackend) ReadAll() (interface{}, error) {
	content, err := d.read()
	if err != nil {
		return nil, err
	}
	var data interface{}
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedData, d.path, err)
	}
	return data, nil
}

// WriteAll overwrites the dump with data.
func (d *DumpBackend) WriteAll(data interface{}) error {
	return d.write(data)
}

func (d *DumpBackend) write(v interface{}) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding dump: %w", err)
	}
	return writeFileAtomic(d.path, append(content, '\n'))
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
