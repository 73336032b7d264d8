package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// DumpFileName is the single-document JSON format.
	DumpFileName = "attention_dump.json"

	// IniDirName holds Attributes.ini and Priorities.ini.
	IniDirName = ".as"

	AttributesFileName = "Attributes.ini"
	PrioritiesFileName = "Priorities.ini"

	// DumpVersion seeds newly created dumps.
	DumpVersion = "1.0"

	// sectionPrefix names the INI section holding one file's values.
	sectionPrefix = "File:"
)

// Source identifies where a snapshot was read from.
type Source string

const (
	SourceNone Source = "none"
	SourceDump Source = "dump"
	SourceIni  Source = "as-directory"
)

// Write format labels.
const (
	formatDump = "dump"
	formatIni  = "as-directory"
	formatNew  = "new-dump"
	formatAll  = "dump-all"
)

var (
	// ErrIO wraps filesystem failures while reading or writing metadata.
	ErrIO = errors.New("metadata i/o failure")

	// ErrMalformedData means a metadata document could not be parsed.
	ErrMalformedData = errors.New("malformed metadata")

	// ErrInvalidEntry means the entry cannot be stored in the target format.
	ErrInvalidEntry = errors.New("invalid metadata entry")
)

// Entry is one file's metadata as stored in either format.
type Entry struct {
	Attributes map[string]string `json:"attributes"`
	Priorities map[string]string `json:"priorities"`
	Facets     []string          `json:"facets"`
}

// normalized returns a copy with non-nil containers.
func (e Entry) normalized() Entry {
	out := Entry{
		Attributes: make(map[string]string, len(e.Attributes)),
		Priorities: make(map[string]string, len(e.Priorities)),
		Facets:     make([]string, 0, len(e.Facets)),
	}
	for k, v := range e.Attributes {
		out.Attributes[k] = v
	}
	for k, v := range e.Priorities {
		out.Priorities[k] = v
	}
	out.Facets = append(out.Facets, e.Facets...)
	return out
}

// UnmarshalJSON accepts entries whose values are not strings, rendering them
// as compact JSON, and treats missing or null containers as empty.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Attributes map[string]json.RawMessage `json:"attributes"`
		Priorities map[string]json.RawMessage `json:"priorities"`
		Facets     []json.RawMessage          `json:"facets"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.Attributes = stringMap(raw.Attributes)
	e.Priorities = stringMap(raw.Priorities)
	e.Facets = make([]string, 0, len(raw.Facets))
	for _, f := range raw.Facets {
		e.Facets = append(e.Facets, stringValue(f))
	}
	return nil
}

func stringMap(in map[string]json.RawMessage) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = stringValue(v)
	}
	return out
}

func stringValue(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(v)
}

// FileMetadata is the merged view of one file's metadata.
type FileMetadata struct {
	FilePath    string            `json:"file_path"`
	HasMetadata bool              `json:"has_metadata"`
	Attributes  map[string]string `json:"attributes"`
	Priorities  map[string]string `json:"priorities"`
	Facets      []string          `json:"facets"`
	// Warnings lists problems that were recovered from while reading.
	Warnings []string `json:"warnings,omitempty"`
}

func newFileMetadata(filePath string) *FileMetadata {
	return &FileMetadata{
		FilePath:   filePath,
		Attributes: map[string]string{},
		Priorities: map[string]string{},
		Facets:     []string{},
	}
}

// merge copies entry values over m field by field.
func (m *FileMetadata) merge(e Entry) {
	for k, v := range e.Attributes {
		m.Attributes[k] = v
	}
	for k, v := range e.Priorities {
		m.Priorities[k] = v
	}
	if len(e.Facets) > 0 {
		m.Facets = append(m.Facets[:0], e.Facets...)
	}
}

func (m *FileMetadata) warn(format string, args ...interface{}) {
	m.Warnings = append(m.Warnings, fmt.Sprintf(format, args...))
}

// Snapshot is the whole-folder view returned by ReadAllMetadata.
type Snapshot struct {
	HasMetadata bool        `json:"has_metadata"`
	Source      Source      `json:"source"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
}

// IniSnapshot is the data of a snapshot read from the .as directory.
type IniSnapshot struct {
	Attributes map[string]map[string]string `json:"attributes"`
	Priorities map[string]map[string]string `json:"priorities"`
}

// SectionName returns the INI section that stores filePath's values.
// Sections are keyed by base name, so same-named files in different
// directories share one section.
func SectionName(base string) string {
	return sectionPrefix + base
}
