// Package ini reads and writes the restricted INI dialect used by the .as
// metadata directory.
//
// Only section headers and key=value pairs are understood. Comments (# or ;)
// and blank lines are skipped, and anything else is ignored without error.
package ini

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// ErrUnrepresentable means a section name, key or value would not read back
// unchanged after Serialize.
var ErrUnrepresentable = errors.New("not representable in ini")

var (
	sectionPattern  = regexp.MustCompile(`^\[(.+)\]$`)
	keyValuePattern = regexp.MustCompile(`^(.+?)=(.+)$`)
)

// Section is a named, ordered set of key/value pairs.
type Section struct {
	Name   string
	keys   []string
	values map[string]string
}

func newSection(name string) *Section {
	return &Section{Name: name, values: make(map[string]string)}
}

// Keys returns the section keys in file order.
func (s *Section) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Get returns the value stored under key.
func (s *Section) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Put sets key to value. A new key is appended; an existing key keeps its position.
func (s *Section) Put(key, value string) {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Len returns the number of keys.
func (s *Section) Len() int {
	return len(s.keys)
}

// Map returns a copy of the section values.
func (s *Section) Map() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Document is an ordered collection of sections.
type Document struct {
	order    []string
	sections map[string]*Section
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{sections: make(map[string]*Section)}
}

// Sections returns the section names in order.
func (d *Document) Sections() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Len returns the number of sections.
func (d *Document) Len() int {
	return len(d.order)
}

// Section returns the named section.
func (d *Document) Section(name string) (*Section, bool) {
	s, ok := d.sections[name]
	return s, ok
}

// reset replaces the named section with an empty one. A section that already
// exists keeps its position in the document.
func (d *Document) reset(name string) *Section {
	s := newSection(name)
	if _, ok := d.sections[name]; !ok {
		d.order = append(d.order, name)
	}
	d.sections[name] = s
	return s
}

// Validate checks that name and every pair in values serialize to lines
// Parse reads back as the same section and pairs.
func Validate(name string, values map[string]string) error {
	if err := checkToken("section name", name); err != nil {
		return err
	}
	for k, v := range values {
		if err := checkToken("key", k); err != nil {
			return err
		}
		switch {
		case strings.Contains(k, "="):
			return fmt.Errorf("%w: key %q contains '='", ErrUnrepresentable, k)
		case strings.ContainsAny(k[:1], "[#;"):
			return fmt.Errorf("%w: key %q starts with %q", ErrUnrepresentable, k, k[:1])
		}
		if err := checkToken(fmt.Sprintf("value of %q", k), v); err != nil {
			return err
		}
	}
	return nil
}

// checkToken rejects empty text, line breaks and surrounding whitespace.
func checkToken(what, s string) error {
	switch {
	case s == "":
		return fmt.Errorf("%w: empty %s", ErrUnrepresentable, what)
	case strings.ContainsAny(s, "\r\n"):
		return fmt.Errorf("%w: %s contains a line break", ErrUnrepresentable, what)
	case strings.TrimSpace(s) != s:
		return fmt.Errorf("%w: %s has leading or trailing whitespace", ErrUnrepresentable, what)
	}
	return nil
}

// Set replaces the named section with values. Keys are written in sorted order
// so the serialized output is stable. The document is unchanged when
// Validate rejects the input.
func (d *Document) Set(name string, values map[string]string) error {
	if err := Validate(name, values); err != nil {
		return err
	}
	s := d.reset(name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.Put(k, values[k])
	}
	return nil
}

// Map returns the document as plain nested maps.
func (d *Document) Map() map[string]map[string]string {
	out := make(map[string]map[string]string, len(d.order))
	for _, name := range d.order {
		out[name] = d.sections[name].Map()
	}
	return out
}

// Parse reads text leniently. It never fails: malformed lines and key/value
// pairs outside of a section are dropped.
func Parse(text string) *Document {
	doc := NewDocument()
	var current *Section

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if m := sectionPattern.FindStringSubmatch(line); m != nil {
			current = doc.reset(m[1])
			continue
		}

		if current == nil {
			continue
		}
		if m := keyValuePattern.FindStringSubmatch(line); m != nil {
			current.Put(strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
		}
	}

	return doc
}

// ParseFile reads and parses the file at path. A missing file is reported
// with an error wrapping fs.ErrNotExist.
func ParseFile(path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ini file: %w", err)
	}
	return Parse(string(content)), nil
}

// Serialize renders doc: each section header, its key=value lines and a blank
// separator line.
func Serialize(doc *Document) string {
	var lines []string
	for _, name := range doc.order {
		s := doc.sections[name]
		lines = append(lines, "["+name+"]")
		for _, k := range s.keys {
			lines = append(lines, k+"="+s.values[k])
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
