package metadata

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fyrsmithlabs/attnd/internal/ini"
)

// IniBackend stores metadata in <root>/.as/Attributes.ini and Priorities.ini,
// one "File:<base name>" section per file.
type IniBackend struct {
	dir string
}

// NewIniBackend binds the .as directory format to root.
func NewIniBackend(root string) *IniBackend {
	return &IniBackend{dir: filepath.Join(root, IniDirName)}
}

func (b *IniBackend) Name() string { return formatIni }

// Dir returns the .as directory location.
func (b *IniBackend) Dir() string { return b.dir }

// Exists reports whether the .as directory exists.
func (b *IniBackend) Exists() bool {
	info, err := os.Stat(b.dir)
	return err == nil && info.IsDir()
}

// load parses one INI file. A missing file is an empty document.
func (b *IniBackend) load(name string) (*ini.Document, error) {
	doc, err := ini.ParseFile(filepath.Join(b.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return ini.NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	return doc, nil
}

func (b *IniBackend) ReadFile(_, base string) (Entry, bool, error) {
	section := SectionName(base)
	entry := Entry{Attributes: map[string]string{}, Priorities: map[string]string{}}
	found := false

	for _, target := range []struct {
		file string
		into map[string]string
	}{
		{AttributesFileName, entry.Attributes},
		{PrioritiesFileName, entry.Priorities},
	} {
		doc, err := b.load(target.file)
		if err != nil {
			return Entry{}, false, err
		}
		s, ok := doc.Section(section)
		if !ok {
			continue
		}
		found = true
		for k, v := range s.Map() {
			target.into[k] = v
		}
	}

	return entry, found, nil
}

// WriteFile writes non-empty attributes and priorities into the file's
// section, leaving every other section untouched. Facets have no INI
// representation and are dropped. Nothing is written when either map holds
// a pair the INI files cannot carry.
func (b *IniBackend) WriteFile(_, base string, entry Entry) error {
	section := SectionName(base)
	for _, values := range []map[string]string{entry.Attributes, entry.Priorities} {
		if err := ini.Validate(section, values); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidEntry, err)
		}
	}

	if len(entry.Attributes) > 0 {
		if err := b.updateSection(AttributesFileName, section, entry.Attributes); err != nil {
			return err
		}
	}
	if len(entry.Priorities) > 0 {
		if err := b.updateSection(PrioritiesFileName, section, entry.Priorities); err != nil {
			return err
		}
	}
	return nil
}

func (b *IniBackend) updateSection(name, section string, values map[string]string) error {
	doc, err := b.load(name)
	if err != nil {
		return err
	}
	if err := doc.Set(section, values); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	return writeFileAtomic(filepath.Join(b.dir, name), []byte(ini.Serialize(doc)))
}

// ReadAll returns both documents as an IniSnapshot.
func (b *IniBackend) ReadAll() (interface{}, error) {
	attrs, err := b.load(AttributesFileName)
	if err != nil {
		return nil, err
	}
	prios, err := b.load(PrioritiesFileName)
	if err != nil {
		return nil, err
	}
	return IniSnapshot{Attributes: attrs.Map(), Priorities: prios.Map()}, nil
}
