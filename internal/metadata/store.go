// Package metadata reads and writes per-file "attention" metadata stored
// either in a JSON dump file or in an .as directory of INI files.
//
// Format selection on write is mutually exclusive: an existing dump wins,
// then an existing .as directory, otherwise a new dump is created. Reads
// merge both formats, dump first.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/attnd/internal/logging"
	"github.com/fyrsmithlabs/attnd/internal/sanitize"
)

// Store is the metadata entry point. It is safe for concurrent use; writes
// are serialized per folder root.
type Store struct {
	logger *logging.Logger
	now    func() time.Time
	locks  keyedMutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp new dumps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a Store. A nil logger discards output.
func NewStore(logger *logging.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Store{
		logger: logger.Named("metadata"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) dump(root string) *DumpBackend {
	return NewDumpBackend(root, s.now)
}

func (s *Store) ini(root string) *IniBackend {
	return NewIniBackend(root)
}

// ReadFileMetadata returns the merged metadata for filePath. Unreadable or
// malformed documents are logged, reported in Warnings and otherwise treated
// as absent.
func (s *Store) ReadFileMetadata(ctx context.Context, root, filePath string) (*FileMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rel := sanitize.Relative(root, filePath)
	base := filepath.Base(filePath)
	md := newFileMetadata(filePath)
	source := SourceNone

	for _, b := range []Backend{s.dump(root), s.ini(root)} {
		if !b.Exists() {
			continue
		}
		entry, found, err := b.ReadFile(rel, base)
		if err != nil {
			s.recordReadFailure(ctx, b.Name(), err)
			md.warn("%s: %v", b.Name(), err)
			continue
		}
		if !found {
			continue
		}
		md.merge(entry)
		source = Source(b.Name())
		if b.Name() == formatIni && rel != base && strings.Contains(rel, "/") {
			md.warn("%s: section %q is keyed by file name and shared by every %q in the folder",
				formatIni, SectionName(base), base)
		}
	}

	md.HasMetadata = len(md.Attributes) > 0 || len(md.Priorities) > 0
	RecordRead(source)
	s.logger.Debug(ctx, "file metadata read",
		zap.String("file", rel),
		zap.String("source", string(source)),
		zap.Bool("has_metadata", md.HasMetadata),
	)
	return md, nil
}

// ReadAllMetadata returns the whole stored metadata. A readable dump is
// returned verbatim. Otherwise an existing .as directory is returned as
// {attributes, priorities}. Parse failures never surface as errors.
func (s *Store) ReadAllMetadata(ctx context.Context, root string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := &Snapshot{Source: SourceNone, Data: map[string]interface{}{}}

	if dump := s.dump(root); dump.Exists() {
		data, err := dump.ReadAll()
		if err == nil {
			snap.HasMetadata = true
			snap.Source = SourceDump
			snap.Data = data
			RecordRead(SourceDump)
			return snap, nil
		}
		s.recordReadFailure(ctx, formatDump, err)
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("%s: %v", formatDump, err))
	}

	if ini := s.ini(root); ini.Exists() {
		data, err := ini.ReadAll()
		if err == nil {
			// An existing .as directory counts as metadata even when empty.
			snap.HasMetadata = true
			snap.Source = SourceIni
			snap.Data = data
			RecordRead(SourceIni)
			return snap, nil
		}
		s.recordReadFailure(ctx, formatIni, err)
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("%s: %v", formatIni, err))
	}

	RecordRead(SourceNone)
	return snap, nil
}

// WriteFileMetadata stores entry for filePath in the format already present
// under root, creating a new dump when there is none.
func (s *Store) WriteFileMetadata(ctx context.Context, root, filePath string, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := s.locks.Lock(root)
	defer unlock()

	rel := sanitize.Relative(root, filePath)
	base := filepath.Base(filePath)

	var (
		backend Backend
		format  string
	)
	switch dump, ini := s.dump(root), s.ini(root); {
	case dump.Exists():
		backend, format = dump, formatDump
	case ini.Exists():
		backend, format = ini, formatIni
	default:
		backend, format = dump, formatNew
	}

	err := backend.WriteFile(rel, base, entry)
	RecordWrite(format, err)
	if err != nil {
		if errors.Is(err, ErrMalformedData) {
			RecordMalformed(backend.Name())
		}
		s.logger.Error(ctx, "metadata write failed",
			zap.String("file", rel),
			zap.String("format", format),
			zap.Error(err),
		)
		return fmt.Errorf("writing metadata for %s: %w", rel, err)
	}

	s.logger.Info(ctx, "metadata written", zap.String("file", rel), zap.String("format", format))
	return nil
}

// WriteAllMetadata overwrites the dump with data regardless of which format
// is present.
func (s *Store) WriteAllMetadata(ctx context.Context, root string, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := s.locks.Lock(root)
	defer unlock()

	err := s.dump(root).WriteAll(data)
	RecordWrite(formatAll, err)
	if err != nil {
		s.logger.Error(ctx, "metadata dump write failed", zap.Error(err))
		return fmt.Errorf("writing metadata dump: %w", err)
	}

	s.logger.Info(ctx, "metadata dump written")
	return nil
}

func (s *Store) recordReadFailure(ctx context.Context, source string, err error) {
	if errors.Is(err, ErrMalformedData) {
		RecordMalformed(source)
	}
	s.logger.Error(ctx, "metadata unreadable, treating as absent",
		zap.String("source", source),
		zap.Error(err),
	)
}

// keyedMutex serializes work per key. Entries are dropped when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// Lock acquires the mutex for key and returns its release function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
