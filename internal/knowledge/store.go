// Package knowledge persists the learning state as a single YAML document.
package knowledge

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrCorrupt is returned when a knowledge file exists but cannot be decoded.
var ErrCorrupt = errors.New("knowledge file is corrupt")

// ErrNotLoaded is returned by Flush when the backing file failed to load.
// The file is left untouched so its history can be recovered.
var ErrNotLoaded = errors.New("knowledge file was not loaded")

// Store owns the in-memory document and its backing file. It is not safe for
// concurrent use; one session owns one Store.
type Store struct {
	path   string
	doc    *Document
	dirty   bool
	loadErr error
	logger  *slog.Logger
	now    func() time.Time
}

// DefaultPath returns ~/.formpilot/knowledge.yaml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".formpilot", "knowledge.yaml")
}

// Open loads the document at path. A missing file yields empty defaults. An
// unreadable or corrupt file also yields empty defaults and the error is
// returned so the caller can log it. Such a store works in memory but never
// writes over the file it failed to read.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: path, logger: logger, now: time.Now}

	doc, err := Load(path)
	if err != nil {
		s.doc = NewDocument()
		s.loadErr = err
		return s, err
	}
	s.doc = doc
	return s, nil
}

// SnapshotPath returns the snapshot file for a session under dir. Characters
// outside [A-Za-z0-9._-] in the session ID are replaced with '_'.
func SnapshotPath(dir, sessionID string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, sessionID)
	name = strings.TrimLeft(name, ".")
	if name == "" {
		name = "_"
	}
	return filepath.Join(dir, name+".yaml")
}

// NewMemoryStore returns a store with no backing file. Flush is a no-op.
func NewMemoryStore() *Store {
	return &Store{doc: NewDocument(), logger: slog.Default(), now: time.Now}
}

// FromDocument wraps an existing document, e.g. a clone handed to a session.
func FromDocument(path string, doc *Document, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	doc.ensure()
	return &Store{path: path, doc: doc, logger: logger, now: time.Now}
}

// Load reads a document without taking ownership of the file. Used by
// read-only views such as the HTTP API.
func Load(path string) (*Document, error) {
	if path == "" {
		return NewDocument(), nil
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening knowledge file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a YAML document.
func Decode(r io.Reader) (*Document, error) {
	doc := &Document{}
	if err := yaml.NewDecoder(r).Decode(doc); err != nil {
		if errors.Is(err, io.EOF) {
			return NewDocument(), nil
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	doc.ensure()
	return doc, nil
}

// Path returns the backing file path, empty for memory stores.
func (s *Store) Path() string {
	return s.path
}

// Document returns the live document. Callers mutate it in place and then
// call MarkDirty.
func (s *Store) Document() *Document {
	return s.doc
}

// MarkDirty records that the document has unflushed changes.
func (s *Store) MarkDirty() {
	s.dirty = true
}

// Dirty reports whether a flush is pending.
func (s *Store) Dirty() bool {
	return s.dirty
}

// Flush writes the document if it has changed. A failed write leaves the
// store dirty so the next mutation retries it.
func (s *Store) Flush() error {
	if !s.dirty || s.path == "" {
		return nil
	}
	if s.loadErr != nil {
		return fmt.Errorf("%w: refusing to overwrite %s: %v", ErrNotLoaded, s.path, s.loadErr)
	}
	s.doc.UpdatedAt = s.now().UTC()
	s.doc.Version = DocumentVersion
	if err := writeDocument(s.path, s.doc); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// FlushBestEffort flushes and logs instead of returning a failure.
func (s *Store) FlushBestEffort() {
	if err := s.Flush(); err != nil {
		s.logger.Warn("knowledge flush failed, will retry on next change", "path", s.path, "error", err)
	}
}

// Close flushes pending changes.
func (s *Store) Close() error {
	return s.Flush()
}

// Snapshot writes a copy of the current document to path, regardless of the
// dirty flag. Sessions running against a cloned store write snapshots that a
// scheduled merge folds back into the shared file.
func (s *Store) Snapshot(path string) error {
	doc := s.doc.Clone()
	doc.UpdatedAt = s.now().UTC()
	return writeDocument(path, doc)
}

// MergeFrom folds the documents at paths into this store and flushes. Files
// that fail to load are skipped; their errors are joined into the result.
func (s *Store) MergeFrom(paths ...string) (int, error) {
	var (
		merged int
		errs   []error
	)
	for _, p := range paths {
		doc, err := Load(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			continue
		}
		s.doc.Merge(doc)
		merged++
	}
	if merged > 0 {
		s.MarkDirty()
		if err := s.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return merged, errors.Join(errs...)
}

func writeDocument(path string, doc *Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling knowledge document: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating knowledge dir: %w", err)
	}
	return atomicWrite(path, data)
}

// atomicWrite writes data to a temp file in the target directory, syncs it,
// and renames it over path.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write content: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename to final: %w", err)
	}
	success = true
	return nil
}
