package filestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/google/renameio/v2"
	"github.com/rpggio/hitparade/internal/repository"
)

// Document names inside the data directory.
const (
	RosterFile   = "songs.json"
	LedgerFile   = "votes.json"
	MetaFile     = "weeks.json"
	ActivityFile = "activity.jsonl"
	ArchiveDir   = "archive"

	backupSuffix = ".bak"
	filePerm     = 0o644
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Store is a directory of JSON documents. Every write stages the full
// document in a temporary file and renames it over the canonical path.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New opens (and creates if needed) a data directory.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(filepath.Join(dir, ArchiveDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// readFile returns the document bytes with any BOM removed. Absent files
// map to repository.ErrNotFound; empty or non-UTF-8 files to repository.ErrCorrupt.
func (s *Store) readFile(name string) ([]byte, error) {
	path := s.path(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		s.logger.Error("document present but empty", "path", path)
		return nil, fmt.Errorf("%s is empty: %w", path, repository.ErrCorrupt)
	}
	if !utf8.Valid(data) {
		s.logger.Error("document is not valid UTF-8", "path", path)
		return nil, fmt.Errorf("%s is not valid UTF-8: %w", path, repository.ErrCorrupt)
	}
	return data, nil
}

// readJSON decodes a document into v.
func (s *Store) readJSON(name string, v any) error {
	data, err := s.readFile(name)
	if err != nil {
		return err
	}
	if err := decodeStrict(data, v); err != nil {
		s.logger.Error("document unparseable", "path", s.path(name), "error", err)
		return fmt.Errorf("decoding %s: %v: %w", s.path(name), err, repository.ErrCorrupt)
	}
	return nil
}

// decodeStrict decodes exactly one JSON value, keeping numbers as json.Number.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after document")
	}
	return nil
}

func encodeJSON(name string, v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return append(data, '\n'), nil
}

// createJSON writes a document that must not exist yet. The content is
// staged and synced in a temporary file, then hard-linked into place; the
// link fails with repository.ErrExists when another writer got there first.
func (s *Store) createJSON(name string, v any) error {
	data, err := encodeJSON(name, v)
	if err != nil {
		return err
	}
	path := s.path(name)
	pending, err := renameio.NewPendingFile(path,
		renameio.WithTempDir(filepath.Dir(path)), renameio.WithStaticPermissions(filePerm))
	if err != nil {
		return fmt.Errorf("failed to stage %s: %w", path, err)
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := pending.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := os.Link(pending.Name(), path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return repository.ErrExists
		}
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	return nil
}

// writeJSON atomically replaces a document. With backup set, the previous
// version is first copied to <name>.bak.
func (s *Store) writeJSON(name string, v any, backup bool) error {
	data, err := encodeJSON(name, v)
	if err != nil {
		return err
	}

	path := s.path(name)
	if backup {
		prev, err := os.ReadFile(path)
		switch {
		case err == nil && len(prev) > 0:
			if err := renameio.WriteFile(path+backupSuffix, prev, filePerm); err != nil {
				return fmt.Errorf("failed to back up %s: %w", path, err)
			}
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("failed to read %s for backup: %w", path, err)
		}
	}
	if err := renameio.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
