// Package store keeps one file per candidate id under a directory of an afero filesystem.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

var (
	// ErrStorage wraps every filesystem or serialization failure.
	ErrStorage = errors.New("storage failure")
	// ErrNotFound is returned when reading or moving a missing id.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned when a move would clobber an existing entry.
	ErrExists = errors.New("already exists")
)

// Store is a key-value view over persisted candidate data.
type Store[T any] interface {
	Exists(id string) (bool, error)
	Read(id string) (T, error)
	Write(id string, value T) error
	Delete(id string) error
	List() ([]string, error)
}

// Codec converts values to and from their persisted bytes.
type Codec[T any] interface {
	Marshal(T) ([]byte, error)
	Unmarshal([]byte) (T, error)
}

// TextCodec stores strings verbatim.
type TextCodec struct{}

func (TextCodec) Marshal(s string) ([]byte, error) { return []byte(s), nil }

func (TextCodec) Unmarshal(b []byte) (string, error) { return string(b), nil }

// JSONCodec stores values as JSON objects.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Marshal(v T) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec[T]) Unmarshal(b []byte) (T, error) {
	var v T
	err := json.Unmarshal(b, &v)
	return v, err
}

// FileStore keeps each value in <dir>/<id><ext>.
type FileStore[T any] struct {
	fs    afero.Fs
	dir   string
	ext   string
	codec Codec[T]
}

func NewFileStore[T any](fs afero.Fs, dir, ext string, codec Codec[T]) (*FileStore[T], error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("%w: directory is required", ErrStorage)
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create directory %s: %v", ErrStorage, dir, err)
	}
	return &FileStore[T]{fs: fs, dir: dir, ext: ext, codec: codec}, nil
}

// NewText creates a store of plain UTF-8 .txt files.
func NewText(fs afero.Fs, dir string) (*FileStore[string], error) {
	return NewFileStore[string](fs, dir, ".txt", TextCodec{})
}

// NewJSON creates a store of .json documents.
func NewJSON[T any](fs afero.Fs, dir string) (*FileStore[T], error) {
	return NewFileStore[T](fs, dir, ".json", JSONCodec[T]{})
}

func (s *FileStore[T]) Dir() string { return s.dir }

// Path returns the file backing the id.
func (s *FileStore[T]) Path(id string) string {
	return filepath.Join(s.dir, id+s.ext)
}

func (s *FileStore[T]) Exists(id string) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}
	ok, err := afero.Exists(s.fs, s.Path(id))
	if err != nil {
		return false, fmt.Errorf("%w: stat %s: %v", ErrStorage, id, err)
	}
	return ok, nil
}

func (s *FileStore[T]) Read(id string) (T, error) {
	var zero T
	if err := validateID(id); err != nil {
		return zero, err
	}

	data, err := afero.ReadFile(s.fs, s.Path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return zero, fmt.Errorf("%w: read %s: %v", ErrStorage, id, err)
	}

	value, err := s.codec.Unmarshal(data)
	if err != nil {
		return zero, fmt.Errorf("%w: decode %s: %v", ErrStorage, id, err)
	}
	return value, nil
}

// Write replaces the value stored under id atomically.
func (s *FileStore[T]) Write(id string, value T) error {
	if err := validateID(id); err != nil {
		return err
	}

	data, err := s.codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrStorage, id, err)
	}

	if err := atomicWriteFile(s.fs, s.Path(id), data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrStorage, id, err)
	}
	return nil
}

func (s *FileStore[T]) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := s.fs.Remove(s.Path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("%w: delete %s: %v", ErrStorage, id, err)
	}
	return nil
}

// List returns the ids present in the store, sorted.
func (s *FileStore[T]) List() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrStorage, s.dir, err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if s.ext != "" && !strings.HasSuffix(name, s.ext) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, s.ext))
	}
	sort.Strings(ids)
	return ids, nil
}

// Move transfers the entry for id from src to dst by renaming it, so no copy remains in src.
// Both stores must live on the same filesystem.
func Move[T any](src, dst *FileStore[T], id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	ok, err := src.Exists(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	ok, err = dst.Exists(id)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: %s in %s", ErrExists, id, dst.dir)
	}

	if err := src.fs.Rename(src.Path(id), dst.Path(id)); err != nil {
		return fmt.Errorf("%w: move %s: %v", ErrStorage, id, err)
	}
	return nil
}

// ListIDs returns the candidate ids of every regular file in dir regardless of extension.
// A missing directory yields no ids.
func ListIDs(fs afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list %s: %v", ErrStorage, dir, err)
	}

	seen := make(map[string]struct{}, len(entries))
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		id := name
		if i := strings.Index(id, "."); i >= 0 {
			id = id[:i]
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty id", ErrStorage)
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("%w: invalid id %q", ErrStorage, id)
	}
	return nil
}
