// Package flatfile persists whole JSON documents on the local filesystem.
//
// Every read reports a Status so callers can tell a first run (Missing, Empty)
// from a damaged file (Corrupt). Writes go through a temp file and rename.
package flatfile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusMissing Status = "missing"
	StatusEmpty   Status = "empty"
	StatusCorrupt Status = "corrupt"
)

var (
	ErrCorrupt     = errors.New("flat file is corrupt")
	ErrInvalidPath = errors.New("flat file path is invalid")
)

// Result is the outcome of reading one document.
type Result[T any] struct {
	Value  T
	Status Status
	Path   string
	Err    error
}

// Found reports whether Value came from a readable document.
func (r Result[T]) Found() bool {
	return r.Status == StatusOK
}

type Store struct {
	root string
	now  func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(root string, opts ...Option) *Store {
	root = strings.TrimSpace(root)
	if root == "" {
		root = "."
	}
	s := &Store{
		root:  root,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) Root() string {
	return s.root
}

// Path resolves a relative document name under the store root.
func (s *Store) Path(name string) (string, error) {
	cleaned := filepath.Clean(strings.TrimSpace(name))
	if cleaned == "." || cleaned == "" || filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return filepath.Join(s.root, cleaned), nil
}

func (s *Store) lock(path string) func() {
	s.mu.Lock()
	l, ok := s.locks[path]
	if !ok {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Read decodes the document at name into T.
func Read[T any](s *Store, name string) Result[T] {
	path, err := s.Path(name)
	if err != nil {
		return Result[T]{Status: StatusCorrupt, Path: name, Err: err}
	}
	unlock := s.lock(path)
	defer unlock()
	return readPath[T](path)
}

func readPath[T any](path string) Result[T] {
	res := Result[T]{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			res.Status = StatusMissing
			return res
		}
		res.Status = StatusCorrupt
		res.Err = fmt.Errorf("read %s: %w", path, err)
		return res
	}

	if len(bytes.TrimSpace(data)) == 0 {
		res.Status = StatusEmpty
		return res
	}

	if err := sonic.Unmarshal(data, &res.Value); err != nil {
		var zero T
		res.Value = zero
		res.Status = StatusCorrupt
		res.Err = fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
		return res
	}

	res.Status = StatusOK
	return res
}

// Write replaces the document at name with v.
func (s *Store) Write(name string, v any) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	unlock := s.lock(path)
	defer unlock()
	return writePath(path, v)
}

// WriteLatest overwrites a single-entry document.
func (s *Store) WriteLatest(name string, v any) error {
	return s.Write(name, v)
}

func writePath(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}

	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// Append adds entry to the JSON array at name and returns the new length.
// A corrupt array is quarantined next to the original before a fresh one is written.
func Append[T any](s *Store, name string, entry T) (int, error) {
	var count int
	err := Update(s, name, func(entries *[]T, status Status) error {
		*entries = append(*entries, entry)
		count = len(*entries)
		return nil
	})
	return count, err
}

// Update runs a read-modify-write cycle on the document at name under its lock.
// fn sees the zero value when the document is missing, empty or corrupt.
func Update[T any](s *Store, name string, fn func(v *T, status Status) error) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	unlock := s.lock(path)
	defer unlock()

	res := readPath[T](path)
	if res.Status == StatusCorrupt {
		if err := s.quarantine(path, res.Err); err != nil {
			return err
		}
	}

	value := res.Value
	if err := fn(&value, res.Status); err != nil {
		return err
	}
	return writePath(path, value)
}

func (s *Store) quarantine(path string, cause error) error {
	target := fmt.Sprintf("%s.corrupt-%d", path, s.now().Unix())
	if err := os.Rename(path, target); err != nil {
		log.Error().Err(err).Str("path", path).Msg("flatfile: quarantine corrupt file failed")
		return fmt.Errorf("quarantine %s: %w", path, err)
	}
	log.Error().Err(cause).
		Str("path", path).
		Str("quarantined_to", target).
		Msg("flatfile: corrupt document replaced")
	return nil
}

// Last returns the final element of the array at name.
func Last[T any](s *Store, name string) (T, Result[[]T]) {
	var zero T
	res := Read[[]T](s, name)
	if len(res.Value) == 0 {
		return zero, res
	}
	return res.Value[len(res.Value)-1], res
}
