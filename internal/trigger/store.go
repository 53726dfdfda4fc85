package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"signagerec/internal/config"
	"signagerec/internal/fileutil"
)

// Marker identifies one of the coordination files.
type Marker string

const (
	Start  Marker = "start"
	Busy   Marker = "busy"
	Done   Marker = "done"
	Failed Marker = "failed"
)

// Markers lists every marker in protocol order.
var Markers = []Marker{Start, Busy, Done, Failed}

// ErrAlreadyExists is returned by CreateExclusive when the marker is present.
var ErrAlreadyExists = errors.New("marker already exists")

// ErrUnknownMarker is returned for a Marker value the store has no file name for.
var ErrUnknownMarker = errors.New("unknown marker")

const lockRetryDelay = 50 * time.Millisecond

// Store is the file-system facing surface the orchestrator depends on.
type Store interface {
	Exists(Marker) (bool, error)
	CreateExclusive(Marker, []byte) error
	Write(Marker, []byte) error
	Remove(Marker) error
	RemoveFile(path string) (bool, error)
	Lock(ctx context.Context) (func() error, error)
	Path(Marker) string
	State() (State, error)
}

// Names maps markers to file names inside the store directory.
type Names struct {
	Start  string
	Busy   string
	Done   string
	Failed string
	Lock   string
	Output string
}

// FileStore implements Store over a single directory.
type FileStore struct {
	dir   string
	names Names
	lock  *flock.Flock
	fill  func(markerFile, []byte) error
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string, names Names) *FileStore {
	return &FileStore{
		dir:   dir,
		names: names,
		lock:  flock.New(filepath.Join(dir, names.Lock)),
	}
}

// NewFromConfig builds a FileStore from the configured state directory and marker names.
func NewFromConfig(cfg *config.Config) *FileStore {
	return NewFileStore(cfg.Paths.StateDir, Names{
		Start:  cfg.Markers.Start,
		Busy:   cfg.Markers.Busy,
		Done:   cfg.Markers.Done,
		Failed: cfg.Markers.Failed,
		Lock:   cfg.Markers.Lock,
		Output: cfg.Markers.Output,
	})
}

// Dir returns the directory holding the markers.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the absolute location of marker m, or "" when m is unknown.
func (s *FileStore) Path(m Marker) string {
	name := s.name(m)
	if name == "" {
		return ""
	}
	return filepath.Join(s.dir, name)
}

// OutputPath returns the location of the capture output.
func (s *FileStore) OutputPath() string {
	return filepath.Join(s.dir, s.names.Output)
}

func (s *FileStore) name(m Marker) string {
	switch m {
	case Start:
		return s.names.Start
	case Busy:
		return s.names.Busy
	case Done:
		return s.names.Done
	case Failed:
		return s.names.Failed
	default:
		return ""
	}
}

func (s *FileStore) resolve(m Marker) (string, error) {
	path := s.Path(m)
	if path == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownMarker, string(m))
	}
	return path, nil
}

// Exists reports whether marker m is present.
func (s *FileStore) Exists(m Marker) (bool, error) {
	path, err := s.resolve(m)
	if err != nil {
		return false, err
	}
	ok, err := fileutil.Exists(path)
	if err != nil {
		return false, fmt.Errorf("stat %s marker: %w", m, err)
	}
	return ok, nil
}

// CreateExclusive creates marker m with payload, failing with ErrAlreadyExists
// if the file is already present. A marker that cannot be fully written is
// removed again so a partial busy marker never blocks later runs.
func (s *FileStore) CreateExclusive(m Marker, payload []byte) error {
	path, err := s.resolve(m)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
		}
		return fmt.Errorf("create %s marker: %w", m, err)
	}
	fill := s.fill
	if fill == nil {
		fill = fillMarker
	}
	if err := fill(file, payload); err != nil {
		_ = file.Close()
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return fmt.Errorf("%s marker: %w", m, errors.Join(err, fmt.Errorf("remove partial marker: %w", rmErr)))
		}
		return fmt.Errorf("%s marker: %w", m, err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close %s marker: %w", m, err)
	}
	return nil
}

type markerFile interface {
	Write([]byte) (int, error)
	Sync() error
}

func fillMarker(file markerFile, payload []byte) error {
	if len(payload) > 0 {
		if _, err := file.Write(payload); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

// LastFailure decodes the failed marker. ok is false when the marker is
// absent or does not hold a failure payload.
func (s *FileStore) LastFailure() (FailedPayload, bool) {
	data, err := os.ReadFile(s.Path(Failed))
	if err != nil {
		return FailedPayload{}, false
	}
	var payload FailedPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Phase == "" {
		return FailedPayload{}, false
	}
	return payload, true
}

// Write atomically creates or replaces marker m.
func (s *FileStore) Write(m Marker, payload []byte) error {
	path, err := s.resolve(m)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, payload, 0o644); err != nil {
		return fmt.Errorf("write %s marker: %w", m, err)
	}
	return nil
}

// Remove deletes marker m. An absent marker is not an error.
func (s *FileStore) Remove(m Marker) error {
	path, err := s.resolve(m)
	if err != nil {
		return err
	}
	if _, err := fileutil.RemoveIfPresent(path); err != nil {
		return fmt.Errorf("remove %s marker: %w", m, err)
	}
	return nil
}

// RemoveFile deletes an arbitrary file and reports whether it existed.
func (s *FileStore) RemoveFile(path string) (bool, error) {
	if strings.TrimSpace(path) == "" {
		return false, nil
	}
	removed, err := fileutil.RemoveIfPresent(path)
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", path, err)
	}
	return removed, nil
}

// Lock acquires the arming lock, retrying until ctx is done. The returned
// function releases it.
func (s *FileStore) Lock(ctx context.Context) (func() error, error) {
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire arming lock %s: %w", s.lock.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("acquire arming lock %s: not acquired", s.lock.Path())
	}
	return s.lock.Unlock, nil
}
