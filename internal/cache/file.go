package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alexisbeaulieu97/stageplan/internal/ports"
	"github.com/alexisbeaulieu97/stageplan/internal/stage"
	"github.com/alexisbeaulieu97/stageplan/internal/step"
)

const fileExt = ".cache"

// FileStore keeps one file per cache key in a scratch directory.
type FileStore struct {
	dir    string
	prefix string
}

// NewFileStore creates a FileStore below dir, which defaults to the OS
// temp directory. The directory is created when missing.
func NewFileStore(dir, prefix string) (*FileStore, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileStore{dir: dir, prefix: prefix}, nil
}

// Path returns the file backing a key.
func (s *FileStore) Path(id stage.ID, stagesOnly bool) string {
	return filepath.Join(s.dir, Key(s.prefix, id, stagesOnly)+fileExt)
}

// Get loads a cached sequence. A missing file is a miss, not an error.
func (s *FileStore) Get(ctx context.Context, id stage.ID, stagesOnly bool) ([]*step.Step, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(s.Path(id, stagesOnly))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	steps, err := decode(id, stagesOnly, data)
	if err != nil {
		return nil, false, err
	}
	return steps, true, nil
}

// Put writes the entry to a temporary file and renames it into place so
// readers never observe a partial entry.
func (s *FileStore) Put(ctx context.Context, id stage.ID, stagesOnly bool, steps []*step.Step) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encode(id, stagesOnly, steps)
	if err != nil {
		return err
	}

	target := s.Path(id, stagesOnly)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, target); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// Clear removes the entries of id, or every entry under the prefix when id
// is empty.
func (s *FileStore) Clear(ctx context.Context, id stage.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var paths []string
	if id == "" {
		matches, err := filepath.Glob(filepath.Join(s.dir, globEscape(s.prefix)+"_*"+fileExt))
		if err != nil {
			return fmt.Errorf("failed to list cache entries: %w", err)
		}
		paths = matches
	} else {
		for _, key := range keysFor(s.prefix, id) {
			paths = append(paths, filepath.Join(s.dir, key+fileExt))
		}
	}

	var errs []error
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func globEscape(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '*', '?', '[', '\\':
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

var _ ports.PlanCache = (*FileStore)(nil)
