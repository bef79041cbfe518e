package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage implements Storage on a local directory.
type LocalStorage struct {
	dir string
}

// NewLocalStorage creates a LocalStorage rooted at dir.
// Nothing is created on disk until Prepare is called.
func NewLocalStorage(dir string) *LocalStorage {
	return &LocalStorage{dir: dir}
}

// Dir returns the output directory path.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Prepare creates the output directory if it does not exist.
func (s *LocalStorage) Prepare(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if s.dir == "" {
		return fmt.Errorf("prepare output directory: empty path")
	}
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

// Save writes data to dir/name. The file is written under a temporary
// name and renamed so readers never observe a partial clip.
func (s *LocalStorage) Save(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	if err := checkName(name); err != nil {
		return "", err
	}

	f, err := os.CreateTemp(s.dir, "."+name+"_*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	tmpName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write clip: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close clip: %w", err)
	}

	dst := filepath.Join(s.dir, name)
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("rename clip: %w", err)
	}

	return dst, nil
}

// Delete removes the named files from the output directory.
func (s *LocalStorage) Delete(ctx context.Context, names []string) error {
	var firstErr error
	for _, name := range names {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := checkName(name); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		p := filepath.Join(s.dir, name)
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove clip %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// checkName rejects names that would escape the output location.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Verify interface implementation at compile time.
var _ Storage = (*LocalStorage)(nil)
