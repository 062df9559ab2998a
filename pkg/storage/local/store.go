package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store keeps uploaded files on local disk. It backs dev environments
// where no bucket is configured.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Upload(_ context.Context, object, _ string, body io.Reader) (string, error) {
	path, err := s.resolve(object)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating object dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating object file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(f, body); err != nil {
		return "", fmt.Errorf("writing object: %w", err)
	}
	return path, nil
}

func (s *Store) Download(_ context.Context, object string) (io.ReadCloser, error) {
	path, err := s.resolve(object)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening object: %w", err)
	}
	return f, nil
}

// resolve maps an object name onto the store directory and rejects
// names that would escape it.
func (s *Store) resolve(object string) (string, error) {
	if strings.TrimSpace(object) == "" {
		return "", errors.New("object name is required")
	}
	path := filepath.Join(s.dir, filepath.FromSlash(object))
	base, err := filepath.Abs(s.dir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if abs != base && !strings.HasPrefix(abs, base+string(filepath.Separator)) {
		return "", fmt.Errorf("object name %q escapes storage dir", object)
	}
	return path, nil
}
