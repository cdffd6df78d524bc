package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStorage implements ArtifactStore on the local filesystem.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage creates a new local filesystem store rooted at baseDir.
// "." roots the store at the process working directory. The directory is
// created if it does not exist.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("%w: base directory cannot be empty", ErrInvalidPath)
	}

	abs, err := filepath.Abs(filepath.Clean(baseDir))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalStorage{
		baseDir: abs,
	}, nil
}

// Put writes data to a temporary file and renames it over the target, so a
// reader never observes a half-written artifact.
func (s *LocalStorage) Put(ctx context.Context, name string, data []byte) error {
	fullPath, err := s.validateAndJoinPath(name)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace file: %w", err)
	}

	return nil
}

// Get reads the artifact stored under name.
func (s *LocalStorage) Get(ctx context.Context, name string) ([]byte, error) {
	fullPath, err := s.validateAndJoinPath(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return data, nil
}

// Exists checks if an artifact is stored under name.
func (s *LocalStorage) Exists(ctx context.Context, name string) (bool, error) {
	fullPath, err := s.validateAndJoinPath(name)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}

	return true, nil
}

// Location returns the absolute filesystem path of an existing artifact.
func (s *LocalStorage) Location(ctx context.Context, name string) (string, error) {
	fullPath, err := s.validateAndJoinPath(name)
	if err != nil {
		return "", err
	}

	exists, err := s.Exists(ctx, name)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrFileNotFound
	}

	return fullPath, nil
}

// validateAndJoinPath validates the path and joins it with the base directory,
// ensuring the result stays within baseDir.
func (s *LocalStorage) validateAndJoinPath(path string) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}

	fullPath := filepath.Join(s.baseDir, filepath.Clean(path))

	relPath, err := filepath.Rel(s.baseDir, fullPath)
	if err != nil || relPath == ".." || len(relPath) > 2 && relPath[:3] == ".."+string(filepath.Separator) {
		return "", fmt.Errorf("%w: path traversal detected", ErrInvalidPath)
	}

	return fullPath, nil
}
