package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrFileNotFound is returned when a requested artifact does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidPath is returned when a path is invalid or contains path traversal.
	ErrInvalidPath = errors.New("invalid path")
)

// ArtifactStore persists named run artifacts (report.md, screen.png, patches).
// Put always overwrites; there is no versioning.
type ArtifactStore interface {
	// Put writes data under name, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error

	// Get reads the artifact stored under name.
	Get(ctx context.Context, name string) ([]byte, error)

	// Exists checks if an artifact is stored under name.
	Exists(ctx context.Context, name string) (bool, error)

	// Location returns where the artifact can be read from: a filesystem
	// path for local storage, a presigned URL for S3.
	Location(ctx context.Context, name string) (string, error)
}

// Config selects and configures an ArtifactStore.
type Config struct {
	Type            string // "local" or "s3"
	BaseDir         string // local: defaults to the working directory
	S3Bucket        string
	S3Region        string
	S3PresignExpiry time.Duration
}

// New creates an ArtifactStore implementation based on configuration.
func New(cfg Config) (ArtifactStore, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "local":
		baseDir := cfg.BaseDir
		if baseDir == "" {
			baseDir = "."
		}
		return NewLocalStorage(baseDir)

	case "s3":
		s3Storage, err := NewS3Storage(cfg.S3Bucket, cfg.S3Region)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		if cfg.S3PresignExpiry > 0 {
			s3Storage.presignExpiration = cfg.S3PresignExpiry
		}
		return s3Storage, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// validatePath rejects empty, absolute and escaping artifact names.
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: path cannot be empty", ErrInvalidPath)
	}

	cleanPath := filepath.Clean(path)
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) || cleanPath == "." {
		return fmt.Errorf("%w: path traversal detected", ErrInvalidPath)
	}
	if filepath.IsAbs(cleanPath) {
		return fmt.Errorf("%w: absolute paths not allowed", ErrInvalidPath)
	}

	return nil
}
