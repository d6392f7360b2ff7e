package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/naturalys/internal/storage"
	"go.uber.org/zap"
)

// Store keeps buckets as sub-directories of basePath and serves them under urlPrefix.
type Store struct {
	basePath  string
	urlPrefix string
	logger    *zap.Logger
}

func NewStore(basePath, urlPrefix string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		basePath:  basePath,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
		logger:    logger,
	}, nil
}

// EnsureBucket creates the bucket directory if it is missing.
func (s *Store) EnsureBucket(name string) error {
	dir, err := s.safeJoin(name)
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) ListBuckets(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	buckets := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			buckets = append(buckets, entry.Name())
		}
	}
	sort.Strings(buckets)
	return buckets, nil
}

func (s *Store) Put(ctx context.Context, bucket, key, contentType string, r io.Reader) (storage.Object, error) {
	filePath, err := s.safeJoin(bucket, key)
	if err != nil {
		return storage.Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return storage.Object{}, fmt.Errorf("failed to create bucket directory: %w", err)
	}

	f, err := os.Create(filePath)
	if err != nil {
		return storage.Object{}, fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		if cerr := f.Close(); cerr != nil {
			s.logger.Error("failed to close file after write error", zap.Error(cerr))
		}
		if rerr := os.Remove(filePath); rerr != nil {
			s.logger.Error("failed to remove file after write error", zap.Error(rerr))
		}
		return storage.Object{}, fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		if rerr := os.Remove(filePath); rerr != nil {
			s.logger.Error("failed to remove file after close error", zap.Error(rerr))
		}
		return storage.Object{}, fmt.Errorf("failed to close file: %w", err)
	}

	return storage.Object{
		Bucket: bucket,
		Key:    key,
		URL:    path.Join(s.urlPrefix, bucket, filepath.ToSlash(key)),
	}, nil
}

// MakePublic is a no-op: everything under basePath is served statically.
func (s *Store) MakePublic(ctx context.Context, obj storage.Object) (string, error) {
	if obj.URL != "" {
		return obj.URL, nil
	}
	return path.Join(s.urlPrefix, obj.Bucket, obj.Key), nil
}

func (s *Store) Remove(ctx context.Context, bucket, key string) error {
	filePath, err := s.safeJoin(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// safeJoin resolves the parts relative to basePath and rejects directory traversal.
func (s *Store) safeJoin(parts ...string) (string, error) {
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return "", storage.ErrInvalidKey
		}
	}

	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(append([]string{s.basePath}, parts...)...))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path traversal attempt", storage.ErrInvalidKey)
	}
	return absPath, nil
}
