package cloudstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/naturalys/internal/storage"
)

// backend 是 Store 用到的 Cloudinary 能力，便于测试替换
type backend interface {
	upload(ctx context.Context, r io.Reader, folder, publicID string) (secureURL, storedID string, err error)
	destroy(ctx context.Context, publicID string) error
	rootFolders(ctx context.Context) ([]string, error)
}

// Store 使用 Cloudinary 作为对象存储，根目录文件夹即 bucket
type Store struct {
	cld backend
}

// New 通过 CLOUDINARY_URL 创建 Store
func New(cloudinaryURL string) (*Store, error) {
	if strings.TrimSpace(cloudinaryURL) == "" {
		return nil, errors.New("cloudinary url is required")
	}
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &Store{cld: &sdkBackend{cld: cld}}, nil
}

func (s *Store) ListBuckets(ctx context.Context) ([]string, error) {
	return s.cld.rootFolders(ctx)
}

func (s *Store) Put(ctx context.Context, bucket, key, contentType string, r io.Reader) (storage.Object, error) {
	if strings.TrimSpace(bucket) == "" || strings.TrimSpace(key) == "" {
		return storage.Object{}, storage.ErrInvalidKey
	}
	secureURL, _, err := s.cld.upload(ctx, r, bucket, publicIDFor(key))
	if err != nil {
		return storage.Object{}, err
	}
	return storage.Object{Bucket: bucket, Key: key, URL: secureURL}, nil
}

// MakePublic 上传即为公开资源，直接返回 secure_url
func (s *Store) MakePublic(ctx context.Context, obj storage.Object) (string, error) {
	if obj.URL == "" {
		return "", fmt.Errorf("%w: missing delivery url", storage.ErrNotFound)
	}
	return obj.URL, nil
}

func (s *Store) Remove(ctx context.Context, bucket, key string) error {
	return s.cld.destroy(ctx, path.Join(bucket, publicIDFor(key)))
}

// publicIDFor 去掉扩展名，Cloudinary 的 public_id 不包含格式
func publicIDFor(key string) string {
	key = strings.TrimLeft(key, "/")
	return strings.TrimSuffix(key, path.Ext(key))
}

type sdkBackend struct {
	cld *cloudinary.Cloudinary
}

func (b *sdkBackend) upload(ctx context.Context, r io.Reader, folder, publicID string) (string, string, error) {
	result, err := b.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID: publicID,
		Folder:   folder,
	})
	if err != nil {
		return "", "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if result.Error.Message != "" {
		return "", "", fmt.Errorf("cloudinary upload: %s", result.Error.Message)
	}
	return result.SecureURL, result.PublicID, nil
}

func (b *sdkBackend) destroy(ctx context.Context, publicID string) error {
	result, err := b.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if result.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", result.Error.Message)
	}
	if result.Result == "not found" {
		return storage.ErrNotFound
	}
	return nil
}

func (b *sdkBackend) rootFolders(ctx context.Context) ([]string, error) {
	result, err := b.cld.Admin.RootFolders(ctx, admin.RootFoldersParams{})
	if err != nil {
		return nil, fmt.Errorf("cloudinary folders: %w", err)
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary folders: %s", result.Error.Message)
	}
	names := make([]string, 0, len(result.Folders))
	for _, folder := range result.Folders {
		names = append(names, folder.Name)
	}
	return names, nil
}
