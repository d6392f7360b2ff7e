package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

var (
	// ErrNotFound 对象不存在
	ErrNotFound = errors.New("object not found")
	// ErrInvalidKey bucket 或路径非法
	ErrInvalidKey = errors.New("invalid object key")
)

// Object 已写入的对象
type Object struct {
	Bucket string
	Key    string
	URL    string
}

// StorageKey 返回 "bucket/key" 形式，用于持久化
func (o Object) StorageKey() string {
	return JoinKey(o.Bucket, o.Key)
}

// ObjectStore 是按 bucket 组织的对象存储
type ObjectStore interface {
	ListBuckets(ctx context.Context) ([]string, error)
	Put(ctx context.Context, bucket, key, contentType string, r io.Reader) (Object, error)
	MakePublic(ctx context.Context, obj Object) (string, error)
	Remove(ctx context.Context, bucket, key string) error
}

// JoinKey 拼接 bucket 与对象路径
func JoinKey(bucket, key string) string {
	return strings.Trim(bucket, "/") + "/" + strings.TrimLeft(key, "/")
}

// SplitKey 是 JoinKey 的逆操作
func SplitKey(storageKey string) (bucket, key string, err error) {
	bucket, key, ok := strings.Cut(strings.TrimLeft(storageKey, "/"), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", ErrInvalidKey
	}
	return bucket, key, nil
}

// ExtensionFor 根据 MIME 类型返回文件扩展名
func ExtensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
