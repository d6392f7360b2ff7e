package upload

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/naturalys/internal/storage"
)

// ObjectPrefix 上传图片在 bucket 内的目录
const ObjectPrefix = "store-images"

// BucketStrategy 上传到主对象存储
type BucketStrategy struct {
	Store     storage.ObjectStore
	Preferred string
	Fallback  string
	now       func() time.Time
}

// NewBucketStrategy 构造 BucketStrategy
func NewBucketStrategy(store storage.ObjectStore, preferred, fallback string) *BucketStrategy {
	return &BucketStrategy{Store: store, Preferred: preferred, Fallback: fallback, now: time.Now}
}

func (s *BucketStrategy) Name() string { return "storage" }

// ResolveBucket 依次选择 首选 → 备用 → 第一个已存在的 bucket → 首选
func (s *BucketStrategy) ResolveBucket(ctx context.Context) string {
	buckets, err := s.Store.ListBuckets(ctx)
	if err != nil || len(buckets) == 0 {
		return s.Preferred
	}
	for _, candidate := range []string{s.Preferred, s.Fallback} {
		if candidate == "" {
			continue
		}
		for _, name := range buckets {
			if name == candidate {
				return candidate
			}
		}
	}
	return buckets[0]
}

func (s *BucketStrategy) Upload(ctx context.Context, img *Prepared) (string, error) {
	bucket := s.ResolveBucket(ctx)
	now := s.clock()
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	key := fmt.Sprintf("%s/%d-%s.%s", ObjectPrefix, now.UnixMilli(), suffix, img.Ext())

	obj, err := s.Store.Put(ctx, bucket, key, img.ContentType, bytes.NewReader(img.Data))
	if err != nil {
		return "", fmt.Errorf("put object in %s: %w", bucket, err)
	}
	publicURL, err := s.Store.MakePublic(ctx, obj)
	if err != nil {
		return "", fmt.Errorf("make object public: %w", err)
	}
	if publicURL == "" {
		return "", fmt.Errorf("no public url for %s", obj.StorageKey())
	}
	return WithCacheBuster(NormalizeURL(publicURL), now), nil
}

func (s *BucketStrategy) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// NormalizeURL 补全协议为 https，站内相对路径保持不变
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return raw
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return raw
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "/"):
		return raw
	default:
		return "https://" + raw
	}
}

// WithCacheBuster 去掉原有查询串并追加 ?t=<毫秒时间戳>
func WithCacheBuster(raw string, now time.Time) string {
	if raw == "" {
		return raw
	}
	base, _, _ := strings.Cut(raw, "?")
	return fmt.Sprintf("%s?t=%d", base, now.UnixMilli())
}
