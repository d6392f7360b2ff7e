package upload

import (
	"context"
	"encoding/base64"
	"fmt"
)

// DefaultInlineMaxBytes 内联图片允许的最大原始字节数
const DefaultInlineMaxBytes = 2 << 20

// MaxInlineBytes 编码后的 data URL 仍能放进 16 MiB 的 mediumtext 列
const MaxInlineBytes = 12_000_000

// InlineStrategy 把图片编码为 data URL，作为最后的兜底
type InlineStrategy struct {
	MaxBytes int
}

func (s InlineStrategy) Name() string { return "inline" }

func (s InlineStrategy) Upload(ctx context.Context, img *Prepared) (string, error) {
	limit := s.limit()
	if len(img.Data) > limit {
		return "", fmt.Errorf("image too large to inline: %d bytes exceeds %d", len(img.Data), limit)
	}
	return fmt.Sprintf("data:%s;base64,%s", img.ContentType, base64.StdEncoding.EncodeToString(img.Data)), nil
}

func (s InlineStrategy) limit() int {
	switch {
	case s.MaxBytes <= 0:
		return DefaultInlineMaxBytes
	case s.MaxBytes > MaxInlineBytes:
		return MaxInlineBytes
	}
	return s.MaxBytes
}
