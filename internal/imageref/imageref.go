// Package imageref 解析图片字段的多种形态：远程 URL、站内路径、data URL 或图片库 UUID。
package imageref

import (
	"strings"

	"github.com/google/uuid"
)

// Kind 图片引用的类型
type Kind int

const (
	KindEmpty Kind = iota
	KindRemoteURL
	KindInlineData
	KindAssetReference
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindRemoteURL:
		return "remote_url"
	case KindInlineData:
		return "inline_data"
	case KindAssetReference:
		return "asset_reference"
	default:
		return "unknown"
	}
}

// 默认占位图
const (
	DefaultProductImage = "/static/img/default-product.svg"
	DefaultStoreImage   = "/static/img/default-store.svg"
	DefaultLogo         = "/static/img/default-logo.svg"
)

// Ref 是解析后的图片引用
type Ref struct {
	Kind  Kind
	Value string
}

// Parse 判断原始字符串属于哪种引用。
// 站内路径（以 / 开头）与 http(s) URL 都视为 RemoteURL。
func Parse(raw string) Ref {
	value := strings.TrimSpace(raw)
	switch {
	case value == "":
		return Ref{Kind: KindEmpty}
	case strings.HasPrefix(value, "data:image/"):
		return Ref{Kind: KindInlineData, Value: value}
	case strings.HasPrefix(value, "http://"), strings.HasPrefix(value, "https://"):
		return Ref{Kind: KindRemoteURL, Value: value}
	case strings.HasPrefix(value, "//"):
		return Ref{Kind: KindRemoteURL, Value: "https:" + value}
	case strings.HasPrefix(value, "/"):
		return Ref{Kind: KindRemoteURL, Value: value}
	}

	if len(value) == 36 {
		if id, err := uuid.Parse(value); err == nil {
			return Ref{Kind: KindAssetReference, Value: id.String()}
		}
	}
	return Ref{Kind: KindUnknown, Value: value}
}

// LookupFunc 批量把图片库 ID 映射为地址，未找到的 ID 不出现在结果中
type LookupFunc func(ids []string) (map[string]string, error)

// Resolver 把一批引用解析为可直接展示的 URL
type Resolver struct {
	lookup LookupFunc
}

// NewResolver 构造 Resolver，lookup 为 nil 时所有 UUID 都回退到占位图
func NewResolver(lookup LookupFunc) *Resolver {
	return &Resolver{lookup: lookup}
}

// DisplayURLs 按输入顺序返回展示地址，UUID 只查询一次。
// 查询失败时返回占位图与错误，调用方可以只记录日志。
func (r *Resolver) DisplayURLs(raws []string, placeholder string) ([]string, error) {
	refs := make([]Ref, len(raws))
	var ids []string
	seen := map[string]struct{}{}
	for i, raw := range raws {
		refs[i] = Parse(raw)
		if refs[i].Kind != KindAssetReference {
			continue
		}
		if _, ok := seen[refs[i].Value]; !ok {
			seen[refs[i].Value] = struct{}{}
			ids = append(ids, refs[i].Value)
		}
	}

	var (
		resolved map[string]string
		err      error
	)
	if len(ids) > 0 && r != nil && r.lookup != nil {
		resolved, err = r.lookup(ids)
	}

	out := make([]string, len(refs))
	for i, ref := range refs {
		switch ref.Kind {
		case KindRemoteURL, KindInlineData:
			out[i] = ref.Value
		case KindAssetReference:
			if url := strings.TrimSpace(resolved[ref.Value]); url != "" {
				out[i] = url
			} else {
				out[i] = placeholder
			}
		default:
			out[i] = placeholder
		}
	}
	return out, err
}

// DisplayURL 解析单个引用
func (r *Resolver) DisplayURL(raw, placeholder string) (string, error) {
	urls, err := r.DisplayURLs([]string{raw}, placeholder)
	return urls[0], err
}
