package upload

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

var (
	// ErrNotImage 上传内容不是图片
	ErrNotImage = errors.New("file is not an image")
	// ErrUnsupportedImage 图片格式无法处理
	ErrUnsupportedImage = errors.New("unsupported image format")
)

const (
	// DefaultMaxDimension 缩放后的最大边长
	DefaultMaxDimension = 500
	// MaxPixels 允许解码的最大像素数（宽×高）
	MaxPixels   = 40_000_000
	jpegQuality = 90
)

type imageCodec struct {
	contentType string
	config      func(io.Reader) (image.Config, error)
	decode      func(io.Reader) (image.Image, error)
}

// codecFor 返回 MIME 对应的解码器；webp 重新编码为 png
func codecFor(mtype *mimetype.MIME) (imageCodec, bool) {
	switch {
	case mtype.Is("image/jpeg"):
		return imageCodec{"image/jpeg", jpeg.DecodeConfig, jpeg.Decode}, true
	case mtype.Is("image/png"):
		return imageCodec{"image/png", png.DecodeConfig, png.Decode}, true
	case mtype.Is("image/gif"):
		return imageCodec{"image/gif", gif.DecodeConfig, gif.Decode}, true
	case mtype.Is("image/webp"):
		return imageCodec{"image/png", webp.DecodeConfig, webp.Decode}, true
	}
	return imageCodec{}, false
}

// PrepareOptions 控制缩放方式
type PrepareOptions struct {
	MaxDimension int
	// Square 为 true 时把图片居中放到白色正方形画布上
	Square bool
}

// Prepared 是缩放并重新编码后的图片
type Prepared struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
	Filename    string
}

// Ext 返回与 ContentType 对应的扩展名（不含点）
func (p *Prepared) Ext() string {
	switch p.ContentType {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	default:
		return "jpg"
	}
}

// Prepare 检测 MIME、解码、缩放并按原格式重新编码。
// webp 没有编码器，输出为 png。
func Prepare(r io.Reader, filename string, opts PrepareOptions) (*Prepared, error) {
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = DefaultMaxDimension
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	mtype := mimetype.Detect(raw)
	if !isImage(mtype) {
		return nil, fmt.Errorf("%w: detected %s", ErrNotImage, mtype.String())
	}

	codec, ok := codecFor(mtype)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, mtype.String())
	}
	contentType := codec.contentType

	// 先只读头部尺寸，超大像素的图片不解码
	cfg, err := codec.config(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnsupportedImage, cfg.Width, cfg.Height, MaxPixels)
	}

	src, err := codec.decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	width, height := FitWithin(bounds.Dx(), bounds.Dy(), opts.MaxDimension)

	var dst draw.Image
	if opts.Square {
		size := width
		if height > size {
			size = height
		}
		canvas := image.NewRGBA(image.Rect(0, 0, size, size))
		draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
		offsetX := (size - width) / 2
		offsetY := (size - height) / 2
		target := image.Rect(offsetX, offsetY, offsetX+width, offsetY+height)
		draw.CatmullRom.Scale(canvas, target, src, bounds, draw.Over, nil)
		dst = canvas
		width, height = size, size
	} else {
		canvas := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(canvas, canvas.Bounds(), src, bounds, draw.Src, nil)
		dst = canvas
	}

	var buf bytes.Buffer
	switch contentType {
	case "image/jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	case "image/gif":
		err = gif.Encode(&buf, dst, nil)
	default:
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	return &Prepared{
		Data:        buf.Bytes(),
		ContentType: contentType,
		Width:       width,
		Height:      height,
		Filename:    filename,
	}, nil
}

// FitWithin 等比缩小到 limit×limit 以内，只缩小不放大
func FitWithin(width, height, limit int) (int, int) {
	if width > height {
		if width > limit {
			height = int(math.Round(float64(height) * float64(limit) / float64(width)))
			width = limit
		}
	} else if height > limit {
		width = int(math.Round(float64(width) * float64(limit) / float64(height)))
		height = limit
	}
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return width, height
}

func isImage(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}
