package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path"
	"strings"
	"time"
)

const maxHostedResponse = 1 << 20

// HostedStrategy 把图片以 multipart 表单提交给无需密钥的公共图床
type HostedStrategy struct {
	name     string
	endpoint string
	field    string
	client   *http.Client
	extract  func(body []byte) (string, error)
}

// NewFileIOStrategy 提交到 file.io，字段 file，响应 {success, link}
func NewFileIOStrategy(endpoint string, client *http.Client) *HostedStrategy {
	return &HostedStrategy{
		name:     "file.io",
		endpoint: endpoint,
		field:    "file",
		client:   defaultClient(client),
		extract: func(body []byte) (string, error) {
			var payload struct {
				Success bool   `json:"success"`
				Link    string `json:"link"`
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				return "", fmt.Errorf("decode response: %w", err)
			}
			if !payload.Success || payload.Link == "" {
				return "", errors.New("image url not found in response")
			}
			return payload.Link, nil
		},
	}
}

// NewImgBBStrategy 提交到 imgbb，字段 image，响应 {data: {url}}
func NewImgBBStrategy(endpoint string, client *http.Client) *HostedStrategy {
	return &HostedStrategy{
		name:     "imgbb",
		endpoint: endpoint,
		field:    "image",
		client:   defaultClient(client),
		extract: func(body []byte) (string, error) {
			var payload struct {
				Data struct {
					URL string `json:"url"`
				} `json:"data"`
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				return "", fmt.Errorf("decode response: %w", err)
			}
			if payload.Data.URL == "" {
				return "", errors.New("image url not found in response")
			}
			return payload.Data.URL, nil
		},
	}
}

func defaultClient(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: 20 * time.Second}
}

func (s *HostedStrategy) Name() string { return s.name }

func (s *HostedStrategy) Upload(ctx context.Context, img *Prepared) (string, error) {
	if s.endpoint == "" {
		return "", errors.New("endpoint not configured")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", contentDisposition(s.field, uploadFilename(img), img.Ext()))
	header.Set("Content-Type", img.ContentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxHostedResponse))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return s.extract(payload)
}

func uploadFilename(img *Prepared) string {
	name := strings.Map(func(r rune) rune {
		if r < ' ' || r == 0x7f {
			return -1
		}
		return r
	}, img.Filename)
	name = strings.TrimSpace(path.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "image." + img.Ext()
	}
	return name
}

// contentDisposition 由 mime 负责引号与非 ASCII 文件名的转义
func contentDisposition(field, filename, ext string) string {
	if v := mime.FormatMediaType("form-data", map[string]string{"name": field, "filename": filename}); v != "" {
		return v
	}
	return mime.FormatMediaType("form-data", map[string]string{"name": field, "filename": "image." + ext})
}
