package content

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Benefit 首页轮播中的卖点
type Benefit struct {
	Icon string `yaml:"icon" json:"icon"`
	Text string `yaml:"text" json:"text"`
}

// Reply 店铺对评价的回复
type Reply struct {
	Date string `yaml:"date" json:"date"`
	Text string `yaml:"text" json:"text"`
}

// Testimonial 顾客评价
type Testimonial struct {
	Name    string `yaml:"name" json:"name"`
	Rating  int    `yaml:"rating" json:"rating"`
	Date    string `yaml:"date" json:"date"`
	New     bool   `yaml:"new" json:"is_new"`
	Comment string `yaml:"comment" json:"comment"`
	Reply   *Reply `yaml:"reply,omitempty" json:"reply,omitempty"`
}

// Content 首页的静态文案
type Content struct {
	Benefits     []Benefit     `yaml:"benefits" json:"benefits"`
	Testimonials []Testimonial `yaml:"testimonials" json:"testimonials"`
}

// Default 返回内置文案
func Default() (*Content, error) {
	return Parse(defaultYAML)
}

// Load 读取 path 指定的 YAML，path 为空时使用内置文案
func Load(path string) (*Content, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content file: %w", err)
	}
	return Parse(raw)
}

// Parse 解析 YAML 并校正评分范围
func Parse(raw []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	for i := range c.Testimonials {
		switch {
		case c.Testimonials[i].Rating < 1:
			c.Testimonials[i].Rating = 1
		case c.Testimonials[i].Rating > 5:
			c.Testimonials[i].Rating = 5
		}
	}
	return &c, nil
}
