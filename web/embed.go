package web

import "embed"

// Templates 首页模板，编译进二进制
//
//go:embed template/*.html
var Templates embed.FS
