package service

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	contentPolicy = bluemonday.UGCPolicy()
)

// RenderContent 将文章 Markdown 正文渲染为经过清洗的 HTML。
func RenderContent(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(markdown), &buf); err != nil {
		return "", errors.Wrap(err, "render markdown")
	}
	return contentPolicy.Sanitize(buf.String()), nil
}
