package service

import (
	"bytes"
	stdhtml "html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	stripPolicy = bluemonday.StrictPolicy()
)

const excerptRuneLimit = 200

// StripMarkup 将 markdown 渲染为 HTML 后剥离全部标签，返回折叠空白的纯文本。
func StripMarkup(content string) string {
	var buf bytes.Buffer
	source := content
	if err := markdownEngine.Convert([]byte(content), &buf); err == nil {
		source = buf.String()
	}

	stripped := stdhtml.UnescapeString(stripPolicy.Sanitize(source))
	return strings.Join(strings.Fields(stripped), " ")
}

// ExcerptFrom 从正文派生摘要：剥离标记后取前 200 个字符并追加省略号。
func ExcerptFrom(content string) string {
	stripped := StripMarkup(content)
	runes := []rune(stripped)
	if len(runes) > excerptRuneLimit {
		stripped = string(runes[:excerptRuneLimit])
	}
	return stripped + "..."
}

// EstimateReadingMinutes 估算阅读时长：剥离标记后按每分钟 100 词向上取整，最少 1 分钟。
func EstimateReadingMinutes(content string) int {
	words := len(strings.Fields(StripMarkup(content)))
	minutes := (words + 99) / 100
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
