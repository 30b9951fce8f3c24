package services

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// MarkdownRenderer turns a link's custom content into HTML.
// goldmark omits raw HTML unless WithUnsafe is set, so author supplied tags never reach the page.
type MarkdownRenderer struct {
	md goldmark.Markdown
}

func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{
		md: goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough)),
	}
}

// Render returns the empty string for empty input
func (r *MarkdownRenderer) Render(source string) (template.HTML, error) {
	if source == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
