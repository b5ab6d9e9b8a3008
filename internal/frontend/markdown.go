package frontend

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// raw HTML in model output is dropped; goldmark only passes it through with html.WithUnsafe
var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

func renderMarkdown(source string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
