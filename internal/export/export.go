// Package export renders a final design document as JSON, Markdown, HTML or a game generator prompt.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"gdd-orchestrator/internal/domain"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatPrompt   Format = "prompt"
)

var Formats = []Format{FormatJSON, FormatMarkdown, FormatHTML, FormatPrompt}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "prompt", "txt":
		return FormatPrompt, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f Format) Filename() string {
	if f == FormatPrompt {
		return "prompt.txt"
	}
	return "gdd." + string(f)
}

func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

func Render(f Format, d domain.Document) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.MarshalIndent(d, "", "  ")
	case FormatMarkdown:
		return []byte(Markdown(d)), nil
	case FormatHTML:
		return HTML(d)
	case FormatPrompt:
		return []byte(GeneratorPrompt(d)), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", f)
	}
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

var page = template.Must(template.New("gdd").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 860px; margin: 2rem auto; padding: 0 1rem; line-height: 1.55; color: #1f2933; }
h1 { border-bottom: 2px solid #e4e7eb; padding-bottom: .3rem; }
pre { background: #f5f7fa; padding: .75rem; overflow-x: auto; }
blockquote { color: #52606d; border-left: 4px solid #cbd2d9; margin-left: 0; padding-left: 1rem; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

func HTML(d domain.Document) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(d)), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	var out bytes.Buffer
	err := page.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{Title: d.Meta.Title, Body: template.HTML(body.String())})
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return out.Bytes(), nil
}
