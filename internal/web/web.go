// Package web serves the browser-facing pages. The welcome and help
// pages are markdown embedded in the binary and rendered at startup;
// an externally built asset bundle can be served instead by pointing
// web.dist_dir at it.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

//go:embed assets
var assets embed.FS

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 46rem; margin: 2rem auto; padding: 0 1rem; color: #1f2328; }
a { color: #0969da; }
nav a { margin-right: 1rem; }
table { border-collapse: collapse; }
th, td { border: 1px solid #d0d7de; padding: 0.3rem 0.6rem; text-align: left; }
</style>
</head>
<body>
<nav>
<a href="/">Home</a>
<a href="/auth/">Account</a>
<a href="/projects/">Projects</a>
<a href="/tasks/">Tasks</a>
<a href="/chat/">Chat</a>
</nav>
{{.Body}}
</body>
</html>
`

// Pages holds the pre-rendered HTML pages.
type Pages struct {
	welcome []byte
	help    []byte
}

// NewPages renders the embedded markdown once at startup.
func NewPages() (*Pages, error) {
	welcome, err := renderPage("TaskHive", "assets/welcome.md")
	if err != nil {
		return nil, err
	}
	help, err := renderPage("TaskHive help", "assets/help.md")
	if err != nil {
		return nil, err
	}
	return &Pages{welcome: welcome, help: help}, nil
}

func renderPage(title, path string) ([]byte, error) {
	source, err := assets.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	var body bytes.Buffer
	if err := md.Convert(source, &body); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", path, err)
	}

	tmpl := template.Must(template.New("page").Parse(pageTemplate))
	var out bytes.Buffer
	err = tmpl.Execute(&out, struct {
		Title string
		Body  template.HTML
	}{Title: title, Body: template.HTML(body.String())})
	if err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}
	return out.Bytes(), nil
}

// Welcome serves the landing page.
func (p *Pages) Welcome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(p.welcome)
}

// Help serves the API tour.
func (p *Pages) Help(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(p.help)
}

// Dist serves an externally built asset bundle from dir.
func Dist(dir string) http.Handler {
	return http.FileServer(http.Dir(dir))
}
