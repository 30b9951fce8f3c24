// Package templates holds the embedded server-rendered pages
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"time"
)

//go:embed *.html
var files embed.FS

// Page names
const (
	PageLogin     = "login"
	PageDashboard = "dashboard"
	PageProfile   = "profile"
	PageTrack     = "track"
)

var funcs = template.FuncMap{
	"formatTime": formatTime,
	"pathEscape": url.PathEscape,
	"mapURL":     mapURL,
}

// Renderer renders pages composed of base.html and one page file
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page once
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, name := range []string{PageLogin, PageDashboard, PageProfile, PageTrack} {
		t, err := template.New(name).Funcs(funcs).ParseFS(files, "base.html", name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes a page into a byte slice so a failure never produces a half-written response
func (r *Renderer) Render(page string, data any) ([]byte, error) {
	t, ok := r.pages[page]
	if !ok {
		return nil, fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", page, err)
	}
	return buf.Bytes(), nil
}

func formatTime(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format("2006-01-02 15:04 UTC")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.UTC().Format("2006-01-02 15:04 UTC")
	default:
		return ""
	}
}

// mapURL links a coordinate to OpenStreetMap
func mapURL(lat, lng float64) string {
	la := strconv.FormatFloat(lat, 'f', 6, 64)
	lo := strconv.FormatFloat(lng, 'f', 6, 64)
	return "https://www.openstreetmap.org/?mlat=" + la + "&mlon=" + lo + "#map=17/" + la + "/" + lo
}
