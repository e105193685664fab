// Package web embeds the dashboard's page templates and static assets.
//
// Every page template defines a "content" block and is rendered inside
// layout.html. The chat bubble fragment is shared with the render package so
// server-rendered and fetched bubbles use the same markup.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/ashureev/tradedesk/internal/render"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed all:static
var staticFS embed.FS

// Page names.
const (
	PageIndex   = "index.html"
	PageChat    = "chat.html"
	PageActions = "actions.html"
	PageTrade   = "trade.html"
	PageTrader  = "trader.html"
	PageMarket  = "market.html"
	PageError   = "error.html"
)

var pages = []string{PageIndex, PageChat, PageActions, PageTrade, PageTrader, PageMarket, PageError}

// Page is the data passed to every page template.
type Page struct {
	Title string
	// Nav marks the active navigation entry.
	Nav string
	// APIAvailable is nil until the first availability check completes.
	APIAvailable *bool
	Data         any
}

// StatusClass is the CSS class of the API status badge.
func (p Page) StatusClass() string {
	switch {
	case p.APIAvailable == nil:
		return "unknown"
	case *p.APIAvailable:
		return "online"
	default:
		return "offline"
	}
}

// StatusText is the label of the API status badge.
func (p Page) StatusText() string {
	switch p.StatusClass() {
	case "online":
		return "API online"
	case "offline":
		return "API offline"
	default:
		return "Checking API…"
	}
}

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"percent": func(v float64) string {
		return fmt.Sprintf("%.2f%%", v)
	},
	"deref": func(v *float64) float64 {
		if v == nil {
			return 0
		}
		return *v
	},
	"datetime": func(s string) string {
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format("2006-01-02 15:04")
			}
		}
		return s
	},
}

// timestampLayouts are the timestamp shapes the backend emits.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Templates renders pages.
type Templates struct {
	pages map[string]*template.Template
}

// LoadTemplates parses every page together with the layout.
func LoadTemplates() (*Templates, error) {
	t := &Templates{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if _, err := tmpl.Parse(render.BubbleTemplate); err != nil {
			return nil, fmt.Errorf("parse bubbles for %s: %w", name, err)
		}
		t.pages[name] = tmpl
	}
	return t, nil
}

// Render writes page name with status. The page is rendered to a buffer first
// so a template error still yields a clean 500.
func (t *Templates) Render(w http.ResponseWriter, status int, name string, data Page) {
	tmpl, ok := t.pages[name]
	if !ok {
		slog.Error("unknown page template", "page", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("failed to render page", "page", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("failed to write page", "page", name, "error", err)
	}
}

// StaticHandler serves the embedded assets under /static/.
func StaticHandler() http.Handler {
	subFS, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}

	fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(subFS)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/static/")
		f, err := subFS.Open(name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		stat, statErr := f.Stat()
		if closeErr := f.Close(); closeErr != nil {
			slog.Debug("web: failed to close embedded file", "path", name, "error", closeErr)
		}
		// No directory listings.
		if statErr != nil || stat.IsDir() {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}
