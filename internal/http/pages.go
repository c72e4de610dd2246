package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"dashboard/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFiles embed.FS

type pages struct {
	byName map[string]*template.Template
}

var pageNames = []string{"landing.html", "dashboard.html", "unauthorized.html", "error.html"}

func loadPages() (*pages, error) {
	funcs := template.FuncMap{
		"rupees": service.FormatRupees,
		"amount": func(d decimal.Decimal) string { return d.StringFixed(2) },
		// Chart images are base64 PNGs produced by the chart package.
		"pngSrc": func(encoded string) template.URL {
			return template.URL("data:image/png;base64," + encoded)
		},
	}

	loaded := &pages{byName: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFiles, "templates/base.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		loaded.byName[name] = tmpl
	}
	return loaded, nil
}

type renderOption func(w http.ResponseWriter)

// withErrorKind exposes the failure kind to clients and tests.
func withErrorKind(kind string) renderOption {
	return func(w http.ResponseWriter) {
		w.Header().Set("X-Error-Kind", kind)
	}
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data any, opts ...renderOption) {
	tmpl, ok := h.pages.byName[name]
	if !ok {
		h.logger.Error("unknown template", zap.String("template", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("render template failed", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	for _, opt := range opts {
		opt(w)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
