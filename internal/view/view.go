// Package view renders the server-side HTML pages.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"golang.org/x/text/language"

	"github.com/medcontrol/backend/internal/i18n"
)

//go:embed templates/*.html
var templatesFS embed.FS

// pages is parsed once; funcs that depend on the request are rebound per render.
var pages = template.Must(template.New("").Funcs(Funcs(i18n.Default())).ParseFS(templatesFS, "templates/*.html"))

// Funcs returns the func map shared by every page.
func Funcs(tag language.Tag) template.FuncMap {
	return template.FuncMap{
		"t":    func(key string) string { return i18n.T(tag, key) },
		"lang": func() string { return tag.String() },
		"year": func() int { return time.Now().Year() },
	}
}

// Render executes the named page in the request's language. The page is buffered
// so a template error never produces a half-written response.
func Render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) error {
	tag, persist := i18n.ResolveTag(r)
	if persist {
		i18n.SetLanguageCookie(w, tag)
	}
	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["Lang"]; !ok {
		data["Lang"] = tag.String()
	}

	t, err := pages.Clone()
	if err != nil {
		return fmt.Errorf("clone templates: %w", err)
	}
	t = t.Funcs(Funcs(tag))

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status, ok := data["Status"].(int); ok && status > 0 {
		w.WriteHeader(status)
	}
	_, err = buf.WriteTo(w)
	return err
}
