package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"golang.org/x/text/language"

	"github.com/medcontrol/backend/internal/i18n"
	"github.com/medcontrol/backend/internal/view"
)

const defaultTimeout = 10 * time.Second

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func contextWithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultTimeout
	}
	return context.WithTimeout(parent, d)
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	if err := view.Render(w, r, name, data); err != nil {
		log.Printf("[Render] page=%s error=%v", name, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// translate renders key in the request's language.
func translate(r *http.Request, key string) string {
	tag, _ := i18n.ResolveTag(r)
	return i18n.T(tag, key)
}

func requestTag(r *http.Request) language.Tag {
	tag, _ := i18n.ResolveTag(r)
	return tag
}
