package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecaptchaVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("secret") != "s3cret" {
			t.Fatalf("secret = %q", r.PostForm.Get("secret"))
		}
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("response") == "good" {
			w.Write([]byte(`{"success":true}`))
			return
		}
		w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer srv.Close()

	v := NewRecaptchaVerifier("s3cret", "site")
	v.Endpoint = srv.URL
	v.HTTPClient = srv.Client()

	if err := v.Verify(context.Background(), "good", "127.0.0.1"); err != nil {
		t.Fatalf("good token: %v", err)
	}
	if err := v.Verify(context.Background(), "bad", ""); !errors.Is(err, ErrChallengeFailed) {
		t.Fatalf("bad token err = %v", err)
	}
	if err := v.Verify(context.Background(), "  ", ""); !errors.Is(err, ErrChallengeFailed) {
		t.Fatalf("missing token err = %v", err)
	}
	if v.SiteKey() != "site" {
		t.Fatalf("site key = %q", v.SiteKey())
	}
}

func TestRecaptchaDisabledWithoutSecret(t *testing.T) {
	v := NewRecaptchaVerifier("", "site")
	if v != nil {
		t.Fatalf("expected nil verifier")
	}
	if err := v.Verify(context.Background(), "", ""); err != nil {
		t.Fatalf("nil verifier should accept: %v", err)
	}
	if v.SiteKey() != "" {
		t.Fatalf("nil verifier site key = %q", v.SiteKey())
	}
}
