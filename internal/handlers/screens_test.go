package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/medcontrol/backend/internal/models"
	"github.com/medcontrol/backend/internal/profile"
)

type nopIdentity struct{}

func (nopIdentity) UpdateDisplayName(context.Context, string, string) error { return nil }
func (nopIdentity) DeleteUser(context.Context, string) error                { return nil }
func (nopIdentity) SendPasswordResetEmail(context.Context, string) error    { return nil }

type nopDocs struct{}

func (nopDocs) UpdateDocument(context.Context, string, string, map[string]interface{}) error {
	return nil
}

func newRegistry(idle time.Duration) *ScreenRegistry {
	return NewScreenRegistry(func(nav profile.Navigator) *profile.Screen {
		return profile.NewScreen(nopIdentity{}, nopDocs{}, nav)
	}, idle)
}

func TestRegistryReusesScreenPerKey(t *testing.T) {
	reg := newRegistry(time.Minute)
	r := httptest.NewRequest(http.MethodGet, "/profile", nil)
	user := &models.SessionUser{UID: "u1", DisplayName: "Ana", Email: "ana@x.com"}

	a := reg.Attach(r, "k1", user)
	b := reg.Attach(r, "k1", user)
	if a != b {
		t.Fatalf("expected the same screen for one key")
	}
	if reg.Attach(r, "k2", user) == a {
		t.Fatalf("keys must not share screens")
	}
	if v := a.Screen.View(); v.DisplayName != "Ana" || v.State != profile.StateViewing {
		t.Fatalf("view = %+v", v)
	}
}

func TestRegistrySignOutNavigatesToLogin(t *testing.T) {
	reg := newRegistry(time.Minute)
	r := httptest.NewRequest(http.MethodGet, "/profile", nil)
	sess := reg.Attach(r, "k1", &models.SessionUser{UID: "u1", Email: "a@x.com"})

	reg.auth.Publish("k1", nil)
	target, ok := sess.Redirect()
	if !ok || target != profile.LoginPath {
		t.Fatalf("redirect = %q, %v", target, ok)
	}
	if _, ok := sess.Redirect(); ok {
		t.Fatalf("redirect must be consumed once")
	}
}

func TestRegistrySweepEvictsIdleScreens(t *testing.T) {
	reg := newRegistry(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }
	r := httptest.NewRequest(http.MethodGet, "/profile", nil)
	reg.Attach(r, "old", &models.SessionUser{UID: "u1"})

	now = now.Add(45 * time.Second)
	reg.Attach(r, "fresh", &models.SessionUser{UID: "u2"})

	now = now.Add(30 * time.Second)
	if n := reg.Sweep(); n != 1 {
		t.Fatalf("evicted = %d, want 1", n)
	}
	if _, ok := reg.Lookup("old"); ok {
		t.Fatalf("idle screen survived")
	}
	if _, ok := reg.Lookup("fresh"); !ok {
		t.Fatalf("fresh screen evicted")
	}
	if reg.auth.Subscribers("old") != 0 {
		t.Fatalf("evicted screen still subscribed")
	}
}

func TestRegistryKeyCookie(t *testing.T) {
	reg := newRegistry(0)
	rec := httptest.NewRecorder()
	key := reg.Key(rec, httptest.NewRequest(http.MethodGet, "/profile", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != ScreenCookieName || cookies[0].Value != key {
		t.Fatalf("cookies = %+v", cookies)
	}

	r := httptest.NewRequest(http.MethodGet, "/profile", nil)
	r.AddCookie(&http.Cookie{Name: ScreenCookieName, Value: key})
	rec = httptest.NewRecorder()
	if got := reg.Key(rec, r); got != key {
		t.Fatalf("key = %q, want %q", got, key)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("existing key should not be reissued")
	}

	r = httptest.NewRequest(http.MethodGet, "/profile", nil)
	r.AddCookie(&http.Cookie{Name: ScreenCookieName, Value: "not-a-uuid"})
	if got := reg.Key(httptest.NewRecorder(), r); got == "not-a-uuid" {
		t.Fatalf("malformed key accepted")
	}
}

func TestBackTarget(t *testing.T) {
	cases := map[string]string{
		"":                               "/",
		"http://example.com/home":        "/home",
		"http://example.com/list?page=3": "/list?page=3",
		"http://example.com/profile":     "/",
		"http://evil.test/phish":         "/",
	}
	for ref, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "http://example.com/profile", nil)
		if ref != "" {
			r.Header.Set("Referer", ref)
		}
		if got := backTarget(r); got != want {
			t.Fatalf("backTarget(%q) = %q, want %q", ref, got, want)
		}
	}
}
