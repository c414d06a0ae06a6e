package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/medcontrol/backend/internal/models"
	"github.com/medcontrol/backend/internal/services"
)

type stubUsers map[string]*models.SessionUser

func (s stubUsers) LookupUser(_ context.Context, uid string) (*models.SessionUser, error) {
	if u, ok := s[uid]; ok {
		c := *u
		return &c, nil
	}
	return nil, services.ErrUserNotFound
}

type stubVerifier struct {
	cookies map[string]string
	tokens  map[string]string
}

func (v stubVerifier) VerifySessionCookie(_ context.Context, cookie string) (string, error) {
	if uid, ok := v.cookies[cookie]; ok {
		return uid, nil
	}
	return "", fmt.Errorf("%w: bad cookie", services.ErrInvalidSession)
}

func (v stubVerifier) VerifyIDToken(_ context.Context, token string) (string, error) {
	if uid, ok := v.tokens[token]; ok {
		return uid, nil
	}
	return "", fmt.Errorf("%w: bad token", services.ErrInvalidSession)
}

var users = stubUsers{"u1": {UID: "u1", DisplayName: "Alice", Email: "alice@x.com"}}

func captureUser(t *testing.T, mw func(http.Handler) http.Handler, r *http.Request) *models.SessionUser {
	t.Helper()
	var got *models.SessionUser
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetSessionUser(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), r)
	return got
}

func TestSessionTokenRoundTrip(t *testing.T) {
	tok, err := NewSessionToken("secret", "u1", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	uid, err := ParseSessionToken("secret", tok)
	if err != nil || uid != "u1" {
		t.Fatalf("parse = %q, %v", uid, err)
	}
	if _, err := ParseSessionToken("other", tok); err == nil {
		t.Fatalf("expected signature failure with wrong secret")
	}
	expired, _ := NewSessionToken("secret", "u1", -time.Minute)
	if _, err := ParseSessionToken("secret", expired); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestLocalSessionResolverCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := IssueLocalSession(rec, "secret", "u1", time.Hour); err != nil {
		t.Fatalf("issue: %v", err)
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == LocalSessionCookie {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly {
		t.Fatalf("session cookie missing or not http-only: %+v", cookie)
	}

	mw := Session(&LocalSessionResolver{Secret: "secret", Users: users})
	r := httptest.NewRequest(http.MethodGet, "/profile", nil)
	r.AddCookie(cookie)
	if got := captureUser(t, mw, r); got == nil || got.UID != "u1" {
		t.Fatalf("user = %+v", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/profile", nil)
	if got := captureUser(t, mw, r); got != nil {
		t.Fatalf("expected no user without cookie, got %+v", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/profile", nil)
	r.AddCookie(&http.Cookie{Name: LocalSessionCookie, Value: "garbage"})
	if got := captureUser(t, mw, r); got != nil {
		t.Fatalf("expected no user for invalid token, got %+v", got)
	}
}

func TestLocalSessionResolverBearer(t *testing.T) {
	tok, _ := NewSessionToken("secret", "u1", time.Hour)
	r := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	mw := Session(&LocalSessionResolver{Secret: "secret", Users: users})
	if got := captureUser(t, mw, r); got == nil || got.UID != "u1" {
		t.Fatalf("user = %+v", got)
	}
}

func TestFirebaseSessionResolver(t *testing.T) {
	resolver := &FirebaseSessionResolver{
		Verifier: stubVerifier{
			cookies: map[string]string{"good-cookie": "u1"},
			tokens:  map[string]string{"good-token": "u1"},
		},
		Users:   users,
		Timeout: time.Second,
	}
	mw := Session(resolver)

	r := httptest.NewRequest(http.MethodGet, "/profile", nil)
	r.AddCookie(&http.Cookie{Name: FirebaseSessionCookie, Value: "good-cookie"})
	if got := captureUser(t, mw, r); got == nil || got.Email != "alice@x.com" {
		t.Fatalf("cookie user = %+v", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	r.Header.Set("Authorization", "Bearer good-token")
	if got := captureUser(t, mw, r); got == nil || got.UID != "u1" {
		t.Fatalf("bearer user = %+v", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	r.Header.Set("Authorization", "Bearer bad-token")
	if got := captureUser(t, mw, r); got != nil {
		t.Fatalf("expected no user for bad token")
	}

	r = httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	r.Header.Set("Authorization", "Basic abc")
	if got := captureUser(t, mw, r); got != nil {
		t.Fatalf("expected no user for non-bearer header")
	}
}

type resolverFunc func(r *http.Request) (*models.SessionUser, error)

func (f resolverFunc) ResolveSession(r *http.Request) (*models.SessionUser, error) { return f(r) }

func TestSessionUnknownUserPassesThroughWithoutUser(t *testing.T) {
	tok, _ := NewSessionToken("secret", "ghost", time.Hour)
	r := httptest.NewRequest(http.MethodGet, "/profile", nil)
	r.AddCookie(&http.Cookie{Name: LocalSessionCookie, Value: tok})
	mw := Session(&LocalSessionResolver{Secret: "secret", Users: users})
	if got := captureUser(t, mw, r); got != nil {
		t.Fatalf("expected no user for deleted account, got %+v", got)
	}
}

func TestSessionBackendFailureKeepsCookies(t *testing.T) {
	mw := Session(resolverFunc(func(*http.Request) (*models.SessionUser, error) {
		return nil, errors.New("identitytoolkit: connection reset")
	}))
	called := false
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	for _, path := range []string{"/profile", "/api/profile"} {
		called = false
		r := httptest.NewRequest(http.MethodGet, path, nil)
		r.AddCookie(&http.Cookie{Name: FirebaseSessionCookie, Value: "good-cookie"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if called {
			t.Fatalf("%s: handler ran without a resolved session", path)
		}
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: status = %d, want 503", path, rec.Code)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Fatalf("%s: cookies touched: %v", path, rec.Result().Cookies())
		}
	}

	r := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("api content type = %q", ct)
	}
}

func TestLocalSessionResolverWrapsInvalidToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/profile", nil)
	r.AddCookie(&http.Cookie{Name: LocalSessionCookie, Value: "garbage"})
	_, err := (&LocalSessionResolver{Secret: "secret", Users: users}).ResolveSession(r)
	if !errors.Is(err, services.ErrInvalidSession) {
		t.Fatalf("err = %v, want ErrInvalidSession", err)
	}
}

func TestRequireUser(t *testing.T) {
	h := RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profile", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	r = r.WithContext(WithSessionUser(r.Context(), &models.SessionUser{UID: "u1"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if GetUserID(r.Context()) != "u1" {
		t.Fatalf("GetUserID = %q", GetUserID(r.Context()))
	}
}

func TestClearSessions(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearSessions(rec)
	cleared := map[string]bool{}
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			cleared[c.Name] = true
		}
	}
	if !cleared[LocalSessionCookie] || !cleared[FirebaseSessionCookie] {
		t.Fatalf("cleared = %v", cleared)
	}
}
