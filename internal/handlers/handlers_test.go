package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/medcontrol/backend/internal/middleware"
	"github.com/medcontrol/backend/internal/models"
	"github.com/medcontrol/backend/internal/profile"
	"github.com/medcontrol/backend/internal/services"
)

const testSecret = "test-secret"

type recordingMailer struct {
	mu    sync.Mutex
	to    []string
	links []string
}

func (m *recordingMailer) SendPasswordReset(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, to)
	m.links = append(m.links, link)
	return nil
}

func (m *recordingMailer) last(t *testing.T) (string, string) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.links) == 0 {
		t.Fatalf("no reset email was sent")
	}
	return m.to[len(m.to)-1], m.links[len(m.links)-1]
}

type testEnv struct {
	t        *testing.T
	srv      *httptest.Server
	client   *http.Client
	identity *services.MemoryIdentityService
	docs     *services.JSONProfileService
	mailer   *recordingMailer
	screens  *ScreenRegistry
	sessions *SessionHandler
	uid      string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mailer := &recordingMailer{}
	identity := services.NewMemoryIdentityService(mailer, "http://profile.test")
	docs, err := services.NewJSONProfileService(t.TempDir())
	if err != nil {
		t.Fatalf("json store: %v", err)
	}
	user, err := identity.Register(&models.RegisterRequest{Email: "alice@x.com", Password: "secret1", DisplayName: "Alice"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := docs.SetDocument(context.Background(), models.UsersCollection, user.ID, map[string]interface{}{
		models.FieldDisplayName: "Alice",
	}); err != nil {
		t.Fatalf("seed doc: %v", err)
	}

	screens := NewScreenRegistry(func(nav profile.Navigator) *profile.Screen {
		return profile.NewScreen(identity, docs, nav)
	}, time.Minute)
	sessions := NewLocalSessionHandler(identity, screens, SessionConfig{
		JWTSecret:     testSecret,
		JWTExpiration: time.Hour,
		Timeout:       time.Second,
	})
	profiles := NewProfileHandler(screens, time.Second)
	api := NewProfileAPIHandler(identity, docs, time.Second)

	r := chi.NewRouter()
	r.Use(middleware.Session(&middleware.LocalSessionResolver{Secret: testSecret, Users: identity}))
	r.Get("/login", sessions.ShowLogin)
	r.Post("/login", sessions.Login)
	r.Post("/session", sessions.CreateSession)
	r.Post("/logout", sessions.Logout)
	r.Get("/reset", sessions.ShowReset)
	r.Post("/reset", sessions.ResetPassword)
	r.Get("/profile", profiles.Show)
	r.Post("/profile/{action}", profiles.Action)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Get("/profile", api.GetProfile)
		r.Put("/profile", api.UpdateProfile)
		r.Delete("/profile", api.DeleteProfile)
		r.Post("/profile/password-reset", api.SendPasswordReset)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{
		t: t, srv: srv, client: client,
		identity: identity, docs: docs, mailer: mailer,
		screens: screens, sessions: sessions, uid: user.ID,
	}
}

func (e *testEnv) do(req *http.Request) (*http.Response, string) {
	e.t.Helper()
	resp, err := e.client.Do(req)
	if err != nil {
		e.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (e *testEnv) get(path string) (*http.Response, string) {
	e.t.Helper()
	req, _ := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	return e.do(req)
}

func (e *testEnv) postForm(path string, vals url.Values) (*http.Response, string) {
	e.t.Helper()
	req, _ := http.NewRequest(http.MethodPost, e.srv.URL+path, strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

func (e *testEnv) sendJSON(method, path string, body interface{}) (*http.Response, models.APIResponse) {
	e.t.Helper()
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = strings.NewReader(string(b))
	}
	req, _ := http.NewRequest(method, e.srv.URL+path, rd)
	req.Header.Set("Content-Type", "application/json")
	resp, raw := e.do(req)
	var out models.APIResponse
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		e.t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
	}
	return resp, out
}

func (e *testEnv) login() {
	e.t.Helper()
	e.loginAs("alice@x.com", "secret1")
}

func (e *testEnv) loginAs(email, password string) {
	e.t.Helper()
	resp, _ := e.postForm("/login", url.Values{"email": {email}, "password": {password}})
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/profile" {
		e.t.Fatalf("login %s: status=%d location=%q", email, resp.StatusCode, resp.Header.Get("Location"))
	}
}

func expectRedirect(t *testing.T, resp *http.Response, want string) {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}
	if got := resp.Header.Get("Location"); got != want {
		t.Fatalf("location = %q, want %q", got, want)
	}
}
