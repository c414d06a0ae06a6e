package handlers

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medcontrol/backend/internal/models"
	"github.com/medcontrol/backend/internal/profile"
)

// ScreenCookieName identifies a browser's profile screen across requests.
const ScreenCookieName = "perfil_screen"

// httpNavigator records where the screen wants to go. The handler turns the
// recorded target into a redirect.
type httpNavigator struct {
	mu     sync.Mutex
	back   string
	target string
}

func (n *httpNavigator) Navigate(path string) {
	n.mu.Lock()
	n.target = path
	n.mu.Unlock()
}

func (n *httpNavigator) Back() {
	n.mu.Lock()
	n.target = n.back
	n.mu.Unlock()
}

// Take returns the pending target and clears it.
func (n *httpNavigator) Take() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	target := n.target
	n.target = ""
	return target, target != ""
}

// ScreenSession is one browser's mounted profile screen.
type ScreenSession struct {
	Key    string
	Screen *profile.Screen

	nav      *httpNavigator
	lastSeen time.Time
}

// Redirect reports a navigation requested by the screen.
func (s *ScreenSession) Redirect() (string, bool) {
	return s.nav.Take()
}

// ScreenFactory builds a screen bound to nav.
type ScreenFactory func(nav profile.Navigator) *profile.Screen

// ScreenRegistry keeps one mounted screen per browser and feeds it the browser's
// auth state.
type ScreenRegistry struct {
	auth    *profile.AuthBroadcaster
	factory ScreenFactory
	idle    time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*ScreenSession
}

func NewScreenRegistry(factory ScreenFactory, idle time.Duration) *ScreenRegistry {
	return &ScreenRegistry{
		auth:     profile.NewAuthBroadcaster(),
		factory:  factory,
		idle:     idle,
		now:      time.Now,
		sessions: make(map[string]*ScreenSession),
	}
}

// Key returns the browser's screen key, issuing a new cookie when it has none.
func (reg *ScreenRegistry) Key(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(ScreenCookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	key := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     ScreenCookieName,
		Value:    key,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return key
}

// Attach publishes the request's session user for key and returns the screen,
// mounting a new one when none is live.
func (reg *ScreenRegistry) Attach(r *http.Request, key string, user *models.SessionUser) *ScreenSession {
	reg.auth.Publish(key, user)

	reg.mu.Lock()
	sess, ok := reg.sessions[key]
	if ok {
		sess.lastSeen = reg.now()
		reg.mu.Unlock()
		return sess
	}
	nav := &httpNavigator{back: backTarget(r)}
	sess = &ScreenSession{
		Key:      key,
		Screen:   reg.factory(nav),
		nav:      nav,
		lastSeen: reg.now(),
	}
	reg.sessions[key] = sess
	reg.mu.Unlock()

	sess.Screen.Mount(reg.auth.Source(key))
	return sess
}

// Lookup returns the live screen for key without touching auth state.
func (reg *ScreenRegistry) Lookup(key string) (*ScreenSession, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	sess, ok := reg.sessions[key]
	return sess, ok
}

// Release unmounts the screen for key and forgets its auth state.
func (reg *ScreenRegistry) Release(key string) {
	reg.mu.Lock()
	sess, ok := reg.sessions[key]
	delete(reg.sessions, key)
	reg.mu.Unlock()
	if ok {
		sess.Screen.Unmount()
	}
	reg.auth.Forget(key)
}

// SignOut tells the screen for key that its user signed out, then releases it.
func (reg *ScreenRegistry) SignOut(key string) {
	reg.auth.Publish(key, nil)
	reg.Release(key)
}

// Len reports the number of mounted screens.
func (reg *ScreenRegistry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.sessions)
}

// Sweep releases screens idle for longer than the idle timeout.
func (reg *ScreenRegistry) Sweep() int {
	if reg.idle <= 0 {
		return 0
	}
	cutoff := reg.now().Add(-reg.idle)
	reg.mu.Lock()
	var stale []string
	for key, sess := range reg.sessions {
		if sess.lastSeen.Before(cutoff) {
			stale = append(stale, key)
		}
	}
	reg.mu.Unlock()
	for _, key := range stale {
		reg.Release(key)
	}
	return len(stale)
}

// Run sweeps idle screens until ctx is done.
func (reg *ScreenRegistry) Run(ctx context.Context) {
	if reg.idle <= 0 {
		return
	}
	interval := reg.idle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := reg.Sweep(); n > 0 {
				log.Printf("[Screens] evicted=%d live=%d", n, reg.Len())
			}
		}
	}
}

// backTarget picks the page the visitor came from, when it is on this host and
// is not the profile screen itself.
func backTarget(r *http.Request) string {
	ref := r.Referer()
	if ref == "" {
		return "/"
	}
	u, err := url.Parse(ref)
	if err != nil || u.Host != r.Host || u.Path == "" || strings.HasPrefix(u.Path, "/profile") {
		return "/"
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}
