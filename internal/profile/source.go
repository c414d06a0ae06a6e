package profile

import (
	"sync"

	"github.com/medcontrol/backend/internal/models"
)

// AuthStateSource delivers auth-state notifications. A nil user means signed out.
// The returned func releases the subscription.
type AuthStateSource interface {
	Subscribe(fn func(*models.SessionUser)) (unsubscribe func())
}

// StaticAuthState is a source that reports a single, fixed auth state on subscribe.
type StaticAuthState struct {
	User *models.SessionUser
}

func (s StaticAuthState) Subscribe(fn func(*models.SessionUser)) func() {
	fn(copyUser(s.User))
	return func() {}
}

// AuthBroadcaster fans auth state out to the screens mounted for a browser session.
type AuthBroadcaster struct {
	mu   sync.Mutex
	seq  int
	subs map[string]map[int]func(*models.SessionUser)
	last map[string]*authState
}

type authState struct {
	user *models.SessionUser
}

func NewAuthBroadcaster() *AuthBroadcaster {
	return &AuthBroadcaster{
		subs: make(map[string]map[int]func(*models.SessionUser)),
		last: make(map[string]*authState),
	}
}

// Source returns the auth state source for one browser session.
func (b *AuthBroadcaster) Source(key string) AuthStateSource {
	return keyedSource{b: b, key: key}
}

// Publish records the auth state for key and notifies subscribers when it changed:
// sign-in, sign-out, or a different uid.
func (b *AuthBroadcaster) Publish(key string, user *models.SessionUser) {
	b.mu.Lock()
	prev, known := b.last[key]
	if known && sameIdentity(prev.user, user) {
		b.mu.Unlock()
		return
	}
	b.last[key] = &authState{user: copyUser(user)}
	fns := make([]func(*models.SessionUser), 0, len(b.subs[key]))
	for _, fn := range b.subs[key] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(copyUser(user))
	}
}

// Forget drops the recorded state for key. Subscribers stay registered.
func (b *AuthBroadcaster) Forget(key string) {
	b.mu.Lock()
	delete(b.last, key)
	b.mu.Unlock()
}

// Subscribers reports how many listeners are registered for key.
func (b *AuthBroadcaster) Subscribers(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[key])
}

type keyedSource struct {
	b   *AuthBroadcaster
	key string
}

// Subscribe registers fn and, when the state for the key is already known,
// delivers it immediately.
func (s keyedSource) Subscribe(fn func(*models.SessionUser)) func() {
	b := s.b
	b.mu.Lock()
	b.seq++
	id := b.seq
	if b.subs[s.key] == nil {
		b.subs[s.key] = make(map[int]func(*models.SessionUser))
	}
	b.subs[s.key][id] = fn
	state, known := b.last[s.key]
	var current *models.SessionUser
	if known {
		current = copyUser(state.user)
	}
	b.mu.Unlock()

	if known {
		fn(current)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[s.key], id)
			if len(b.subs[s.key]) == 0 {
				delete(b.subs, s.key)
			}
		})
	}
}

func sameIdentity(a, b *models.SessionUser) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UID == b.UID
}

func copyUser(u *models.SessionUser) *models.SessionUser {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
