package profile

import (
	"testing"

	"github.com/medcontrol/backend/internal/models"
)

func TestBroadcasterNotifiesOnlyOnChange(t *testing.T) {
	b := NewAuthBroadcaster()
	var got []*models.SessionUser
	unsub := b.Source("sid").Subscribe(func(u *models.SessionUser) { got = append(got, u) })
	defer unsub()

	b.Publish("sid", alice())
	b.Publish("sid", alice())
	renamed := alice()
	renamed.DisplayName = "Renamed"
	b.Publish("sid", renamed)
	if len(got) != 1 {
		t.Fatalf("notifications = %d, want 1 for the same uid", len(got))
	}

	b.Publish("sid", nil)
	b.Publish("sid", nil)
	if len(got) != 2 || got[1] != nil {
		t.Fatalf("expected one sign-out notification, got %d", len(got))
	}

	b.Publish("sid", &models.SessionUser{UID: "u-bob"})
	if len(got) != 3 || got[2].UID != "u-bob" {
		t.Fatalf("expected sign-in of bob, got %d notifications", len(got))
	}
}

func TestBroadcasterDeliversLastStateOnSubscribe(t *testing.T) {
	b := NewAuthBroadcaster()
	b.Publish("sid", alice())

	var got *models.SessionUser
	calls := 0
	unsub := b.Source("sid").Subscribe(func(u *models.SessionUser) {
		calls++
		got = u
	})
	defer unsub()
	if calls != 1 || got == nil || got.UID != "u-alice" {
		t.Fatalf("calls=%d got=%+v", calls, got)
	}

	calls = 0
	other := b.Source("other").Subscribe(func(*models.SessionUser) { calls++ })
	defer other()
	if calls != 0 {
		t.Fatalf("unknown key must not deliver on subscribe")
	}
}

func TestBroadcasterKeysAreIsolated(t *testing.T) {
	b := NewAuthBroadcaster()
	a, c := 0, 0
	ua := b.Source("a").Subscribe(func(*models.SessionUser) { a++ })
	uc := b.Source("c").Subscribe(func(*models.SessionUser) { c++ })
	defer ua()
	defer uc()

	b.Publish("a", alice())
	if a != 1 || c != 0 {
		t.Fatalf("a=%d c=%d", a, c)
	}
}

func TestBroadcasterForget(t *testing.T) {
	b := NewAuthBroadcaster()
	b.Publish("sid", alice())
	b.Forget("sid")
	calls := 0
	unsub := b.Source("sid").Subscribe(func(*models.SessionUser) { calls++ })
	defer unsub()
	if calls != 0 {
		t.Fatalf("forgotten state delivered")
	}
	b.Publish("sid", alice())
	if calls != 1 {
		t.Fatalf("publish after forget should notify, calls=%d", calls)
	}
}

func TestBroadcasterDeliversCopies(t *testing.T) {
	b := NewAuthBroadcaster()
	u := alice()
	b.Publish("sid", u)
	u.DisplayName = "mutated"

	var got *models.SessionUser
	unsub := b.Source("sid").Subscribe(func(v *models.SessionUser) { got = v })
	defer unsub()
	if got.DisplayName != "Alice" {
		t.Fatalf("broadcaster kept a reference to the caller's user: %q", got.DisplayName)
	}
}
