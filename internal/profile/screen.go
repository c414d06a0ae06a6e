// Package profile implements the user profile screen: it mirrors the signed-in
// user into editable fields, persists display name changes, sends password
// reset emails, deletes the account and sends signed-out visitors to login.
package profile

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/medcontrol/backend/internal/models"
)

// LoginPath is where signed-out visitors and deleted accounts are sent.
const LoginPath = "/login"

// Identity is the subset of the identity backend the screen calls.
type Identity interface {
	UpdateDisplayName(ctx context.Context, uid, displayName string) error
	DeleteUser(ctx context.Context, uid string) error
	SendPasswordResetEmail(ctx context.Context, email string) error
}

// DocumentStore updates fields of an existing document.
type DocumentStore interface {
	UpdateDocument(ctx context.Context, collection, key string, fields map[string]interface{}) error
}

// Navigator moves the visitor away from the screen.
type Navigator interface {
	Navigate(path string)
	Back()
}

// State is the screen's position in AuthLoading -> Viewing <-> Editing -> Redirected.
type State int

const (
	StateAuthLoading State = iota
	StateViewing
	StateEditing
	StateRedirected
)

func (s State) String() string {
	switch s {
	case StateAuthLoading:
		return "auth_loading"
	case StateViewing:
		return "viewing"
	case StateEditing:
		return "editing"
	case StateRedirected:
		return "redirected"
	default:
		return "unknown"
	}
}

// View is a snapshot of the screen used for rendering.
type View struct {
	State             State   `json:"state"`
	UID               string  `json:"uid,omitempty"`
	DisplayName       string  `json:"display_name"`
	Email             string  `json:"email"`
	PhotoURL          string  `json:"photo_url,omitempty"`
	Editing           bool    `json:"editing"`
	Loading           bool    `json:"loading"`
	AuthLoading       bool    `json:"auth_loading"`
	Error             Message `json:"error,omitempty"`
	ShowPasswordReset bool    `json:"show_password_reset"`
	ShowConfirmReset  bool    `json:"show_confirm_reset"`
	ResetEmailSent    bool    `json:"reset_email_sent"`
	ShowConfirmDelete bool    `json:"show_confirm_delete"`
	ShowTerms         bool    `json:"show_terms"`
}

// Screen holds the local UI state of one profile screen.
type Screen struct {
	identity  Identity
	docs      DocumentStore
	nav       Navigator
	loginPath string

	mu          sync.Mutex
	current     *models.SessionUser
	displayName string
	email       string
	photoURL    string
	editing     bool
	loading     bool
	authLoading bool
	redirected  bool
	err         Message

	showPasswordReset bool
	showConfirmReset  bool
	resetEmailSent    bool
	showConfirmDelete bool
	showTerms         bool

	unsubscribe func()
}

// Option customizes a Screen.
type Option func(*Screen)

// WithLoginPath overrides LoginPath.
func WithLoginPath(path string) Option {
	return func(s *Screen) {
		if strings.TrimSpace(path) != "" {
			s.loginPath = path
		}
	}
}

func NewScreen(identity Identity, docs DocumentStore, nav Navigator, opts ...Option) *Screen {
	s := &Screen{
		identity:    identity,
		docs:        docs,
		nav:         nav,
		loginPath:   LoginPath,
		authLoading: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mount subscribes the screen to auth-state changes. Mounting twice is a no-op.
func (s *Screen) Mount(source AuthStateSource) {
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.mu.Unlock()
		return
	}
	s.authLoading = true
	s.unsubscribe = func() {}
	s.mu.Unlock()

	unsub := source.Subscribe(s.onAuthState)

	s.mu.Lock()
	s.unsubscribe = unsub
	s.mu.Unlock()
}

// Unmount releases the auth-state subscription.
func (s *Screen) Unmount() {
	s.mu.Lock()
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (s *Screen) onAuthState(user *models.SessionUser) {
	s.mu.Lock()
	if user == nil {
		s.authLoading = false
		s.redirected = true
		s.current = nil
		s.resetLocalState()
		s.displayName, s.email, s.photoURL = "", "", ""
		s.mu.Unlock()
		s.nav.Navigate(s.loginPath)
		return
	}
	if s.current == nil || s.current.UID != user.UID {
		// Edits and open dialogs belong to the previous user.
		s.resetLocalState()
	}
	u := *user
	s.current = &u
	s.displayName = u.DisplayName
	s.email = u.Email
	s.photoURL = u.PhotoURL
	s.authLoading = false
	s.redirected = false
	s.mu.Unlock()
}

func (s *Screen) resetLocalState() {
	s.editing = false
	s.err = ""
	s.showPasswordReset = false
	s.showConfirmReset = false
	s.resetEmailSent = false
	s.showConfirmDelete = false
	s.showTerms = false
}

// View returns a snapshot of the current state.
func (s *Screen) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		State:             s.state(),
		DisplayName:       s.displayName,
		Email:             s.email,
		PhotoURL:          s.photoURL,
		Editing:           s.editing,
		Loading:           s.loading,
		AuthLoading:       s.authLoading,
		Error:             s.err,
		ShowPasswordReset: s.showPasswordReset,
		ShowConfirmReset:  s.showConfirmReset,
		ResetEmailSent:    s.resetEmailSent,
		ShowConfirmDelete: s.showConfirmDelete,
		ShowTerms:         s.showTerms,
	}
	if s.current != nil {
		v.UID = s.current.UID
	}
	return v
}

// State reports where the screen is in its state machine.
func (s *Screen) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

func (s *Screen) state() State {
	switch {
	case s.redirected:
		return StateRedirected
	case s.authLoading:
		return StateAuthLoading
	case s.editing:
		return StateEditing
	default:
		return StateViewing
	}
}

// StartEdit makes the name and email fields editable.
func (s *Screen) StartEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.authLoading || s.redirected {
		return
	}
	s.editing = true
}

// CancelEdit discards unsaved edits and restores the last confirmed user.
func (s *Screen) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editing = false
	s.restoreFields()
	s.err = ""
}

func (s *Screen) restoreFields() {
	if s.current == nil {
		s.displayName, s.email = "", ""
		return
	}
	s.displayName = s.current.DisplayName
	s.email = s.current.Email
}

// SetDisplayName changes the name field. Read-only outside edit mode and while loading.
func (s *Screen) SetDisplayName(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editing && !s.loading {
		s.displayName = v
	}
}

// SetEmail changes the email field. Read-only outside edit mode and while loading.
func (s *Screen) SetEmail(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editing && !s.loading {
		s.email = v
	}
}

// Save validates the fields, then updates the identity profile and the profile
// document, in that order. Only the display name is persisted.
func (s *Screen) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.current == nil {
		s.err = MsgNotAuthenticated
		s.mu.Unlock()
		return &Error{Kind: KindUnauthenticated, Msg: MsgNotAuthenticated}
	}
	uid := s.current.UID
	name, email := s.displayName, s.email
	if verr := Validate(name, email); verr != nil {
		s.err = verr.Msg
		s.mu.Unlock()
		return verr
	}
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	err := s.identity.UpdateDisplayName(ctx, uid, name)
	if err == nil {
		err = s.docs.UpdateDocument(ctx, models.UsersCollection, uid, map[string]interface{}{
			models.FieldDisplayName: name,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		log.Printf("[Profile] save user=%s error=%v", uid, err)
		s.err = MsgSaveFailed
		return &Error{Kind: KindBackend, Msg: MsgSaveFailed, Err: err}
	}
	if s.current != nil && s.current.UID == uid {
		s.current.DisplayName = name
	}
	s.editing = false
	s.restoreFields()
	return nil
}

// DeleteAccount deletes the signed-in user and navigates to login. Without a
// signed-in user it does nothing.
func (s *Screen) DeleteAccount(ctx context.Context) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil
	}
	uid := s.current.UID
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	err := s.identity.DeleteUser(ctx, uid)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.err = MsgDeleteFailed
		s.mu.Unlock()
		log.Printf("[Profile] delete user=%s error=%v", uid, err)
		return &Error{Kind: KindBackend, Msg: MsgDeleteFailed, Err: err}
	}
	s.current = nil
	s.editing = false
	s.redirected = true
	s.mu.Unlock()

	s.nav.Navigate(s.loginPath)
	return nil
}

// RequestDelete opens the delete confirmation.
func (s *Screen) RequestDelete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.showConfirmDelete = true
	}
}

// DismissDelete closes the delete confirmation.
func (s *Screen) DismissDelete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showConfirmDelete = false
}

// ConfirmDelete deletes the account once the confirmation is open.
func (s *Screen) ConfirmDelete(ctx context.Context) error {
	s.mu.Lock()
	open := s.showConfirmDelete
	s.showConfirmDelete = false
	s.mu.Unlock()
	if !open {
		return nil
	}
	return s.DeleteAccount(ctx)
}

// OpenPasswordReset shows the password reset panel.
func (s *Screen) OpenPasswordReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showPasswordReset = true
	s.resetEmailSent = false
}

// RequestPasswordReset opens the confirmation before the reset email goes out.
func (s *Screen) RequestPasswordReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.showPasswordReset = true
		s.showConfirmReset = true
	}
}

// ClosePasswordReset hides the panel and its confirmation.
func (s *Screen) ClosePasswordReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showPasswordReset = false
	s.showConfirmReset = false
	s.resetEmailSent = false
}

// ConfirmPasswordReset sends a reset email to the confirmed session email,
// not to whatever is in the edit field.
func (s *Screen) ConfirmPasswordReset(ctx context.Context) error {
	s.mu.Lock()
	if s.current == nil {
		s.err = MsgNotAuthenticated
		s.mu.Unlock()
		return &Error{Kind: KindUnauthenticated, Msg: MsgNotAuthenticated}
	}
	uid, email := s.current.UID, s.current.Email
	s.showConfirmReset = false
	s.resetEmailSent = false
	s.err = ""
	s.mu.Unlock()

	err := s.identity.SendPasswordResetEmail(ctx, email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		log.Printf("[Profile] password reset user=%s error=%v", uid, err)
		s.err = MsgResetFailed
		return &Error{Kind: KindBackend, Msg: MsgResetFailed, Err: err}
	}
	s.showPasswordReset = true
	s.resetEmailSent = true
	return nil
}

func (s *Screen) ShowTerms() {
	s.mu.Lock()
	s.showTerms = true
	s.mu.Unlock()
}

func (s *Screen) HideTerms() {
	s.mu.Lock()
	s.showTerms = false
	s.mu.Unlock()
}

// Back navigates to the previous page.
func (s *Screen) Back() {
	s.mu.Lock()
	s.redirected = true
	s.mu.Unlock()
	s.nav.Back()
}
