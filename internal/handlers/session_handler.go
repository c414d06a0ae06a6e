package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/medcontrol/backend/internal/middleware"
	"github.com/medcontrol/backend/internal/models"
	"github.com/medcontrol/backend/internal/services"
)

// LocalAccounts is the password login surface of the memory identity backend.
type LocalAccounts interface {
	Login(req *models.LoginRequest) (*models.LocalUser, error)
	ValidResetToken(token string) bool
	ResetPassword(token, newPassword string) error
}

// FirebaseSessions exchanges Firebase ID tokens for session cookies.
type FirebaseSessions interface {
	SessionCookie(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
	RevokeSessions(ctx context.Context, uid string) error
}

// LoginChallenge verifies the bot check posted with a password login.
type LoginChallenge interface {
	Verify(ctx context.Context, token, remoteIP string) error
	SiteKey() string
}

type SessionConfig struct {
	JWTSecret     string
	JWTExpiration time.Duration
	CookieTTL     time.Duration
	Timeout       time.Duration
}

// SessionHandler signs visitors in and out. Exactly one of local or firebase is set.
type SessionHandler struct {
	local    LocalAccounts
	firebase FirebaseSessions
	screens  *ScreenRegistry
	cfg      SessionConfig

	challenge LoginChallenge
}

// WithChallenge requires a passed bot check before password logins.
func (h *SessionHandler) WithChallenge(c LoginChallenge) *SessionHandler {
	h.challenge = c
	return h
}

func (h *SessionHandler) siteKey() string {
	if h.challenge == nil {
		return ""
	}
	return h.challenge.SiteKey()
}

type loginBody struct {
	models.LoginRequest
	RecaptchaToken string `json:"recaptchaToken"`
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func NewLocalSessionHandler(local LocalAccounts, screens *ScreenRegistry, cfg SessionConfig) *SessionHandler {
	return &SessionHandler{local: local, screens: screens, cfg: cfg}
}

func NewFirebaseSessionHandler(firebase FirebaseSessions, screens *ScreenRegistry, cfg SessionConfig) *SessionHandler {
	return &SessionHandler{firebase: firebase, screens: screens, cfg: cfg}
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func (h *SessionHandler) loginPage(w http.ResponseWriter, r *http.Request, status int, email, errKey, notice string) {
	render(w, r, "login.html", map[string]any{
		"Title":    translate(r, "login.title"),
		"Status":   status,
		"Firebase": h.firebase != nil,
		"Email":    email,
		"Error":    errKey,
		"Notice":   notice,
		"SiteKey":  h.siteKey(),
	})
}

// ShowLogin renders the login form. Signed-in visitors go straight to their profile.
func (h *SessionHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	if middleware.GetSessionUser(r.Context()) != nil {
		redirect(w, r, "/profile")
		return
	}
	notice := ""
	if r.URL.Query().Get("reset") == "1" {
		notice = "reset.done"
	}
	h.loginPage(w, r, http.StatusOK, "", "", notice)
}

// Login checks email and password against the memory backend and issues the
// session cookie. JSON callers also get the token in the body.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.local == nil {
		http.NotFound(w, r)
		return
	}

	var body loginBody
	if wantsJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, models.NewErrorResponse(translate(r, "api.invalid_body")))
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		body.Email = strings.TrimSpace(r.PostForm.Get("email"))
		body.Password = r.PostForm.Get("password")
		body.RecaptchaToken = r.PostForm.Get("g-recaptcha-response")
	}
	req := body.LoginRequest

	if errs := req.Validate(); len(errs) > 0 {
		if wantsJSON(r) {
			writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(translate(r, "api.validation"), errs))
			return
		}
		h.loginPage(w, r, http.StatusBadRequest, req.Email, "login.invalid", "")
		return
	}

	if h.challenge != nil {
		ctx, cancel := contextWithTimeout(r.Context(), h.cfg.Timeout)
		err := h.challenge.Verify(ctx, body.RecaptchaToken, remoteIP(r))
		cancel()
		if err != nil {
			log.Printf("[Login] email=%s challenge error=%v", req.Email, err)
			if wantsJSON(r) {
				writeJSON(w, http.StatusBadRequest, models.NewErrorResponse(translate(r, "login.challenge")))
				return
			}
			h.loginPage(w, r, http.StatusBadRequest, req.Email, "login.challenge", "")
			return
		}
	}

	user, err := h.local.Login(&req)
	if err != nil {
		if !errors.Is(err, services.ErrUserNotFound) && !errors.Is(err, services.ErrInvalidPassword) {
			log.Printf("[Login] email=%s error=%v", req.Email, err)
		}
		if wantsJSON(r) {
			writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse(translate(r, "login.invalid")))
			return
		}
		h.loginPage(w, r, http.StatusUnauthorized, req.Email, "login.invalid", "")
		return
	}

	token, err := middleware.NewSessionToken(h.cfg.JWTSecret, user.ID, h.cfg.JWTExpiration)
	if err != nil {
		log.Printf("[Login] user=%s error=%v", user.ID, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	middleware.SetLocalSession(w, token, h.cfg.JWTExpiration)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.AuthResponse{
			Token: token,
			User:  *user.SessionUser(),
		}))
		return
	}
	redirect(w, r, "/profile")
}

type sessionRequest struct {
	IDToken string `json:"idToken"`
}

// CreateSession exchanges a Firebase ID token for a session cookie.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if h.firebase == nil {
		http.NotFound(w, r)
		return
	}

	var req sessionRequest
	if wantsJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, models.NewErrorResponse(translate(r, "api.invalid_body")))
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		req.IDToken = strings.TrimSpace(r.PostForm.Get("idToken"))
	}
	if req.IDToken == "" {
		if wantsJSON(r) {
			writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(
				translate(r, "api.validation"), map[string]string{"idToken": "required"}))
			return
		}
		h.loginPage(w, r, http.StatusBadRequest, "", "login.invalid", "")
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.cfg.Timeout)
	defer cancel()

	cookie, err := h.firebase.SessionCookie(ctx, req.IDToken, h.cfg.CookieTTL)
	if err != nil {
		log.Printf("[CreateSession] error=%v", err)
		if wantsJSON(r) {
			writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse(translate(r, "api.unauthorized")))
			return
		}
		h.loginPage(w, r, http.StatusUnauthorized, "", "login.invalid", "")
		return
	}
	middleware.SetFirebaseSession(w, r, cookie, h.cfg.CookieTTL)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(nil))
		return
	}
	redirect(w, r, "/profile")
}

// Logout clears the session cookies, revokes Firebase sessions and tells the
// browser's profile screen that its user signed out.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if uid := middleware.GetUserID(r.Context()); uid != "" && h.firebase != nil {
		ctx, cancel := contextWithTimeout(r.Context(), h.cfg.Timeout)
		if err := h.firebase.RevokeSessions(ctx, uid); err != nil {
			log.Printf("[Logout] user=%s revoke error=%v", uid, err)
		}
		cancel()
	}
	if c, err := r.Cookie(ScreenCookieName); err == nil && h.screens != nil {
		h.screens.SignOut(c.Value)
	}
	middleware.ClearSessions(w)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(nil))
		return
	}
	redirect(w, r, "/login")
}

func (h *SessionHandler) resetPage(w http.ResponseWriter, r *http.Request, status int, token, errKey string) {
	render(w, r, "reset.html", map[string]any{
		"Title":  translate(r, "reset.title"),
		"Status": status,
		"Token":  token,
		"Error":  errKey,
	})
}

// ShowReset renders the new-password form for a reset link.
func (h *SessionHandler) ShowReset(w http.ResponseWriter, r *http.Request) {
	if h.local == nil {
		http.NotFound(w, r)
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" || !h.local.ValidResetToken(token) {
		h.resetPage(w, r, http.StatusBadRequest, "", "reset.invalid")
		return
	}
	h.resetPage(w, r, http.StatusOK, token, "")
}

// ResetPassword redeems a reset link and sends the visitor to login.
func (h *SessionHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if h.local == nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	token := r.PostForm.Get("token")
	err := h.local.ResetPassword(token, r.PostForm.Get("password"))
	switch {
	case err == nil:
		redirect(w, r, "/login?reset=1")
	case errors.Is(err, services.ErrPasswordTooShort):
		h.resetPage(w, r, http.StatusBadRequest, token, "reset.too_short")
	case errors.Is(err, services.ErrInvalidResetToken), errors.Is(err, services.ErrUserNotFound):
		h.resetPage(w, r, http.StatusBadRequest, "", "reset.invalid")
	default:
		log.Printf("[ResetPassword] error=%v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
