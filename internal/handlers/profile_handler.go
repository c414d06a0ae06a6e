package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/medcontrol/backend/internal/middleware"
	"github.com/medcontrol/backend/internal/profile"
)

// ProfileHandler serves the HTML profile screen.
type ProfileHandler struct {
	screens *ScreenRegistry
	timeout time.Duration
}

func NewProfileHandler(screens *ScreenRegistry, timeout time.Duration) *ProfileHandler {
	return &ProfileHandler{screens: screens, timeout: timeout}
}

// Show renders the screen for this browser.
func (h *ProfileHandler) Show(w http.ResponseWriter, r *http.Request) {
	key := h.screens.Key(w, r)
	sess := h.screens.Attach(r, key, middleware.GetSessionUser(r.Context()))
	if h.followRedirect(w, r, sess) {
		return
	}
	render(w, r, "profile.html", map[string]any{
		"Title": translate(r, "profile.title"),
		"View":  sess.Screen.View(),
	})
}

// Action applies one form post to the screen and redirects back to it.
func (h *ProfileHandler) Action(w http.ResponseWriter, r *http.Request) {
	key := h.screens.Key(w, r)
	sess := h.screens.Attach(r, key, middleware.GetSessionUser(r.Context()))
	if h.followRedirect(w, r, sess) {
		return
	}

	screen := sess.Screen
	action := strings.ToLower(chi.URLParam(r, "action"))
	busy := screen.View().Loading

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	switch action {
	case "edit":
		screen.StartEdit()
	case "cancel":
		if !busy {
			screen.CancelEdit()
		}
	case "save":
		if busy || !screen.View().Editing {
			break
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		screen.SetDisplayName(r.PostForm.Get("displayName"))
		screen.SetEmail(r.PostForm.Get("email"))
		// Failures are kept on the screen and rendered after the redirect.
		_ = screen.Save(ctx)
	case "back":
		if !busy {
			screen.Back()
		}
	case "reset-open":
		screen.OpenPasswordReset()
	case "reset-request":
		screen.RequestPasswordReset()
	case "reset-confirm":
		if !busy {
			_ = screen.ConfirmPasswordReset(ctx)
		}
	case "reset-close":
		screen.ClosePasswordReset()
	case "terms-open":
		screen.ShowTerms()
	case "terms-close":
		screen.HideTerms()
	case "delete":
		if !busy {
			screen.RequestDelete()
		}
	case "delete-confirm":
		if !busy {
			_ = screen.ConfirmDelete(ctx)
		}
	case "delete-cancel":
		screen.DismissDelete()
	default:
		http.NotFound(w, r)
		return
	}

	if h.followRedirect(w, r, sess) {
		return
	}
	redirect(w, r, "/profile")
}

// followRedirect turns a navigation requested by the screen into a 303 and
// releases the screen, since the visitor is leaving it.
func (h *ProfileHandler) followRedirect(w http.ResponseWriter, r *http.Request, sess *ScreenSession) bool {
	target, ok := sess.Redirect()
	if !ok {
		return false
	}
	h.screens.Release(sess.Key)
	if target == profile.LoginPath {
		middleware.ClearSessions(w)
	}
	redirect(w, r, target)
	return true
}
