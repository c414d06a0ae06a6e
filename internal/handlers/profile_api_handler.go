package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/medcontrol/backend/internal/i18n"
	"github.com/medcontrol/backend/internal/middleware"
	"github.com/medcontrol/backend/internal/models"
	"github.com/medcontrol/backend/internal/profile"
	"github.com/medcontrol/backend/internal/services"
)

// discardNavigator ignores navigation. API callers learn the outcome from the
// response instead.
type discardNavigator struct{}

func (discardNavigator) Navigate(string) {}
func (discardNavigator) Back()           {}

// ProfileDocuments is the document store behind the API. Besides the screen's
// updates it reads back the stored profile document.
type ProfileDocuments interface {
	profile.DocumentStore
	GetProfile(ctx context.Context, uid string) (*models.ProfileDocument, error)
}

// profileResponse is the screen state plus the stored document, when there is one.
type profileResponse struct {
	profile.View
	Document *models.ProfileDocument `json:"document,omitempty"`
}

// ProfileAPIHandler exposes the profile screen's operations as JSON.
type ProfileAPIHandler struct {
	identity profile.Identity
	docs     ProfileDocuments
	timeout  time.Duration
}

func NewProfileAPIHandler(identity profile.Identity, docs ProfileDocuments, timeout time.Duration) *ProfileAPIHandler {
	return &ProfileAPIHandler{identity: identity, docs: docs, timeout: timeout}
}

// screenFor mounts a short-lived screen on the request's user.
func (h *ProfileAPIHandler) screenFor(r *http.Request) *profile.Screen {
	screen := profile.NewScreen(h.identity, h.docs, discardNavigator{})
	screen.Mount(profile.StaticAuthState{User: middleware.GetSessionUser(r.Context())})
	return screen
}

func (h *ProfileAPIHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	screen := h.screenFor(r)
	defer screen.Unmount()
	resp := profileResponse{View: screen.View()}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	doc, err := h.docs.GetProfile(ctx, resp.UID)
	switch {
	case err == nil:
		resp.Document = doc
	case errors.Is(err, services.ErrProfileNotFound):
	default:
		log.Printf("[GetProfile] user=%s document error=%v", resp.UID, err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse(translate(r, "api.unavailable")))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(resp))
}

func (h *ProfileAPIHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse(translate(r, "api.invalid_body")))
		return
	}

	screen := h.screenFor(r)
	defer screen.Unmount()
	screen.StartEdit()
	screen.SetDisplayName(req.DisplayName)
	screen.SetEmail(req.Email)

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := screen.Save(ctx); err != nil {
		h.writeScreenError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(screen.View()))
}

// DeleteProfile deletes the account. The request itself is the confirmation.
func (h *ProfileAPIHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	screen := h.screenFor(r)
	defer screen.Unmount()

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := screen.DeleteAccount(ctx); err != nil {
		h.writeScreenError(w, r, err)
		return
	}
	middleware.ClearSessions(w)
	log.Printf("[DeleteProfile] user=%s deleted", userID)
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.DeleteAccountResponse{
		UserID:  userID,
		Deleted: true,
	}))
}

// SendPasswordReset mails a reset link to the signed-in user's email.
func (h *ProfileAPIHandler) SendPasswordReset(w http.ResponseWriter, r *http.Request) {
	screen := h.screenFor(r)
	defer screen.Unmount()
	screen.OpenPasswordReset()

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := screen.ConfirmPasswordReset(ctx); err != nil {
		h.writeScreenError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.PasswordResetResponse{
		Email: screen.View().Email,
		Sent:  true,
	}))
}

func (h *ProfileAPIHandler) writeScreenError(w http.ResponseWriter, r *http.Request, err error) {
	tag := requestTag(r)
	var perr *profile.Error
	if !errors.As(err, &perr) {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse(err.Error()))
		return
	}
	msg := i18n.T(tag, string(perr.Msg))
	switch perr.Kind {
	case profile.KindValidation:
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(
			i18n.T(tag, "api.validation"),
			map[string]string{perr.Field: msg},
		))
	case profile.KindUnauthenticated:
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse(msg))
	default:
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse(msg))
	}
}
